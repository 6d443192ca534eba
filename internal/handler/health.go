package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

// Pinger is the minimal contract I need from a dependency to check readiness.
// I keep it local to the handler package to avoid coupling and simplify tests.
type Pinger interface {
	Name() string
	Ping(ctx context.Context) error
}

// HealthHandler exposes liveness and readiness endpoints on the admin surface.
// The public /health probe is answered by the dispatcher itself.
type HealthHandler struct {
	deps    []Pinger
	timeout time.Duration
}

// maxReadyTimeout caps the readiness fan-out so /ready answers before a typical probe gives up.
const maxReadyTimeout = 10 * time.Second

// NewHealthHandler wires a health handler with the dependencies readiness should probe.
func NewHealthHandler(timeout time.Duration, deps ...Pinger) *HealthHandler {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	timeout = min(timeout, maxReadyTimeout)
	return &HealthHandler{deps: deps, timeout: timeout}
}

// Liveness responds OK if the process is up; it doesn't check dependencies.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// Readiness pings every dependency concurrently and reports each failure by name.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	errs := make([]error, len(h.deps))
	var g errgroup.Group
	for i, d := range h.deps {
		g.Go(func() error {
			errs[i] = d.Ping(ctx)
			return nil
		})
	}
	_ = g.Wait()

	failed := gin.H{}
	for i, err := range errs {
		if err != nil {
			failed[h.deps[i].Name()] = err.Error()
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"errors": failed,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
