package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maxviazov/booking-gateway/internal/dispatch"
)

// Register mounts the admin surface on the given engine.
// The public gateway never shares this engine; it listens on its own address.
func Register(r *gin.Engine, h *HealthHandler, d *dispatch.Dispatcher, metrics http.Handler) {
	// Health probes
	r.GET("/live", h.Liveness)
	r.GET("/ready", h.Readiness)

	r.GET("/routes", ListRoutes(d))
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}

	RegisterDocs(r)
}

// RouteView is one row of the dispatcher's table as exposed to operators.
type RouteView struct {
	Order      int    `json:"order"`
	Name       string `json:"name"`
	Prefix     string `json:"prefix"`
	ShadowedBy string `json:"shadowed_by,omitempty"`
}

type routesResponse struct {
	Health string      `json:"health"`
	Mode   string      `json:"mode"`
	Routes []RouteView `json:"routes"`
}

// DescribeRoutes flattens the table in evaluation order and marks unreachable rows.
// Shadowing only applies in ordered mode.
func DescribeRoutes(d *dispatch.Dispatcher) []RouteView {
	shadowed := map[string]string{}
	if d.Mode() == dispatch.MatchOrdered {
		for _, s := range d.Table().Shadowed() {
			shadowed[s.Binding.Prefix] = s.ShadowedBy.Prefix
		}
	}

	bindings := d.Table().Bindings()
	out := make([]RouteView, 0, len(bindings))
	for i, b := range bindings {
		out = append(out, RouteView{
			Order:      i + 1,
			Name:       b.Name,
			Prefix:     b.Prefix,
			ShadowedBy: shadowed[b.Prefix],
		})
	}
	return out
}

// ListRoutes exposes DescribeRoutes as JSON.
func ListRoutes(d *dispatch.Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, routesResponse{
			Health: dispatch.HealthPath,
			Mode:   string(d.Mode()),
			Routes: DescribeRoutes(d),
		})
	}
}
