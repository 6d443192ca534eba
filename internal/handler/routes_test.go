package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/maxviazov/booking-gateway/internal/dispatch"
	"github.com/maxviazov/booking-gateway/internal/handler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubPinger implements handler.Pinger for readiness.
type stubPinger struct {
	name string
	err  error
}

func (s stubPinger) Name() string                   { return s.name }
func (s stubPinger) Ping(ctx context.Context) error { return s.err }

// hangingPinger blocks until the readiness deadline fires.
type hangingPinger struct{ name string }

func (h hangingPinger) Name() string { return h.name }
func (h hangingPinger) Ping(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

var okHandler = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})

func newAdmin(t *testing.T, d *dispatch.Dispatcher, pingers ...handler.Pinger) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	})
	handler.Register(r, handler.NewHealthHandler(time.Second, pingers...), d, metrics)
	return r
}

func bookingDispatcher(t *testing.T, opts ...dispatch.Option) *dispatch.Dispatcher {
	t.Helper()
	areas := handler.Areas{
		Flights: okHandler, Purchase: okHandler, Receipt: okHandler,
		Book: okHandler, Booked: okHandler, Auth: okHandler, Home: okHandler,
	}
	table, err := dispatch.NewRouteTable(handler.BookingBindings(areas)...)
	require.NoError(t, err)
	return dispatch.NewDispatcher(table, opts...)
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestLiveness_OK(t *testing.T) {
	r := newAdmin(t, bookingDispatcher(t))
	w := get(r, "/live")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"alive"}`, w.Body.String())
}

func TestReadiness_OK(t *testing.T) {
	r := newAdmin(t, bookingDispatcher(t), stubPinger{name: "flights"}, stubPinger{name: "auth"})
	w := get(r, "/ready")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d, body=%s", w.Code, w.Body.String())
	}
}

func TestReadiness_NoDependencies(t *testing.T) {
	r := newAdmin(t, bookingDispatcher(t))
	assert.Equal(t, http.StatusOK, get(r, "/ready").Code)
}

func TestReadiness_Unavailable(t *testing.T) {
	r := newAdmin(t, bookingDispatcher(t),
		stubPinger{name: "flights"},
		stubPinger{name: "purchase", err: errors.New("connection refused")},
	)
	w := get(r, "/ready")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body struct {
		Status string            `json:"status"`
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "unavailable", body.Status)
	assert.Equal(t, map[string]string{"purchase": "connection refused"}, body.Errors)
}

func TestReadiness_MethodNotAllowed(t *testing.T) {
	r := newAdmin(t, bookingDispatcher(t))
	w := httptest.NewRecorder()
	// Gin by default returns 404 for unknown method if route only registered for GET.
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ready", nil))
	if w.Code != http.StatusNotFound && w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 404 or 405, got %d", w.Code)
	}
}

func TestListRoutes(t *testing.T) {
	r := newAdmin(t, bookingDispatcher(t))
	w := get(r, "/routes")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Health string              `json:"health"`
		Mode   string              `json:"mode"`
		Routes []handler.RouteView `json:"routes"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "/health", body.Health)
	assert.Equal(t, "ordered", body.Mode)
	require.Len(t, body.Routes, 8)
	assert.Equal(t, handler.RouteView{Order: 1, Name: "flights", Prefix: "/book/flights"}, body.Routes[0])
	assert.Equal(t, handler.RouteView{Order: 8, Name: "home", Prefix: "/"}, body.Routes[7])
}

func TestDescribeRoutes_Shadowed(t *testing.T) {
	table, err := dispatch.NewRouteTable(
		dispatch.Binding{Prefix: "/book", Handler: okHandler},
		dispatch.Binding{Prefix: "/book/flights", Handler: okHandler},
	)
	require.NoError(t, err)

	rows := handler.DescribeRoutes(dispatch.NewDispatcher(table))
	assert.Equal(t, "/book", rows[1].ShadowedBy)

	rows = handler.DescribeRoutes(dispatch.NewDispatcher(table, dispatch.WithMatchMode(dispatch.MatchLongest)))
	assert.Empty(t, rows[1].ShadowedBy)
}

func TestMetricsAndDocs(t *testing.T) {
	r := newAdmin(t, bookingDispatcher(t))

	w := get(r, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "# metrics", w.Body.String())

	w = get(r, "/openapi.yaml")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/book/flights/{rest}")

	w = get(r, "/docs")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "swagger-ui")
}

func TestAdmin_NotFound(t *testing.T) {
	r := newAdmin(t, bookingDispatcher(t))
	assert.Equal(t, http.StatusNotFound, get(r, "/no-such").Code)
}

func TestReadiness_DeadlineBoundsSlowDependency(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := handler.NewHealthHandler(50*time.Millisecond, stubPinger{name: "flights"}, hangingPinger{name: "book"})
	handler.Register(r, h, bookingDispatcher(t), http.NotFoundHandler())

	start := time.Now()
	w := get(r, "/ready")
	assert.Less(t, time.Since(start), 2*time.Second)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body struct {
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body.Errors["book"], "deadline exceeded")
	assert.NotContains(t, body.Errors, "flights")
}
