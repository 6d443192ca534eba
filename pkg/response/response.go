// Package response centralizes HTTP response shapes and helpers.
// Both the gin admin surface and the plain net/http gateway path rely on it to keep error envelopes uniform.
package response

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
)

// Gateway-level errors mapped to HTTP statuses below.
var (
	ErrNotFound            = errors.New("not found")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrBadGateway          = errors.New("bad gateway")
	ErrGatewayTimeout      = errors.New("gateway timeout")
)

// ErrorPayload is the canonical error envelope returned by the gateway.
type ErrorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// MapError converts a gateway / transport error into an HTTP status and payload.
// Extend here as new error categories emerge.
func MapError(err error) (int, ErrorPayload) {
	if err == nil {
		return http.StatusOK, ErrorPayload{Error: "ok"}
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, ErrorPayload{Error: "not_found"}
	case errors.Is(err, ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable, ErrorPayload{Error: "upstream_unavailable"}
	case errors.Is(err, ErrGatewayTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrorPayload{Error: "gateway_timeout"}
	case errors.Is(err, ErrBadGateway):
		return http.StatusBadGateway, ErrorPayload{Error: "bad_gateway"}
	default:
		return http.StatusInternalServerError, ErrorPayload{Error: "internal_error"}
	}
}

// WriteError writes an error response and aborts the context.
func WriteError(c *gin.Context, err error) {
	status, payload := MapError(err)
	c.AbortWithStatusJSON(status, payload)
}

// WriteData writes a successful JSON response.
func WriteData(c *gin.Context, status int, data any) {
	c.JSON(status, data)
}

// WriteHTTPError is WriteError for handlers that sit outside gin.
func WriteHTTPError(w http.ResponseWriter, err error) {
	status, payload := MapError(err)
	WriteHTTPData(w, status, payload)
}

// WriteHTTPData renders data as JSON with the given status on a plain ResponseWriter.
func WriteHTTPData(w http.ResponseWriter, status int, data any) {
	r := render.JSON{Data: data}
	r.WriteContentType(w)
	w.WriteHeader(status)
	// Headers are already out; nothing useful left to do with a write error.
	_ = r.Render(w)
}
