package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/maxviazov/booking-gateway/internal/config"
	"github.com/maxviazov/booking-gateway/internal/dispatch"
	"github.com/rs/zerolog"
)

// Areas are the handlers behind the booking site's prefixes.
type Areas struct {
	Flights  http.Handler
	Purchase http.Handler
	Receipt  http.Handler
	Book     http.Handler
	Booked   http.Handler
	Auth     http.Handler
	Home     http.Handler
}

// BookingBindings returns the public route table in evaluation order.
// The /book/* areas must stay ahead of /book, and / must stay last, or they become unreachable.
func BookingBindings(a Areas) []dispatch.Binding {
	return []dispatch.Binding{
		{Prefix: "/book/flights", Name: "flights", Handler: a.Flights},
		{Prefix: "/book/purchase", Name: "purchase", Handler: a.Purchase},
		{Prefix: "/book/receipt", Name: "receipt", Handler: a.Receipt},
		{Prefix: "/book", Name: "book", Handler: a.Book},
		{Prefix: "/booked", Name: "booked", Handler: a.Booked},
		{Prefix: "/login", Name: "login", Handler: a.Auth},
		{Prefix: "/logout", Name: "logout", Handler: a.Auth},
		{Prefix: "/", Name: "home", Handler: a.Home},
	}
}

// NewUpstreamAreas builds one Upstream per area from config.
// /login and /logout share the auth upstream.
func NewUpstreamAreas(cfg config.UpstreamsConfig, log zerolog.Logger) (Areas, []*Upstream, error) {
	specs := []struct {
		name string
		url  string
	}{
		{"flights", cfg.Flights},
		{"purchase", cfg.Purchase},
		{"receipt", cfg.Receipt},
		{"book", cfg.Book},
		{"booked", cfg.Booked},
		{"auth", cfg.Auth},
		{"home", cfg.Home},
	}

	var a Areas
	dsts := []*http.Handler{&a.Flights, &a.Purchase, &a.Receipt, &a.Book, &a.Booked, &a.Auth, &a.Home}
	ups := make([]*Upstream, 0, len(specs))
	for i, s := range specs {
		u, err := NewUpstream(s.name, s.url, timeoutOrDefault(cfg.Timeout), log)
		if err != nil {
			return Areas{}, nil, fmt.Errorf("build areas: %w", err)
		}
		*dsts[i] = u
		ups = append(ups, u)
	}
	return a, ups, nil
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return 30 * time.Second
	}
	return d
}
