// Package app assembles the gateway from config: route table, dispatcher, middleware and admin surface.
package app

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maxviazov/booking-gateway/internal/config"
	"github.com/maxviazov/booking-gateway/internal/dispatch"
	"github.com/maxviazov/booking-gateway/internal/handler"
	"github.com/maxviazov/booking-gateway/internal/metrics"
	"github.com/maxviazov/booking-gateway/internal/middleware"
	"github.com/rs/zerolog"
)

type App struct {
	Dispatcher *dispatch.Dispatcher
	Upstreams  []*handler.Upstream
	Metrics    *metrics.Metrics

	// Gateway is the public handler: request ids, access log and recovery around the dispatcher.
	Gateway http.Handler
	Admin   *gin.Engine
}

func Build(cfg *config.Config, log zerolog.Logger) (*App, error) {
	mode, err := dispatch.ParseMatchMode(cfg.Dispatch.Match)
	if err != nil {
		return nil, err
	}

	areas, ups, err := handler.NewUpstreamAreas(cfg.Upstreams, log)
	if err != nil {
		return nil, err
	}

	table, err := dispatch.NewRouteTable(handler.BookingBindings(areas)...)
	if err != nil {
		return nil, fmt.Errorf("route table: %w", err)
	}
	if mode == dispatch.MatchOrdered {
		for _, s := range table.Shadowed() {
			log.Warn().
				Str("prefix", s.Binding.Prefix).
				Str("shadowed_by", s.ShadowedBy.Prefix).
				Msg("binding is unreachable")
		}
	}

	m := metrics.New()
	d := dispatch.NewDispatcher(table, dispatch.WithMatchMode(mode), dispatch.WithObserver(m))

	gateway := middleware.Chain(d,
		middleware.RequestID(log),
		middleware.AccessLog(d.Label, m),
		middleware.Recover,
	)

	var ready []handler.Pinger
	for _, u := range ups {
		if !u.Configured() {
			log.Warn().Str("area", u.Name()).Msg("no upstream configured, area will answer 503")
			continue
		}
		ready = append(ready, u)
	}

	admin := gin.New()
	admin.Use(gin.Recovery())
	handler.Register(admin, handler.NewHealthHandler(cfg.Upstreams.ReadyTimeout, ready...), d, m.Handler())

	return &App{
		Dispatcher: d,
		Upstreams:  ups,
		Metrics:    m,
		Gateway:    gateway,
		Admin:      admin,
	}, nil
}
