// Package server runs the public gateway and the admin surface as two http.Servers.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/maxviazov/booking-gateway/internal/config"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type Server struct {
	name string
	srv  *http.Server
	log  zerolog.Logger
}

// New wraps handler in an http.Server with the timeouts from app config.
func New(name, addr string, handler http.Handler, cfg config.AppConfig, log zerolog.Logger) *Server {
	return &Server{
		name: name,
		log:  log.With().Str("server", name).Str("addr", addr).Logger(),
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
			ReadTimeout:       cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		},
	}
}

func (s *Server) Name() string { return s.name }

func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start blocks serving on the configured address. It returns nil after a graceful Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	s.log.Info().Str("listen", ln.Addr().String()).Msg("server started")
	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("server shutting down")
	return s.srv.Shutdown(ctx)
}

// Run serves all servers until ctx is done or one of them fails, then shuts every one down.
func Run(ctx context.Context, shutdownTimeout time.Duration, servers ...*Server) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, s := range servers {
		g.Go(s.Start)
	}
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		var errs []error
		for _, s := range servers {
			if err := s.Shutdown(sctx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
	return g.Wait()
}
