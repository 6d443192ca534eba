package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/maxviazov/booking-gateway/internal/app"
	"github.com/maxviazov/booking-gateway/internal/config"
	"github.com/maxviazov/booking-gateway/internal/logger"
	"github.com/maxviazov/booking-gateway/internal/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gateway and the admin listener",
	Args:  cobra.NoArgs,
	RunE:  serve,
}

func serve(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config loading failed: %w", err)
	}

	appLogger, err := logger.New(&cfg.Logger)
	if err != nil {
		return fmt.Errorf("logger initialization failed: %w", err)
	}
	if cfg.Logger.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	a, err := app.Build(cfg, appLogger)
	if err != nil {
		return err
	}

	servers := []*server.Server{server.New("gateway", cfg.App.Addr, a.Gateway, cfg.App, appLogger)}
	if cfg.App.AdminAddr != "" {
		servers = append(servers, server.New("admin", cfg.App.AdminAddr, a.Admin, cfg.App, appLogger))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appLogger.Info().
		Str("addr", cfg.App.Addr).
		Str("admin_addr", cfg.App.AdminAddr).
		Str("match", string(a.Dispatcher.Mode())).
		Int("bindings", a.Dispatcher.Table().Len()).
		Msg("🚀 Service started")

	if err := server.Run(ctx, cfg.App.ShutdownTimeout, servers...); err != nil {
		return err
	}
	appLogger.Info().Msg("service stopped")
	return nil
}
