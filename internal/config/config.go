package config

import (
	"time"

	"github.com/maxviazov/booking-gateway/internal/logger"
)

type Config struct {
	App       AppConfig           `mapstructure:"app"`
	Logger    logger.LoggerConfig `mapstructure:"logger" validate:"-"`
	Dispatch  DispatchConfig      `mapstructure:"dispatch"`
	Upstreams UpstreamsConfig     `mapstructure:"upstreams"`
}

// AppConfig holds listener settings for the public gateway and the admin surface.
type AppConfig struct {
	Name              string        `mapstructure:"name" validate:"required"`
	Version           string        `mapstructure:"version"`
	Addr              string        `mapstructure:"addr" validate:"required"`
	AdminAddr         string        `mapstructure:"admin_addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" validate:"gt=0"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout" validate:"gte=0"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" validate:"gte=0"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout" validate:"gte=0"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

type DispatchConfig struct {
	// Match is "ordered" (first registered prefix wins) or "longest" (most specific prefix wins).
	Match string `mapstructure:"match" validate:"oneof=ordered longest"`
}

// UpstreamsConfig holds base URLs of the services behind each booking area.
// An empty URL leaves the area mounted but answering 503.
type UpstreamsConfig struct {
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
	// ReadyTimeout bounds the whole /ready fan-out; keep it under the orchestrator's probe timeout.
	ReadyTimeout time.Duration `mapstructure:"ready_timeout" validate:"gt=0,lte=10s"`
	Flights      string        `mapstructure:"flights" validate:"omitempty,url"`
	Purchase     string        `mapstructure:"purchase" validate:"omitempty,url"`
	Receipt      string        `mapstructure:"receipt" validate:"omitempty,url"`
	Book         string        `mapstructure:"book" validate:"omitempty,url"`
	Booked       string        `mapstructure:"booked" validate:"omitempty,url"`
	Auth         string        `mapstructure:"auth" validate:"omitempty,url"`
	Home         string        `mapstructure:"home" validate:"omitempty,url"`
}
