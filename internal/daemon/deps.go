// SPDX-License-Identifier: MIT

package daemon

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/video360/internal/config"
)

// Deps contains dependencies required by the daemon Manager.
type Deps struct {
	Logger zerolog.Logger

	// APIHandler serves the view API.
	APIHandler http.Handler

	// MetricsHandler serves Prometheus metrics on MetricsAddr. Either empty
	// disables the metrics listener.
	MetricsHandler http.Handler
	MetricsAddr    string

	// Drain runs when API shutdown begins. It ends long-lived event streams
	// so the graceful shutdown does not wait for clients to hang up.
	Drain func()
}

// Validate checks if the dependencies are valid.
func (d *Deps) Validate() error {
	if d.Logger.GetLevel() == zerolog.Disabled {
		return ErrMissingLogger
	}
	if d.APIHandler == nil {
		return ErrMissingAPIHandler
	}
	return nil
}

// ServerConfig holds the HTTP server settings of the API listener.
type ServerConfig struct {
	ListenAddr      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	MaxHeaderBytes  int
	ShutdownTimeout time.Duration
}

// ServerConfigFrom maps the api section of the configuration.
func ServerConfigFrom(cfg config.APIConfig) ServerConfig {
	return ServerConfig{
		ListenAddr:      cfg.Listen,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		IdleTimeout:     cfg.IdleTimeout,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}
}
