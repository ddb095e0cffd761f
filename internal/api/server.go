// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api serves the view command surface over HTTP. Each view gets a
// JSON invoke endpoint, an event stream and a motion intake.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ManuGH/video360/internal/api/middleware"
	"github.com/ManuGH/video360/internal/bus"
	"github.com/ManuGH/video360/internal/log"
	"github.com/ManuGH/video360/internal/view"
)

const (
	defaultFrameQuality = 85
	defaultHeartbeat    = 15 * time.Second
	maxBodyBytes        = 64 << 10
	maxMotionSamples    = 256
)

// Config controls the HTTP surface.
type Config struct {
	AllowedOrigins []string
	// RateLimit is requests per minute per client IP on invoke and motion.
	RateLimit int
	// FrameQuality is the default JPEG quality of frame.jpg.
	FrameQuality int
	// Heartbeat is the comment interval that keeps idle event streams open.
	Heartbeat time.Duration
	// TracingService names the HTTP spans; empty disables tracing.
	TracingService string
	Version        string
}

type Server struct {
	cfg      Config
	registry *view.Registry
	bus      bus.Bus
	logger   zerolog.Logger
}

func New(cfg Config, registry *view.Registry, b bus.Bus) *Server {
	if cfg.FrameQuality <= 0 || cfg.FrameQuality > 100 {
		cfg.FrameQuality = defaultFrameQuality
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = defaultHeartbeat
	}
	return &Server{
		cfg:      cfg,
		registry: registry,
		bus:      b,
		logger:   log.WithComponent("api"),
	}
}

// Handler returns the routed handler with the ingress middleware stack.
func (s *Server) Handler() http.Handler {
	return s.routes()
}

func (s *Server) routes() http.Handler {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableCORS:            true,
		AllowedOrigins:        s.cfg.AllowedOrigins,
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		TracingService:        s.cfg.TracingService,
		EnableLogging:         true,
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteProblem(w, r, http.StatusNotFound, "system/not_found", "Not Found", "NOT_FOUND", "", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteProblem(w, r, http.StatusMethodNotAllowed, "system/method_not_allowed",
			"Method Not Allowed", "METHOD_NOT_ALLOWED", "", nil)
	})

	r.Get("/healthz", s.handleHealth)

	limited := middleware.RateLimit(middleware.RateLimitConfig{
		RequestLimit: s.cfg.RateLimit,
		WindowSize:   time.Minute,
	})
	r.Route("/api/v1/views", func(r chi.Router) {
		r.Get("/", s.handleListViews)
		r.Post("/", s.handleCreateView)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetView)
			r.Delete("/", s.handleDeleteView)
			r.Get("/events", s.handleEvents)
			r.Get("/frame.jpg", s.handleFrame)
			r.Group(func(r chi.Router) {
				r.Use(limited)
				r.Post("/invoke", s.handleInvoke)
				r.Post("/motion", s.handleMotion)
			})
		})
	})
	return r
}
