// SPDX-License-Identifier: MIT

// Package daemon assembles the view runtime and manages the lifecycle of the
// HTTP listeners that serve it.
package daemon

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ManuGH/video360/internal/api"
	"github.com/ManuGH/video360/internal/bus"
	"github.com/ManuGH/video360/internal/camera"
	"github.com/ManuGH/video360/internal/config"
	"github.com/ManuGH/video360/internal/log"
	"github.com/ManuGH/video360/internal/media"
	"github.com/ManuGH/video360/internal/orientation"
	"github.com/ManuGH/video360/internal/playback"
	"github.com/ManuGH/video360/internal/render"
	"github.com/ManuGH/video360/internal/resume"
	"github.com/ManuGH/video360/internal/telemetry"
	"github.com/ManuGH/video360/internal/view"
)

// Runtime is the assembled daemon: views, their event bus and the stores
// they share.
type Runtime struct {
	Registry  *view.Registry
	Bus       *bus.MemoryBus
	Resume    resume.Store // nil when resume points are disabled
	Telemetry *telemetry.Provider
	API       *api.Server

	logger zerolog.Logger
}

// ViewOptions maps the configuration onto the options of a new view. It is
// evaluated per view so reloaded settings apply to views created afterwards.
func ViewOptions(cfg config.AppConfig, store resume.Store, b bus.Bus) view.Options {
	prober := media.NewFFProbe(cfg.Media.FFprobeBin, cfg.Media.ProbeTimeout, log.WithComponent("ffprobe"))
	return view.Options{
		Playback: playback.Config{
			ReadinessPollInterval: cfg.Playback.ReadinessPollInterval,
			LoadTimeout:           cfg.Playback.LoadTimeout,
		},
		PublishInterval: cfg.Playback.PublishInterval,
		Camera: camera.Config{
			PanSensitivity:  cfg.Camera.PanSensitivity,
			BlendDuration:   cfg.Camera.BlendDuration,
			TrackingEnabled: cfg.Camera.TrackingEnabled,
		},
		PanIdleTimeout: cfg.Camera.PanIdleTimeout,
		Orientation: orientation.Config{
			SmoothingTimeConstant: cfg.Orientation.SmoothingTimeConstant,
			GyroWeight:            cfg.Orientation.GyroWeight,
			MaxSampleGap:          cfg.Orientation.MaxSampleGap,
		},
		CompassEventRate: cfg.Orientation.CompassEventRate,
		Engines:          media.Factory(prober),
		Grabber:          media.NewFFmpegGrabber(cfg.Media.FFmpegBin, cfg.Media.GrabTimeout),
		Renderer: render.New(render.Config{
			FieldOfView: cfg.Camera.FieldOfView,
			MaxWidth:    cfg.Camera.RenderWidth,
			MaxHeight:   cfg.Camera.RenderHeight,
		}),
		Resume:       store,
		ResumePolicy: resume.DefaultPolicy(),
		Bus:          b,
		Logger:       log.WithComponent("view"),
	}
}

func telemetryConfig(cfg config.AppConfig) telemetry.Config {
	return telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Logging.Service,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	}
}

func openResume(ctx context.Context, cfg config.ResumeConfig) (resume.Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	return resume.Open(ctx, resume.Options{
		Backend: cfg.Backend,
		Path:    cfg.Path,
		TTL:     cfg.TTL,
		Redis: resume.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.TTL,
		},
	})
}

// Bootstrap builds the runtime from the holder's current configuration.
// Resources opened before a failure are released.
func Bootstrap(ctx context.Context, holder *config.Holder) (*Runtime, error) {
	cfg := holder.Get()
	logger := log.WithComponent("daemon")

	tp, err := telemetry.NewProvider(ctx, telemetryConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	store, err := openResume(ctx, cfg.Resume)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, fmt.Errorf("resume store: %w", err)
	}
	if store != nil {
		logger.Info().Str("backend", cfg.Resume.Backend).Msg("resume points enabled")
	}

	b := bus.NewMemoryBus()
	registry := view.NewRegistry(func() view.Options {
		return ViewOptions(holder.Get(), store, b)
	}, cfg.API.MaxViews)

	tracing := ""
	if cfg.Telemetry.Enabled {
		tracing = cfg.Logging.Service + "-api"
	}
	server := api.New(api.Config{
		AllowedOrigins: cfg.API.AllowedOrigins,
		RateLimit:      cfg.API.RateLimit,
		FrameQuality:   cfg.API.FrameQuality,
		TracingService: tracing,
		Version:        cfg.Version,
	}, registry, b)

	return &Runtime{
		Registry:  registry,
		Bus:       b,
		Resume:    store,
		Telemetry: tp,
		API:       server,
		logger:    logger,
	}, nil
}

// Deps wires the runtime into the manager dependencies.
func (rt *Runtime) Deps(cfg config.APIConfig) Deps {
	d := Deps{
		Logger:     rt.logger,
		APIHandler: rt.API.Handler(),
		Drain:      rt.Registry.Close,
	}
	if cfg.MetricsListen != "" {
		d.MetricsHandler = promhttp.Handler()
		d.MetricsAddr = cfg.MetricsListen
	}
	return d
}

// RegisterHooks releases the runtime on shutdown. Hooks run LIFO, so views
// are disposed (flushing their resume points) before the store closes.
func (rt *Runtime) RegisterHooks(m Manager) {
	m.RegisterShutdownHook("telemetry", rt.Telemetry.Shutdown)
	if rt.Resume != nil {
		m.RegisterShutdownHook("resume", func(context.Context) error { return rt.Resume.Close() })
	}
	m.RegisterShutdownHook("views", func(context.Context) error {
		rt.Registry.Close()
		return nil
	})
}

// Close releases the runtime without a manager, e.g. after a failed start.
func (rt *Runtime) Close(ctx context.Context) error {
	rt.Registry.Close()
	var err error
	if rt.Resume != nil {
		err = rt.Resume.Close()
	}
	if tpErr := rt.Telemetry.Shutdown(ctx); err == nil {
		err = tpErr
	}
	return err
}
