// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"time"

	"github.com/ManuGH/video360/internal/validate"
)

var resumeBackends = []string{"memory", "sqlite", "badger", "redis"}

// Validate checks the effective configuration and reports every problem at once.
func Validate(cfg AppConfig) error {
	v := validate.New()

	if _, err := validate.ParseLogLevel(cfg.Logging.Level); err != nil {
		v.AddError("logging.level", err.Error(), cfg.Logging.Level)
	}

	v.ListenAddr("api.listen", cfg.API.Listen)
	if cfg.API.MetricsListen != "" {
		v.ListenAddr("api.metricsListen", cfg.API.MetricsListen)
	}
	v.DurationRange("api.shutdownTimeout", cfg.API.ShutdownTimeout, time.Second, 5*time.Minute)
	v.Range("api.rateLimit", cfg.API.RateLimit, 0, 1_000_000)
	v.Range("api.maxViews", cfg.API.MaxViews, 0, 100_000)
	v.Range("api.frameQuality", cfg.API.FrameQuality, 1, 100)

	v.DurationRange("playback.readinessPollInterval", cfg.Playback.ReadinessPollInterval, 10*time.Millisecond, time.Minute)
	v.DurationRange("playback.publishInterval", cfg.Playback.PublishInterval, 10*time.Millisecond, 10*time.Second)
	v.DurationRange("playback.loadTimeout", cfg.Playback.LoadTimeout, time.Second, 10*time.Minute)

	v.RangeFloat("camera.panSensitivity", cfg.Camera.PanSensitivity, 1e-6, 1)
	v.DurationRange("camera.blendDuration", cfg.Camera.BlendDuration, 0, 10*time.Second)
	v.DurationRange("camera.panIdleTimeout", cfg.Camera.PanIdleTimeout, 0, time.Minute)
	v.RangeFloat("camera.fieldOfView", cfg.Camera.FieldOfView, 10, 170)
	v.Range("camera.renderWidth", cfg.Camera.RenderWidth, 16, 7680)
	v.Range("camera.renderHeight", cfg.Camera.RenderHeight, 16, 4320)

	v.DurationRange("orientation.smoothingTimeConstant", cfg.Orientation.SmoothingTimeConstant, 0, time.Second)
	v.RangeFloat("orientation.gyroWeight", cfg.Orientation.GyroWeight, 0, 1)
	v.DurationRange("orientation.maxSampleGap", cfg.Orientation.MaxSampleGap, time.Millisecond, 10*time.Second)
	v.RangeFloat("orientation.compassEventRate", cfg.Orientation.CompassEventRate, 0.1, 1000)

	v.NotEmpty("media.ffprobeBin", cfg.Media.FFprobeBin)
	v.NotEmpty("media.ffmpegBin", cfg.Media.FFmpegBin)
	v.DurationRange("media.probeTimeout", cfg.Media.ProbeTimeout, time.Second, 5*time.Minute)
	v.DurationRange("media.grabTimeout", cfg.Media.GrabTimeout, time.Second, 5*time.Minute)

	if cfg.Resume.Enabled {
		v.OneOf("resume.backend", cfg.Resume.Backend, resumeBackends)
		switch cfg.Resume.Backend {
		case "sqlite":
			v.NotEmpty("resume.path", cfg.Resume.Path)
		case "redis":
			v.HostPort("resume.redis.addr", cfg.Resume.Redis.Addr)
			v.Range("resume.redis.db", cfg.Resume.Redis.DB, 0, 15)
		}
	}

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		v.RangeFloat("telemetry.samplingRate", cfg.Telemetry.SamplingRate, 0, 1)
	}

	return v.Err()
}
