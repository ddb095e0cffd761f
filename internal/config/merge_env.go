// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"sort"
	"strings"
)

// mergeEnvConfig overrides cfg with every VIDEO360_* key that is set.
func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.Logging.Level = l.envString("VIDEO360_LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Service = l.envString("VIDEO360_LOG_SERVICE", cfg.Logging.Service)

	cfg.API.Listen = l.envString("VIDEO360_LISTEN", cfg.API.Listen)
	cfg.API.MetricsListen = l.envString("VIDEO360_METRICS_LISTEN", cfg.API.MetricsListen)
	cfg.API.ReadTimeout = l.envDuration("VIDEO360_API_READ_TIMEOUT", cfg.API.ReadTimeout)
	cfg.API.WriteTimeout = l.envDuration("VIDEO360_API_WRITE_TIMEOUT", cfg.API.WriteTimeout)
	cfg.API.IdleTimeout = l.envDuration("VIDEO360_API_IDLE_TIMEOUT", cfg.API.IdleTimeout)
	cfg.API.ShutdownTimeout = l.envDuration("VIDEO360_SHUTDOWN_TIMEOUT", cfg.API.ShutdownTimeout)
	cfg.API.RateLimit = l.envInt("VIDEO360_RATE_LIMIT", cfg.API.RateLimit)
	cfg.API.MaxViews = l.envInt("VIDEO360_MAX_VIEWS", cfg.API.MaxViews)
	cfg.API.AllowedOrigins = l.envStringList("VIDEO360_ALLOWED_ORIGINS", cfg.API.AllowedOrigins)
	cfg.API.FrameQuality = l.envInt("VIDEO360_FRAME_QUALITY", cfg.API.FrameQuality)

	cfg.Playback.ReadinessPollInterval = l.envDuration("VIDEO360_READINESS_POLL_INTERVAL", cfg.Playback.ReadinessPollInterval)
	cfg.Playback.PublishInterval = l.envDuration("VIDEO360_PUBLISH_INTERVAL", cfg.Playback.PublishInterval)
	cfg.Playback.LoadTimeout = l.envDuration("VIDEO360_LOAD_TIMEOUT", cfg.Playback.LoadTimeout)

	cfg.Camera.PanSensitivity = l.envFloat("VIDEO360_PAN_SENSITIVITY", cfg.Camera.PanSensitivity)
	cfg.Camera.TrackingEnabled = l.envBool("VIDEO360_TRACKING_ENABLED", cfg.Camera.TrackingEnabled)
	cfg.Camera.BlendDuration = l.envDuration("VIDEO360_BLEND_DURATION", cfg.Camera.BlendDuration)
	cfg.Camera.PanIdleTimeout = l.envDuration("VIDEO360_PAN_IDLE_TIMEOUT", cfg.Camera.PanIdleTimeout)
	cfg.Camera.FieldOfView = l.envFloat("VIDEO360_FIELD_OF_VIEW", cfg.Camera.FieldOfView)
	cfg.Camera.RenderWidth = l.envInt("VIDEO360_RENDER_WIDTH", cfg.Camera.RenderWidth)
	cfg.Camera.RenderHeight = l.envInt("VIDEO360_RENDER_HEIGHT", cfg.Camera.RenderHeight)

	cfg.Orientation.SmoothingTimeConstant = l.envDuration("VIDEO360_SMOOTHING_TIME_CONSTANT", cfg.Orientation.SmoothingTimeConstant)
	cfg.Orientation.GyroWeight = l.envFloat("VIDEO360_GYRO_WEIGHT", cfg.Orientation.GyroWeight)
	cfg.Orientation.MaxSampleGap = l.envDuration("VIDEO360_MAX_SAMPLE_GAP", cfg.Orientation.MaxSampleGap)
	cfg.Orientation.CompassEventRate = l.envFloat("VIDEO360_COMPASS_EVENT_RATE", cfg.Orientation.CompassEventRate)

	cfg.Media.FFprobeBin = l.envString("VIDEO360_FFPROBE_BIN", cfg.Media.FFprobeBin)
	cfg.Media.FFmpegBin = l.envString("VIDEO360_FFMPEG_BIN", cfg.Media.FFmpegBin)
	cfg.Media.ProbeTimeout = l.envDuration("VIDEO360_PROBE_TIMEOUT", cfg.Media.ProbeTimeout)
	cfg.Media.GrabTimeout = l.envDuration("VIDEO360_GRAB_TIMEOUT", cfg.Media.GrabTimeout)

	cfg.Resume.Enabled = l.envBool("VIDEO360_RESUME_ENABLED", cfg.Resume.Enabled)
	cfg.Resume.Backend = l.envString("VIDEO360_RESUME_BACKEND", cfg.Resume.Backend)
	cfg.Resume.Path = l.envString("VIDEO360_RESUME_PATH", cfg.Resume.Path)
	cfg.Resume.TTL = l.envDuration("VIDEO360_RESUME_TTL", cfg.Resume.TTL)
	cfg.Resume.Redis.Addr = l.envString("VIDEO360_REDIS_ADDR", cfg.Resume.Redis.Addr)
	cfg.Resume.Redis.Password = l.envString("VIDEO360_REDIS_PASSWORD", cfg.Resume.Redis.Password)
	cfg.Resume.Redis.DB = l.envInt("VIDEO360_REDIS_DB", cfg.Resume.Redis.DB)

	cfg.Telemetry.Enabled = l.envBool("VIDEO360_TRACING_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = l.envString("VIDEO360_TRACING_EXPORTER", cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = l.envString("VIDEO360_TRACING_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = l.envFloat("VIDEO360_TRACING_SAMPLING_RATE", cfg.Telemetry.SamplingRate)
	cfg.Telemetry.Environment = l.envString("VIDEO360_ENVIRONMENT", cfg.Telemetry.Environment)
}

// UnknownEnvKeys lists VIDEO360_* variables in the environment that the last
// Load did not consume; usually a typo.
func (l *Loader) UnknownEnvKeys() []string {
	var unknown []string
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		if _, ok := l.ConsumedEnvKeys[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	return unknown
}
