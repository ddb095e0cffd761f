// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// AppConfig is the effective daemon configuration.
type AppConfig struct {
	// Version is set from the binary, never from file or ENV.
	Version string `yaml:"-"`

	Logging     LoggingConfig     `yaml:"logging"`
	API         APIConfig         `yaml:"api"`
	Playback    PlaybackConfig    `yaml:"playback"`
	Camera      CameraConfig      `yaml:"camera"`
	Orientation OrientationConfig `yaml:"orientation"`
	Media       MediaConfig       `yaml:"media"`
	Resume      ResumeConfig      `yaml:"resume"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
}

type LoggingConfig struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
}

type APIConfig struct {
	Listen          string        `yaml:"listen"`
	MetricsListen   string        `yaml:"metricsListen"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// RateLimit is requests per minute per client IP on the invoke and
	// motion endpoints. Zero disables limiting.
	RateLimit int `yaml:"rateLimit"`
	// MaxViews caps concurrently open views. Zero means unlimited.
	MaxViews int `yaml:"maxViews"`
	// AllowedOrigins lists CORS origins; "*" allows any.
	AllowedOrigins []string `yaml:"allowedOrigins"`
	// FrameQuality is the JPEG quality of rendered viewport frames.
	FrameQuality int `yaml:"frameQuality"`
}

type PlaybackConfig struct {
	ReadinessPollInterval time.Duration `yaml:"readinessPollInterval"`
	PublishInterval       time.Duration `yaml:"publishInterval"`
	LoadTimeout           time.Duration `yaml:"loadTimeout"`
}

type CameraConfig struct {
	PanSensitivity  float64       `yaml:"panSensitivity"`
	TrackingEnabled bool          `yaml:"trackingEnabled"`
	BlendDuration   time.Duration `yaml:"blendDuration"`
	// PanIdleTimeout ends a pan when no update arrives for this long. Zero disables it.
	PanIdleTimeout time.Duration `yaml:"panIdleTimeout"`
	FieldOfView    float64       `yaml:"fieldOfView"`
	RenderWidth    int           `yaml:"renderWidth"`
	RenderHeight   int           `yaml:"renderHeight"`
}

type OrientationConfig struct {
	SmoothingTimeConstant time.Duration `yaml:"smoothingTimeConstant"`
	GyroWeight            float64       `yaml:"gyroWeight"`
	MaxSampleGap          time.Duration `yaml:"maxSampleGap"`
	// CompassEventRate caps updateCompassAngle events per second.
	CompassEventRate float64 `yaml:"compassEventRate"`
}

type MediaConfig struct {
	FFprobeBin   string        `yaml:"ffprobeBin"`
	FFmpegBin    string        `yaml:"ffmpegBin"`
	ProbeTimeout time.Duration `yaml:"probeTimeout"`
	GrabTimeout  time.Duration `yaml:"grabTimeout"`
}

type ResumeConfig struct {
	Enabled bool `yaml:"enabled"`
	// Backend is one of memory, sqlite, badger, redis.
	Backend string        `yaml:"backend"`
	Path    string        `yaml:"path"`
	TTL     time.Duration `yaml:"ttl"`
	Redis   RedisConfig   `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
	Environment  string  `yaml:"environment"`
}
