// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// Defaults returns the configuration used when neither file nor ENV set a key.
func Defaults() AppConfig {
	return AppConfig{
		Logging: LoggingConfig{Level: "info", Service: "video360d"},
		API: APIConfig{
			Listen:          ":8360",
			MetricsListen:   ":9360",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    0, // SSE streams stay open
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimit:       600,
			FrameQuality:    85,
		},
		Playback: PlaybackConfig{
			ReadinessPollInterval: 500 * time.Millisecond,
			PublishInterval:       100 * time.Millisecond,
			LoadTimeout:           30 * time.Second,
		},
		Camera: CameraConfig{
			PanSensitivity: 0.005,
			BlendDuration:  250 * time.Millisecond,
			FieldOfView:    75,
			RenderWidth:    1280,
			RenderHeight:   720,
		},
		Orientation: OrientationConfig{
			SmoothingTimeConstant: 8 * time.Millisecond,
			GyroWeight:            0.98,
			MaxSampleGap:          100 * time.Millisecond,
			CompassEventRate:      30,
		},
		Media: MediaConfig{
			FFprobeBin:   "ffprobe",
			FFmpegBin:    "ffmpeg",
			ProbeTimeout: 15 * time.Second,
			GrabTimeout:  10 * time.Second,
		},
		Resume: ResumeConfig{
			Enabled: true,
			Backend: "memory",
			TTL:     30 * 24 * time.Hour,
			Redis:   RedisConfig{Addr: "localhost:6379"},
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
			Environment:  "production",
		},
	}
}
