// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command video360d serves 360° video views over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ManuGH/video360/internal/config"
	"github.com/ManuGH/video360/internal/daemon"
	vlog "github.com/ManuGH/video360/internal/log"
)

var (
	version   = "v0.1.0"
	commit    = "none"
	buildDate = "unknown"
)

// resolveDefaultConfigPath returns ${VIDEO360_DATA}/config.yaml when it exists.
func resolveDefaultConfigPath() string {
	dataDir := strings.TrimSpace(os.Getenv("VIDEO360_DATA"))
	if dataDir == "" {
		return ""
	}
	autoPath := filepath.Join(dataDir, "config.yaml")
	if _, err := os.Stat(autoPath); err == nil {
		return autoPath
	}
	return ""
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "config":
			os.Exit(runConfigCLI(os.Args[2:], os.Stdout, os.Stderr))
		case "healthcheck":
			os.Exit(runHealthcheckCLI(os.Args[2:]))
		}
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Safe defaults until the config is loaded.
	vlog.Configure(vlog.Config{Level: "info", Service: "video360", Version: version})
	logger := vlog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	effectiveConfigPath := strings.TrimSpace(*configPath)
	if effectiveConfigPath == "" {
		effectiveConfigPath = resolveDefaultConfigPath()
	}

	loader := config.NewLoader(effectiveConfigPath, version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str(vlog.FieldEvent, "config.load_failed").
			Str("config_path", effectiveConfigPath).
			Msg("failed to load configuration")
	}

	vlog.Configure(vlog.Config{Level: cfg.Logging.Level, Service: cfg.Logging.Service, Version: cfg.Version})
	logger = vlog.WithComponent("daemon")

	source := "env+defaults"
	if effectiveConfigPath != "" {
		source = "file"
	}
	logger.Info().
		Str(vlog.FieldEvent, "config.loaded").
		Str("source", source).
		Str("path", effectiveConfigPath).
		Msg("loaded configuration")

	logger.Info().
		Str(vlog.FieldEvent, "startup").
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Str("addr", cfg.API.Listen).
		Msg("starting video360d")
	logger.Info().Msgf("→ Resume points: %v (backend: %s)", cfg.Resume.Enabled, cfg.Resume.Backend)
	logger.Info().Msgf("→ Media tools: %s, %s", cfg.Media.FFprobeBin, cfg.Media.FFmpegBin)
	if cfg.API.MaxViews > 0 {
		logger.Info().Msgf("→ View limit: %d", cfg.API.MaxViews)
	}
	if cfg.Telemetry.Enabled {
		logger.Info().Msgf("→ Tracing: %s via %s", cfg.Telemetry.Endpoint, cfg.Telemetry.Exporter)
	}

	holder := config.NewHolder(cfg, loader)

	rt, err := daemon.Bootstrap(ctx, holder)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str(vlog.FieldEvent, "bootstrap.failed").
			Msg("failed to assemble runtime")
	}

	mgr, err := daemon.NewManager(daemon.ServerConfigFrom(cfg.API), rt.Deps(cfg.API))
	if err != nil {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_ = rt.Close(closeCtx)
		cancel()
		logger.Fatal().
			Err(err).
			Str(vlog.FieldEvent, "manager.creation.failed").
			Msg("failed to create daemon manager")
	}
	rt.RegisterHooks(mgr)

	app := daemon.NewApp(logger, mgr, holder)
	if err := app.Run(ctx); err != nil {
		logger.Fatal().
			Err(err).
			Str(vlog.FieldEvent, "manager.failed").
			Msg("daemon app failed")
	}

	logger.Info().Msg("server exiting")
}
