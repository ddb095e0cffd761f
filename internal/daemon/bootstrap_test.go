// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/video360/internal/bus"
	"github.com/ManuGH/video360/internal/config"
	"github.com/ManuGH/video360/internal/resume"
)

func TestViewOptions_MapsConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Camera.PanSensitivity = 0.01
	cfg.Camera.TrackingEnabled = true
	cfg.Camera.PanIdleTimeout = 2 * time.Second
	cfg.Orientation.GyroWeight = 0.9
	cfg.Orientation.CompassEventRate = 12
	cfg.Playback.PublishInterval = 50 * time.Millisecond

	store := resume.NewMemoryStore()
	b := bus.NewMemoryBus()
	opts := ViewOptions(cfg, store, b)

	assert.Equal(t, 0.01, opts.Camera.PanSensitivity)
	assert.True(t, opts.Camera.TrackingEnabled)
	assert.Equal(t, 2*time.Second, opts.PanIdleTimeout)
	assert.Equal(t, 0.9, opts.Orientation.GyroWeight)
	assert.Equal(t, 12.0, opts.CompassEventRate)
	assert.Equal(t, 50*time.Millisecond, opts.PublishInterval)
	assert.Equal(t, cfg.Playback.LoadTimeout, opts.Playback.LoadTimeout)
	assert.NotNil(t, opts.Engines)
	assert.NotNil(t, opts.Grabber)
	assert.NotNil(t, opts.Renderer)
	assert.Same(t, store, opts.Resume)
	assert.Equal(t, resume.DefaultPolicy(), opts.ResumePolicy)
}

func TestBootstrap_ServesHealth(t *testing.T) {
	cfg := config.Defaults()
	cfg.Resume.Backend = "sqlite"
	cfg.Resume.Path = filepath.Join(t.TempDir(), "resume.db")
	cfg.Version = "test"
	holder := config.NewHolder(cfg, config.NewLoader("", "test"))

	rt, err := Bootstrap(context.Background(), holder)
	require.NoError(t, err)
	defer func() { assert.NoError(t, rt.Close(context.Background())) }()
	require.NotNil(t, rt.Resume)

	deps := rt.Deps(cfg.API)
	require.NoError(t, deps.Validate())
	assert.NotNil(t, deps.MetricsHandler)

	rec := httptest.NewRecorder()
	deps.APIHandler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/views", nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, rt.Registry.Len())

	rec = httptest.NewRecorder()
	deps.APIHandler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 1, body["views"])
	assert.Equal(t, "test", body["version"])
}

func TestBootstrap_ResumeDisabled(t *testing.T) {
	cfg := config.Defaults()
	cfg.Resume.Enabled = false
	cfg.API.MetricsListen = ""
	holder := config.NewHolder(cfg, config.NewLoader("", "test"))

	rt, err := Bootstrap(context.Background(), holder)
	require.NoError(t, err)
	defer func() { assert.NoError(t, rt.Close(context.Background())) }()

	assert.Nil(t, rt.Resume)
	assert.Nil(t, rt.Deps(cfg.API).MetricsHandler)
}

func TestBootstrap_BadResumeBackend(t *testing.T) {
	cfg := config.Defaults()
	cfg.Resume.Backend = "redis"
	cfg.Resume.Redis.Addr = reserveListenAddr(t)
	holder := config.NewHolder(cfg, config.NewLoader("", "test"))

	_, err := Bootstrap(context.Background(), holder)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resume store")
}
