// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/video360/internal/bus"
	"github.com/ManuGH/video360/internal/camera"
	"github.com/ManuGH/video360/internal/orientation"
	"github.com/ManuGH/video360/internal/playback"
	"github.com/ManuGH/video360/internal/playback/testkit"
	"github.com/ManuGH/video360/internal/render"
	"github.com/ManuGH/video360/internal/view"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var testInfo = playback.MediaInfo{Duration: 20 * time.Second, Width: 3840, Height: 1920, Projection: "equirectangular"}

type solidGrabber struct{}

func (solidGrabber) Grab(context.Context, playback.Source, time.Duration) (image.Image, error) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 32))
	for x := 0; x < 64; x++ {
		for y := 0; y < 32; y++ {
			img.Set(x, y, color.RGBA{G: 180, A: 255})
		}
	}
	return img, nil
}

type harness struct {
	t   *testing.T
	ts  *httptest.Server
	reg *view.Registry
}

func newHarness(t *testing.T, maxViews int) *harness {
	t.Helper()
	b := bus.NewMemoryBusWithBuffer(256)
	var engines []*testkit.FakeEngine
	reg := view.NewRegistry(func() view.Options {
		return view.Options{
			Playback:        playback.Config{ReadinessPollInterval: 5 * time.Millisecond, LoadTimeout: time.Second},
			PublishInterval: 10 * time.Millisecond,
			Camera:          camera.DefaultConfig(),
			Orientation:     orientation.DefaultConfig(),
			Engines:         testkit.Factory(testInfo, &engines),
			Grabber:         solidGrabber{},
			Renderer:        render.New(render.DefaultConfig()),
			Bus:             b,
			Logger:          zerolog.Nop(),
		}
	}, maxViews)
	srv := New(Config{RateLimit: 0, Heartbeat: 20 * time.Millisecond, Version: "test"}, reg, b)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		reg.Close()
	})
	return &harness{t: t, ts: ts, reg: reg}
}

func (h *harness) do(method, path string, body any) (*http.Response, map[string]any) {
	h.t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		rdr = bytes.NewReader(raw)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, h.ts.URL+path, rdr)
	require.NoError(h.t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := h.ts.Client().Do(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()

	var out map[string]any
	if strings.Contains(resp.Header.Get("Content-Type"), "json") {
		require.NoError(h.t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func (h *harness) create() string {
	h.t.Helper()
	resp, body := h.do(http.MethodPost, "/api/v1/views", nil)
	require.Equal(h.t, http.StatusCreated, resp.StatusCode)
	id, _ := body["id"].(string)
	require.NotEmpty(h.t, id)
	assert.Equal(h.t, "/api/v1/views/"+id, resp.Header.Get("Location"))
	return id
}

func (h *harness) invoke(id, method string, args map[string]any) (*http.Response, map[string]any) {
	h.t.Helper()
	return h.do(http.MethodPost, "/api/v1/views/"+id+"/invoke", map[string]any{"method": method, "arguments": args})
}

func initArgs(autoplay bool) map[string]any {
	return map[string]any{
		"url":        "https://media.example.com/tour.mp4",
		"headers":    map[string]any{},
		"isAutoPlay": autoplay,
		"isRepeat":   false,
		"width":      640,
		"height":     360,
	}
}

func (h *harness) waitLoaded(id string) {
	h.t.Helper()
	require.Eventually(h.t, func() bool {
		_, st := h.do(http.MethodGet, "/api/v1/views/"+id, nil)
		d, _ := st["durationMillis"].(float64)
		return d == 20000
	}, 2*time.Second, 5*time.Millisecond)
}

func TestHealthz(t *testing.T) {
	h := newHarness(t, 0)
	h.create()
	resp, body := h.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 1, body["views"])
	assert.Equal(t, "test", body["version"])
}

func TestViews_CreateListDelete(t *testing.T) {
	h := newHarness(t, 0)
	a, b := h.create(), h.create()

	_, body := h.do(http.MethodGet, "/api/v1/views", nil)
	assert.ElementsMatch(t, []any{a, b}, body["views"])

	resp, _ := h.do(http.MethodDelete, "/api/v1/views/"+a, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = h.do(http.MethodDelete, "/api/v1/views/"+a, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "VIEW_NOT_FOUND", body["code"])
	assert.Equal(t, 1, h.reg.Len())
}

func TestViews_LimitReached(t *testing.T) {
	h := newHarness(t, 1)
	h.create()
	resp, body := h.do(http.MethodPost, "/api/v1/views", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "VIEW_UNAVAILABLE", body["code"])
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestInvoke_InitPlayStatus(t *testing.T) {
	h := newHarness(t, 0)
	id := h.create()

	resp, body := h.invoke(id, "init", initArgs(false))
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Contains(t, body, "result")
	h.waitLoaded(id)

	resp, _ = h.invoke(id, "play", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Eventually(t, func() bool {
		_, st := h.do(http.MethodGet, "/api/v1/views/"+id, nil)
		return st["isPlaying"] == true
	}, 2*time.Second, 5*time.Millisecond)

	resp, _ = h.invoke(id, "seekTo", map[string]any{"millisecond": 5000, "autoplay": true})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestInvoke_FailureMapping(t *testing.T) {
	h := newHarness(t, 0)
	id := h.create()

	tests := []struct {
		name   string
		method string
		args   map[string]any
		status int
		kind   string
	}{
		{"unknown method", "rewind", nil, http.StatusNotImplemented, "NotImplemented"},
		{"missing argument", "seekTo", nil, http.StatusUnprocessableEntity, "InvalidArgument"},
		{"no session", "play", nil, http.StatusConflict, "NoSession"},
		{"bad viewport", "resize", map[string]any{"width": -1, "height": 10}, http.StatusUnprocessableEntity, "InvalidArgument"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := h.invoke(id, tt.method, tt.args)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))
			assert.Equal(t, tt.kind, body["kind"])
			assert.Equal(t, tt.method, body["method"])
			assert.NotEmpty(t, body["requestId"])
		})
	}
}

func TestInvoke_MalformedBody(t *testing.T) {
	h := newHarness(t, 0)
	id := h.create()

	for _, raw := range []string{`{`, `{"method":"play","extra":1}`, `{"arguments":{}}`, `{"method":"play"}{}`} {
		resp, err := h.ts.Client().Post(h.ts.URL+"/api/v1/views/"+id+"/invoke", "application/json", strings.NewReader(raw))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, raw)
	}
}

func TestInvoke_UnknownView(t *testing.T) {
	h := newHarness(t, 0)
	resp, body := h.invoke("missing", "play", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "view/not_found", body["type"])
}

func TestInvoke_DisposeRemovesView(t *testing.T) {
	h := newHarness(t, 0)
	id := h.create()

	resp, _ := h.invoke(id, "dispose", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, h.reg.Len())

	resp, _ = h.invoke(id, "play", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEvents_StreamsUpdateTime(t *testing.T) {
	h := newHarness(t, 0)
	id := h.create()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.ts.URL+"/api/v1/views/"+id+"/events", nil)
	require.NoError(t, err)
	resp, err := h.ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	r, _ := h.invoke(id, "init", initArgs(true))
	require.Equal(t, http.StatusOK, r.StatusCode)

	sc := bufio.NewScanner(resp.Body)
	var event, data string
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
		if event == view.EventUpdateTime && data != "" {
			break
		}
	}
	require.Equal(t, view.EventUpdateTime, event)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(data), &payload))
	assert.EqualValues(t, 20000, payload["total"])
	assert.Contains(t, payload, "compassAngle")
}

func TestEvents_EndsOnDispose(t *testing.T) {
	h := newHarness(t, 0)
	id := h.create()

	resp, err := h.ts.Client().Get(h.ts.URL + "/api/v1/views/" + id + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()

	del, _ := h.do(http.MethodDelete, "/api/v1/views/"+id, nil)
	require.Equal(t, http.StatusNoContent, del.StatusCode)

	sc := bufio.NewScanner(resp.Body)
	var sawDisposed bool
	for sc.Scan() {
		if sc.Text() == "event: disposed" {
			sawDisposed = true
		}
	}
	assert.True(t, sawDisposed)
}

func TestMotion(t *testing.T) {
	h := newHarness(t, 0)
	id := h.create()
	samples := map[string]any{"samples": []map[string]any{
		{"timestamp": 1.0, "rotationRate": map[string]float64{"x": 0, "y": 0.1, "z": 0}, "gravity": map[string]float64{"x": 0, "y": 0, "z": -1}},
		{"timestamp": 1.01, "rotationRate": map[string]float64{"x": 0, "y": 0.1, "z": 0}, "gravity": map[string]float64{"x": 0, "y": 0, "z": -1}},
	}}

	resp, body := h.do(http.MethodPost, "/api/v1/views/"+id+"/motion", samples)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "TRACKING_DISABLED", body["code"])

	r, _ := h.invoke(id, "setOrientationTracking", map[string]any{"enabled": true})
	require.Equal(t, http.StatusOK, r.StatusCode)

	resp, body = h.do(http.MethodPost, "/api/v1/views/"+id+"/motion", samples)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.EqualValues(t, 2, body["accepted"])

	resp, _ = h.do(http.MethodPost, "/api/v1/views/"+id+"/motion", map[string]any{"samples": []map[string]any{{"timestamp": -1}}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = h.do(http.MethodPost, "/api/v1/views/"+id+"/motion", map[string]any{"samples": []map[string]any{{"timestamp": 1e300}}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "timestamps past year 9999 are rejected, not wrapped")

	resp, _ = h.do(http.MethodPost, "/api/v1/views/"+id+"/motion", map[string]any{"samples": []any{}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFrame(t *testing.T) {
	h := newHarness(t, 0)
	id := h.create()

	resp, body := h.do(http.MethodGet, "/api/v1/views/"+id+"/frame.jpg", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "NoSession", body["kind"])

	r, _ := h.invoke(id, "init", initArgs(false))
	require.Equal(t, http.StatusOK, r.StatusCode)
	h.waitLoaded(id)

	resp, err := h.ts.Client().Get(h.ts.URL + "/api/v1/views/" + id + "/frame.jpg?quality=60")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))

	img, err := jpeg.Decode(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 640, 360), img.Bounds())

	bad, _ := h.do(http.MethodGet, "/api/v1/views/"+id+"/frame.jpg?quality=0", nil)
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestStatusForKind(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, statusForKind(view.KindNotReady))
	assert.Equal(t, http.StatusBadGateway, statusForKind(view.KindMediaLoadFailure))
	assert.Equal(t, http.StatusInternalServerError, statusForKind(view.KindInternal))
	assert.Equal(t, "media_load_failure", snake(string(view.KindMediaLoadFailure)))
}
