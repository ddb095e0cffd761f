// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image/jpeg"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/video360/internal/api/middleware"
	"github.com/ManuGH/video360/internal/orientation"
	"github.com/ManuGH/video360/internal/telemetry"
	"github.com/ManuGH/video360/internal/view"
)

type invokeRequest struct {
	Method    string    `json:"method"`
	Arguments view.Args `json:"arguments"`
}

type invokeResponse struct {
	Result any `json:"result"`
}

// decodeBody reads a single JSON document. Numbers stay json.Number so that
// integral millisecond values are not rounded through float64.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("body must contain a single JSON document")
	}
	return nil
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	v, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req invokeRequest
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}
	if req.Method == "" {
		badRequest(w, r, "method is required")
		return
	}
	trace.SpanFromContext(r.Context()).SetAttributes(telemetry.ViewAttributes(v.ID(), req.Method)...)

	result, err := v.Invoke(r.Context(), req.Method, req.Arguments)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Method == "dispose" {
		// Already disposed; this only drops it from the registry.
		_ = s.registry.Remove(v.ID())
	}
	writeJSON(w, http.StatusOK, invokeResponse{Result: result})
}

type motionSample struct {
	// Timestamp is the sensor time in seconds.
	Timestamp    float64                 `json:"timestamp"`
	Attitude     *orientation.Quaternion `json:"attitude,omitempty"`
	RotationRate orientation.Vec3        `json:"rotationRate"`
	Gravity      orientation.Vec3        `json:"gravity"`
}

// maxMotionTimestamp is 9999-12-31T23:59:59Z in Unix seconds.
const maxMotionTimestamp = 253402300799

type motionRequest struct {
	Samples []motionSample `json:"samples"`
}

func (m motionSample) toSample() (orientation.Sample, error) {
	if math.IsNaN(m.Timestamp) || math.IsInf(m.Timestamp, 0) || m.Timestamp <= 0 || m.Timestamp > maxMotionTimestamp {
		return orientation.Sample{}, fmt.Errorf("timestamp must be a positive number of seconds")
	}
	sec, frac := math.Modf(m.Timestamp)
	return orientation.Sample{
		Timestamp:    time.Unix(int64(sec), int64(frac*float64(time.Second))),
		Attitude:     m.Attitude,
		RotationRate: m.RotationRate,
		Gravity:      m.Gravity,
	}, nil
}

func (s *Server) handleMotion(w http.ResponseWriter, r *http.Request) {
	v, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req motionRequest
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}
	if len(req.Samples) == 0 || len(req.Samples) > maxMotionSamples {
		badRequest(w, r, fmt.Sprintf("samples must hold 1 to %d entries", maxMotionSamples))
		return
	}
	samples := make([]orientation.Sample, 0, len(req.Samples))
	for i, m := range req.Samples {
		smp, err := m.toSample()
		if err != nil {
			badRequest(w, r, fmt.Sprintf("samples[%d]: %v", i, err))
			return
		}
		samples = append(samples, smp)
	}

	accepted := 0
	for _, smp := range samples {
		if !v.PushMotion(smp) {
			break
		}
		accepted++
	}
	if accepted == 0 {
		if v.Disposed() {
			s.writeError(w, r, &view.Failure{Code: "motion", Kind: view.KindDisposed, Message: "view disposed"})
			return
		}
		middleware.WriteProblem(w, r, http.StatusConflict, "view/tracking_disabled", "Conflict",
			"TRACKING_DISABLED", "orientation tracking is off for this view", nil)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]int{"accepted": accepted})
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	v, ok := s.lookup(w, r)
	if !ok {
		return
	}
	quality := s.cfg.FrameQuality
	if raw := r.URL.Query().Get("quality"); raw != "" {
		q, err := strconv.Atoi(raw)
		if err != nil || q < 1 || q > 100 {
			badRequest(w, r, "quality must be an integer between 1 and 100")
			return
		}
		quality = q
	}

	img, err := v.Frame(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
