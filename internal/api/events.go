// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ManuGH/video360/internal/api/middleware"
	"github.com/ManuGH/video360/internal/log"
	"github.com/ManuGH/video360/internal/view"
)

// handleEvents streams view events as Server-Sent Events until the client
// goes away or the view is disposed. Slow clients lose events; the view
// never waits for them.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	v, ok := s.lookup(w, r)
	if !ok {
		return
	}
	sub, err := s.bus.Subscribe(r.Context(), v.Topic())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer func() { _ = sub.Close() }()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Accel-Buffering", "no")

	rc := http.NewResponseController(w)
	// Nothing is written when the writer cannot flush.
	if err := rc.Flush(); err != nil {
		middleware.WriteProblem(w, r, http.StatusInternalServerError, "system/streaming_unsupported",
			"Internal Server Error", "STREAMING_UNSUPPORTED", "", nil)
		return
	}
	// Server write timeouts would cut the stream.
	_ = rc.SetWriteDeadline(time.Time{})
	_, _ = fmt.Fprint(w, ": connected\n\n")
	_ = rc.Flush()

	logger := log.WithContext(r.Context(), s.logger).With().Str(log.FieldViewID, v.ID()).Logger()
	logger.Debug().Str(log.FieldEvent, "events.subscribed").Msg("event stream opened")
	defer logger.Debug().Str(log.FieldEvent, "events.closed").Msg("event stream closed")

	heartbeat := time.NewTicker(s.cfg.Heartbeat)
	defer heartbeat.Stop()

	var seq uint64
	for {
		select {
		case <-r.Context().Done():
			return
		case <-v.Done():
			_, _ = fmt.Fprint(w, "event: disposed\ndata: {}\n\n")
			_ = rc.Flush()
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case msg, ok := <-sub.C():
			if !ok {
				return
			}
			ev, ok := msg.(view.Event)
			if !ok {
				continue
			}
			data, err := json.Marshal(ev.Data)
			if err != nil {
				logger.Warn().Err(err).Str("event_name", ev.Name).Msg("dropping unencodable event")
				continue
			}
			seq++
			if _, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", seq, ev.Name, data); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
