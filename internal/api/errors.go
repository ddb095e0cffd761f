// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ManuGH/video360/internal/api/middleware"
	"github.com/ManuGH/video360/internal/view"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// statusForKind maps a command failure onto an HTTP status.
func statusForKind(k view.Kind) int {
	switch k {
	case view.KindInvalidArgument, view.KindOutOfBounds:
		return http.StatusUnprocessableEntity
	case view.KindNoSession, view.KindDisposed:
		return http.StatusConflict
	case view.KindNotImplemented:
		return http.StatusNotImplemented
	case view.KindNotReady:
		return http.StatusServiceUnavailable
	case view.KindMediaLoadFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// snake turns "NoSession" into "no_session".
func snake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// writeError renders err as problem+json. Command failures keep their kind
// and method in the body so clients can branch without parsing detail.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var f *view.Failure
	switch {
	case errors.As(err, &f):
		status := statusForKind(f.Kind)
		kind := snake(string(f.Kind))
		if status >= 500 {
			s.logger.Warn().Err(err).Str("kind", string(f.Kind)).Msg("command failed")
		}
		if f.Kind == view.KindNotReady {
			w.Header().Set("Retry-After", "1")
		}
		middleware.WriteProblem(w, r, status, "view/"+kind, http.StatusText(status),
			strings.ToUpper(kind), f.Message, map[string]any{
				"method": f.Code,
				"kind":   string(f.Kind),
			})
	case errors.Is(err, view.ErrNotFound):
		middleware.WriteProblem(w, r, http.StatusNotFound, "view/not_found", "Not Found",
			"VIEW_NOT_FOUND", err.Error(), nil)
	case errors.Is(err, view.ErrLimit), errors.Is(err, view.ErrClosed):
		w.Header().Set("Retry-After", "5")
		middleware.WriteProblem(w, r, http.StatusServiceUnavailable, "view/unavailable", "Service Unavailable",
			"VIEW_UNAVAILABLE", err.Error(), nil)
	default:
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("unhandled request error")
		middleware.WriteProblem(w, r, http.StatusInternalServerError, "system/internal", "Internal Server Error",
			"INTERNAL", "", nil)
	}
}

func badRequest(w http.ResponseWriter, r *http.Request, detail string) {
	middleware.WriteProblem(w, r, http.StatusBadRequest, "request/malformed", "Bad Request",
		"MALFORMED_REQUEST", detail, nil)
}
