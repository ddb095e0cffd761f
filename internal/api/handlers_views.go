// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/video360/internal/log"
	"github.com/ManuGH/video360/internal/view"
)

type healthResponse struct {
	Status  string `json:"status"`
	Views   int    `json:"views"`
	Version string `json:"version,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Views: s.registry.Len(), Version: s.cfg.Version})
}

type createViewResponse struct {
	ID     string `json:"id"`
	Events string `json:"events"`
}

func viewPath(id string) string { return "/api/v1/views/" + id }

func (s *Server) handleCreateView(w http.ResponseWriter, r *http.Request) {
	v, err := s.registry.Create()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	logger := log.WithContext(r.Context(), s.logger)
	logger.Info().
		Str(log.FieldViewID, v.ID()).
		Str(log.FieldEvent, "view.created").
		Msg("view created")
	w.Header().Set("Location", viewPath(v.ID()))
	writeJSON(w, http.StatusCreated, createViewResponse{ID: v.ID(), Events: viewPath(v.ID()) + "/events"})
}

func (s *Server) handleListViews(w http.ResponseWriter, _ *http.Request) {
	ids := s.registry.IDs()
	slices.Sort(ids)
	writeJSON(w, http.StatusOK, map[string][]string{"views": ids})
}

// lookup resolves the {id} URL parameter or writes a 404.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*view.View, bool) {
	v, err := s.registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return v, true
}

func (s *Server) handleGetView(w http.ResponseWriter, r *http.Request) {
	v, ok := s.lookup(w, r)
	if !ok {
		return
	}
	st, err := v.Status(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleDeleteView(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.registry.Remove(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	logger := log.WithContext(r.Context(), s.logger)
	logger.Info().
		Str(log.FieldViewID, id).
		Str(log.FieldEvent, "view.removed").
		Msg("view removed")
	w.WriteHeader(http.StatusNoContent)
}
