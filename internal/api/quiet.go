package api

import (
	"errors"
	"net/http"

	"github.com/shaitools891-svg/ME-Dictionary/internal/quiet"
	"github.com/shaitools891-svg/ME-Dictionary/internal/settings"
)

func (s *Server) getPrayerSettings(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	cfg, err := s.settings.Get(r.Context(), userID)
	if errors.Is(err, settings.ErrNotFound) {
		cfg = settings.Defaults(userID)
		err = s.settings.Save(r.Context(), cfg)
	}
	if err != nil {
		s.fail(w, r, "Failed to get prayer settings", err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) updatePrayerSettings(w http.ResponseWriter, r *http.Request) {
	var patch settings.Patch
	if err := decode(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid prayer settings data")
		return
	}

	updated, err := s.quiet.Apply(r.Context(), r.PathValue("userId"), patch)
	switch {
	case errors.Is(err, settings.ErrUnknownPrayer):
		writeError(w, http.StatusBadRequest, "Invalid prayer settings data")
	case errors.Is(err, quiet.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "Quiet service is shutting down")
	case err != nil:
		s.fail(w, r, "Failed to update prayer settings", err)
	default:
		writeJSON(w, http.StatusOK, updated)
	}
}

func (s *Server) listWatchers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"users": s.quiet.Users()})
}

func (s *Server) getQuiet(w http.ResponseWriter, r *http.Request) {
	view, err := s.quiet.View(r.Context(), r.PathValue("userId"))
	switch {
	case errors.Is(err, quiet.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "Quiet service is shutting down")
	case err != nil:
		s.fail(w, r, "Failed to get quiet status", err)
	default:
		writeJSON(w, http.StatusOK, view)
	}
}

func (s *Server) reloadQuiet(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	if err := s.quiet.Reload(r.Context(), userID); err != nil {
		if errors.Is(err, quiet.ErrClosed) {
			writeError(w, http.StatusServiceUnavailable, "Quiet service is shutting down")
			return
		}
		s.fail(w, r, "Failed to reload quiet settings", err)
		return
	}
	s.getQuiet(w, r)
}

func (s *Server) dismissQuiet(w http.ResponseWriter, r *http.Request) {
	if !s.quiet.Dismiss(r.PathValue("userId")) {
		writeError(w, http.StatusNotFound, "Quiet watcher not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) detachQuiet(w http.ResponseWriter, r *http.Request) {
	if !s.quiet.Detach(r.PathValue("userId")) {
		writeError(w, http.StatusNotFound, "Quiet watcher not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getLatestEvent(w http.ResponseWriter, r *http.Request) {
	if s.publisher == nil {
		writeError(w, http.StatusNotFound, "Status publishing is disabled")
		return
	}

	event, err := s.publisher.Latest(r.Context(), r.PathValue("userId"))
	switch {
	case errors.Is(err, quiet.ErrNoStatus):
		writeError(w, http.StatusNotFound, "No published status")
	case err != nil:
		s.fail(w, r, "Failed to get published status", err)
	default:
		writeJSON(w, http.StatusOK, event)
	}
}
