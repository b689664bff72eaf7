package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/wildtrace/wildtrace-go/internal/progress"
)

// handleHealth reports liveness plus the coordinator channel state, so load
// balancers and the dashboard can tell "up but reconnecting" from "down".
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	view := s.app.Sync.Tracker().View()
	RespondWithJSON(w, http.StatusOK, map[string]string{
		"status":     "ok",
		"connection": string(view.Connection),
	})
}

func (s *Server) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, map[string]string{"version": s.app.Version})
}

// handleTrackInvestigation starts synchronizing the given investigation.
func (s *Server) handleTrackInvestigation(w http.ResponseWriter, r *http.Request) {
	investigationID := chi.URLParam(r, "investigationID")
	if investigationID == "" {
		RespondWithError(w, http.StatusBadRequest, "Missing investigation ID")
		return
	}

	if err := s.app.Sync.Track(investigationID); err != nil {
		switch {
		case errors.Is(err, progress.ErrNoCredential):
			RespondWithError(w, http.StatusServiceUnavailable, "Coordinator credential not configured")
		case errors.Is(err, progress.ErrNoInvestigation):
			RespondWithError(w, http.StatusBadRequest, "Missing investigation ID")
		default:
			RespondWithError(w, http.StatusInternalServerError, "Could not start tracking")
		}
		return
	}

	RespondWithJSON(w, http.StatusOK, s.app.Sync.Tracker().View())
}

// handleUntrackInvestigation stops synchronizing and clears engine state.
func (s *Server) handleUntrackInvestigation(w http.ResponseWriter, r *http.Request) {
	s.app.Sync.Untrack()
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "untracked"})
}

// handleGetProgress returns the derived read-only view of the tracked
// investigation.
func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	investigationID := chi.URLParam(r, "investigationID")
	view := s.app.Sync.Tracker().View()
	if view.InvestigationID == "" || view.InvestigationID != investigationID {
		RespondWithError(w, http.StatusNotFound, "Investigation not tracked")
		return
	}
	RespondWithJSON(w, http.StatusOK, view)
}

// handleGetSubagent returns the detail record of one subagent.
func (s *Server) handleGetSubagent(w http.ResponseWriter, r *http.Request) {
	investigationID := chi.URLParam(r, "investigationID")
	tracker := s.app.Sync.Tracker()
	if tracker.InvestigationID() != investigationID {
		RespondWithError(w, http.StatusNotFound, "Investigation not tracked")
		return
	}
	agent, ok := tracker.Subagent(chi.URLParam(r, "subagentID"))
	if !ok {
		RespondWithError(w, http.StatusNotFound, "Subagent not found")
		return
	}
	RespondWithJSON(w, http.StatusOK, agent)
}

// handleGetEnsemble returns the full per-model breakdown of the scoring
// ensemble.
func (s *Server) handleGetEnsemble(w http.ResponseWriter, r *http.Request) {
	investigationID := chi.URLParam(r, "investigationID")
	tracker := s.app.Sync.Tracker()
	if tracker.InvestigationID() != investigationID {
		RespondWithError(w, http.StatusNotFound, "Investigation not tracked")
		return
	}
	RespondWithJSON(w, http.StatusOK, tracker.EnsembleMembers())
}
