package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/appforge-ai/appforge/internal/session"
	"github.com/appforge-ai/appforge/internal/storage"
	"github.com/appforge-ai/appforge/pkg/types"
)

// projectUpdateRequest is the POST /agent/{agentID}/update body,
// reported by the generation agent as the project advances.
type projectUpdateRequest struct {
	Kind types.ProjectUpdateKind `json:"kind"`
	Data map[string]any          `json:"data,omitempty"`
}

// recordProjectUpdate handles POST /agent/{agentID}/update: folds the
// update into the session's project state and injects an internal memo
// into the conversation history.
func (s *Server) recordProjectUpdate(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	ctx := r.Context()

	var req projectUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !req.Kind.Valid() {
		writeError(w, http.StatusBadRequest, "unknown update kind")
		return
	}

	if _, err := s.sessions.Get(ctx, agentID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "agent not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if s.projects != nil {
		if err := s.projects.Record(ctx, agentID, req.Kind, req.Data); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	memos := session.SummarizeProjectUpdate(req.Kind, req.Data)
	if len(memos) > 0 {
		if err := s.sessions.AppendMessages(ctx, agentID, memos); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]int{"recorded": len(memos)})
}
