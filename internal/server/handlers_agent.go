package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/appforge-ai/appforge/internal/event"
	"github.com/appforge-ai/appforge/internal/modelconfig"
	"github.com/appforge-ai/appforge/internal/session"
	"github.com/appforge-ai/appforge/internal/storage"
	"github.com/appforge-ai/appforge/pkg/types"
)

// agentStatusResponse is the GET /agent/{agentID}/status body.
type agentStatusResponse struct {
	AgentID       string `json:"agentId"`
	Status        string `json:"status"`
	Hostname      string `json:"hostname"`
	WebsocketURL  string `json:"websocketUrl"`
	HTTPStatusURL string `json:"httpStatusUrl"`
	TemplateName  string `json:"templateName,omitempty"`
	Created       int64  `json:"created"`
}

// agentStatus handles GET /agent/{agentID}/status.
func (s *Server) agentStatus(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")

	sess, err := s.sessions.Get(r.Context(), agentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "agent not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, agentStatusResponse{
		AgentID:       sess.ID,
		Status:        s.agentState(sess.ID),
		Hostname:      sess.Hostname,
		WebsocketURL:  sess.WebsocketURL,
		HTTPStatusURL: sess.HTTPStatusURL,
		TemplateName:  sess.TemplateName,
		Created:       sess.Time.Created,
	})
}

// getAgent handles GET /agent/{agentID}.
func (s *Server) getAgent(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")

	sess, err := s.sessions.Get(r.Context(), agentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "agent not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// listAgents handles GET /agent, scoped to the requesting user.
func (s *Server) listAgents(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.sessions.List(r.Context(), userID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sessions == nil {
		sessions = []*types.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

// getAgentMessages handles GET /agent/{agentID}/message.
func (s *Server) getAgentMessages(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")

	msgs, err := s.sessions.GetMessages(r.Context(), agentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if msgs == nil {
		msgs = []types.ConversationMessage{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

// sendMessageRequest is the POST /agent/{agentID}/message body.
type sendMessageRequest struct {
	Message string `json:"message"`
}

// turnOutcome is the final frame of the turn stream.
type turnOutcome struct {
	Response        string `json:"response"`
	EnhancedRequest string `json:"enhancedRequest"`
	Error           string `json:"error,omitempty"`
}

// sendAgentMessage handles POST /agent/{agentID}/message. The response
// is a newline-delimited JSON stream of turn events followed by one
// outcome frame.
func (s *Server) sendAgentMessage(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	ctx := r.Context()

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	sess, err := s.sessions.Get(ctx, agentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "agent not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	history, err := s.sessions.GetMessages(ctx, agentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	overrides, err := s.modelStore.Get(ctx, sess.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	infCtx := types.InferenceContext{
		SessionID:             sess.ID,
		UserID:                sess.UserID,
		EnableRealtimeCodeFix: true,
		ModelOverrides:        modelconfig.UserPreferred(overrides),
	}

	stream, err := newNDJSONWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	enc := json.NewEncoder(stream.w)
	result, err := s.processor.Process(ctx, req.Message, history, infCtx, func(ev session.TurnEvent) {
		enc.Encode(ev)
		if ferr := stream.rc.Flush(); ferr != nil {
			stream.flusher.Flush()
		}
	})
	if err != nil {
		// Quota and security violations surface in the final frame; the
		// status line is already sent.
		enc.Encode(turnOutcome{Error: err.Error()})
		stream.flusher.Flush()
		return
	}

	// Persist only the delta this turn appended.
	delta := result.Messages[len(history):]
	if err := s.sessions.AppendMessages(ctx, agentID, delta); err != nil {
		enc.Encode(turnOutcome{Error: err.Error()})
		stream.flusher.Flush()
		return
	}

	if s.bus != nil {
		s.bus.Publish(event.Event{
			Type: event.TurnCompleted,
			Data: event.TurnCompletedData{
				SessionID: agentID,
				TurnID:    turnIDFromMessages(delta),
				Fallback:  result.State == session.TurnFallback,
			},
		})
	}

	enc.Encode(turnOutcome{Response: result.Response, EnhancedRequest: result.EnhancedRequest})
	stream.flusher.Flush()
}

// turnIDFromMessages picks the final assistant message id as the turn's
// reference id for events.
func turnIDFromMessages(delta []types.ConversationMessage) string {
	for i := len(delta) - 1; i >= 0; i-- {
		if delta[i].Role == types.RoleAssistant {
			return delta[i].ID
		}
	}
	return ""
}
