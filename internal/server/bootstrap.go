package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/appforge-ai/appforge/internal/actor"
	"github.com/appforge-ai/appforge/internal/apperr"
	"github.com/appforge-ai/appforge/internal/event"
	"github.com/appforge-ai/appforge/internal/logging"
	"github.com/appforge-ai/appforge/internal/modelconfig"
	"github.com/appforge-ai/appforge/internal/quota"
	"github.com/appforge-ai/appforge/internal/session"
	"github.com/appforge-ai/appforge/pkg/types"
)

// Request defaults applied during bootstrap.
const (
	defaultLanguage  = "typescript"
	defaultTemplate  = "auto"
	defaultAgentMode = "deterministic"
)

var defaultFrameworks = []string{"react", "vite"}

// bootstrapMessage is the human-readable status in the first stream event.
const bootstrapMessage = "Your application is being generated. Connect to the websocket for realtime updates, or poll the status URL."

// bootstrapRequest is the POST /agent body.
type bootstrapRequest struct {
	Query            string   `json:"query"`
	Language         string   `json:"language,omitempty"`
	Frameworks       []string `json:"frameworks,omitempty"`
	SelectedTemplate string   `json:"selectedTemplate,omitempty"`
	AgentMode        string   `json:"agentMode,omitempty"`
}

func (b *bootstrapRequest) applyDefaults() {
	if b.Language == "" {
		b.Language = defaultLanguage
	}
	if len(b.Frameworks) == 0 {
		b.Frameworks = append([]string(nil), defaultFrameworks...)
	}
	if b.SelectedTemplate == "" {
		b.SelectedTemplate = defaultTemplate
	}
	if b.AgentMode == "" {
		b.AgentMode = defaultAgentMode
	}
}

// bootstrapAgent handles POST /agent. It validates the request, enforces
// quota, allocates the session and streams progress events until agent
// initialization settles.
func (s *Server) bootstrapAgent(w http.ResponseWriter, r *http.Request) {
	log := logging.Component("bootstrap")
	ctx := r.Context()

	var req bootstrapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	req.applyDefaults()

	uid := userID(r)

	// Quota runs before any session resource is allocated.
	policy := quota.SessionCreationPolicy(s.appConfig.Quota.SessionsPerHour)
	if err := s.quotaGate.Enforce(ctx, policy, uid); err != nil {
		var quotaErr *apperr.QuotaExceededError
		if errors.As(err, &quotaErr) {
			writeError(w, http.StatusTooManyRequests, quotaErr.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	sessionID := session.NewSessionID()

	// Model overrides and the agent handle are fetched together.
	var (
		overrides map[string]types.ModelOverride
		handle    actor.Handle
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		overrides, err = s.modelStore.Get(gctx, uid)
		return err
	})
	g.Go(func() error {
		var err error
		handle, err = s.dialer.Dial(gctx, sessionID)
		return err
	})
	if err := g.Wait(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	infCtx := types.InferenceContext{
		SessionID:             sessionID,
		UserID:                uid,
		EnableRealtimeCodeFix: true,
		ModelOverrides:        modelconfig.UserPreferred(overrides),
	}

	tpl, err := s.templates.Resolve(ctx, req.Query, req.SelectedTemplate, req.Language, req.Frameworks)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sandboxSessionID := uuid.NewString()

	sess := &types.Session{
		ID:               sessionID,
		UserID:           uid,
		Query:            req.Query,
		Language:         req.Language,
		Frameworks:       req.Frameworks,
		SelectedTemplate: req.SelectedTemplate,
		AgentMode:        req.AgentMode,
		Hostname:         s.hostname(sessionID),
		WebsocketURL:     s.websocketURL(sessionID),
		HTTPStatusURL:    s.statusURL(sessionID),
		SandboxSessionID: sandboxSessionID,
		TemplateName:     tpl.Name,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.setAgentState(sessionID, agentStateInitializing)

	// Past this point the response is a live stream; failures no longer
	// reach the HTTP status line.
	stream, err := newNDJSONWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := stream.WriteEvent(types.StreamEvent{
		Message:       bootstrapMessage,
		AgentID:       sessionID,
		WebsocketURL:  sess.WebsocketURL,
		HTTPStatusURL: sess.HTTPStatusURL,
		Template:      tpl.Summary(),
	}); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("client gone before first event")
	}

	chunks := make(chan string, 64)
	settled := make(chan struct{})

	initCfg := actor.InitConfig{
		Query:            req.Query,
		Language:         req.Language,
		Frameworks:       req.Frameworks,
		Hostname:         sess.Hostname,
		InferenceContext: infCtx,
		TemplateInfo:     tpl,
		SandboxSessionID: sandboxSessionID,
		OnBlueprintChunk: func(chunk string) {
			chunks <- chunk
		},
	}

	// Initialization runs on the server's task group, not the request
	// context: its lifetime is decoupled from the HTTP response.
	mode := req.AgentMode
	s.tasks.Go(func() error {
		defer close(settled)

		_, initErr := handle.Initialize(s.tasksCtx, initCfg, mode)
		if initErr != nil {
			log.Error().Err(initErr).Str("session_id", sessionID).Msg("agent initialization failed")
			s.setAgentState(sessionID, agentStateFailed)
		} else {
			s.setAgentState(sessionID, agentStateReady)
		}

		if s.bus != nil {
			data := event.SessionBootstrappedData{SessionID: sessionID}
			if initErr != nil {
				data.Err = initErr.Error()
			}
			s.bus.Publish(event.Event{Type: event.SessionBootstrapped, Data: data})
		}
		return nil
	})

	// Relay chunks until initialization settles, then drain and terminate.
	for {
		select {
		case chunk := <-chunks:
			s.relayChunk(stream, chunk)
		case <-settled:
			for {
				select {
				case chunk := <-chunks:
					s.relayChunk(stream, chunk)
				default:
					stream.WriteEvent(types.TerminateEvent)
					return
				}
			}
		}
	}
}

func (s *Server) relayChunk(stream *ndjsonWriter, chunk string) {
	stream.WriteEvent(types.StreamEvent{Chunk: chunk})
}
