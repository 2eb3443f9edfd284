// Package actor provides the handle to the stateful code-generation
// agent. The server talks to the agent exclusively through Handle; the
// local implementation stands in where no remote actor runtime is
// deployed.
package actor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/appforge-ai/appforge/internal/event"
	"github.com/appforge-ai/appforge/internal/logging"
	"github.com/appforge-ai/appforge/pkg/types"
)

// InitConfig carries everything the agent needs to start generating a
// project. OnBlueprintChunk is invoked once per blueprint fragment, in
// order, before Initialize returns.
type InitConfig struct {
	Query            string
	Language         string
	Frameworks       []string
	Hostname         string
	InferenceContext types.InferenceContext
	OnBlueprintChunk func(chunk string)
	TemplateInfo     *types.TemplateInfo
	SandboxSessionID string
}

// GenerationState is the agent's final report for an initialization run.
type GenerationState struct {
	RunID       string    `json:"runId"`
	SessionID   string    `json:"sessionId"`
	Status      string    `json:"status"`
	Files       []string  `json:"files"`
	CompletedAt time.Time `json:"completedAt"`
}

// Handle is a session-scoped connection to the code-generation agent.
type Handle interface {
	Initialize(ctx context.Context, cfg InitConfig, mode string) (*GenerationState, error)
}

// Dialer obtains the agent handle for a session.
type Dialer interface {
	Dial(ctx context.Context, sessionID string) (Handle, error)
}

// LocalDialer hands out in-process handles. It is the default wiring
// for single-node deployments and tests.
type LocalDialer struct {
	bus *event.Bus
}

// NewLocalDialer creates a LocalDialer publishing on the given bus.
func NewLocalDialer(bus *event.Bus) *LocalDialer {
	return &LocalDialer{bus: bus}
}

// Dial implements Dialer.
func (d *LocalDialer) Dial(ctx context.Context, sessionID string) (Handle, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session id required")
	}
	return &localHandle{sessionID: sessionID, bus: d.bus}, nil
}

type localHandle struct {
	sessionID string
	bus       *event.Bus
}

// Initialize implements Handle. The local agent derives a short
// blueprint from the request and streams it through the chunk callback
// before reporting a completed state.
func (h *localHandle) Initialize(ctx context.Context, cfg InitConfig, mode string) (*GenerationState, error) {
	if cfg.Query == "" {
		return nil, fmt.Errorf("query required")
	}
	if cfg.TemplateInfo == nil {
		return nil, fmt.Errorf("template info required")
	}

	log := logging.Component("actor")
	log.Info().
		Str("session_id", h.sessionID).
		Str("mode", mode).
		Str("template", cfg.TemplateInfo.Name).
		Msg("initializing generation agent")

	for _, chunk := range blueprintChunks(cfg) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if cfg.OnBlueprintChunk != nil {
			cfg.OnBlueprintChunk(chunk)
		}
		if h.bus != nil {
			h.bus.Publish(event.Event{
				Type: event.BlueprintChunk,
				Data: event.BlueprintChunkData{SessionID: h.sessionID, Chunk: chunk},
			})
		}
	}

	state := &GenerationState{
		RunID:       uuid.NewString(),
		SessionID:   h.sessionID,
		Status:      "completed",
		Files:       cfg.TemplateInfo.Files,
		CompletedAt: time.Now(),
	}
	log.Info().Str("session_id", h.sessionID).Str("run_id", state.RunID).Msg("generation agent initialized")
	return state, nil
}

// blueprintChunks renders the generation plan as ordered fragments.
func blueprintChunks(cfg InitConfig) []string {
	chunks := []string{
		fmt.Sprintf("Planning project for: %s\n", cfg.Query),
		fmt.Sprintf("Template: %s (%s)\n", cfg.TemplateInfo.Name, cfg.Language),
	}
	if len(cfg.Frameworks) > 0 {
		chunks = append(chunks, fmt.Sprintf("Frameworks: %s\n", strings.Join(cfg.Frameworks, ", ")))
	}
	for _, file := range cfg.TemplateInfo.Files {
		chunks = append(chunks, fmt.Sprintf("Scaffolding %s\n", file))
	}
	chunks = append(chunks, "Blueprint complete.\n")
	return chunks
}
