// Package project tracks the live state of each session's generated
// project and renders it as prompt context for conversational turns.
package project

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/appforge-ai/appforge/internal/storage"
	"github.com/appforge-ai/appforge/pkg/types"
)

// State is the current snapshot of one session's generated project.
type State struct {
	SessionID string `json:"sessionId"`

	// Phase is the generation phase most recently reported by the agent.
	Phase string `json:"phase,omitempty"`

	// PhaseDone reports whether the current phase has completed.
	PhaseDone bool `json:"phaseDone"`

	// RegeneratingFiles are files currently being rewritten.
	RegeneratingFiles []string `json:"regeneratingFiles,omitempty"`

	Reviewed bool  `json:"reviewed"`
	Deployed bool  `json:"deployed"`
	Updated  int64 `json:"updated"`
}

// Service persists per-session project state and renders prompt context.
type Service struct {
	storage *storage.Storage
}

// NewService creates a project state service.
func NewService(store *storage.Storage) *Service {
	return &Service{storage: store}
}

func statePath(sessionID string) []string {
	return []string{"project", sessionID}
}

// State returns the current snapshot for a session. A session without
// recorded updates yields a zero-valued snapshot.
func (s *Service) State(ctx context.Context, sessionID string) (*State, error) {
	var state State
	if err := s.storage.Get(ctx, statePath(sessionID), &state); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &State{SessionID: sessionID}, nil
		}
		return nil, err
	}
	return &state, nil
}

// Record folds one project lifecycle update into the session's state.
func (s *Service) Record(ctx context.Context, sessionID string, kind types.ProjectUpdateKind, data map[string]any) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown project update kind: %s", kind)
	}

	state, err := s.State(ctx, sessionID)
	if err != nil {
		return err
	}

	switch kind {
	case types.UpdatePhaseImplementing:
		state.Phase = stringField(data, "phase")
		state.PhaseDone = false
	case types.UpdatePhaseImplemented:
		if phase := stringField(data, "phase"); phase != "" {
			state.Phase = phase
		}
		state.PhaseDone = true
	case types.UpdateCodeReviewed:
		state.Reviewed = true
	case types.UpdateFileRegenerating:
		if file := stringField(data, "file"); file != "" {
			state.RegeneratingFiles = appendUnique(state.RegeneratingFiles, file)
		}
	case types.UpdateFileRegenerated:
		if file := stringField(data, "file"); file != "" {
			state.RegeneratingFiles = remove(state.RegeneratingFiles, file)
		}
	case types.UpdateDeploymentCompleted:
		state.Deployed = true
	case types.UpdateCommandExecuting:
		// Transient; nothing to fold into the snapshot.
	}

	state.SessionID = sessionID
	state.Updated = time.Now().UnixMilli()
	return s.storage.Put(ctx, statePath(sessionID), state)
}

// ProjectContext renders the session's project state for the system
// prompt. The summarized flag selects a single-line rendering.
func (s *Service) ProjectContext(ctx context.Context, sessionID string, summarized bool) (string, error) {
	state, err := s.State(ctx, sessionID)
	if err != nil {
		return "", err
	}

	if summarized {
		return fmt.Sprintf("Phase: %s, deployed: %t", orNone(state.Phase), state.Deployed), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Current phase: %s", orNone(state.Phase))
	if state.Phase != "" && state.PhaseDone {
		b.WriteString(" (completed)")
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Code reviewed: %t\n", state.Reviewed)
	fmt.Fprintf(&b, "Deployed: %t\n", state.Deployed)
	if len(state.RegeneratingFiles) > 0 {
		fmt.Fprintf(&b, "Files being regenerated: %s\n", strings.Join(state.RegeneratingFiles, ", "))
	}
	return b.String(), nil
}

func stringField(data map[string]any, key string) string {
	if data == nil {
		return ""
	}
	v, _ := data[key].(string)
	return v
}

func orNone(s string) string {
	if s == "" {
		return "not started"
	}
	return s
}

func appendUnique(items []string, item string) []string {
	for _, existing := range items {
		if existing == item {
			return items
		}
	}
	return append(items, item)
}

func remove(items []string, item string) []string {
	out := items[:0]
	for _, existing := range items {
		if existing != item {
			out = append(out, existing)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
