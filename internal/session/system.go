package session

import (
	"context"
	"strings"
)

// capabilityPreamble is the fixed portion of every turn's system prompt.
const capabilityPreamble = `You are the conversational assistant for an AI application-generation service.
The user's project is being generated and deployed for them; you are their point of contact while that happens.

You can:
- Answer questions about the project and its progress.
- Search the web for up-to-date information when the user asks about current topics.
- Look up weather conditions when relevant to the user's request.
- Queue a modification to the project when the user asks for a change. Describe the requested change in natural language; do not write code yourself.

Keep responses short and conversational. When the user requests a change to their application, queue it rather than describing how they could do it themselves.`

// ProjectContextProvider supplies live project-state context for the
// system prompt.
type ProjectContextProvider interface {
	// ProjectContext renders the current project state for a session.
	// summarized requests an abridged rendering; the turn processor
	// always passes false.
	ProjectContext(ctx context.Context, sessionID string, summarized bool) (string, error)
}

// SystemPrompt combines the fixed capability preamble with live project
// context.
type SystemPrompt struct {
	contextProvider ProjectContextProvider
}

// NewSystemPrompt creates a system prompt builder.
func NewSystemPrompt(provider ProjectContextProvider) *SystemPrompt {
	return &SystemPrompt{contextProvider: provider}
}

// Build constructs the full system prompt for one turn. A failing or
// absent context provider degrades to the preamble alone.
func (s *SystemPrompt) Build(ctx context.Context, sessionID string) string {
	parts := []string{capabilityPreamble}

	if s.contextProvider != nil {
		projectContext, err := s.contextProvider.ProjectContext(ctx, sessionID, false)
		if err == nil && projectContext != "" {
			parts = append(parts, "# Current project state\n\n"+projectContext)
		}
	}

	return strings.Join(parts, "\n\n")
}
