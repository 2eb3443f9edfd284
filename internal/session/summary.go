package session

import (
	"fmt"
	"time"

	"github.com/appforge-ai/appforge/internal/logging"
	"github.com/appforge-ai/appforge/pkg/types"
)

// SummarizeProjectUpdate synthesizes an internal-memo assistant message
// describing a project lifecycle event, for injection into history
// without user-visible display. Unknown kinds and rendering failures
// yield an empty slice, never an error.
func SummarizeProjectUpdate(kind types.ProjectUpdateKind, data map[string]any) []types.ConversationMessage {
	text := renderProjectUpdate(kind, data)
	if text == "" {
		log := logging.Component("session")
		log.Warn().
			Str("kind", string(kind)).
			Msg("unsummarizable project update")
		return []types.ConversationMessage{}
	}

	return []types.ConversationMessage{{
		ID:      newCorrelationID(),
		Role:    types.RoleAssistant,
		Content: fmt.Sprintf("%s %s", internalMemoMarker, text),
		Created: time.Now().UnixMilli(),
	}}
}

func renderProjectUpdate(kind types.ProjectUpdateKind, data map[string]any) string {
	switch kind {
	case types.UpdatePhaseImplementing:
		return fmt.Sprintf("Implementation of phase %q has started.", field(data, "phase"))
	case types.UpdatePhaseImplemented:
		return fmt.Sprintf("Phase %q has been implemented.", field(data, "phase"))
	case types.UpdateCodeReviewed:
		return "The generated code has been reviewed."
	case types.UpdateFileRegenerating:
		return fmt.Sprintf("File %q is being regenerated.", field(data, "file"))
	case types.UpdateFileRegenerated:
		return fmt.Sprintf("File %q has been regenerated.", field(data, "file"))
	case types.UpdateDeploymentCompleted:
		return "The project has been deployed."
	case types.UpdateCommandExecuting:
		return fmt.Sprintf("Command %q is being executed.", field(data, "command"))
	}
	return ""
}

// field reads a string value from update data, tolerating absence.
func field(data map[string]any, key string) string {
	if data == nil {
		return "unknown"
	}
	if v, ok := data[key].(string); ok && v != "" {
		return v
	}
	return "unknown"
}
