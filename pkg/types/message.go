package types

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// ConversationMessage is one entry in a session's append-only history.
// The ID doubles as the correlation id grouping streamed fragments and
// tool events that belong to the same logical message; it is assigned
// exactly once at creation and never reused.
type ConversationMessage struct {
	ID      string `json:"id"`
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// ToolCalls carries the structured trace for assistant messages that
	// requested tool invocations.
	ToolCalls []ToolCallTrace `json:"toolCalls,omitempty"`

	// ToolCallID links a tool-result message back to the call it answers.
	ToolCallID string `json:"toolCallId,omitempty"`

	Created int64 `json:"created"`
}

// ToolCallTrace records a single tool invocation requested by the model.
type ToolCallTrace struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ProjectUpdateKind enumerates the project lifecycle events that can be
// summarized into an internal-memo history entry.
type ProjectUpdateKind string

const (
	UpdatePhaseImplementing   ProjectUpdateKind = "phase_implementing"
	UpdatePhaseImplemented    ProjectUpdateKind = "phase_implemented"
	UpdateCodeReviewed        ProjectUpdateKind = "code_reviewed"
	UpdateFileRegenerating    ProjectUpdateKind = "file_regenerating"
	UpdateFileRegenerated     ProjectUpdateKind = "file_regenerated"
	UpdateDeploymentCompleted ProjectUpdateKind = "deployment_completed"
	UpdateCommandExecuting    ProjectUpdateKind = "command_executing"
)

// Valid reports whether k is a known project update kind.
func (k ProjectUpdateKind) Valid() bool {
	switch k {
	case UpdatePhaseImplementing, UpdatePhaseImplemented, UpdateCodeReviewed,
		UpdateFileRegenerating, UpdateFileRegenerated,
		UpdateDeploymentCompleted, UpdateCommandExecuting:
		return true
	}
	return false
}
