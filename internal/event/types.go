package event

import "github.com/appforge-ai/appforge/pkg/types"

// EventType represents the type of event.
type EventType string

const (
	SessionCreated      EventType = "session.created"
	SessionBootstrapped EventType = "session.bootstrapped"
	MessageCreated      EventType = "message.created"
	TurnCompleted       EventType = "turn.completed"
	BlueprintChunk      EventType = "blueprint.chunk"
)

// Event represents an event to be published.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// SessionCreatedData is published when a bootstrap allocates a session.
type SessionCreatedData struct {
	Session *types.Session `json:"session"`
}

// SessionBootstrappedData is published when the background agent
// initialization for a session settles.
type SessionBootstrappedData struct {
	SessionID string `json:"sessionId"`
	Err       string `json:"error,omitempty"`
}

// MessageCreatedData is published for every message appended to a
// session's history.
type MessageCreatedData struct {
	SessionID string                     `json:"sessionId"`
	Message   *types.ConversationMessage `json:"message"`
}

// TurnCompletedData is published when a conversational turn settles.
type TurnCompletedData struct {
	SessionID string `json:"sessionId"`
	TurnID    string `json:"turnId"`
	Fallback  bool   `json:"fallback"`
}

// BlueprintChunkData is published for each blueprint fragment produced
// during agent initialization.
type BlueprintChunkData struct {
	SessionID string `json:"sessionId"`
	Chunk     string `json:"chunk"`
}

// SessionID extracts the owning session id from an event, if any.
func (e Event) SessionID() string {
	switch data := e.Data.(type) {
	case SessionCreatedData:
		if data.Session != nil {
			return data.Session.ID
		}
	case SessionBootstrappedData:
		return data.SessionID
	case MessageCreatedData:
		return data.SessionID
	case TurnCompletedData:
		return data.SessionID
	case BlueprintChunkData:
		return data.SessionID
	}
	return ""
}
