// Package session implements the conversational turn processor and the
// session service that owns persisted conversation histories.
package session

import (
	"github.com/oklog/ulid/v2"

	"github.com/appforge-ai/appforge/pkg/types"
)

// TurnState tracks a turn through its lifecycle. PENDING covers prompt
// construction and tool-set assembly; STREAMING begins with the first
// inference fragment; COMPLETED and FALLBACK are terminal.
type TurnState string

const (
	TurnPending   TurnState = "PENDING"
	TurnStreaming TurnState = "STREAMING"
	TurnCompleted TurnState = "COMPLETED"
	TurnFallback  TurnState = "FALLBACK"
)

// ToolStatus describes one tool lifecycle notification.
type ToolStatus struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Args   string `json:"args"`
}

// Tool notification statuses.
const (
	ToolStatusStart   = "start"
	ToolStatusSuccess = "success"
	ToolStatusError   = "error"
)

// TurnEvent is one update delivered to the turn's consumer: either a
// streamed text fragment (Streaming true) or a tool lifecycle
// notification (Tool set, Streaming false). Every event carries the
// turn's correlation id.
type TurnEvent struct {
	Message   string      `json:"message"`
	TurnID    string      `json:"turnId"`
	Streaming bool        `json:"isStreaming"`
	Tool      *ToolStatus `json:"tool,omitempty"`
}

// TurnEventSink consumes turn events. Called synchronously within the
// processing goroutine, zero or more times, strictly before Process
// returns.
type TurnEventSink func(ev TurnEvent)

// TurnResult is the outcome of one processed turn. Response and
// EnhancedRequest are independent outputs: a turn may produce either,
// both, or neither as non-empty.
type TurnResult struct {
	// Response is the user-visible assistant text.
	Response string

	// EnhancedRequest is the modification description queued during the
	// turn, empty when no edit was queued.
	EnhancedRequest string

	// Messages is the full updated history: the original history plus
	// every message this turn appended.
	Messages []types.ConversationMessage

	// State is the terminal turn state, COMPLETED or FALLBACK.
	State TurnState
}

// newCorrelationID generates a fresh correlation id. ULIDs are unique
// and lexicographically ordered by creation time, which keeps persisted
// histories sorted by key.
func newCorrelationID() string {
	return ulid.Make().String()
}
