package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const queueEditDescription = `Queues a modification request against the generated application.

Usage notes:
  - Describe the desired change in natural language; do not include code.
  - The description must be at least 8 characters long.
  - The change is applied asynchronously by the generation agent; this tool
    only records the request.`

// minModificationLength is enforced both in the schema and at execution
// time, since not every model honors schema constraints.
const minModificationLength = 8

// queueEditAck is the fixed acknowledgement returned to the model.
const queueEditAck = "Your modification request has been queued and will be applied to the project shortly."

// QueueEditTool records a natural-language modification request into the
// current turn's enhanced-request slot. It never mutates the session
// directly.
type QueueEditTool struct{}

// QueueEditInput represents the input for the queue_edit tool.
type QueueEditInput struct {
	Modification string `json:"modification"`
}

// NewQueueEditTool creates a new queue_edit tool.
func NewQueueEditTool() *QueueEditTool {
	return &QueueEditTool{}
}

func (t *QueueEditTool) Name() string        { return "queue_edit" }
func (t *QueueEditTool) Description() string { return queueEditDescription }

func (t *QueueEditTool) Parameters() json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{
  "type": "object",
  "properties": {
    "modification": {
      "type": "string",
      "description": "Natural-language description of the requested change",
      "minLength": %d
    }
  },
  "required": ["modification"]
}`, minModificationLength))
}

func (t *QueueEditTool) Execute(ctx context.Context, input json.RawMessage, tc *Context) (*Result, error) {
	var in QueueEditInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid queue_edit input: %w", err)
	}

	modification := strings.TrimSpace(in.Modification)
	if len(modification) < minModificationLength {
		return nil, fmt.Errorf("modification must be at least %d characters", minModificationLength)
	}

	if tc != nil && tc.EnhancedRequestSink != nil {
		tc.EnhancedRequestSink(modification)
	}

	return &Result{Output: queueEditAck}, nil
}
