package types

// StreamEvent is one frame of the newline-delimited JSON stream emitted
// during session bootstrap. Exactly one of the payload shapes is populated:
// the initial progress object, a blueprint chunk, or the terminate sentinel.
type StreamEvent struct {
	Message       string           `json:"message,omitempty"`
	AgentID       string           `json:"agentId,omitempty"`
	WebsocketURL  string           `json:"websocketUrl,omitempty"`
	HTTPStatusURL string           `json:"httpStatusUrl,omitempty"`
	Template      *TemplateSummary `json:"template,omitempty"`

	Chunk string `json:"chunk,omitempty"`

	// Terminate marks the sentinel that closes the stream. It is never
	// serialized onto the wire.
	Terminate bool `json:"-"`
}

// TerminateEvent is the sentinel that ends a bootstrap stream.
var TerminateEvent = StreamEvent{Terminate: true}

// TemplateSummary is the template metadata included in the first stream event.
type TemplateSummary struct {
	Name  string   `json:"name"`
	Files []string `json:"files"`
}
