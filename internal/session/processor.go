package session

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/appforge-ai/appforge/internal/apperr"
	"github.com/appforge-ai/appforge/internal/inference"
	"github.com/appforge-ai/appforge/internal/logging"
	"github.com/appforge-ai/appforge/internal/tool"
	"github.com/appforge-ai/appforge/pkg/types"
)

const (
	// conversationActionName keys per-user model overrides for turns.
	conversationActionName = "conversationalResponse"

	// streamChunkSize is the relay batching granularity, in runes.
	streamChunkSize = 64

	// internalMemoMarker tags assistant messages meant for history
	// injection only, never for user display.
	internalMemoMarker = "[Internal Memo]"

	// enhancedRequestPrefix prefixes the raw user text when a failed turn
	// falls back to forwarding the request verbatim.
	enhancedRequestPrefix = "User request: "

	// fallbackResponse is the fixed user-visible text for a degraded turn.
	fallbackResponse = "I've recorded your request and passed it along to the project agent. It will be applied to your project shortly."
)

// turnToolNames are the capabilities assembled into every turn's tool
// set, in dispatch order.
var turnToolNames = []string{"websearch", "weather", "queue_edit"}

// Processor drives one conversational turn: system prompt construction,
// tool-set assembly, a single streamed inference round and fallback
// handling. Callers must serialize turns per session; histories are
// append-only and this layer takes no locks.
type Processor struct {
	executor        inference.Executor
	tools           *tool.Registry
	contextProvider ProjectContextProvider
}

// NewProcessor creates a turn processor.
func NewProcessor(executor inference.Executor, tools *tool.Registry, contextProvider ProjectContextProvider) *Processor {
	return &Processor{
		executor:        executor,
		tools:           tools,
		contextProvider: contextProvider,
	}
}

// Process runs one turn. Streamed fragments and tool lifecycle
// notifications are delivered through onEvent before Process returns.
// Quota and security violations propagate unchanged; every other
// inference failure degrades into the deterministic fallback result.
func (p *Processor) Process(
	ctx context.Context,
	userMessage string,
	history []types.ConversationMessage,
	infCtx types.InferenceContext,
	onEvent TurnEventSink,
) (*TurnResult, error) {
	log := logging.Component("session")
	state := TurnPending

	systemPrompt := NewSystemPrompt(p.contextProvider).Build(ctx, infCtx.SessionID)

	userMsg := types.ConversationMessage{
		ID:      newCorrelationID(),
		Role:    types.RoleUser,
		Content: userMessage,
		Created: time.Now().UnixMilli(),
	}

	// The turn's own correlation id, distinct from any message id. Every
	// event emitted during this turn carries it.
	turnID := newCorrelationID()

	enhancedRequest := ""
	toolCtx := &tool.Context{
		SessionID: infCtx.SessionID,
		TurnID:    turnID,
		EnhancedRequestSink: func(description string) {
			enhancedRequest = description
		},
	}

	toolSet := p.buildToolSet(turnID, onEvent)

	messages := make([]*schema.Message, 0, len(history)+2)
	messages = append(messages, &schema.Message{Role: schema.System, Content: systemPrompt})
	for i := range history {
		messages = append(messages, toSchemaMessage(&history[i]))
	}
	messages = append(messages, &schema.Message{Role: schema.User, Content: userMessage})

	var accumulated strings.Builder
	req := &inference.Request{
		Messages:   messages,
		ActionName: conversationActionName,
		Context:    infCtx,
		Tools:      toolSet,
		ToolCtx:    toolCtx,
		Stream: inference.StreamConfig{
			ChunkSize: streamChunkSize,
			OnChunk: func(fragment string) {
				state = TurnStreaming
				accumulated.WriteString(fragment)
				if onEvent != nil {
					onEvent(TurnEvent{Message: fragment, TurnID: turnID, Streaming: true})
				}
			},
		},
	}

	result, err := p.executor.Execute(ctx, req)
	if err != nil {
		if apperr.Propagates(err) {
			return nil, err
		}

		// state records how far the turn got before failing: PENDING means
		// no fragment ever streamed, STREAMING means output was cut off.
		log.Warn().Err(err).Str("session_id", infCtx.SessionID).Str("turn_id", turnID).
			Str("reached", string(state)).Msg("turn degraded to fallback")

		state = TurnFallback
		fallbackMsg := types.ConversationMessage{
			ID:      newCorrelationID(),
			Role:    types.RoleAssistant,
			Content: fallbackResponse,
			Created: time.Now().UnixMilli(),
		}
		return &TurnResult{
			Response:        fallbackResponse,
			EnhancedRequest: enhancedRequestPrefix + userMessage,
			Messages:        append(appendMessage(history, userMsg), fallbackMsg),
			State:           state,
		}, nil
	}

	updated := appendMessage(history, userMsg)
	for _, msg := range result.NewMessages {
		if msg.Role == schema.Assistant && strings.Contains(msg.Content, internalMemoMarker) {
			continue
		}
		updated = append(updated, fromSchemaMessage(msg))
	}

	response := accumulated.String()
	finalMsg := types.ConversationMessage{
		ID:      newCorrelationID(),
		Role:    types.RoleAssistant,
		Content: response,
		Created: time.Now().UnixMilli(),
	}
	updated = append(updated, finalMsg)

	state = TurnCompleted
	return &TurnResult{
		Response:        response,
		EnhancedRequest: enhancedRequest,
		Messages:        updated,
		State:           state,
	}, nil
}

// buildToolSet assembles the turn's capabilities, each decorated so its
// invocations surface as non-streaming events bound to the turn id.
func (p *Processor) buildToolSet(turnID string, onEvent TurnEventSink) *tool.Set {
	hooks := tool.Hooks{
		OnStart: func(name string, args json.RawMessage) {
			if onEvent == nil {
				return
			}
			onEvent(TurnEvent{
				TurnID: turnID,
				Tool:   &ToolStatus{Name: name, Status: ToolStatusStart, Args: string(args)},
			})
		},
		OnFinish: func(name string, args json.RawMessage, err error) {
			if onEvent == nil {
				return
			}
			status := ToolStatusSuccess
			if err != nil {
				status = ToolStatusError
			}
			onEvent(TurnEvent{
				TurnID: turnID,
				Tool:   &ToolStatus{Name: name, Status: status, Args: string(args)},
			})
		},
	}

	var wrapped []tool.Tool
	for _, name := range turnToolNames {
		if t, ok := p.tools.Get(name); ok {
			wrapped = append(wrapped, tool.WithLifecycle(t, hooks))
		}
	}
	return tool.NewSet(wrapped...)
}

func appendMessage(history []types.ConversationMessage, msg types.ConversationMessage) []types.ConversationMessage {
	updated := make([]types.ConversationMessage, 0, len(history)+1)
	updated = append(updated, history...)
	return append(updated, msg)
}

// toSchemaMessage converts a stored conversation message to the
// inference engine's message shape.
func toSchemaMessage(msg *types.ConversationMessage) *schema.Message {
	out := &schema.Message{
		Role:       schema.RoleType(msg.Role),
		Content:    msg.Content,
		ToolCallID: msg.ToolCallID,
	}
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, schema.ToolCall{
			ID: tc.ID,
			Function: schema.FunctionCall{
				Name:      tc.Name,
				Arguments: tc.Arguments,
			},
		})
	}
	return out
}

// fromSchemaMessage converts an inference-produced message into a
// conversation message with a fresh correlation id.
func fromSchemaMessage(msg *schema.Message) types.ConversationMessage {
	out := types.ConversationMessage{
		ID:         newCorrelationID(),
		Role:       types.Role(msg.Role),
		Content:    msg.Content,
		ToolCallID: msg.ToolCallID,
		Created:    time.Now().UnixMilli(),
	}
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, types.ToolCallTrace{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out
}
