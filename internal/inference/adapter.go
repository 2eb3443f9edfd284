package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cloudwego/eino/schema"

	"github.com/appforge-ai/appforge/internal/apperr"
	"github.com/appforge-ai/appforge/internal/logging"
	"github.com/appforge-ai/appforge/internal/tool"
	"github.com/appforge-ai/appforge/pkg/types"
)

const (
	// MaxToolRounds bounds the number of tool-execution rounds within one
	// inference call.
	MaxToolRounds = 8

	// RetryInitialInterval is the initial interval for exponential backoff.
	RetryInitialInterval = time.Second
	// RetryMaxInterval is the maximum interval for exponential backoff.
	RetryMaxInterval = 15 * time.Second
	// RetryMaxElapsedTime is the maximum total time for retries.
	RetryMaxElapsedTime = time.Minute
	// MaxRetries is the maximum number of retries for stream setup.
	MaxRetries = 3
)

// StreamConfig controls fragment relay during a completion.
type StreamConfig struct {
	// OnChunk receives text fragments as they arrive, batched to
	// ChunkSize runes. May be nil.
	OnChunk func(text string)

	// ChunkSize is the relay batching granularity in runes.
	ChunkSize int
}

// Request is one conversational inference round: full prompt, tool set
// and streaming configuration.
type Request struct {
	Messages   []*schema.Message
	ActionName string
	Context    types.InferenceContext
	Tools      *tool.Set
	ToolCtx    *tool.Context
	Stream     StreamConfig
}

// Result pairs the final assembled text with the structured messages
// produced during the round, in production order.
type Result struct {
	Text        string
	NewMessages []*schema.Message
}

// Executor runs one inference round. Satisfied by *Adapter; faked in
// tests of the turn processor.
type Executor interface {
	Execute(ctx context.Context, req *Request) (*Result, error)
}

// Adapter drives streaming completions against a provider registry,
// executing requested tools in-round until the model stops asking for
// them.
type Adapter struct {
	registry  *Registry
	maxRounds int
}

// NewAdapter creates a new inference adapter.
func NewAdapter(registry *Registry) *Adapter {
	return &Adapter{registry: registry, maxRounds: MaxToolRounds}
}

// newRetryBackoff creates an exponential backoff with jitter for stream
// setup retries.
func newRetryBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = RetryInitialInterval
	b.MaxInterval = RetryMaxInterval
	b.MaxElapsedTime = RetryMaxElapsedTime
	b.RandomizationFactor = 0.5
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, MaxRetries), ctx)
}

// Execute runs one inference round. Streamed fragments are relayed
// through req.Stream.OnChunk in order; tool calls requested by the model
// are executed through req.Tools and their traces appended to the
// returned messages.
func (a *Adapter) Execute(ctx context.Context, req *Request) (*Result, error) {
	prov, modelID, err := a.resolveModel(req)
	if err != nil {
		return nil, err
	}

	log := logging.Component("inference")

	messages := append([]*schema.Message(nil), req.Messages...)
	var newMessages []*schema.Message
	var text strings.Builder

	relay := newChunkRelay(req.Stream.ChunkSize, func(fragment string) {
		if req.Stream.OnChunk != nil {
			req.Stream.OnChunk(fragment)
		}
	})

	var toolInfos []*schema.ToolInfo
	if req.Tools != nil {
		toolInfos = req.Tools.Infos()
	}

	for round := 0; round < a.maxRounds; round++ {
		creq := &CompletionRequest{
			Model:    modelID,
			Messages: messages,
			Tools:    toolInfos,
		}
		if override, ok := req.Context.ModelOverrides[req.ActionName]; ok {
			creq.MaxTokens = override.MaxTokens
			creq.Temperature = override.Temperature
		}

		stream, err := a.openStream(ctx, prov, creq)
		if err != nil {
			return nil, err
		}

		assistant, err := consumeStream(stream, func(delta string) {
			text.WriteString(delta)
			relay.Write(delta)
		})
		stream.Close()
		if err != nil {
			return nil, classify(err)
		}

		messages = append(messages, assistant)
		newMessages = append(newMessages, assistant)

		if len(assistant.ToolCalls) == 0 {
			break
		}

		for _, tc := range assistant.ToolCalls {
			trace := a.runTool(ctx, req, tc)
			messages = append(messages, trace)
			newMessages = append(newMessages, trace)
		}
		log.Debug().Str("action", req.ActionName).Int("round", round).
			Int("toolCalls", len(assistant.ToolCalls)).Msg("tool round completed")
	}

	return &Result{Text: text.String(), NewMessages: newMessages}, nil
}

// resolveModel picks the provider and model, honoring per-action user
// overrides from the inference context.
func (a *Adapter) resolveModel(req *Request) (Provider, string, error) {
	providerID, modelID := a.registry.Default()

	if override, ok := req.Context.ModelOverrides[req.ActionName]; ok && override.Model != "" {
		if parts := strings.SplitN(override.Model, "/", 2); len(parts) == 2 {
			providerID, modelID = parts[0], parts[1]
		} else {
			modelID = override.Model
		}
	}

	if providerID == "" {
		return nil, "", fmt.Errorf("no inference provider configured")
	}

	prov, err := a.registry.Get(providerID)
	if err != nil {
		return nil, "", err
	}
	return prov, modelID, nil
}

// openStream creates the completion stream, retrying transient setup
// failures. Quota and security classified errors are never retried.
func (a *Adapter) openStream(ctx context.Context, prov Provider, creq *CompletionRequest) (*CompletionStream, error) {
	retry := newRetryBackoff(ctx)

	for {
		stream, err := prov.CreateCompletion(ctx, creq)
		if err == nil {
			return stream, nil
		}

		err = classify(err)
		if apperr.Propagates(err) {
			return nil, err
		}

		next := retry.NextBackOff()
		if next == backoff.Stop {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(next):
		}
	}
}

// runTool executes one requested tool call and returns its trace message.
func (a *Adapter) runTool(ctx context.Context, req *Request, tc schema.ToolCall) *schema.Message {
	output := ""

	t, ok := lookupTool(req.Tools, tc.Function.Name)
	if !ok {
		output = fmt.Sprintf("Error: tool not found: %s", tc.Function.Name)
	} else {
		result, err := t.Execute(ctx, json.RawMessage(tc.Function.Arguments), req.ToolCtx)
		switch {
		case err != nil:
			output = fmt.Sprintf("Error: %s", err.Error())
		case result != nil:
			output = result.Output
		}
	}

	return &schema.Message{
		Role:       schema.Tool,
		ToolCallID: tc.ID,
		Content:    output,
	}
}

func lookupTool(set *tool.Set, name string) (tool.Tool, bool) {
	if set == nil {
		return nil, false
	}
	return set.Lookup(name)
}

// consumeStream drains one completion stream into a single assistant
// message, invoking emit for every text delta. Providers differ in chunk
// semantics: some send cumulative content snapshots, others pure deltas;
// both are handled.
func consumeStream(stream *CompletionStream, emit func(delta string)) (*schema.Message, error) {
	var content string
	calls := make(map[string]*schema.ToolCall)
	var order []string

	for {
		msg, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		if msg.Content != "" {
			delta := msg.Content
			if len(content) > 0 && strings.HasPrefix(msg.Content, content) {
				delta = msg.Content[len(content):]
				content = msg.Content
			} else {
				content += msg.Content
			}
			if delta != "" {
				emit(delta)
			}
		}

		for _, tc := range msg.ToolCalls {
			mergeToolCall(calls, &order, tc)
		}
	}

	assistant := &schema.Message{Role: schema.Assistant, Content: content}
	for _, id := range order {
		assistant.ToolCalls = append(assistant.ToolCalls, *calls[id])
	}
	return assistant, nil
}

// mergeToolCall folds one streamed tool-call fragment into the
// accumulated calls. Fragments without an id continue the most recent
// call's arguments.
func mergeToolCall(calls map[string]*schema.ToolCall, order *[]string, tc schema.ToolCall) {
	if tc.ID == "" {
		if len(*order) == 0 {
			return
		}
		last := calls[(*order)[len(*order)-1]]
		last.Function.Arguments += tc.Function.Arguments
		return
	}

	existing, ok := calls[tc.ID]
	if !ok {
		cp := tc
		calls[tc.ID] = &cp
		*order = append(*order, tc.ID)
		return
	}

	if tc.Function.Name != "" {
		existing.Function.Name = tc.Function.Name
	}
	if tc.Function.Arguments != "" {
		if strings.HasPrefix(tc.Function.Arguments, existing.Function.Arguments) {
			existing.Function.Arguments = tc.Function.Arguments
		} else {
			existing.Function.Arguments += tc.Function.Arguments
		}
	}
}

// classify maps provider failures onto the error taxonomy. Rate-limit
// rejections become quota errors; policy rejections become security
// violations; everything else passes through for the caller's fallback
// handling.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if apperr.Propagates(err) {
		return err
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "429"):
		return &apperr.QuotaExceededError{Reason: err.Error()}
	case strings.Contains(msg, "content policy") ||
		strings.Contains(msg, "safety") ||
		strings.Contains(msg, "content_filter") ||
		strings.Contains(msg, "security violation"):
		return &apperr.SecurityViolationError{Reason: err.Error()}
	}
	return err
}

// chunkRelay forwards streamed deltas immediately, splitting any
// fragment larger than the configured size. Every provider fragment
// yields at least one emission; none is held back waiting for more text.
type chunkRelay struct {
	size int
	emit func(string)
}

func newChunkRelay(size int, emit func(string)) *chunkRelay {
	if size <= 0 {
		size = 64
	}
	return &chunkRelay{size: size, emit: emit}
}

func (c *chunkRelay) Write(delta string) {
	runes := []rune(delta)
	for len(runes) > c.size {
		c.emit(string(runes[:c.size]))
		runes = runes[c.size:]
	}
	if len(runes) > 0 {
		c.emit(string(runes))
	}
}
