package inference

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appforge-ai/appforge/internal/apperr"
	"github.com/appforge-ai/appforge/internal/tool"
	"github.com/appforge-ai/appforge/pkg/types"
)

// scriptedProvider replays canned message streams, one per round.
type scriptedProvider struct {
	rounds   [][]*schema.Message
	errs     []error
	requests []*CompletionRequest
	call     int
}

func (p *scriptedProvider) ID() string           { return "scripted" }
func (p *scriptedProvider) Name() string         { return "Scripted" }
func (p *scriptedProvider) DefaultModel() string { return "scripted-1" }

func (p *scriptedProvider) CreateCompletion(ctx context.Context, req *CompletionRequest) (*CompletionStream, error) {
	p.requests = append(p.requests, req)
	call := p.call
	p.call++

	if call < len(p.errs) && p.errs[call] != nil {
		return nil, p.errs[call]
	}

	var msgs []*schema.Message
	if call < len(p.rounds) {
		msgs = p.rounds[call]
	}

	reader, writer := schema.Pipe[*schema.Message](len(msgs) + 1)
	go func() {
		defer writer.Close()
		for _, msg := range msgs {
			writer.Send(msg, nil)
		}
	}()
	return NewCompletionStream(reader), nil
}

func newTestAdapter(p Provider) *Adapter {
	reg := NewRegistry()
	reg.Register(p)
	return NewAdapter(reg)
}

// echoTool records invocations and returns a fixed output.
type echoTool struct {
	name   string
	output string
	inputs []string
}

func (e *echoTool) Name() string        { return e.name }
func (e *echoTool) Description() string { return "echo" }
func (e *echoTool) Parameters() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{"q":{"type":"string","description":"q"}},"required":["q"]}`)
}
func (e *echoTool) Execute(ctx context.Context, input json.RawMessage, tc *tool.Context) (*tool.Result, error) {
	e.inputs = append(e.inputs, string(input))
	return &tool.Result{Output: e.output}, nil
}

func TestAdapter_StreamsTextFragments(t *testing.T) {
	prov := &scriptedProvider{rounds: [][]*schema.Message{{
		{Role: schema.Assistant, Content: "Sure, "},
		{Role: schema.Assistant, Content: "Sure, adding it now."},
	}}}
	adapter := newTestAdapter(prov)

	var chunks []string
	result, err := adapter.Execute(context.Background(), &Request{
		Messages:   []*schema.Message{{Role: schema.User, Content: "add a dark mode toggle"}},
		ActionName: "conversationalResponse",
		Stream: StreamConfig{
			ChunkSize: 64,
			OnChunk:   func(text string) { chunks = append(chunks, text) },
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Sure, adding it now.", result.Text)
	assert.Equal(t, []string{"Sure, ", "adding it now."}, chunks)
	require.Len(t, result.NewMessages, 1)
	assert.Equal(t, schema.Assistant, result.NewMessages[0].Role)
}

func TestAdapter_DeltaStyleStream(t *testing.T) {
	prov := &scriptedProvider{rounds: [][]*schema.Message{{
		{Role: schema.Assistant, Content: "Hello"},
		{Role: schema.Assistant, Content: " world"},
	}}}
	adapter := newTestAdapter(prov)

	result, err := adapter.Execute(context.Background(), &Request{
		Messages: []*schema.Message{{Role: schema.User, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello world", result.Text)
}

func TestAdapter_ExecutesToolRound(t *testing.T) {
	prov := &scriptedProvider{rounds: [][]*schema.Message{
		{
			{Role: schema.Assistant, ToolCalls: []schema.ToolCall{{
				ID:       "call-1",
				Function: schema.FunctionCall{Name: "search", Arguments: `{"q":"weather"}`},
			}}},
		},
		{
			{Role: schema.Assistant, Content: "Found it."},
		},
	}}
	adapter := newTestAdapter(prov)

	search := &echoTool{name: "search", output: "result text"}
	result, err := adapter.Execute(context.Background(), &Request{
		Messages: []*schema.Message{{Role: schema.User, Content: "look it up"}},
		Tools:    tool.NewSet(search),
		ToolCtx:  &tool.Context{TurnID: "turn-1"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Found it.", result.Text)
	assert.Equal(t, []string{`{"q":"weather"}`}, search.inputs)

	// assistant tool-call trace, tool result, final assistant message
	require.Len(t, result.NewMessages, 3)
	assert.Equal(t, schema.Assistant, result.NewMessages[0].Role)
	assert.Equal(t, schema.Tool, result.NewMessages[1].Role)
	assert.Equal(t, "call-1", result.NewMessages[1].ToolCallID)
	assert.Equal(t, "result text", result.NewMessages[1].Content)
	assert.Equal(t, "Found it.", result.NewMessages[2].Content)

	// Second round must carry the tool trace back to the model.
	require.Len(t, prov.requests, 2)
	last := prov.requests[1].Messages[len(prov.requests[1].Messages)-1]
	assert.Equal(t, schema.Tool, last.Role)
}

func TestAdapter_ToolNotFound(t *testing.T) {
	prov := &scriptedProvider{rounds: [][]*schema.Message{
		{{Role: schema.Assistant, ToolCalls: []schema.ToolCall{{
			ID:       "call-1",
			Function: schema.FunctionCall{Name: "missing", Arguments: `{}`},
		}}}},
		{{Role: schema.Assistant, Content: "done"}},
	}}
	adapter := newTestAdapter(prov)

	result, err := adapter.Execute(context.Background(), &Request{
		Messages: []*schema.Message{{Role: schema.User, Content: "x"}},
		Tools:    tool.NewSet(),
	})
	require.NoError(t, err)
	assert.Contains(t, result.NewMessages[1].Content, "tool not found")
}

func TestAdapter_ClassifiesQuotaError(t *testing.T) {
	prov := &scriptedProvider{errs: []error{
		errors.New("429 rate limit exceeded"),
		errors.New("429 rate limit exceeded"),
	}}
	adapter := newTestAdapter(prov)

	_, err := adapter.Execute(context.Background(), &Request{
		Messages: []*schema.Message{{Role: schema.User, Content: "x"}},
	})
	require.Error(t, err)

	var quota *apperr.QuotaExceededError
	assert.ErrorAs(t, err, &quota)
	// Quota errors must not be retried.
	assert.Equal(t, 1, prov.call)
}

func TestAdapter_ClassifiesSecurityError(t *testing.T) {
	prov := &scriptedProvider{errs: []error{errors.New("request blocked by content policy")}}
	adapter := newTestAdapter(prov)

	_, err := adapter.Execute(context.Background(), &Request{
		Messages: []*schema.Message{{Role: schema.User, Content: "x"}},
	})
	require.Error(t, err)

	var security *apperr.SecurityViolationError
	assert.ErrorAs(t, err, &security)
}

func TestAdapter_RetriesTransientSetupError(t *testing.T) {
	prov := &scriptedProvider{
		errs:   []error{errors.New("connection reset"), nil},
		rounds: [][]*schema.Message{nil, {{Role: schema.Assistant, Content: "recovered"}}},
	}
	adapter := newTestAdapter(prov)

	result, err := adapter.Execute(context.Background(), &Request{
		Messages: []*schema.Message{{Role: schema.User, Content: "x"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", result.Text)
	assert.Equal(t, 2, prov.call)
}

func TestAdapter_ModelOverride(t *testing.T) {
	prov := &scriptedProvider{rounds: [][]*schema.Message{{{Role: schema.Assistant, Content: "ok"}}}}
	adapter := newTestAdapter(prov)

	_, err := adapter.Execute(context.Background(), &Request{
		Messages:   []*schema.Message{{Role: schema.User, Content: "x"}},
		ActionName: "conversationalResponse",
		Context: types.InferenceContext{
			ModelOverrides: map[string]types.ModelOverride{
				"conversationalResponse": {Model: "scripted/custom-model", MaxTokens: 2048, IsUserOverride: true},
			},
		},
	})
	require.NoError(t, err)

	require.Len(t, prov.requests, 1)
	assert.Equal(t, "custom-model", prov.requests[0].Model)
	assert.Equal(t, 2048, prov.requests[0].MaxTokens)
}

func TestAdapter_NoProviderConfigured(t *testing.T) {
	adapter := NewAdapter(NewRegistry())

	_, err := adapter.Execute(context.Background(), &Request{
		Messages: []*schema.Message{{Role: schema.User, Content: "x"}},
	})
	assert.Error(t, err)
}

func TestChunkRelay_SplitsLargeFragments(t *testing.T) {
	var chunks []string
	relay := newChunkRelay(4, func(s string) { chunks = append(chunks, s) })

	relay.Write("abcdefghij")
	relay.Write("xy")

	assert.Equal(t, []string{"abcd", "efgh", "ij", "xy"}, chunks)
}

func TestMergeToolCall_ArgumentContinuation(t *testing.T) {
	calls := make(map[string]*schema.ToolCall)
	var order []string

	mergeToolCall(calls, &order, schema.ToolCall{ID: "c1", Function: schema.FunctionCall{Name: "search", Arguments: `{"q":`}})
	mergeToolCall(calls, &order, schema.ToolCall{Function: schema.FunctionCall{Arguments: `"hi"}`}})

	require.Len(t, order, 1)
	assert.Equal(t, `{"q":"hi"}`, calls["c1"].Function.Arguments)
}

func TestClassify(t *testing.T) {
	assert.Nil(t, classify(nil))

	plain := errors.New("boom")
	assert.Equal(t, plain, classify(plain))

	quota := &apperr.QuotaExceededError{Reason: "limit"}
	assert.Equal(t, quota, classify(quota))
}
