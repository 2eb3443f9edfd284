package tool

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueEdit_StoresDescription(t *testing.T) {
	tool := NewQueueEditTool()

	var captured string
	tc := &Context{
		TurnID:              "turn-1",
		EnhancedRequestSink: func(d string) { captured = d },
	}

	result, err := tool.Execute(context.Background(),
		json.RawMessage(`{"modification":"add a dark mode toggle"}`), tc)
	require.NoError(t, err)

	assert.Equal(t, "add a dark mode toggle", captured)
	assert.Equal(t, queueEditAck, result.Output)
}

func TestQueueEdit_RejectsShortDescription(t *testing.T) {
	tool := NewQueueEditTool()

	tests := []string{
		`{"modification":"short"}`,
		`{"modification":""}`,
		`{"modification":"       "}`,
	}
	for _, input := range tests {
		_, err := tool.Execute(context.Background(), json.RawMessage(input), &Context{})
		assert.Error(t, err, input)
	}
}

func TestQueueEdit_InvalidJSON(t *testing.T) {
	tool := NewQueueEditTool()

	_, err := tool.Execute(context.Background(), json.RawMessage(`{broken`), &Context{})
	assert.Error(t, err)
}

func TestQueueEdit_NilSink(t *testing.T) {
	tool := NewQueueEditTool()

	result, err := tool.Execute(context.Background(),
		json.RawMessage(`{"modification":"rename the header"}`), nil)
	require.NoError(t, err)
	assert.Equal(t, queueEditAck, result.Output)
}

func TestQueueEdit_SchemaRequiresMinLength(t *testing.T) {
	tool := NewQueueEditTool()

	var schema struct {
		Properties map[string]struct {
			MinLength int `json:"minLength"`
		} `json:"properties"`
		Required []string `json:"required"`
	}
	require.NoError(t, json.Unmarshal(tool.Parameters(), &schema))

	assert.Equal(t, minModificationLength, schema.Properties["modification"].MinLength)
	assert.Equal(t, []string{"modification"}, schema.Required)
}
