package actor

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appforge-ai/appforge/pkg/types"
)

func testInitConfig(chunks *[]string) InitConfig {
	return InitConfig{
		Query:      "build a todo app",
		Language:   "typescript",
		Frameworks: []string{"react", "vite"},
		Hostname:   "app-123.preview.example.com",
		InferenceContext: types.InferenceContext{
			SessionID: "agent-123",
			UserID:    "user-1",
		},
		OnBlueprintChunk: func(chunk string) {
			*chunks = append(*chunks, chunk)
		},
		TemplateInfo: &types.TemplateInfo{
			Name:     "react-vite-starter",
			Language: "typescript",
			Files:    []string{"index.html", "src/App.tsx"},
		},
		SandboxSessionID: "sandbox-1",
	}
}

func TestLocalDialer_RequiresSessionID(t *testing.T) {
	d := NewLocalDialer(nil)

	_, err := d.Dial(context.Background(), "")
	assert.Error(t, err)
}

func TestLocalHandle_StreamsBlueprintBeforeReturning(t *testing.T) {
	d := NewLocalDialer(nil)
	h, err := d.Dial(context.Background(), "agent-123")
	require.NoError(t, err)

	var chunks []string
	state, err := h.Initialize(context.Background(), testInitConfig(&chunks), "standard")
	require.NoError(t, err)

	require.NotEmpty(t, chunks)
	assert.Contains(t, chunks[0], "build a todo app")
	assert.Equal(t, "Blueprint complete.\n", chunks[len(chunks)-1])

	joined := strings.Join(chunks, "")
	assert.Contains(t, joined, "react-vite-starter")
	assert.Contains(t, joined, "src/App.tsx")

	assert.Equal(t, "completed", state.Status)
	assert.Equal(t, "agent-123", state.SessionID)
	assert.NotEmpty(t, state.RunID)
	assert.Equal(t, []string{"index.html", "src/App.tsx"}, state.Files)
}

func TestLocalHandle_ValidatesConfig(t *testing.T) {
	d := NewLocalDialer(nil)
	h, err := d.Dial(context.Background(), "agent-123")
	require.NoError(t, err)

	var chunks []string
	cfg := testInitConfig(&chunks)
	cfg.Query = ""
	_, err = h.Initialize(context.Background(), cfg, "standard")
	assert.Error(t, err)

	cfg = testInitConfig(&chunks)
	cfg.TemplateInfo = nil
	_, err = h.Initialize(context.Background(), cfg, "standard")
	assert.Error(t, err)
}

func TestLocalHandle_HonorsCancellation(t *testing.T) {
	d := NewLocalDialer(nil)
	h, err := d.Dial(context.Background(), "agent-123")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var chunks []string
	_, err = h.Initialize(ctx, testInitConfig(&chunks), "standard")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, chunks)
}

func TestLocalHandle_NilCallbackIsAllowed(t *testing.T) {
	d := NewLocalDialer(nil)
	h, err := d.Dial(context.Background(), "agent-123")
	require.NoError(t, err)

	var chunks []string
	cfg := testInitConfig(&chunks)
	cfg.OnBlueprintChunk = nil
	state, err := h.Initialize(context.Background(), cfg, "standard")
	require.NoError(t, err)
	assert.Equal(t, "completed", state.Status)
}
