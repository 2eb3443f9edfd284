package inference

import (
	"context"
	"fmt"
	"os"

	"github.com/cloudwego/eino-ext/components/model/claude"

	"github.com/appforge-ai/appforge/pkg/types"
)

const defaultClaudeModel = "claude-sonnet-4-20250514"

// NewClaudeProvider creates a provider backed by Anthropic Claude.
func NewClaudeProvider(ctx context.Context, cfg types.ProviderConfig) (Provider, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
	}

	modelID := cfg.Model
	if modelID == "" {
		modelID = defaultClaudeModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 8192
	}

	modelCfg := &claude.Config{
		APIKey:    apiKey,
		Model:     modelID,
		MaxTokens: maxTokens,
	}
	if cfg.BaseURL != "" {
		modelCfg.BaseURL = &cfg.BaseURL
	}

	chatModel, err := claude.NewChatModel(ctx, modelCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Claude model: %w", err)
	}

	return &chatModelProvider{
		id:           "claude",
		name:         "Anthropic Claude",
		defaultModel: modelID,
		chatModel:    chatModel,
	}, nil
}
