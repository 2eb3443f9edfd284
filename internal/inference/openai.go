package inference

import (
	"context"
	"fmt"
	"os"

	"github.com/cloudwego/eino-ext/components/model/openai"

	"github.com/appforge-ai/appforge/pkg/types"
)

const defaultOpenAIModel = "gpt-4o"

// NewOpenAIProvider creates a provider backed by OpenAI models.
func NewOpenAIProvider(ctx context.Context, cfg types.ProviderConfig) (Provider, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}

	modelID := cfg.Model
	if modelID == "" {
		modelID = defaultOpenAIModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	modelCfg := &openai.ChatModelConfig{
		APIKey: apiKey,
		Model:  modelID,
		// MaxCompletionTokens for GPT-5 compatibility
		MaxCompletionTokens: &maxTokens,
	}
	if cfg.BaseURL != "" {
		modelCfg.BaseURL = cfg.BaseURL
	}

	chatModel, err := openai.NewChatModel(ctx, modelCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI model: %w", err)
	}

	return &chatModelProvider{
		id:           "openai",
		name:         "OpenAI",
		defaultModel: modelID,
		chatModel:    chatModel,
	}, nil
}
