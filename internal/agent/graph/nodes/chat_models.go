package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	einomodel "github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"github.com/trendmicro/cloud-risk-assessment-agent/internal/agent/model"
	logx "github.com/trendmicro/cloud-risk-assessment-agent/pkg/logger"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// ChatModelConfig holds the configuration for chat model creation
type ChatModelConfig struct {
	Provider   model.ProviderConfig
	IntentCfg  *model.IntentModelConfig
	RespConfig *model.ResponseModelConfig
}

// ChatModels holds the classifier model (intent scoring and SQL generation)
// and the response model (report and explanation text).
type ChatModels struct {
	Intent            einomodel.BaseChatModel
	Response          einomodel.BaseChatModel
	IntentModelName   string
	ResponseModelName string
}

// NewChatModels creates both chat models for the configured provider.
func NewChatModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {
	if config.IntentCfg == nil || config.RespConfig == nil {
		return nil, fmt.Errorf("model config is nil")
	}

	var (
		intent, resp einomodel.BaseChatModel
		err          error
	)
	switch config.Provider.Provider {
	case ProviderGemini, "":
		intent, resp, err = newGeminiModels(ctx, config)
	case ProviderOpenAI:
		intent, resp, err = newOpenAIModels(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", config.Provider.Provider)
	}
	if err != nil {
		return nil, err
	}

	return &ChatModels{
		Intent:            intent,
		Response:          resp,
		IntentModelName:   config.IntentCfg.Model,
		ResponseModelName: config.RespConfig.Model,
	}, nil
}

func newGeminiModels(ctx context.Context, config ChatModelConfig) (einomodel.BaseChatModel, einomodel.BaseChatModel, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  config.Provider.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.Provider.GeminiBaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.Provider.GeminiBaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	thinking := &genai.ThinkingConfig{
		ThinkingBudget: genai.Ptr(config.Provider.ThinkingBudget),
	}

	intent, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:         client,
		Model:          config.IntentCfg.Model,
		Temperature:    &config.IntentCfg.Temperature,
		MaxTokens:      &config.IntentCfg.MaxTokens,
		ThinkingConfig: thinking,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating intent model")
		return nil, nil, fmt.Errorf("error creating intent model: %w", err)
	}

	resp, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:         client,
		Model:          config.RespConfig.Model,
		Temperature:    &config.RespConfig.Temperature,
		MaxTokens:      &config.RespConfig.MaxTokens,
		ThinkingConfig: thinking,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating response model")
		return nil, nil, fmt.Errorf("error creating response model: %w", err)
	}
	return intent, resp, nil
}

func newOpenAIModels(ctx context.Context, config ChatModelConfig) (einomodel.BaseChatModel, einomodel.BaseChatModel, error) {
	intent, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:      config.Provider.OpenAIAPIKey,
		BaseURL:     config.Provider.OpenAIBaseURL,
		Model:       config.IntentCfg.Model,
		Temperature: &config.IntentCfg.Temperature,
		MaxTokens:   &config.IntentCfg.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating intent model")
		return nil, nil, fmt.Errorf("error creating intent model: %w", err)
	}

	resp, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:      config.Provider.OpenAIAPIKey,
		BaseURL:     config.Provider.OpenAIBaseURL,
		Model:       config.RespConfig.Model,
		Temperature: &config.RespConfig.Temperature,
		MaxTokens:   &config.RespConfig.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating response model")
		return nil, nil, fmt.Errorf("error creating response model: %w", err)
	}
	return intent, resp, nil
}
