package model

import "time"

// ================ Config ================
// Each struct is nested under a prefix in the application config, so field
// keys resolve to e.g. CONVERSATION_TTL and INTENT_MODEL.

type ConversationConfig struct {
	TTL time.Duration `default:"24h"`
	// MaxHistory bounds the messages replayed to the model by the final report step.
	MaxHistory int `split_words:"true" default:"40"`
}

type IntentModelConfig struct {
	Model       string  `default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `split_words:"true" default:"1024"`
	Temperature float32 `default:"0.1"`
}

type ResponseModelConfig struct {
	Model       string  `default:"gemini-2.5-flash"`
	MaxTokens   int     `split_words:"true" default:"4096"`
	Temperature float32 `default:"0.1"`
}

// ProviderConfig is embedded at the top level; its keys carry no prefix.
type ProviderConfig struct {
	Provider      string `envconfig:"LLM_PROVIDER" default:"gemini"`
	GeminiAPIKey  string `envconfig:"GEMINI_API_KEY"`
	GeminiBaseURL string `envconfig:"GEMINI_BASE_URL"`
	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string `envconfig:"OPENAI_API_BASE"`
	// ThinkingBudget applies to Gemini models only; 0 disables thinking.
	ThinkingBudget int32 `envconfig:"GEMINI_THINKING_BUDGET" default:"0"`
}

type ExplanationConfig struct {
	MaxPromptChars int `split_words:"true" default:"80000"`
}
