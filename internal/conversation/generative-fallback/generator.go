package generativefallback

import (
	"fmt"

	"loan-assistant/internal/common/config"
	"loan-assistant/internal/common/httpclient"
	"loan-assistant/internal/common/logger"
)

// NewGenerator builds the backend named by cfg.Provider. "none" returns a nil
// Generator, which New treats as permanently unavailable.
func NewGenerator(cfg config.LLMConfig, log logger.Logger) (Generator, error) {
	switch cfg.Provider {
	case "none", "":
		return nil, nil
	case "ollama":
		return NewOllama(OllamaConfig{
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		}, httpclient.New("ollama", 0), log), nil
	case "openai":
		return NewOpenAI(OpenAIConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			HTTPClient:  httpclient.New("openai", 0),
		}, log), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
