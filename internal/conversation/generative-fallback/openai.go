package generativefallback

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"loan-assistant/internal/common/logger"

	"github.com/sashabaranov/go-openai"
)

const systemPrompt = "You are a helpful assistant for a loan servicing company. " +
	"Answer briefly and do not invent account-specific figures."

type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	HTTPClient  *http.Client
}

// OpenAIGenerator uses any OpenAI-compatible chat completion endpoint.
type OpenAIGenerator struct {
	client *openai.Client
	config OpenAIConfig
	logger logger.Logger
}

func NewOpenAI(config OpenAIConfig, log logger.Logger) *OpenAIGenerator {
	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	if config.HTTPClient != nil {
		clientConfig.HTTPClient = config.HTTPClient
	}
	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		logger: log.With(map[string]interface{}{"generator": "openai", "model": config.Model}),
	}
}

func (g *OpenAIGenerator) CheckAvailability(ctx context.Context) bool {
	list, err := g.client.ListModels(ctx)
	if err != nil {
		g.logger.Error("failed to list models", map[string]interface{}{"error": err})
		return false
	}
	for _, m := range list.Models {
		if m.ID == g.config.Model {
			return true
		}
	}
	g.logger.Warn("model not served by endpoint", map[string]interface{}{"models": len(list.Models)})
	return false
}

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: g.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   g.config.MaxTokens,
		Temperature: float32(g.config.Temperature),
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return "", ErrLLMTimeout
		}
		return "", fmt.Errorf("%w: %v", ErrLLMGenerationFailed, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ErrLLMGenerationFailed)
	}
	return resp.Choices[0].Message.Content, nil
}
