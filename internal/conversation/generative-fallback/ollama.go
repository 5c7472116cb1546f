package generativefallback

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"loan-assistant/internal/common/logger"
)

type OllamaConfig struct {
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
}

// OllamaGenerator talks to an Ollama server over its REST API.
type OllamaGenerator struct {
	config OllamaConfig
	client *http.Client
	logger logger.Logger
}

// NewOllama builds a generator. Request deadlines come from the caller's
// context, not from the HTTP client.
func NewOllama(config OllamaConfig, client *http.Client, log logger.Logger) *OllamaGenerator {
	if client == nil {
		client = &http.Client{}
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	return &OllamaGenerator{
		config: config,
		client: client,
		logger: log.With(map[string]interface{}{"generator": "ollama", "model": config.Model}),
	}
}

type ollamaTags struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

func (g *OllamaGenerator) CheckAvailability(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.config.BaseURL+"/api/tags", nil)
	if err != nil {
		g.logger.Error("failed to build tags request", map[string]interface{}{"error": err})
		return false
	}

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Error("failed to reach ollama", map[string]interface{}{"error": err})
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		g.logger.Error("ollama server not responding", map[string]interface{}{"status": resp.StatusCode})
		return false
	}

	var tags ollamaTags
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		g.logger.Error("failed to decode tags", map[string]interface{}{"error": err})
		return false
	}

	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		if m.Name == g.config.Model {
			return true
		}
		names = append(names, m.Name)
	}
	g.logger.Warn("model not found on ollama", map[string]interface{}{"available": names})
	return false
}

func (g *OllamaGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	payload := map[string]interface{}{
		"model":  g.config.Model,
		"prompt": prompt,
		"stream": false,
	}
	options := map[string]interface{}{}
	if g.config.MaxTokens > 0 {
		options["num_predict"] = g.config.MaxTokens
	}
	if g.config.Temperature > 0 {
		options["temperature"] = g.config.Temperature
	}
	if len(options) > 0 {
		payload["options"] = options
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLLMGenerationFailed, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.config.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLLMGenerationFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return "", ErrLLMTimeout
		}
		return "", fmt.Errorf("%w: %v", ErrLLMGenerationFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: status %d: %s", ErrLLMGenerationFailed, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode error: %v", ErrLLMGenerationFailed, err)
	}
	return out.Response, nil
}
