package completion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"resume-tailor/internal/common/logger"
)

// GeminiClient calls the Gemini generateContent API.
type GeminiClient struct {
	models   *genai.Models
	defaults Defaults
	logger   logger.Logger
}

// NewGeminiClient builds a Gemini API client. baseURL is optional and only
// needed to point at a proxy or a test server.
func NewGeminiClient(ctx context.Context, baseURL, apiKey string, defaults Defaults, log logger.Logger) (*GeminiClient, error) {
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClient{
		models:   client.Models,
		defaults: defaults,
		logger:   log.WithFields(map[string]interface{}{"provider": "gemini"}),
	}, nil
}

func (c *GeminiClient) Name() string { return "gemini" }

func (c *GeminiClient) Complete(ctx context.Context, req Request) (string, error) {
	req = c.defaults.apply(req)
	ctx, cancel := c.defaults.withTimeout(ctx)
	defer cancel()

	gcfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(*req.Temperature)),
	}
	if req.MaxTokens > 0 {
		gcfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	resp, err := c.models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), gcfg)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			c.logger.Warn("completion request rejected", map[string]interface{}{
				"status": apiErr.Code,
				"model":  req.Model,
			})
			if apiErr.Code == http.StatusTooManyRequests {
				return "", fmt.Errorf("%w: %v", ErrQuota, err)
			}
			return "", fmt.Errorf("%w: %v", ErrFailed, err)
		}
		return "", classify(ctx, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
