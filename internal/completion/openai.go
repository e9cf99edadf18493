package completion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	commonhttp "resume-tailor/internal/common/http"
	"resume-tailor/internal/common/logger"
)

// OpenAIClient calls an OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	http     *commonhttp.Client
	baseURL  string
	apiKey   string
	defaults Defaults
	logger   logger.Logger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func NewOpenAIClient(baseURL, apiKey string, defaults Defaults, log logger.Logger) *OpenAIClient {
	return &OpenAIClient{
		// deadlines come from the request context
		http:     commonhttp.NewClient(0),
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		defaults: defaults,
		logger:   log.WithFields(map[string]interface{}{"provider": "openai"}),
	}
}

func (c *OpenAIClient) Name() string { return "openai" }

func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	req = c.defaults.apply(req)
	ctx, cancel := c.defaults.withTimeout(ctx)
	defer cancel()

	body := chatRequest{
		Model:       req.Model,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		MaxTokens:   req.MaxTokens,
		Temperature: *req.Temperature,
	}
	headers := map[string]string{}
	if c.apiKey != "" {
		headers["Authorization"] = "Bearer " + c.apiKey
	}

	var resp chatResponse
	if err := c.http.PostJSON(ctx, c.baseURL+"/chat/completions", headers, body, &resp); err != nil {
		var statusErr *commonhttp.StatusError
		if errors.As(err, &statusErr) {
			c.logger.Warn("completion request rejected", map[string]interface{}{
				"status": statusErr.StatusCode,
				"model":  req.Model,
			})
			if statusErr.StatusCode == http.StatusTooManyRequests {
				return "", fmt.Errorf("%w: %v", ErrQuota, err)
			}
			return "", fmt.Errorf("%w: %v", ErrFailed, err)
		}
		return "", classify(ctx, err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
