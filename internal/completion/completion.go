// Package completion talks to the hosted text-completion services used to
// rewrite resume content.
package completion

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"resume-tailor/internal/common/config"
	"resume-tailor/internal/common/logger"
)

var (
	ErrTimeout       = errors.New("COMPLETION_TIMEOUT")
	ErrQuota         = errors.New("COMPLETION_QUOTA_EXCEEDED")
	ErrEmptyResponse = errors.New("COMPLETION_EMPTY_RESPONSE")
	ErrFailed        = errors.New("COMPLETION_FAILED")
)

// Request is a single completion call. Zero fields fall back to the
// client's configured defaults; a nil Temperature does too.
type Request struct {
	Prompt      string
	Model       string
	MaxTokens   int
	Temperature *float64
}

// Completer returns the completion text for a prompt.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
	// Name identifies the provider in logs and metrics.
	Name() string
}

// Defaults are applied to requests that leave a field unset.
type Defaults struct {
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

func (d Defaults) apply(req Request) Request {
	if req.Model == "" {
		req.Model = d.Model
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = d.MaxTokens
	}
	if req.Temperature == nil {
		t := d.Temperature
		req.Temperature = &t
	}
	return req
}

func (d Defaults) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.Timeout)
}

// classify maps a transport failure onto the package sentinels.
func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrFailed, err)
}

// New builds the client for cfg.Provider.
func New(ctx context.Context, cfg config.CompletionConfig, log logger.Logger) (Completer, error) {
	defaults := Defaults{
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: config.DefaultTemperature,
		Timeout:     config.GetDuration(cfg.Timeout),
	}
	if cfg.Temperature != nil {
		defaults.Temperature = *cfg.Temperature
	}

	switch cfg.Provider {
	case "", config.ProviderOpenAI:
		return NewOpenAIClient(cfg.BaseURL, cfg.APIKey, defaults, log), nil
	case config.ProviderGemini:
		return NewGeminiClient(ctx, cfg.BaseURL, cfg.APIKey, defaults, log)
	default:
		return nil, fmt.Errorf("unknown completion provider %q", cfg.Provider)
	}
}
