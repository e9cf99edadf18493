package rewrite

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"resume-tailor/internal/common/logger"
	"resume-tailor/internal/common/metrics"
	"resume-tailor/internal/common/observability"
	"resume-tailor/internal/completion"
)

// Rewriter sends rewrite prompts to a completion service. Calls are never
// retried: the first failure fails the request.
type Rewriter struct {
	completer   completion.Completer
	obs         *observability.Observability
	logger      logger.Logger
	concurrency int
}

type Options struct {
	// Concurrency bounds the in-flight calls of one RewriteBullets request.
	Concurrency int
	Obs         *observability.Observability
}

func New(c completion.Completer, opts Options, log logger.Logger) *Rewriter {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Obs == nil {
		opts.Obs = observability.NewNoop()
	}
	return &Rewriter{
		completer:   c,
		obs:         opts.Obs,
		logger:      log.WithFields(map[string]interface{}{"component": "rewriter", "provider": c.Name()}),
		concurrency: opts.Concurrency,
	}
}

// RewriteBlock rewrites a free-text resume block as a single unit. A blank
// block is returned untouched.
func (r *Rewriter) RewriteBlock(ctx context.Context, block, jobDescription string) (string, error) {
	if strings.TrimSpace(block) == "" {
		return block, nil
	}
	return r.rewriteUnit(ctx, block, jobDescription)
}

// RewriteBullets rewrites each bullet independently and returns the results
// in input order. Blank bullets are passed through untouched.
func (r *Rewriter) RewriteBullets(ctx context.Context, bullets []string, jobDescription string) ([]string, error) {
	out := make([]string, len(bullets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, b := range bullets {
		if strings.TrimSpace(b) == "" {
			out[i] = b
			continue
		}
		g.Go(func() error {
			text, err := r.rewriteUnit(gctx, b, jobDescription)
			if err != nil {
				return err
			}
			out[i] = text
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Rewriter) rewriteUnit(ctx context.Context, unit, jobDescription string) (string, error) {
	ctx, span := r.obs.StartSpan(ctx, "rewrite.unit",
		attribute.String("provider", r.completer.Name()),
		attribute.Int("unit.length", len(unit)),
	)
	defer span.End()

	start := time.Now()
	text, err := r.completer.Complete(ctx, completion.Request{Prompt: BuildPrompt(unit, jobDescription)})
	if err == nil {
		text = CleanCompletion(text)
		if text == "" {
			err = completion.ErrEmptyResponse
		}
	}

	outcome := "success"
	if err != nil {
		outcome = "error"
		if errors.Is(err, completion.ErrTimeout) {
			outcome = "timeout"
		}
	}
	metrics.RewriteDuration.WithLabelValues(r.completer.Name(), outcome).Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		r.logger.Warn("rewrite failed", map[string]interface{}{
			"outcome": outcome,
			"error":   err.Error(),
		})
		return "", &RewriteServiceError{Unit: unit, Cause: err}
	}
	return text, nil
}
