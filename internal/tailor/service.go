package tailor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"resume-tailor/internal/access"
	"resume-tailor/internal/common/logger"
	"resume-tailor/internal/common/metrics"
	"resume-tailor/internal/scoring"
)

// Rewriter is the part of rewrite.Rewriter the service needs.
type Rewriter interface {
	RewriteBlock(ctx context.Context, block, jobDescription string) (string, error)
	RewriteBullets(ctx context.Context, bullets []string, jobDescription string) ([]string, error)
}

// Service processes submissions. It holds no per-request state.
type Service struct {
	store    access.Store
	rewriter Rewriter
	logger   logger.Logger
}

func NewService(store access.Store, rewriter Rewriter, log logger.Logger) *Service {
	return &Service{
		store:    store,
		rewriter: rewriter,
		logger:   log.WithFields(map[string]interface{}{"component": "tailor"}),
	}
}

// run tracks the states one submission passes through.
type run struct {
	res *Result
}

func (r *run) enter(s State) {
	if len(r.res.Path) > 0 && !CanTransition(r.res.State, s) {
		panic(fmt.Sprintf("tailor: illegal transition %s -> %s", r.res.State, s))
	}
	r.res.State = s
	r.res.Path = append(r.res.Path, s)
}

func (r *run) fail(err error) *Result {
	r.enter(StateError)
	r.res.Err = err
	return r.res
}

// Submit runs sub through the state machine. The returned Result is always
// non-nil and always carries the original input; Err is set for the
// UNAUTHORIZED and ERROR terminal states.
func (s *Service) Submit(ctx context.Context, token string, sub Submission) *Result {
	r := &run{res: &Result{Input: sub}}
	r.enter(StateReceived)

	res := s.process(ctx, r, token, sub)

	metrics.SubmissionsTotal.WithLabelValues(string(variantOf(sub)), string(res.State)).Inc()
	fields := map[string]interface{}{
		"variant": string(variantOf(sub)),
		"state":   string(res.State),
		"score":   res.Match.Score,
	}
	if res.Err != nil && res.State == StateError {
		fields["error"] = res.Err.Error()
		s.logger.Warn("submission failed", fields)
	} else {
		s.logger.Info("submission processed", fields)
	}
	return res
}

func (s *Service) process(ctx context.Context, r *run, token string, sub Submission) *Result {
	r.enter(StateAuthCheck)
	if !s.store.IsAuthorized(ctx, token) {
		r.enter(StateUnauthorized)
		r.res.Err = ErrUnauthorized
		return r.res
	}
	r.enter(StateAuthorized)

	r.enter(StateValidate)
	clean := normalize(sub)
	clean.Variant = variantOf(sub)
	if err := Validate(clean); err != nil {
		return r.fail(err)
	}

	r.enter(StateExtractAndScore)
	r.res.Match = scoring.Match(clean.JobDescription, candidateText(clean))
	metrics.MatchScore.Observe(float64(r.res.Match.Score))

	r.enter(StateRewrite)
	if clean.Variant == VariantStructured {
		sections, err := s.rewriteSections(ctx, clean)
		if err != nil {
			return r.fail(err)
		}
		r.res.Sections = sections
	} else {
		text, err := s.rewriter.RewriteBlock(ctx, clean.Resume, clean.JobDescription)
		if err != nil {
			return r.fail(err)
		}
		r.res.Rewritten = text
	}

	if err := ctx.Err(); err != nil {
		return r.fail(err)
	}
	r.enter(StateResult)
	return r.res
}

// rewriteSections rewrites every bullet of every experience in one batch
// and splits the results back per section.
func (s *Service) rewriteSections(ctx context.Context, sub Submission) ([]RewrittenSection, error) {
	var all []string
	for _, e := range sub.Experiences {
		all = append(all, e.Bullets...)
	}

	var rewritten []string
	if len(all) > 0 {
		var err error
		rewritten, err = s.rewriter.RewriteBullets(ctx, all, sub.JobDescription)
		if err != nil {
			return nil, err
		}
		if len(rewritten) != len(all) {
			return nil, errors.New("rewriter returned a different number of bullets")
		}
	}

	sections := make([]RewrittenSection, 0, len(sub.Experiences))
	offset := 0
	for _, e := range sub.Experiences {
		n := len(e.Bullets)
		sections = append(sections, RewrittenSection{
			Company:  e.Company,
			Role:     e.Role,
			Duration: e.Duration,
			Bullets:  append([]string(nil), rewritten[offset:offset+n]...),
		})
		offset += n
	}
	return sections, nil
}

// candidateText is what the job description is scored against: the free
// text block, or the roles and bullets of the structured form.
func candidateText(sub Submission) string {
	if sub.Variant != VariantStructured {
		return sub.Resume
	}
	var b strings.Builder
	for _, e := range sub.Experiences {
		b.WriteString(e.Role)
		for _, line := range e.Bullets {
			b.WriteByte('\n')
			b.WriteString(line)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func variantOf(sub Submission) Variant {
	if sub.Variant == "" {
		return VariantSimple
	}
	return sub.Variant
}
