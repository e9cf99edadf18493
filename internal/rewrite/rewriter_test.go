package rewrite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-tailor/internal/common/logger"
	"resume-tailor/internal/completion"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeCompleter struct {
	calls    int32
	inFlight int32
	peak     int32
	mu       sync.Mutex
	prompts  []string
	respond  func(ctx context.Context, prompt string) (string, error)
}

func (f *fakeCompleter) Name() string { return "fake" }

func (f *fakeCompleter) Complete(ctx context.Context, req completion.Request) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		p := atomic.LoadInt32(&f.peak)
		if n <= p || atomic.CompareAndSwapInt32(&f.peak, p, n) {
			break
		}
	}

	f.mu.Lock()
	f.prompts = append(f.prompts, req.Prompt)
	f.mu.Unlock()

	if f.respond == nil {
		return "Rewritten.", nil
	}
	return f.respond(ctx, req.Prompt)
}

func createTestRewriter(t *testing.T, c *fakeCompleter, concurrency int) *Rewriter {
	return New(c, Options{Concurrency: concurrency}, logger.NewTestLogger(t))
}

// unitOf pulls the resume unit back out of a prompt.
func unitOf(prompt string) string {
	start := strings.Index(prompt, "Resume: ") + len("Resume: ")
	end := strings.Index(prompt, "\nJob: ")
	return prompt[start:end]
}

// ==========================
// Prompt Tests
// ==========================

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt("  - Managed a team of 5 developers ", "Senior DevOps Engineer with AWS")

	assert.Contains(t, p, "Resume: - Managed a team of 5 developers\n")
	assert.Contains(t, p, "Job: Senior DevOps Engineer with AWS")
	assert.Contains(t, p, "under 25 words")
	assert.Contains(t, p, "Do not invent numbers")
	assert.Contains(t, p, "past-tense action verb")
	assert.Contains(t, p, "1-2 EXACT keywords")
	assert.Contains(t, p, "No pronouns")
	assert.Contains(t, p, "scale")
}

func TestCleanCompletion(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Led migration.  ", "Led migration."},
		{`"Led migration."`, "Led migration."},
		{"'Led migration.'", "Led migration."},
		{"“Led migration.”", "Led migration."},
		{"- Led migration.", "Led migration."},
		{"• Led migration.", "Led migration."},
		{`- "Led migration."`, "Led migration."},
		{`Led "Project X" migration.`, `Led "Project X" migration.`},
		{`"`, `"`},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanCompletion(tt.in))
		})
	}
}

// ==========================
// Rewriter Tests
// ==========================

func TestRewriter_RewriteBlock(t *testing.T) {
	c := &fakeCompleter{respond: func(context.Context, string) (string, error) {
		return `"Deployed AWS workloads on Kubernetes."`, nil
	}}
	r := createTestRewriter(t, c, 1)

	out, err := r.RewriteBlock(context.Background(), "Managed AWS deployments", "DevOps with AWS Kubernetes")

	require.NoError(t, err)
	assert.Equal(t, "Deployed AWS workloads on Kubernetes.", out)
	assert.Equal(t, int32(1), c.calls)
}

func TestRewriter_RewriteBlock_BlankSkipsCompletion(t *testing.T) {
	c := &fakeCompleter{respond: func(context.Context, string) (string, error) {
		return "should not be used", nil
	}}
	r := createTestRewriter(t, c, 1)

	out, err := r.RewriteBlock(context.Background(), "  \n", "DevOps with AWS")

	require.NoError(t, err)
	assert.Equal(t, "  \n", out)
	assert.Equal(t, int32(0), c.calls)
}

func TestRewriter_FailureIsRewriteServiceError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		timeout bool
	}{
		{"quota", fmt.Errorf("%w: 429", completion.ErrQuota), false},
		{"transport", fmt.Errorf("%w: connection reset", completion.ErrFailed), false},
		{"timeout", fmt.Errorf("%w: deadline", completion.ErrTimeout), true},
		{"empty", completion.ErrEmptyResponse, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &fakeCompleter{respond: func(context.Context, string) (string, error) {
				return "", tt.err
			}}
			r := createTestRewriter(t, c, 1)

			_, err := r.RewriteBlock(context.Background(), "Managed AWS deployments", "AWS")

			var rse *RewriteServiceError
			require.ErrorAs(t, err, &rse)
			assert.Equal(t, "Managed AWS deployments", rse.Unit)
			assert.Equal(t, tt.timeout, rse.Timeout())
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, int32(1), c.calls, "no retry")
		})
	}
}

func TestRewriter_BlankCompletionFails(t *testing.T) {
	c := &fakeCompleter{respond: func(context.Context, string) (string, error) {
		return `  ""  `, nil
	}}
	r := createTestRewriter(t, c, 1)

	_, err := r.RewriteBlock(context.Background(), "x y", "z")
	assert.ErrorIs(t, err, completion.ErrEmptyResponse)
}

func TestRewriter_RewriteBullets_PreservesOrder(t *testing.T) {
	c := &fakeCompleter{respond: func(_ context.Context, prompt string) (string, error) {
		unit := unitOf(prompt)
		// finish out of order
		if strings.HasSuffix(unit, "one") {
			time.Sleep(20 * time.Millisecond)
		}
		return "Rewrote " + unit, nil
	}}
	r := createTestRewriter(t, c, 3)

	out, err := r.RewriteBullets(context.Background(), []string{"bullet one", "", "bullet three"}, "JD")

	require.NoError(t, err)
	assert.Equal(t, []string{"Rewrote bullet one", "", "Rewrote bullet three"}, out)
	assert.Equal(t, int32(2), c.calls, "blank bullets are not sent")
}

func TestRewriter_RewriteBullets_BoundsConcurrency(t *testing.T) {
	c := &fakeCompleter{respond: func(context.Context, string) (string, error) {
		time.Sleep(10 * time.Millisecond)
		return "ok", nil
	}}
	r := createTestRewriter(t, c, 2)

	bullets := make([]string, 8)
	for i := range bullets {
		bullets[i] = fmt.Sprintf("bullet %d", i)
	}
	_, err := r.RewriteBullets(context.Background(), bullets, "JD")

	require.NoError(t, err)
	assert.Equal(t, int32(8), c.calls)
	assert.LessOrEqual(t, atomic.LoadInt32(&c.peak), int32(2))
}

func TestRewriter_RewriteBullets_FirstFailureCancelsRest(t *testing.T) {
	boom := errors.New("boom")
	c := &fakeCompleter{respond: func(ctx context.Context, prompt string) (string, error) {
		if unitOf(prompt) == "bad" {
			return "", fmt.Errorf("%w: %v", completion.ErrFailed, boom)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(2 * time.Second):
			return "ok", nil
		}
	}}
	r := createTestRewriter(t, c, 4)

	start := time.Now()
	out, err := r.RewriteBullets(context.Background(), []string{"slow a", "bad", "slow b"}, "JD")

	assert.Nil(t, out)
	var rse *RewriteServiceError
	require.ErrorAs(t, err, &rse)
	assert.Equal(t, "bad", rse.Unit)
	assert.Less(t, time.Since(start), time.Second)
}
