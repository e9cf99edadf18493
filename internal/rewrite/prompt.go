// Package rewrite turns resume content into completion requests and the
// completions back into resume content.
package rewrite

import (
	"fmt"
	"strings"
)

// MaxWords is the length limit the rewritten unit is asked to respect.
const MaxWords = 25

const promptTemplate = `Rewrite this resume content to match the job description.
- Keep every factual claim about scale (team sizes, budgets, user counts) exactly as given.
- Do not invent numbers, percentages or metrics that are not in the original.
- Start with a strong past-tense action verb.
- Use 1-2 EXACT keywords from the job description.
- No pronouns ("I", "my", "we"), no fluff.
- Keep it under %d words.
- Reply with the rewritten text only.

Resume: %s
Job: %s`

// BuildPrompt returns the instruction for rewriting a single unit, either one
// bullet or a whole free-text block, against a job description.
func BuildPrompt(unit, jobDescription string) string {
	return fmt.Sprintf(promptTemplate, MaxWords, strings.TrimSpace(unit), strings.TrimSpace(jobDescription))
}

// CleanCompletion strips the decoration models tend to add around a single
// line answer: whitespace, wrapping quotes and a leading list marker.
func CleanCompletion(s string) string {
	s = strings.TrimSpace(s)
	for {
		before := s
		s = trimPair(s, `"`, `"`)
		s = trimPair(s, `'`, `'`)
		s = trimPair(s, "“", "”")
		for _, marker := range []string{"- ", "• ", "* "} {
			s = strings.TrimPrefix(s, marker)
		}
		s = strings.TrimSpace(s)
		if s == before {
			return s
		}
	}
}

func trimPair(s, open, close string) string {
	if len(s) >= len(open)+len(close) && strings.HasPrefix(s, open) && strings.HasSuffix(s, close) {
		return s[len(open) : len(s)-len(close)]
	}
	return s
}
