package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keywords(words ...string) KeywordSet {
	s := make(KeywordSet)
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{
			name:     "empty input",
			text:     "",
			expected: []string{},
		},
		{
			name:     "splits on punctuation and whitespace",
			text:     "AWS, Kubernetes. Terraform\tGo",
			expected: []string{"aws", "go", "kubernetes", "terraform"},
		},
		{
			name:     "drops single characters",
			text:     "a b c Go R",
			expected: []string{"go"},
		},
		{
			name:     "deduplicates case-insensitively",
			text:     "Python python PYTHON",
			expected: []string{"python"},
		},
		{
			name:     "slashes separate tokens",
			text:     "CI/CD",
			expected: []string{"ci", "cd"},
		},
		{
			name:     "digits are kept",
			text:     "Reduced costs by 30% in 2023",
			expected: []string{"2023", "30", "by", "costs", "in", "reduced"},
		},
		{
			name:     "unicode letters are kept",
			text:     "Gérant d'équipe",
			expected: []string{"gérant", "équipe"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractKeywords(tt.text)
			assert.ElementsMatch(t, tt.expected, got.Sorted())
		})
	}
}

func TestExtractKeywords_IsPure(t *testing.T) {
	text := "Senior DevOps Engineer with AWS Kubernetes CI/CD"
	assert.Equal(t, ExtractKeywords(text), ExtractKeywords(text))
}

func TestScore_DevOpsPosting(t *testing.T) {
	job := ExtractKeywords("Senior DevOps Engineer with AWS Kubernetes CI/CD")
	resume := ExtractKeywords("Managed AWS deployments")

	require.ElementsMatch(t,
		[]string{"senior", "devops", "engineer", "with", "aws", "kubernetes", "ci", "cd"},
		job.Sorted())

	res := Score(job, resume)
	assert.Equal(t, 1, res.Matched)
	assert.Equal(t, 8, res.Total)
	assert.Equal(t, 12, res.Score)
	assert.NotContains(t, res.Missing, "aws")
	assert.Len(t, res.Missing, 7)
}

func TestScore_EmptyJobDescription(t *testing.T) {
	for _, resume := range []string{"", "Managed AWS deployments", "anything at all"} {
		res := Match("", resume)
		assert.Equal(t, MatchResult{}, res, "resume %q", resume)
	}
}

func TestScore_SelfMatchIsPerfect(t *testing.T) {
	sets := []KeywordSet{
		keywords("go"),
		keywords("go", "aws", "kubernetes"),
		ExtractKeywords("We need a backend engineer fluent in Go, Postgres and Redis"),
	}
	for _, j := range sets {
		res := Score(j, j)
		assert.Equal(t, 100, res.Score)
		assert.Equal(t, res.Total, res.Matched)
		assert.Empty(t, res.Missing)
	}
}

func TestScore_Bounds(t *testing.T) {
	tests := []struct {
		name      string
		job       KeywordSet
		candidate KeywordSet
		expected  int
	}{
		{"no overlap", keywords("go", "aws"), keywords("java"), 0},
		{"half overlap", keywords("go", "aws"), keywords("go"), 50},
		{"superset candidate", keywords("go"), keywords("go", "aws", "gcp"), 100},
		{"floors fractions", keywords("aa", "bb", "cc"), keywords("aa"), 33},
		{"two thirds floors", keywords("aa", "bb", "cc"), keywords("aa", "bb"), 66},
		{"empty candidate", keywords("go"), keywords(), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Score(tt.job, tt.candidate)
			assert.Equal(t, tt.expected, res.Score)
			assert.GreaterOrEqual(t, res.Score, 0)
			assert.LessOrEqual(t, res.Score, 100)
			assert.LessOrEqual(t, res.Matched, res.Total)
		})
	}
}
