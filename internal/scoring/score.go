package scoring

import "sort"

// MatchResult is the outcome of comparing a job's keywords with a candidate's.
type MatchResult struct {
	Matched int      `json:"matched"`
	Total   int      `json:"total"`
	Score   int      `json:"score"`
	Missing []string `json:"missing,omitempty"`
}

// Score compares job keywords against candidate keywords. Total is the size
// of the job set, so an empty job description always scores 0.
func Score(job, candidate KeywordSet) MatchResult {
	res := MatchResult{Total: len(job)}
	for w := range job {
		if candidate.Contains(w) {
			res.Matched++
		} else {
			res.Missing = append(res.Missing, w)
		}
	}
	if res.Total == 0 {
		return res
	}

	res.Score = res.Matched * 100 / res.Total
	if res.Score > 100 {
		res.Score = 100
	}
	sort.Strings(res.Missing)
	return res
}

// Match extracts keywords from both texts and scores them.
func Match(jobDescription, candidateText string) MatchResult {
	return Score(ExtractKeywords(jobDescription), ExtractKeywords(candidateText))
}
