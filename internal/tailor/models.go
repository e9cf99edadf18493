// Package tailor runs a single resume submission through authorization,
// scoring and rewriting.
//
// Only the structured builder has required fields. A simple submission with
// an empty resume is still scored, and its empty block is not sent for
// rewriting.
package tailor

import (
	"errors"
	"strings"

	"resume-tailor/internal/common/validation"
	"resume-tailor/internal/scoring"
)

// Variant distinguishes the two submission forms.
type Variant string

const (
	// VariantSimple is a free-text resume block plus a job description.
	VariantSimple Variant = "simple"
	// VariantStructured is the resume builder form with experience blocks.
	VariantStructured Variant = "structured"
)

// MaxExperiences is the number of experience blocks the builder accepts.
const MaxExperiences = 2

// State is a step of the submission state machine.
type State string

const (
	StateReceived        State = "RECEIVED"
	StateAuthCheck       State = "AUTH_CHECK"
	StateUnauthorized    State = "UNAUTHORIZED"
	StateAuthorized      State = "AUTHORIZED"
	StateValidate        State = "VALIDATE"
	StateExtractAndScore State = "EXTRACT_AND_SCORE"
	StateRewrite         State = "REWRITE"
	StateResult          State = "RESULT"
	StateError           State = "ERROR"
)

// transitions lists every allowed (from -> to) pair.
//
//	RECEIVED -> AUTH_CHECK -> AUTHORIZED -> VALIDATE -> EXTRACT_AND_SCORE -> REWRITE -> RESULT
//	                 |                          |               |              |
//	                 v                          +---------------+--------------+--> ERROR
//	            UNAUTHORIZED
var transitions = map[State][]State{
	StateReceived:        {StateAuthCheck},
	StateAuthCheck:       {StateAuthorized, StateUnauthorized},
	StateAuthorized:      {StateValidate},
	StateValidate:        {StateExtractAndScore, StateError},
	StateExtractAndScore: {StateRewrite, StateError},
	StateRewrite:         {StateResult, StateError},
}

// CanTransition reports whether the state machine may move from -> to.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	_, ok := transitions[s]
	return !ok
}

var ErrUnauthorized = errors.New("no valid access grant")

type Experience struct {
	Company  string   `json:"company"`
	Role     string   `json:"role"`
	Duration string   `json:"duration,omitempty"`
	Bullets  []string `json:"bullets,omitempty"`
}

func (e Experience) blank() bool {
	return e.Company == "" && e.Role == "" && e.Duration == "" && len(e.Bullets) == 0
}

// Submission is what the user typed. It is returned unchanged on error so
// the form can be redisplayed.
type Submission struct {
	Variant        Variant      `json:"-"`
	Resume         string       `json:"resume,omitempty"`
	JobDescription string       `json:"jobDescription"`
	Name           string       `json:"name,omitempty"`
	Email          string       `json:"email,omitempty"`
	Phone          string       `json:"phone,omitempty"`
	JobTitle       string       `json:"jobTitle,omitempty"`
	Experiences    []Experience `json:"experiences,omitempty"`
}

// SplitBullets turns a newline separated textarea into bullet lines,
// dropping blank lines.
func SplitBullets(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// RewrittenSection is one experience block after rewriting.
type RewrittenSection struct {
	Company  string   `json:"company"`
	Role     string   `json:"role"`
	Duration string   `json:"duration,omitempty"`
	Bullets  []string `json:"bullets"`
}

// Result is the outcome of a submission. Exactly one of Rewritten/Sections
// is set on success, depending on the variant.
type Result struct {
	State     State               `json:"state"`
	Path      []State             `json:"path"`
	Match     scoring.MatchResult `json:"match"`
	Rewritten string              `json:"rewritten,omitempty"`
	Sections  []RewrittenSection  `json:"sections,omitempty"`
	Input     Submission          `json:"input"`
	Err       error               `json:"-"`
}

// ValidationError lists the fields of a submission that failed validation.
type ValidationError struct {
	Fields []validation.ValidationError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "submission is invalid"
	}
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Message)
	}
	return "submission is invalid: " + strings.Join(msgs, "; ")
}

// HasField reports whether field (or one of its children) failed.
func (e *ValidationError) HasField(field string) bool {
	r := validation.ValidationResult{Errors: e.Fields}
	return r.HasField(field)
}
