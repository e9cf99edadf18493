package rewrite

import (
	"errors"
	"fmt"

	"resume-tailor/internal/completion"
)

// RewriteServiceError reports that the completion service could not rewrite
// a unit. It fails the whole request.
type RewriteServiceError struct {
	Unit  string
	Cause error
}

func (e *RewriteServiceError) Error() string {
	return fmt.Sprintf("rewrite service failed: %v", e.Cause)
}

func (e *RewriteServiceError) Unwrap() error {
	return e.Cause
}

// Timeout reports whether the call ran out of time.
func (e *RewriteServiceError) Timeout() bool {
	return errors.Is(e.Cause, completion.ErrTimeout)
}
