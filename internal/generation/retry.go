package generation

import (
	"errors"
	"fmt"
)

// DefaultMaxAttempts is the default number of backend calls per generation.
const DefaultMaxAttempts = 3

// ErrExhausted is returned when every attempt failed.
var ErrExhausted = errors.New("generation attempts exhausted")

// FeedbackFunc returns the corrective instruction appended to the prompt
// after attempt (1-based) failed with err.
type FeedbackFunc func(attempt int, err error) string

// RetryPolicy bounds generation retries and supplies corrective feedback.
// It is independent of prompt wording.
type RetryPolicy struct {
	MaxAttempts int
	Feedback    FeedbackFunc
}

// DefaultRetryPolicy returns a policy with maxAttempts attempts and
// ShapeFeedback as its feedback generator.
func DefaultRetryPolicy(maxAttempts int) RetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	return RetryPolicy{MaxAttempts: maxAttempts, Feedback: ShapeFeedback}
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// retryPrompt is the base prompt followed by feedback for the last failure.
func (p RetryPolicy) retryPrompt(base string, attempt int, err error) string {
	if p.Feedback == nil {
		return base
	}
	fb := p.Feedback(attempt, err)
	if fb == "" {
		return base
	}
	return base + "\n\n" + fb
}

const shapeHint = "Respond with exactly one fenced block:\n```json\n{\"text\": \"<reply text>\", \"action\": \"NONE\"}\n```"

// ShapeFeedback describes the required output shape, naming what was wrong
// with the previous attempt when the failure was a parse failure.
func ShapeFeedback(attempt int, err error) string {
	var problem string
	switch {
	case errors.Is(err, ErrNoJSONBlock):
		problem = "did not contain a fenced ```json block"
	case errors.Is(err, ErrInvalidJSON):
		problem = "contained a block that is not a JSON object"
	case errors.Is(err, ErrMissingTextField):
		problem = "was missing the string field \"text\""
	case errors.Is(err, ErrEmptyResponse):
		problem = "had an empty \"text\" field"
	default:
		problem = "could not be used"
	}
	return fmt.Sprintf("Note: attempt %d %s. %s", attempt, problem, shapeHint)
}
