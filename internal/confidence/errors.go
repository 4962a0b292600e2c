package confidence

import "fmt"

// EvaluationError represents a failure to score a draft. Callers must treat
// an unscored draft as requiring mandatory human review, never auto-send.
type EvaluationError struct {
	Message string
	Cause   error
}

func (e *EvaluationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("evaluation error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("evaluation error: %s", e.Message)
}

func (e *EvaluationError) Unwrap() error {
	return e.Cause
}
