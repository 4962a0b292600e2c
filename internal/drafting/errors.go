package drafting

import "fmt"

// InsufficientContextError means the candidate record lacks what the
// requested communication type needs, or the model could not produce a
// usable draft from it. No communication is created.
type InsufficientContextError struct {
	Message string
	Cause   error
}

func (e *InsufficientContextError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("insufficient context: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("insufficient context: %s", e.Message)
}

func (e *InsufficientContextError) Unwrap() error {
	return e.Cause
}
