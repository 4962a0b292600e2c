package voice

import "fmt"

// ExtractionError indicates voice profile extraction failed. The company's
// previous profile, if any, remains untouched.
type ExtractionError struct {
	Message string
	Cause   error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("voice extraction error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("voice extraction error: %s", e.Message)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}
