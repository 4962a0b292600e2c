// Package schemas validates persisted JSON documents against versioned JSON
// Schemas. The voice profile and confidence breakdown columns are stored as
// JSON blobs; readers validate shape here instead of trusting arbitrary JSON.
package schemas

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed *.schema.json
var schemaFiles embed.FS

// Schema names accepted by Validate.
const (
	VoiceProfileSchema        = "voice_profile"
	ConfidenceBreakdownSchema = "confidence_breakdown"
)

var (
	compiled   = make(map[string]*gojsonschema.Schema)
	compiledMu sync.Mutex
)

// FieldError is a single validation failure at a specific field path.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError reports one or more schema violations in a document.
type ValidationError struct {
	Schema string
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s validation failed:", e.Schema))
	for _, fe := range e.Errors {
		sb.WriteString(fmt.Sprintf(" %s: %s;", fe.Field, fe.Message))
	}
	return strings.TrimSuffix(sb.String(), ";")
}

// Validate checks a JSON document against the named embedded schema.
// Returns *ValidationError when the document does not conform.
func Validate(schemaName string, document []byte) error {
	schema, err := load(schemaName)
	if err != nil {
		return err
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return fmt.Errorf("failed to validate against %s schema: %w", schemaName, err)
	}
	if result.Valid() {
		return nil
	}

	verr := &ValidationError{
		Schema: schemaName,
		Errors: make([]FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		verr.Errors = append(verr.Errors, FieldError{Field: field, Message: desc.Description()})
	}
	return verr
}

// ValidateVoiceProfile checks a stored voice_profile blob.
func ValidateVoiceProfile(document []byte) error {
	return Validate(VoiceProfileSchema, document)
}

// ValidateConfidenceBreakdown checks a stored confidence_breakdown blob.
func ValidateConfidenceBreakdown(document []byte) error {
	return Validate(ConfidenceBreakdownSchema, document)
}

// load compiles and caches an embedded schema.
func load(name string) (*gojsonschema.Schema, error) {
	compiledMu.Lock()
	defer compiledMu.Unlock()

	if schema, ok := compiled[name]; ok {
		return schema, nil
	}

	data, err := schemaFiles.ReadFile(name + ".schema.json")
	if err != nil {
		return nil, fmt.Errorf("unknown schema %q: %w", name, err)
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema %q: %w", name, err)
	}

	compiled[name] = schema
	return schema, nil
}
