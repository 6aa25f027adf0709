package message

import "fmt"

// TemplateError reports a placeholder that names no known field
type TemplateError struct {
	Placeholder string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("unknown placeholder {%s} in message template", e.Placeholder)
}

// FormatError reports a format spec that cannot be applied to its field
type FormatError struct {
	Placeholder string
	Spec        string
	Cause       error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("cannot format {%s:%s}: %v", e.Placeholder, e.Spec, e.Cause)
}

func (e *FormatError) Unwrap() error {
	return e.Cause
}
