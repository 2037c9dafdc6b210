package validation

import "strings"

// FieldError is a single user-facing violation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors aggregates every violation found in one pass.
type Errors []FieldError

func (e Errors) Error() string {
	return strings.Join(e.Messages(), "; ")
}

// Add appends a violation.
func (e *Errors) Add(field, message string) {
	*e = append(*e, FieldError{Field: field, Message: message})
}

// For returns the first message reported for field.
func (e Errors) For(field string) string {
	for _, fe := range e {
		if fe.Field == field {
			return fe.Message
		}
	}
	return ""
}

// Messages returns the messages in report order.
func (e Errors) Messages() []string {
	out := make([]string, len(e))
	for i, fe := range e {
		out[i] = fe.Message
	}
	return out
}

// OrNil returns nil for an empty set so callers can return it as error.
func (e Errors) OrNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}
