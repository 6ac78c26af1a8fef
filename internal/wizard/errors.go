package wizard

import "fmt"

const (
	CodeValidation        = "validation"
	CodeUnknownField      = "unknown_field"
	CodeSessionNotFound   = "session_not_found"
	CodeOutOfOrder        = "out_of_order_submission"
	CodeIncomplete        = "incomplete_submission"
	CodeUnsupportedFormat = "unsupported_format"
	CodePersistence       = "persistence_error"
	CodeInternal          = "internal"
)

// Error is the typed error returned to callers of the wizard. Sentinel values
// below match any Error with the same Code under errors.Is.
type Error struct {
	Code    string
	Message string
	// Field names the field involved, if any. For incomplete submissions it
	// is the current unresolved field.
	Field string
	Err   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrValidation        = &Error{Code: CodeValidation}
	ErrUnknownField      = &Error{Code: CodeUnknownField}
	ErrSessionNotFound   = &Error{Code: CodeSessionNotFound}
	ErrOutOfOrder        = &Error{Code: CodeOutOfOrder}
	ErrIncomplete        = &Error{Code: CodeIncomplete}
	ErrUnsupportedFormat = &Error{Code: CodeUnsupportedFormat}
	ErrPersistence       = &Error{Code: CodePersistence}
)

func NewValidationError(message string) error {
	return &Error{Code: CodeValidation, Message: message}
}

func NewUnknownFieldError(field string, err error) error {
	return &Error{Code: CodeUnknownField, Message: "unknown field " + field, Field: field, Err: err}
}

func NewSessionNotFoundError(id string, err error) error {
	return &Error{Code: CodeSessionNotFound, Message: "session " + id + " not found", Err: err}
}

func NewOutOfOrderError(field, current string) error {
	return &Error{
		Code:    CodeOutOfOrder,
		Message: fmt.Sprintf("field %s cannot be answered before %s", field, current),
		Field:   current,
	}
}

func NewIncompleteError(current string) error {
	return &Error{
		Code:    CodeIncomplete,
		Message: "field " + current + " is not resolved",
		Field:   current,
	}
}

func NewUnsupportedFormatError(format string) error {
	return &Error{Code: CodeUnsupportedFormat, Message: fmt.Sprintf("format %q is not supported", format)}
}

func NewPersistenceError(err error) error {
	return &Error{Code: CodePersistence, Message: err.Error(), Err: err}
}

func NewInternalError(message string, err error) error {
	return &Error{Code: CodeInternal, Message: message, Err: err}
}
