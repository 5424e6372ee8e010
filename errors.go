package metaport

import (
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrorCode represents a machine-readable error code.
type ErrorCode string

const (
	CodeUnsupportedShape           ErrorCode = "unsupported_shape"
	CodeUnsupportedOwner           ErrorCode = "unsupported_owner"
	CodeUnsupportedScope           ErrorCode = "unsupported_scope"
	CodeNotImplemented             ErrorCode = "not_implemented"
	CodeDepthExceeded              ErrorCode = "depth_exceeded"
	CodeUnresolvedGenericParameter ErrorCode = "unresolved_generic_parameter"
	CodeInvalidArgument            ErrorCode = "invalid_argument"
)

// Sentinels for errors.Is. Any *Error with the same code matches.
var (
	ErrUnsupportedShape           = NewError(CodeUnsupportedShape, "unsupported type shape")
	ErrUnsupportedOwner           = NewError(CodeUnsupportedOwner, "unsupported generic parameter owner")
	ErrUnsupportedScope           = NewError(CodeUnsupportedScope, "unsupported type scope")
	ErrNotImplemented             = NewError(CodeNotImplemented, "not implemented")
	ErrDepthExceeded              = NewError(CodeDepthExceeded, "import depth exceeded")
	ErrUnresolvedGenericParameter = NewError(CodeUnresolvedGenericParameter, "unresolved generic parameter")
	ErrInvalidArgument            = NewError(CodeInvalidArgument, "invalid argument")
)

// Error is the error envelope returned by import operations.
type Error struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a new import error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Errorf creates a new import error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithDetail returns a copy of e with key set in its details.
func (e *Error) WithDetail(key string, value any) *Error {
	return e.WithDetails(map[string]any{key: value})
}

// WithDetails returns a copy of e with details merged over its own. An empty
// map returns e itself.
func (e *Error) WithDetails(details map[string]any) *Error {
	if len(details) == 0 {
		return e
	}
	out := *e
	out.Details = make(map[string]any, len(e.Details)+len(details))
	maps.Copy(out.Details, e.Details)
	maps.Copy(out.Details, details)
	return &out
}

// AsError maps err to an *Error. An *Error in the chain is returned as is;
// validator.ValidationErrors become invalid_argument with one detail per
// field. Any other error yields nil.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}

	var impErr *Error
	if errors.As(err, &impErr) {
		return impErr
	}

	var valErrs validator.ValidationErrors
	if errors.As(err, &valErrs) {
		details := make(map[string]any, len(valErrs))
		parts := make([]string, len(valErrs))
		for i, fe := range valErrs {
			msg := describeFieldError(fe)
			details[fe.Field()] = msg
			parts[i] = fe.Field() + ": " + msg
		}
		return &Error{
			Code:    CodeInvalidArgument,
			Message: strings.Join(parts, "; "),
			Details: details,
		}
	}

	return nil
}

// describeFieldError renders one failed validation rule for Error.Details.
func describeFieldError(fe validator.FieldError) string {
	param := fe.Param()
	switch fe.Tag() {
	case "required":
		return "required"
	case "gte", "min":
		return "must be at least " + param
	case "lte", "max":
		return "must be at most " + param
	case "oneof":
		return "must be one of: " + param
	}
	if param == "" {
		return "failed " + fe.Tag() + " validation"
	}
	return "failed " + fe.Tag() + "=" + param + " validation"
}
