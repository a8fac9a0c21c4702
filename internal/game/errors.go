package game

import "fmt"

// ErrorCode is the machine-readable code carried on ERROR events.
type ErrorCode string

const (
	CodeUnauthorized  ErrorCode = "UNAUTHORIZED"
	CodePhaseConflict ErrorCode = "PHASE_CONFLICT"
	CodeValidation    ErrorCode = "VALIDATION_ERROR"
)

// Error is a rejected command. It is reported to the issuing connection
// only and never mutates session state.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unauthorizedf rejects a command issued by the wrong role.
func Unauthorizedf(format string, args ...any) *Error {
	return &Error{Code: CodeUnauthorized, Message: fmt.Sprintf(format, args...)}
}

// PhaseConflictf rejects a command that is invalid in the current phase.
func PhaseConflictf(format string, args ...any) *Error {
	return &Error{Code: CodePhaseConflict, Message: fmt.Sprintf(format, args...)}
}

// Validationf rejects a malformed command payload.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}
