package common

import (
	"fmt"
	"runtime"
)

type DetailedError interface {
	Detail() string
}

// Error is a custom error type that includes some additional fields
// to help us debug. See the Detail method.
type Error struct {
	Err     error
	File    string
	IsFatal bool
	Line    int
	Message string
}

func NewError(message string, err error, isFatal bool) *Error {
	_, file, line, _ := runtime.Caller(1)
	return &Error{
		Err:     err,
		File:    file,
		IsFatal: isFatal,
		Line:    line,
		Message: message,
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Error() string {
	return e.Message
}

// This returns a detailed error message.
func (e *Error) Detail() string {
	prefix := ""
	if e.IsFatal {
		prefix = "FATAL: "
	}
	underlyingError := ""
	if e.Err != nil {
		underlyingError = fmt.Sprintf("(Underlying error: %s)", e.Err.Error())
	}
	return fmt.Sprintf("%s%s [%s:%d] %s",
		prefix, e.Message, e.File, e.Line, underlyingError)
}

// ExitError describes an external command that exited with a non-zero
// status. Command should already have secrets redacted, since it ends
// up in logs and in the job summary.
type ExitError struct {
	Command  string
	Err      error
	ExitCode int
}

func NewExitError(command string, exitCode int, err error) *ExitError {
	return &ExitError{
		Command:  command,
		Err:      err,
		ExitCode: exitCode,
	}
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("Non zero return code: %d", e.ExitCode)
}

func (e *ExitError) Detail() string {
	underlyingError := ""
	if e.Err != nil {
		underlyingError = fmt.Sprintf("(Underlying error: %s)", e.Err.Error())
	}
	return fmt.Sprintf("Command '%s' exited with status %d %s",
		e.Command, e.ExitCode, underlyingError)
}
