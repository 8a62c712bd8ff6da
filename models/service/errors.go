package service

import (
	"fmt"
	"runtime"
)

type ProcessingError struct {
	ExitCode int
	IsFatal  bool
	JobID    string
	Message  string
	Source   string
	Step     string
}

// NewProcessingError returns a new ProcessingError. Param jobID is the
// batch job being processed when the error occurred, and step is the
// pipeline step that failed. Param exitCode is the status of the
// external command that failed, or zero if the error did not come from
// a command. Fatal errors abort the job. The only non-fatal error we
// record is a partial output sync.
func NewProcessingError(jobID, step, message string, exitCode int, isFatal bool) *ProcessingError {
	_, filename, line, ok := runtime.Caller(1)
	source := "unknown:0"
	if ok {
		source = fmt.Sprintf("%s:%d", filename, line)
	}
	return &ProcessingError{
		ExitCode: exitCode,
		IsFatal:  isFatal,
		JobID:    jobID,
		Message:  message,
		Source:   source,
		Step:     step,
	}
}

func (e *ProcessingError) Error() string {
	severity := "non-fatal"
	if e.IsFatal {
		severity = "fatal"
	}
	source := "unknown:0"
	if e.Source != "" {
		source = e.Source
	}
	return fmt.Sprintf("(job %s) (step: %s) (message: %s) (exit code: %d) "+
		"(severity: %s) (source: %s)", e.JobID, e.Step, e.Message,
		e.ExitCode, severity, source)
}
