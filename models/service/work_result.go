package service

import (
	"encoding/json"
	"os"
	"strings"
	"sync"
	"time"
)

type WorkResult struct {
	// JobID is the AWS batch job id, or a generated id when the wrapper
	// runs outside of AWS batch.
	JobID string `json:"job_id"`

	// Step is the name of the pipeline step: configure_credentials,
	// pull_image, sync_output, etc.
	Step string `json:"step"`

	// Host is the name of the network host on which the wrapper is running.
	Host string `json:"host"`

	// Pid is the pid of the wrapper doing this work.
	Pid int `json:"pid"`

	// StartedAt describes when the step started. If StartedAt.IsZero(),
	// the step has not run.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt describes when the step completed. Note that the step
	// may have completed without succeeding. Check the Succeeded()
	// method to see if it actually completed successfully.
	FinishedAt time.Time `json:"finished_at"`

	// Skipped is true when the job's config does not call for this
	// step, for example sync_output when there is no output bucket.
	Skipped bool `json:"skipped"`

	// Errors is a list of ProcessingError objects describing things
	// that went wrong during the step. Don't write to this. It's
	// public so we can serialize it to/from JSON, but access is locked
	// internally with a mutex.
	Errors []*ProcessingError `json:"errors"`

	mutex *sync.RWMutex
}

func NewWorkResult(jobID, step string) *WorkResult {
	hostname, _ := os.Hostname()
	return &WorkResult{
		JobID:  jobID,
		Step:   step,
		Host:   hostname,
		Pid:    os.Getpid(),
		Errors: make([]*ProcessingError, 0),
		mutex:  &sync.RWMutex{},
	}
}

func (result *WorkResult) Start() {
	result.StartedAt = time.Now().UTC()
}

func (result *WorkResult) Started() bool {
	return !result.StartedAt.IsZero()
}

func (result *WorkResult) Finish() {
	result.FinishedAt = time.Now().UTC()
}

func (result *WorkResult) Finished() bool {
	return !result.FinishedAt.IsZero()
}

// Skip marks the step as finished without having done anything.
func (result *WorkResult) Skip() {
	result.Skipped = true
	result.Start()
	result.Finish()
}

func (result *WorkResult) RunTime() time.Duration {
	startTime := result.StartedAt
	if startTime.IsZero() {
		return time.Duration(0)
	}
	endTime := result.FinishedAt
	if endTime.IsZero() {
		endTime = time.Now()
	}
	return endTime.Sub(startTime)
}

// Succeeded returns true if the step finished with no fatal errors.
// A partial sync records a non-fatal error but still succeeds.
func (result *WorkResult) Succeeded() bool {
	return result.Finished() && !result.HasFatalErrors()
}

// AddError adds a ProcessingError to the result.
func (result *WorkResult) AddError(err *ProcessingError) {
	result.mutex.Lock()
	result.Errors = append(result.Errors, err)
	result.mutex.Unlock()
}

// HasErrors returns true if this result has any errors,
// fatal or not.
func (result *WorkResult) HasErrors() bool {
	result.mutex.RLock()
	hasErrors := len(result.Errors) > 0
	result.mutex.RUnlock()
	return hasErrors
}

// FatalErrors returns a list of all of this result's fatal errors.
func (result *WorkResult) FatalErrors() (errors []*ProcessingError) {
	result.mutex.RLock()
	for _, err := range result.Errors {
		if err.IsFatal {
			errors = append(errors, err)
		}
	}
	result.mutex.RUnlock()
	return errors
}

// HasFatalErrors returns true if this result has any fatal errors.
func (result *WorkResult) HasFatalErrors() bool {
	return len(result.FatalErrors()) > 0
}

// FatalErrorMessage returns all fatal error messages as a single
// pipe-demilimited string.
func (result *WorkResult) FatalErrorMessage() string {
	errors := result.FatalErrors()
	messages := make([]string, len(errors))
	for i, err := range errors {
		messages[i] = err.Message
	}
	return strings.Join(messages[:], " | ")
}

// WorkResultFromJSON converts the JSON representation of a WorkResult
// into a full-fledged object. Note that this involves not only deserializing
// the JSON, but also initializing an internal mutex. If you deserialize
// without this function, you'll eventually run into nil pointer exceptions
// because the mutex won't exist.
func WorkResultFromJSON(jsonData string) (*WorkResult, error) {
	result := &WorkResult{}
	err := json.Unmarshal([]byte(jsonData), result)
	if err != nil {
		return nil, err
	}
	result.mutex = &sync.RWMutex{}
	return result, nil
}

func (result *WorkResult) ToJSON() (string, error) {
	bytes, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}
