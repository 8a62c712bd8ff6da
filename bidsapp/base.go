package bidsapp

import (
	"context"
	"errors"

	"github.com/bids-apps/batch-wrapper/models/common"
)

// Step is one stage of the wrapper pipeline.
type Step interface {
	// Name returns the step name under which results are recorded.
	Name() string
	// Enabled returns false when the job's config doesn't call for
	// this step.
	Enabled() bool
	Run(context.Context) error
}

// Warner is implemented by steps that can succeed with a warning,
// such as a partial output sync.
type Warner interface {
	Warning() string
}

// Base is the base type for the steps in the bidsapp namespace.
type Base struct {
	Context *common.Context
	Runner  Runner
}

// Config is a shortcut to the job's config.
func (b *Base) Config() *common.Config {
	return b.Context.Config
}

// ExitCodeFor returns the exit status the wrapper should report for
// err: zero for nil, the command's status for a failed command, and
// one for everything else.
func ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *common.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode != 0 {
		return exitErr.ExitCode
	}
	return 1
}
