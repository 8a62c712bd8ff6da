package bidsapp

import (
	"context"
	"errors"
	"fmt"

	"github.com/bids-apps/batch-wrapper/constants"
	"github.com/bids-apps/batch-wrapper/models/common"
	"github.com/bids-apps/batch-wrapper/util"
)

// S3cmdBinary is the s3cmd executable, inside the CLI container or on
// the host.
const S3cmdBinary = "s3cmd"

// OutputSynchronizer copies the BIDS app's output to the output bucket
// with s3cmd sync.
type OutputSynchronizer struct {
	Base
	warning string
}

func NewOutputSynchronizer(context *common.Context, runner Runner) *OutputSynchronizer {
	return &OutputSynchronizer{
		Base: Base{Context: context, Runner: runner},
	}
}

func (s *OutputSynchronizer) Name() string {
	return constants.StepSyncOutput
}

func (s *OutputSynchronizer) Enabled() bool {
	return s.Config().SyncEnabled()
}

// Run syncs output to S3. s3cmd exits with status 2 when it copied
// only some of the files. We log that as a warning and carry on. All
// other failures are fatal.
func (s *OutputSynchronizer) Run(ctx context.Context) error {
	err := s.Runner.Run(ctx, s.Command(), nil)
	var exitErr *common.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode == constants.ExitCodePartialSync {
		s.warning = fmt.Sprintf("s3cmd sync to %s returned code %d: partial copy",
			s.Config().OutputURL(), exitErr.ExitCode)
		s.Context.Logger.Warning(s.warning)
		return nil
	}
	return err
}

// Warning describes a partial sync. It's empty if the last sync
// copied everything.
func (s *OutputSynchronizer) Warning() string {
	return s.warning
}

// Command returns the s3cmd sync command. When AWS_CLI_CONTAINER is
// set, s3cmd runs inside that container with the output directory
// mounted at /output. Otherwise we use the host's s3cmd.
func (s *OutputSynchronizer) Command() string {
	config := s.Config()
	s3cmd := []string{
		S3cmdBinary, "-c", config.S3CfgPath(), "sync",
	}
	if config.CLIContainer == "" {
		args := append(s3cmd, config.OutputDir()+"/", config.OutputURL())
		return util.ShellJoin(args...)
	}
	args := []string{
		SingularityBinary, "exec",
		"-B", config.OutputDir() + ":" + constants.DefaultOutputMount,
		"-B", config.S3CfgPath(),
		config.CLIContainer,
	}
	args = append(args, s3cmd...)
	args = append(args, constants.DefaultOutputMount+"/", config.OutputURL())
	return util.ShellJoin(args...)
}
