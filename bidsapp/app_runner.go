package bidsapp

import (
	"context"
	"fmt"
	"os"

	"github.com/bids-apps/batch-wrapper/constants"
	"github.com/bids-apps/batch-wrapper/models/common"
	"github.com/bids-apps/batch-wrapper/util"
)

// AppRunner runs the BIDS app container against the staged dataset.
// BIDS apps share a calling convention:
//
//	<app> <bids_dir> <output_dir> <analysis_level> [app options]
type AppRunner struct {
	Base
}

func NewAppRunner(context *common.Context, runner Runner) *AppRunner {
	return &AppRunner{
		Base: Base{Context: context, Runner: runner},
	}
}

func (a *AppRunner) Name() string {
	return constants.StepRunApp
}

func (a *AppRunner) Enabled() bool {
	return a.Config().RunEnabled()
}

func (a *AppRunner) Run(ctx context.Context) error {
	command, err := a.Command()
	if err != nil {
		return err
	}
	for _, dir := range []string{a.Config().InputDir(), a.Config().OutputDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return common.NewError(fmt.Sprintf("Cannot create %s", dir), err, true)
		}
	}
	return a.Runner.Run(ctx, command, nil)
}

// Command returns the singularity run command for the BIDS app.
func (a *AppRunner) Command() (string, error) {
	config := a.Config()
	uri, err := ImageURI(config)
	if err != nil {
		return "", err
	}
	appArgs, err := util.ShellSplit(config.BIDSArguments)
	if err != nil {
		return "", common.NewError(err.Error(), err, true)
	}
	args := []string{
		SingularityBinary, "run",
		"-B", config.InputDir() + ":" + constants.DefaultDatasetMount + ":ro",
		"-B", config.OutputDir() + ":" + constants.DefaultOutputMount,
		uri,
		constants.DefaultDatasetMount,
		constants.DefaultOutputMount,
		config.AnalysisLevel,
	}
	return util.ShellJoin(append(args, appArgs...)...), nil
}
