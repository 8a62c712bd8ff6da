package bidsapp_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/bids-apps/batch-wrapper/bidsapp"
	"github.com/bids-apps/batch-wrapper/constants"
	"github.com/bids-apps/batch-wrapper/models/common"
	"github.com/bids-apps/batch-wrapper/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppRunnerEnabled(t *testing.T) {
	ctx, _ := newTestContext(t, nil)
	appRunner := bidsapp.NewAppRunner(ctx, &fakeRunner{})
	assert.Equal(t, constants.StepRunApp, appRunner.Name())
	assert.False(t, appRunner.Enabled())

	ctx.Config.AnalysisLevel = constants.AnalysisLevelParticipant
	assert.True(t, appRunner.Enabled())
}

func TestAppRunnerCommand(t *testing.T) {
	ctx, _ := newTestContext(t, func(config *common.Config) {
		config.AnalysisLevel = constants.AnalysisLevelParticipant
		config.BIDSArguments = `--participant_label 01 02 --license "free surfer"`
	})
	appRunner := bidsapp.NewAppRunner(ctx, &fakeRunner{})
	command, err := appRunner.Command()
	require.Nil(t, err)

	expected := fmt.Sprintf("singularity run -B %s:/bids_dataset:ro -B %s:/output "+
		"shub://org/app:tag /bids_dataset /output participant "+
		"--participant_label 01 02 --license 'free surfer'",
		ctx.Config.InputDir(), ctx.Config.OutputDir())
	assert.Equal(t, expected, command)
}

func TestAppRunnerBadArguments(t *testing.T) {
	ctx, _ := newTestContext(t, func(config *common.Config) {
		config.AnalysisLevel = constants.AnalysisLevelGroup
		config.BIDSArguments = `--unterminated "quote`
	})
	_, err := bidsapp.NewAppRunner(ctx, &fakeRunner{}).Command()
	assert.NotNil(t, err)
}

func TestAppRunnerRun(t *testing.T) {
	ctx, _ := newTestContext(t, func(config *common.Config) {
		config.AnalysisLevel = constants.AnalysisLevelGroup
	})
	runner := &fakeRunner{}
	appRunner := bidsapp.NewAppRunner(ctx, runner)
	require.Nil(t, appRunner.Run(context.Background()))
	require.Equal(t, 1, len(runner.Commands()))
	assert.Contains(t, runner.Commands()[0], "/bids_dataset /output group")
	assert.True(t, util.FileExists(ctx.Config.InputDir()))
	assert.True(t, util.FileExists(ctx.Config.OutputDir()))

	runner.err = common.NewExitError("singularity run", 3, nil)
	err := appRunner.Run(context.Background())
	assert.Equal(t, 3, bidsapp.ExitCodeFor(err))
}
