package workers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/bids-apps/batch-wrapper/bidsapp"
	"github.com/bids-apps/batch-wrapper/constants"
	"github.com/bids-apps/batch-wrapper/models/common"
	"github.com/bids-apps/batch-wrapper/models/service"
	"github.com/bids-apps/batch-wrapper/network"
	"github.com/bids-apps/batch-wrapper/util"
)

// BIDSJob runs the wrapper pipeline for a single batch job. Steps run
// in order, and the first one that fails ends the job. Disabled steps
// are recorded as skipped.
type BIDSJob struct {
	// Context contains the job's config and its S3, Redis and NSQ
	// clients.
	Context *common.Context

	// Runner runs the external commands (singularity, s3cmd).
	Runner bidsapp.Runner

	// Notifier publishes the job summary when the job ends. It's nil
	// unless NSQ is configured.
	Notifier network.NSQClientInterface

	// Steps are the pipeline steps, in the order they run.
	Steps []bidsapp.Step

	// Results holds one WorkResult for each step that was attempted
	// or skipped, plus one for the notification.
	Results []*service.WorkResult
}

// NewBIDSJob returns a job that runs the standard pipeline:
// configure credentials, pull image, stage input, run app, sync output.
func NewBIDSJob(context *common.Context, runner bidsapp.Runner) *BIDSJob {
	job := &BIDSJob{
		Context: context,
		Runner:  runner,
		Steps: []bidsapp.Step{
			bidsapp.NewCredentialConfigurator(context),
			bidsapp.NewImageFetcher(context, runner),
			bidsapp.NewInputStager(context),
			bidsapp.NewAppRunner(context, runner),
			bidsapp.NewOutputSynchronizer(context, runner),
		},
		Results: make([]*service.WorkResult, 0),
	}
	if context.NSQClient != nil {
		job.Notifier = context.NSQClient
	}
	return job
}

// Run runs the job and returns the exit status the wrapper should
// exit with, along with the error that ended the job, if any.
func (job *BIDSJob) Run(ctx context.Context) (int, error) {
	lockFile := job.Context.Config.PidFilePath()
	if err := job.acquireLock(lockFile); err != nil {
		job.Context.Logger.Error(err.Error())
		return bidsapp.ExitCodeFor(err), err
	}
	defer job.releaseLock(lockFile)
	job.resetStatus()

	var err error
	for _, step := range job.Steps {
		if err = job.runStep(ctx, step); err != nil {
			break
		}
	}
	exitCode := bidsapp.ExitCodeFor(err)
	if err == nil {
		job.Context.Logger.Infof("Job %s completed", job.Context.Config.JobID)
	} else {
		job.Context.Logger.Errorf("Job %s failed with exit code %d", job.Context.Config.JobID, exitCode)
	}
	job.notify(exitCode, err)
	return exitCode, err
}

func (job *BIDSJob) runStep(ctx context.Context, step bidsapp.Step) error {
	jobID := job.Context.Config.JobID
	result := service.NewWorkResult(jobID, step.Name())
	job.Results = append(job.Results, result)

	if !step.Enabled() {
		job.Context.Logger.Infof("Skipping %s: not configured", step.Name())
		result.Skip()
		job.saveResult(result)
		return nil
	}
	if ctx.Err() != nil {
		err := common.NewError(fmt.Sprintf("Job cancelled before %s", step.Name()), ctx.Err(), true)
		result.AddError(service.NewProcessingError(jobID, step.Name(), err.Error(), 0, true))
		job.saveResult(result)
		return err
	}

	job.Context.Logger.Infof("Starting %s", step.Name())
	result.Start()
	job.saveResult(result)
	err := step.Run(ctx)
	result.Finish()
	if err != nil {
		job.Context.Logger.Errorf("%s failed: %s", step.Name(), errorDetail(err))
		result.AddError(service.NewProcessingError(jobID, step.Name(), err.Error(),
			bidsapp.ExitCodeFor(err), true))
	} else if warner, ok := step.(bidsapp.Warner); ok && warner.Warning() != "" {
		result.AddError(service.NewProcessingError(jobID, step.Name(), warner.Warning(), 0, false))
	} else {
		job.Context.Logger.Infof("Finished %s in %s", step.Name(), result.RunTime().Round(time.Millisecond))
	}
	job.saveResult(result)
	return err
}

// Summary describes the job's outcome.
func (job *BIDSJob) Summary(exitCode int, err error) *service.JobSummary {
	config := job.Context.Config
	summary := &service.JobSummary{
		JobID:      config.JobID,
		Container:  config.Container,
		SnapshotID: config.SnapshotID,
		AnalysisID: config.AnalysisID,
		Succeeded:  err == nil,
		ExitCode:   exitCode,
		FinishedAt: time.Now().UTC(),
		Steps:      job.Results,
	}
	if err != nil {
		summary.Message = err.Error()
	}
	return summary
}

// notify publishes the job summary to NSQ. Failure to notify doesn't
// change the job's outcome.
func (job *BIDSJob) notify(exitCode int, err error) {
	if job.Notifier == nil {
		return
	}
	config := job.Context.Config
	summary := job.Summary(exitCode, err)
	result := service.NewWorkResult(config.JobID, constants.StepNotify)
	result.Start()
	pubErr := job.Notifier.PublishSummary(config.NsqTopic, summary)
	result.Finish()
	if pubErr != nil {
		job.Context.Logger.Warningf("Could not publish summary of job %s to NSQ topic %s: %v",
			config.JobID, config.NsqTopic, pubErr)
		result.AddError(service.NewProcessingError(config.JobID, constants.StepNotify,
			pubErr.Error(), 0, false))
	} else {
		job.Context.Logger.Infof("Published summary of job %s to NSQ topic %s", config.JobID, config.NsqTopic)
	}
	job.Results = append(job.Results, result)
	job.saveResult(result)
}

// saveResult records result in Redis, if Redis is configured. Redis
// is informational, so errors here are logged and otherwise ignored.
func (job *BIDSJob) saveResult(result *service.WorkResult) {
	if job.Context.RedisClient == nil {
		return
	}
	if err := job.Context.RedisClient.WorkResultSave(result); err != nil {
		job.Context.Logger.Warningf("Could not save %s result to Redis: %v", result.Step, err)
	}
}

// resetStatus clears step results left in Redis by an earlier attempt
// at this job.
func (job *BIDSJob) resetStatus() {
	redisClient := job.Context.RedisClient
	if redisClient == nil {
		return
	}
	if _, err := redisClient.Ping(); err != nil {
		job.Context.Logger.Warningf("Redis at %s is unavailable. Job status won't be recorded: %v",
			job.Context.Config.RedisURL, err)
		return
	}
	if err := redisClient.JobDelete(job.Context.Config.JobID); err != nil {
		job.Context.Logger.Warningf("Could not clear old status of job %s: %v", job.Context.Config.JobID, err)
	}
}

// acquireLock keeps two wrappers from sharing one home directory,
// since both would rewrite the same s3cmd config.
func (job *BIDSJob) acquireLock(lockFile string) error {
	homeDir := job.Context.Config.HomeDir
	if err := os.MkdirAll(homeDir, 0755); err != nil {
		return common.NewError(fmt.Sprintf("Cannot create home dir %s", homeDir), err, true)
	}
	if err := util.AcquirePidLock(lockFile); err != nil {
		return common.NewError(fmt.Sprintf("Another wrapper is using home dir %s", homeDir), err, true)
	}
	return nil
}

func (job *BIDSJob) releaseLock(lockFile string) {
	if err := util.ReleasePidLock(lockFile); err != nil {
		job.Context.Logger.Warningf("Could not remove lock file %s: %v", lockFile, err)
	}
}

func errorDetail(err error) string {
	var detailed common.DetailedError
	if errors.As(err, &detailed) {
		return detailed.Detail()
	}
	return err.Error()
}
