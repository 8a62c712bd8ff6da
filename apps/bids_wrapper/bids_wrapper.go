package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/bids-apps/batch-wrapper/bidsapp"
	"github.com/bids-apps/batch-wrapper/models/common"
	"github.com/bids-apps/batch-wrapper/util/cli"
	"github.com/bids-apps/batch-wrapper/workers"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const longHelp = `bids_wrapper runs a BIDS app as an AWS Batch job.

It writes an s3cmd config with the job's AWS credentials, pulls the BIDS
app container with singularity, optionally stages a dataset snapshot
from S3, runs the app, and syncs its output back to S3. Output from
singularity and s3cmd is streamed to stdout as it arrives.

The exit status is 0 on success. When singularity or s3cmd fails, the
wrapper exits with that command's status. Other errors exit with 1.

`

func newRootCmd(exitCode *int) *cobra.Command {
	v := common.NewViper()
	cmd := &cobra.Command{
		Use:           "bids_wrapper",
		Short:         "Run a BIDS app as an AWS Batch job",
		Long:          longHelp + cli.EnvMessage,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.BindFlags(v, cmd.Flags()); err != nil {
				return err
			}
			code, err := runJob(cmd.Context(), v, cmd.OutOrStdout())
			*exitCode = code
			return err
		},
	}
	cli.RegisterFlags(cmd.Flags())
	return cmd
}

func runJob(ctx context.Context, v *viper.Viper, output io.Writer) (int, error) {
	config, err := common.NewConfig(v)
	if err != nil {
		return 1, err
	}
	_context, err := common.NewContext(config)
	if err != nil {
		return 1, err
	}
	defer _context.Close()
	_context.Logger.Infof("Starting job %s for %s", config.JobID, config.Container)
	runner := bidsapp.NewShellRunner(_context.Logger, output, config.Shell,
		config.SecretKey, config.AccessKey)
	return workers.NewBIDSJob(_context, runner).Run(ctx)
}

// execute runs cmd until it finishes or we get SIGINT or SIGTERM, and
// returns the process exit status.
func execute(cmd *cobra.Command, exitCode *int) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err.Error())
		if *exitCode == 0 {
			return 1
		}
	}
	return *exitCode
}

func main() {
	exitCode := 0
	os.Exit(execute(newRootCmd(&exitCode), &exitCode))
}
