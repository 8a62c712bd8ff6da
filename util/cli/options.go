package cli

import (
	"github.com/bids-apps/batch-wrapper/constants"
	"github.com/bids-apps/batch-wrapper/models/common"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Option describes a command-line flag and the config setting it sets.
type Option struct {
	Flag      string
	ConfigKey string
	Default   string
	Usage     string
}

// Options lists every flag the wrapper accepts. Each can also be set
// through the environment variable named by ConfigKey.
var Options = []Option{
	{"aws-access-key-id", common.KeyAccessKey, "", "AWS access keys to access s3 instance."},
	{"aws-secret-key", common.KeySecretKey, "", "AWS secret key for s3 instance."},
	{"bids-container", common.KeyContainer, "", "path.tag for BIDS app container."},
	{"bids-container-hosting", common.KeyContainerHosting, constants.HostingSingularity, "container hosting (singularity or docker) service of bids container."},
	{"bids-analysis-id", common.KeyAnalysisID, "", "A unique key for a combination of dataset and parameters."},
	{"bids-dataset-bucket", common.KeyDatasetBucket, "", "S3 Bucket containing BIDS directories."},
	{"output-bucket", common.KeyOutputBucket, "", "Writable S3 Bucket for output."},
	{"bids-snapshot-id", common.KeySnapshotID, "", "The key to reference a particular BIDS directory."},
	{"bids-analysis-level", common.KeyAnalysisLevel, "", "The level of analysis to be performed (participant, group)."},
	{"bids-arguments", common.KeyBIDSArguments, "", "Additional required parameters for the bids container."},
	{"config", common.KeyConfigFile, "", "Optional .env file with settings not given on the command line or in the environment."},
	{"work-dir", common.KeyWorkDir, constants.DefaultWorkDir, "Local scratch directory. Input and output live under <work-dir>/<job id>."},
	{"home-dir", common.KeyHomeDir, "", "Directory for .s3cfg. Defaults to the current user's home directory."},
	{"s3cfg-mode", common.KeyS3CfgMode, constants.S3CfgModeTemplate, "How to write .s3cfg: 'template' copies the site template and appends keys, 'direct' writes keys only."},
	{"s3cfg-template", common.KeyS3CfgTemplate, constants.DefaultS3CfgTemplate, "Site s3cmd config template used in template mode."},
	{"registry-scheme", common.KeyRegistryScheme, constants.SchemeShub, "Registry scheme for singularity-hosted containers (shub or singularity)."},
	{"log-dir", common.KeyLogDir, "", "Directory for the log file. Logs go only to stderr when empty."},
	{"log-level", common.KeyLogLevel, "INFO", "CRITICAL, ERROR, WARNING, NOTICE, INFO or DEBUG."},
}

var EnvMessage = `Every option can also come from the environment. The following are
read at startup and never again:

AWS_BATCH_JOB_ID  - Names the local job directory and the Redis status key.
                    A random id is generated when this is not set.
AWS_CLI_CONTAINER - Container with s3cmd used to sync output. When empty,
                    the host's s3cmd is used.
OUTPUT_BUCKET     - Bucket that receives analysis output.
BIDS_SNAPSHOT_ID  - Snapshot key for input staging and output paths.
BIDS_ANALYSIS_ID  - Analysis key for output paths.
REDIS_URL         - Optional. Records per-step job status in Redis.
NSQ_URL/NSQ_TOPIC - Optional. Publishes a job summary to nsqd when done.
`

// RegisterFlags adds all Options to flags.
func RegisterFlags(flags *pflag.FlagSet) {
	for _, opt := range Options {
		flags.String(opt.Flag, opt.Default, opt.Usage)
	}
}

// BindFlags binds each registered flag to its config key in v, so an
// explicit flag overrides the environment and the config file.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for _, opt := range Options {
		if err := v.BindPFlag(opt.ConfigKey, flags.Lookup(opt.Flag)); err != nil {
			return err
		}
	}
	return nil
}
