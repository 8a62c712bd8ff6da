package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bids-apps/batch-wrapper/constants"
	"github.com/bids-apps/batch-wrapper/util"
	"github.com/google/uuid"
	"github.com/nsqio/go-nsq"
	"github.com/op/go-logging"
	"github.com/spf13/viper"
)

// Config holds every setting for a single wrapper run. It's loaded and
// validated once at startup, then passed to each step. Nothing reads
// the environment after that.
type Config struct {
	AccessKey        string
	AnalysisID       string
	AnalysisLevel    string
	BIDSArguments    string
	CLIContainer     string
	ConfigFile       string
	Container        string
	ContainerHosting string
	DatasetBucket    string
	HomeDir          string
	JobID            string
	LogDir           string
	LogLevel         logging.Level
	NsqTopic         string
	NsqURL           string
	OutputBucket     string
	RedisDefaultDB   int
	RedisPassword    string
	RedisURL         string
	RegistryScheme   string
	S3CfgMode        string
	S3CfgTemplate    string
	S3Host           string
	S3UseSSL         bool
	SecretKey        string
	Shell            string
	SnapshotID       string
	WorkDir          string
}

var logLevels = map[string]logging.Level{
	"CRITICAL": logging.CRITICAL,
	"ERROR":    logging.ERROR,
	"WARNING":  logging.WARNING,
	"NOTICE":   logging.NOTICE,
	"INFO":     logging.INFO,
	"DEBUG":    logging.DEBUG,
}

// Setting names. Viper matches these case-insensitively against env
// vars, entries in the optional .env file, and bound CLI flags.
const (
	KeyAccessKey        = "AWS_ACCESS_KEY_ID"
	KeyAnalysisID       = "BIDS_ANALYSIS_ID"
	KeyAnalysisLevel    = "BIDS_ANALYSIS_LEVEL"
	KeyBIDSArguments    = "BIDS_ARGUMENTS"
	KeyCLIContainer     = "AWS_CLI_CONTAINER"
	KeyConfigFile       = "CONFIG_FILE"
	KeyContainer        = "BIDS_CONTAINER"
	KeyContainerHosting = "BIDS_CONTAINER_HOSTING"
	KeyDatasetBucket    = "BIDS_DATASET_BUCKET"
	KeyHomeDir          = "HOME_DIR"
	KeyJobID            = "AWS_BATCH_JOB_ID"
	KeyLogDir           = "LOG_DIR"
	KeyLogLevel         = "LOG_LEVEL"
	KeyNsqTopic         = "NSQ_TOPIC"
	KeyNsqURL           = "NSQ_URL"
	KeyOutputBucket     = "OUTPUT_BUCKET"
	KeyRedisDefaultDB   = "REDIS_DEFAULT_DB"
	KeyRedisPassword    = "REDIS_PASSWORD"
	KeyRedisURL         = "REDIS_URL"
	KeyRegistryScheme   = "SINGULARITY_REGISTRY_SCHEME"
	KeyS3CfgMode        = "S3CFG_MODE"
	KeyS3CfgTemplate    = "S3CFG_TEMPLATE"
	KeyS3Host           = "S3_HOST"
	KeyS3UseSSL         = "S3_USE_SSL"
	KeySecretKey        = "AWS_SECRET_ACCESS_KEY"
	KeyShell            = "SHELL_PATH"
	KeySnapshotID       = "BIDS_SNAPSHOT_ID"
	KeyWorkDir          = "WORK_DIR"
)

// NewViper returns a viper instance with our defaults that reads
// settings from the environment.
func NewViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault(KeyContainerHosting, constants.HostingSingularity)
	v.SetDefault(KeyLogLevel, "INFO")
	v.SetDefault(KeyRegistryScheme, constants.SchemeShub)
	v.SetDefault(KeyS3CfgMode, constants.S3CfgModeTemplate)
	v.SetDefault(KeyS3CfgTemplate, constants.DefaultS3CfgTemplate)
	v.SetDefault(KeyS3Host, constants.DefaultS3Host)
	v.SetDefault(KeyS3UseSSL, true)
	v.SetDefault(KeyShell, constants.DefaultShell)
	v.SetDefault(KeyWorkDir, constants.DefaultWorkDir)
	return v
}

// NewConfig builds a Config from v, which should already have CLI
// flags bound to it. If CONFIG_FILE is set, settings in that .env
// file fill in anything the flags and environment did not.
func NewConfig(v *viper.Viper) (*Config, error) {
	configFile := v.GetString(KeyConfigFile)
	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return nil, NewError(fmt.Sprintf("Cannot read config file %s", configFile), err, true)
		}
	}
	levelName := strings.ToUpper(v.GetString(KeyLogLevel))
	if _, ok := logLevels[levelName]; !ok {
		return nil, NewError(fmt.Sprintf("Unknown log level '%s'", levelName), nil, true)
	}
	config := loadConfig(v)
	if err := config.expandPaths(); err != nil {
		return nil, NewError("Cannot expand config paths", err, true)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func loadConfig(v *viper.Viper) *Config {
	return &Config{
		AccessKey:        v.GetString(KeyAccessKey),
		AnalysisID:       v.GetString(KeyAnalysisID),
		AnalysisLevel:    v.GetString(KeyAnalysisLevel),
		BIDSArguments:    v.GetString(KeyBIDSArguments),
		CLIContainer:     v.GetString(KeyCLIContainer),
		ConfigFile:       v.GetString(KeyConfigFile),
		Container:        v.GetString(KeyContainer),
		ContainerHosting: v.GetString(KeyContainerHosting),
		DatasetBucket:    v.GetString(KeyDatasetBucket),
		HomeDir:          v.GetString(KeyHomeDir),
		JobID:            v.GetString(KeyJobID),
		LogDir:           v.GetString(KeyLogDir),
		LogLevel:         logLevels[strings.ToUpper(v.GetString(KeyLogLevel))],
		NsqTopic:         v.GetString(KeyNsqTopic),
		NsqURL:           v.GetString(KeyNsqURL),
		OutputBucket:     v.GetString(KeyOutputBucket),
		RedisDefaultDB:   v.GetInt(KeyRedisDefaultDB),
		RedisPassword:    v.GetString(KeyRedisPassword),
		RedisURL:         v.GetString(KeyRedisURL),
		RegistryScheme:   v.GetString(KeyRegistryScheme),
		S3CfgMode:        v.GetString(KeyS3CfgMode),
		S3CfgTemplate:    v.GetString(KeyS3CfgTemplate),
		S3Host:           v.GetString(KeyS3Host),
		S3UseSSL:         v.GetBool(KeyS3UseSSL),
		SecretKey:        v.GetString(KeySecretKey),
		Shell:            v.GetString(KeyShell),
		SnapshotID:       v.GetString(KeySnapshotID),
		WorkDir:          v.GetString(KeyWorkDir),
	}
}

// Expand ~ to home dir in path settings, and fill in the home dir
// and job id when they weren't supplied.
func (c *Config) expandPaths() error {
	var err error
	if c.HomeDir == "" {
		if c.HomeDir, err = os.UserHomeDir(); err != nil {
			return err
		}
	}
	if c.JobID == "" {
		c.JobID = uuid.NewString()
	}
	for _, dir := range []*string{&c.HomeDir, &c.LogDir, &c.WorkDir, &c.S3CfgTemplate} {
		if *dir, err = util.ExpandTilde(*dir); err != nil {
			return err
		}
	}
	return nil
}

// Validate returns an error describing the first problem it finds
// with this config, or nil if the config is usable.
func (c *Config) Validate() error {
	if c.AccessKey == "" {
		return c.invalid("AWS access key id is required")
	}
	if c.SecretKey == "" {
		return c.invalid("AWS secret key is required")
	}
	if c.Container == "" {
		return c.invalid("BIDS container is required")
	}
	if !util.StringListContains(constants.Hostings, c.ContainerHosting) {
		return c.invalid("Container hosting must be one of %s, not '%s'",
			strings.Join(constants.Hostings, ", "), c.ContainerHosting)
	}
	if !util.StringListContains(constants.SingularitySchemes, c.RegistryScheme) {
		return c.invalid("Singularity registry scheme must be one of %s, not '%s'",
			strings.Join(constants.SingularitySchemes, ", "), c.RegistryScheme)
	}
	if !util.StringListContains(constants.S3CfgModes, c.S3CfgMode) {
		return c.invalid("S3 config mode must be one of %s, not '%s'",
			strings.Join(constants.S3CfgModes, ", "), c.S3CfgMode)
	}
	if c.AnalysisLevel != "" && !util.StringListContains(constants.AnalysisLevels, c.AnalysisLevel) {
		return c.invalid("Analysis level must be one of %s, not '%s'",
			strings.Join(constants.AnalysisLevels, ", "), c.AnalysisLevel)
	}
	if c.OutputBucket != "" && (c.SnapshotID == "" || c.AnalysisID == "") {
		return c.invalid("Output sync requires output bucket, snapshot id and analysis id")
	}
	if c.DatasetBucket != "" && c.SnapshotID == "" {
		return c.invalid("Staging from dataset bucket %s requires a snapshot id", c.DatasetBucket)
	}
	if (c.NsqURL == "") != (c.NsqTopic == "") {
		return c.invalid("NSQ notification requires both NSQ url and topic")
	}
	if c.NsqTopic != "" && !nsq.IsValidTopicName(c.NsqTopic) {
		return c.invalid("'%s' is not a valid NSQ topic name", c.NsqTopic)
	}
	return nil
}

func (c *Config) invalid(format string, args ...interface{}) *Error {
	return NewError(fmt.Sprintf(format, args...), nil, true)
}

// S3CfgPath returns the path of the s3cmd config file we write.
func (c *Config) S3CfgPath() string {
	return filepath.Join(c.HomeDir, constants.S3CfgFileName)
}

// PidFilePath returns the path of the lock file that keeps two
// wrappers from writing the same s3cmd config at once.
func (c *Config) PidFilePath() string {
	return filepath.Join(c.HomeDir, constants.PidFileName)
}

// JobDir returns the local scratch directory for this job.
func (c *Config) JobDir() string {
	return filepath.Join(c.WorkDir, c.JobID)
}

// InputDir is where staged BIDS data lands.
func (c *Config) InputDir() string {
	return filepath.Join(c.JobDir(), "input")
}

// OutputDir is where the BIDS app writes results and where the sync
// step reads them.
func (c *Config) OutputDir() string {
	return filepath.Join(c.JobDir(), "output")
}

// OutputURL returns the s3cmd destination for analysis output.
func (c *Config) OutputURL() string {
	return fmt.Sprintf("s3://%s/%s/%s/", c.OutputBucket, c.SnapshotID, c.AnalysisID)
}

func (c *Config) StagingEnabled() bool {
	return c.DatasetBucket != "" && c.SnapshotID != ""
}

func (c *Config) RunEnabled() bool {
	return c.AnalysisLevel != ""
}

func (c *Config) SyncEnabled() bool {
	return c.OutputBucket != "" && c.SnapshotID != "" && c.AnalysisID != ""
}

func (c *Config) RedisEnabled() bool {
	return c.RedisURL != ""
}

func (c *Config) NsqEnabled() bool {
	return c.NsqURL != "" && c.NsqTopic != ""
}
