package common_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bids-apps/batch-wrapper/models/common"
	"github.com/op/go-logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setRequiredEnv sets the minimum settings for a valid config.
func setRequiredEnv(t *testing.T) string {
	homeDir := t.TempDir()
	t.Setenv(common.KeyAccessKey, "AK")
	t.Setenv(common.KeySecretKey, "SK")
	t.Setenv(common.KeyContainer, "org/app:tag")
	t.Setenv(common.KeyHomeDir, homeDir)
	return homeDir
}

func TestNewConfig(t *testing.T) {
	homeDir := setRequiredEnv(t)
	t.Setenv(common.KeyJobID, "job-1234")

	config, err := common.NewConfig(common.NewViper())
	require.Nil(t, err)
	assert.Equal(t, "AK", config.AccessKey)
	assert.Equal(t, "SK", config.SecretKey)
	assert.Equal(t, "org/app:tag", config.Container)
	assert.Equal(t, "singularity", config.ContainerHosting)
	assert.Equal(t, "shub", config.RegistryScheme)
	assert.Equal(t, "template", config.S3CfgMode)
	assert.Equal(t, "/etc/generic-msi.s3cfg", config.S3CfgTemplate)
	assert.Equal(t, "s3.amazonaws.com", config.S3Host)
	assert.True(t, config.S3UseSSL)
	assert.Equal(t, "/bin/sh", config.Shell)
	assert.Equal(t, logging.INFO, config.LogLevel)
	assert.Equal(t, "job-1234", config.JobID)
	assert.Equal(t, filepath.Join(homeDir, ".s3cfg"), config.S3CfgPath())
	assert.Equal(t, filepath.Join(homeDir, ".bids-wrapper.pid"), config.PidFilePath())
	assert.Equal(t, "/data/job-1234/input", config.InputDir())
	assert.Equal(t, "/data/job-1234/output", config.OutputDir())

	assert.False(t, config.StagingEnabled())
	assert.False(t, config.RunEnabled())
	assert.False(t, config.SyncEnabled())
	assert.False(t, config.RedisEnabled())
	assert.False(t, config.NsqEnabled())
}

func TestNewConfigGeneratesJobID(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv(common.KeyJobID, "")
	config, err := common.NewConfig(common.NewViper())
	require.Nil(t, err)
	assert.Len(t, config.JobID, 36)
}

func TestNewConfigFromFile(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv(common.KeyOutputBucket, "env-bucket")
	configFile := filepath.Join(t.TempDir(), ".env.test")
	data := "OUTPUT_BUCKET=file-bucket\n" +
		"BIDS_SNAPSHOT_ID=ds000001\n" +
		"BIDS_ANALYSIS_ID=analysis-9\n" +
		"REDIS_URL=localhost:6379\n" +
		"LOG_LEVEL=debug\n"
	require.Nil(t, os.WriteFile(configFile, []byte(data), 0644))
	t.Setenv(common.KeyConfigFile, configFile)

	config, err := common.NewConfig(common.NewViper())
	require.Nil(t, err)
	// Environment beats config file
	assert.Equal(t, "env-bucket", config.OutputBucket)
	assert.Equal(t, "ds000001", config.SnapshotID)
	assert.Equal(t, "analysis-9", config.AnalysisID)
	assert.Equal(t, logging.DEBUG, config.LogLevel)
	assert.True(t, config.SyncEnabled())
	assert.True(t, config.RedisEnabled())
	assert.Equal(t, "s3://env-bucket/ds000001/analysis-9/", config.OutputURL())
}

func TestNewConfigMissingFile(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv(common.KeyConfigFile, "/no/such/.env.file")
	_, err := common.NewConfig(common.NewViper())
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "Cannot read config file")
}

func TestNewConfigBadLogLevel(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv(common.KeyLogLevel, "CHATTY")
	_, err := common.NewConfig(common.NewViper())
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "CHATTY")
}

func validConfig() *common.Config {
	return &common.Config{
		AccessKey:        "AK",
		SecretKey:        "SK",
		Container:        "org/app:tag",
		ContainerHosting: "singularity",
		RegistryScheme:   "shub",
		S3CfgMode:        "template",
		WorkDir:          "/data",
		JobID:            "job-1",
	}
}

func TestConfigValidate(t *testing.T) {
	assert.Nil(t, validConfig().Validate())

	tests := map[string]func(*common.Config){
		"access key id is required":   func(c *common.Config) { c.AccessKey = "" },
		"secret key is required":      func(c *common.Config) { c.SecretKey = "" },
		"container is required":       func(c *common.Config) { c.Container = "" },
		"hosting must be one of":      func(c *common.Config) { c.ContainerHosting = "quay" },
		"registry scheme must be one": func(c *common.Config) { c.RegistryScheme = "library" },
		"config mode must be one of":  func(c *common.Config) { c.S3CfgMode = "merge" },
		"level must be one of":        func(c *common.Config) { c.AnalysisLevel = "session" },
		"requires output bucket":      func(c *common.Config) { c.OutputBucket = "out" },
		"requires a snapshot id":      func(c *common.Config) { c.DatasetBucket = "datasets" },
		"requires both NSQ url":       func(c *common.Config) { c.NsqURL = "http://localhost:4151" },
		"not a valid NSQ topic":       func(c *common.Config) { c.NsqURL = "http://localhost:4151"; c.NsqTopic = "bad topic!" },
	}
	for expected, breakIt := range tests {
		config := validConfig()
		breakIt(config)
		err := config.Validate()
		require.NotNil(t, err, expected)
		assert.Contains(t, err.Error(), expected)
		var cErr *common.Error
		require.ErrorAs(t, err, &cErr)
		assert.True(t, cErr.IsFatal)
	}
}

func TestConfigStepsEnabled(t *testing.T) {
	config := validConfig()
	config.DatasetBucket = "openneuro"
	config.SnapshotID = "ds000001"
	config.AnalysisID = "a1"
	config.OutputBucket = "results"
	config.AnalysisLevel = "participant"
	config.NsqURL = "http://localhost:4151"
	config.NsqTopic = "bids_job_done"
	require.Nil(t, config.Validate())
	assert.True(t, config.StagingEnabled())
	assert.True(t, config.RunEnabled())
	assert.True(t, config.SyncEnabled())
	assert.True(t, config.NsqEnabled())
}
