package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/bids-apps/batch-wrapper/models/common"
	"github.com/bids-apps/batch-wrapper/util/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv keeps settings from the developer's environment out of the
// tests.
func clearEnv(t *testing.T) {
	for _, key := range []string{
		common.KeyAccessKey, common.KeySecretKey, common.KeyContainer,
		common.KeyContainerHosting, common.KeyDatasetBucket, common.KeyOutputBucket,
		common.KeySnapshotID, common.KeyAnalysisID, common.KeyAnalysisLevel,
		common.KeyBIDSArguments, common.KeyCLIContainer, common.KeyConfigFile,
		common.KeyJobID, common.KeyLogDir, common.KeyLogLevel, common.KeyNsqURL,
		common.KeyNsqTopic, common.KeyRedisURL, common.KeyS3CfgMode,
		common.KeyS3CfgTemplate, common.KeyRegistryScheme, common.KeyWorkDir,
		common.KeyHomeDir,
	} {
		t.Setenv(key, "")
	}
}

// fakeSingularity puts a singularity script on PATH that logs its
// arguments and exits with exitCode.
func fakeSingularity(t *testing.T, exitCode int) {
	binDir := t.TempDir()
	script := "#!/bin/sh\necho \"singularity $*\"\nexit " + strconv.Itoa(exitCode) + "\n"
	require.Nil(t, os.WriteFile(filepath.Join(binDir, "singularity"), []byte(script), 0755))
	t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func runWrapper(t *testing.T, args ...string) (int, string, string) {
	exitCode := 0
	cmd := newRootCmd(&exitCode)
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	return execute(cmd, &exitCode), stdout.String(), stderr.String()
}

// jobArgs returns the flags for a minimal job, and the home dir
// those flags point to.
func jobArgs(t *testing.T) ([]string, string) {
	tempDir := t.TempDir()
	template, err := testutil.WriteS3CfgTemplate(tempDir)
	require.Nil(t, err)
	homeDir := filepath.Join(tempDir, "home")
	return []string{
		"--aws-access-key-id", "AK",
		"--aws-secret-key", "SK",
		"--bids-container", "org/app:tag",
		"--bids-container-hosting", "singularity",
		"--home-dir", homeDir,
		"--work-dir", filepath.Join(tempDir, "work"),
		"--s3cfg-template", template,
	}, homeDir
}

func TestWrapperHelp(t *testing.T) {
	clearEnv(t)
	exitCode, stdout, _ := runWrapper(t, "--help")
	assert.Equal(t, 0, exitCode)
	assert.Contains(t, stdout, "--bids-container-hosting")
	assert.Contains(t, stdout, "AWS_CLI_CONTAINER")
}

func TestWrapperMissingSettings(t *testing.T) {
	clearEnv(t)
	exitCode, _, stderr := runWrapper(t, "--bids-container", "org/app:tag")
	assert.Equal(t, 1, exitCode)
	assert.Contains(t, stderr, "AWS access key id is required")
}

func TestWrapperBadHosting(t *testing.T) {
	clearEnv(t)
	args, _ := jobArgs(t)
	args = append(args, "--bids-container-hosting", "quay")
	exitCode, _, stderr := runWrapper(t, args...)
	assert.Equal(t, 1, exitCode)
	assert.Contains(t, stderr, "Container hosting must be one of")
}

func TestWrapperUnknownFlag(t *testing.T) {
	clearEnv(t)
	exitCode, _, stderr := runWrapper(t, "--no-such-flag")
	assert.Equal(t, 1, exitCode)
	assert.Contains(t, stderr, "no-such-flag")
}

func TestWrapperPullsImage(t *testing.T) {
	clearEnv(t)
	fakeSingularity(t, 0)
	args, homeDir := jobArgs(t)
	exitCode, stdout, stderr := runWrapper(t, args...)
	require.Equal(t, 0, exitCode, stderr)
	assert.Equal(t, "singularity pull shub://org/app:tag\n", stdout)

	data, err := os.ReadFile(filepath.Join(homeDir, ".s3cfg"))
	require.Nil(t, err)
	assert.True(t, strings.HasSuffix(string(data), "access_key = AK\nsecret_key = SK\n"))
}

func TestWrapperExitsWithCommandStatus(t *testing.T) {
	clearEnv(t)
	fakeSingularity(t, 3)
	args, _ := jobArgs(t)
	exitCode, stdout, stderr := runWrapper(t, args...)
	assert.Equal(t, 3, exitCode)
	assert.Equal(t, "singularity pull shub://org/app:tag\n", stdout)
	assert.Contains(t, stderr, "Non zero return code: 3")
}
