package bidsapp_test

import (
	"bytes"
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/bids-apps/batch-wrapper/models/common"
	"github.com/bids-apps/batch-wrapper/util/logger"
	"github.com/bids-apps/batch-wrapper/util/testutil"
	"github.com/op/go-logging"
	"github.com/stretchr/testify/require"
)

// fakeRunner records commands instead of running them.
type fakeRunner struct {
	mutex    sync.Mutex
	commands []string
	err      error
}

func (r *fakeRunner) Run(ctx context.Context, command string, env map[string]string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.commands = append(r.commands, command)
	return r.err
}

func (r *fakeRunner) Commands() []string {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return append([]string{}, r.commands...)
}

// newTestContext returns a context with a valid config rooted in temp
// dirs, and the buffer that receives its log output.
func newTestContext(t *testing.T, configure func(*common.Config)) (*common.Context, *bytes.Buffer) {
	tempDir := t.TempDir()
	template, err := testutil.WriteS3CfgTemplate(tempDir)
	require.Nil(t, err)
	config := &common.Config{
		AccessKey:        "AK",
		SecretKey:        "SK",
		Container:        "org/app:tag",
		ContainerHosting: "singularity",
		HomeDir:          filepath.Join(tempDir, "home"),
		JobID:            "job-42",
		LogLevel:         logging.INFO,
		RegistryScheme:   "shub",
		S3CfgMode:        "template",
		S3CfgTemplate:    template,
		S3Host:           "localhost:9000",
		Shell:            "/bin/sh",
		WorkDir:          filepath.Join(tempDir, "work"),
	}
	if configure != nil {
		configure(config)
	}
	require.Nil(t, config.Validate())
	buf := &bytes.Buffer{}
	log := logger.InitWriterLogger(t.Name(), buf, logging.DEBUG)
	ctx, err := common.NewContextWithLogger(config, log)
	require.Nil(t, err)
	return ctx, buf
}
