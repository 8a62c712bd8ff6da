package bidsapp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/bids-apps/batch-wrapper/constants"
	"github.com/bids-apps/batch-wrapper/models/common"
	"github.com/bids-apps/batch-wrapper/util"
	"github.com/op/go-logging"
)

// Runner runs a shell command string.
type Runner interface {
	Run(ctx context.Context, command string, env map[string]string) error
}

// lineBufferSize bounds the number of output lines waiting to be
// written to the caller's output.
const lineBufferSize = 64

// maxLineLength is the longest single line of output we'll pass
// through. Longer lines are discarded.
const maxLineLength = 1024 * 1024

// DefaultWaitDelay is how long we wait after SIGTERM before killing
// a cancelled command and closing its pipes.
const DefaultWaitDelay = 10 * time.Second

// ShellRunner runs commands through sh -c, streaming combined stdout
// and stderr to Output line by line.
type ShellRunner struct {
	Logger    *logging.Logger
	Output    io.Writer
	Shell     string
	WaitDelay time.Duration

	// Secrets are redacted from commands before they're logged or
	// returned in errors.
	Secrets []string
}

// NewShellRunner returns a ShellRunner that writes command output to
// output and never logs any of the secrets.
func NewShellRunner(logger *logging.Logger, output io.Writer, shell string, secrets ...string) *ShellRunner {
	return &ShellRunner{
		Logger:    logger,
		Output:    output,
		Shell:     shell,
		WaitDelay: DefaultWaitDelay,
		Secrets:   secrets,
	}
}

// Run runs command, adding env to the current environment, and returns
// when the command exits and all its output has been written. It
// returns nil if the command exits zero, and a *common.ExitError with
// the exit status otherwise. Cancelling ctx sends the command SIGTERM.
func (r *ShellRunner) Run(ctx context.Context, command string, env map[string]string) error {
	redacted := util.Redact(command, r.Secrets...)
	r.Logger.Info(redacted)

	cmd := exec.CommandContext(ctx, r.shell(), "-c", command)
	cmd.Env = MergeEnv(os.Environ(), env)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = r.WaitDelay

	pipeReader, pipeWriter := io.Pipe()
	defer pipeReader.Close()
	cmd.Stdout = pipeWriter
	cmd.Stderr = pipeWriter

	if err := cmd.Start(); err != nil {
		pipeWriter.Close()
		return common.NewError(fmt.Sprintf("Cannot start '%s'", redacted), err, true)
	}

	lines := make(chan string, lineBufferSize)
	go scanLines(pipeReader, lines)

	waitResult := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		pipeWriter.Close()
		waitResult <- err
	}()

	for line := range lines {
		fmt.Fprintln(r.output(), line)
	}
	return r.exitError(ctx, cmd, redacted, <-waitResult)
}

func (r *ShellRunner) exitError(ctx context.Context, cmd *exec.Cmd, redacted string, err error) error {
	if err == nil {
		return nil
	}
	// A background child that inherited stdout can outlive the command.
	// Wait gives up on it after WaitDelay, but the command itself
	// succeeded.
	if errors.Is(err, exec.ErrWaitDelay) && ctx.Err() == nil &&
		cmd.ProcessState != nil && cmd.ProcessState.Success() {
		r.Logger.Warningf("'%s' exited 0 but something it started held its output open. "+
			"Output after %s was discarded.", redacted, r.WaitDelay)
		return nil
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return common.NewError(fmt.Sprintf("Error running '%s'", redacted), err, true)
	}
	exitCode := exitErr.ExitCode()
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		exitCode = 128 + int(status.Signal())
	}
	if ctx.Err() != nil {
		err = ctx.Err()
	}
	return common.NewExitError(redacted, exitCode, err)
}

func (r *ShellRunner) shell() string {
	if r.Shell == "" {
		return constants.DefaultShell
	}
	return r.Shell
}

func (r *ShellRunner) output() io.Writer {
	if r.Output == nil {
		return os.Stdout
	}
	return r.Output
}

// scanLines sends each line read from reader to lines, then closes
// lines. It keeps draining reader after a scan error so the command
// never blocks on a full pipe.
func scanLines(reader io.Reader, lines chan<- string) {
	defer close(lines)
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	for scanner.Scan() {
		lines <- scanner.Text()
	}
	if scanner.Err() != nil {
		io.Copy(io.Discard, reader)
	}
}

// MergeEnv returns base, a list of KEY=value pairs, with the values
// in extra added or replaced. DEBUG is always removed, because BIDS
// apps and s3cmd both change behavior when it's set.
func MergeEnv(base []string, extra map[string]string) []string {
	merged := make(map[string]string, len(base)+len(extra))
	for _, pair := range base {
		key, value, found := strings.Cut(pair, "=")
		if found {
			merged[key] = value
		}
	}
	for key, value := range extra {
		merged[key] = value
	}
	delete(merged, "DEBUG")
	env := make([]string, 0, len(merged))
	for key, value := range merged {
		env = append(env, key+"="+value)
	}
	sort.Strings(env)
	return env
}
