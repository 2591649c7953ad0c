/*
* Copyright (c) 2025 FABRICATORS S.R.L.
* Licensed under the Fabricators Public Access License (FPAL) v1.0
* See https://github.com/fabricatorsltd/FPAL for details.
 */
package lxc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultTimeout        = 120 * time.Second
	DefaultInstallTimeout = 600 * time.Second
)

// ErrTimeout is matched by errors.Is on a CommandError whose command did
// not complete in time.
var ErrTimeout = errors.New("lxc: command timed out")

// Runner runs name with args and returns what the process wrote plus its
// exit code. err is only set when the process could not be run at all or
// the context expired.
type Runner func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, exitCode int, err error)

// ExecRunner is the Runner backed by os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) (stdout, stderr []byte, exitCode int, err error) {
	var outBuf, errBuf bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err = cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			return outBuf.Bytes(), errBuf.Bytes(), exitErr.ExitCode(), nil
		}
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return outBuf.Bytes(), errBuf.Bytes(), -1, err
	}
	return outBuf.Bytes(), errBuf.Bytes(), 0, nil
}

// CommandError is the normalized failure of a runtime command.
type CommandError struct {
	Args     []string
	Stderr   string
	ExitCode int
	TimedOut bool
	Err      error
}

// Exited reports whether the command ran to a non-zero exit, as opposed to
// failing to start or timing out.
func (e *CommandError) Exited() bool {
	return e.Err == nil && !e.TimedOut
}

func (e *CommandError) Error() string {
	cmd := strings.Join(e.Args, " ")
	switch {
	case e.TimedOut:
		return fmt.Sprintf("%s: timed out", cmd)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", cmd, e.Err)
	case e.Stderr != "":
		return fmt.Sprintf("%s: exit status %d: %s", cmd, e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("%s: exit status %d", cmd, e.ExitCode)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

func (e *CommandError) Is(target error) bool {
	return target == ErrTimeout && e.TimedOut
}

// Client issues lifecycle commands to the container runtime through its
// command line client.
type Client struct {
	// Bin is the lxc binary, looked up in PATH when not absolute.
	Bin string

	// Timeout bounds every command, InstallTimeout bounds the slow ones
	// like package installation.
	Timeout        time.Duration
	InstallTimeout time.Duration

	run Runner
	log logrus.FieldLogger
}

// NewClient creates a new Client. A nil runner means ExecRunner.
func NewClient(bin string, run Runner, log logrus.FieldLogger) *Client {
	if bin == "" {
		bin = "lxc"
	}
	if run == nil {
		run = ExecRunner
	}
	return &Client{
		Bin:            bin,
		Timeout:        DefaultTimeout,
		InstallTimeout: DefaultInstallTimeout,
		run:            run,
		log:            log,
	}
}

// ExecResult is the outcome of a command run inside a container. A non-zero
// ExitCode is not an error.
type ExecResult struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
}

// Run runs an lxc subcommand with the default timeout and returns its
// standard output.
func (c *Client) Run(ctx context.Context, args ...string) (string, error) {
	res, err := c.runWithTimeout(ctx, c.Timeout, args...)
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return res.Stdout, &CommandError{Args: c.argv(args), Stderr: res.Stderr, ExitCode: res.ExitCode}
	}
	return res.Stdout, nil
}

// RunLong is Run with the install timeout.
func (c *Client) RunLong(ctx context.Context, args ...string) (string, error) {
	res, err := c.runWithTimeout(ctx, c.InstallTimeout, args...)
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return res.Stdout, &CommandError{Args: c.argv(args), Stderr: res.Stderr, ExitCode: res.ExitCode}
	}
	return res.Stdout, nil
}

// runWithTimeout only fails when the command could not complete, the exit
// code is left to the caller.
func (c *Client) runWithTimeout(ctx context.Context, timeout time.Duration, args ...string) (ExecResult, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	stdout, stderr, code, err := c.run(ctx, c.Bin, args...)
	res := ExecResult{
		Stdout:   string(stdout),
		Stderr:   strings.TrimSpace(string(stderr)),
		ExitCode: code,
	}

	entry := c.log.WithFields(logrus.Fields{
		"args":     strings.Join(args, " "),
		"exit":     code,
		"duration": time.Since(started).Round(time.Millisecond),
	})
	if err != nil {
		timedOut := errors.Is(err, context.DeadlineExceeded)
		entry.WithError(err).Warn("lxc command failed")
		return res, &CommandError{Args: c.argv(args), Stderr: res.Stderr, ExitCode: code, TimedOut: timedOut, Err: err}
	}
	entry.Debug("lxc command completed")
	return res, nil
}

func (c *Client) argv(args []string) []string {
	return append([]string{c.Bin}, args...)
}
