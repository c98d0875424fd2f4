// Copyright (C) 2022, Chain4Travel AG. All rights reserved.
//
// This file is a derived work, based on ava-labs code
//
// It is distributed under the same license conditions as the
// original code from which it is derived.
//
// Much love to the original authors for their work.

package process

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/chain4travel/caminogo/utils/perms"
	"github.com/chain4travel/localnet-bootstrap/localnet/services"
	"github.com/palantir/stacktrace"
	"github.com/sirupsen/logrus"
)

const (
	// Exit code reported when the child never produced one (failed to start, killed by a signal)
	NoExitCode = -1

	defaultTailBytes = 4096

	// Without a grace period a child ignoring SIGINT would never be killed
	minKillGrace = 100 * time.Millisecond
)

// StepOutcome is the result of running one invocation to completion
type StepOutcome struct {
	ExitCode int
	// The last bytes of the child's combined stdout and stderr
	Output   string
	Duration time.Duration
	Err      error
}

// Executor runs external collaborators
type Executor interface {
	// Run starts the invocation and waits for it to exit
	Run(ctx context.Context, invocation services.Invocation) StepOutcome

	// Start launches the invocation without waiting for it, sending its output to logPath
	Start(invocation services.Invocation, logPath string) (*Handle, error)
}

// LocalExecutor runs collaborators as child processes of the orchestrator
type LocalExecutor struct {
	stepTimeout time.Duration
	killGrace   time.Duration
	tailBytes   int
	stream      io.Writer
}

// NewLocalExecutor creates a new executor
// Args:
// 	stepTimeout: Upper bound for a single Run; zero disables it
// 	killGrace: How long a cancelled child gets between SIGINT and SIGKILL, at least 100ms
// 	tailBytes: How much of each child's output is kept for the step result
// 	stream: If non-nil, every child's output is also copied here as it is produced
func NewLocalExecutor(stepTimeout time.Duration, killGrace time.Duration, tailBytes int, stream io.Writer) *LocalExecutor {
	if tailBytes <= 0 {
		tailBytes = defaultTailBytes
	}
	if killGrace < minKillGrace {
		killGrace = minKillGrace
	}
	return &LocalExecutor{
		stepTimeout: stepTimeout,
		killGrace:   killGrace,
		tailBytes:   tailBytes,
		stream:      stream,
	}
}

// Run implements Executor
func (e LocalExecutor) Run(ctx context.Context, invocation services.Invocation) StepOutcome {
	if e.stepTimeout > 0 && !invocation.NoTimeout {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.stepTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, resolveBinary(invocation), invocation.Args...)
	cmd.Dir = invocation.Dir
	cmd.Env = invocation.Environ()
	// Forward cancellation as an interrupt first so scripts can clean up, then kill after the grace period
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = e.killGrace

	tail := newTailBuffer(e.tailBytes)
	var output io.Writer = tail
	if e.stream != nil {
		output = io.MultiWriter(tail, e.stream)
	}
	cmd.Stdout = output
	cmd.Stderr = output

	logrus.Debugf("Running %v", invocation)
	start := time.Now()
	runErr := cmd.Run()
	outcome := StepOutcome{
		ExitCode: exitCode(cmd, runErr),
		Output:   tail.String(),
		Duration: time.Since(start),
	}
	if runErr == nil {
		return outcome
	}
	if errors.Is(runErr, exec.ErrWaitDelay) && ctx.Err() == nil && cmd.ProcessState != nil && cmd.ProcessState.Success() {
		// The child succeeded but left a background process holding its output open
		logrus.Warnf("%v exited successfully but its output stayed open for %v, leftover output was dropped", invocation.Binary, e.killGrace)
		return outcome
	}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		outcome.Err = stacktrace.Propagate(runErr, "%v timed out after %v", invocation.Binary, e.stepTimeout)
	case ctx.Err() != nil:
		outcome.Err = stacktrace.Propagate(runErr, "%v was cancelled", invocation.Binary)
	case outcome.ExitCode != NoExitCode:
		outcome.Err = stacktrace.Propagate(runErr, "%v exited with code %v", invocation.Binary, outcome.ExitCode)
	default:
		outcome.Err = stacktrace.Propagate(runErr, "An error occurred running %v", invocation.Binary)
	}
	return outcome
}

// Start implements Executor. The child is placed in its own process group and is not bound to any
// context, so it keeps running after the orchestrator exits.
func (e LocalExecutor) Start(invocation services.Invocation, logPath string) (*Handle, error) {
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, perms.ReadWrite)
	if err != nil {
		return nil, stacktrace.Propagate(err, "An error occurred opening log file %v", logPath)
	}
	// The child holds its own copy of the descriptor once started
	defer logFile.Close()

	cmd := exec.Command(resolveBinary(invocation), invocation.Args...)
	cmd.Dir = invocation.Dir
	cmd.Env = invocation.Environ()
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	detach(cmd)

	logrus.Debugf("Starting %v, output goes to %v", invocation, logPath)
	if err := cmd.Start(); err != nil {
		return nil, stacktrace.Propagate(err, "An error occurred starting %v", invocation.Binary)
	}
	return newHandle(cmd, logPath), nil
}

// resolveBinary makes relative binaries that contain a separator relative to the invocation's working directory
func resolveBinary(invocation services.Invocation) string {
	binary := invocation.Binary
	if invocation.Dir == "" || filepath.IsAbs(binary) || !strings.ContainsRune(binary, filepath.Separator) {
		return binary
	}
	return filepath.Join(invocation.Dir, binary)
}

func exitCode(cmd *exec.Cmd, err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	return NoExitCode
}
