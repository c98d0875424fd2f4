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
	"os"
	"os/exec"
	"time"

	"github.com/palantir/stacktrace"
)

// Handle tracks a process started with Executor.Start
type Handle struct {
	cmd     *exec.Cmd
	logPath string
	exited  chan struct{}
	waitErr error
}

func newHandle(cmd *exec.Cmd, logPath string) *Handle {
	handle := &Handle{
		cmd:     cmd,
		logPath: logPath,
		exited:  make(chan struct{}),
	}
	go func() {
		handle.waitErr = cmd.Wait()
		close(handle.exited)
	}()
	return handle
}

// Pid ...
func (h *Handle) Pid() int {
	return h.cmd.Process.Pid
}

// LogPath returns the file receiving the process' output
func (h *Handle) LogPath() string {
	return h.logPath
}

// Exited is closed once the process has exited
func (h *Handle) Exited() <-chan struct{} {
	return h.exited
}

// ExitErr returns how the process exited; only meaningful after Exited is closed
func (h *Handle) ExitErr() error {
	return h.waitErr
}

// ExitCode returns the process' exit code, or NoExitCode if it is still running or was signalled
func (h *Handle) ExitCode() int {
	select {
	case <-h.exited:
		return h.cmd.ProcessState.ExitCode()
	default:
		return NoExitCode
	}
}

// Stop interrupts the process and kills it if it is still running after grace
func (h *Handle) Stop(grace time.Duration) error {
	select {
	case <-h.exited:
		return nil
	default:
	}

	if err := h.cmd.Process.Signal(os.Interrupt); err != nil {
		return h.kill()
	}
	select {
	case <-h.exited:
		return nil
	case <-time.After(grace):
		return h.kill()
	}
}

func (h *Handle) kill() error {
	if err := h.cmd.Process.Kill(); err != nil {
		select {
		case <-h.exited:
			return nil
		default:
		}
		return stacktrace.Propagate(err, "An error occurred killing process %v", h.Pid())
	}
	<-h.exited
	return nil
}
