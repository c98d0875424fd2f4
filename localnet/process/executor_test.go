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
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chain4travel/localnet-bootstrap/localnet/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shell(script string, env ...string) services.Invocation {
	return services.Invocation{
		Step:   "test",
		Binary: "/bin/sh",
		Args:   []string{"-c", script},
		Env:    env,
	}
}

func TestRunSuccess(t *testing.T) {
	var streamed bytes.Buffer
	executor := NewLocalExecutor(10*time.Second, time.Second, 0, &streamed)

	outcome := executor.Run(context.Background(), shell("echo hello; echo world >&2"))
	require.NoError(t, outcome.Err)
	assert.Equal(t, 0, outcome.ExitCode)
	assert.Contains(t, outcome.Output, "hello")
	assert.Contains(t, outcome.Output, "world")
	assert.Equal(t, outcome.Output, streamed.String())
}

func TestRunNonZeroExit(t *testing.T) {
	executor := NewLocalExecutor(10*time.Second, time.Second, 0, nil)

	outcome := executor.Run(context.Background(), shell("echo broken; exit 3"))
	assert.Error(t, outcome.Err)
	assert.Equal(t, 3, outcome.ExitCode)
	assert.Equal(t, "broken\n", outcome.Output)
}

func TestRunMissingBinary(t *testing.T) {
	executor := NewLocalExecutor(10*time.Second, time.Second, 0, nil)

	outcome := executor.Run(context.Background(), services.Invocation{Binary: "/definitely/not/here"})
	assert.Error(t, outcome.Err)
	assert.Equal(t, NoExitCode, outcome.ExitCode)
}

func TestRunTimeout(t *testing.T) {
	executor := NewLocalExecutor(200*time.Millisecond, 200*time.Millisecond, 0, nil)

	start := time.Now()
	outcome := executor.Run(context.Background(), shell("sleep 30"))
	assert.Error(t, outcome.Err)
	assert.Contains(t, outcome.Err.Error(), "timed out")
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestRunSucceedsWhenBackgroundChildHoldsOutput(t *testing.T) {
	executor := NewLocalExecutor(10*time.Second, 500*time.Millisecond, 0, nil)

	start := time.Now()
	outcome := executor.Run(context.Background(), shell("sleep 3 & echo started; exit 0"))
	require.NoError(t, outcome.Err)
	assert.Equal(t, 0, outcome.ExitCode)
	assert.Contains(t, outcome.Output, "started")
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestRunTimeoutKillsChildIgnoringInterrupt(t *testing.T) {
	executor := NewLocalExecutor(300*time.Millisecond, 0, 0, nil)

	start := time.Now()
	outcome := executor.Run(context.Background(), shell("trap '' INT; sleep 4"))
	assert.Error(t, outcome.Err)
	assert.Contains(t, outcome.Err.Error(), "timed out")
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestRunCancelled(t *testing.T) {
	executor := NewLocalExecutor(0, 200*time.Millisecond, 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)
	outcome := executor.Run(ctx, shell("sleep 30"))
	assert.Error(t, outcome.Err)
	assert.Contains(t, outcome.Err.Error(), "cancelled")
}

func TestRunPassesChildEnvironmentOnly(t *testing.T) {
	executor := NewLocalExecutor(10*time.Second, time.Second, 0, nil)

	outcome := executor.Run(context.Background(), shell(`echo "NDEBUG=$NDEBUG"`, "NDEBUG=1"))
	require.NoError(t, outcome.Err)
	assert.Equal(t, "NDEBUG=1\n", outcome.Output)
	_, set := os.LookupEnv("NDEBUG")
	assert.False(t, set, "the orchestrator's own environment must stay untouched")
}

func TestRunResolvesRelativeBinaryAgainstDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "multinode-demo"), 0o755))
	script := filepath.Join(dir, "multinode-demo", "setup.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\npwd\n"), 0o755))

	executor := NewLocalExecutor(10*time.Second, time.Second, 0, nil)
	outcome := executor.Run(context.Background(), services.Invocation{
		Binary: "multinode-demo/setup.sh",
		Dir:    dir,
	})
	require.NoError(t, outcome.Err)
	resolvedDir, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Equal(t, resolvedDir, strings.TrimSpace(outcome.Output))
}

func TestStartDetached(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "faucet.log")
	executor := NewLocalExecutor(0, time.Second, 0, nil)

	handle, err := executor.Start(shell("echo started; sleep 30"), logPath)
	require.NoError(t, err)
	assert.NotZero(t, handle.Pid())
	assert.Equal(t, NoExitCode, handle.ExitCode())

	require.NoError(t, handle.Stop(time.Second))
	select {
	case <-handle.Exited():
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit after Stop")
	}

	logged, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Equal(t, "started\n", string(logged))
}

func TestStartReportsEarlyExit(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "faucet.log")
	executor := NewLocalExecutor(0, time.Second, 0, nil)

	handle, err := executor.Start(shell("exit 7"), logPath)
	require.NoError(t, err)
	select {
	case <-handle.Exited():
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit")
	}
	assert.Error(t, handle.ExitErr())
	assert.Equal(t, 7, handle.ExitCode())
}

func TestTailBuffer(t *testing.T) {
	buffer := newTailBuffer(4)
	_, _ = buffer.Write([]byte("ab"))
	assert.Equal(t, "ab", buffer.String())

	_, _ = buffer.Write([]byte("cdef"))
	assert.Equal(t, "...cdef", buffer.String())
}
