// Copyright (C) 2022, Chain4Travel AG. All rights reserved.
//
// This file is a derived work, based on ava-labs code
//
// It is distributed under the same license conditions as the
// original code from which it is derived.
//
// Much love to the original authors for their work.

//go:build !windows

package process

import (
	"os/exec"
	"syscall"
)

// detach moves the child into its own process group so a terminal interrupt aimed at the
// orchestrator doesn't reach it
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
