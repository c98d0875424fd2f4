// Copyright (C) 2022, Chain4Travel AG. All rights reserved.
//
// This file is a derived work, based on ava-labs code
//
// It is distributed under the same license conditions as the
// original code from which it is derived.
//
// Much love to the original authors for their work.

package networks

import (
	"github.com/chain4travel/localnet-bootstrap/localnet/keys"
)

// Status values used across BootstrapResult and StepResult
const (
	StatusOK      = "ok"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

// Names of the bootstrap steps that don't map to a single collaborator
const (
	PrepareConfigDirStep = "prepare-config-dir"
	VerifyKeysStep       = "verify-keys"
)

// BootstrapResult is the aggregate result of one bootstrap run
type BootstrapResult struct {
	RunID      string        `json:"runId" yaml:"runId"`
	ConfigDir  string        `json:"configDir" yaml:"configDir"`
	DirState   keys.DirState `json:"dirState,omitempty" yaml:"dirState,omitempty"`
	Status     string        `json:"status" yaml:"status"`
	FailedStep string        `json:"failedStep,omitempty" yaml:"failedStep,omitempty"`
	Steps      []StepResult  `json:"steps" yaml:"steps"`

	// Set when the faucet was detached and left running
	Faucet *FaucetProcess `json:"faucet,omitempty" yaml:"faucet,omitempty"`
}

// StepResult is the outcome of a single bootstrap step
type StepResult struct {
	Name        string             `json:"name" yaml:"name"`
	Status      string             `json:"status" yaml:"status"`
	Reason      string             `json:"reason,omitempty" yaml:"reason,omitempty"`
	Error       string             `json:"error,omitempty" yaml:"error,omitempty"`
	DurationMs  int64              `json:"durationMs" yaml:"durationMs"`
	Invocations []InvocationResult `json:"invocations,omitempty" yaml:"invocations,omitempty"`
}

// InvocationResult is the outcome of one external process a step ran
type InvocationResult struct {
	Command    []string `json:"command" yaml:"command"`
	Env        []string `json:"env,omitempty" yaml:"env,omitempty"`
	ExitCode   int      `json:"exitCode" yaml:"exitCode"`
	DurationMs int64    `json:"durationMs" yaml:"durationMs"`
	Output     string   `json:"output,omitempty" yaml:"output,omitempty"`
}

// FaucetProcess describes a detached faucet
type FaucetProcess struct {
	Pid     int    `json:"pid" yaml:"pid"`
	LogFile string `json:"logFile" yaml:"logFile"`
}

// Step returns the result of the named step, or nil if the run doesn't include it
func (r *BootstrapResult) Step(name string) *StepResult {
	for i := range r.Steps {
		if r.Steps[i].Name == name {
			return &r.Steps[i]
		}
	}
	return nil
}
