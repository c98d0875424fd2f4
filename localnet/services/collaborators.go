// Copyright (C) 2022, Chain4Travel AG. All rights reserved.
//
// This file is a derived work, based on ava-labs code
//
// It is distributed under the same license conditions as the
// original code from which it is derived.
//
// Much love to the original authors for their work.

package services

import (
	"strconv"

	"github.com/chain4travel/localnet-bootstrap/localnet/keys"
)

const (
	GenerateKeysStep   = "generate-keys"
	ClusterSetupStep   = "cluster-setup"
	CreateSnapshotStep = "create-snapshot"
	LaunchFaucetStep   = "launch-faucet"

	bootstrapValidatorFlag = "--bootstrap-validator"
)

// CollaboratorSet builds the invocations of every external collaborator from a single set of options
type CollaboratorSet struct {
	binaries        Binaries
	workDir         string
	debugAssertions DebugAssertions
}

// NewCollaboratorSet creates a new collaborator set
// Args:
// 	binaries: Locations of the key generator, setup routine, ledger tool and faucet launcher
// 	workDir: Working directory of every child process (empty for the orchestrator's own)
// 	debugAssertions: Whether the setup and faucet scripts keep their debug assertions
func NewCollaboratorSet(binaries Binaries, workDir string, debugAssertions DebugAssertions) *CollaboratorSet {
	return &CollaboratorSet{
		binaries:        binaries,
		workDir:         workDir,
		debugAssertions: debugAssertions,
	}
}

// Keygen returns the key generator call writing a new passphrase-less keypair to path
func (c CollaboratorSet) Keygen(path string) Invocation {
	return Invocation{
		Step:   GenerateKeysStep,
		Binary: c.binaries.Keygen,
		Args:   []string{"new", "--no-passphrase", "-so", path},
		Dir:    c.workDir,
	}
}

// ClusterSetup returns the setup routine call, one --bootstrap-validator group per record, in record order.
// Each group carries identity, vote account and stake account, in that order.
func (c CollaboratorSet) ClusterSetup(records []keys.RoleRecord) Invocation {
	args := make([]string, 0, len(records)*(len(keys.SetupOrder)+1))
	for _, record := range records {
		args = append(args, bootstrapValidatorFlag)
		args = append(args, record.SetupPaths()...)
	}
	return Invocation{
		Step:   ClusterSetupStep,
		Binary: c.binaries.Setup,
		Args:   args,
		Env:    c.debugAssertions.env(),
		Unset:  c.debugAssertions.unset(),
		Dir:    c.workDir,
	}
}

// Snapshot returns the ledger tool call creating a snapshot of ledgerDir at the given slot
func (c CollaboratorSet) Snapshot(ledgerDir string, slot uint64) Invocation {
	return Invocation{
		Step:   CreateSnapshotStep,
		Binary: c.binaries.LedgerTool,
		Args:   []string{"-l", ledgerDir, "create-snapshot", strconv.FormatUint(slot, 10)},
		Dir:    c.workDir,
	}
}

// Faucet returns the faucet launcher call
func (c CollaboratorSet) Faucet() Invocation {
	return Invocation{
		Step:      LaunchFaucetStep,
		Binary:    c.binaries.Faucet,
		Args:      []string{},
		Env:       c.debugAssertions.env(),
		Unset:     c.debugAssertions.unset(),
		Dir:       c.workDir,
		NoTimeout: true,
	}
}
