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
	"testing"

	"github.com/chain4travel/localnet-bootstrap/localnet/keys"
	"github.com/stretchr/testify/assert"
)

const (
	testRoot = "/tmp/demo-config"
)

var testBinaries = Binaries{
	Keygen:     "solana-keygen",
	Setup:      "multinode-demo/setup.sh",
	LedgerTool: "solana-ledger-tool",
	Faucet:     "multinode-demo/faucet.sh",
}

func TestKeygenCommand(t *testing.T) {
	collaborators := NewCollaboratorSet(testBinaries, "", DebugAssertionsSuppressed)

	expected := []string{
		"solana-keygen",
		"new",
		"--no-passphrase",
		"-so",
		"/tmp/demo-config/a/identity.json",
	}
	invocation := collaborators.Keygen("/tmp/demo-config/a/identity.json")
	assert.Equal(t, expected, invocation.CommandLine())
	assert.Equal(t, GenerateKeysStep, invocation.Step)
	assert.Empty(t, invocation.Env, "The key generator never gets the debug toggle")
}

func TestClusterSetupCommand(t *testing.T) {
	collaborators := NewCollaboratorSet(testBinaries, "/src/solana", DebugAssertionsSuppressed)

	expected := []string{
		"multinode-demo/setup.sh",
		"--bootstrap-validator",
		"/tmp/demo-config/a/identity.json",
		"/tmp/demo-config/a/vote-account.json",
		"/tmp/demo-config/a/stake-account.json",
		"--bootstrap-validator",
		"/tmp/demo-config/b/identity.json",
		"/tmp/demo-config/b/vote-account.json",
		"/tmp/demo-config/b/stake-account.json",
	}
	invocation := collaborators.ClusterSetup(keys.NewLayout(testRoot).Records())
	assert.Equal(t, expected, invocation.CommandLine())
	assert.Equal(t, []string{"NDEBUG=1"}, invocation.Env)
	assert.Equal(t, "/src/solana", invocation.Dir)
}

func TestSnapshotCommand(t *testing.T) {
	collaborators := NewCollaboratorSet(testBinaries, "", DebugAssertionsSuppressed)

	expected := []string{
		"solana-ledger-tool",
		"-l",
		"/tmp/demo-config/a/ledger",
		"create-snapshot",
		"0",
	}
	invocation := collaborators.Snapshot(keys.NewLayout(testRoot).LedgerDir(keys.RoleA), 0)
	assert.Equal(t, expected, invocation.CommandLine())
	assert.Empty(t, invocation.Env)
}

func TestFaucetCommand(t *testing.T) {
	suppressed := NewCollaboratorSet(testBinaries, "", DebugAssertionsSuppressed).Faucet()
	assert.Equal(t, []string{"multinode-demo/faucet.sh"}, suppressed.CommandLine())
	assert.Equal(t, []string{"NDEBUG=1"}, suppressed.Env)
	assert.True(t, suppressed.NoTimeout)

	enabled := NewCollaboratorSet(testBinaries, "", DebugAssertionsEnabled).Faucet()
	assert.Empty(t, enabled.Env)
	assert.Equal(t, []string{"NDEBUG"}, enabled.Unset)
}

func TestEnvironDropsInheritedToggleWhenAssertionsEnabled(t *testing.T) {
	t.Setenv("NDEBUG", "1")
	t.Setenv("NDEBUG_EXTRA", "kept")

	enabled := NewCollaboratorSet(testBinaries, "", DebugAssertionsEnabled).ClusterSetup(keys.NewLayout(testRoot).Records())
	environ := enabled.Environ()
	assert.NotContains(t, environ, "NDEBUG=1")
	assert.Contains(t, environ, "NDEBUG_EXTRA=kept")

	suppressed := NewCollaboratorSet(testBinaries, "", DebugAssertionsSuppressed).ClusterSetup(keys.NewLayout(testRoot).Records())
	assert.Contains(t, suppressed.Environ(), "NDEBUG=1")

	keygen := NewCollaboratorSet(testBinaries, "", DebugAssertionsEnabled).Keygen("/tmp/demo-config/a/identity.json")
	assert.Contains(t, keygen.Environ(), "NDEBUG=1", "only the setup and faucet scripts are affected by the toggle")
}

func TestInvocationString(t *testing.T) {
	invocation := NewCollaboratorSet(testBinaries, "", DebugAssertionsSuppressed).Faucet()
	assert.Equal(t, "NDEBUG=1 multinode-demo/faucet.sh", invocation.String())
}

func TestParseServiceSocket(t *testing.T) {
	socket, err := ParseServiceSocket("127.0.0.1:9900")
	assert.NoError(t, err)
	assert.Equal(t, "127.0.0.1", socket.GetIpAddr())
	assert.Equal(t, 9900, socket.GetPort())
	assert.Equal(t, "127.0.0.1:9900", socket.Address())

	for _, invalid := range []string{"", "127.0.0.1", "127.0.0.1:faucet", "127.0.0.1:0", "127.0.0.1:70000"} {
		_, err := ParseServiceSocket(invalid)
		assert.Error(t, err, "expected %q to be rejected", invalid)
	}
}
