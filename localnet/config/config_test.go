// Copyright (C) 2022, Chain4Travel AG. All rights reserved.
//
// This file is a derived work, based on ava-labs code
//
// It is distributed under the same license conditions as the
// original code from which it is derived.
//
// Much love to the original authors for their work.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chain4travel/localnet-bootstrap/localnet/services"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, "config", cfg.ConfigDir)
	assert.True(t, cfg.SuppressDebugAssertions)
	assert.Equal(t, services.DebugAssertionsSuppressed, cfg.DebugAssertions())
	assert.Equal(t, 10*time.Minute, cfg.StepTimeout)
	assert.Equal(t, FaucetWait, cfg.Faucet.Mode)
	assert.Equal(t, uint64(0), cfg.Snapshot.Slot)
	assert.Equal(t, filepath.Join("config", "a", "ledger"), cfg.SnapshotLedgerDir())
	assert.Equal(t, filepath.Join("config", "faucet.log"), cfg.FaucetLogFile())
	assert.Equal(t, []string{"http://127.0.0.1:8899"}, cfg.RPC.Endpoints)
	assert.Equal(t, services.Binaries{
		Keygen:     "solana-keygen",
		Setup:      "multinode-demo/setup.sh",
		LedgerTool: "solana-ledger-tool",
		Faucet:     "multinode-demo/faucet.sh",
	}, cfg.BinarySet())
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "localnet.yaml")
	contents := `
config_dir: /tmp/demo-config
suppress_debug_assertions: false
step_timeout: 90s
faucet:
  mode: detach
  address: 127.0.0.1:9911
snapshot:
  ledger_dir: /tmp/demo-config/bootstrap-validator
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	t.Setenv("LOCALNET_FAUCET_READY_TIMEOUT", "5s")
	t.Setenv("LOCALNET_RPC_ENDPOINTS", "http://127.0.0.1:8899,http://127.0.0.1:8999")

	cfg, err := Load(New(), path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/demo-config", cfg.ConfigDir)
	assert.Equal(t, services.DebugAssertionsEnabled, cfg.DebugAssertions())
	assert.Equal(t, 90*time.Second, cfg.StepTimeout)
	assert.Equal(t, FaucetDetach, cfg.Faucet.Mode)
	assert.Equal(t, "127.0.0.1:9911", cfg.Faucet.Address)
	assert.Equal(t, 5*time.Second, cfg.Faucet.ReadyTimeout)
	assert.Equal(t, "/tmp/demo-config/bootstrap-validator", cfg.SnapshotLedgerDir())
	assert.Equal(t, []string{"http://127.0.0.1:8899", "http://127.0.0.1:8999"}, cfg.RPC.Endpoints)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)

	cfg.ConfigDir = ""
	cfg.Binaries.Setup = ""
	cfg.Faucet.Mode = "background"
	cfg.Output = "xml"

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "4 errors occurred")
	assert.Contains(t, err.Error(), "config_dir must not be empty")
	assert.Contains(t, err.Error(), "binaries.setup must not be empty")
	assert.Contains(t, err.Error(), `faucet.mode must be "wait" or "detach", got "background"`)
	assert.Contains(t, err.Error(), `output must be "json" or "yaml", got "xml"`)
}

func TestValidateFaucetAddress(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)

	cfg.Faucet.Mode = FaucetDetach
	cfg.Faucet.Address = "nowhere"
	assert.Error(t, cfg.Validate())
}

func TestValidateKillGrace(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)

	cfg.KillGrace = 0
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kill_grace must be positive")
}
