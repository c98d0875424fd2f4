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
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/mapstructure"
	"github.com/palantir/stacktrace"
	"github.com/spf13/viper"

	"github.com/chain4travel/localnet-bootstrap/localnet/keys"
	"github.com/chain4travel/localnet-bootstrap/localnet/services"
)

const (
	envPrefix = "LOCALNET"

	// FaucetWait blocks the run until the faucet exits
	FaucetWait = "wait"
	// FaucetDetach starts the faucet, waits until it accepts connections and leaves it running
	FaucetDetach = "detach"

	OutputJSON = "json"
	OutputYAML = "yaml"

	defaultFaucetLogName = "faucet.log"
)

// Config is the root configuration of the orchestrator
type Config struct {
	ConfigDir               string        `mapstructure:"config_dir"`
	WorkDir                 string        `mapstructure:"work_dir"`
	SuppressDebugAssertions bool          `mapstructure:"suppress_debug_assertions"`
	StepTimeout             time.Duration `mapstructure:"step_timeout"`
	KillGrace               time.Duration `mapstructure:"kill_grace"`
	OutputTailBytes         int           `mapstructure:"output_tail_bytes"`
	StreamOutput            bool          `mapstructure:"stream_output"`
	MetricsFile             string        `mapstructure:"metrics_file"`
	LogLevel                string        `mapstructure:"log_level"`
	Output                  string        `mapstructure:"output"`

	Binaries BinariesConfig `mapstructure:"binaries"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
	Faucet   FaucetConfig   `mapstructure:"faucet"`
	RPC      RPCConfig      `mapstructure:"rpc"`
}

type BinariesConfig struct {
	Keygen     string `mapstructure:"keygen"`
	Setup      string `mapstructure:"setup"`
	LedgerTool string `mapstructure:"ledger_tool"`
	Faucet     string `mapstructure:"faucet"`
}

type SnapshotConfig struct {
	Slot uint64 `mapstructure:"slot"`
	// Empty means role a's ledger directory inside the config dir
	LedgerDir string `mapstructure:"ledger_dir"`
}

type FaucetConfig struct {
	Mode         string        `mapstructure:"mode"`
	Address      string        `mapstructure:"address"`
	ReadyTimeout time.Duration `mapstructure:"ready_timeout"`
	// Empty means faucet.log inside the config dir; only used when detached
	LogFile string `mapstructure:"log_file"`
}

type RPCConfig struct {
	Endpoints      []string      `mapstructure:"endpoints"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// New returns a viper instance carrying the defaults and the LOCALNET_ environment overlay.
// Callers may bind flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional YAML file at path into v and decodes the result
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, stacktrace.Propagate(err, "An error occurred reading config file %v", path)
		}
	}

	var cfg Config
	hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hooks); err != nil {
		return nil, stacktrace.Propagate(err, "An error occurred decoding the configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, stacktrace.Propagate(err, "Invalid configuration")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("config_dir", "config")
	v.SetDefault("work_dir", "")
	v.SetDefault("suppress_debug_assertions", true)
	v.SetDefault("step_timeout", 10*time.Minute)
	v.SetDefault("kill_grace", 10*time.Second)
	v.SetDefault("output_tail_bytes", 4096)
	v.SetDefault("stream_output", true)
	v.SetDefault("metrics_file", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("output", OutputJSON)

	v.SetDefault("binaries.keygen", "solana-keygen")
	v.SetDefault("binaries.setup", "multinode-demo/setup.sh")
	v.SetDefault("binaries.ledger_tool", "solana-ledger-tool")
	v.SetDefault("binaries.faucet", "multinode-demo/faucet.sh")

	v.SetDefault("snapshot.slot", 0)
	v.SetDefault("snapshot.ledger_dir", "")

	v.SetDefault("faucet.mode", FaucetWait)
	v.SetDefault("faucet.address", "127.0.0.1:9900")
	v.SetDefault("faucet.ready_timeout", time.Minute)
	v.SetDefault("faucet.log_file", "")

	v.SetDefault("rpc.endpoints", []string{"http://127.0.0.1:8899"})
	v.SetDefault("rpc.request_timeout", 5*time.Second)
}

// Validate reports every problem with the configuration at once
func (c *Config) Validate() error {
	var result *multierror.Error
	if c.ConfigDir == "" {
		result = multierror.Append(result, fmt.Errorf("config_dir must not be empty"))
	}
	binaries := []struct{ key, value string }{
		{"binaries.keygen", c.Binaries.Keygen},
		{"binaries.setup", c.Binaries.Setup},
		{"binaries.ledger_tool", c.Binaries.LedgerTool},
		{"binaries.faucet", c.Binaries.Faucet},
	}
	for _, binary := range binaries {
		if binary.value == "" {
			result = multierror.Append(result, fmt.Errorf("%s must not be empty", binary.key))
		}
	}
	if c.StepTimeout < 0 {
		result = multierror.Append(result, fmt.Errorf("step_timeout must not be negative"))
	}
	if c.KillGrace <= 0 {
		result = multierror.Append(result, fmt.Errorf("kill_grace must be positive"))
	}
	switch c.Faucet.Mode {
	case FaucetWait:
	case FaucetDetach:
		if c.Faucet.Address != "" {
			if _, err := services.ParseServiceSocket(c.Faucet.Address); err != nil {
				result = multierror.Append(result, fmt.Errorf("faucet.address: %v", err))
			}
		}
	default:
		result = multierror.Append(result, fmt.Errorf("faucet.mode must be %q or %q, got %q", FaucetWait, FaucetDetach, c.Faucet.Mode))
	}
	switch c.Output {
	case OutputJSON, OutputYAML:
	default:
		result = multierror.Append(result, fmt.Errorf("output must be %q or %q, got %q", OutputJSON, OutputYAML, c.Output))
	}
	return result.ErrorOrNil()
}

// Layout returns the key layout of the configured config dir
func (c *Config) Layout() keys.Layout {
	return keys.NewLayout(c.ConfigDir)
}

// SnapshotLedgerDir returns the ledger directory to snapshot: the configured one, or role a's
func (c *Config) SnapshotLedgerDir() string {
	if c.Snapshot.LedgerDir != "" {
		return c.Snapshot.LedgerDir
	}
	return c.Layout().LedgerDir(keys.RoleA)
}

// FaucetLogFile returns where a detached faucet writes its output
func (c *Config) FaucetLogFile() string {
	if c.Faucet.LogFile != "" {
		return c.Faucet.LogFile
	}
	return filepath.Join(c.ConfigDir, defaultFaucetLogName)
}

// DebugAssertions converts the suppression toggle for the collaborator set
func (c *Config) DebugAssertions() services.DebugAssertions {
	if c.SuppressDebugAssertions {
		return services.DebugAssertionsSuppressed
	}
	return services.DebugAssertionsEnabled
}

// BinarySet converts the binaries section for the collaborator set
func (c *Config) BinarySet() services.Binaries {
	return services.Binaries{
		Keygen:     c.Binaries.Keygen,
		Setup:      c.Binaries.Setup,
		LedgerTool: c.Binaries.LedgerTool,
		Faucet:     c.Binaries.Faucet,
	}
}
