// Copyright (C) 2022, Chain4Travel AG. All rights reserved.
//
// This file is a derived work, based on ava-labs code
//
// It is distributed under the same license conditions as the
// original code from which it is derived.
//
// Much love to the original authors for their work.

package main

import (
	"io"
	"os"
	"time"

	"github.com/palantir/stacktrace"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chain4travel/localnet-bootstrap/localnet/config"
	"github.com/chain4travel/localnet-bootstrap/localnet/metrics"
	"github.com/chain4travel/localnet-bootstrap/localnet/networks"
	"github.com/chain4travel/localnet-bootstrap/localnet/process"
	"github.com/chain4travel/localnet-bootstrap/localnet/services"
)

// app holds what every subcommand needs, populated in PersistentPreRunE
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}

	rootCmd := &cobra.Command{
		Use:   "localnet",
		Short: "Bootstrap a local two-validator network",
		Long: `localnet prepares a configuration directory with identity, stake account and
vote account keys for two bootstrap validators, hands them to the cluster setup
routine, snapshots the first validator's ledger at the genesis slot and launches
the faucet. Keys are generated only when the configuration directory is created
by the run; later runs reuse them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "path to a YAML config file")
	flags.String("log-level", "info", "Logrus log level (trace, debug, info, warn, error)")
	flags.String("config-dir", "config", "configuration directory holding the validator keys")
	flags.String("work-dir", "", "working directory of the external tools")
	flags.Bool("suppress-debug-assertions", true, "run the setup and faucet scripts with NDEBUG=1")
	flags.Duration("step-timeout", 10*time.Minute, "upper bound for each external tool invocation, 0 for none")
	flags.String("faucet-mode", config.FaucetWait, "wait: keep the faucet in the foreground; detach: start it and return once it accepts connections")
	flags.String("metrics-file", "", "write Prometheus metrics of the run to this file")
	flags.StringP("output", "o", config.OutputJSON, "result format (json, yaml)")
	for key, flag := range map[string]string{
		"log_level":                 "log-level",
		"config_dir":                "config-dir",
		"work_dir":                  "work-dir",
		"suppress_debug_assertions": "suppress-debug-assertions",
		"step_timeout":              "step-timeout",
		"faucet.mode":               "faucet-mode",
		"metrics_file":              "metrics-file",
		"output":                    "output",
	} {
		if err := a.v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			logrus.Fatalf("An error occurred binding flag %v: %v", flag, err)
		}
	}

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		logrus.SetFormatter(&logrus.TextFormatter{
			ForceColors:   true,
			FullTimestamp: true,
		})
		logrus.SetOutput(os.Stderr)

		cfg, err := config.Load(a.v, a.cfgFile)
		if err != nil {
			return stacktrace.Propagate(err, "An error occurred loading the configuration")
		}
		level, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			return stacktrace.Propagate(err, "An error occurred parsing the log level string")
		}
		logrus.SetLevel(level)
		a.cfg = cfg
		return nil
	}

	rootCmd.AddCommand(
		newRunCmd(a),
		newKeysCmd(a),
		newPlanCmd(a),
		newStatusCmd(a),
	)
	return rootCmd
}

// newBootstrapper wires the bootstrap pipeline from the loaded configuration
func (a *app) newBootstrapper(recorder *metrics.Recorder) (*networks.Bootstrapper, error) {
	cfg := a.cfg

	var stream io.Writer
	if cfg.StreamOutput {
		stream = os.Stderr
	}
	executor := process.NewLocalExecutor(cfg.StepTimeout, cfg.KillGrace, cfg.OutputTailBytes, stream)

	faucet := networks.FaucetOptions{
		Mode:         networks.FaucetMode(cfg.Faucet.Mode),
		ReadyTimeout: cfg.Faucet.ReadyTimeout,
		LogFile:      cfg.FaucetLogFile(),
		StopGrace:    cfg.KillGrace,
	}
	if cfg.Faucet.Address != "" {
		socket, err := services.ParseServiceSocket(cfg.Faucet.Address)
		if err != nil {
			return nil, stacktrace.Propagate(err, "An error occurred parsing the faucet address")
		}
		faucet.Socket = socket
	}

	return networks.NewBootstrapper(
		cfg.Layout(),
		services.NewCollaboratorSet(cfg.BinarySet(), cfg.WorkDir, cfg.DebugAssertions()),
		executor,
		recorder,
		cfg.SnapshotLedgerDir(),
		cfg.Snapshot.Slot,
		faucet,
	), nil
}
