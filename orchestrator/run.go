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
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/palantir/stacktrace"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/chain4travel/localnet-bootstrap/localnet/metrics"
	"github.com/chain4travel/localnet-bootstrap/localnet/networks"
)

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the whole bootstrap sequence",
		Long: `Run prepares the configuration directory, generates keys on the first run,
runs the cluster setup routine with both bootstrap validators, snapshots role a's
ledger and launches the faucet. The first failing step aborts the run; the result
is printed to stdout and the command exits non-zero on failure.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBootstrap(cmd, func(ctx context.Context, b *networks.Bootstrapper) (*networks.BootstrapResult, error) {
				return b.Run(ctx)
			})
		},
	}
}

func newKeysCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "Only prepare the configuration directory and generate keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBootstrap(cmd, func(ctx context.Context, b *networks.Bootstrapper) (*networks.BootstrapResult, error) {
				return b.GenerateKeys(ctx)
			})
		},
	}
}

func (a *app) runBootstrap(cmd *cobra.Command, run func(context.Context, *networks.Bootstrapper) (*networks.BootstrapResult, error)) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	recorder := metrics.NewRecorder()
	bootstrapper, err := a.newBootstrapper(recorder)
	if err != nil {
		return stacktrace.Propagate(err, "An error occurred wiring the bootstrapper")
	}

	result, runErr := run(ctx, bootstrapper)
	if err := printResult(cmd.OutOrStdout(), a.cfg.Output, result); err != nil {
		logrus.Warnf("An error occurred printing the result: %v", err)
	}
	if err := recorder.WriteTextfile(a.cfg.MetricsFile); err != nil {
		logrus.Warnf("An error occurred writing metrics: %v", err)
	}
	if runErr != nil {
		logrus.Errorf("%v", runErr)
		return stacktrace.Propagate(runErr, "Bootstrap failed")
	}
	return nil
}
