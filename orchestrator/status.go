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
	"net"
	"time"

	"github.com/palantir/stacktrace"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/chain4travel/localnet-bootstrap/localnet/services"
	"github.com/chain4travel/localnet-bootstrap/localnet_client/rpc"
)

// probeResult is the status of one validator RPC endpoint or the faucet
type probeResult struct {
	Target    string `json:"target" yaml:"target"`
	Kind      string `json:"kind" yaml:"kind"`
	OK        bool   `json:"ok" yaml:"ok"`
	Version   string `json:"version,omitempty" yaml:"version,omitempty"`
	Slot      uint64 `json:"slot,omitempty" yaml:"slot,omitempty"`
	LatencyMs int64  `json:"latencyMs" yaml:"latencyMs"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

func newStatusCmd(a *app) *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Probe the validators' RPC endpoints and the faucet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			results := a.probeAll(cmd.Context(), wait)
			if err := printResult(cmd.OutOrStdout(), a.cfg.Output, results); err != nil {
				return err
			}
			down := 0
			for _, result := range results {
				if !result.OK {
					down++
				}
			}
			if down > 0 {
				return stacktrace.NewError("%v of %v targets are unavailable", down, len(results))
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 0, "keep probing until every target is up or this much time has passed")
	return cmd
}

// probeAll probes every target concurrently; results keep the configured order, faucet last
func (a *app) probeAll(ctx context.Context, wait time.Duration) []probeResult {
	if ctx == nil {
		ctx = context.Background()
	}
	endpoints := a.cfg.RPC.Endpoints
	results := make([]probeResult, len(endpoints)+1)
	// Each probe writes only its own slot and reports failures through it; the group only joins them
	var g errgroup.Group

	for i, endpoint := range endpoints {
		i, endpoint := i, endpoint
		g.Go(func() error {
			results[i] = probeValidator(ctx, rpc.NewClient(endpoint, a.cfg.RPC.RequestTimeout), wait)
			return nil
		})
	}
	g.Go(func() error {
		results[len(endpoints)] = probeFaucet(ctx, a.cfg.Faucet.Address, wait)
		return nil
	})
	_ = g.Wait()
	return results
}

func probeValidator(ctx context.Context, client *rpc.Client, wait time.Duration) probeResult {
	result := probeResult{Target: client.URI(), Kind: "validator"}
	logrus.Debugf("Probing %v", client)
	start := time.Now()

	var err error
	if wait > 0 {
		err = services.NewAvailabilityChecker(wait).WaitForRPC(ctx, client.URI(), client)
	} else {
		_, err = client.GetHealth(ctx)
	}
	if err == nil {
		var version *rpc.Version
		if version, err = client.GetVersion(ctx); err == nil {
			result.Version = version.SolanaCore
			result.Slot, err = client.GetSlot(ctx)
		}
	}

	result.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.OK = true
	return result
}

func probeFaucet(ctx context.Context, address string, wait time.Duration) probeResult {
	result := probeResult{Target: address, Kind: "faucet"}
	start := time.Now()

	socket, err := services.ParseServiceSocket(address)
	if err == nil {
		logrus.Debugf("Probing faucet on %v port %v", socket.GetIpAddr(), socket.GetPort())
		if wait > 0 {
			err = services.NewAvailabilityChecker(wait).WaitForTCP(ctx, socket)
		} else {
			var conn net.Conn
			dialer := net.Dialer{Timeout: time.Second}
			if conn, err = dialer.DialContext(ctx, "tcp", socket.Address()); err == nil {
				err = conn.Close()
			}
		}
	}

	result.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.OK = true
	return result
}
