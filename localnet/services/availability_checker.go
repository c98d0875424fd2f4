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
	"context"
	"net"
	"time"

	"github.com/palantir/stacktrace"
	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"
)

const (
	initialPollInterval = 250 * time.Millisecond
	maxPollInterval     = 2 * time.Second
	dialTimeout         = time.Second

	healthyStatus = "ok"
)

// HealthReporter is satisfied by the validator RPC client
type HealthReporter interface {
	GetHealth(ctx context.Context) (string, error)
}

// AvailabilityChecker polls a service until it reports itself as up or the timeout elapses
type AvailabilityChecker struct {
	timeout time.Duration
}

// NewAvailabilityChecker returns a checker that gives up after timeout
func NewAvailabilityChecker(timeout time.Duration) *AvailabilityChecker {
	return &AvailabilityChecker{
		timeout: timeout,
	}
}

// WaitForTCP blocks until the socket accepts TCP connections
func (c AvailabilityChecker) WaitForTCP(ctx context.Context, socket *ServiceSocket) error {
	address := socket.Address()
	return c.poll(ctx, address, func(ctx context.Context) error {
		dialer := net.Dialer{Timeout: dialTimeout}
		conn, err := dialer.DialContext(ctx, "tcp", address)
		if err != nil {
			return err
		}
		return conn.Close()
	})
}

// WaitForRPC blocks until the node's RPC health endpoint reports "ok"
func (c AvailabilityChecker) WaitForRPC(ctx context.Context, name string, client HealthReporter) error {
	return c.poll(ctx, name, func(ctx context.Context) error {
		health, err := client.GetHealth(ctx)
		if err != nil {
			return err
		}
		if health != healthyStatus {
			return stacktrace.NewError("Node reported health %q", health)
		}
		return nil
	})
}

func (c AvailabilityChecker) poll(ctx context.Context, target string, isUp func(ctx context.Context) error) error {
	backoff := retry.WithCappedDuration(maxPollInterval, retry.NewExponential(initialPollInterval))

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var lastErr error
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if lastErr = isUp(ctx); lastErr != nil {
			logrus.Debugf("%v is not available yet: %v", target, lastErr)
			return retry.RetryableError(lastErr)
		}
		return nil
	})
	if err != nil {
		if lastErr != nil {
			return stacktrace.Propagate(lastErr, "%v did not become available within %v", target, c.timeout)
		}
		return stacktrace.Propagate(err, "An error occurred waiting for %v", target)
	}
	logrus.Debugf("%v is available", target)
	return nil
}
