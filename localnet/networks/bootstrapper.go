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
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/palantir/stacktrace"
	"github.com/sirupsen/logrus"

	"github.com/chain4travel/localnet-bootstrap/localnet/keys"
	"github.com/chain4travel/localnet-bootstrap/localnet/metrics"
	"github.com/chain4travel/localnet-bootstrap/localnet/process"
	"github.com/chain4travel/localnet-bootstrap/localnet/services"
)

// FaucetMode decides whether the run waits for the faucet or leaves it running
type FaucetMode string

const (
	// FaucetWait runs the faucet in the foreground; the run ends when the faucet exits
	FaucetWait FaucetMode = "wait"
	// FaucetDetach starts the faucet, waits for its address to accept connections and returns
	FaucetDetach FaucetMode = "detach"
)

// FaucetOptions configures the last bootstrap step
type FaucetOptions struct {
	Mode FaucetMode

	// Address probed after a detached start; nil skips the probe
	Socket *services.ServiceSocket

	ReadyTimeout time.Duration

	// Output of a detached faucet
	LogFile string

	// How long a faucet that never became ready gets to shut down
	StopGrace time.Duration
}

// Bootstrapper stands up the local two-validator network by running the external collaborators in order:
// config dir guard, key generation, key verification, cluster setup, snapshot, faucet.
// The first failure aborts the run.
type Bootstrapper struct {
	layout        keys.Layout
	collaborators *services.CollaboratorSet
	executor      process.Executor
	recorder      *metrics.Recorder

	snapshotLedgerDir string
	snapshotSlot      uint64

	faucet FaucetOptions
}

// NewBootstrapper creates a new bootstrapper
// Args:
// 	layout: Where the configuration directory and key files live
// 	collaborators: Builds the invocations of the external collaborators
// 	executor: Runs those invocations
// 	recorder: Receives per-step metrics; may be nil
// 	snapshotLedgerDir: Ledger directory of role a, the only one that gets snapshotted
// 	snapshotSlot: Slot the snapshot is taken at
// 	faucet: How the faucet is launched
func NewBootstrapper(
	layout keys.Layout,
	collaborators *services.CollaboratorSet,
	executor process.Executor,
	recorder *metrics.Recorder,
	snapshotLedgerDir string,
	snapshotSlot uint64,
	faucet FaucetOptions) *Bootstrapper {
	return &Bootstrapper{
		layout:            layout,
		collaborators:     collaborators,
		executor:          executor,
		recorder:          recorder,
		snapshotLedgerDir: snapshotLedgerDir,
		snapshotSlot:      snapshotSlot,
		faucet:            faucet,
	}
}

// step is one stage of the pipeline. Returning an error aborts the run.
type step struct {
	name string
	run  func(ctx context.Context, run *bootstrapRun, result *StepResult) error
}

// bootstrapRun carries the state shared by the steps of one run
type bootstrapRun struct {
	result *BootstrapResult
	log    *logrus.Entry
}

// Run performs the whole bootstrap sequence. The returned result is always non-nil and describes
// every step, including the ones skipped because an earlier one failed.
func (b *Bootstrapper) Run(ctx context.Context) (*BootstrapResult, error) {
	return b.execute(ctx, []step{
		{PrepareConfigDirStep, b.prepareConfigDir},
		{services.GenerateKeysStep, b.generateKeys},
		{VerifyKeysStep, b.verifyKeys},
		{services.ClusterSetupStep, b.setupCluster},
		{services.CreateSnapshotStep, b.createSnapshot},
		{services.LaunchFaucetStep, b.launchFaucet},
	})
}

// GenerateKeys only prepares the configuration directory and its key files
func (b *Bootstrapper) GenerateKeys(ctx context.Context) (*BootstrapResult, error) {
	return b.execute(ctx, []step{
		{PrepareConfigDirStep, b.prepareConfigDir},
		{services.GenerateKeysStep, b.generateKeys},
		{VerifyKeysStep, b.verifyKeys},
	})
}

func (b *Bootstrapper) execute(ctx context.Context, steps []step) (*BootstrapResult, error) {
	run := &bootstrapRun{
		result: &BootstrapResult{
			RunID:     uuid.New().String(),
			ConfigDir: b.layout.Root,
			Status:    StatusOK,
			Steps:     make([]StepResult, 0, len(steps)),
		},
	}
	run.log = logrus.WithField("run_id", run.result.RunID)
	run.log.Infof("Bootstrapping local network in %v", b.layout.Root)

	var runErr error
	for _, s := range steps {
		result := StepResult{Name: s.name, Status: StatusOK}
		if runErr != nil {
			result.Status = StatusSkipped
			result.Reason = "an earlier step failed"
			b.finishStep(run, result, 0)
			continue
		}

		start := time.Now()
		if err := s.run(ctx, run, &result); err != nil {
			runErr = stacktrace.Propagate(err, "Bootstrap step %v failed", s.name)
			result.Status = StatusError
			result.Error = err.Error()
			run.result.Status = StatusError
			run.result.FailedStep = s.name
		}
		b.finishStep(run, result, time.Since(start))
	}

	if b.recorder != nil {
		b.recorder.ObserveRunFinished(time.Now())
	}
	if runErr != nil {
		run.log.Errorf("Bootstrap failed at step %v", run.result.FailedStep)
		return run.result, runErr
	}
	run.log.Infof("Bootstrap completed")
	return run.result, nil
}

func (b *Bootstrapper) finishStep(run *bootstrapRun, result StepResult, duration time.Duration) {
	result.DurationMs = duration.Milliseconds()
	run.result.Steps = append(run.result.Steps, result)
	if b.recorder != nil {
		b.recorder.ObserveStep(result.Name, result.Status, duration)
	}

	entry := run.log.WithField("step", result.Name)
	switch result.Status {
	case StatusOK:
		entry.Infof("Step finished in %v", duration.Round(time.Millisecond))
	case StatusSkipped:
		entry.Infof("Step skipped: %v", result.Reason)
	default:
		entry.Warnf("Step failed: %v", result.Error)
	}
}

func (b *Bootstrapper) prepareConfigDir(_ context.Context, run *bootstrapRun, result *StepResult) error {
	state, err := keys.PrepareConfigDir(b.layout.Root)
	if err != nil {
		return stacktrace.Propagate(err, "An error occurred preparing config directory %v", b.layout.Root)
	}
	run.result.DirState = state
	result.Reason = state.String()
	return nil
}

func (b *Bootstrapper) generateKeys(ctx context.Context, run *bootstrapRun, result *StepResult) error {
	if run.result.DirState != keys.FreshlyCreated {
		result.Status = StatusSkipped
		result.Reason = "config directory already existed, keys are never regenerated"
		return nil
	}
	if err := b.layout.PrepareRoleDirs(); err != nil {
		return stacktrace.Propagate(err, "An error occurred creating role directories")
	}

	for _, role := range keys.Roles {
		for _, kind := range keys.GenerationOrder {
			path := b.layout.KeyPath(role, kind)
			if err := b.invoke(ctx, result, b.collaborators.Keygen(path)); err != nil {
				return stacktrace.Propagate(err, "An error occurred generating %v key for role %v", kind, role)
			}
			run.log.Debugf("Generated %v", path)
		}
	}
	return nil
}

func (b *Bootstrapper) verifyKeys(_ context.Context, _ *bootstrapRun, result *StepResult) error {
	missing, err := b.layout.MissingKeys()
	if err != nil {
		return stacktrace.Propagate(err, "An error occurred checking key files")
	}
	if len(missing) > 0 {
		return stacktrace.NewError("Config directory %v is partially initialized, missing key files: %v", b.layout.Root, missing)
	}
	return nil
}

func (b *Bootstrapper) setupCluster(ctx context.Context, _ *bootstrapRun, result *StepResult) error {
	return b.invoke(ctx, result, b.collaborators.ClusterSetup(b.layout.Records()))
}

func (b *Bootstrapper) createSnapshot(ctx context.Context, _ *bootstrapRun, result *StepResult) error {
	return b.invoke(ctx, result, b.collaborators.Snapshot(b.snapshotLedgerDir, b.snapshotSlot))
}

func (b *Bootstrapper) launchFaucet(ctx context.Context, run *bootstrapRun, result *StepResult) error {
	invocation := b.collaborators.Faucet()
	if b.faucet.Mode == FaucetDetach {
		return b.detachFaucet(ctx, run, result, invocation)
	}

	run.log.Infof("Running faucet in the foreground, interrupt to stop it")
	err := b.invoke(ctx, result, invocation)
	if err != nil && ctx.Err() != nil {
		// An interrupt is how a foreground faucet is meant to be stopped
		result.Reason = "stopped by interrupt"
		return nil
	}
	return err
}

func (b *Bootstrapper) detachFaucet(ctx context.Context, run *bootstrapRun, result *StepResult, invocation services.Invocation) error {
	handle, err := b.executor.Start(invocation, b.faucet.LogFile)
	if err != nil {
		return stacktrace.Propagate(err, "An error occurred starting the faucet")
	}
	result.Invocations = append(result.Invocations, InvocationResult{
		Command:  invocation.CommandLine(),
		Env:      invocation.Env,
		ExitCode: process.NoExitCode,
	})

	if b.faucet.Socket != nil {
		if err := b.waitForFaucet(ctx, handle); err != nil {
			return err
		}
	}

	run.result.Faucet = &FaucetProcess{
		Pid:     handle.Pid(),
		LogFile: handle.LogPath(),
	}
	result.Reason = "detached"
	run.log.Infof("Faucet running with pid %v, logging to %v", handle.Pid(), handle.LogPath())
	return nil
}

// waitForFaucet waits until the faucet accepts connections, failing early if it exits first
func (b *Bootstrapper) waitForFaucet(ctx context.Context, handle *process.Handle) error {
	readyCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-handle.Exited():
			cancel()
		case <-readyCtx.Done():
		}
	}()

	logrus.Infof("Waiting up to %v for the faucet to listen on %v port %v", b.faucet.ReadyTimeout, b.faucet.Socket.GetIpAddr(), b.faucet.Socket.GetPort())
	checker := services.NewAvailabilityChecker(b.faucet.ReadyTimeout)
	err := checker.WaitForTCP(readyCtx, b.faucet.Socket)
	if err == nil {
		return nil
	}

	select {
	case <-handle.Exited():
		if exitErr := handle.ExitErr(); exitErr != nil {
			return stacktrace.Propagate(exitErr, "The faucet exited with code %v before accepting connections, see %v", handle.ExitCode(), handle.LogPath())
		}
		return stacktrace.NewError("The faucet exited before accepting connections, see %v", handle.LogPath())
	default:
	}
	if stopErr := handle.Stop(b.faucet.StopGrace); stopErr != nil {
		logrus.Warnf("An error occurred stopping the faucet: %v", stopErr)
	}
	return stacktrace.Propagate(err, "The faucet never accepted connections on %v", b.faucet.Socket.Address())
}

// invoke runs one collaborator, recording it in the step result
func (b *Bootstrapper) invoke(ctx context.Context, result *StepResult, invocation services.Invocation) error {
	outcome := b.executor.Run(ctx, invocation)
	result.Invocations = append(result.Invocations, InvocationResult{
		Command:    invocation.CommandLine(),
		Env:        invocation.Env,
		ExitCode:   outcome.ExitCode,
		DurationMs: outcome.Duration.Milliseconds(),
		Output:     outcome.Output,
	})
	if outcome.Err != nil {
		return stacktrace.Propagate(outcome.Err, "An error occurred running %v", invocation.Binary)
	}
	return nil
}

// PlannedInvocation is one entry of a dry run
type PlannedInvocation struct {
	services.Invocation
	Skipped bool
}

// Plan returns every invocation Run would perform against the current state of the config directory,
// without touching anything
func (b *Bootstrapper) Plan() ([]PlannedInvocation, error) {
	keygenSkipped := false
	info, err := os.Stat(b.layout.Root)
	switch {
	case err == nil && info.IsDir():
		keygenSkipped = true
	case err == nil:
		return nil, stacktrace.NewError("Config path %v exists but is not a directory", b.layout.Root)
	case !os.IsNotExist(err):
		return nil, stacktrace.Propagate(err, "An error occurred inspecting config directory %v", b.layout.Root)
	}

	planned := []PlannedInvocation{}
	for _, path := range b.layout.AllKeyPaths() {
		planned = append(planned, PlannedInvocation{Invocation: b.collaborators.Keygen(path), Skipped: keygenSkipped})
	}
	planned = append(planned,
		PlannedInvocation{Invocation: b.collaborators.ClusterSetup(b.layout.Records())},
		PlannedInvocation{Invocation: b.collaborators.Snapshot(b.snapshotLedgerDir, b.snapshotSlot)},
		PlannedInvocation{Invocation: b.collaborators.Faucet()},
	)
	return planned, nil
}
