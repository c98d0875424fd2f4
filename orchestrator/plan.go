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
	"github.com/palantir/stacktrace"
	"github.com/spf13/cobra"
)

type plannedCall struct {
	Step    string   `json:"step" yaml:"step"`
	Command []string `json:"command" yaml:"command"`
	Env     []string `json:"env,omitempty" yaml:"env,omitempty"`
	Dir     string   `json:"dir,omitempty" yaml:"dir,omitempty"`
	Skipped bool     `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

func newPlanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Print the external tool invocations run would perform, without running them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bootstrapper, err := a.newBootstrapper(nil)
			if err != nil {
				return stacktrace.Propagate(err, "An error occurred wiring the bootstrapper")
			}
			planned, err := bootstrapper.Plan()
			if err != nil {
				return stacktrace.Propagate(err, "An error occurred planning the bootstrap")
			}

			calls := make([]plannedCall, 0, len(planned))
			for _, p := range planned {
				calls = append(calls, plannedCall{
					Step:    p.Step,
					Command: p.CommandLine(),
					Env:     p.Env,
					Dir:     p.Dir,
					Skipped: p.Skipped,
				})
			}
			return printResult(cmd.OutOrStdout(), a.cfg.Output, calls)
		},
	}
}
