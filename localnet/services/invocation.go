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
	"os"
	"strings"
)

const (
	// Environment toggle understood by the setup and faucet scripts
	debugAssertionsEnvVar = "NDEBUG"
)

// Invocation describes one call of an external collaborator
type Invocation struct {
	// Name of the bootstrap step this invocation belongs to
	Step string

	// Binary to run, resolved against Dir (or PATH) the way exec.Command does
	Binary string

	Args []string

	// Extra environment entries, appended to the orchestrator's own environment for this child only
	Env []string

	// Variables of the orchestrator's own environment the child must not inherit
	Unset []string

	// Working directory of the child; empty means the orchestrator's working directory
	Dir string

	// Long-running collaborators are not bound by the step timeout
	NoTimeout bool
}

// CommandLine returns the binary followed by its arguments
func (i Invocation) CommandLine() []string {
	result := make([]string, 0, len(i.Args)+1)
	result = append(result, i.Binary)
	return append(result, i.Args...)
}

// String renders the invocation as a single shell-like line, for logging only
func (i Invocation) String() string {
	parts := append([]string{}, i.Env...)
	parts = append(parts, i.CommandLine()...)
	return strings.Join(parts, " ")
}

// Environ returns the full environment the child should see
func (i Invocation) Environ() []string {
	inherited := os.Environ()
	environ := make([]string, 0, len(inherited)+len(i.Env))
	for _, entry := range inherited {
		if !i.unsets(entry) {
			environ = append(environ, entry)
		}
	}
	return append(environ, i.Env...)
}

func (i Invocation) unsets(entry string) bool {
	name, _, _ := strings.Cut(entry, "=")
	for _, unset := range i.Unset {
		if name == unset {
			return true
		}
	}
	return false
}

// DebugAssertions controls whether the scripts run with debug assertions
type DebugAssertions bool

const (
	DebugAssertionsEnabled    DebugAssertions = true
	DebugAssertionsSuppressed DebugAssertions = false
)

func (d DebugAssertions) env() []string {
	if d == DebugAssertionsSuppressed {
		return []string{debugAssertionsEnvVar + "=1"}
	}
	return nil
}

// unset lists the inherited variables that would override the toggle
func (d DebugAssertions) unset() []string {
	if d == DebugAssertionsEnabled {
		return []string{debugAssertionsEnvVar}
	}
	return nil
}

// Binaries holds the locations of the external collaborators
type Binaries struct {
	Keygen     string
	Setup      string
	LedgerTool string
	Faucet     string
}
