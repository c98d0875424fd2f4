// Copyright (C) 2022, Chain4Travel AG. All rights reserved.
//
// This file is a derived work, based on ava-labs code
//
// It is distributed under the same license conditions as the
// original code from which it is derived.
//
// Much love to the original authors for their work.

package keys

import (
	"os"

	"github.com/chain4travel/caminogo/utils/perms"
	"github.com/palantir/stacktrace"
)

// DirState is the outcome of preparing the configuration directory
type DirState int

const (
	// FreshlyCreated means this call created the directory, so keys must be generated
	FreshlyCreated DirState = iota + 1
	// AlreadyExists means a previous run created the directory, so keys must not be regenerated
	AlreadyExists
)

func (s DirState) String() string {
	switch s {
	case FreshlyCreated:
		return "freshly-created"
	case AlreadyExists:
		return "already-exists"
	}
	return "unknown"
}

// MarshalText lets results render the state by name
func (s DirState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText is the inverse of MarshalText
func (s *DirState) UnmarshalText(text []byte) error {
	switch string(text) {
	case FreshlyCreated.String():
		*s = FreshlyCreated
	case AlreadyExists.String():
		*s = AlreadyExists
	default:
		return stacktrace.NewError("Unknown config directory state %q", string(text))
	}
	return nil
}

// PrepareConfigDir creates the configuration directory without creating any parents.
// Only "already exists as a directory" is treated as a previous run; a file in the way, a missing
// parent or a permission problem is returned as an error.
func PrepareConfigDir(root string) (DirState, error) {
	err := os.Mkdir(root, perms.ReadWriteExecute)
	if err == nil {
		return FreshlyCreated, nil
	}
	if !os.IsExist(err) {
		return 0, stacktrace.Propagate(err, "An error occurred creating config directory %v", root)
	}

	info, statErr := os.Stat(root)
	if statErr != nil {
		return 0, stacktrace.Propagate(statErr, "Config directory %v exists but couldn't be inspected", root)
	}
	if !info.IsDir() {
		return 0, stacktrace.NewError("Config path %v exists but is not a directory", root)
	}
	return AlreadyExists, nil
}

// PrepareRoleDirs creates the per-role directories the key generator writes into
func (l Layout) PrepareRoleDirs() error {
	for _, role := range Roles {
		if err := os.MkdirAll(l.RoleDir(role), perms.ReadWriteExecute); err != nil {
			return stacktrace.Propagate(err, "An error occurred creating directory for role %v", role)
		}
	}
	return nil
}
