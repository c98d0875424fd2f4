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
	"path/filepath"

	"github.com/palantir/stacktrace"
)

const (
	keyFileExtension = ".json"

	// Directory, under a role directory, holding that validator's ledger
	ledgerDirName = "ledger"
)

// Role identifies one of the two symmetric bootstrap validators
type Role string

const (
	RoleA Role = "a"
	RoleB Role = "b"
)

// Roles lists the bootstrap validators in the order they are generated and passed to cluster setup
var Roles = []Role{RoleA, RoleB}

// KeyKind is the kind of credential file generated for a role
type KeyKind string

const (
	Identity     KeyKind = "identity"
	StakeAccount KeyKind = "stake-account"
	VoteAccount  KeyKind = "vote-account"
)

// GenerationOrder is the order in which the key generator is invoked for a role
var GenerationOrder = []KeyKind{Identity, StakeAccount, VoteAccount}

// SetupOrder is the order in which a role's key paths are handed to the cluster setup routine.
// NOTE: this intentionally differs from GenerationOrder; the setup routine reads its arguments positionally.
var SetupOrder = []KeyKind{Identity, VoteAccount, StakeAccount}

// Layout maps roles and key kinds to paths under a configuration directory
type Layout struct {
	Root string
}

// NewLayout creates a Layout rooted at the given configuration directory
func NewLayout(root string) Layout {
	return Layout{Root: filepath.Clean(root)}
}

// RoleDir returns the directory holding all key files of the given role
func (l Layout) RoleDir(role Role) string {
	return filepath.Join(l.Root, string(role))
}

// KeyPath returns <root>/<role>/<kind>.json
func (l Layout) KeyPath(role Role, kind KeyKind) string {
	return filepath.Join(l.RoleDir(role), string(kind)+keyFileExtension)
}

// LedgerDir returns the ledger directory of the given role
func (l Layout) LedgerDir(role Role) string {
	return filepath.Join(l.RoleDir(role), ledgerDirName)
}

// AllKeyPaths returns every key path in generation order: all of role a, then all of role b
func (l Layout) AllKeyPaths() []string {
	result := make([]string, 0, len(Roles)*len(GenerationOrder))
	for _, role := range Roles {
		for _, kind := range GenerationOrder {
			result = append(result, l.KeyPath(role, kind))
		}
	}
	return result
}

// MissingKeys returns the key paths that don't exist on disk, in generation order
func (l Layout) MissingKeys() ([]string, error) {
	missing := []string{}
	for _, path := range l.AllKeyPaths() {
		info, err := os.Stat(path)
		if os.IsNotExist(err) {
			missing = append(missing, path)
			continue
		}
		if err != nil {
			return nil, stacktrace.Propagate(err, "An error occurred checking key file %v", path)
		}
		if info.IsDir() {
			return nil, stacktrace.NewError("Expected key file at %v but found a directory", path)
		}
	}
	return missing, nil
}

// RoleRecord groups the three key paths of one validator, all taken from the same role directory
type RoleRecord struct {
	Role         Role
	Identity     string
	VoteAccount  string
	StakeAccount string
}

// Record builds the RoleRecord for the given role
func (l Layout) Record(role Role) RoleRecord {
	return RoleRecord{
		Role:         role,
		Identity:     l.KeyPath(role, Identity),
		VoteAccount:  l.KeyPath(role, VoteAccount),
		StakeAccount: l.KeyPath(role, StakeAccount),
	}
}

// Records returns one RoleRecord per role, in role order
func (l Layout) Records() []RoleRecord {
	result := make([]RoleRecord, 0, len(Roles))
	for _, role := range Roles {
		result = append(result, l.Record(role))
	}
	return result
}

// Path returns the record's path for the given kind
func (r RoleRecord) Path(kind KeyKind) string {
	switch kind {
	case Identity:
		return r.Identity
	case VoteAccount:
		return r.VoteAccount
	case StakeAccount:
		return r.StakeAccount
	}
	return ""
}

// SetupPaths returns the record's paths in SetupOrder
func (r RoleRecord) SetupPaths() []string {
	result := make([]string, 0, len(SetupOrder))
	for _, kind := range SetupOrder {
		result = append(result, r.Path(kind))
	}
	return result
}
