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
	"encoding/json"
	"io"

	"github.com/palantir/stacktrace"
	"gopkg.in/yaml.v3"

	"github.com/chain4travel/localnet-bootstrap/localnet/config"
)

// printResult renders v to w in the configured output format
func printResult(w io.Writer, format string, v interface{}) error {
	switch format {
	case config.OutputYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(v); err != nil {
			return stacktrace.Propagate(err, "An error occurred rendering the result as YAML")
		}
		return encoder.Close()
	default:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(v); err != nil {
			return stacktrace.Propagate(err, "An error occurred rendering the result as JSON")
		}
		return nil
	}
}
