// Copyright (C) 2022, Chain4Travel AG. All rights reserved.
//
// This file is a derived work, based on ava-labs code
//
// It is distributed under the same license conditions as the
// original code from which it is derived.
//
// Much love to the original authors for their work.

package rpc

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/rpc/v2/json2"
	"github.com/palantir/stacktrace"
)

const (
	getHealthMethod  = "getHealth"
	getVersionMethod = "getVersion"
	getSlotMethod    = "getSlot"
)

// Version is the result of getVersion
type Version struct {
	SolanaCore string `json:"solana-core"`
	FeatureSet uint32 `json:"feature-set"`
}

// Client talks JSON-RPC 2.0 to a validator's RPC endpoint
type Client struct {
	uri        string
	httpClient *http.Client
}

// NewClient returns a Client for the validator RPC endpoint at uri
func NewClient(uri string, requestTimeout time.Duration) *Client {
	return &Client{
		uri:        uri,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// URI ...
func (c *Client) URI() string {
	return c.uri
}

// GetHealth returns "ok" when the node is healthy. An unhealthy node answers with an RPC error.
func (c *Client) GetHealth(ctx context.Context) (string, error) {
	var health string
	if err := c.call(ctx, getHealthMethod, &health); err != nil {
		return "", err
	}
	return health, nil
}

// GetVersion ...
func (c *Client) GetVersion(ctx context.Context) (*Version, error) {
	version := &Version{}
	if err := c.call(ctx, getVersionMethod, version); err != nil {
		return nil, err
	}
	return version, nil
}

// GetSlot returns the slot the node has reached
func (c *Client) GetSlot(ctx context.Context) (uint64, error) {
	var slot uint64
	if err := c.call(ctx, getSlotMethod, &slot); err != nil {
		return 0, err
	}
	return slot, nil
}

func (c *Client) call(ctx context.Context, method string, reply interface{}) error {
	body, err := json2.EncodeClientRequest(method, []interface{}{})
	if err != nil {
		return stacktrace.Propagate(err, "An error occurred encoding %v request", method)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uri, bytes.NewReader(body))
	if err != nil {
		return stacktrace.Propagate(err, "An error occurred creating %v request for %v", method, c.uri)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return stacktrace.Propagate(err, "An error occurred calling %v on %v", method, c.uri)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return stacktrace.NewError("%v on %v returned HTTP status %v", method, c.uri, response.StatusCode)
	}
	if err := json2.DecodeClientResponse(response.Body, reply); err != nil {
		return stacktrace.Propagate(err, "%v on %v failed", method, c.uri)
	}
	return nil
}

// String ...
func (c *Client) String() string {
	return fmt.Sprintf("rpc(%s)", c.uri)
}
