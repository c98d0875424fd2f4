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
	"net"
	"strconv"

	"github.com/palantir/stacktrace"
)

// ServiceSocket is the TCP address a local service listens on
type ServiceSocket struct {
	ipAddr string
	port   int
}

// NewServiceSocket ...
func NewServiceSocket(ipAddr string, port int) *ServiceSocket {
	return &ServiceSocket{
		ipAddr: ipAddr,
		port:   port,
	}
}

// ParseServiceSocket parses a host:port address
func ParseServiceSocket(address string) (*ServiceSocket, error) {
	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return nil, stacktrace.Propagate(err, "Invalid service address %v", address)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return nil, stacktrace.NewError("Invalid port %v in service address %v", portStr, address)
	}
	return NewServiceSocket(host, port), nil
}

// GetIpAddr ...
func (socket *ServiceSocket) GetIpAddr() string {
	return socket.ipAddr
}

// GetPort ...
func (socket *ServiceSocket) GetPort() int {
	return socket.port
}

// Address returns the socket as host:port
func (socket *ServiceSocket) Address() string {
	return net.JoinHostPort(socket.ipAddr, strconv.Itoa(socket.port))
}
