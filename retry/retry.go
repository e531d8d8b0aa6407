// Copyright 2026 The async-http-client Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package retry classifies transport failures for a retry policy. It does
// not decide whether to retry; it only reports whether a failure came from
// a transport condition that is known to be safe to retry, such as a
// connection that was reset by the peer before a request was processed.
//
// Failures are inspected along their whole cause chain, following both
// Unwrap() error and Unwrap() []error. Each element is checked for its
// declared origin (see [Origin]) rather than for its concrete type.
// [*net.OpError] values are understood natively; a dial that failed with a
// [*net.DNSError] is not a connect failure.
package retry

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// Components and operations reported through [Origin].
const (
	ComponentSocket = "socket"
	ComponentTLS    = "tls"

	OpConnect    = "connect"
	OpRead       = "read"
	OpWrite      = "write"
	OpDisconnect = "disconnect"
)

const connectionResetMessage = "connection reset by peer"

// Origin is implemented by failures that know which component and which
// operation raised them.
type Origin interface {
	Origin() (component, op string)
}

// TransportError is a failure raised by a transport component. Transports
// use it to tag the failures they return so they can be classified.
type TransportError struct {
	Component string
	Op        string
	Err       error
}

var _ Origin = (*TransportError)(nil)

func (e *TransportError) Error() string {
	if e.Err == nil {
		return e.Component + " " + e.Op
	}
	return e.Component + " " + e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Origin implements [Origin].
func (e *TransportError) Origin() (string, string) {
	return e.Component, e.Op
}

// IsConnectRecoverable reports whether err is a connect-time failure raised
// while completing a socket connection.
func IsConnectRecoverable(err error) bool {
	return anyInChain(err, func(e error) bool {
		return originIs(e, ComponentSocket, OpConnect)
	})
}

// IsDisconnectRecoverable reports whether err is a disconnect that happened
// while tearing down a TLS session, or was caused by a connect-time
// failure.
func IsDisconnectRecoverable(err error) bool {
	return anyInChain(err, func(e error) bool {
		return originIs(e, ComponentTLS, OpDisconnect)
	}) || anyCause(err, IsConnectRecoverable)
}

// IsReadWriteRecoverable reports whether err is a read or write failure of
// the socket layer, or the peer reset the connection.
func IsReadWriteRecoverable(err error) bool {
	return anyInChain(err, func(e error) bool {
		if errors.Is(e, syscall.ECONNRESET) || strings.EqualFold(e.Error(), connectionResetMessage) {
			return true
		}
		return originIs(e, ComponentSocket, OpRead) || originIs(e, ComponentSocket, OpWrite)
	})
}

func originIs(err error, component, op string) bool {
	var gotComponent, gotOp string
	switch origin := err.(type) { //nolint:errorlint // each chain element is inspected individually
	case Origin:
		gotComponent, gotOp = origin.Origin()
	case *net.OpError:
		gotComponent, gotOp = ComponentSocket, origin.Op
		if gotOp == "dial" {
			// A dial that failed to resolve the host never reached a socket.
			var dnsErr *net.DNSError
			if errors.As(origin.Err, &dnsErr) {
				return false
			}
			gotOp = OpConnect
		}
	default:
		return false
	}
	return gotComponent == component && gotOp == op
}

func anyCause(err error, match func(error) bool) bool {
	switch wrapper := err.(type) { //nolint:errorlint // only the direct causes are inspected
	case interface{ Unwrap() []error }:
		for _, cause := range wrapper.Unwrap() {
			if match(cause) {
				return true
			}
		}
	case interface{ Unwrap() error }:
		return match(wrapper.Unwrap())
	}
	return false
}

func anyInChain(err error, match func(error) bool) bool {
	for err != nil {
		if match(err) {
			return true
		}
		switch wrapper := err.(type) { //nolint:errorlint // walking the chain by hand
		case interface{ Unwrap() []error }:
			for _, cause := range wrapper.Unwrap() {
				if anyInChain(cause, match) {
					return true
				}
			}
			return false
		case interface{ Unwrap() error }:
			err = wrapper.Unwrap()
		default:
			return false
		}
	}
	return false
}
