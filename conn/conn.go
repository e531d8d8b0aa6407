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

// Package conn provides the representation of a single transport-level
// connection as seen by the connection manager and the reuse cache.
//
// A [Conn] is exclusively owned by the request pipeline that is using it.
// When the pipeline is done with it, the connection is either handed to the
// reuse cache (see package pool) or closed. The pipeline may attach a
// [Pending] value, which represents the in-flight exchange on the
// connection, so that shutdown can reach it.
package conn

import (
	"errors"

	"github.com/google/uuid"
)

// ErrTimeout is the error with which a [Completion] completes when its
// timeout elapses first.
var ErrTimeout = errors.New("request timed out")

// Conn is a single transport-level connection.
type Conn interface {
	// ID returns the unique identifier of this connection.
	ID() uuid.UUID
	// IsReadable reports whether the connection may still be read from.
	// It returns false once a protocol error was observed or once the
	// connection is closed.
	IsReadable() bool
	// Close physically closes the connection. Implementations must be
	// idempotent.
	Close() error
	// Attach associates the in-flight exchange with this connection and
	// marks it as actively used.
	Attach(p Pending)
	// Attachment returns the in-flight exchange, or nil if there is none.
	Attachment() Pending
	// Discard detaches any in-flight exchange and marks the connection as
	// no longer in active use.
	Discard()
}

// Pending is the pending-response object of an in-flight exchange.
type Pending interface {
	// CancelTimeouts stops any timers associated with the exchange.
	CancelTimeouts()
	// Cancel completes the exchange with the given cause, if it was not
	// already completed. It returns true if this call completed it.
	Cancel(cause error) bool
}
