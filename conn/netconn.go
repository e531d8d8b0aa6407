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

package conn

import (
	"fmt"
	"net"
	"sync/atomic"

	"github.com/google/uuid"
)

// State is the lifecycle state of a [NetConn].
type State int32

const (
	// StateActive means the connection is in use by a request pipeline.
	StateActive State = iota
	// StateIdle means the connection was discarded from active use, for
	// example after being offered to the reuse cache.
	StateIdle
	// StateClosed is terminal.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateIdle:
		return "idle"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// NetConn adapts a [net.Conn] to [Conn].
type NetConn struct {
	id         uuid.UUID
	conn       net.Conn
	state      atomic.Int32
	unreadable atomic.Bool
	attachment atomic.Pointer[pendingBox]
}

type pendingBox struct {
	pending Pending
}

var _ Conn = (*NetConn)(nil)

// NewNetConn wraps the given connection. The returned value starts out in
// the active state with a freshly generated identifier.
func NewNetConn(c net.Conn) *NetConn {
	return &NetConn{id: uuid.New(), conn: c}
}

// ID implements [Conn].
func (c *NetConn) ID() uuid.UUID {
	return c.id
}

// Unwrap returns the underlying network connection.
func (c *NetConn) Unwrap() net.Conn {
	return c.conn
}

// State returns the current lifecycle state.
func (c *NetConn) State() State {
	return State(c.state.Load())
}

// MarkUnreadable records that a protocol error was observed, so the
// connection must not be reused.
func (c *NetConn) MarkUnreadable() {
	c.unreadable.Store(true)
}

// IsReadable implements [Conn].
func (c *NetConn) IsReadable() bool {
	return !c.unreadable.Load() && c.State() != StateClosed
}

// Attach implements [Conn]. It has no effect once the connection is closed.
func (c *NetConn) Attach(p Pending) {
	if !c.state.CompareAndSwap(int32(StateIdle), int32(StateActive)) && c.State() == StateClosed {
		return
	}
	c.attachment.Store(&pendingBox{pending: p})
}

// Attachment implements [Conn].
func (c *NetConn) Attachment() Pending {
	box := c.attachment.Load()
	if box == nil {
		return nil
	}
	return box.pending
}

// Discard implements [Conn].
func (c *NetConn) Discard() {
	c.attachment.Store(nil)
	c.state.CompareAndSwap(int32(StateActive), int32(StateIdle))
}

// Close implements [Conn]. Only the first call closes the underlying
// connection; later calls return nil.
func (c *NetConn) Close() error {
	for {
		current := c.state.Load()
		if State(current) == StateClosed {
			return nil
		}
		if c.state.CompareAndSwap(current, int32(StateClosed)) {
			break
		}
	}
	return c.conn.Close()
}

func (c *NetConn) String() string {
	return fmt.Sprintf("conn[%s %s->%s %s]", c.id, c.conn.LocalAddr(), c.conn.RemoteAddr(), c.State())
}
