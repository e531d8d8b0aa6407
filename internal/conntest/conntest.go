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

// Package conntest provides fake connections and pending exchanges for
// tests.
package conntest

import (
	"sync"
	"sync/atomic"

	"github.com/NullP0inter/async-http-client/conn"
	"github.com/google/uuid"
)

// FakeConn is a [conn.Conn] that records how it was used.
type FakeConn struct {
	id         uuid.UUID
	closeErr   error
	unreadable atomic.Bool
	closes     atomic.Int32
	discards   atomic.Int32

	mu sync.Mutex
	// +checklocks:mu
	attachment conn.Pending
}

var _ conn.Conn = (*FakeConn)(nil)

// NewFakeConn returns a readable fake connection.
func NewFakeConn() *FakeConn {
	return &FakeConn{id: uuid.New()}
}

// NewFailingConn returns a fake connection whose Close always returns err.
func NewFailingConn(err error) *FakeConn {
	c := NewFakeConn()
	c.closeErr = err
	return c
}

func (c *FakeConn) ID() uuid.UUID {
	return c.id
}

func (c *FakeConn) IsReadable() bool {
	return !c.unreadable.Load() && c.closes.Load() == 0
}

// SetUnreadable simulates a protocol error on the connection.
func (c *FakeConn) SetUnreadable() {
	c.unreadable.Store(true)
}

func (c *FakeConn) Close() error {
	c.closes.Add(1)
	return c.closeErr
}

// CloseCount returns the number of times Close was called.
func (c *FakeConn) CloseCount() int {
	return int(c.closes.Load())
}

func (c *FakeConn) Attach(p conn.Pending) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attachment = p
}

func (c *FakeConn) Attachment() conn.Pending {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attachment
}

func (c *FakeConn) Discard() {
	c.discards.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attachment = nil
}

// DiscardCount returns the number of times Discard was called.
func (c *FakeConn) DiscardCount() int {
	return int(c.discards.Load())
}

// FakePending is a [conn.Pending] that records cancellation.
type FakePending struct {
	timeoutsCancelled atomic.Bool
	cause             atomic.Pointer[error]
}

var _ conn.Pending = (*FakePending)(nil)

func (p *FakePending) CancelTimeouts() {
	p.timeoutsCancelled.Store(true)
}

func (p *FakePending) Cancel(cause error) bool {
	return p.cause.CompareAndSwap(nil, &cause)
}

// TimeoutsCancelled reports whether CancelTimeouts was called.
func (p *FakePending) TimeoutsCancelled() bool {
	return p.timeoutsCancelled.Load()
}

// Cause returns the error given to the first Cancel call, or nil.
func (p *FakePending) Cause() error {
	errPtr := p.cause.Load()
	if errPtr == nil {
		return nil
	}
	return *errPtr
}
