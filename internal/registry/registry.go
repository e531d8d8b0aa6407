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

// Package registry contains the set of connections that are currently
// considered live. Removal from the set is the single point at which a
// connection's resources are accounted as released.
package registry

import (
	"errors"
	"sync"

	"github.com/NullP0inter/async-http-client/conn"
	"github.com/google/uuid"
)

// ErrClosed is returned by Add once the registry has been closed.
var ErrClosed = errors.New("registry is closed")

// Registry is a concurrency-safe set of open connections, keyed by their
// identifier.
type Registry struct {
	onRemove func(conn.Conn)

	mu sync.Mutex
	// +checklocks:mu
	conns map[uuid.UUID]conn.Conn
	// +checklocks:mu
	closed bool
}

// New returns an empty registry. If onRemove is non-nil, it is invoked
// exactly once for every connection that leaves the registry, after it
// has been removed and without any lock held.
func New(onRemove func(conn.Conn)) *Registry {
	return &Registry{
		onRemove: onRemove,
		conns:    map[uuid.UUID]conn.Conn{},
	}
}

// Add adds the given connection. Adding a connection that is already
// present is a no-op. Once the registry is closed, Add returns ErrClosed
// and the connection is not added.
func (r *Registry) Add(c conn.Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	r.conns[c.ID()] = c
	return nil
}

// Remove removes the given connection and reports whether it was present.
// Only the call that actually removes the connection triggers onRemove.
func (r *Registry) Remove(c conn.Conn) bool {
	r.mu.Lock()
	_, ok := r.conns[c.ID()]
	if ok {
		delete(r.conns, c.ID())
	}
	r.mu.Unlock()
	if ok && r.onRemove != nil {
		r.onRemove(c)
	}
	return ok
}

// Contains returns true if the given connection is present.
func (r *Registry) Contains(c conn.Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.conns[c.ID()]
	return ok
}

// Len returns the number of connections present.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// Snapshot returns the connections currently present, in no particular
// order.
func (r *Registry) Snapshot() []conn.Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Close stops the registry from accepting new connections and returns the
// connections that are still present. The returned connections remain
// members until they are removed.
func (r *Registry) Close() []conn.Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return r.snapshotLocked()
}

// +checklocks:r.mu
func (r *Registry) snapshotLocked() []conn.Conn {
	conns := make([]conn.Conn, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	return conns
}
