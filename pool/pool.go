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

// Package pool provides reuse caches for idle connections. A reuse cache
// maps a destination key to zero or more idle connections that may serve
// another request to that destination.
//
// Two implementations are provided: [NewLIFO], which keeps a stack of idle
// connections per key so that the most recently used connection is reused
// first, and [NewNoop], which disables reuse altogether.
package pool

import "github.com/NullP0inter/async-http-client/conn"

// Pool is a reuse cache. Implementations must be safe for concurrent use.
type Pool interface {
	// Offer makes c available for reuse under key. It returns false if the
	// connection was not accepted, in which case the caller still owns it.
	// Callers must only offer connections that are still usable.
	Offer(c conn.Conn, key string) bool
	// Poll removes and returns an idle connection for key. A connection is
	// never returned by more than one call.
	Poll(key string) (conn.Conn, bool)
	// IsOpen returns false once the pool has been destroyed.
	IsOpen() bool
	// RemoveAll removes c wherever it is indexed and reports whether it
	// was present.
	RemoveAll(c conn.Conn) bool
	// Destroy shuts the pool down. Idle connections are evicted and
	// subsequent offers are refused.
	Destroy()
}

// Evicting is implemented by pools that drop connections on their own, for
// example because they sat idle for too long. The owner of the pool uses
// SetEvictFunc to take over those connections, so that closing them also
// releases whatever the owner accounts for them.
type Evicting interface {
	SetEvictFunc(evict func(conn.Conn))
}
