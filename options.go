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

package asynchttpclient

import (
	"time"

	"github.com/NullP0inter/async-http-client/internal"
	"github.com/NullP0inter/async-http-client/pool"
	"go.uber.org/zap"
)

// ManagerOption is an option used to customize the behavior of a [Manager].
type ManagerOption interface {
	apply(*managerOptions)
}

// WithMaxConnections limits the total number of connections the manager
// allows to be open at once. If zero or no WithMaxConnections option is
// used, the total is unlimited.
func WithMaxConnections(limit int) ManagerOption {
	return managerOptionFunc(func(opts *managerOptions) {
		opts.maxConnections = limit
	})
}

// WithMaxConnectionsPerDestination limits the number of connections the
// manager allows to be open at once to a single destination key. If zero
// or no WithMaxConnectionsPerDestination option is used, there is no
// per-destination limit.
//
// A connection is charged against its destination when it is preempted,
// and the charge is given back when it is evicted after having been
// offered to the pool under that destination key.
func WithMaxConnectionsPerDestination(limit int) ManagerOption {
	return managerOptionFunc(func(opts *managerOptions) {
		opts.maxConnectionsPerDestination = limit
	})
}

// WithPool configures the reuse cache. If no WithPool option is used, a
// [pool.LIFO] is created using the WithIdleConnectionTimeout and
// WithMaxIdlePerDestination settings, whose evicted connections are closed
// through the manager.
//
// A pool supplied here is owned by the manager from then on and is
// destroyed by [Manager.DestroyAll]. If it implements [pool.Evicting], the
// manager takes over the connections it evicts, replacing any eviction
// function it was created with.
func WithPool(p pool.Pool) ManagerOption {
	return managerOptionFunc(func(opts *managerOptions) {
		opts.pool = p
	})
}

// WithoutPooling disables connection reuse: every offered connection is
// closed.
func WithoutPooling() ManagerOption {
	return WithPool(pool.NewNoop())
}

// WithIdleConnectionTimeout configures how long an idle connection stays
// in the default pool. If zero or no WithIdleConnectionTimeout option is
// used, idle connections are kept until reused or until shutdown.
func WithIdleConnectionTimeout(timeout time.Duration) ManagerOption {
	return managerOptionFunc(func(opts *managerOptions) {
		opts.idleConnTimeout = timeout
	})
}

// WithMaxIdlePerDestination limits how many idle connections the default
// pool keeps for a single destination key. If zero or no
// WithMaxIdlePerDestination option is used, there is no limit.
func WithMaxIdlePerDestination(limit int) ManagerOption {
	return managerOptionFunc(func(opts *managerOptions) {
		opts.maxIdlePerDestination = limit
	})
}

// WithLogger configures the logger used by the manager and by the default
// pool. If no WithLogger option is used, nothing is logged.
func WithLogger(logger *zap.Logger) ManagerOption {
	return managerOptionFunc(func(opts *managerOptions) {
		opts.logger = logger
	})
}

type managerOptionFunc func(*managerOptions)

func (f managerOptionFunc) apply(opts *managerOptions) {
	f(opts)
}

type managerOptions struct {
	maxConnections               int
	maxConnectionsPerDestination int
	maxIdlePerDestination        int
	idleConnTimeout              time.Duration
	pool                         pool.Pool
	logger                       *zap.Logger
	clock                        internal.Clock
}

func (opts *managerOptions) applyDefaults() {
	if opts.logger == nil {
		opts.logger = zap.NewNop()
	}
	if opts.clock == nil {
		opts.clock = internal.NewRealClock()
	}
}
