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
	"errors"
	"sync/atomic"

	"github.com/NullP0inter/async-http-client/admission"
	"github.com/NullP0inter/async-http-client/conn"
	"github.com/NullP0inter/async-http-client/internal/registry"
	"github.com/NullP0inter/async-http-client/pool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrManagerClosed is returned when registering a connection after
// [Manager.DestroyAll]. It is also the cause with which pending exchanges
// are cancelled on shutdown.
var ErrManagerClosed = errors.New("connection manager is closed")

// Manager decides whether a connection may be reused or opened, tracks
// every open connection, and releases the associated permits when
// connections go away. It is safe for concurrent use by many request
// pipelines.
type Manager struct {
	pool      pool.Pool
	admission *admission.Controller
	registry  *registry.Registry
	logger    *zap.Logger
}

// Stats is a snapshot of the manager's bookkeeping.
type Stats struct {
	// Open is the number of registered connections, idle ones included.
	Open int
	// Idle is the number of connections held by the pool, or -1 if the
	// pool does not report it.
	Idle int
	// AvailablePermits is the number of connections that may still be
	// opened, or -1 if the total is unlimited.
	AvailablePermits int
}

// NewManager returns a new connection manager configured with the given
// options.
func NewManager(options ...ManagerOption) *Manager {
	var opts managerOptions
	for _, opt := range options {
		opt.apply(&opts)
	}
	opts.applyDefaults()
	manager := &Manager{
		admission: admission.NewController(
			opts.maxConnections,
			opts.maxConnectionsPerDestination,
			admission.WithLogger(opts.logger),
		),
		logger: opts.logger,
	}
	manager.registry = registry.New(manager.evicted)
	manager.pool = opts.pool
	if manager.pool == nil {
		manager.pool = pool.NewLIFO(
			pool.WithIdleTimeout(opts.idleConnTimeout),
			pool.WithMaxIdlePerKey(opts.maxIdlePerDestination),
			pool.WithLogger(opts.logger),
			pool.WithClock(opts.clock),
		)
	}
	// Connections the pool drops by itself must leave the registry too.
	if evicting, ok := manager.pool.(pool.Evicting); ok {
		evicting.SetEvictFunc(manager.Close)
	}
	return manager
}

// TryOfferToPool hands c over to the pool under key if keepAlive is true
// and the connection is still readable. Otherwise, or if the pool refuses
// it, the connection is closed. It returns true if the connection was
// pooled; either way the caller no longer owns it.
func (m *Manager) TryOfferToPool(c conn.Conn, keepAlive bool, key string) bool {
	if keepAlive && c.IsReadable() {
		m.logger.Debug("adding connection to pool",
			zap.String("key", key), zap.Stringer("conn", c.ID()))
		// Detach and record before offering: once offered, another
		// pipeline may poll and attach to the connection.
		c.Discard()
		m.admission.RecordKey(c.ID(), key)
		if m.pool.Offer(c, key) {
			return true
		}
		m.logger.Debug("pool refused connection",
			zap.String("key", key), zap.Stringer("conn", c.ID()))
	}
	m.Close(c)
	return false
}

// Poll returns an idle connection for key, if the pool holds one.
func (m *Manager) Poll(key string) (conn.Conn, bool) {
	return m.pool.Poll(key)
}

// RemoveAll removes c from the pool and reports whether it was pooled.
// The connection stays registered.
func (m *Manager) RemoveAll(c conn.Conn) bool {
	return m.pool.RemoveAll(c)
}

// Preempt reserves the permits needed to open a new connection to key. It
// returns false, holding nothing, if the pool is shut down or no permit is
// available; the caller should then queue or fail the request.
//
// After a successful Preempt the caller must either register the new
// connection with [Manager.RegisterOpenConn] or call
// [Manager.AbortPreemption].
func (m *Manager) Preempt(key string) bool {
	return m.pool.IsOpen() && m.admission.Preempt(key)
}

// AbortPreemption gives back the permits reserved by a successful
// [Manager.Preempt] for a connection that was not opened.
func (m *Manager) AbortPreemption(key string) {
	m.admission.AbortPreemption(key)
}

// RegisterOpenConn starts tracking a newly opened connection. It must be
// called for every connection opened after [Manager.Preempt], before any
// data is exchanged on it. After [Manager.DestroyAll], the connection is
// closed instead and ErrManagerClosed is returned.
func (m *Manager) RegisterOpenConn(c conn.Conn) error {
	if err := m.registry.Add(c); err != nil {
		m.logger.Debug("refusing connection after shutdown", zap.Stringer("conn", c.ID()))
		_ = m.closeConn(c)
		return ErrManagerClosed
	}
	return nil
}

// Close tears c down: it is removed from the pool, detached from its
// exchange, physically closed, and finally removed from the set of open
// connections, which releases its permits. Failures to close are logged,
// not returned. Close may be called any number of times; permits are only
// released once.
func (m *Manager) Close(c conn.Conn) {
	_ = m.closeConn(c)
}

// DestroyAll shuts the manager down. The pool is destroyed, no further
// connections are registered, and every connection still open has its
// pending exchange cancelled with ErrManagerClosed before it is closed.
// It returns one of the errors encountered while closing connections,
// if any; all bookkeeping is completed regardless.
func (m *Manager) DestroyAll() error {
	m.pool.Destroy()
	residue := m.registry.Close()
	for _, c := range residue {
		if pending := c.Attachment(); pending != nil {
			pending.CancelTimeouts()
			pending.Cancel(ErrManagerClosed)
		}
	}
	var grp errgroup.Group
	var closeErr atomic.Pointer[error]
	for _, c := range residue {
		grp.Go(func() error {
			if err := m.closeConn(c); err != nil {
				// only the first error is reported
				closeErr.CompareAndSwap(nil, &err)
			}
			return nil
		})
	}
	_ = grp.Wait()
	if errPtr := closeErr.Load(); errPtr != nil {
		return *errPtr
	}
	return nil
}

// Stats returns a snapshot of the manager's bookkeeping.
func (m *Manager) Stats() Stats {
	stats := Stats{
		Open:             m.registry.Len(),
		Idle:             -1,
		AvailablePermits: m.admission.Available(),
	}
	if sized, ok := m.pool.(interface{ Size() int }); ok {
		stats.Idle = sized.Size()
	}
	return stats
}

func (m *Manager) closeConn(c conn.Conn) error {
	m.pool.RemoveAll(c)
	c.Discard()
	m.logger.Debug("closing connection", zap.Stringer("conn", c.ID()))
	err := c.Close()
	if err != nil {
		m.logger.Debug("error closing connection", zap.Stringer("conn", c.ID()), zap.Error(err))
	}
	m.registry.Remove(c)
	return err
}

func (m *Manager) evicted(c conn.Conn) {
	m.admission.ReleaseOnEviction(c.ID())
}
