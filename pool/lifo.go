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

package pool

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/NullP0inter/async-http-client/conn"
	"github.com/NullP0inter/async-http-client/internal"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LIFOOption is an option used to customize a pool created by [NewLIFO].
type LIFOOption interface {
	apply(*LIFO)
}

// WithMaxIdlePerKey limits how many idle connections are kept for a single
// key. Offers beyond the limit are refused. Zero, the default, means no
// limit.
func WithMaxIdlePerKey(limit int) LIFOOption {
	return lifoOptionFunc(func(pool *LIFO) {
		pool.maxIdlePerKey = limit
	})
}

// WithIdleTimeout configures how long a connection may sit idle in the pool
// before it is evicted. Zero, the default, means idle connections are kept
// until polled or until the pool is destroyed.
func WithIdleTimeout(timeout time.Duration) LIFOOption {
	return lifoOptionFunc(func(pool *LIFO) {
		pool.idleTimeout = timeout
	})
}

// WithEvictFunc configures the function that takes ownership of
// connections the pool drops on its own: connections that timed out, that
// became unreadable while idle, or that were still idle when the pool was
// destroyed. The function must close the connection. If not configured,
// the pool just closes them.
func WithEvictFunc(evict func(conn.Conn)) LIFOOption {
	return lifoOptionFunc(func(pool *LIFO) {
		pool.SetEvictFunc(evict)
	})
}

// WithLogger configures the logger used by the pool.
func WithLogger(logger *zap.Logger) LIFOOption {
	return lifoOptionFunc(func(pool *LIFO) {
		pool.logger = logger
	})
}

// WithClock configures the clock used to measure idle time.
func WithClock(clock internal.Clock) LIFOOption {
	return lifoOptionFunc(func(pool *LIFO) {
		pool.clock = clock
	})
}

type lifoOptionFunc func(*LIFO)

func (f lifoOptionFunc) apply(pool *LIFO) {
	f(pool)
}

// LIFO is a [Pool] that keeps a stack of idle connections per key.
type LIFO struct {
	clock         internal.Clock
	logger        *zap.Logger
	maxIdlePerKey int
	idleTimeout   time.Duration
	evict         atomic.Pointer[func(conn.Conn)]

	stop    chan struct{}
	stopped chan struct{}

	mu sync.Mutex
	// +checklocks:mu
	idle map[string][]idleConn
	// +checklocks:mu
	keys map[uuid.UUID]string
	// +checklocks:mu
	closed bool
}

type idleConn struct {
	conn  conn.Conn
	since time.Time
}

var (
	_ Pool     = (*LIFO)(nil)
	_ Evicting = (*LIFO)(nil)
)

// NewLIFO returns a new, open LIFO pool. If an idle timeout is configured,
// a background goroutine evicts expired connections until [LIFO.Destroy]
// is called.
func NewLIFO(options ...LIFOOption) *LIFO {
	pool := &LIFO{
		clock:   internal.NewRealClock(),
		logger:  zap.NewNop(),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
		idle:    map[string][]idleConn{},
		keys:    map[uuid.UUID]string{},
	}
	for _, opt := range options {
		opt.apply(pool)
	}
	if pool.idleTimeout > 0 {
		ticker := pool.clock.NewTicker(reapInterval(pool.idleTimeout))
		go pool.reap(ticker)
	} else {
		close(pool.stopped)
	}
	return pool
}

// Offer implements [Pool].
func (p *LIFO) Offer(c conn.Conn, key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	if _, ok := p.keys[c.ID()]; ok {
		return false
	}
	stack := p.idle[key]
	if p.maxIdlePerKey > 0 && len(stack) >= p.maxIdlePerKey {
		p.logger.Debug("idle pool full",
			zap.String("key", key), zap.Int("max_idle", p.maxIdlePerKey))
		return false
	}
	p.idle[key] = append(stack, idleConn{conn: c, since: p.clock.Now()})
	p.keys[c.ID()] = key
	return true
}

// Poll implements [Pool]. Connections that stopped being readable while
// idle are evicted instead of being returned.
func (p *LIFO) Poll(key string) (conn.Conn, bool) {
	var stale []conn.Conn
	defer func() {
		for _, c := range stale {
			p.logger.Debug("evicting unreadable idle connection",
				zap.String("key", key), zap.Stringer("conn", c.ID()))
			p.evictConn(c)
		}
	}()

	p.mu.Lock()
	defer p.mu.Unlock()
	stack := p.idle[key]
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack[len(stack)-1] = idleConn{}
		stack = stack[:len(stack)-1]
		delete(p.keys, top.conn.ID())
		if top.conn.IsReadable() {
			p.setStackLocked(key, stack)
			return top.conn, true
		}
		stale = append(stale, top.conn)
	}
	p.setStackLocked(key, stack)
	return nil, false
}

// IsOpen implements [Pool].
func (p *LIFO) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.closed
}

// RemoveAll implements [Pool].
func (p *LIFO) RemoveAll(c conn.Conn) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	key, ok := p.keys[c.ID()]
	if !ok {
		return false
	}
	delete(p.keys, c.ID())
	stack := p.idle[key]
	for i := range stack {
		if stack[i].conn.ID() == c.ID() {
			stack = append(stack[:i], stack[i+1:]...)
			break
		}
	}
	p.setStackLocked(key, stack)
	return true
}

// Destroy implements [Pool]. It waits for the idle reaper to stop.
func (p *LIFO) Destroy() {
	var residue []conn.Conn
	func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.closed {
			return
		}
		p.closed = true
		close(p.stop)
		for key, stack := range p.idle {
			for _, entry := range stack {
				residue = append(residue, entry.conn)
			}
			delete(p.idle, key)
		}
		clear(p.keys)
	}()
	<-p.stopped
	for _, c := range residue {
		p.evictConn(c)
	}
}

// Len returns the number of idle connections held for key.
func (p *LIFO) Len(key string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle[key])
}

// Size returns the number of idle connections held for all keys.
func (p *LIFO) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.keys)
}

func (p *LIFO) reap(ticker internal.Ticker) {
	defer close(p.stopped)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.Chan():
			for _, c := range p.expired() {
				p.logger.Debug("evicting idle connection", zap.Stringer("conn", c.ID()))
				p.evictConn(c)
			}
		}
	}
}

func (p *LIFO) expired() []conn.Conn {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.clock.Now()
	var expired []conn.Conn
	for key, stack := range p.idle {
		kept := stack[:0]
		for _, entry := range stack {
			if now.Sub(entry.since) >= p.idleTimeout || !entry.conn.IsReadable() {
				delete(p.keys, entry.conn.ID())
				expired = append(expired, entry.conn)
				continue
			}
			kept = append(kept, entry)
		}
		clear(stack[len(kept):])
		p.setStackLocked(key, kept)
	}
	return expired
}

// SetEvictFunc implements [Evicting]. It replaces any function configured
// with [WithEvictFunc]; a nil function restores the default of closing
// evicted connections.
func (p *LIFO) SetEvictFunc(evict func(conn.Conn)) {
	if evict == nil {
		p.evict.Store(nil)
		return
	}
	p.evict.Store(&evict)
}

func (p *LIFO) evictConn(c conn.Conn) {
	if evict := p.evict.Load(); evict != nil {
		(*evict)(c)
		return
	}
	p.closeConn(c)
}

// reapInterval is how often expired connections are looked for, so that a
// connection outlives its idle timeout by at most a quarter of it.
func reapInterval(idleTimeout time.Duration) time.Duration {
	if interval := idleTimeout / 4; interval > 0 {
		return interval
	}
	return idleTimeout
}

// +checklocks:p.mu
func (p *LIFO) setStackLocked(key string, stack []idleConn) {
	if len(stack) == 0 {
		delete(p.idle, key)
		return
	}
	p.idle[key] = stack
}

func (p *LIFO) closeConn(c conn.Conn) {
	if err := c.Close(); err != nil {
		p.logger.Debug("error closing evicted connection",
			zap.Stringer("conn", c.ID()), zap.Error(err))
	}
}
