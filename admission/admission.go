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

// Package admission decides whether a new connection may be opened. It
// maintains a global permit count and, optionally, a permit count per
// destination key. All acquisitions are non-blocking: a caller that cannot
// get a permit must queue or fail the request itself.
//
// A permit is taken before a connection is opened and given back exactly
// once, either through [Controller.AbortPreemption] when the connection was
// never opened, or through [Controller.ReleaseOnEviction] when it leaves the
// set of live connections.
package admission

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Unlimited is reported by [Controller.Available] when global limiting is
// disabled.
const Unlimited = -1

// ControllerOption is an option used to customize a [Controller].
type ControllerOption interface {
	apply(*Controller)
}

// WithLogger configures the logger the controller reports accounting
// mistakes to, such as a permit given back more often than it was taken.
func WithLogger(logger *zap.Logger) ControllerOption {
	return controllerOptionFunc(func(ctrl *Controller) {
		ctrl.logger = logger
	})
}

// Controller grants and releases connection permits. It is safe for
// concurrent use.
type Controller struct {
	logger       *zap.Logger
	global       *permits // nil when disabled
	perDestLimit int64

	// perDestination maps a destination key to its *permits. Entries are
	// created lazily and never removed.
	perDestination sync.Map
	// keysByConn is the index from connection ID to the destination key
	// charged for it. Only maintained while per-destination limiting is
	// enabled.
	keysByConn sync.Map
}

// NewController returns a controller allowing at most maxTotal connections
// overall and at most maxPerDestination connections for any single
// destination key. A limit of zero (or less) disables that dimension.
func NewController(maxTotal, maxPerDestination int, options ...ControllerOption) *Controller {
	ctrl := &Controller{}
	for _, opt := range options {
		opt.apply(ctrl)
	}
	if ctrl.logger == nil {
		ctrl.logger = zap.NewNop()
	}
	if maxTotal > 0 {
		ctrl.global = newPermits(int64(maxTotal))
	}
	if maxPerDestination > 0 {
		ctrl.perDestLimit = int64(maxPerDestination)
	}
	return ctrl
}

// GlobalLimitEnabled reports whether the total number of connections is
// limited.
func (c *Controller) GlobalLimitEnabled() bool {
	return c.global != nil
}

// PerDestinationLimitEnabled reports whether the number of connections per
// destination key is limited.
func (c *Controller) PerDestinationLimitEnabled() bool {
	return c.perDestLimit > 0
}

// TryAcquireGlobal takes a global permit if one is available. It always
// succeeds when global limiting is disabled.
func (c *Controller) TryAcquireGlobal() bool {
	if c.global == nil {
		return true
	}
	return c.global.tryAcquire()
}

// TryAcquirePerDestination takes a permit for the given key if one is
// available. It always succeeds when per-destination limiting is disabled.
func (c *Controller) TryAcquirePerDestination(key string) bool {
	if c.perDestLimit <= 0 {
		return true
	}
	return c.permitsFor(key).tryAcquire()
}

// Preempt reserves the permits needed to open a new connection to key:
// a global permit first, then a per-destination one. The per-destination
// counter is not touched if no global permit is available, and the global
// permit is given back if no per-destination permit is available, so a
// false result never holds on to anything.
func (c *Controller) Preempt(key string) bool {
	if !c.TryAcquireGlobal() {
		return false
	}
	if !c.TryAcquirePerDestination(key) {
		c.releaseGlobal()
		return false
	}
	return true
}

// AbortPreemption gives back the permits taken by a successful [Preempt]
// for a connection that will not be opened. Calling it without a matching
// Preempt is a caller bug: permits that are not held are not released, and
// the mistake is logged.
func (c *Controller) AbortPreemption(key string) {
	c.releaseGlobal()
	if c.perDestLimit > 0 {
		c.releasePerDestination(key)
	}
}

// RecordKey remembers that the connection with the given ID is charged
// against key, so that [ReleaseOnEviction] can release the right
// per-destination permit. The first recorded key wins; later calls for the
// same connection are no-ops.
func (c *Controller) RecordKey(id uuid.UUID, key string) {
	if c.perDestLimit <= 0 {
		return
	}
	c.keysByConn.LoadOrStore(id, key)
}

// Key returns the key recorded for the given connection, if any.
func (c *Controller) Key(id uuid.UUID) (string, bool) {
	key, ok := c.keysByConn.Load(id)
	if !ok {
		return "", false
	}
	return key.(string), true //nolint:forcetypeassert
}

// ReleaseOnEviction releases the permits held by the connection with the
// given ID. It must be called exactly once per connection, when it leaves
// the set of live connections.
func (c *Controller) ReleaseOnEviction(id uuid.UUID) {
	c.releaseGlobal()
	if c.perDestLimit <= 0 {
		return
	}
	key, ok := c.keysByConn.LoadAndDelete(id)
	if !ok {
		return
	}
	c.releasePerDestination(key.(string)) //nolint:forcetypeassert
}

// Available returns the number of global permits that can currently be
// acquired, or [Unlimited].
func (c *Controller) Available() int {
	if c.global == nil {
		return Unlimited
	}
	return int(c.global.available())
}

func (c *Controller) releaseGlobal() {
	if c.global == nil {
		return
	}
	if !c.global.release() {
		c.logger.Error("released a global connection permit that was not held")
	}
}

func (c *Controller) releasePerDestination(key string) {
	if held, ok := c.perDestination.Load(key); ok && held.(*permits).release() { //nolint:forcetypeassert
		return
	}
	c.logger.Error("released a connection permit that was not held", zap.String("key", key))
}

func (c *Controller) permitsFor(key string) *permits {
	if held, ok := c.perDestination.Load(key); ok {
		return held.(*permits) //nolint:forcetypeassert
	}
	// Only one value survives concurrent first use of key.
	held, _ := c.perDestination.LoadOrStore(key, newPermits(c.perDestLimit))
	return held.(*permits) //nolint:forcetypeassert
}

type controllerOptionFunc func(*Controller)

func (f controllerOptionFunc) apply(ctrl *Controller) {
	f(ctrl)
}

// permits is a weighted semaphore that refuses to be released more often
// than it was acquired, where semaphore.Weighted would panic.
type permits struct {
	limit int64
	sem   *semaphore.Weighted
	inUse atomic.Int64
}

func newPermits(limit int64) *permits {
	return &permits{limit: limit, sem: semaphore.NewWeighted(limit)}
}

func (p *permits) tryAcquire() bool {
	if !p.sem.TryAcquire(1) {
		return false
	}
	p.inUse.Add(1)
	return true
}

// release gives back one permit and reports whether one was held.
func (p *permits) release() bool {
	for {
		inUse := p.inUse.Load()
		if inUse <= 0 {
			return false
		}
		if p.inUse.CompareAndSwap(inUse, inUse-1) {
			p.sem.Release(1)
			return true
		}
	}
}

func (p *permits) available() int64 {
	return p.limit - p.inUse.Load()
}
