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
	"sync"
	"time"

	"github.com/NullP0inter/async-http-client/internal"
)

// Completion is a [Pending] that completes exactly once, either with the
// outcome of the exchange, with [ErrTimeout], or with a cancellation cause.
type Completion struct {
	done      chan struct{}
	onTimeout func()

	mu sync.Mutex
	// +checklocks:mu
	completed bool
	// +checklocks:mu
	err error
	// +checklocks:mu
	timer internal.Timer
}

var _ Pending = (*Completion)(nil)

// NewCompletion returns a new, uncompleted Completion. If timeout is
// positive, the completion fails with [ErrTimeout] once it elapses and
// onTimeout, if non-nil, is then invoked. Callers typically use onTimeout
// to close the connection the exchange was running on.
func NewCompletion(timeout time.Duration, onTimeout func()) *Completion {
	return newCompletion(internal.NewRealClock(), timeout, onTimeout)
}

func newCompletion(clock internal.Clock, timeout time.Duration, onTimeout func()) *Completion {
	completion := &Completion{
		done:      make(chan struct{}),
		onTimeout: onTimeout,
	}
	if timeout > 0 {
		completion.mu.Lock()
		completion.timer = clock.AfterFunc(timeout, completion.expire)
		completion.mu.Unlock()
	}
	return completion
}

// Complete completes the exchange with the given result, which is nil on
// success. It returns false if the completion was already completed.
func (c *Completion) Complete(err error) bool {
	c.CancelTimeouts()
	return c.complete(err)
}

// Cancel implements [Pending].
func (c *Completion) Cancel(cause error) bool {
	c.CancelTimeouts()
	return c.complete(cause)
}

// CancelTimeouts implements [Pending].
func (c *Completion) CancelTimeouts() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// Done returns a channel that is closed when the exchange completes.
func (c *Completion) Done() <-chan struct{} {
	return c.done
}

// Err returns the error the exchange completed with. It is nil until
// Done is closed.
func (c *Completion) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Completion) expire() {
	c.mu.Lock()
	c.timer = nil
	c.mu.Unlock()
	if c.complete(ErrTimeout) && c.onTimeout != nil {
		c.onTimeout()
	}
}

func (c *Completion) complete(err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.completed {
		return false
	}
	c.completed = true
	c.err = err
	close(c.done)
	return true
}
