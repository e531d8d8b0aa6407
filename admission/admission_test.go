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

package admission_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/NullP0inter/async-http-client/admission"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestControllerUnlimited(t *testing.T) {
	t.Parallel()
	ctrl := admission.NewController(0, 0)
	require.False(t, ctrl.GlobalLimitEnabled())
	require.False(t, ctrl.PerDestinationLimitEnabled())
	for range 1000 {
		require.True(t, ctrl.Preempt("http://foo.com:80"))
	}
	require.Equal(t, admission.Unlimited, ctrl.Available())
	// nothing to release, but must not panic either
	ctrl.AbortPreemption("http://foo.com:80")
	ctrl.ReleaseOnEviction(uuid.New())
}

func TestControllerGlobalLimit(t *testing.T) {
	t.Parallel()
	const key = "http://foo.com:80"
	ctrl := admission.NewController(1, 0)

	// pipeline A wins, pipeline B is denied
	require.True(t, ctrl.Preempt(key))
	require.False(t, ctrl.Preempt(key))
	require.Zero(t, ctrl.Available())

	// A gives up before registering; B retries
	ctrl.AbortPreemption(key)
	require.Equal(t, 1, ctrl.Available())
	require.True(t, ctrl.Preempt(key))
	require.False(t, ctrl.Preempt("http://bar.com:80"))
}

func TestControllerPerDestinationLimit(t *testing.T) {
	t.Parallel()
	ctrl := admission.NewController(0, 2)
	require.True(t, ctrl.Preempt("a"))
	require.True(t, ctrl.Preempt("a"))
	require.False(t, ctrl.Preempt("a"))
	require.True(t, ctrl.Preempt("b"))

	ctrl.AbortPreemption("a")
	require.True(t, ctrl.TryAcquirePerDestination("a"))
	require.False(t, ctrl.TryAcquirePerDestination("a"))
}

func TestControllerPreemptRollsBackGlobal(t *testing.T) {
	t.Parallel()
	ctrl := admission.NewController(2, 1)
	require.True(t, ctrl.Preempt("a"))
	require.Equal(t, 1, ctrl.Available())

	// the per-destination check fails, so the global permit taken
	// for this attempt must be given back
	require.False(t, ctrl.Preempt("a"))
	require.Equal(t, 1, ctrl.Available())

	require.True(t, ctrl.Preempt("b"))
	require.Zero(t, ctrl.Available())

	// global exhausted: the per-destination counter of "c" is left alone
	require.False(t, ctrl.Preempt("c"))
	require.True(t, ctrl.TryAcquirePerDestination("c"))
}

func TestControllerReleaseOnEviction(t *testing.T) {
	t.Parallel()
	ctrl := admission.NewController(2, 1)
	pooled, unpooled := uuid.New(), uuid.New()
	require.True(t, ctrl.Preempt("a"))
	require.True(t, ctrl.Preempt("b"))

	ctrl.RecordKey(pooled, "a")
	ctrl.RecordKey(pooled, "b") // first writer wins
	key, ok := ctrl.Key(pooled)
	require.True(t, ok)
	require.Equal(t, "a", key)

	ctrl.ReleaseOnEviction(pooled)
	_, ok = ctrl.Key(pooled)
	require.False(t, ok)
	require.Equal(t, 1, ctrl.Available())
	require.True(t, ctrl.Preempt("a"))

	// a connection that was never pooled only releases its global permit
	ctrl.ReleaseOnEviction(unpooled)
	require.Equal(t, 1, ctrl.Available())
	require.False(t, ctrl.TryAcquirePerDestination("b"))
}

func TestControllerReleaseWithoutPermit(t *testing.T) {
	t.Parallel()
	core, logs := observer.New(zap.ErrorLevel)
	ctrl := admission.NewController(1, 1, admission.WithLogger(zap.New(core)))

	require.True(t, ctrl.Preempt("a"))
	require.False(t, ctrl.Preempt("a"))
	// the denied attempt holds nothing, so only the first abort counts
	require.NotPanics(t, func() {
		ctrl.AbortPreemption("a")
		ctrl.AbortPreemption("a")
	})
	require.Equal(t, 1, ctrl.Available())
	require.Equal(t, 2, logs.FilterMessageSnippet("not held").Len())

	// a key that never had a permit taken
	require.NotPanics(t, func() {
		ctrl.AbortPreemption("never-used")
	})
	entries := logs.FilterField(zap.String("key", "never-used")).All()
	require.Len(t, entries, 1)
	require.Equal(t, 1, ctrl.Available())

	// accounting is intact afterwards
	require.True(t, ctrl.Preempt("a"))
	require.False(t, ctrl.Preempt("b"))
}

func TestControllerRecordKeyDisabled(t *testing.T) {
	t.Parallel()
	ctrl := admission.NewController(1, 0)
	id := uuid.New()
	ctrl.RecordKey(id, "a")
	_, ok := ctrl.Key(id)
	require.False(t, ok)
}

func TestControllerConcurrentFirstUse(t *testing.T) {
	t.Parallel()
	const (
		perDestination = 3
		attempts       = 200
	)
	ctrl := admission.NewController(0, perDestination)
	var granted atomic.Int32
	start := make(chan struct{})
	var wg sync.WaitGroup
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if ctrl.TryAcquirePerDestination("fresh-key") {
				granted.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()
	require.EqualValues(t, perDestination, granted.Load())
}

func TestControllerConcurrentPreemptNeverExceedsLimits(t *testing.T) {
	t.Parallel()
	const (
		globalLimit    = 5
		perDestination = 2
		workers        = 16
		iterations     = 500
	)
	ctrl := admission.NewController(globalLimit, perDestination)
	keys := []string{"a", "b", "c", "d"}
	var total atomic.Int32
	perKey := make([]atomic.Int32, len(keys))
	var violations atomic.Int32
	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range iterations {
				idx := (w + i) % len(keys)
				if !ctrl.Preempt(keys[idx]) {
					continue
				}
				if total.Add(1) > globalLimit {
					violations.Add(1)
				}
				if perKey[idx].Add(1) > perDestination {
					violations.Add(1)
				}
				perKey[idx].Add(-1)
				total.Add(-1)
				ctrl.AbortPreemption(keys[idx])
			}
		}()
	}
	wg.Wait()
	require.Zero(t, violations.Load())
	require.Equal(t, globalLimit, ctrl.Available())
}
