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

package pool_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/NullP0inter/async-http-client/conn"
	"github.com/NullP0inter/async-http-client/internal/clocktest"
	"github.com/NullP0inter/async-http-client/internal/conntest"
	"github.com/NullP0inter/async-http-client/pool"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestLIFOOfferPoll(t *testing.T) {
	t.Parallel()
	lifo := pool.NewLIFO(pool.WithLogger(zaptest.NewLogger(t)))
	t.Cleanup(lifo.Destroy)

	first, second := conntest.NewFakeConn(), conntest.NewFakeConn()
	require.True(t, lifo.Offer(first, "a"))
	require.True(t, lifo.Offer(second, "a"))
	require.False(t, lifo.Offer(first, "a"), "already pooled")
	require.False(t, lifo.Offer(first, "b"), "already pooled under another key")
	require.Equal(t, 2, lifo.Len("a"))
	require.Equal(t, 2, lifo.Size())

	_, ok := lifo.Poll("b")
	require.False(t, ok)

	// most recently offered first
	polled, ok := lifo.Poll("a")
	require.True(t, ok)
	require.Same(t, second, polled)
	polled, ok = lifo.Poll("a")
	require.True(t, ok)
	require.Same(t, first, polled)
	_, ok = lifo.Poll("a")
	require.False(t, ok)
	require.Zero(t, lifo.Size())

	// a polled connection can be offered again
	require.True(t, lifo.Offer(first, "a"))
}

func TestLIFORemoveAll(t *testing.T) {
	t.Parallel()
	lifo := pool.NewLIFO()
	t.Cleanup(lifo.Destroy)

	conns := []*conntest.FakeConn{conntest.NewFakeConn(), conntest.NewFakeConn(), conntest.NewFakeConn()}
	for _, c := range conns {
		require.True(t, lifo.Offer(c, "a"))
	}
	require.True(t, lifo.RemoveAll(conns[1]))
	require.False(t, lifo.RemoveAll(conns[1]))
	require.Equal(t, 2, lifo.Len("a"))

	polled, ok := lifo.Poll("a")
	require.True(t, ok)
	require.Same(t, conns[2], polled)
	polled, ok = lifo.Poll("a")
	require.True(t, ok)
	require.Same(t, conns[0], polled)
	for _, c := range conns {
		require.Zero(t, c.CloseCount())
	}
}

func TestLIFOMaxIdlePerKey(t *testing.T) {
	t.Parallel()
	lifo := pool.NewLIFO(pool.WithMaxIdlePerKey(1))
	t.Cleanup(lifo.Destroy)
	require.True(t, lifo.Offer(conntest.NewFakeConn(), "a"))
	require.False(t, lifo.Offer(conntest.NewFakeConn(), "a"))
	require.True(t, lifo.Offer(conntest.NewFakeConn(), "b"))
}

func TestLIFOPollSkipsUnreadable(t *testing.T) {
	t.Parallel()
	var evicted []conn.Conn
	lifo := pool.NewLIFO(pool.WithEvictFunc(func(c conn.Conn) {
		evicted = append(evicted, c)
	}))
	t.Cleanup(lifo.Destroy)

	healthy, broken := conntest.NewFakeConn(), conntest.NewFakeConn()
	require.True(t, lifo.Offer(healthy, "a"))
	require.True(t, lifo.Offer(broken, "a"))
	broken.SetUnreadable()

	polled, ok := lifo.Poll("a")
	require.True(t, ok)
	require.Same(t, healthy, polled)
	require.Equal(t, []conn.Conn{broken}, evicted)
}

func TestLIFOSetEvictFunc(t *testing.T) {
	t.Parallel()
	var configured, installed []conn.Conn
	lifo := pool.NewLIFO(pool.WithEvictFunc(func(c conn.Conn) {
		configured = append(configured, c)
	}))
	t.Cleanup(lifo.Destroy)
	var evicting pool.Evicting = lifo
	evicting.SetEvictFunc(func(c conn.Conn) {
		installed = append(installed, c)
	})

	first := conntest.NewFakeConn()
	require.True(t, lifo.Offer(first, "a"))
	first.SetUnreadable()
	_, ok := lifo.Poll("a")
	require.False(t, ok)
	require.Empty(t, configured)
	require.Equal(t, []conn.Conn{first}, installed)
	require.Zero(t, first.CloseCount())

	// nil goes back to closing evicted connections
	evicting.SetEvictFunc(nil)
	second := conntest.NewFakeConn()
	require.True(t, lifo.Offer(second, "a"))
	second.SetUnreadable()
	_, ok = lifo.Poll("a")
	require.False(t, ok)
	require.Equal(t, 1, second.CloseCount())
	require.Len(t, installed, 1)
}

func TestLIFODestroy(t *testing.T) {
	t.Parallel()
	lifo := pool.NewLIFO()
	idle := conntest.NewFakeConn()
	require.True(t, lifo.Offer(idle, "a"))
	require.True(t, lifo.IsOpen())

	lifo.Destroy()
	require.False(t, lifo.IsOpen())
	require.Equal(t, 1, idle.CloseCount())
	_, ok := lifo.Poll("a")
	require.False(t, ok)
	require.False(t, lifo.Offer(conntest.NewFakeConn(), "a"))

	lifo.Destroy()
	require.Equal(t, 1, idle.CloseCount())
}

func TestLIFOIdleTimeout(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	const (
		timeout  = time.Minute
		interval = timeout / 4
	)
	testClock := clocktest.NewFakeClock()
	evicted := make(chan conn.Conn, 2)
	lifo := pool.NewLIFO(
		pool.WithClock(testClock),
		pool.WithIdleTimeout(timeout),
		pool.WithEvictFunc(func(c conn.Conn) {
			evicted <- c
		}),
		pool.WithLogger(zaptest.NewLogger(t)),
	)
	t.Cleanup(lifo.Destroy)
	require.NoError(t, testClock.BlockUntilContext(ctx, 1))
	advance := func(steps int) {
		for range steps {
			testClock.Advance(interval)
		}
	}

	// offered just after the reaper looked at the pool
	testClock.Advance(interval + time.Second)
	stale := conntest.NewFakeConn()
	require.True(t, lifo.Offer(stale, "a"))
	advance(2)
	fresh := conntest.NewFakeConn()
	require.True(t, lifo.Offer(fresh, "a"))
	advance(1)
	require.Equal(t, 2, lifo.Len("a"))

	// stale has now been idle for timeout+interval
	advance(2)
	select {
	case c := <-evicted:
		require.Same(t, stale, c)
	case <-ctx.Done():
		require.FailNow(t, "idle connection outlived its timeout")
	}
	require.Equal(t, 1, lifo.Len("a"))

	polled, ok := lifo.Poll("a")
	require.True(t, ok)
	require.Same(t, fresh, polled)
}

func TestLIFOConcurrentPoll(t *testing.T) {
	t.Parallel()
	lifo := pool.NewLIFO()
	t.Cleanup(lifo.Destroy)
	const count = 100
	for range count {
		require.True(t, lifo.Offer(conntest.NewFakeConn(), "a"))
	}
	var mu sync.Mutex
	seen := map[conn.Conn]int{}
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				c, ok := lifo.Poll("a")
				if !ok {
					return
				}
				mu.Lock()
				seen[c]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Len(t, seen, count)
	for _, n := range seen {
		require.Equal(t, 1, n)
	}
}

func TestLIFODestroyLogsCloseFailure(t *testing.T) {
	t.Parallel()
	lifo := pool.NewLIFO(pool.WithLogger(zaptest.NewLogger(t)))
	failing := conntest.NewFailingConn(errors.New("boom"))
	require.True(t, lifo.Offer(failing, "a"))
	lifo.Destroy()
	require.Equal(t, 1, failing.CloseCount())
}

func TestNoop(t *testing.T) {
	t.Parallel()
	noop := pool.NewNoop()
	c := conntest.NewFakeConn()
	require.True(t, noop.IsOpen())
	require.False(t, noop.Offer(c, "a"))
	_, ok := noop.Poll("a")
	require.False(t, ok)
	require.False(t, noop.RemoveAll(c))
	noop.Destroy()
	require.False(t, noop.IsOpen())
}
