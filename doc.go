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

// Package asynchttpclient is the connection-reuse and admission-control
// core of an asynchronous HTTP client. A [Manager] sits between request
// pipelines and the network: it hands out idle connections for reuse,
// decides whether a new connection may be opened, tracks every open
// connection and makes sure the capacity a connection holds is given back
// exactly once when it goes away.
//
// A request pipeline typically uses a Manager like this:
//
//	key, err := resolver.Key(req.URL) // see package destination
//	if c, ok := manager.Poll(key); ok {
//		// reuse c
//	} else if manager.Preempt(key) {
//		nc, err := dial(ctx, key)
//		if err != nil {
//			manager.AbortPreemption(key)
//			return err
//		}
//		c = conn.NewNetConn(nc)
//		if err := manager.RegisterOpenConn(c); err != nil {
//			return err
//		}
//	} else {
//		// too many connections: queue the request or fail it
//	}
//	...
//	manager.TryOfferToPool(c, keepAlive, key)
//
// Limits are configured with [WithMaxConnections] and
// [WithMaxConnectionsPerDestination], or loaded from a YAML file with
// [LoadConfig]. Neither limit blocks: when no permit is available,
// [Manager.Preempt] returns false right away.
//
// Closing a connection, through [Manager.Close] or because the pool evicted
// it, is idempotent. This matters because a timeout and a normal completion
// may both try to close the same connection. [Manager.DestroyAll] shuts
// everything down and cancels the pending exchanges of connections that
// are still open, so that nobody waits forever.
//
// Package retry helps a retry policy decide whether a transport failure
// seen on a connection is safe to retry.
package asynchttpclient
