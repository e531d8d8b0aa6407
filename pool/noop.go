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
	"sync/atomic"

	"github.com/NullP0inter/async-http-client/conn"
)

// NewNoop returns a pool that never retains a connection.
func NewNoop() Pool {
	return &noopPool{}
}

type noopPool struct {
	destroyed atomic.Bool
}

func (*noopPool) Offer(conn.Conn, string) bool {
	return false
}

func (*noopPool) Poll(string) (conn.Conn, bool) {
	return nil, false
}

func (p *noopPool) IsOpen() bool {
	return !p.destroyed.Load()
}

func (*noopPool) RemoveAll(conn.Conn) bool {
	return false
}

func (p *noopPool) Destroy() {
	p.destroyed.Store(true)
}
