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
	"github.com/NullP0inter/async-http-client/conn"
	"github.com/NullP0inter/async-http-client/internal"
)

// WithClock configures the clock given to the default pool.
func WithClock(clock internal.Clock) ManagerOption {
	return managerOptionFunc(func(opts *managerOptions) {
		opts.clock = clock
	})
}

// KeyOf returns the destination key recorded for c.
func (m *Manager) KeyOf(c conn.Conn) (string, bool) {
	return m.admission.Key(c.ID())
}
