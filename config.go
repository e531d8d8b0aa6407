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
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Pool kinds accepted in [Config].
const (
	PoolLIFO = "lifo"
	PoolNone = "none"
)

// Config is the file representation of the manager settings.
type Config struct {
	// MaxConnections is the global connection limit; 0 means unlimited.
	MaxConnections int `yaml:"max_connections"`
	// MaxConnectionsPerDestination is the per-destination connection limit;
	// 0 means unlimited.
	MaxConnectionsPerDestination int `yaml:"max_connections_per_destination"`
	// MaxIdlePerDestination bounds the idle connections kept per destination;
	// 0 means unlimited.
	MaxIdlePerDestination int `yaml:"max_idle_per_destination"`
	// IdleConnectionTimeout evicts connections idle for longer; 0 disables it.
	IdleConnectionTimeout time.Duration `yaml:"idle_connection_timeout"`
	// Pool selects the reuse cache: "lifo" (default) or "none".
	Pool string `yaml:"pool"`
}

// LoadConfig reads a YAML configuration file, expanding ${VAR} references
// to environment variables, then applies defaults and validates it.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig is like [LoadConfig] but reads the YAML document from data.
func ParseConfig(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))
	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error
	if c.MaxConnections < 0 {
		errs = append(errs, errors.New("max_connections must not be negative"))
	}
	if c.MaxConnectionsPerDestination < 0 {
		errs = append(errs, errors.New("max_connections_per_destination must not be negative"))
	}
	if c.MaxIdlePerDestination < 0 {
		errs = append(errs, errors.New("max_idle_per_destination must not be negative"))
	}
	if c.IdleConnectionTimeout < 0 {
		errs = append(errs, errors.New("idle_connection_timeout must not be negative"))
	}
	switch c.Pool {
	case PoolLIFO, PoolNone:
	default:
		errs = append(errs, fmt.Errorf("unknown pool %q", c.Pool))
	}
	return errors.Join(errs...)
}

// Options returns the manager options equivalent to this configuration.
func (c *Config) Options() []ManagerOption {
	opts := []ManagerOption{
		WithMaxConnections(c.MaxConnections),
		WithMaxConnectionsPerDestination(c.MaxConnectionsPerDestination),
		WithMaxIdlePerDestination(c.MaxIdlePerDestination),
		WithIdleConnectionTimeout(c.IdleConnectionTimeout),
	}
	if c.Pool == PoolNone {
		opts = append(opts, WithoutPooling())
	}
	return opts
}

func (c *Config) applyDefaults() {
	if c.Pool == "" {
		c.Pool = PoolLIFO
	}
}
