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

// Package destination computes destination keys: the strings that scope
// connection reuse and per-destination connection limits. Two requests get
// the same key, and may therefore share connections, only if they go to the
// same scheme, host and port through the same proxy.
package destination

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/http/httpproxy"
	"golang.org/x/net/idna"
)

const proxySeparator = "|"

var errMissingHost = errors.New("URL has no host")

//nolint:gochecknoglobals
var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
	"ws":    "80",
	"wss":   "443",
}

// KeyFor returns the destination key for the given target URL reached
// through the given proxy. A nil proxy means a direct connection.
//
// The key has the form "scheme://host:port", followed by "|" and the key of
// the proxy when one is used. Host names are converted to their ASCII form
// and lower-cased, and the default port for the scheme is filled in.
func KeyFor(target, proxy *url.URL) (string, error) {
	key, err := endpoint(target)
	if err != nil {
		return "", err
	}
	if proxy == nil {
		return key, nil
	}
	proxyKey, err := endpoint(proxy)
	if err != nil {
		return "", fmt.Errorf("proxy: %w", err)
	}
	return key + proxySeparator + proxyKey, nil
}

// Resolver computes destination keys, choosing a proxy for each target.
type Resolver struct {
	proxyFunc func(*url.URL) (*url.URL, error)
}

// NewResolver returns a resolver that selects proxies according to the
// given configuration. If config is nil, the configuration is read from
// the environment (HTTP_PROXY, HTTPS_PROXY and NO_PROXY).
func NewResolver(config *httpproxy.Config) *Resolver {
	if config == nil {
		config = httpproxy.FromEnvironment()
	}
	return &Resolver{proxyFunc: config.ProxyFunc()}
}

// NewDirectResolver returns a resolver that never uses a proxy.
func NewDirectResolver() *Resolver {
	return &Resolver{proxyFunc: func(*url.URL) (*url.URL, error) { return nil, nil }}
}

// Key returns the destination key for target.
func (r *Resolver) Key(target *url.URL) (string, error) {
	proxy, err := r.proxyFunc(target)
	if err != nil {
		return "", fmt.Errorf("select proxy for %s: %w", target.Redacted(), err)
	}
	return KeyFor(target, proxy)
}

func endpoint(u *url.URL) (string, error) {
	if u == nil || u.Host == "" {
		return "", errMissingHost
	}
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	if net.ParseIP(host) == nil {
		var err error
		host, err = idna.Lookup.ToASCII(host)
		if err != nil {
			return "", fmt.Errorf("invalid host %q: %w", u.Hostname(), err)
		}
	}
	port := u.Port()
	if port == "" {
		var ok bool
		port, ok = defaultPorts[scheme]
		if !ok {
			return "", fmt.Errorf("no port given and no default port for scheme %q", u.Scheme)
		}
	}
	return scheme + "://" + net.JoinHostPort(host, port), nil
}
