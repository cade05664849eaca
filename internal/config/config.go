// Copyright (c) 2026 The Deadlockd Authors. All rights reserved.
// Use of this source code is governed by the MIT license in the LICENSE file.

// Package config loads this node's settings from its environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// defaultPorts maps the three well-known bare service names this
// protocol was originally deployed with onto their default ports. A
// bare PEERS token outside this set has no default port and must be
// given as a full http(s):// URL instead.
var defaultPorts = map[string]int{
	"svca": 8000,
	"svcb": 8001,
	"svcc": 8002,
}

// Config is the fully resolved runtime configuration for one node.
type Config struct {
	ServiceName       string
	Port              int
	Peers             []string // fully resolved http(s):// base URLs
	LogLevel          string
	PeerTimeout       time.Duration
	ReadHeaderTimeout time.Duration
}

// Load reads SERVICE_NAME, PORT, PEERS, LOG_LEVEL, PEER_TIMEOUT_MS, and
// READ_HEADER_TIMEOUT_MS from the process environment via viper's
// automatic env binding, applying sensible defaults for each.
func Load() (Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("service_name", "svca")
	v.SetDefault("port", 8000)
	v.SetDefault("peers", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("peer_timeout_ms", 2000)
	v.SetDefault("read_header_timeout_ms", 5000)

	peers, err := resolvePeers(v.GetString("peers"))
	if err != nil {
		return Config{}, err
	}

	return Config{
		ServiceName:       v.GetString("service_name"),
		Port:              v.GetInt("port"),
		Peers:             peers,
		LogLevel:          v.GetString("log_level"),
		PeerTimeout:       time.Duration(v.GetInt("peer_timeout_ms")) * time.Millisecond,
		ReadHeaderTimeout: time.Duration(v.GetInt("read_header_timeout_ms")) * time.Millisecond,
	}, nil
}

// resolvePeers turns the comma-separated PEERS token list into fully
// qualified base URLs. A token already carrying a scheme is used
// verbatim; a bare name is resolved through defaultPorts or rejected.
func resolvePeers(raw string) ([]string, error) {
	var resolved []string
	for _, tok := range strings.Split(raw, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if strings.HasPrefix(tok, "http://") || strings.HasPrefix(tok, "https://") {
			resolved = append(resolved, tok)
			continue
		}
		port, ok := defaultPorts[tok]
		if !ok {
			return nil, fmt.Errorf("config: peer token %q has no default port; use a full http(s):// URL", tok)
		}
		resolved = append(resolved, fmt.Sprintf("http://%s:%d", tok, port))
	}
	return resolved, nil
}
