// Copyright (c) 2026 The Deadlockd Authors. All rights reserved.
// Use of this source code is governed by the MIT license in the LICENSE file.

package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolvePeersBareNames(t *testing.T) {
	peers, err := resolvePeers("svcb, svcc")
	require.NoError(t, err)
	require.Equal(t, []string{"http://svcb:8001", "http://svcc:8002"}, peers)
}

func TestResolvePeersFullURLVerbatim(t *testing.T) {
	peers, err := resolvePeers("https://peer.internal:9999")
	require.NoError(t, err)
	require.Equal(t, []string{"https://peer.internal:9999"}, peers)
}

func TestResolvePeersUnknownBareNameRejected(t *testing.T) {
	_, err := resolvePeers("svcz")
	require.Error(t, err)
}

func TestResolvePeersEmptyYieldsNoPeers(t *testing.T) {
	peers, err := resolvePeers("")
	require.NoError(t, err)
	require.Empty(t, peers)
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "svca", cfg.ServiceName)
	require.Equal(t, 8000, cfg.Port)
	require.Empty(t, cfg.Peers)
}
