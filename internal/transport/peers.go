// Copyright (c) 2026 The Deadlockd Authors. All rights reserved.
// Use of this source code is governed by the MIT license in the LICENSE file.

// Package transport fans detector messages out to peer nodes over HTTP,
// best-effort and fire-and-forget: bound every call with a context
// deadline, send concurrently, and swallow individual failures since
// the edge-chasing protocol is designed to tolerate lost probes.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/edgechase/deadlockd/internal/detector"
)

// Logger is satisfied by *zap.SugaredLogger.
type Logger interface {
	Debugw(msg string, kv ...interface{})
	Warnw(msg string, kv ...interface{})
}

// PeerSet holds the resolved base URLs of every other node this
// instance cooperates with and fans probe/abort messages out to them.
type PeerSet struct {
	peers   []string
	client  *http.Client
	timeout time.Duration
	log     Logger
}

// New returns a PeerSet that POSTs to each of peers with the given
// per-call timeout. peers must already be fully resolved base URLs
// (see internal/config); PeerSet never guesses a scheme or port.
func New(peers []string, timeout time.Duration, log Logger) *PeerSet {
	return &PeerSet{
		peers:   peers,
		client:  &http.Client{},
		timeout: timeout,
		log:     log,
	}
}

// BroadcastProbe implements detector.PeerBroadcaster.
func (p *PeerSet) BroadcastProbe(pr detector.Probe) {
	p.fanOut("/probe", pr)
}

// BroadcastAbort implements detector.PeerBroadcaster.
func (p *PeerSet) BroadcastAbort(tx string) {
	p.fanOut("/abort", abortRequest{Tx: tx})
}

type abortRequest struct {
	Tx string `json:"tx"`
}

// fanOut starts a goroutine that posts body to path on every peer
// concurrently and waits for all of them to finish or time out, then
// exits — so the call never leaks a goroutine even though it does not
// block its own caller. Every individual failure is logged and
// swallowed; there is no retry.
func (p *PeerSet) fanOut(path string, body interface{}) {
	if len(p.peers) == 0 {
		return
	}
	payload, err := json.Marshal(body)
	if err != nil {
		p.log.Warnw("marshal outbound message", "path", path, "err", err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()

		g, gctx := errgroup.WithContext(ctx)
		for _, peer := range p.peers {
			peer := peer
			g.Go(func() error {
				p.post(gctx, peer, path, payload)
				return nil // individual failures never fail the group; they're logged in post.
			})
		}
		_ = g.Wait()
	}()
}

func (p *PeerSet) post(ctx context.Context, base, path string, payload []byte) {
	url := base + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		p.log.Warnw("build peer request", "url", url, "err", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		p.log.Debugw("peer call failed", "url", url, "err", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		p.log.Debugw("peer call non-2xx", "url", url, "status", resp.StatusCode)
	}
}
