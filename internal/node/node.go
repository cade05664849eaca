// Copyright (c) 2026 The Deadlockd Authors. All rights reserved.
// Use of this source code is governed by the MIT license in the LICENSE file.

// Package node wires the lock manager, detector, peer transport, and
// metrics into a single value owned by the service process, with
// interior synchronization. internal/api is the only caller; it never
// reaches into lockmgr or detector directly.
package node

import (
	"net/http"
	"time"

	"github.com/edgechase/deadlockd/internal/detector"
	"github.com/edgechase/deadlockd/internal/lockmgr"
	"github.com/edgechase/deadlockd/internal/metrics"
)

// Logger is satisfied by *zap.SugaredLogger.
type Logger interface {
	Debugw(msg string, kv ...interface{})
	Warnw(msg string, kv ...interface{})
}

// Node is this process's view of itself: its own lock state plus the
// detector that chases wait-for cycles across peers.
type Node struct {
	Service string

	lm  *lockmgr.Manager
	det *detector.Detector
	met *metrics.Registry
	log Logger
}

// New builds a Node. peers is anything satisfying detector.PeerBroadcaster
// (internal/transport.PeerSet in production, a fake in tests).
func New(service string, peers detector.PeerBroadcaster, met *metrics.Registry, log Logger) *Node {
	return newWithClock(service, peers, met, log, nowMs)
}

// newWithClock builds a Node against an injected clock so tests can
// control tx age deterministically; production always goes through New.
func newWithClock(service string, peers detector.PeerBroadcaster, met *metrics.Registry, log Logger, clock func() int64) *Node {
	lm := lockmgr.New(clock)
	return &Node{
		Service: service,
		lm:      lm,
		det:     detector.New(service, lm, peers, log),
		met:     met,
		log:     log,
	}
}

func nowMs() int64 { return time.Now().UnixMilli() }

// AcquireResult mirrors the /acquire response shape.
type AcquireResult struct {
	Granted   bool
	Holder    string // set when Granted
	BlockedOn string // set when !Granted
}

// Acquire grants or enqueues tx's request for res. On a blocked
// acquire, it starts a probe asynchronously so the HTTP response is
// never held up by peer fan-out.
func (n *Node) Acquire(tx, res string) AcquireResult {
	n.met.IncAcquire()
	granted, holder := n.lm.Acquire(tx, res)
	if granted {
		return AcquireResult{Granted: true, Holder: tx}
	}
	n.met.IncBlocked()
	go n.det.StartProbe(tx, holder, nowMs())
	return AcquireResult{Granted: false, BlockedOn: holder}
}

// Release frees res if tx owns it.
func (n *Node) Release(tx, res string) bool {
	ok := n.lm.Release(tx, res)
	if ok {
		n.met.IncRelease()
	}
	return ok
}

// Abort aborts tx locally and returns the number of affected resources.
func (n *Node) Abort(tx string) int {
	affected := n.lm.Abort(tx)
	n.met.IncAbort()
	return affected
}

// HandleProbe runs an incoming probe through the detector, incrementing
// the deadlock counter whenever it declares one.
func (n *Node) HandleProbe(p detector.Probe) detector.ProbeReply {
	reply := n.det.OnProbe(p)
	if reply.Deadlock {
		n.met.IncDeadlock()
	}
	return reply
}

// WaitForGraph snapshots the current local wait-for edges for GET /wfg.
func (n *Node) WaitForGraph() [][2]string {
	return n.lm.BlockedEdges()
}

// MetricsHandler exposes the Prometheus text-exposition handler.
func (n *Node) MetricsHandler() http.Handler {
	return n.met.Handler()
}
