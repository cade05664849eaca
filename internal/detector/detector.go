// Copyright (c) 2026 The Deadlockd Authors. All rights reserved.
// Use of this source code is governed by the MIT license in the LICENSE file.

// Package detector implements the edge-chasing distributed deadlock
// protocol: probe generation on block, probe forwarding and cycle
// recognition on receipt, victim selection, and abort broadcast. It
// depends only on a narrow view of the local lock manager and a peer
// broadcaster, so it never needs to know about HTTP.
package detector

import (
	"fmt"
	"sync"

	"github.com/edgechase/deadlockd/internal/digest"
)

// MaxHops bounds how many times a probe may be forwarded before it is
// dropped as a storm guard.
const MaxHops = 64

// LockView is the subset of lockmgr.Manager the detector needs. It is
// defined here, not in lockmgr, so the detector can be tested against a
// fake without importing net/http-adjacent weight.
type LockView interface {
	// HolderOf returns the first h such that (tx, h) is a blocked edge,
	// and whether tx is blocked on anything at all.
	HolderOf(tx string) (holder string, blocked bool)
	TxAgeMs(tx string) int64
	Abort(tx string) int
}

// PeerBroadcaster fans a message out to every peer, best-effort and
// fire-and-forget. Implementations must never block the caller past the
// point where sends have been initiated.
type PeerBroadcaster interface {
	BroadcastProbe(p Probe)
	BroadcastAbort(tx string)
}

// Logger is satisfied by *zap.SugaredLogger; declared locally so the
// detector package does not depend on the logging backend.
type Logger interface {
	Debugw(msg string, kv ...interface{})
	Warnw(msg string, kv ...interface{})
}

// Detector runs the probe protocol for one node.
type Detector struct {
	service string
	lm      LockView
	peers   PeerBroadcaster
	log     Logger

	mu   sync.Mutex
	seen map[string]map[uint64]struct{} // initiator_tx -> seen path digests
}

// New returns a Detector for the given service name.
func New(service string, lm LockView, peers PeerBroadcaster, log Logger) *Detector {
	return &Detector{
		service: service,
		lm:      lm,
		peers:   peers,
		log:     log,
		seen:    make(map[string]map[uint64]struct{}),
	}
}

// StartProbe fabricates and broadcasts a probe for a tx that just
// blocked on holderTx. A tx waiting on itself is never a cycle and
// produces no network traffic.
func (d *Detector) StartProbe(blockedTx, holderTx string, tsMs int64) {
	if blockedTx == holderTx {
		return
	}
	p := Probe{
		InitiatorTx:    blockedTx,
		OriginService:  d.service,
		CurrentTx:      holderTx,
		CurrentService: "unknown",
		PathDigest:     digest.Roll(0, edgeSegment(blockedTx, holderTx)),
		Hops:           1,
		TsMs:           tsMs,
	}
	d.log.Debugw("start_probe", "initiator", blockedTx, "holder", holderTx)
	d.peers.BroadcastProbe(p)
}

// OnProbe handles an incoming probe: dedupe, direct-cycle check, classic
// cycle check, then forward. Exactly one of these branches executes per
// call, in this order.
func (d *Detector) OnProbe(p Probe) ProbeReply {
	if !d.markSeen(p.InitiatorTx, p.PathDigest) {
		return ProbeReply{Deadlock: false, Reason: "duplicate_digest"}
	}

	if p.CurrentTx == p.InitiatorTx && p.Hops >= 1 {
		holder, hasHolder := d.lm.HolderOf(p.InitiatorTx)
		victim := d.chooseVictim(p.InitiatorTx, holder, hasHolder)
		d.log.Warnw("deadlock detected (direct)", "initiator", p.InitiatorTx, "victim", victim, "hops", p.Hops)
		d.clearSeen(p.InitiatorTx)
		d.broadcastAbort(victim)
		return ProbeReply{Deadlock: true, Cycle: []string{p.InitiatorTx}, VictimTx: victim}
	}

	if holder, blocked := d.lm.HolderOf(p.InitiatorTx); blocked && p.Hops > 1 {
		victim := d.chooseVictim(p.InitiatorTx, holder, true)
		d.log.Warnw("deadlock detected (classic)", "initiator", p.InitiatorTx, "victim", victim, "hops", p.Hops)
		d.clearSeen(p.InitiatorTx)
		d.broadcastAbort(victim)
		return ProbeReply{Deadlock: true, Cycle: []string{p.InitiatorTx}, VictimTx: victim}
	}

	nextHolder, hasNext := d.lm.HolderOf(p.CurrentTx)
	if !hasNext {
		return ProbeReply{Deadlock: false, Reason: "no_next_edge"}
	}
	if p.Hops+1 > MaxHops {
		return ProbeReply{Deadlock: false, Reason: "max_hops"}
	}

	fwd := p
	fwd.CurrentTx = nextHolder
	fwd.CurrentService = "unknown"
	fwd.PathDigest = digest.Roll(p.PathDigest, edgeSegment(p.CurrentTx, nextHolder))
	fwd.Hops = p.Hops + 1

	d.log.Debugw("forward_probe", "from", p.CurrentTx, "to", nextHolder, "hops", fwd.Hops)
	d.peers.BroadcastProbe(fwd)
	return ProbeReply{Deadlock: false, Reason: "forwarded"}
}

// chooseVictim implements the wound-wait-style policy: abort the
// younger (smaller age) of the two transactions at the cycle edge this
// node observed. If b is absent, a is the only option.
func (d *Detector) chooseVictim(a, b string, hasB bool) string {
	if !hasB {
		return a
	}
	ageA := d.lm.TxAgeMs(a)
	ageB := d.lm.TxAgeMs(b)
	if ageB < ageA {
		return b
	}
	return a
}

// broadcastAbort aborts victim locally, then fans the abort out to
// every peer best-effort.
func (d *Detector) broadcastAbort(victim string) {
	d.lm.Abort(victim)
	d.peers.BroadcastAbort(victim)
}

func (d *Detector) markSeen(initiator string, dig uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.seen[initiator]
	if !ok {
		s = make(map[uint64]struct{})
		d.seen[initiator] = s
	}
	if _, dup := s[dig]; dup {
		return false
	}
	s[dig] = struct{}{}
	return true
}

func (d *Detector) clearSeen(initiator string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, initiator)
}

func edgeSegment(from, to string) string {
	return fmt.Sprintf("%s->%s", from, to)
}
