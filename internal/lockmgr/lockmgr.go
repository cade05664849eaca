// Copyright (c) 2026 The Deadlockd Authors. All rights reserved.
// Use of this source code is governed by the MIT license in the LICENSE file.

// Package lockmgr implements a node-local FIFO exclusive lock manager.
// Every resource has at most one owner and an ordered queue of distinct
// waiters; wait-for edges are derived from owners and queues on demand
// rather than stored. All mutations run under a single mutex so that
// blocked_edges() can never observe a torn queue.
package lockmgr

import "sync"

// Manager tracks lock ownership and waiter queues for a single node.
// The zero value is not usable; construct one with New.
type Manager struct {
	mu sync.Mutex

	owners    map[string]string   // res -> holding tx
	queues    map[string][]string // res -> ordered, distinct waiter tx ids
	waitingOn map[string]string   // tx -> res it is blocked on (absent if not blocked)
	startTS   map[string]int64    // tx -> first-seen timestamp, ms since epoch

	nowMs func() int64
}

// New returns an empty Manager. nowMs supplies the current time in
// milliseconds; production callers pass time.Now via a thin wrapper,
// tests pass a fake clock so that tx_age_ms is deterministic.
func New(nowMs func() int64) *Manager {
	return &Manager{
		owners:    make(map[string]string),
		queues:    make(map[string][]string),
		waitingOn: make(map[string]string),
		startTS:   make(map[string]int64),
		nowMs:     nowMs,
	}
}

// Acquire grants res to tx immediately, or enqueues tx as a waiter and
// reports the current holder. The first observation of tx on this node
// records its start timestamp. Re-entrant acquires by the current owner
// succeed without incrementing any hold count: a single Release still
// frees the resource.
func (m *Manager) Acquire(tx, res string) (granted bool, holder string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, seen := m.startTS[tx]; !seen {
		m.startTS[tx] = m.nowMs()
	}

	owner, held := m.owners[res]
	switch {
	case !held:
		m.owners[res] = tx
		delete(m.waitingOn, tx)
		return true, ""
	case owner == tx:
		delete(m.waitingOn, tx)
		return true, ""
	default:
		if !containsTx(m.queues[res], tx) {
			m.queues[res] = append(m.queues[res], tx)
		}
		m.waitingOn[tx] = res
		return false, owner
	}
}

// Release frees res if tx currently owns it, handing it to the next
// FIFO waiter (if any). It returns false without changing state if tx
// is not the owner.
func (m *Manager) Release(tx, res string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.releaseLocked(tx, res)
}

// releaseLocked implements Release; callers must already hold mu.
func (m *Manager) releaseLocked(tx, res string) bool {
	if m.owners[res] != tx {
		return false
	}
	q := m.queues[res]
	if len(q) > 0 {
		next := q[0]
		m.queues[res] = q[1:]
		m.owners[res] = next
		delete(m.waitingOn, next)
	} else {
		delete(m.owners, res)
	}
	return true
}

// Abort removes tx from every waiter queue it appears in and releases
// every resource it owns, cascading ownership to the next waiter in
// each case. It returns the total number of queue removals plus
// releases performed; aborting an unknown tx is a no-op returning 0.
func (m *Manager) Abort(tx string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	affected := 0
	for res, q := range m.queues {
		idx := indexOfTx(q, tx)
		if idx < 0 {
			continue
		}
		m.queues[res] = append(q[:idx:idx], q[idx+1:]...)
		affected++
	}

	var owned []string
	for res, owner := range m.owners {
		if owner == tx {
			owned = append(owned, res)
		}
	}
	for _, res := range owned {
		if m.releaseLocked(tx, res) {
			affected++
		}
	}

	delete(m.waitingOn, tx)
	delete(m.startTS, tx)
	return affected
}

// HolderFor returns the current owner of res, or "" if res is free.
func (m *Manager) HolderFor(res string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.owners[res]
}

// TxAgeMs returns how long tx has been known to this node. An unknown
// tx has age 0.
func (m *Manager) TxAgeMs(tx string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	start, ok := m.startTS[tx]
	if !ok {
		return 0
	}
	return m.nowMs() - start
}

// VisitBlockedEdges calls fn once for every (waiter, holder) pair
// derivable from the current owners and queues, under the lock. It
// never materializes a slice itself; callers that need a snapshot (the
// /wfg handler) build one from the callback.
func (m *Manager) VisitBlockedEdges(fn func(waiter, holder string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for res, q := range m.queues {
		if len(q) == 0 {
			continue
		}
		holder, owned := m.owners[res]
		if !owned {
			continue
		}
		for _, w := range q {
			fn(w, holder)
		}
	}
}

// BlockedEdges returns a snapshot of all (waiter, holder) pairs.
// Iteration order is unspecified.
func (m *Manager) BlockedEdges() [][2]string {
	var edges [][2]string
	m.VisitBlockedEdges(func(waiter, holder string) {
		edges = append(edges, [2]string{waiter, holder})
	})
	return edges
}

// HolderOf returns the first holder h such that (tx, h) is a blocked
// edge rooted at tx, and true if one exists. Used by the detector to
// find the edge a probe's initiator is currently waiting on.
func (m *Manager) HolderOf(tx string) (holder string, blocked bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for res, q := range m.queues {
		if !containsTx(q, tx) {
			continue
		}
		if h, owned := m.owners[res]; owned {
			return h, true
		}
	}
	return "", false
}

func containsTx(q []string, tx string) bool {
	return indexOfTx(q, tx) >= 0
}

func indexOfTx(q []string, tx string) int {
	for i, t := range q {
		if t == tx {
			return i
		}
	}
	return -1
}
