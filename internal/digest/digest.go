// Copyright (c) 2026 The Deadlockd Authors. All rights reserved.
// Use of this source code is governed by the MIT license in the LICENSE file.

// Package digest implements the rolling path digest used by the detector
// to deduplicate probes per initiator. The digest is node-local: nothing
// about its value is ever compared across services, so hash64 only needs
// to be stable for the lifetime of one process.
package digest

import "github.com/cespare/xxhash/v2"

// hash64 is any fixed 64-bit hash of the segment's UTF-8 bytes.
func hash64(part string) uint64 {
	return xxhash.Sum64String(part)
}

// Roll mixes prev with part using a xorshift-style avalanche so that
// Roll(Roll(0, a), b) depends on both a and b and their order. Go's
// uint64 arithmetic wraps modulo 2^64 on overflow, so no masking is
// required anywhere in the mix.
func Roll(prev uint64, part string) uint64 {
	h := prev ^ hash64(part)
	h ^= h << 13
	h ^= h >> 7
	h ^= h << 17
	return h
}
