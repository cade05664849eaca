// Copyright (c) 2026 The Deadlockd Authors. All rights reserved.
// Use of this source code is governed by the MIT license in the LICENSE file.

package digest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRollIsDeterministic(t *testing.T) {
	a := Roll(Roll(0, "t1"), "t2")
	b := Roll(Roll(0, "t1"), "t2")
	require.Equal(t, a, b)
}

func TestRollDependsOnOrder(t *testing.T) {
	ab := Roll(Roll(0, "a"), "b")
	ba := Roll(Roll(0, "b"), "a")
	require.NotEqual(t, ab, ba)
}

func TestRollDependsOnBothParts(t *testing.T) {
	base := Roll(0, "a")
	require.NotEqual(t, Roll(base, "b"), Roll(base, "c"))
	require.NotEqual(t, Roll(0, "a"), Roll(0, "z"))
}

func TestRollSegmentsComposeDifferentlyThanConcatenation(t *testing.T) {
	// roll("a->b") after a fresh start should generally differ from
	// rolling "a" then "b" as two separate segments; digests are a
	// property of the exact segment sequence fed in, not the
	// underlying string content.
	whole := Roll(0, "a->b")
	parts := Roll(Roll(0, "a"), "b")
	require.NotEqual(t, whole, parts)
}
