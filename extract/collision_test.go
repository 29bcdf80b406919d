// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package extract

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saferwall/innoextract/checksum"
)

func TestResolveCollisionNewerAlwaysOverwrites(t *testing.T) {
	got := ResolveCollision(PolicyError, CollisionInfo{NewVersion: 2, ExistingVersion: 1})
	require.Equal(t, DecisionOverwrite, got)
}

func TestResolveCollisionOlderSkipsByDefault(t *testing.T) {
	got := ResolveCollision(PolicyOverwrite, CollisionInfo{NewVersion: 1, ExistingVersion: 2})
	require.Equal(t, DecisionSkip, got)
}

func TestResolveCollisionOlderDefersToPolicyWhenPromptIfOlder(t *testing.T) {
	got := ResolveCollision(PolicyError, CollisionInfo{
		NewVersion: 1, ExistingVersion: 2,
		Flags: CollisionFlags{PromptIfOlder: true},
	})
	require.Equal(t, DecisionError, got)
}

func TestResolveCollisionSameVersionDiffersByContent(t *testing.T) {
	a := checksum.Checksum{Kind: checksum.CRC32}
	a.Bytes[0] = 1
	b := checksum.Checksum{Kind: checksum.CRC32}
	b.Bytes[0] = 2

	got := ResolveCollision(PolicyError, CollisionInfo{
		NewVersion: 1, ExistingVersion: 1,
		NewChecksum: a, ExistingChecksum: b, HaveExistingHash: true,
		Flags: CollisionFlags{ReplaceSameVersionIfContentsDiffer: true},
	})
	require.Equal(t, DecisionOverwrite, got)
}

func TestResolveCollisionSameVersionSameContentSkips(t *testing.T) {
	same := checksum.Checksum{Kind: checksum.CRC32}
	got := ResolveCollision(PolicyError, CollisionInfo{
		NewVersion: 1, ExistingVersion: 1,
		NewChecksum: same, ExistingChecksum: same, HaveExistingHash: true,
		Flags: CollisionFlags{ReplaceSameVersionIfContentsDiffer: true},
	})
	require.Equal(t, DecisionSkip, got)
}

func TestResolveCollisionSameVersionOverwriteFlag(t *testing.T) {
	got := ResolveCollision(PolicyError, CollisionInfo{
		NewVersion: 1, ExistingVersion: 1,
		Flags: CollisionFlags{OverwriteSameVersion: true},
	})
	require.Equal(t, DecisionOverwrite, got)
}

func TestResolveCollisionSameVersionFallsBackToPolicy(t *testing.T) {
	cases := []struct {
		policy CollisionPolicy
		want   CollisionDecision
	}{
		{PolicyOverwrite, DecisionOverwrite},
		{PolicyRename, DecisionRename},
		{PolicyRenameAll, DecisionRename},
		{PolicyError, DecisionError},
	}
	for _, c := range cases {
		got := ResolveCollision(c.policy, CollisionInfo{NewVersion: 1, ExistingVersion: 1})
		require.Equal(t, c.want, got, c.policy)
	}
}
