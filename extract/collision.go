// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package extract

import "github.com/saferwall/innoextract/checksum"

// CollisionPolicy is the caller-chosen fallback the resolver applies once
// a file's own flags don't already settle whether to replace an existing
// destination file.
type CollisionPolicy int

const (
	PolicyOverwrite CollisionPolicy = iota
	PolicyRename
	PolicyRenameAll
	PolicyError
)

// CollisionDecision is what ResolveCollision decided to do about one
// destination path that already exists on disk.
type CollisionDecision int

const (
	DecisionOverwrite CollisionDecision = iota
	DecisionSkip
	DecisionRename
	DecisionError
)

// CollisionFlags is the subset of FileOptions the decision tree consults.
type CollisionFlags struct {
	PromptIfOlder                      bool
	OverwriteSameVersion                bool
	ReplaceSameVersionIfContentsDiffer  bool
}

// CollisionInfo is what the resolver needs to know about the file already
// on disk versus the one about to be written.
type CollisionInfo struct {
	ExistingVersion   uint64
	NewVersion        uint64
	ExistingChecksum  checksum.Checksum
	NewChecksum       checksum.Checksum
	HaveExistingHash  bool
	Flags             CollisionFlags
}

// ResolveCollision picks what to do about a file that would overwrite an
// existing one, following (file_version, flag overrides) first and only
// falling back to policy when neither settles it: a newer incoming file
// always wins; an older one is only kept unless PromptIfOlder defers to
// policy (there being no interactive prompt at this layer, policy stands
// in for the user's answer); same-version files go by
// ReplaceSameVersionIfContentsDiffer/OverwriteSameVersion before policy.
func ResolveCollision(policy CollisionPolicy, info CollisionInfo) CollisionDecision {
	switch {
	case info.NewVersion > info.ExistingVersion:
		return DecisionOverwrite

	case info.NewVersion < info.ExistingVersion:
		if info.Flags.PromptIfOlder {
			return decisionFromPolicy(policy)
		}
		return DecisionSkip

	default: // same version
		if info.Flags.ReplaceSameVersionIfContentsDiffer && info.HaveExistingHash {
			if !info.NewChecksum.Equal(info.ExistingChecksum) {
				return DecisionOverwrite
			}
			return DecisionSkip
		}
		if info.Flags.OverwriteSameVersion {
			return DecisionOverwrite
		}
		return decisionFromPolicy(policy)
	}
}

func decisionFromPolicy(policy CollisionPolicy) CollisionDecision {
	switch policy {
	case PolicyOverwrite:
		return DecisionOverwrite
	case PolicyRename, PolicyRenameAll:
		return DecisionRename
	case PolicyError:
		return DecisionError
	default:
		return DecisionSkip
	}
}
