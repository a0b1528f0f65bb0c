// Package syncer reconciles the local store with the remote peer: the conflict
// resolver, the integrity verifier, and the background worker that drives the
// outbound queue and inbound change stream.
package syncer

import (
	"encoding/json"

	"paisa/internal/models"
)

// Outcome classifies a conflict resolution.
type Outcome string

const (
	OutcomeLocalWins  Outcome = "local-wins"
	OutcomeRemoteWins Outcome = "remote-wins"
	OutcomeMerged     Outcome = "merged"
)

// fieldGroup identifies an independently resolvable slice of a transaction.
// Type and amount form one monolithic group: an amount only makes sense
// together with its direction. Date and time move as one group for the same
// reason. Category, description and the deletion flag resolve independently.
type fieldGroup int

const (
	groupCore fieldGroup = iota
	groupWhen
	groupCategory
	groupDescription
	groupDeleted
)

var allGroups = []fieldGroup{groupCore, groupWhen, groupCategory, groupDescription, groupDeleted}

func groupEqual(g fieldGroup, a, b models.FieldState) bool {
	switch g {
	case groupCore:
		return a.Type == b.Type && a.Amount == b.Amount
	case groupWhen:
		return a.Date == b.Date && a.Time == b.Time
	case groupCategory:
		return a.Category == b.Category
	case groupDescription:
		return a.Description == b.Description
	default:
		return a.Deleted == b.Deleted
	}
}

func copyGroup(g fieldGroup, dst *models.Transaction, src *models.Transaction) {
	switch g {
	case groupCore:
		dst.Type = src.Type
		dst.Amount = src.Amount
	case groupWhen:
		dst.Date = src.Date
		dst.Time = src.Time
	case groupCategory:
		dst.Category = src.Category
	case groupDescription:
		dst.Description = src.Description
	default:
		dst.Deleted = src.Deleted
	}
}

// Resolve deterministically merges a local and a remote version of the same
// logical transaction and reports the outcome.
//
// Per field group, the side with the higher version wins. On an exact version
// tie the stored base snapshot (the last state both sides agreed on) turns
// the decision into a three-way merge: a side that still matches the base did
// not touch the group, so the other side's change wins. When both sides
// changed the same group, or no base exists, the tie is broken by
// last_modified_at and then by comparing content fingerprints, never by
// arrival order. Deletion is a field group like any other, so a delete with a
// higher effective version beats a concurrent edit.
//
// When one side contributes every winning group the result adopts that side's
// content at max(local, remote) version, so a pure remote win never drifts
// past the version the peer holds. Only a genuine merge, where both sides
// contribute, mints a new version at max+1; its last_modified_at is the later
// of the two inputs so the result is identical on every device. Resolve
// always produces an answer.
func Resolve(local, remote *models.Transaction) (*models.Transaction, Outcome) {
	localState := local.Snapshot()
	remoteState := remote.Snapshot()

	var base models.FieldState
	hasBase := false
	if local.BaseState != "" {
		if err := json.Unmarshal([]byte(local.BaseState), &base); err == nil {
			hasBase = true
		}
	}

	merged := *local

	for _, g := range allGroups {
		if groupEqual(g, localState, remoteState) {
			continue
		}

		var winner *models.Transaction
		switch {
		case local.Version > remote.Version:
			winner = local
		case remote.Version > local.Version:
			winner = remote
		case hasBase && groupEqual(g, localState, base):
			winner = remote // local never touched this group
		case hasBase && groupEqual(g, remoteState, base):
			winner = local // remote never touched this group
		default:
			winner = tieBreak(local, remote)
		}

		copyGroup(g, &merged, winner)
	}

	merged.NeedsRefetch = false
	mergedState := merged.Snapshot()

	switch {
	case mergedState == localState:
		// Covers the no-difference case: content already agrees.
		merged.Version = maxInt64(local.Version, remote.Version)
		merged.Fingerprint = merged.ComputeFingerprint()
		return &merged, OutcomeLocalWins
	case mergedState == remoteState:
		merged.Version = maxInt64(local.Version, remote.Version)
		merged.LastModifiedAt = remote.LastModifiedAt
		merged.Fingerprint = merged.ComputeFingerprint()
		return &merged, OutcomeRemoteWins
	default:
		merged.Version = maxInt64(local.Version, remote.Version) + 1
		if remote.LastModifiedAt.After(local.LastModifiedAt) {
			merged.LastModifiedAt = remote.LastModifiedAt
		}
		merged.Fingerprint = merged.ComputeFingerprint()
		return &merged, OutcomeMerged
	}
}

// tieBreak picks a winner when versions tie and both sides changed the same
// group. last_modified_at decides first; identical timestamps fall through to
// a lexicographic comparison of content fingerprints, which differ whenever
// the contents differ. The comparison has no dependence on arrival order, so
// two resolvers given the same pair always agree.
func tieBreak(local, remote *models.Transaction) *models.Transaction {
	if local.LastModifiedAt.After(remote.LastModifiedAt) {
		return local
	}
	if remote.LastModifiedAt.After(local.LastModifiedAt) {
		return remote
	}
	if local.ComputeFingerprint() > remote.ComputeFingerprint() {
		return local
	}
	return remote
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
