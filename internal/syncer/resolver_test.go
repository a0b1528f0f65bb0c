package syncer

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"paisa/internal/models"
	"paisa/internal/testutil"
)

// pair returns a local and remote copy of the same logical transaction, both
// at version 1 with the local's base snapshot recording that shared state.
func pair(t *testing.T) (*models.Transaction, *models.Transaction) {
	t.Helper()

	local := testutil.NewTestTransaction(t, models.TransactionTypeExpense, "100")
	local.Category = "groceries"
	local.Description = "weekly shop"
	local.LastModifiedAt = time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	local.Fingerprint = local.ComputeFingerprint()

	base, err := json.Marshal(local.Snapshot())
	if err != nil {
		t.Fatalf("marshaling base state: %v", err)
	}
	local.BaseState = string(base)

	remote := *local
	remote.BaseState = ""
	return local, &remote
}

func TestResolve(t *testing.T) {
	t.Run("higher_remote_version_wins", func(t *testing.T) {
		local, remote := pair(t)
		remote.Version = 3
		remote.Amount = decimal.NewFromInt(120)
		remote.LastModifiedAt = local.LastModifiedAt.Add(time.Hour)

		merged, outcome := Resolve(local, remote)

		if outcome != OutcomeRemoteWins {
			t.Fatalf("expected remote-wins, got %s", outcome)
		}
		if merged.Amount.String() != "120" {
			t.Errorf("expected amount 120, got %s", merged.Amount.String())
		}
		if merged.Version != 3 {
			t.Errorf("expected the remote version adopted, got %d", merged.Version)
		}
	})

	t.Run("higher_local_version_wins", func(t *testing.T) {
		local, remote := pair(t)
		local.Version = 2
		local.Amount = decimal.NewFromInt(90)

		merged, outcome := Resolve(local, remote)

		if outcome != OutcomeLocalWins {
			t.Fatalf("expected local-wins, got %s", outcome)
		}
		if merged.Amount.String() != "90" {
			t.Errorf("expected amount 90, got %s", merged.Amount.String())
		}
	})

	t.Run("tie_merges_disjoint_field_edits", func(t *testing.T) {
		local, remote := pair(t)
		local.Version = 2
		local.Category = "food"
		remote.Version = 2
		remote.Description = "weekly shop at the market"

		merged, outcome := Resolve(local, remote)

		if outcome != OutcomeMerged {
			t.Fatalf("expected merged, got %s", outcome)
		}
		if merged.Category != "food" {
			t.Errorf("expected local category edit kept, got %q", merged.Category)
		}
		if merged.Description != "weekly shop at the market" {
			t.Errorf("expected remote description edit kept, got %q", merged.Description)
		}
		if merged.Version != 3 {
			t.Errorf("expected version 3, got %d", merged.Version)
		}
	})

	t.Run("higher_remote_version_moves_the_date", func(t *testing.T) {
		local, remote := pair(t)
		remote.Version = 2
		remote.Date = "2026-08-29"
		remote.Time = "21:30:00"
		remote.Fingerprint = remote.ComputeFingerprint()
		remote.LastModifiedAt = local.LastModifiedAt.Add(time.Hour)

		merged, outcome := Resolve(local, remote)

		if outcome != OutcomeRemoteWins {
			t.Fatalf("expected remote-wins, got %s", outcome)
		}
		if merged.Date != "2026-08-29" || merged.Time != "21:30:00" {
			t.Errorf("expected the remote date edit adopted, got %s %s", merged.Date, merged.Time)
		}
		if merged.Version != 2 {
			t.Errorf("expected the remote version adopted, got %d", merged.Version)
		}
		if merged.Fingerprint != remote.Fingerprint {
			t.Error("expected the fingerprint to follow the moved date")
		}
	})

	t.Run("tie_merges_date_edit_with_category_edit", func(t *testing.T) {
		local, remote := pair(t)
		local.Version = 2
		local.Category = "food"
		remote.Version = 2
		remote.Date = "2026-08-28"

		merged, outcome := Resolve(local, remote)

		if outcome != OutcomeMerged {
			t.Fatalf("expected merged, got %s", outcome)
		}
		if merged.Category != "food" {
			t.Errorf("expected local category edit kept, got %q", merged.Category)
		}
		if merged.Date != "2026-08-28" {
			t.Errorf("expected remote date edit kept, got %s", merged.Date)
		}
		if merged.Version != 3 {
			t.Errorf("expected version 3, got %d", merged.Version)
		}
	})

	t.Run("delete_beats_concurrent_edit", func(t *testing.T) {
		local, remote := pair(t)
		local.Version = 2
		local.Category = "food"
		remote.Version = 3
		remote.Deleted = true
		remote.LastModifiedAt = local.LastModifiedAt.Add(time.Hour)

		merged, _ := Resolve(local, remote)

		if !merged.Deleted {
			t.Error("expected the higher-versioned delete to win")
		}
	})

	t.Run("tie_on_same_group_uses_last_modified", func(t *testing.T) {
		local, remote := pair(t)
		local.Version = 2
		local.Description = "older wording"
		remote.Version = 2
		remote.Description = "newer wording"
		remote.LastModifiedAt = local.LastModifiedAt.Add(time.Minute)

		merged, _ := Resolve(local, remote)

		if merged.Description != "newer wording" {
			t.Errorf("expected the later edit to win, got %q", merged.Description)
		}
	})

	t.Run("deterministic_without_base", func(t *testing.T) {
		local, remote := pair(t)
		local.BaseState = ""
		local.Version = 2
		local.Description = "wording A"
		remote.Version = 2
		remote.Description = "wording B"
		// Identical timestamps force the fingerprint tie-break.

		first, _ := Resolve(local, remote)
		second, _ := Resolve(remote, local)

		if first.Description != second.Description {
			t.Errorf("resolution depends on argument order: %q vs %q", first.Description, second.Description)
		}
		if first.Version != second.Version {
			t.Errorf("version depends on argument order: %d vs %d", first.Version, second.Version)
		}
	})

	t.Run("identical_content_is_local_wins", func(t *testing.T) {
		local, remote := pair(t)

		merged, outcome := Resolve(local, remote)

		if outcome != OutcomeLocalWins {
			t.Fatalf("expected local-wins for identical content, got %s", outcome)
		}
		if merged.Version != local.Version {
			t.Errorf("expected the version untouched, got %d", merged.Version)
		}
	})

	t.Run("merged_last_modified_is_the_later_input", func(t *testing.T) {
		local, remote := pair(t)
		remote.Version = 2
		remote.Description = "remote edit"
		remote.LastModifiedAt = local.LastModifiedAt.Add(2 * time.Hour)

		merged, _ := Resolve(local, remote)

		if !merged.LastModifiedAt.Equal(remote.LastModifiedAt) {
			t.Errorf("expected last_modified_at %v, got %v", remote.LastModifiedAt, merged.LastModifiedAt)
		}
	})

	t.Run("recomputes_fingerprint", func(t *testing.T) {
		local, remote := pair(t)
		remote.Version = 2
		remote.Description = "remote edit"

		merged, _ := Resolve(local, remote)

		if merged.Fingerprint != merged.ComputeFingerprint() {
			t.Error("expected the merged fingerprint to match the merged content")
		}
	})
}
