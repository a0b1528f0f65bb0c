package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransactionType represents the direction of a transaction.
// Corrections are recorded as new transactions, never as type flips.
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// SourceChannel records which input channel first captured a transaction.
type SourceChannel string

const (
	ChannelVoice    SourceChannel = "voice"
	ChannelText     SourceChannel = "text"
	ChannelPhoto    SourceChannel = "photo"
	ChannelAutoSync SourceChannel = "auto-sync"
)

// SyncStatus tracks where a transaction stands relative to the remote peer.
// Allowed transitions: pending→synced, pending→conflict, conflict→synced.
// A local edit re-arms sync by resetting the status to pending.
type SyncStatus string

const (
	SyncStatusPending  SyncStatus = "pending"
	SyncStatusSynced   SyncStatus = "synced"
	SyncStatusConflict SyncStatus = "conflict"
)

// Transaction is the durable record of a single financial event. Rows are
// never physically deleted; Deleted tombstones the record so remote peers
// can observe the deletion causally.
type Transaction struct {
	ID          string          `gorm:"type:uuid;primaryKey" json:"transaction_id"`
	Type        TransactionType `gorm:"not null" json:"transaction_type"`
	Amount      decimal.Decimal `gorm:"type:numeric;not null" json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Date        string          `gorm:"index;not null" json:"transaction_date"` // YYYY-MM-DD
	Time        string          `gorm:"not null" json:"transaction_time"`       // HH:MM:SS
	Channel     SourceChannel   `gorm:"not null" json:"source_channel"`

	SyncStatus  SyncStatus `gorm:"index;not null;default:pending" json:"sync_status"`
	Fingerprint string     `gorm:"index" json:"content_fingerprint"`
	Version     int64      `gorm:"not null;default:1" json:"version"`
	Deleted     bool       `gorm:"not null;default:false" json:"deleted"`

	// KeptDuplicate marks a row the user explicitly chose to keep despite a
	// fingerprint match ("possible duplicate, keep both?").
	KeptDuplicate bool `gorm:"not null;default:false" json:"kept_duplicate"`

	// NeedsRefetch flags a quarantined row for re-fetch on the next sync cycle.
	NeedsRefetch bool `gorm:"not null;default:false" json:"-"`

	// BaseState holds the JSON-encoded FieldState of the last synced version,
	// used as the common ancestor for three-way conflict merges.
	BaseState string `json:"-"`

	LastModifiedAt time.Time `gorm:"not null" json:"last_modified_at"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// BeforeCreate assigns a time-ordered UUIDv7 when the creating device has not
// supplied an ID. Remote-originated writes arrive with their ID already set.
func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			t.ID = uuid.NewString()
			return nil
		}
		t.ID = id.String()
	}
	return nil
}

// ComputeFingerprint derives the content hash used for deduplication and
// transport integrity checks. It covers the semantically meaningful fields
// and must be recomputed whenever any of them change.
func (t *Transaction) ComputeFingerprint() string {
	parts := []string{
		t.Amount.String(),
		string(t.Type),
		t.Date,
		t.Time,
		t.Description,
		string(t.Channel),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// FieldState is the merge-relevant projection of a transaction, stored as the
// base snapshot when a version reaches the remote peer.
type FieldState struct {
	Type        TransactionType `json:"transaction_type"`
	Amount      string          `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Date        string          `json:"transaction_date"`
	Time        string          `json:"transaction_time"`
	Deleted     bool            `json:"deleted"`
}

// Snapshot returns the transaction's current FieldState.
func (t *Transaction) Snapshot() FieldState {
	return FieldState{
		Type:        t.Type,
		Amount:      t.Amount.String(),
		Category:    t.Category,
		Description: t.Description,
		Date:        t.Date,
		Time:        t.Time,
		Deleted:     t.Deleted,
	}
}
