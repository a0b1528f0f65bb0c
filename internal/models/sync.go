package models

import "time"

// SyncOp is the kind of outbound operation a queue entry represents.
type SyncOp string

const (
	SyncOpCreate SyncOp = "create"
	SyncOpUpdate SyncOp = "update"
)

// SyncEntry is one outbound operation awaiting transmission. Seq is assigned
// by the store at enqueue time and entries are only ever transmitted in Seq
// order. An entry is removed only when the remote peer acknowledges the exact
// version recorded here; acks for older versions are stale and ignored.
type SyncEntry struct {
	Seq           uint64    `gorm:"primaryKey;autoIncrement" json:"seq"`
	TransactionID string    `gorm:"index;not null" json:"transaction_id"`
	Op            SyncOp    `gorm:"not null" json:"op"`
	Version       int64     `gorm:"not null" json:"version"`
	EnqueuedAt    time.Time `json:"enqueued_at"`
}

// SyncCheckpoint persists how far this device has consumed the remote peer's
// change history. A single row (ID 1) exists per device.
type SyncCheckpoint struct {
	ID           uint      `gorm:"primaryKey"`
	Cursor       string    `json:"cursor"`
	LastSyncedAt time.Time `json:"last_synced_at"`
}
