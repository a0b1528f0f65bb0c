// Package remote defines the contract with the authoritative remote peer and
// its HTTP implementation. Transport encoding is JSON; authentication is a
// static API key header.
package remote

import (
	"context"
	"time"
)

// Record is the wire form of a transaction.
type Record struct {
	TransactionID  string    `json:"transaction_id"`
	Type           string    `json:"transaction_type"`
	Amount         string    `json:"amount"`
	Category       string    `json:"category"`
	Description    string    `json:"description"`
	Date           string    `json:"transaction_date"`
	Time           string    `json:"transaction_time"`
	Channel        string    `json:"source_channel"`
	Version        int64     `json:"version"`
	Deleted        bool      `json:"deleted"`
	LastModifiedAt time.Time `json:"last_modified_at"`
	Fingerprint    string    `json:"content_fingerprint"`
}

// PushEntry is one outbound operation in a push batch.
type PushEntry struct {
	Op     string `json:"op"` // create | update
	Record Record `json:"record"`
}

// PushResult is the peer's per-entry answer to a push.
type PushResult struct {
	TransactionID   string `json:"transaction_id"`
	AcceptedVersion int64  `json:"accepted_version"`
	Rejected        bool   `json:"rejected"`
	Reason          string `json:"reason,omitempty"`
}

// PullResponse carries a page of remote-origin changes.
type PullResponse struct {
	Changes    []Record `json:"changes"`
	NextCursor string   `json:"next_cursor"`
}

// Peer is the abstract remote store this device reconciles with.
type Peer interface {
	// Check probes connectivity. An error means offline.
	Check(ctx context.Context) error
	// Push transmits a batch of outbound operations in queue order.
	Push(ctx context.Context, entries []PushEntry) ([]PushResult, error)
	// Pull returns changes recorded after the given cursor.
	Pull(ctx context.Context, cursor string) (*PullResponse, error)
	// Fetch re-requests specific transactions, used to replace quarantined rows.
	Fetch(ctx context.Context, ids []string) ([]Record, error)
}
