// Package store owns durable transaction state on the device: the local
// store itself, the outbound sync queue, and the read-side aggregates.
package store

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "paisa/internal/errors"
	"paisa/internal/models"
	"paisa/internal/pagination"
)

// Store is the exclusive owner of durable transaction state. Mutations are
// serialized by a single-writer lock and run inside one database transaction
// together with their sync-queue bookkeeping, so a reader never observes a
// half-applied version.
type Store struct {
	db *gorm.DB

	mu       sync.Mutex
	onMutate []func()
}

// NewStore creates a Store over an opened database.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// OnMutate registers a callback invoked after every successful mutation.
// The aggregator uses this to invalidate its cache.
func (s *Store) OnMutate(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onMutate = append(s.onMutate, fn)
}

func (s *Store) notifyMutation() {
	for _, fn := range s.onMutate {
		fn()
	}
}

// Filter holds optional filter parameters for listing transactions.
type Filter struct {
	FromDate       *string                 `form:"from_date"`
	ToDate         *string                 `form:"to_date"`
	Type           *models.TransactionType `form:"type"`
	Category       *string                 `form:"category"`
	Channel        *models.SourceChannel   `form:"channel"`
	IncludeDeleted bool                    `form:"include_deleted"`
}

func applyFilter(q *gorm.DB, f Filter) *gorm.DB {
	if f.FromDate != nil {
		q = q.Where("date >= ?", *f.FromDate)
	}
	if f.ToDate != nil {
		q = q.Where("date <= ?", *f.ToDate)
	}
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.Category != nil {
		q = q.Where("category = ?", *f.Category)
	}
	if f.Channel != nil {
		q = q.Where("channel = ?", *f.Channel)
	}
	if !f.IncludeDeleted {
		q = q.Where("deleted = ?", false)
	}
	return q
}

// snapshotOrder is the deterministic read ordering: newest event first, ties
// broken by time of day and finally by ID.
const snapshotOrder = "date DESC, time DESC, id"

// Insert persists a new transaction with version 1 and sync status pending,
// and atomically enqueues a create operation. It fails with DUPLICATE_ID when
// the caller supplies an ID that is already present.
func (s *Store) Insert(t *models.Transaction) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t.Version = 1
	t.SyncStatus = models.SyncStatusPending
	t.LastModifiedAt = time.Now()
	t.Fingerprint = t.ComputeFingerprint()
	t.BaseState = ""

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if t.ID != "" {
			var count int64
			if err := tx.Model(&models.Transaction{}).Where("id = ?", t.ID).Count(&count).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			if count > 0 {
				return apperrors.ErrDuplicateID
			}
		}
		if err := tx.Create(t).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.enqueue(tx, t.ID, models.SyncOpCreate, t.Version)
	})
	if err != nil {
		return nil, err
	}

	s.notifyMutation()
	return t, nil
}

// Patch describes a user edit. Nil fields are left untouched. The transaction
// type is immutable; corrections are new transactions.
type Patch struct {
	Amount      *decimal.Decimal
	Category    *string
	Description *string
	Date        *string
	Time        *string
	Deleted     *bool
}

// Update applies a user edit: it bumps the version, recomputes the content
// fingerprint, re-arms sync by resetting the status to pending, and atomically
// enqueues an update operation.
func (s *Store) Update(id string, patch Patch) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result *models.Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var t models.Transaction
		if err := tx.Where("id = ?", id).First(&t).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrTransactionNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if patch.Amount != nil {
			t.Amount = *patch.Amount
		}
		if patch.Category != nil {
			t.Category = *patch.Category
		}
		if patch.Description != nil {
			t.Description = *patch.Description
		}
		if patch.Date != nil {
			t.Date = *patch.Date
		}
		if patch.Time != nil {
			t.Time = *patch.Time
		}
		if patch.Deleted != nil {
			t.Deleted = *patch.Deleted
		}

		t.Version++
		t.SyncStatus = models.SyncStatusPending
		t.Fingerprint = t.ComputeFingerprint()
		t.LastModifiedAt = time.Now()

		if err := tx.Save(&t).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := s.enqueue(tx, t.ID, models.SyncOpUpdate, t.Version); err != nil {
			return err
		}
		result = &t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyMutation()
	return result, nil
}

// GetByID retrieves a single transaction, tombstoned or not.
func (s *Store) GetByID(id string) (*models.Transaction, error) {
	var t models.Transaction
	if err := s.db.Where("id = ?", id).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &t, nil
}

// GetAll returns the full snapshot of transactions matching the filter,
// ordered by transaction date descending, then time descending, then ID.
func (s *Store) GetAll(filter Filter) ([]models.Transaction, error) {
	var transactions []models.Transaction
	q := applyFilter(s.db.Model(&models.Transaction{}), filter)
	if err := q.Order(snapshotOrder).Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return transactions, nil
}

// List returns a paginated page of the same snapshot GetAll serves.
func (s *Store) List(filter Filter, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	base := applyFilter(s.db.Model(&models.Transaction{}), filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := base.Scopes(pagination.Paginate(page)).
		Order(snapshotOrder).
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// FindByFingerprint looks for a non-tombstoned transaction with the given
// content fingerprint from the same channel within [fromDate, toDate]. Rows
// the user explicitly kept as duplicates are not reported again.
func (s *Store) FindByFingerprint(fingerprint string, channel models.SourceChannel, fromDate, toDate string) (*models.Transaction, error) {
	var t models.Transaction
	err := s.db.
		Where("fingerprint = ? AND channel = ? AND date >= ? AND date <= ?", fingerprint, channel, fromDate, toDate).
		Where("deleted = ? AND kept_duplicate = ?", false, false).
		Order("last_modified_at DESC").
		First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &t, nil
}

// ApplyRemote writes a reconciled transaction on behalf of the sync worker.
// It upserts without touching the sync queue: remote-originated writes must
// not be synced back. The applied state becomes the new merge base.
func (s *Store) ApplyRemote(t *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	base, err := json.Marshal(t.Snapshot())
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	t.BaseState = string(base)
	t.Fingerprint = t.ComputeFingerprint()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Transaction{}).Where("id = ?", t.ID).Count(&count).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count == 0 {
			if err := tx.Create(t).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			return nil
		}
		if err := tx.Model(&models.Transaction{}).Where("id = ?", t.ID).
			Select("Type", "Amount", "Category", "Description", "Date", "Time",
				"SyncStatus", "Fingerprint", "Version", "Deleted", "NeedsRefetch",
				"BaseState", "LastModifiedAt").
			Updates(t).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.notifyMutation()
	return nil
}

// ApplyMerged writes a reconciled transaction whose content differs from the
// remote peer's copy, so it must travel back: the row is stored pending with
// an update entry enqueued atomically. The merge base is the remote snapshot,
// which is what the peer currently knows.
func (s *Store) ApplyMerged(t *models.Transaction, remoteBase models.FieldState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	base, err := json.Marshal(remoteBase)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	t.BaseState = string(base)
	t.SyncStatus = models.SyncStatusPending
	t.Fingerprint = t.ComputeFingerprint()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Transaction{}).Where("id = ?", t.ID).Count(&count).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count == 0 {
			if err := tx.Create(t).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		} else if err := tx.Model(&models.Transaction{}).Where("id = ?", t.ID).
			Select("Type", "Amount", "Category", "Description", "Date", "Time",
				"SyncStatus", "Fingerprint", "Version", "Deleted", "NeedsRefetch",
				"BaseState", "LastModifiedAt").
			Updates(t).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.enqueue(tx, t.ID, models.SyncOpUpdate, t.Version)
	})
	if err != nil {
		return err
	}

	s.notifyMutation()
	return nil
}

// MarkSynced records that the remote peer accepted the given version. It is a
// no-op when the transaction has mutated past that version since the upload
// snapshot was taken; the newer edit stays pending. Returns whether the
// status changed.
func (s *Store) MarkSynced(id string, version int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var t models.Transaction
		if err := tx.Where("id = ?", id).First(&t).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrTransactionNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if t.Version != version {
			return nil // stale ack
		}

		base, err := json.Marshal(t.Snapshot())
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		t.SyncStatus = models.SyncStatusSynced
		t.NeedsRefetch = false
		t.BaseState = string(base)
		if err := tx.Save(&t).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		updated = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if updated {
		s.notifyMutation()
	}
	return updated, nil
}

// Quarantine marks a transaction as conflicted and flags it for re-fetch on
// the next sync cycle. Quarantined rows are excluded from aggregates.
func (s *Store) Quarantine(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.db.Model(&models.Transaction{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"sync_status":   models.SyncStatusConflict,
			"needs_refetch": true,
		})
	if res.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrTransactionNotFound
	}

	s.notifyMutation()
	return nil
}

// PurgeTombstones removes tombstoned rows that were deleted before the cutoff
// and have been acknowledged by the remote peer. Unsynced tombstones are kept
// so the deletion can still propagate.
func (s *Store) PurgeTombstones(cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.db.Where("deleted = ? AND sync_status = ? AND last_modified_at < ?",
		true, models.SyncStatusSynced, cutoff).
		Delete(&models.Transaction{})
	if res.Error != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}

	if res.RowsAffected > 0 {
		s.notifyMutation()
	}
	return res.RowsAffected, nil
}

// Status summarizes local sync state for the UI's background indicator.
type Status struct {
	Pending    int64 `json:"pending"`
	Conflict   int64 `json:"conflict"`
	QueueDepth int64 `json:"queue_depth"`
}

// SyncStatus reports pending/conflict row counts and the queue depth.
func (s *Store) SyncStatus() (*Status, error) {
	var st Status
	if err := s.db.Model(&models.Transaction{}).
		Where("sync_status = ?", models.SyncStatusPending).
		Count(&st.Pending).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := s.db.Model(&models.Transaction{}).
		Where("sync_status = ?", models.SyncStatusConflict).
		Count(&st.Conflict).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := s.db.Model(&models.SyncEntry{}).Count(&st.QueueDepth).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &st, nil
}
