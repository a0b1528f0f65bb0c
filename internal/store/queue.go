package store

import (
	"time"

	"gorm.io/gorm"

	apperrors "paisa/internal/errors"
	"paisa/internal/models"
)

// enqueue appends an outbound operation inside the caller's transaction, so a
// stored mutation and its queue entry are durable together or not at all.
// Sequence numbers come from the autoincrement key, so entries for the same
// transaction are always transmitted in enqueue order.
func (s *Store) enqueue(tx *gorm.DB, transactionID string, op models.SyncOp, version int64) error {
	entry := &models.SyncEntry{
		TransactionID: transactionID,
		Op:            op,
		Version:       version,
		EnqueuedAt:    time.Now(),
	}
	if err := tx.Create(entry).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// PeekBatch returns up to n of the oldest unacknowledged entries without
// removing them. The sync worker snapshots a batch, releases the store, and
// acknowledges entries individually after the remote peer confirms them.
func (s *Store) PeekBatch(n int) ([]models.SyncEntry, error) {
	var entries []models.SyncEntry
	if err := s.db.Order("seq").Limit(n).Find(&entries).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return entries, nil
}

// Acknowledge removes the queue entry for (transactionID, version). When the
// transaction has since mutated, the entry carrying the newer version stays
// queued and the ack is a no-op. Acknowledgement is idempotent. Returns
// whether an entry was removed.
func (s *Store) Acknowledge(transactionID string, version int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.db.Where("transaction_id = ? AND version <= ?", transactionID, version).
		Delete(&models.SyncEntry{})
	if res.Error != nil {
		return false, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Checkpoint returns the persisted pull cursor, creating the row on first use.
func (s *Store) Checkpoint() (*models.SyncCheckpoint, error) {
	var cp models.SyncCheckpoint
	err := s.db.Where(models.SyncCheckpoint{ID: 1}).FirstOrCreate(&cp).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &cp, nil
}

// AdvanceCheckpoint durably records the new pull cursor. Called only after
// every reconciled write from the pulled batch has been applied.
func (s *Store) AdvanceCheckpoint(cursor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Model(&models.SyncCheckpoint{}).Where("id = ?", 1).
		Updates(map[string]interface{}{
			"cursor":         cursor,
			"last_synced_at": time.Now(),
		}).Error
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// RefetchIDs lists transactions quarantined by the integrity verifier that
// should be re-requested from the remote peer.
func (s *Store) RefetchIDs() ([]string, error) {
	var ids []string
	if err := s.db.Model(&models.Transaction{}).
		Where("needs_refetch = ?", true).
		Pluck("id", &ids).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return ids, nil
}
