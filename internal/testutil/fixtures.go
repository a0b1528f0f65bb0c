package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"paisa/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// NewTestTransaction builds an unsaved transaction with sensible defaults:
// a fresh ID, version 1, pending status, and a computed fingerprint. Tests
// mutate the returned value before saving or resolving.
func NewTestTransaction(t *testing.T, txType models.TransactionType, amount string) *models.Transaction {
	t.Helper()

	amt, err := decimal.NewFromString(amount)
	if err != nil {
		t.Fatalf("bad fixture amount %q: %v", amount, err)
	}

	tx := &models.Transaction{
		ID:             uuid.NewString(),
		Type:           txType,
		Amount:         amt,
		Category:       "fixtures",
		Description:    fmt.Sprintf("test transaction %d", nextID()),
		Date:           time.Now().Format("2006-01-02"),
		Time:           "12:00:00",
		Channel:        models.ChannelText,
		SyncStatus:     models.SyncStatusPending,
		Version:        1,
		LastModifiedAt: time.Now(),
	}
	tx.Fingerprint = tx.ComputeFingerprint()
	return tx
}

// CreateTestTransaction saves a defaulted transaction directly, bypassing the
// store's queue bookkeeping. Use the store itself when the test is about
// queue or sync semantics.
func CreateTestTransaction(t *testing.T, db *gorm.DB, txType models.TransactionType, amount string) *models.Transaction {
	t.Helper()

	tx := NewTestTransaction(t, txType, amount)
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}
