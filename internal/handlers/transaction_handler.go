// Package handlers exposes the local HTTP surface the device UI talks to.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "paisa/internal/errors"
	"paisa/internal/ingest"
	"paisa/internal/models"
	"paisa/internal/pagination"
	"paisa/internal/store"
	"paisa/internal/validator"
)

// TransactionHandler handles transaction-related requests.
type TransactionHandler struct {
	recorder ingest.Recorder
	store    *store.Store
	rules    validator.Rules
}

// NewTransactionHandler creates a new TransactionHandler. Edits go through the
// same validation rules as new candidates.
func NewTransactionHandler(recorder ingest.Recorder, s *store.Store, rules validator.Rules) *TransactionHandler {
	return &TransactionHandler{recorder: recorder, store: s, rules: rules}
}

// CreateTransactionRequest represents the request payload for recording a
// transaction candidate from any input channel.
type CreateTransactionRequest struct {
	Amount        string                 `json:"amount" binding:"required"`
	Type          models.TransactionType `json:"transaction_type" binding:"required,transaction_type"`
	Category      string                 `json:"category"`
	Description   string                 `json:"description"`
	Date          string                 `json:"transaction_date"`
	Time          string                 `json:"transaction_time"`
	Channel       models.SourceChannel   `json:"source_channel" binding:"required,source_channel"`
	KeepDuplicate bool                   `json:"keep_duplicate"`
}

// CreateTransaction validates, deduplicates, and stores a candidate. A
// fingerprint match within the dedup window answers 409 with the existing
// transaction; resubmitting with keep_duplicate stores the candidate anyway.
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.recorder.Record(validator.Candidate{
		Amount:      req.Amount,
		Type:        req.Type,
		Category:    req.Category,
		Description: req.Description,
		Date:        req.Date,
		Time:        req.Time,
		Channel:     req.Channel,
	}, req.KeepDuplicate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if result.DuplicateOf != "" {
		c.JSON(http.StatusConflict, gin.H{
			"duplicate_of": result.DuplicateOf,
			"transaction":  result.Transaction,
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"transaction": result.Transaction})
}

// ListTransactions returns a paginated snapshot ordered by transaction date
// descending. Filters and pagination come from query parameters.
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	var filter store.Filter
	if err := c.ShouldBindQuery(&filter); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.store.List(filter, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetTransaction returns a single transaction by ID, tombstoned or not.
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	transaction, err := h.store.GetByID(c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// UpdateTransactionRequest represents the request payload for editing a
// transaction. Omitted fields are left untouched; the transaction type is
// immutable, corrections are new transactions.
type UpdateTransactionRequest struct {
	Amount      *string `json:"amount"`
	Category    *string `json:"category"`
	Description *string `json:"description"`
	Date        *string `json:"transaction_date"`
	Time        *string `json:"transaction_time"`
}

// UpdateTransaction applies a partial edit, bumping the version and re-arming
// sync for the row.
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	var req UpdateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var patch store.Patch
	if req.Amount != nil {
		amount, err := validator.ParseAmount(*req.Amount, h.rules.MaxAmount)
		if err != nil {
			respondWithError(c, err)
			return
		}
		patch.Amount = &amount
	}
	if req.Category != nil {
		patch.Category = req.Category
	}
	if req.Description != nil {
		patch.Description = req.Description
	}
	if req.Date != nil {
		date, err := validator.NormalizeDate(*req.Date, time.Now())
		if err != nil {
			respondWithError(c, err)
			return
		}
		patch.Date = &date
	}
	if req.Time != nil {
		timeOfDay, err := validator.NormalizeTime(*req.Time)
		if err != nil {
			respondWithError(c, err)
			return
		}
		patch.Time = &timeOfDay
	}

	transaction, err := h.store.Update(c.Param("id"), patch)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}

// DeleteTransaction tombstones a transaction. The row survives locally until
// the deletion has propagated and the retention window has passed.
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	deleted := true
	if _, err := h.store.Update(c.Param("id"), store.Patch{Deleted: &deleted}); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Transaction deleted"})
}
