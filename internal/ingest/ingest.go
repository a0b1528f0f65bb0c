// Package ingest is the channel-facing write path: validate a candidate,
// check it against stored fingerprints, and insert it into the local store.
package ingest

import (
	"time"

	"github.com/shopspring/decimal"

	"paisa/internal/config"
	"paisa/internal/models"
	"paisa/internal/store"
	"paisa/internal/validator"
)

// Result is the outcome of recording a candidate. When DuplicateOf is set the
// candidate was not stored; Transaction then points at the existing row and
// the caller decides whether to ask the user "keep both?".
type Result struct {
	Transaction *models.Transaction `json:"transaction"`
	DuplicateOf string              `json:"duplicate_of,omitempty"`
}

// Recorder defines the contract for the ingest write path.
type Recorder interface {
	Record(c validator.Candidate, keepDuplicate bool) (*Result, error)
}

// service orchestrates validation, deduplication, and insertion.
type service struct {
	store      *store.Store
	rules      validator.Rules
	windowDays int
}

// RulesFromConfig builds the validation rules shared by the ingest path and
// the edit path.
func RulesFromConfig(cfg *config.Config) validator.Rules {
	maxAmount, err := decimal.NewFromString(cfg.MaxAmount)
	if err != nil {
		maxAmount = decimal.Zero // no ceiling
	}
	return validator.Rules{
		MaxAmount:      maxAmount,
		ClockSkew:      cfg.ClockSkew,
		DescriptionCap: cfg.DescriptionCap,
		CategoryCap:    cfg.CategoryCap,
	}
}

// NewService creates a Recorder using the configured validation rules and
// dedup window.
func NewService(s *store.Store, cfg *config.Config) Recorder {
	return &service{
		store:      s,
		rules:      RulesFromConfig(cfg),
		windowDays: cfg.DedupWindowDays,
	}
}

// Record validates and stores a candidate from any input channel.
// Deduplication is advisory: a fingerprint match within the window returns
// the existing transaction instead of silently dropping or storing the
// candidate. Passing keepDuplicate stores it anyway, marked as intentional.
func (s *service) Record(c validator.Candidate, keepDuplicate bool) (*Result, error) {
	normalized, err := validator.Normalize(c, s.rules)
	if err != nil {
		return nil, err
	}

	t := &models.Transaction{
		Type:          normalized.Type,
		Amount:        normalized.Amount,
		Category:      normalized.Category,
		Description:   normalized.Description,
		Date:          normalized.Date,
		Time:          normalized.Time,
		Channel:       normalized.Channel,
		KeptDuplicate: keepDuplicate,
	}

	if !keepDuplicate {
		from, to := dedupWindow(normalized.Date, s.windowDays)
		existing, err := s.store.FindByFingerprint(t.ComputeFingerprint(), t.Channel, from, to)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return &Result{Transaction: existing, DuplicateOf: existing.ID}, nil
		}
	}

	inserted, err := s.store.Insert(t)
	if err != nil {
		return nil, err
	}
	return &Result{Transaction: inserted}, nil
}

// dedupWindow returns the inclusive [from, to] date range around the
// candidate's date. windowDays of 1 means the same calendar day.
func dedupWindow(date string, windowDays int) (string, string) {
	if windowDays <= 1 {
		return date, date
	}
	center, err := time.Parse(validator.DateLayout, date)
	if err != nil {
		return date, date
	}
	span := windowDays - 1
	from := center.AddDate(0, 0, -span).Format(validator.DateLayout)
	to := center.AddDate(0, 0, span).Format(validator.DateLayout)
	return from, to
}
