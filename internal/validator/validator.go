// Package validator checks and normalizes transaction candidates coming from
// any input channel. Validation is pure: it never touches the local store.
package validator

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	apperrors "paisa/internal/errors"
	"paisa/internal/models"
)

const (
	// DateLayout is the canonical transaction_date representation. Lexical
	// order equals chronological order, which the store's ordering relies on.
	DateLayout = "2006-01-02"
	// TimeLayout is the canonical transaction_time representation.
	TimeLayout = "15:04:05"
)

// Candidate is the raw record produced by an input channel (speech
// transcription, manual entry, OCR, linked-account import).
type Candidate struct {
	Amount      string                 `json:"amount"`
	Type        models.TransactionType `json:"transaction_type"`
	Category    string                 `json:"category"`
	Description string                 `json:"description"`
	Date        string                 `json:"transaction_date"`
	Time        string                 `json:"transaction_time"`
	Channel     models.SourceChannel   `json:"source_channel"`
}

// Normalized is a candidate that passed validation, with the amount parsed to
// a canonical decimal and date/time in canonical layouts.
type Normalized struct {
	Amount      decimal.Decimal
	Type        models.TransactionType
	Category    string
	Description string
	Date        string
	Time        string
	Channel     models.SourceChannel
}

// Rules carries the configurable validation parameters. Now is injectable so
// the future-date check is testable.
type Rules struct {
	MaxAmount      decimal.Decimal
	ClockSkew      time.Duration
	DescriptionCap int
	CategoryCap    int
	Now            func() time.Time
}

// currencyStripper removes currency symbols, grouping separators and
// whitespace that speech/OCR channels commonly leave in amounts.
var currencyStripper = strings.NewReplacer(
	"₹", "", "$", "", "€", "", "£", "", "¥", "",
	",", "", " ", "", " ", "",
)

// Normalize validates a candidate and returns its canonical form, or the
// first validation error encountered.
func Normalize(c Candidate, rules Rules) (*Normalized, error) {
	now := time.Now
	if rules.Now != nil {
		now = rules.Now
	}

	if strings.TrimSpace(c.Amount) == "" || c.Type == "" {
		return nil, apperrors.ErrMissingRequiredField
	}

	switch c.Type {
	case models.TransactionTypeIncome, models.TransactionTypeExpense:
	default:
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "transaction_type must be income or expense")
	}

	switch c.Channel {
	case models.ChannelVoice, models.ChannelText, models.ChannelPhoto, models.ChannelAutoSync:
	default:
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown source_channel")
	}

	amount, err := ParseAmount(c.Amount, rules.MaxAmount)
	if err != nil {
		return nil, err
	}

	date, err := NormalizeDate(c.Date, now())
	if err != nil {
		return nil, err
	}
	timeOfDay, err := NormalizeTime(c.Time)
	if err != nil {
		return nil, err
	}

	// Reject events dated beyond a small clock-skew tolerance in the future.
	eventAt, err := time.ParseInLocation(DateLayout+" "+TimeLayout, date+" "+timeOfDay, time.Local)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidTimestamp, err)
	}
	if eventAt.After(now().Add(rules.ClockSkew)) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidTimestamp, "transaction is dated in the future")
	}

	return &Normalized{
		Amount:      amount,
		Type:        c.Type,
		Category:    capString(strings.TrimSpace(c.Category), rules.CategoryCap),
		Description: capString(strings.TrimSpace(c.Description), rules.DescriptionCap),
		Date:        date,
		Time:        timeOfDay,
		Channel:     c.Channel,
	}, nil
}

// ParseAmount strips currency decoration and parses a positive decimal
// magnitude, enforcing the configured ceiling when maxAmount is non-zero.
func ParseAmount(raw string, maxAmount decimal.Decimal) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(currencyStripper.Replace(raw))
	if err != nil {
		return decimal.Zero, apperrors.Wrap(apperrors.ErrMalformedAmount, err)
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, apperrors.WithMessage(apperrors.ErrMalformedAmount, "amount must be greater than zero")
	}
	if !maxAmount.IsZero() && amount.GreaterThan(maxAmount) {
		return decimal.Zero, apperrors.WithMessage(apperrors.ErrMalformedAmount, "amount exceeds the configured ceiling")
	}
	return amount, nil
}

// NormalizeDate parses a date into the canonical layout. An empty date
// defaults to the current local calendar date.
func NormalizeDate(raw string, now time.Time) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now.Format(DateLayout), nil
	}
	for _, layout := range []string{DateLayout, time.RFC3339, "2006-01-02 15:04:05"} {
		if parsed, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return parsed.Format(DateLayout), nil
		}
	}
	return "", apperrors.WithMessage(apperrors.ErrInvalidTimestamp, "unparsable transaction_date")
}

// NormalizeTime parses a time into the canonical layout. An empty time
// defaults to midnight so fingerprints stay deterministic.
func NormalizeTime(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "00:00:00", nil
	}
	for _, layout := range []string{TimeLayout, "15:04"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.Format(TimeLayout), nil
		}
	}
	return "", apperrors.WithMessage(apperrors.ErrInvalidTimestamp, "unparsable transaction_time")
}

// capString truncates to at most max bytes without splitting a multi-byte
// rune, so capped text stays valid UTF-8.
func capString(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// Register registers custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("transaction_type", validateTransactionType)
		_ = v.RegisterValidation("source_channel", validateSourceChannel)
	}
}

func validateTransactionType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "income", "expense":
		return true
	}
	return false
}

func validateSourceChannel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "voice", "text", "photo", "auto-sync":
		return true
	}
	return false
}
