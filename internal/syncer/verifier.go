package syncer

import (
	apperrors "paisa/internal/errors"
	"paisa/internal/models"
)

// Verify recomputes a transaction's content fingerprint and compares it
// against the fingerprint declared in the transport payload. A mismatch means
// the record was modified in transit (or the peers disagree on canonical
// form) and the row must be quarantined rather than trusted.
func Verify(t *models.Transaction, declaredFingerprint string) error {
	if declaredFingerprint == "" {
		return apperrors.WithMessage(apperrors.ErrIntegrityViolation, "payload carries no content fingerprint")
	}
	if t.ComputeFingerprint() != declaredFingerprint {
		return apperrors.WithMessage(apperrors.ErrIntegrityViolation, "content fingerprint mismatch")
	}
	return nil
}
