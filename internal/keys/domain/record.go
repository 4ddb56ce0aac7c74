// Package domain defines the core domain models for survey data encryption.
//
// Each encryption-enabled survey has exactly one Data Encryption Key (DEK)
// for the lifetime of its key record. The DEK is never stored in plaintext:
// it is wrapped twice, under a KEK derived from the owner's passphrase and
// under a KEK derived from a 12-word recovery phrase. Either secret recovers
// the same DEK; losing both makes the survey data permanently unrecoverable.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// WrappedKey is a DEK encrypted under a KEK with authenticated encryption.
// The authentication tag is appended to Ciphertext by the AEAD.
type WrappedKey struct {
	Ciphertext []byte // Encrypted DEK with authentication tag appended
	Nonce      []byte // Unique nonce used for this wrap
}

// IsZero reports whether the wrapped key is unset.
func (w WrappedKey) IsZero() bool {
	return len(w.Ciphertext) == 0 && len(w.Nonce) == 0
}

// SurveyKeyRecord is the persisted key material for one encryption-enabled
// survey. It contains only wrapped keys, salts, and metadata; the plaintext
// DEK, the passphrase, and the recovery phrase are never persisted.
type SurveyKeyRecord struct {
	SurveyID           uuid.UUID     // Owning survey, immutable
	FormatVersion      FormatVersion // legacy_raw or dual_wrap
	Algorithm          Algorithm     // AEAD used for both wraps and for field data
	KdfSaltPassword    []byte        // Salt for the passphrase KEK, >= 16 bytes, never reused
	KdfSaltRecovery    []byte        // Salt for the recovery-phrase KEK, >= 16 bytes, never reused
	WrappedDekPassword WrappedKey    // DEK wrapped under the passphrase-derived KEK
	WrappedDekRecovery WrappedKey    // DEK wrapped under the recovery-phrase-derived KEK
	RecoveryHint       string        // Non-secret hint, e.g. "apple...zebra"
	LegacyKeyHash      string        // Argon2id digest of the legacy raw key (legacy_raw only)
	CreatedAt          time.Time
	RewrappedAt        time.Time // Zero until a wrap path is replaced
}

// IsLegacy reports whether the record is still in the deprecated
// single-raw-key format.
func (r *SurveyKeyRecord) IsLegacy() bool {
	return r.FormatVersion == FormatLegacyRaw
}

// Wrapped returns the wrapped DEK and KDF salt for the given unlock path.
func (r *SurveyKeyRecord) Wrapped(path UnlockPath) (WrappedKey, []byte) {
	if path == PathRecovery {
		return r.WrappedDekRecovery, r.KdfSaltRecovery
	}
	return r.WrappedDekPassword, r.KdfSaltPassword
}

// SetWrapped replaces the wrapped DEK and KDF salt for the given unlock path.
// The other path is untouched.
func (r *SurveyKeyRecord) SetWrapped(path UnlockPath, wrapped WrappedKey, salt []byte) {
	if path == PathRecovery {
		r.WrappedDekRecovery = wrapped
		r.KdfSaltRecovery = salt
		return
	}
	r.WrappedDekPassword = wrapped
	r.KdfSaltPassword = salt
}
