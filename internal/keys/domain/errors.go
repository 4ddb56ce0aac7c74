package domain

import (
	"github.com/pacharanero/checktick/internal/errors"
)

// Key management error definitions.
//
// These domain-specific errors wrap standard errors from internal/errors
// to provide context for key management failures. All errors are mapped to
// appropriate HTTP status codes by the error handling layer.
var (
	// ErrInvalidSecret indicates an unlock attempt failed: wrong passphrase,
	// wrong recovery phrase, or (indistinguishably, on purpose) a corrupted
	// wrapped key. Authentication-tag failure is the only wrong-secret signal;
	// callers must not learn which of these occurred.
	ErrInvalidSecret = errors.Wrap(errors.ErrInvalidInput, "invalid password or recovery phrase")

	// ErrMalformedRecoveryPhrase indicates a recovery phrase failed structural
	// validation (wrong word count, unknown word, or checksum mismatch). This
	// is detected before any key derivation work and is safe to surface with
	// actionable feedback, since it says nothing about the stored secret.
	ErrMalformedRecoveryPhrase = errors.Wrap(errors.ErrInvalidInput, "malformed recovery phrase")

	// ErrDekMismatch indicates the two wrap paths of a new record did not
	// unwrap to the identical DEK. This is an internal invariant violation:
	// the record must be discarded, never persisted, and the error never
	// surfaced to end users.
	ErrDekMismatch = errors.New("wrapped keys do not unwrap to the same DEK")

	// ErrSurveyLocked indicates no unlocked session exists for the survey.
	// Callers should prompt for unlock rather than treating this as fatal.
	ErrSurveyLocked = errors.Wrap(errors.ErrUnauthorized, "survey is locked")

	// ErrKeyRecordNotFound indicates no key record exists for the survey.
	ErrKeyRecordNotFound = errors.Wrap(errors.ErrNotFound, "survey key record not found")

	// ErrKeyRecordExists indicates the survey already has a key record.
	ErrKeyRecordExists = errors.Wrap(errors.ErrConflict, "survey key record already exists")

	// ErrUnsupportedAlgorithm indicates the requested AEAD algorithm is not supported.
	ErrUnsupportedAlgorithm = errors.Wrap(errors.ErrInvalidInput, "unsupported algorithm")

	// ErrInvalidKeySize indicates a key is not exactly 32 bytes.
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrInvalidSaltSize indicates a KDF salt is shorter than 16 bytes.
	ErrInvalidSaltSize = errors.Wrap(errors.ErrInvalidInput, "invalid salt size")

	// ErrDecryptionFailed indicates an authenticated decryption of field data
	// failed: wrong DEK, tampered ciphertext, or associated data that does not
	// match the field the ciphertext was written for. Always fails closed.
	ErrDecryptionFailed = errors.Wrap(errors.ErrInvalidInput, "decryption failed")

	// ErrNotLegacyRecord indicates a legacy migration was requested for a
	// record that is already in the dual-wrap format.
	ErrNotLegacyRecord = errors.Wrap(errors.ErrConflict, "record is not in the legacy format")

	// ErrLegacyMigrationRequired indicates an operation needs the dual-wrap
	// format but the record is still legacy_raw. The owner must re-enter the
	// raw key and migrate before the survey can be unlocked.
	ErrLegacyMigrationRequired = errors.Wrap(errors.ErrConflict, "survey key must be migrated before use")
)
