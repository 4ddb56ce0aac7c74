// Package service implements the survey encryption subsystem: key derivation,
// recovery phrase encoding, envelope key management, field encryption, and
// legacy-format migration.
package service

import (
	"context"

	"github.com/google/uuid"

	keysDomain "github.com/pacharanero/checktick/internal/keys/domain"
)

// AEAD defines the interface for Authenticated Encryption with Associated Data.
type AEAD interface {
	// Encrypt encrypts plaintext with optional AAD and returns ciphertext and nonce.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error)

	// Decrypt decrypts ciphertext using the provided nonce and AAD.
	Decrypt(ciphertext, nonce, aad []byte) ([]byte, error)
}

// AEADManager defines the interface for creating AEAD cipher instances.
type AEADManager interface {
	// CreateCipher creates an AEAD cipher instance for the specified algorithm.
	CreateCipher(key []byte, alg keysDomain.Algorithm) (AEAD, error)
}

// KeyDeriver turns a human secret plus a stored salt into a fixed-length
// key-encryption key. Derivation is deterministic and intentionally
// memory-hard; it runs in time independent of the secret's value, so a wrong
// secret is only ever detected later, at the authenticated-decryption step.
type KeyDeriver interface {
	// Derive computes a 32-byte KEK from the secret and salt. The context is
	// honored while waiting for derivation capacity, never mid-derivation.
	// Returns an error only on malformed input (salt shorter than 16 bytes).
	Derive(ctx context.Context, secret, salt []byte) ([]byte, error)
}

// PhraseCodec generates and validates 12-word recovery phrases and derives a
// canonical byte seed from them.
type PhraseCodec interface {
	// Generate creates a new 12-word phrase from 128 bits of fresh entropy
	// and returns the phrase together with its canonical seed.
	Generate() (phrase string, seed []byte, err error)

	// Decode normalizes case and whitespace, then validates word count and
	// checksum before returning the canonical seed. Structural failures
	// return ErrMalformedRecoveryPhrase without any key derivation work.
	Decode(phrase string) ([]byte, error)

	// Hint returns the non-secret "first...last" hint for a phrase.
	Hint(phrase string) string
}

// ProvisionResult carries the outputs of provisioning a survey key. The
// recovery phrase and raw DEK hex are plaintext secrets intended to be shown
// to the user exactly once; the manager retains no copy after returning.
type ProvisionResult struct {
	Record         keysDomain.SurveyKeyRecord
	RecoveryPhrase string
	RawDekHex      string
}

// EnvelopeManager owns the lifecycle of a survey's DEK: generation, wrapping
// under the passphrase and recovery KEKs, unwrapping, and rewrapping when a
// secret changes. The DEK itself is never rotated, only rewrapped.
type EnvelopeManager interface {
	// Provision generates a fresh DEK, wraps it under both unlock paths with
	// fresh salts, and verifies both wraps unwrap to the identical DEK before
	// returning the record.
	Provision(
		ctx context.Context,
		surveyID uuid.UUID,
		passphrase string,
		alg keysDomain.Algorithm,
	) (ProvisionResult, error)

	// WrapExisting wraps a caller-supplied DEK under both unlock paths with
	// fresh salts, verifying both wraps as Provision does. Used by the legacy
	// migrator, where the DEK already exists and must not change.
	WrapExisting(
		ctx context.Context,
		surveyID uuid.UUID,
		dek []byte,
		passphrase string,
		alg keysDomain.Algorithm,
	) (ProvisionResult, error)

	// Unwrap recovers the plaintext DEK using one unlock path. Any failure
	// after structural validation surfaces uniformly as ErrInvalidSecret.
	Unwrap(
		ctx context.Context,
		record *keysDomain.SurveyKeyRecord,
		secret keysDomain.UnlockSecret,
	) ([]byte, error)

	// Rewrap replaces one path's wrapped DEK and salt after verifying the old
	// secret. The other path's wrap is untouched and the DEK value is stable.
	// Concurrent rewraps for the same (survey, path) are serialized.
	Rewrap(
		ctx context.Context,
		record *keysDomain.SurveyKeyRecord,
		path keysDomain.UnlockPath,
		oldSecret keysDomain.UnlockSecret,
		newSecret keysDomain.UnlockSecret,
	) (keysDomain.SurveyKeyRecord, error)
}

// FieldCipher encrypts and decrypts individual response field values with an
// unwrapped DEK. It is pure with respect to the DEK: nothing is cached or
// logged.
type FieldCipher interface {
	// Encrypt seals plaintext under the DEK with a fresh random nonce,
	// binding the associated data into the authentication tag.
	Encrypt(dek, plaintext, associatedData []byte) (keysDomain.EncryptedValue, error)

	// Decrypt verifies the tag against the stored associated data before
	// releasing plaintext; any mismatch fails closed with ErrDecryptionFailed.
	Decrypt(dek []byte, value keysDomain.EncryptedValue) ([]byte, error)
}

// LegacyMigrator upgrades deprecated single-raw-key records into the
// dual-wrap format. Migration is explicit and user-initiated: the raw key
// cannot be invented by the system, only re-entered by the owner.
type LegacyMigrator interface {
	// Migrate treats the re-entered raw key as the DEK, wraps it under a new
	// passphrase and a freshly generated recovery phrase, and flips the
	// record to the dual-wrap format. Field ciphertexts are untouched.
	Migrate(
		ctx context.Context,
		record *keysDomain.SurveyKeyRecord,
		rawKeyHex string,
		newPassphrase string,
	) (ProvisionResult, error)
}
