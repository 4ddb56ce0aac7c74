package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	keysDomain "github.com/pacharanero/checktick/internal/keys/domain"
)

// EnvelopeManagerService implements EnvelopeManager.
//
// A survey's DEK is generated exactly once and never rotated in place; only
// the wrapping secrets change. Each wrap path has its own fresh KDF salt, and
// the wrapped values are verified to unwrap to the identical DEK before a
// record leaves Provision. The plaintext DEK, passphrase, and recovery phrase
// are scoped to the method bodies: nothing secret survives on the struct.
type EnvelopeManagerService struct {
	deriver     KeyDeriver
	phraseCodec PhraseCodec
	aeadManager AEADManager

	// rewrapLocks serializes Rewrap per (survey, path) so two simultaneous
	// passphrase changes cannot interleave and corrupt the stored wrap.
	mu          sync.Mutex
	rewrapLocks map[rewrapKey]*sync.Mutex
}

type rewrapKey struct {
	surveyID uuid.UUID
	path     keysDomain.UnlockPath
}

// NewEnvelopeManager creates an EnvelopeManagerService with its dependencies.
func NewEnvelopeManager(
	deriver KeyDeriver,
	phraseCodec PhraseCodec,
	aeadManager AEADManager,
) *EnvelopeManagerService {
	return &EnvelopeManagerService{
		deriver:     deriver,
		phraseCodec: phraseCodec,
		aeadManager: aeadManager,
		rewrapLocks: make(map[rewrapKey]*sync.Mutex),
	}
}

// Provision generates a fresh 256-bit DEK, wraps it under the passphrase and
// under a freshly generated recovery phrase, verifies both wraps
// decrypt-and-compare to the identical DEK, and returns the record plus the
// one-time plaintext recovery phrase and raw hex DEK.
//
// Until the caller persists the returned record and the user acknowledges the
// one-time display, nothing observable has happened: Provision touches no
// shared state, so an abandoned call has no side effects.
func (m *EnvelopeManagerService) Provision(
	ctx context.Context,
	surveyID uuid.UUID,
	passphrase string,
	alg keysDomain.Algorithm,
) (ProvisionResult, error) {
	// Generate the survey DEK
	dek := make([]byte, keysDomain.KeySize)
	if _, err := rand.Read(dek); err != nil {
		return ProvisionResult{}, fmt.Errorf("failed to generate DEK: %w", err)
	}
	defer keysDomain.Zero(dek)

	return m.WrapExisting(ctx, surveyID, dek, passphrase, alg)
}

// WrapExisting wraps a caller-supplied DEK under both unlock paths with fresh
// salts and verifies both wraps unwrap to the identical DEK. The DEK is not
// retained; callers own its zeroization.
func (m *EnvelopeManagerService) WrapExisting(
	ctx context.Context,
	surveyID uuid.UUID,
	dek []byte,
	passphrase string,
	alg keysDomain.Algorithm,
) (ProvisionResult, error) {
	if len(dek) != keysDomain.KeySize {
		return ProvisionResult{}, keysDomain.ErrInvalidKeySize
	}

	// Generate the recovery phrase and its canonical seed
	phrase, seed, err := m.phraseCodec.Generate()
	if err != nil {
		return ProvisionResult{}, err
	}
	defer keysDomain.Zero(seed)

	record := keysDomain.SurveyKeyRecord{
		SurveyID:      surveyID,
		FormatVersion: keysDomain.FormatDualWrap,
		Algorithm:     alg,
		RecoveryHint:  m.phraseCodec.Hint(phrase),
		CreatedAt:     time.Now().UTC(),
	}

	if err := m.wrapPath(ctx, &record, keysDomain.PathPassword, []byte(passphrase), dek); err != nil {
		return ProvisionResult{}, err
	}
	if err := m.wrapPath(ctx, &record, keysDomain.PathRecovery, seed, dek); err != nil {
		return ProvisionResult{}, err
	}

	// Verify both paths unwrap to the identical DEK before the record is
	// considered valid. Persisting a record that fails this check would
	// silently lock the user out of one recovery path.
	if err := m.verifyWrap(ctx, &record, keysDomain.PasswordSecret(passphrase), dek); err != nil {
		return ProvisionResult{}, err
	}
	if err := m.verifyWrap(ctx, &record, keysDomain.RecoverySecret(seed), dek); err != nil {
		return ProvisionResult{}, err
	}

	// The deferred Zero wipes dek after the hex copy is built; the hex string
	// is the only survivor and belongs to the caller for one-time display.
	return ProvisionResult{
		Record:         record,
		RecoveryPhrase: phrase,
		RawDekHex:      hex.EncodeToString(dek),
	}, nil
}

// Unwrap recovers the plaintext DEK using one unlock path.
//
// The KEK is derived for the path's salt, then the corresponding wrapped DEK
// is authenticated-decrypted. Authentication-tag failure is the only signal
// of a wrong secret, and every failure mode past structural validation
// (wrong passphrase, wrong phrase, corrupted record) collapses into
// ErrInvalidSecret so the caller learns nothing about why.
func (m *EnvelopeManagerService) Unwrap(
	ctx context.Context,
	record *keysDomain.SurveyKeyRecord,
	secret keysDomain.UnlockSecret,
) ([]byte, error) {
	wrapped, salt := record.Wrapped(secret.Path)
	if wrapped.IsZero() {
		return nil, keysDomain.ErrInvalidSecret
	}

	kek, err := m.deriver.Derive(ctx, secret.Secret, salt)
	if err != nil {
		// Malformed salt means a corrupted record; indistinguishable from a
		// wrong secret by design. Context cancellation propagates as itself.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, keysDomain.ErrInvalidSecret
	}
	defer keysDomain.Zero(kek)

	aead, err := m.aeadManager.CreateCipher(kek, record.Algorithm)
	if err != nil {
		return nil, keysDomain.ErrInvalidSecret
	}

	dek, err := aead.Decrypt(wrapped.Ciphertext, wrapped.Nonce, nil)
	if err != nil {
		return nil, keysDomain.ErrInvalidSecret
	}

	return dek, nil
}

// Rewrap replaces one path's wrapped DEK after verifying the old secret.
//
// The DEK recovered via oldSecret is wrapped under a KEK derived from
// newSecret with a fresh salt; only that path's wrap and salt are replaced.
// A per-(survey, path) mutex serializes concurrent rewraps. The input record
// is not mutated; the updated record is returned for persistence.
func (m *EnvelopeManagerService) Rewrap(
	ctx context.Context,
	record *keysDomain.SurveyKeyRecord,
	path keysDomain.UnlockPath,
	oldSecret keysDomain.UnlockSecret,
	newSecret keysDomain.UnlockSecret,
) (keysDomain.SurveyKeyRecord, error) {
	lock := m.rewrapLock(record.SurveyID, path)
	lock.Lock()
	defer lock.Unlock()

	dek, err := m.Unwrap(ctx, record, oldSecret)
	if err != nil {
		return keysDomain.SurveyKeyRecord{}, err
	}
	defer keysDomain.Zero(dek)

	updated := *record
	if err := m.wrapPath(ctx, &updated, path, newSecret.Secret, dek); err != nil {
		return keysDomain.SurveyKeyRecord{}, err
	}
	updated.RewrappedAt = time.Now().UTC()

	// The replaced wrap must still unwrap to the same DEK.
	verifySecret := keysDomain.UnlockSecret{Path: path, Secret: newSecret.Secret}
	if err := m.verifyWrap(ctx, &updated, verifySecret, dek); err != nil {
		return keysDomain.SurveyKeyRecord{}, err
	}

	return updated, nil
}

// wrapPath derives a KEK from the secret with a fresh salt and stores
// the wrapped DEK on the record for the given path.
func (m *EnvelopeManagerService) wrapPath(
	ctx context.Context,
	record *keysDomain.SurveyKeyRecord,
	path keysDomain.UnlockPath,
	secret []byte,
	dek []byte,
) error {
	salt := make([]byte, keysDomain.SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("failed to generate KDF salt: %w", err)
	}

	kek, err := m.deriver.Derive(ctx, secret, salt)
	if err != nil {
		return err
	}
	defer keysDomain.Zero(kek)

	aead, err := m.aeadManager.CreateCipher(kek, record.Algorithm)
	if err != nil {
		return err
	}

	ciphertext, nonce, err := aead.Encrypt(dek, nil)
	if err != nil {
		return fmt.Errorf("failed to wrap DEK: %w", err)
	}

	record.SetWrapped(path, keysDomain.WrappedKey{Ciphertext: ciphertext, Nonce: nonce}, salt)
	return nil
}

// verifyWrap unwraps the record via the given secret and compares the result
// against the expected DEK in constant time.
func (m *EnvelopeManagerService) verifyWrap(
	ctx context.Context,
	record *keysDomain.SurveyKeyRecord,
	secret keysDomain.UnlockSecret,
	dek []byte,
) error {
	got, err := m.Unwrap(ctx, record, secret)
	if err != nil {
		return keysDomain.ErrDekMismatch
	}
	defer keysDomain.Zero(got)

	if subtle.ConstantTimeCompare(got, dek) != 1 {
		return keysDomain.ErrDekMismatch
	}
	return nil
}

// rewrapLock returns the mutex for a (survey, path) pair, creating it on
// first use.
func (m *EnvelopeManagerService) rewrapLock(surveyID uuid.UUID, path keysDomain.UnlockPath) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := rewrapKey{surveyID: surveyID, path: path}
	lock, ok := m.rewrapLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		m.rewrapLocks[key] = lock
	}
	return lock
}
