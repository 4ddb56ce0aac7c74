package service

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/allisson/go-pwdhash"

	keysDomain "github.com/pacharanero/checktick/internal/keys/domain"
)

// LegacyMigratorService implements LegacyMigrator.
//
// The deprecated format stored no wrapped keys at all: the raw survey key was
// shown to the owner exactly once and only an Argon2id digest was kept for
// verification. Upgrading such a survey requires the owner to re-enter that
// raw key; the system cannot invent it, which is why migration is an explicit
// user action and never a background job. A legacy survey whose raw key is
// lost is permanently unrecoverable.
type LegacyMigratorService struct {
	envelope EnvelopeManager
	hasher   *pwdhash.PasswordHasher
}

// NewLegacyMigrator creates a LegacyMigratorService.
func NewLegacyMigrator(envelope EnvelopeManager) (*LegacyMigratorService, error) {
	hasher, err := pwdhash.New(pwdhash.WithPolicy(pwdhash.PolicyModerate))
	if err != nil {
		return nil, fmt.Errorf("failed to create password hasher: %w", err)
	}

	return &LegacyMigratorService{
		envelope: envelope,
		hasher:   hasher,
	}, nil
}

// HashRawKey produces the verification digest stored on legacy records.
// Exposed so fixtures and imports of pre-split surveys can build records the
// migrator will accept.
func (l *LegacyMigratorService) HashRawKey(rawKey []byte) (string, error) {
	digest, err := l.hasher.Hash(rawKey)
	if err != nil {
		return "", fmt.Errorf("failed to hash legacy key: %w", err)
	}
	return digest, nil
}

// Migrate upgrades a legacy_raw record to the dual-wrap format.
//
// The re-entered raw key is the DEK: it already encrypted every field value
// the survey holds, so wrapping it (rather than generating a new key) leaves
// all existing ciphertexts readable without re-encryption. The key is
// verified against the stored digest when one exists, then wrapped under the
// new passphrase and a freshly generated recovery phrase exactly as in
// Provision. Only the returned record's wraps differ from a provisioned one;
// CreatedAt is preserved for audit.
func (l *LegacyMigratorService) Migrate(
	ctx context.Context,
	record *keysDomain.SurveyKeyRecord,
	rawKeyHex string,
	newPassphrase string,
) (ProvisionResult, error) {
	if !record.IsLegacy() {
		return ProvisionResult{}, keysDomain.ErrNotLegacyRecord
	}

	dek, err := hex.DecodeString(rawKeyHex)
	if err != nil || len(dek) != keysDomain.KeySize {
		return ProvisionResult{}, keysDomain.ErrInvalidSecret
	}
	defer keysDomain.Zero(dek)

	// Verify against the stored digest when the legacy record carries one.
	if record.LegacyKeyHash != "" {
		ok, err := l.hasher.Verify(dek, record.LegacyKeyHash)
		if err != nil || !ok {
			return ProvisionResult{}, keysDomain.ErrInvalidSecret
		}
	}

	result, err := l.envelope.WrapExisting(ctx, record.SurveyID, dek, newPassphrase, record.Algorithm)
	if err != nil {
		return ProvisionResult{}, err
	}

	// Field ciphertexts stay readable: the DEK value did not change, only its
	// protection. Original creation time is preserved; the upgrade itself is
	// recorded as a rewrap.
	result.Record.CreatedAt = record.CreatedAt
	result.Record.RewrappedAt = time.Now().UTC()
	result.Record.LegacyKeyHash = ""

	return result, nil
}
