// Package usecase orchestrates survey key lifecycle operations: provisioning,
// unlock sessions, rewrapping, and legacy migration.
package usecase

import (
	"context"

	"github.com/google/uuid"

	keysDomain "github.com/pacharanero/checktick/internal/keys/domain"
)

// SurveyKeyRepository defines persistence operations for survey key records.
// Implementations must support transaction-aware operations via context propagation.
type SurveyKeyRepository interface {
	// Create stores a new key record. Returns ErrKeyRecordExists when the
	// survey already has one.
	Create(ctx context.Context, record *keysDomain.SurveyKeyRecord) error

	// Get retrieves the key record for a survey. Returns ErrKeyRecordNotFound
	// if not found.
	Get(ctx context.Context, surveyID uuid.UUID) (*keysDomain.SurveyKeyRecord, error)

	// Update replaces the stored record after a rewrap or migration.
	Update(ctx context.Context, record *keysDomain.SurveyKeyRecord) error
}

// ProvisionOutput carries the one-time secrets produced when a survey key is
// created or migrated. The recovery phrase and raw DEK are displayed once and
// never persisted; only the hint survives.
type ProvisionOutput struct {
	RecoveryPhrase string
	RecoveryHint   string
	RawDekHex      string
}

// RewrapOutput carries the result of replacing one wrap path. RecoveryPhrase
// is set only when the recovery path was rewrapped, since the new phrase is
// generated server-side and shown exactly once.
type RewrapOutput struct {
	RecoveryPhrase string
	RecoveryHint   string
}

// KeyUseCase defines the survey key lifecycle operations.
//
// Unlock failure semantics are deliberately coarse: any wrong or corrupted
// secret surfaces as ErrInvalidSecret with no further detail, while a
// structurally malformed recovery phrase surfaces as
// ErrMalformedRecoveryPhrase before any derivation work happens.
type KeyUseCase interface {
	// Provision creates the key record for a survey and returns the one-time
	// recovery phrase and raw DEK. Returns ErrKeyRecordExists if the survey
	// already has a record.
	Provision(ctx context.Context, surveyID uuid.UUID, passphrase string) (*ProvisionOutput, error)

	// Unlock verifies the secret, caches the DEK in the caller's session, and
	// records an audit event. Returns ErrLegacyMigrationRequired for
	// un-migrated records.
	Unlock(ctx context.Context, userID, surveyID uuid.UUID, path keysDomain.UnlockPath, secret string) error

	// Lock discards the caller's unlock session for the survey. Locking an
	// already-locked survey is a no-op.
	Lock(ctx context.Context, userID, surveyID uuid.UUID) error

	// Rewrap replaces one wrap path after verifying a current secret. The
	// current secret may be presented via either path, which is how a
	// forgotten passphrase is replaced using the recovery phrase. When the
	// recovery path is the target, a fresh phrase is generated and returned;
	// newSecret is ignored.
	Rewrap(
		ctx context.Context,
		userID, surveyID uuid.UUID,
		path keysDomain.UnlockPath,
		currentPath keysDomain.UnlockPath,
		currentSecret string,
		newSecret string,
	) (*RewrapOutput, error)

	// MigrateLegacy upgrades a legacy_raw record to dual_wrap using the
	// re-entered raw key. Returns the new one-time recovery phrase.
	MigrateLegacy(ctx context.Context, surveyID uuid.UUID, rawKeyHex, newPassphrase string) (*ProvisionOutput, error)

	// GetHint returns the stored non-secret recovery phrase hint.
	GetHint(ctx context.Context, surveyID uuid.UUID) (string, error)
}
