package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	auditUsecase "github.com/pacharanero/checktick/internal/audit/usecase"
	apperrors "github.com/pacharanero/checktick/internal/errors"
	keysDomain "github.com/pacharanero/checktick/internal/keys/domain"
	"github.com/pacharanero/checktick/internal/keys/service"
	"github.com/pacharanero/checktick/internal/session"
)

// keyUseCase implements KeyUseCase.
type keyUseCase struct {
	repo        SurveyKeyRepository
	envelope    service.EnvelopeManager
	phraseCodec service.PhraseCodec
	migrator    service.LegacyMigrator
	sessions    session.Store
	recorder    auditUsecase.Recorder
	algorithm   keysDomain.Algorithm
	sessionTTL  time.Duration
}

// NewKeyUseCase creates a KeyUseCase with the provided dependencies. The
// algorithm applies to newly provisioned records; existing records keep the
// algorithm they were created with.
func NewKeyUseCase(
	repo SurveyKeyRepository,
	envelope service.EnvelopeManager,
	phraseCodec service.PhraseCodec,
	migrator service.LegacyMigrator,
	sessions session.Store,
	recorder auditUsecase.Recorder,
	algorithm keysDomain.Algorithm,
	sessionTTL time.Duration,
) KeyUseCase {
	return &keyUseCase{
		repo:        repo,
		envelope:    envelope,
		phraseCodec: phraseCodec,
		migrator:    migrator,
		sessions:    sessions,
		recorder:    recorder,
		algorithm:   algorithm,
		sessionTTL:  sessionTTL,
	}
}

// Provision creates the dual-wrap key record for a survey. The recovery
// phrase and raw DEK in the output exist only in this response; the caller
// must display them once and drop them.
func (k *keyUseCase) Provision(
	ctx context.Context,
	surveyID uuid.UUID,
	passphrase string,
) (*ProvisionOutput, error) {
	result, err := k.envelope.Provision(ctx, surveyID, passphrase, k.algorithm)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to provision survey key")
	}

	// The unique constraint on survey_id makes concurrent provisions safe:
	// exactly one insert wins, the rest get ErrKeyRecordExists.
	if err := k.repo.Create(ctx, &result.Record); err != nil {
		return nil, err
	}

	return &ProvisionOutput{
		RecoveryPhrase: result.RecoveryPhrase,
		RecoveryHint:   result.Record.RecoveryHint,
		RawDekHex:      result.RawDekHex,
	}, nil
}

// Unlock verifies the presented secret and caches the DEK for the caller.
// Exactly one audit event is recorded per attempt that reaches the unwrap
// step; structurally malformed phrases never get that far.
func (k *keyUseCase) Unlock(
	ctx context.Context,
	userID, surveyID uuid.UUID,
	path keysDomain.UnlockPath,
	secret string,
) error {
	record, err := k.repo.Get(ctx, surveyID)
	if err != nil {
		return err
	}
	if record.IsLegacy() {
		return keysDomain.ErrLegacyMigrationRequired
	}

	unlockSecret, err := k.secretForPath(path, secret)
	if err != nil {
		return err
	}
	defer unlockSecret.Zero()

	dek, err := k.envelope.Unwrap(ctx, record, unlockSecret)
	if err != nil {
		k.recorder.Record(ctx, userID, surveyID, path, false)
		return err
	}
	defer keysDomain.Zero(dek)

	k.sessions.Put(userID, surveyID, dek, k.sessionTTL)
	k.recorder.Record(ctx, userID, surveyID, path, true)

	return nil
}

// Lock discards the caller's unlock session for the survey.
func (k *keyUseCase) Lock(_ context.Context, userID, surveyID uuid.UUID) error {
	k.sessions.Purge(userID, surveyID)
	return nil
}

// Rewrap replaces one wrap path. The DEK never changes, so existing field
// ciphertexts and live unlock sessions stay valid.
func (k *keyUseCase) Rewrap(
	ctx context.Context,
	userID, surveyID uuid.UUID,
	path keysDomain.UnlockPath,
	currentPath keysDomain.UnlockPath,
	currentSecret string,
	newSecret string,
) (*RewrapOutput, error) {
	record, err := k.repo.Get(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	if record.IsLegacy() {
		return nil, keysDomain.ErrLegacyMigrationRequired
	}

	currentUnlockSecret, err := k.secretForPath(currentPath, currentSecret)
	if err != nil {
		return nil, err
	}
	defer currentUnlockSecret.Zero()

	output := &RewrapOutput{}
	var newUnlockSecret keysDomain.UnlockSecret
	if path == keysDomain.PathRecovery {
		// The recovery phrase is always generated server-side so its entropy
		// is guaranteed; user-chosen phrases are not accepted.
		phrase, seed, err := k.phraseCodec.Generate()
		if err != nil {
			return nil, err
		}
		newUnlockSecret = keysDomain.RecoverySecret(seed)
		output.RecoveryPhrase = phrase
		output.RecoveryHint = k.phraseCodec.Hint(phrase)
	} else {
		newUnlockSecret = keysDomain.PasswordSecret(newSecret)
	}
	defer newUnlockSecret.Zero()

	updated, err := k.envelope.Rewrap(ctx, record, path, currentUnlockSecret, newUnlockSecret)
	if err != nil {
		k.recorder.Record(ctx, userID, surveyID, currentPath, false)
		return nil, err
	}
	k.recorder.Record(ctx, userID, surveyID, currentPath, true)

	if output.RecoveryHint != "" {
		updated.RecoveryHint = output.RecoveryHint
	}

	if err := k.repo.Update(ctx, &updated); err != nil {
		return nil, err
	}

	return output, nil
}

// MigrateLegacy upgrades a legacy_raw record to the dual-wrap format. The
// re-entered raw key becomes the wrapped DEK, so existing ciphertexts remain
// readable without re-encryption.
func (k *keyUseCase) MigrateLegacy(
	ctx context.Context,
	surveyID uuid.UUID,
	rawKeyHex, newPassphrase string,
) (*ProvisionOutput, error) {
	record, err := k.repo.Get(ctx, surveyID)
	if err != nil {
		return nil, err
	}

	result, err := k.migrator.Migrate(ctx, record, rawKeyHex, newPassphrase)
	if err != nil {
		return nil, err
	}

	if err := k.repo.Update(ctx, &result.Record); err != nil {
		return nil, err
	}

	// The raw key is not echoed back: the caller just typed it in.
	return &ProvisionOutput{
		RecoveryPhrase: result.RecoveryPhrase,
		RecoveryHint:   result.Record.RecoveryHint,
	}, nil
}

// GetHint returns the stored recovery phrase hint for a survey.
func (k *keyUseCase) GetHint(ctx context.Context, surveyID uuid.UUID) (string, error) {
	record, err := k.repo.Get(ctx, surveyID)
	if err != nil {
		return "", err
	}
	return record.RecoveryHint, nil
}

// secretForPath builds the UnlockSecret for a path, decoding and validating
// the recovery phrase when needed.
func (k *keyUseCase) secretForPath(path keysDomain.UnlockPath, secret string) (keysDomain.UnlockSecret, error) {
	if path == keysDomain.PathRecovery {
		seed, err := k.phraseCodec.Decode(secret)
		if err != nil {
			return keysDomain.UnlockSecret{}, err
		}
		return keysDomain.RecoverySecret(seed), nil
	}
	return keysDomain.PasswordSecret(secret), nil
}
