package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	keysDomain "github.com/pacharanero/checktick/internal/keys/domain"
	"github.com/pacharanero/checktick/internal/keys/service"
	"github.com/pacharanero/checktick/internal/metrics"
)

// keyUseCaseWithMetrics decorates KeyUseCase with metrics instrumentation.
type keyUseCaseWithMetrics struct {
	next    KeyUseCase
	metrics metrics.BusinessMetrics
}

// NewKeyUseCaseWithMetrics wraps a KeyUseCase with metrics recording.
func NewKeyUseCaseWithMetrics(useCase KeyUseCase, m metrics.BusinessMetrics) KeyUseCase {
	return &keyUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (k *keyUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	k.metrics.RecordOperation(ctx, "keys", operation, status)
	k.metrics.RecordDuration(ctx, "keys", operation, time.Since(start), status)
}

// Provision records metrics for key provisioning operations.
func (k *keyUseCaseWithMetrics) Provision(
	ctx context.Context,
	surveyID uuid.UUID,
	passphrase string,
) (*ProvisionOutput, error) {
	start := time.Now()
	output, err := k.next.Provision(ctx, surveyID, passphrase)
	k.record(ctx, "provision", start, err)
	return output, err
}

// Unlock records metrics for unlock operations.
func (k *keyUseCaseWithMetrics) Unlock(
	ctx context.Context,
	userID, surveyID uuid.UUID,
	path keysDomain.UnlockPath,
	secret string,
) error {
	start := time.Now()
	err := k.next.Unlock(ctx, userID, surveyID, path, secret)
	k.record(ctx, "unlock", start, err)
	return err
}

// Lock records metrics for lock operations.
func (k *keyUseCaseWithMetrics) Lock(ctx context.Context, userID, surveyID uuid.UUID) error {
	start := time.Now()
	err := k.next.Lock(ctx, userID, surveyID)
	k.record(ctx, "lock", start, err)
	return err
}

// Rewrap records metrics for rewrap operations.
func (k *keyUseCaseWithMetrics) Rewrap(
	ctx context.Context,
	userID, surveyID uuid.UUID,
	path keysDomain.UnlockPath,
	currentPath keysDomain.UnlockPath,
	currentSecret string,
	newSecret string,
) (*RewrapOutput, error) {
	start := time.Now()
	output, err := k.next.Rewrap(ctx, userID, surveyID, path, currentPath, currentSecret, newSecret)
	k.record(ctx, "rewrap", start, err)
	return output, err
}

// MigrateLegacy records metrics for legacy migration operations.
func (k *keyUseCaseWithMetrics) MigrateLegacy(
	ctx context.Context,
	surveyID uuid.UUID,
	rawKeyHex, newPassphrase string,
) (*ProvisionOutput, error) {
	start := time.Now()
	output, err := k.next.MigrateLegacy(ctx, surveyID, rawKeyHex, newPassphrase)
	k.record(ctx, "migrate_legacy", start, err)
	return output, err
}

// GetHint records metrics for hint retrieval operations.
func (k *keyUseCaseWithMetrics) GetHint(ctx context.Context, surveyID uuid.UUID) (string, error) {
	start := time.Now()
	hint, err := k.next.GetHint(ctx, surveyID)
	k.record(ctx, "get_hint", start, err)
	return hint, err
}

// deriverWithMetrics decorates a KeyDeriver with a duration histogram, making
// KDF cost visible so parameter tuning is informed by production latency.
type deriverWithMetrics struct {
	next    service.KeyDeriver
	metrics metrics.BusinessMetrics
}

// NewKeyDeriverWithMetrics wraps a KeyDeriver with metrics recording.
func NewKeyDeriverWithMetrics(deriver service.KeyDeriver, m metrics.BusinessMetrics) service.KeyDeriver {
	return &deriverWithMetrics{
		next:    deriver,
		metrics: m,
	}
}

// Derive records the derivation duration alongside the result.
func (d *deriverWithMetrics) Derive(ctx context.Context, secret, salt []byte) ([]byte, error) {
	start := time.Now()
	kek, err := d.next.Derive(ctx, secret, salt)

	status := "success"
	if err != nil {
		status = "error"
	}
	d.metrics.RecordDuration(ctx, "keys", "kdf_derive", time.Since(start), status)

	return kek, err
}
