package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/pacharanero/checktick/internal/audit/domain"
	keysDomain "github.com/pacharanero/checktick/internal/keys/domain"
)

// unlockRecorder persists unlock events and mirrors them to the structured
// log. Persistence failures are logged and swallowed: the unlock outcome has
// already been decided by the time recording happens, and the trail must not
// be able to deny access.
type unlockRecorder struct {
	repo   UnlockEventRepository
	logger *slog.Logger
}

// NewUnlockRecorder creates a Recorder backed by the repository and logger.
// A nil repository yields a log-only recorder.
func NewUnlockRecorder(repo UnlockEventRepository, logger *slog.Logger) Recorder {
	return &unlockRecorder{
		repo:   repo,
		logger: logger,
	}
}

// Record emits exactly one event per unlock attempt. The event carries
// identities, the path tried, and the outcome; no secret material.
func (r *unlockRecorder) Record(
	ctx context.Context,
	userID, surveyID uuid.UUID,
	path keysDomain.UnlockPath,
	success bool,
) {
	event := &auditDomain.UnlockEvent{
		ID:        uuid.Must(uuid.NewV7()),
		UserID:    userID,
		SurveyID:  surveyID,
		Path:      string(path),
		Success:   success,
		CreatedAt: time.Now().UTC(),
	}

	r.logger.InfoContext(ctx, "unlock attempt",
		"user_id", event.UserID,
		"survey_id", event.SurveyID,
		"path", event.Path,
		"success", event.Success,
	)

	if r.repo == nil {
		return
	}

	if err := r.repo.Create(ctx, event); err != nil {
		r.logger.ErrorContext(ctx, "failed to persist unlock event",
			"survey_id", event.SurveyID,
			"error", err,
		)
	}
}

// unlockAuditUseCase implements UnlockAuditUseCase on top of the repository.
type unlockAuditUseCase struct {
	repo UnlockEventRepository
}

// NewUnlockAuditUseCase creates an UnlockAuditUseCase.
func NewUnlockAuditUseCase(repo UnlockEventRepository) UnlockAuditUseCase {
	return &unlockAuditUseCase{repo: repo}
}

func (u *unlockAuditUseCase) List(
	ctx context.Context,
	surveyID uuid.UUID,
	offset, limit int,
) ([]*auditDomain.UnlockEvent, error) {
	return u.repo.List(ctx, surveyID, offset, limit)
}

func (u *unlockAuditUseCase) DeleteOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	return u.repo.DeleteBefore(ctx, cutoff)
}
