// Package usecase defines the unlock audit trail contracts and recorders.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/pacharanero/checktick/internal/audit/domain"
	keysDomain "github.com/pacharanero/checktick/internal/keys/domain"
)

// UnlockEventRepository defines persistence operations for unlock events.
// Implementations must support transaction-aware operations via context propagation.
type UnlockEventRepository interface {
	// Create stores a new unlock event.
	Create(ctx context.Context, event *auditDomain.UnlockEvent) error

	// List retrieves events for a survey, newest first, with pagination.
	List(ctx context.Context, surveyID uuid.UUID, offset, limit int) ([]*auditDomain.UnlockEvent, error)

	// DeleteBefore removes events created before the cutoff, returning the
	// number deleted.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Recorder records unlock attempts. Implementations must never block the
// unlock result: a recorder failure is an observability gap, not an
// authorization failure.
type Recorder interface {
	Record(ctx context.Context, userID, surveyID uuid.UUID, path keysDomain.UnlockPath, success bool)
}

// UnlockAuditUseCase exposes the persisted trail for operators.
type UnlockAuditUseCase interface {
	// List retrieves events for a survey, newest first, with pagination.
	List(ctx context.Context, surveyID uuid.UUID, offset, limit int) ([]*auditDomain.UnlockEvent, error)

	// DeleteOlderThan removes events older than the retention window,
	// returning the number deleted.
	DeleteOlderThan(ctx context.Context, retention time.Duration) (int64, error)
}
