// Package repository provides data persistence implementations for unlock audit events.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/pacharanero/checktick/internal/audit/domain"
	"github.com/pacharanero/checktick/internal/database"
	apperrors "github.com/pacharanero/checktick/internal/errors"
)

// PostgreSQLUnlockEventRepository implements UnlockEvent persistence for PostgreSQL.
// Uses native UUID types with transaction support via database.GetTx().
type PostgreSQLUnlockEventRepository struct {
	db *sql.DB
}

// NewPostgreSQLUnlockEventRepository creates a new PostgreSQLUnlockEventRepository.
func NewPostgreSQLUnlockEventRepository(db *sql.DB) *PostgreSQLUnlockEventRepository {
	return &PostgreSQLUnlockEventRepository{
		db: db,
	}
}

// Create inserts a new unlock event.
func (p *PostgreSQLUnlockEventRepository) Create(ctx context.Context, event *auditDomain.UnlockEvent) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO unlock_audit_events (id, user_id, survey_id, path, success, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := querier.ExecContext(
		ctx,
		query,
		event.ID,
		event.UserID,
		event.SurveyID,
		event.Path,
		event.Success,
		event.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create unlock event")
	}

	return nil
}

// List retrieves unlock events for a survey ordered by ID descending (newest
// first, since UUIDv7 identifiers are time-ordered) with pagination. Returns
// an empty slice if no events are found.
func (p *PostgreSQLUnlockEventRepository) List(
	ctx context.Context,
	surveyID uuid.UUID,
	offset, limit int,
) ([]*auditDomain.UnlockEvent, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, user_id, survey_id, path, success, created_at
			  FROM unlock_audit_events
			  WHERE survey_id = $1
			  ORDER BY id DESC
			  LIMIT $2 OFFSET $3`

	rows, err := querier.QueryContext(ctx, query, surveyID, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list unlock events")
	}
	defer func() {
		_ = rows.Close()
	}()

	events := make([]*auditDomain.UnlockEvent, 0)
	for rows.Next() {
		var event auditDomain.UnlockEvent

		err := rows.Scan(
			&event.ID,
			&event.UserID,
			&event.SurveyID,
			&event.Path,
			&event.Success,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan unlock event")
		}

		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate unlock events")
	}

	return events, nil
}

// DeleteBefore removes events created before the cutoff and returns the number
// of rows deleted. Used by the retention command.
func (p *PostgreSQLUnlockEventRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM unlock_audit_events WHERE created_at < $1`

	result, err := querier.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete unlock events")
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count deleted unlock events")
	}

	return deleted, nil
}
