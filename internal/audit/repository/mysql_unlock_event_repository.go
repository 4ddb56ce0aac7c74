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

// MySQLUnlockEventRepository implements UnlockEvent persistence for MySQL.
// UUIDs are stored as BINARY(16) and marshaled at the boundary.
type MySQLUnlockEventRepository struct {
	db *sql.DB
}

// NewMySQLUnlockEventRepository creates a new MySQLUnlockEventRepository.
func NewMySQLUnlockEventRepository(db *sql.DB) *MySQLUnlockEventRepository {
	return &MySQLUnlockEventRepository{
		db: db,
	}
}

// Create inserts a new unlock event.
func (m *MySQLUnlockEventRepository) Create(ctx context.Context, event *auditDomain.UnlockEvent) error {
	querier := database.GetTx(ctx, m.db)

	id, err := event.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal unlock event id")
	}

	userID, err := event.UserID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal unlock event user_id")
	}

	surveyID, err := event.SurveyID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal unlock event survey_id")
	}

	query := `INSERT INTO unlock_audit_events (id, user_id, survey_id, path, success, created_at)
			  VALUES (?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		userID,
		surveyID,
		event.Path,
		event.Success,
		event.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create unlock event")
	}

	return nil
}

// List retrieves unlock events for a survey ordered by created_at descending
// (newest first) with pagination. Returns an empty slice if no events are found.
func (m *MySQLUnlockEventRepository) List(
	ctx context.Context,
	surveyID uuid.UUID,
	offset, limit int,
) ([]*auditDomain.UnlockEvent, error) {
	querier := database.GetTx(ctx, m.db)

	surveyIDBinary, err := surveyID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal survey_id")
	}

	query := `SELECT id, user_id, survey_id, path, success, created_at
			  FROM unlock_audit_events
			  WHERE survey_id = ?
			  ORDER BY created_at DESC
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, surveyIDBinary, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list unlock events")
	}
	defer func() {
		_ = rows.Close()
	}()

	events := make([]*auditDomain.UnlockEvent, 0)
	for rows.Next() {
		var event auditDomain.UnlockEvent
		var idBinary, userIDBinary, surveyIDBinary []byte

		err := rows.Scan(
			&idBinary,
			&userIDBinary,
			&surveyIDBinary,
			&event.Path,
			&event.Success,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan unlock event")
		}

		if err := event.ID.UnmarshalBinary(idBinary); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal unlock event id")
		}

		if err := event.UserID.UnmarshalBinary(userIDBinary); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal unlock event user_id")
		}

		if err := event.SurveyID.UnmarshalBinary(surveyIDBinary); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal unlock event survey_id")
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
func (m *MySQLUnlockEventRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM unlock_audit_events WHERE created_at < ?`

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
