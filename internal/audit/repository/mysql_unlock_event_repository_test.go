package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/pacharanero/checktick/internal/audit/domain"
)

func mustBinary(t *testing.T, id uuid.UUID) []byte {
	t.Helper()
	b, err := id.MarshalBinary()
	require.NoError(t, err)
	return b
}

func TestMySQLUnlockEventRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	repo := NewMySQLUnlockEventRepository(db)
	event := &auditDomain.UnlockEvent{
		ID:        uuid.Must(uuid.NewV7()),
		UserID:    uuid.New(),
		SurveyID:  uuid.New(),
		Path:      "password",
		Success:   false,
		CreatedAt: time.Now().UTC(),
	}

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO unlock_audit_events`)).
		WithArgs(
			mustBinary(t, event.ID),
			mustBinary(t, event.UserID),
			mustBinary(t, event.SurveyID),
			event.Path,
			event.Success,
			event.CreatedAt,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Create(context.Background(), event)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLUnlockEventRepository_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	repo := NewMySQLUnlockEventRepository(db)
	surveyID := uuid.New()
	eventID := uuid.Must(uuid.NewV7())
	userID := uuid.New()
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "user_id", "survey_id", "path", "success", "created_at"}).
		AddRow(mustBinary(t, eventID), mustBinary(t, userID), mustBinary(t, surveyID), "password", true, now)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, user_id, survey_id, path, success, created_at`)).
		WithArgs(mustBinary(t, surveyID), 10, 0).
		WillReturnRows(rows)

	events, err := repo.List(context.Background(), surveyID, 0, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, eventID, events[0].ID)
	assert.Equal(t, userID, events[0].UserID)
	assert.Equal(t, surveyID, events[0].SurveyID)
	assert.True(t, events[0].Success)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLUnlockEventRepository_DeleteBefore(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	repo := NewMySQLUnlockEventRepository(db)
	cutoff := time.Now().UTC().Add(-90 * 24 * time.Hour)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM unlock_audit_events WHERE created_at < ?`)).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 7))

	deleted, err := repo.DeleteBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(7), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
