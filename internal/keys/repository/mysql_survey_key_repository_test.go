package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	keysDomain "github.com/pacharanero/checktick/internal/keys/domain"
)

func mustBinary(t *testing.T, id uuid.UUID) []byte {
	t.Helper()
	b, err := id.MarshalBinary()
	require.NoError(t, err)
	return b
}

func TestMySQLSurveyKeyRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	repo := NewMySQLSurveyKeyRepository(db)
	record := testRecord()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO survey_key_records`)).
		WithArgs(
			mustBinary(t, record.SurveyID),
			string(record.FormatVersion),
			string(record.Algorithm),
			record.KdfSaltPassword,
			record.KdfSaltRecovery,
			record.WrappedDekPassword.Ciphertext,
			record.WrappedDekPassword.Nonce,
			record.WrappedDekRecovery.Ciphertext,
			record.WrappedDekRecovery.Nonce,
			record.RecoveryHint,
			record.LegacyKeyHash,
			record.CreatedAt,
			nil,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Create(context.Background(), record)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLSurveyKeyRepository_Create_Duplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	repo := NewMySQLSurveyKeyRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO survey_key_records`)).
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry for key 'PRIMARY'"))

	err = repo.Create(context.Background(), testRecord())
	assert.ErrorIs(t, err, keysDomain.ErrKeyRecordExists)
}

func TestMySQLSurveyKeyRepository_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	repo := NewMySQLSurveyKeyRepository(db)
	record := testRecord()
	record.RewrappedAt = time.Now().UTC()

	columns := []string{
		"survey_id", "format_version", "algorithm", "kdf_salt_password", "kdf_salt_recovery",
		"wrapped_dek_password", "wrapped_dek_password_nonce",
		"wrapped_dek_recovery", "wrapped_dek_recovery_nonce",
		"recovery_hint", "legacy_key_hash", "created_at", "rewrapped_at",
	}

	rows := sqlmock.NewRows(columns).AddRow(
		mustBinary(t, record.SurveyID),
		string(record.FormatVersion),
		string(record.Algorithm),
		record.KdfSaltPassword,
		record.KdfSaltRecovery,
		record.WrappedDekPassword.Ciphertext,
		record.WrappedDekPassword.Nonce,
		record.WrappedDekRecovery.Ciphertext,
		record.WrappedDekRecovery.Nonce,
		record.RecoveryHint,
		record.LegacyKeyHash,
		record.CreatedAt,
		record.RewrappedAt,
	)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT survey_id, format_version, algorithm`)).
		WithArgs(mustBinary(t, record.SurveyID)).
		WillReturnRows(rows)

	got, err := repo.Get(context.Background(), record.SurveyID)
	require.NoError(t, err)
	assert.Equal(t, record.SurveyID, got.SurveyID)
	assert.Equal(t, record.WrappedDekPassword, got.WrappedDekPassword)
	assert.False(t, got.RewrappedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLSurveyKeyRepository_Update_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	repo := NewMySQLSurveyKeyRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE survey_key_records`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.Update(context.Background(), testRecord())
	assert.ErrorIs(t, err, keysDomain.ErrKeyRecordNotFound)
}
