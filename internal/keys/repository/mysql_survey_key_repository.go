package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/pacharanero/checktick/internal/database"
	apperrors "github.com/pacharanero/checktick/internal/errors"
	keysDomain "github.com/pacharanero/checktick/internal/keys/domain"
)

// MySQLSurveyKeyRepository implements SurveyKeyRecord persistence for MySQL.
// UUIDs are stored as BINARY(16) and marshaled at the boundary.
type MySQLSurveyKeyRepository struct {
	db *sql.DB
}

// NewMySQLSurveyKeyRepository creates a new MySQLSurveyKeyRepository.
func NewMySQLSurveyKeyRepository(db *sql.DB) *MySQLSurveyKeyRepository {
	return &MySQLSurveyKeyRepository{
		db: db,
	}
}

// Create inserts a new survey key record. Returns ErrKeyRecordExists when the
// survey already has one; a record is never silently replaced.
func (m *MySQLSurveyKeyRepository) Create(ctx context.Context, record *keysDomain.SurveyKeyRecord) error {
	querier := database.GetTx(ctx, m.db)

	surveyID, err := record.SurveyID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal survey_id")
	}

	query := `INSERT INTO survey_key_records
			  (survey_id, format_version, algorithm, kdf_salt_password, kdf_salt_recovery,
			   wrapped_dek_password, wrapped_dek_password_nonce,
			   wrapped_dek_recovery, wrapped_dek_recovery_nonce,
			   recovery_hint, legacy_key_hash, created_at, rewrapped_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		surveyID,
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
		nullableTime(record.RewrappedAt),
	)
	if err != nil {
		if isMySQLUniqueViolation(err) {
			return keysDomain.ErrKeyRecordExists
		}
		return apperrors.Wrap(err, "failed to create survey key record")
	}
	return nil
}

// Get retrieves the key record for a survey. Returns ErrKeyRecordNotFound
// when the survey has no record.
func (m *MySQLSurveyKeyRepository) Get(ctx context.Context, surveyID uuid.UUID) (*keysDomain.SurveyKeyRecord, error) {
	querier := database.GetTx(ctx, m.db)

	surveyIDBinary, err := surveyID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal survey_id")
	}

	query := `SELECT survey_id, format_version, algorithm, kdf_salt_password, kdf_salt_recovery,
			  wrapped_dek_password, wrapped_dek_password_nonce,
			  wrapped_dek_recovery, wrapped_dek_recovery_nonce,
			  recovery_hint, legacy_key_hash, created_at, rewrapped_at
			  FROM survey_key_records
			  WHERE survey_id = ?`

	var record keysDomain.SurveyKeyRecord
	var idBinary []byte
	var formatVersion, algorithm string
	var rewrappedAt sql.NullTime

	err = querier.QueryRowContext(ctx, query, surveyIDBinary).Scan(
		&idBinary,
		&formatVersion,
		&algorithm,
		&record.KdfSaltPassword,
		&record.KdfSaltRecovery,
		&record.WrappedDekPassword.Ciphertext,
		&record.WrappedDekPassword.Nonce,
		&record.WrappedDekRecovery.Ciphertext,
		&record.WrappedDekRecovery.Nonce,
		&record.RecoveryHint,
		&record.LegacyKeyHash,
		&record.CreatedAt,
		&rewrappedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, keysDomain.ErrKeyRecordNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get survey key record")
	}

	if err := record.SurveyID.UnmarshalBinary(idBinary); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal survey_id")
	}

	record.FormatVersion = keysDomain.FormatVersion(formatVersion)
	record.Algorithm = keysDomain.Algorithm(algorithm)
	if rewrappedAt.Valid {
		record.RewrappedAt = rewrappedAt.Time
	}

	return &record, nil
}

// Update replaces the stored wraps and metadata for a survey after a rewrap
// or a legacy migration. Returns ErrKeyRecordNotFound when no row matches.
func (m *MySQLSurveyKeyRepository) Update(ctx context.Context, record *keysDomain.SurveyKeyRecord) error {
	querier := database.GetTx(ctx, m.db)

	surveyID, err := record.SurveyID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal survey_id")
	}

	query := `UPDATE survey_key_records
			  SET format_version = ?, algorithm = ?,
			      kdf_salt_password = ?, kdf_salt_recovery = ?,
			      wrapped_dek_password = ?, wrapped_dek_password_nonce = ?,
			      wrapped_dek_recovery = ?, wrapped_dek_recovery_nonce = ?,
			      recovery_hint = ?, legacy_key_hash = ?, rewrapped_at = ?
			  WHERE survey_id = ?`

	result, err := querier.ExecContext(
		ctx,
		query,
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
		nullableTime(record.RewrappedAt),
		surveyID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update survey key record")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to check survey key record update")
	}
	if affected == 0 {
		return keysDomain.ErrKeyRecordNotFound
	}
	return nil
}

// isMySQLUniqueViolation checks if the error is a MySQL unique constraint violation
func isMySQLUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "duplicate entry") || strings.Contains(errMsg, "error 1062")
}
