// Package repository implements survey key record persistence for PostgreSQL and MySQL.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pacharanero/checktick/internal/database"
	apperrors "github.com/pacharanero/checktick/internal/errors"
	keysDomain "github.com/pacharanero/checktick/internal/keys/domain"
)

// PostgreSQLSurveyKeyRepository implements SurveyKeyRecord persistence for
// PostgreSQL. One row per survey; the survey ID is the primary key.
type PostgreSQLSurveyKeyRepository struct {
	db *sql.DB
}

// NewPostgreSQLSurveyKeyRepository creates a new PostgreSQLSurveyKeyRepository.
func NewPostgreSQLSurveyKeyRepository(db *sql.DB) *PostgreSQLSurveyKeyRepository {
	return &PostgreSQLSurveyKeyRepository{
		db: db,
	}
}

// Create inserts a new survey key record. Returns ErrKeyRecordExists when the
// survey already has one; a record is never silently replaced.
func (p *PostgreSQLSurveyKeyRepository) Create(ctx context.Context, record *keysDomain.SurveyKeyRecord) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO survey_key_records
			  (survey_id, format_version, algorithm, kdf_salt_password, kdf_salt_recovery,
			   wrapped_dek_password, wrapped_dek_password_nonce,
			   wrapped_dek_recovery, wrapped_dek_recovery_nonce,
			   recovery_hint, legacy_key_hash, created_at, rewrapped_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := querier.ExecContext(
		ctx,
		query,
		record.SurveyID,
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
		if isPostgreSQLUniqueViolation(err) {
			return keysDomain.ErrKeyRecordExists
		}
		return apperrors.Wrap(err, "failed to create survey key record")
	}
	return nil
}

// Get retrieves the key record for a survey. Returns ErrKeyRecordNotFound
// when the survey has no record.
func (p *PostgreSQLSurveyKeyRepository) Get(ctx context.Context, surveyID uuid.UUID) (*keysDomain.SurveyKeyRecord, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT survey_id, format_version, algorithm, kdf_salt_password, kdf_salt_recovery,
			  wrapped_dek_password, wrapped_dek_password_nonce,
			  wrapped_dek_recovery, wrapped_dek_recovery_nonce,
			  recovery_hint, legacy_key_hash, created_at, rewrapped_at
			  FROM survey_key_records
			  WHERE survey_id = $1`

	var record keysDomain.SurveyKeyRecord
	var formatVersion, algorithm string
	var rewrappedAt sql.NullTime

	err := querier.QueryRowContext(ctx, query, surveyID).Scan(
		&record.SurveyID,
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

	record.FormatVersion = keysDomain.FormatVersion(formatVersion)
	record.Algorithm = keysDomain.Algorithm(algorithm)
	if rewrappedAt.Valid {
		record.RewrappedAt = rewrappedAt.Time
	}

	return &record, nil
}

// Update replaces the stored wraps and metadata for a survey after a rewrap
// or a legacy migration. Returns ErrKeyRecordNotFound when no row matches.
func (p *PostgreSQLSurveyKeyRepository) Update(ctx context.Context, record *keysDomain.SurveyKeyRecord) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE survey_key_records
			  SET format_version = $1, algorithm = $2,
			      kdf_salt_password = $3, kdf_salt_recovery = $4,
			      wrapped_dek_password = $5, wrapped_dek_password_nonce = $6,
			      wrapped_dek_recovery = $7, wrapped_dek_recovery_nonce = $8,
			      recovery_hint = $9, legacy_key_hash = $10, rewrapped_at = $11
			  WHERE survey_id = $12`

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
		record.SurveyID,
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

// nullableTime maps the zero time to database NULL.
func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

// isPostgreSQLUniqueViolation checks if the error is a PostgreSQL unique constraint violation
func isPostgreSQLUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "duplicate key") || strings.Contains(errMsg, "unique constraint")
}
