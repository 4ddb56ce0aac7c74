// Package repository implements encrypted field value persistence for PostgreSQL and MySQL.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/pacharanero/checktick/internal/database"
	apperrors "github.com/pacharanero/checktick/internal/errors"
	responsesDomain "github.com/pacharanero/checktick/internal/responses/domain"
)

// PostgreSQLFieldValueRepository implements EncryptedFieldValue persistence
// for PostgreSQL.
type PostgreSQLFieldValueRepository struct {
	db *sql.DB
}

// NewPostgreSQLFieldValueRepository creates a new PostgreSQLFieldValueRepository.
func NewPostgreSQLFieldValueRepository(db *sql.DB) *PostgreSQLFieldValueRepository {
	return &PostgreSQLFieldValueRepository{
		db: db,
	}
}

// Create inserts a new encrypted field value.
func (p *PostgreSQLFieldValueRepository) Create(ctx context.Context, value *responsesDomain.EncryptedFieldValue) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO encrypted_field_values
			  (id, survey_id, response_id, field_id, ciphertext, nonce, associated_data, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := querier.ExecContext(
		ctx,
		query,
		value.ID,
		value.SurveyID,
		value.ResponseID,
		value.FieldID,
		value.Ciphertext,
		value.Nonce,
		value.AssociatedData,
		value.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create encrypted field value")
	}
	return nil
}

// GetByID retrieves an encrypted field value. Returns ErrFieldValueNotFound
// if not found.
func (p *PostgreSQLFieldValueRepository) GetByID(ctx context.Context, id uuid.UUID) (*responsesDomain.EncryptedFieldValue, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, survey_id, response_id, field_id, ciphertext, nonce, associated_data, created_at
			  FROM encrypted_field_values
			  WHERE id = $1`

	var value responsesDomain.EncryptedFieldValue
	err := querier.QueryRowContext(ctx, query, id).Scan(
		&value.ID,
		&value.SurveyID,
		&value.ResponseID,
		&value.FieldID,
		&value.Ciphertext,
		&value.Nonce,
		&value.AssociatedData,
		&value.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, responsesDomain.ErrFieldValueNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get encrypted field value")
	}

	return &value, nil
}

// ListByResponse retrieves all encrypted field values of one response,
// ordered by field ID for stable output.
func (p *PostgreSQLFieldValueRepository) ListByResponse(
	ctx context.Context,
	responseID uuid.UUID,
) ([]*responsesDomain.EncryptedFieldValue, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, survey_id, response_id, field_id, ciphertext, nonce, associated_data, created_at
			  FROM encrypted_field_values
			  WHERE response_id = $1
			  ORDER BY field_id ASC`

	rows, err := querier.QueryContext(ctx, query, responseID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list encrypted field values")
	}
	defer func() {
		_ = rows.Close()
	}()

	values := make([]*responsesDomain.EncryptedFieldValue, 0)
	for rows.Next() {
		var value responsesDomain.EncryptedFieldValue

		err := rows.Scan(
			&value.ID,
			&value.SurveyID,
			&value.ResponseID,
			&value.FieldID,
			&value.Ciphertext,
			&value.Nonce,
			&value.AssociatedData,
			&value.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan encrypted field value")
		}

		values = append(values, &value)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate encrypted field values")
	}

	return values, nil
}

// DeleteByResponse removes every encrypted field value of one response and
// returns the number of rows deleted.
func (p *PostgreSQLFieldValueRepository) DeleteByResponse(ctx context.Context, responseID uuid.UUID) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM encrypted_field_values WHERE response_id = $1`

	result, err := querier.ExecContext(ctx, query, responseID)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete encrypted field values")
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count deleted encrypted field values")
	}

	return deleted, nil
}
