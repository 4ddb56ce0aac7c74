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

// MySQLFieldValueRepository implements EncryptedFieldValue persistence for
// MySQL. UUIDs are stored as BINARY(16) and marshaled at the boundary.
type MySQLFieldValueRepository struct {
	db *sql.DB
}

// NewMySQLFieldValueRepository creates a new MySQLFieldValueRepository.
func NewMySQLFieldValueRepository(db *sql.DB) *MySQLFieldValueRepository {
	return &MySQLFieldValueRepository{
		db: db,
	}
}

// Create inserts a new encrypted field value.
func (m *MySQLFieldValueRepository) Create(ctx context.Context, value *responsesDomain.EncryptedFieldValue) error {
	querier := database.GetTx(ctx, m.db)

	id, err := value.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal field value id")
	}
	surveyID, err := value.SurveyID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal survey_id")
	}
	responseID, err := value.ResponseID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal response_id")
	}

	query := `INSERT INTO encrypted_field_values
			  (id, survey_id, response_id, field_id, ciphertext, nonce, associated_data, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		surveyID,
		responseID,
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
func (m *MySQLFieldValueRepository) GetByID(ctx context.Context, id uuid.UUID) (*responsesDomain.EncryptedFieldValue, error) {
	querier := database.GetTx(ctx, m.db)

	idBinary, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal field value id")
	}

	query := `SELECT id, survey_id, response_id, field_id, ciphertext, nonce, associated_data, created_at
			  FROM encrypted_field_values
			  WHERE id = ?`

	var value responsesDomain.EncryptedFieldValue
	var valueID, surveyID, responseID []byte

	err = querier.QueryRowContext(ctx, query, idBinary).Scan(
		&valueID,
		&surveyID,
		&responseID,
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

	if err := unmarshalFieldValueIDs(&value, valueID, surveyID, responseID); err != nil {
		return nil, err
	}

	return &value, nil
}

// ListByResponse retrieves all encrypted field values of one response,
// ordered by field ID for stable output.
func (m *MySQLFieldValueRepository) ListByResponse(
	ctx context.Context,
	responseID uuid.UUID,
) ([]*responsesDomain.EncryptedFieldValue, error) {
	querier := database.GetTx(ctx, m.db)

	responseIDBinary, err := responseID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal response_id")
	}

	query := `SELECT id, survey_id, response_id, field_id, ciphertext, nonce, associated_data, created_at
			  FROM encrypted_field_values
			  WHERE response_id = ?
			  ORDER BY field_id ASC`

	rows, err := querier.QueryContext(ctx, query, responseIDBinary)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list encrypted field values")
	}
	defer func() {
		_ = rows.Close()
	}()

	values := make([]*responsesDomain.EncryptedFieldValue, 0)
	for rows.Next() {
		var value responsesDomain.EncryptedFieldValue
		var valueID, surveyIDBinary, responseIDScanned []byte

		err := rows.Scan(
			&valueID,
			&surveyIDBinary,
			&responseIDScanned,
			&value.FieldID,
			&value.Ciphertext,
			&value.Nonce,
			&value.AssociatedData,
			&value.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan encrypted field value")
		}

		if err := unmarshalFieldValueIDs(&value, valueID, surveyIDBinary, responseIDScanned); err != nil {
			return nil, err
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
func (m *MySQLFieldValueRepository) DeleteByResponse(ctx context.Context, responseID uuid.UUID) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	responseIDBinary, err := responseID.MarshalBinary()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to marshal response_id")
	}

	query := `DELETE FROM encrypted_field_values WHERE response_id = ?`

	result, err := querier.ExecContext(ctx, query, responseIDBinary)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete encrypted field values")
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count deleted encrypted field values")
	}

	return deleted, nil
}

// unmarshalFieldValueIDs fills the UUID fields from their BINARY(16) columns.
func unmarshalFieldValueIDs(value *responsesDomain.EncryptedFieldValue, id, surveyID, responseID []byte) error {
	if err := value.ID.UnmarshalBinary(id); err != nil {
		return apperrors.Wrap(err, "failed to unmarshal field value id")
	}
	if err := value.SurveyID.UnmarshalBinary(surveyID); err != nil {
		return apperrors.Wrap(err, "failed to unmarshal survey_id")
	}
	if err := value.ResponseID.UnmarshalBinary(responseID); err != nil {
		return apperrors.Wrap(err, "failed to unmarshal response_id")
	}
	return nil
}
