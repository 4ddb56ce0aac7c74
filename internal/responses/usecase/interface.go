// Package usecase orchestrates encrypted reads and writes of survey response
// fields. Every operation requires a live unlock session for the survey.
package usecase

import (
	"context"

	"github.com/google/uuid"

	responsesDomain "github.com/pacharanero/checktick/internal/responses/domain"
)

// FieldValueRepository defines persistence operations for encrypted field values.
// Implementations must support transaction-aware operations via context propagation.
type FieldValueRepository interface {
	// Create stores a new encrypted field value.
	Create(ctx context.Context, value *responsesDomain.EncryptedFieldValue) error

	// GetByID retrieves an encrypted field value. Returns
	// ErrFieldValueNotFound if not found.
	GetByID(ctx context.Context, id uuid.UUID) (*responsesDomain.EncryptedFieldValue, error)

	// ListByResponse retrieves all encrypted field values of one response.
	ListByResponse(ctx context.Context, responseID uuid.UUID) ([]*responsesDomain.EncryptedFieldValue, error)

	// DeleteByResponse removes every encrypted field value of one response,
	// returning the number deleted.
	DeleteByResponse(ctx context.Context, responseID uuid.UUID) (int64, error)
}

// ResponseUseCase defines encrypted field operations. All of them return
// ErrSurveyLocked when the caller holds no unlock session for the survey; the
// fix is to unlock, not to retry.
type ResponseUseCase interface {
	// WriteField encrypts one answer and stores it, returning the new value ID.
	WriteField(
		ctx context.Context,
		userID, surveyID, responseID uuid.UUID,
		fieldID string,
		plaintext []byte,
	) (uuid.UUID, error)

	// ReadField decrypts one stored answer.
	ReadField(ctx context.Context, userID uuid.UUID, fieldValueID uuid.UUID) ([]byte, error)

	// ReadResponse decrypts every field of one response, keyed by field ID.
	ReadResponse(ctx context.Context, userID, surveyID, responseID uuid.UUID) (map[string][]byte, error)

	// DeleteResponse removes every encrypted field of one response. No unlock
	// session is needed: deletion never reveals plaintext.
	DeleteResponse(ctx context.Context, responseID uuid.UUID) (int64, error)
}
