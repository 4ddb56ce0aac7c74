package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	keysDomain "github.com/pacharanero/checktick/internal/keys/domain"
	"github.com/pacharanero/checktick/internal/keys/service"
	keysUsecase "github.com/pacharanero/checktick/internal/keys/usecase"
	responsesDomain "github.com/pacharanero/checktick/internal/responses/domain"
	"github.com/pacharanero/checktick/internal/session"
)

// responseUseCase implements ResponseUseCase.
//
// The DEK is fetched from the unlock session per operation and zeroized
// before returning. The AEAD algorithm comes from the survey's key record, so
// surveys provisioned under different algorithms coexist.
type responseUseCase struct {
	fieldRepo   FieldValueRepository
	keyRepo     keysUsecase.SurveyKeyRepository
	aeadManager service.AEADManager
	sessions    session.Store
}

// NewResponseUseCase creates a ResponseUseCase with the provided dependencies.
func NewResponseUseCase(
	fieldRepo FieldValueRepository,
	keyRepo keysUsecase.SurveyKeyRepository,
	aeadManager service.AEADManager,
	sessions session.Store,
) ResponseUseCase {
	return &responseUseCase{
		fieldRepo:   fieldRepo,
		keyRepo:     keyRepo,
		aeadManager: aeadManager,
		sessions:    sessions,
	}
}

// WriteField encrypts one answer under the survey DEK and stores it.
func (r *responseUseCase) WriteField(
	ctx context.Context,
	userID, surveyID, responseID uuid.UUID,
	fieldID string,
	plaintext []byte,
) (uuid.UUID, error) {
	dek, cipher, err := r.sessionCipher(ctx, userID, surveyID)
	if err != nil {
		return uuid.Nil, err
	}
	defer keysDomain.Zero(dek)

	aad := responsesDomain.AssociatedData(surveyID, fieldID)
	encrypted, err := cipher.Encrypt(dek, plaintext, aad)
	if err != nil {
		return uuid.Nil, err
	}

	value := &responsesDomain.EncryptedFieldValue{
		ID:             uuid.Must(uuid.NewV7()),
		SurveyID:       surveyID,
		ResponseID:     responseID,
		FieldID:        fieldID,
		Ciphertext:     encrypted.Ciphertext,
		Nonce:          encrypted.Nonce,
		AssociatedData: encrypted.AssociatedData,
		CreatedAt:      time.Now().UTC(),
	}

	if err := r.fieldRepo.Create(ctx, value); err != nil {
		return uuid.Nil, err
	}

	return value.ID, nil
}

// ReadField decrypts one stored answer. The survey the value belongs to is
// taken from the stored row, never from caller input.
func (r *responseUseCase) ReadField(ctx context.Context, userID uuid.UUID, fieldValueID uuid.UUID) ([]byte, error) {
	value, err := r.fieldRepo.GetByID(ctx, fieldValueID)
	if err != nil {
		return nil, err
	}

	dek, cipher, err := r.sessionCipher(ctx, userID, value.SurveyID)
	if err != nil {
		return nil, err
	}
	defer keysDomain.Zero(dek)

	return cipher.Decrypt(dek, keysDomain.EncryptedValue{
		Ciphertext:     value.Ciphertext,
		Nonce:          value.Nonce,
		AssociatedData: value.AssociatedData,
	})
}

// ReadResponse decrypts every field of one response. A single field that
// fails to decrypt fails the whole read: partial plaintext is worse than none.
func (r *responseUseCase) ReadResponse(
	ctx context.Context,
	userID, surveyID, responseID uuid.UUID,
) (map[string][]byte, error) {
	values, err := r.fieldRepo.ListByResponse(ctx, responseID)
	if err != nil {
		return nil, err
	}

	dek, cipher, err := r.sessionCipher(ctx, userID, surveyID)
	if err != nil {
		return nil, err
	}
	defer keysDomain.Zero(dek)

	fields := make(map[string][]byte, len(values))
	for _, value := range values {
		if value.SurveyID != surveyID {
			return nil, keysDomain.ErrDecryptionFailed
		}

		plaintext, err := cipher.Decrypt(dek, keysDomain.EncryptedValue{
			Ciphertext:     value.Ciphertext,
			Nonce:          value.Nonce,
			AssociatedData: value.AssociatedData,
		})
		if err != nil {
			return nil, err
		}
		fields[value.FieldID] = plaintext
	}

	return fields, nil
}

// DeleteResponse removes every encrypted field of one response.
func (r *responseUseCase) DeleteResponse(ctx context.Context, responseID uuid.UUID) (int64, error) {
	return r.fieldRepo.DeleteByResponse(ctx, responseID)
}

// sessionCipher fetches the caller's DEK and builds a cipher for the survey's
// configured algorithm. The returned DEK copy is owned by the caller.
func (r *responseUseCase) sessionCipher(
	ctx context.Context,
	userID, surveyID uuid.UUID,
) ([]byte, service.FieldCipher, error) {
	dek, ok := r.sessions.Get(userID, surveyID)
	if !ok {
		return nil, nil, keysDomain.ErrSurveyLocked
	}

	record, err := r.keyRepo.Get(ctx, surveyID)
	if err != nil {
		keysDomain.Zero(dek)
		return nil, nil, err
	}

	return dek, service.NewFieldCipher(r.aeadManager, record.Algorithm), nil
}
