package usecase

import (
	"context"
	"crypto/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	keysDomain "github.com/pacharanero/checktick/internal/keys/domain"
	"github.com/pacharanero/checktick/internal/keys/service"
	responsesDomain "github.com/pacharanero/checktick/internal/responses/domain"
	"github.com/pacharanero/checktick/internal/session"
)

// mockFieldValueRepository is a mock implementation of FieldValueRepository for testing.
type mockFieldValueRepository struct {
	mock.Mock
}

func (m *mockFieldValueRepository) Create(ctx context.Context, value *responsesDomain.EncryptedFieldValue) error {
	args := m.Called(ctx, value)
	return args.Error(0)
}

func (m *mockFieldValueRepository) GetByID(ctx context.Context, id uuid.UUID) (*responsesDomain.EncryptedFieldValue, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*responsesDomain.EncryptedFieldValue), args.Error(1)
}

func (m *mockFieldValueRepository) ListByResponse(
	ctx context.Context,
	responseID uuid.UUID,
) ([]*responsesDomain.EncryptedFieldValue, error) {
	args := m.Called(ctx, responseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*responsesDomain.EncryptedFieldValue), args.Error(1)
}

func (m *mockFieldValueRepository) DeleteByResponse(ctx context.Context, responseID uuid.UUID) (int64, error) {
	args := m.Called(ctx, responseID)
	return args.Get(0).(int64), args.Error(1)
}

// mockSurveyKeyRepository is a mock implementation of the key record lookup for testing.
type mockSurveyKeyRepository struct {
	mock.Mock
}

func (m *mockSurveyKeyRepository) Create(ctx context.Context, record *keysDomain.SurveyKeyRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *mockSurveyKeyRepository) Get(ctx context.Context, surveyID uuid.UUID) (*keysDomain.SurveyKeyRecord, error) {
	args := m.Called(ctx, surveyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*keysDomain.SurveyKeyRecord), args.Error(1)
}

func (m *mockSurveyKeyRepository) Update(ctx context.Context, record *keysDomain.SurveyKeyRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

type responseFixture struct {
	uc        ResponseUseCase
	fieldRepo *mockFieldValueRepository
	keyRepo   *mockSurveyKeyRepository
	sessions  *session.MemoryStore
	userID    uuid.UUID
	surveyID  uuid.UUID
	dek       []byte
}

func newResponseFixture(t *testing.T) *responseFixture {
	t.Helper()

	fieldRepo := &mockFieldValueRepository{}
	keyRepo := &mockSurveyKeyRepository{}
	sessions := session.NewMemoryStore(0, nil)
	t.Cleanup(sessions.Close)

	f := &responseFixture{
		uc:        NewResponseUseCase(fieldRepo, keyRepo, service.NewAEADManager(), sessions),
		fieldRepo: fieldRepo,
		keyRepo:   keyRepo,
		sessions:  sessions,
		userID:    uuid.New(),
		surveyID:  uuid.New(),
		dek:       make([]byte, keysDomain.KeySize),
	}
	_, err := rand.Read(f.dek)
	require.NoError(t, err)

	keyRepo.On("Get", mock.Anything, f.surveyID).Return(&keysDomain.SurveyKeyRecord{
		SurveyID:      f.surveyID,
		FormatVersion: keysDomain.FormatDualWrap,
		Algorithm:     keysDomain.AESGCM,
	}, nil).Maybe()

	return f
}

func (f *responseFixture) unlock() {
	f.sessions.Put(f.userID, f.surveyID, f.dek, time.Minute)
}

func TestResponseUseCase_WriteField(t *testing.T) {
	ctx := context.Background()

	t.Run("encrypts and stores the answer", func(t *testing.T) {
		f := newResponseFixture(t)
		f.unlock()
		responseID := uuid.New()

		var stored *responsesDomain.EncryptedFieldValue
		f.fieldRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.EncryptedFieldValue")).
			Run(func(args mock.Arguments) {
				stored = args.Get(1).(*responsesDomain.EncryptedFieldValue)
			}).
			Return(nil).Once()

		id, err := f.uc.WriteField(ctx, f.userID, f.surveyID, responseID, "q1", []byte("blue"))
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, id)

		require.NotNil(t, stored)
		assert.Equal(t, id, stored.ID)
		assert.Equal(t, f.surveyID, stored.SurveyID)
		assert.Equal(t, responseID, stored.ResponseID)
		assert.Equal(t, "q1", stored.FieldID)
		assert.Equal(t, responsesDomain.AssociatedData(f.surveyID, "q1"), stored.AssociatedData)
		assert.NotContains(t, string(stored.Ciphertext), "blue")

		// The stored ciphertext decrypts under the session DEK.
		cipher := service.NewFieldCipher(service.NewAEADManager(), keysDomain.AESGCM)
		plaintext, err := cipher.Decrypt(f.dek, keysDomain.EncryptedValue{
			Ciphertext:     stored.Ciphertext,
			Nonce:          stored.Nonce,
			AssociatedData: stored.AssociatedData,
		})
		require.NoError(t, err)
		assert.Equal(t, []byte("blue"), plaintext)
	})

	t.Run("locked survey", func(t *testing.T) {
		f := newResponseFixture(t)

		_, err := f.uc.WriteField(ctx, f.userID, f.surveyID, uuid.New(), "q1", []byte("blue"))
		assert.ErrorIs(t, err, keysDomain.ErrSurveyLocked)
		f.fieldRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("another user's session does not help", func(t *testing.T) {
		f := newResponseFixture(t)
		f.unlock()

		_, err := f.uc.WriteField(ctx, uuid.New(), f.surveyID, uuid.New(), "q1", []byte("blue"))
		assert.ErrorIs(t, err, keysDomain.ErrSurveyLocked)
	})
}

func TestResponseUseCase_ReadField(t *testing.T) {
	ctx := context.Background()

	encryptFixtureValue := func(t *testing.T, f *responseFixture, fieldID string, plaintext []byte) *responsesDomain.EncryptedFieldValue {
		t.Helper()
		cipher := service.NewFieldCipher(service.NewAEADManager(), keysDomain.AESGCM)
		encrypted, err := cipher.Encrypt(f.dek, plaintext, responsesDomain.AssociatedData(f.surveyID, fieldID))
		require.NoError(t, err)
		return &responsesDomain.EncryptedFieldValue{
			ID:             uuid.Must(uuid.NewV7()),
			SurveyID:       f.surveyID,
			ResponseID:     uuid.New(),
			FieldID:        fieldID,
			Ciphertext:     encrypted.Ciphertext,
			Nonce:          encrypted.Nonce,
			AssociatedData: encrypted.AssociatedData,
			CreatedAt:      time.Now().UTC(),
		}
	}

	t.Run("round trip", func(t *testing.T) {
		f := newResponseFixture(t)
		f.unlock()

		value := encryptFixtureValue(t, f, "q1", []byte("blue"))
		f.fieldRepo.On("GetByID", mock.Anything, value.ID).Return(value, nil)

		plaintext, err := f.uc.ReadField(ctx, f.userID, value.ID)
		require.NoError(t, err)
		assert.Equal(t, []byte("blue"), plaintext)
	})

	t.Run("locked survey", func(t *testing.T) {
		f := newResponseFixture(t)

		value := encryptFixtureValue(t, f, "q1", []byte("blue"))
		f.fieldRepo.On("GetByID", mock.Anything, value.ID).Return(value, nil)

		_, err := f.uc.ReadField(ctx, f.userID, value.ID)
		assert.ErrorIs(t, err, keysDomain.ErrSurveyLocked)
	})

	t.Run("missing value", func(t *testing.T) {
		f := newResponseFixture(t)
		f.unlock()

		missing := uuid.New()
		f.fieldRepo.On("GetByID", mock.Anything, missing).Return(nil, responsesDomain.ErrFieldValueNotFound)

		_, err := f.uc.ReadField(ctx, f.userID, missing)
		assert.ErrorIs(t, err, responsesDomain.ErrFieldValueNotFound)
	})

	t.Run("tampered ciphertext fails closed", func(t *testing.T) {
		f := newResponseFixture(t)
		f.unlock()

		value := encryptFixtureValue(t, f, "q1", []byte("blue"))
		value.Ciphertext[0] ^= 0xff
		f.fieldRepo.On("GetByID", mock.Anything, value.ID).Return(value, nil)

		_, err := f.uc.ReadField(ctx, f.userID, value.ID)
		assert.ErrorIs(t, err, keysDomain.ErrDecryptionFailed)
	})
}

func TestResponseUseCase_ReadResponse(t *testing.T) {
	ctx := context.Background()
	f := newResponseFixture(t)
	f.unlock()
	responseID := uuid.New()

	cipher := service.NewFieldCipher(service.NewAEADManager(), keysDomain.AESGCM)
	var values []*responsesDomain.EncryptedFieldValue
	for fieldID, answer := range map[string]string{"q1": "blue", "q2": "42"} {
		encrypted, err := cipher.Encrypt(f.dek, []byte(answer), responsesDomain.AssociatedData(f.surveyID, fieldID))
		require.NoError(t, err)
		values = append(values, &responsesDomain.EncryptedFieldValue{
			ID:             uuid.Must(uuid.NewV7()),
			SurveyID:       f.surveyID,
			ResponseID:     responseID,
			FieldID:        fieldID,
			Ciphertext:     encrypted.Ciphertext,
			Nonce:          encrypted.Nonce,
			AssociatedData: encrypted.AssociatedData,
		})
	}
	f.fieldRepo.On("ListByResponse", mock.Anything, responseID).Return(values, nil)

	fields, err := f.uc.ReadResponse(ctx, f.userID, f.surveyID, responseID)
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"q1": []byte("blue"), "q2": []byte("42")}, fields)
}

func TestResponseUseCase_DeleteResponse(t *testing.T) {
	ctx := context.Background()
	f := newResponseFixture(t)
	responseID := uuid.New()

	f.fieldRepo.On("DeleteByResponse", mock.Anything, responseID).Return(int64(3), nil)

	// No unlock session required for deletion.
	deleted, err := f.uc.DeleteResponse(ctx, responseID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
}
