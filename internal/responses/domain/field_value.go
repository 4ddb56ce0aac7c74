// Package domain defines the persisted shape of encrypted survey answers.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/pacharanero/checktick/internal/errors"
)

// EncryptedFieldValue is one encrypted answer within a survey response. The
// plaintext never touches storage: only the AEAD ciphertext, its nonce, and
// the associated data that binds the ciphertext to its survey and field.
type EncryptedFieldValue struct {
	ID             uuid.UUID
	SurveyID       uuid.UUID
	ResponseID     uuid.UUID
	FieldID        string
	Ciphertext     []byte
	Nonce          []byte
	AssociatedData []byte
	CreatedAt      time.Time
}

// ErrFieldValueNotFound indicates no encrypted field value exists for the ID.
var ErrFieldValueNotFound = errors.Wrap(errors.ErrNotFound, "encrypted field value not found")

// AssociatedData builds the canonical AAD binding a ciphertext to its survey
// and field. Moving a ciphertext to another survey or field makes it
// undecryptable, which is the point.
func AssociatedData(surveyID uuid.UUID, fieldID string) []byte {
	return []byte(surveyID.String() + ":" + fieldID)
}
