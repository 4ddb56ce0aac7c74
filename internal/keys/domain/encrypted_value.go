package domain

// EncryptedValue is one authenticated-encryption envelope for a single
// sensitive field value. AssociatedData (survey ID plus field ID) is bound
// into the authentication tag, so a ciphertext cannot be replayed against a
// different field or survey.
type EncryptedValue struct {
	Ciphertext     []byte // Encrypted field value with authentication tag appended
	Nonce          []byte // Unique nonce, fresh per encryption
	AssociatedData []byte // survey_id:field_id, authenticated but not encrypted
}
