package dto

import (
	"encoding/base64"

	"github.com/google/uuid"
)

// WriteFieldResponse carries the identifier of a newly stored field value.
type WriteFieldResponse struct {
	ID string `json:"id"`
}

// MapFieldValueIDToResponse converts a stored value ID to its HTTP response.
func MapFieldValueIDToResponse(id uuid.UUID) WriteFieldResponse {
	return WriteFieldResponse{ID: id.String()}
}

// FieldValueResponse carries one decrypted answer, base64-encoded.
type FieldValueResponse struct {
	Value string `json:"value"`
}

// MapPlaintextToResponse converts a decrypted answer to its HTTP response.
func MapPlaintextToResponse(plaintext []byte) FieldValueResponse {
	return FieldValueResponse{Value: base64.StdEncoding.EncodeToString(plaintext)}
}

// ResponseFieldsResponse carries every decrypted field of one response,
// keyed by field ID with base64-encoded values.
type ResponseFieldsResponse struct {
	Fields map[string]string `json:"fields"`
}

// MapFieldsToResponse converts decrypted response fields to their HTTP response.
func MapFieldsToResponse(fields map[string][]byte) ResponseFieldsResponse {
	encoded := make(map[string]string, len(fields))
	for fieldID, plaintext := range fields {
		encoded[fieldID] = base64.StdEncoding.EncodeToString(plaintext)
	}
	return ResponseFieldsResponse{Fields: encoded}
}

// DeleteResponseResponse carries the number of field values removed.
type DeleteResponseResponse struct {
	Deleted int64 `json:"deleted"`
}
