// Package dto provides data transfer objects for encrypted response field handling.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/pacharanero/checktick/internal/validation"
)

// WriteFieldRequest contains one answer to encrypt and store. The value is
// base64-encoded so binary answers (file uploads, signatures) round-trip
// through JSON unchanged.
type WriteFieldRequest struct {
	FieldID string `json:"field_id" binding:"required"`
	Value   string `json:"value" binding:"required"`
}

// Validate checks if the write request is valid.
func (r *WriteFieldRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.FieldID,
			validation.Required,
			customValidation.NotBlank,
			validation.Length(1, 255),
		),
		validation.Field(&r.Value,
			validation.Required,
			customValidation.Base64,
		),
	)
}
