// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/pacharanero/checktick/internal/validation"
)

// passphraseStrength is the policy for newly chosen passphrases. Unlock and
// current-secret fields are deliberately not policy-checked: the stored wrap
// decides whether a secret is right, and rejecting a "weak" correct
// passphrase would lock its owner out.
var passphraseStrength = customValidation.PasswordStrength{
	MinLength:     12,
	RequireUpper:  true,
	RequireLower:  true,
	RequireNumber: true,
}

// ProvisionKeyRequest contains the parameters for provisioning a survey key.
// The survey ID is extracted from the URL parameter, not the request body.
type ProvisionKeyRequest struct {
	Passphrase string `json:"passphrase" binding:"required"`
}

// Validate checks if the provision request is valid.
func (r *ProvisionKeyRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Passphrase,
			validation.Required,
			passphraseStrength,
		),
	)
}

// UnlockRequest contains the parameters for unlocking a survey.
type UnlockRequest struct {
	Path   string `json:"path" binding:"required"`
	Secret string `json:"secret" binding:"required"`
}

// Validate checks if the unlock request is valid.
func (r *UnlockRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Path,
			validation.Required,
			validation.In("password", "recovery"),
		),
		validation.Field(&r.Secret,
			validation.Required,
		),
	)
}

// RewrapKeyRequest contains the parameters for replacing one wrap path. The
// target path is extracted from the URL parameter. NewSecret is required only
// when the target is the password path; a recovery-path rewrap generates the
// new phrase server-side.
type RewrapKeyRequest struct {
	CurrentPath   string `json:"current_path" binding:"required"`
	CurrentSecret string `json:"current_secret" binding:"required"`
	NewSecret     string `json:"new_secret"`
}

// Validate checks if the rewrap request is valid for the given target path.
func (r *RewrapKeyRequest) Validate(targetPath string) error {
	newSecretRules := []validation.Rule{validation.Empty}
	if targetPath == "password" {
		newSecretRules = []validation.Rule{validation.Required, passphraseStrength}
	}

	return validation.ValidateStruct(r,
		validation.Field(&r.CurrentPath,
			validation.Required,
			validation.In("password", "recovery"),
		),
		validation.Field(&r.CurrentSecret,
			validation.Required,
		),
		validation.Field(&r.NewSecret, newSecretRules...),
	)
}

// MigrateKeyRequest contains the parameters for upgrading a legacy survey key.
type MigrateKeyRequest struct {
	RawKey        string `json:"raw_key" binding:"required"`
	NewPassphrase string `json:"new_passphrase" binding:"required"`
}

// Validate checks if the migrate request is valid. The raw key is the hex
// form of a 32-byte key as originally displayed to the owner.
func (r *MigrateKeyRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.RawKey,
			validation.Required,
			validation.Length(64, 64),
		),
		validation.Field(&r.NewPassphrase,
			validation.Required,
			passphraseStrength,
		),
	)
}
