package dto

import (
	"github.com/pacharanero/checktick/internal/keys/usecase"
)

// ProvisionKeyResponse carries the one-time secrets returned when a survey
// key is created. None of these fields are retrievable again; clients must
// present them to the owner immediately.
type ProvisionKeyResponse struct {
	RecoveryPhrase string `json:"recovery_phrase"`
	RecoveryHint   string `json:"recovery_hint"`
	RawDek         string `json:"raw_dek"`
}

// MapProvisionOutputToResponse converts a provision result to its HTTP response.
func MapProvisionOutputToResponse(out *usecase.ProvisionOutput) ProvisionKeyResponse {
	return ProvisionKeyResponse{
		RecoveryPhrase: out.RecoveryPhrase,
		RecoveryHint:   out.RecoveryHint,
		RawDek:         out.RawDekHex,
	}
}

// MigrateKeyResponse carries the one-time recovery phrase generated during a
// legacy key migration. The raw key is not echoed back.
type MigrateKeyResponse struct {
	RecoveryPhrase string `json:"recovery_phrase"`
	RecoveryHint   string `json:"recovery_hint"`
}

// MapProvisionOutputToMigrateResponse converts a migration result to its HTTP response.
func MapProvisionOutputToMigrateResponse(out *usecase.ProvisionOutput) MigrateKeyResponse {
	return MigrateKeyResponse{
		RecoveryPhrase: out.RecoveryPhrase,
		RecoveryHint:   out.RecoveryHint,
	}
}

// RewrapKeyResponse carries the result of replacing one wrap path. The phrase
// fields are populated only for a recovery-path rewrap.
type RewrapKeyResponse struct {
	RecoveryPhrase string `json:"recovery_phrase,omitempty"`
	RecoveryHint   string `json:"recovery_hint,omitempty"`
}

// MapRewrapOutputToResponse converts a rewrap result to its HTTP response.
func MapRewrapOutputToResponse(out *usecase.RewrapOutput) RewrapKeyResponse {
	return RewrapKeyResponse{
		RecoveryPhrase: out.RecoveryPhrase,
		RecoveryHint:   out.RecoveryHint,
	}
}

// HintResponse carries the stored non-secret recovery phrase hint.
type HintResponse struct {
	RecoveryHint string `json:"recovery_hint"`
}
