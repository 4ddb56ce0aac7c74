package domain

import (
	"fmt"
)

// UnlockPath identifies which secret a caller is presenting to unwrap a
// survey DEK. It is a closed enum so a future third path (e.g. SSO-derived
// keys) is a compile-time-checked addition, not a string comparison.
type UnlockPath string

const (
	// PathPassword unlocks with the survey owner's memorized passphrase.
	PathPassword UnlockPath = "password"

	// PathRecovery unlocks with the 12-word recovery phrase.
	PathRecovery UnlockPath = "recovery"
)

// ParseUnlockPath converts a string to an UnlockPath.
func ParseUnlockPath(s string) (UnlockPath, error) {
	switch s {
	case "password":
		return PathPassword, nil
	case "recovery":
		return PathRecovery, nil
	default:
		return "", fmt.Errorf("invalid unlock path: must be 'password' or 'recovery'")
	}
}

// UnlockSecret is a tagged variant pairing an unlock path with its secret
// payload. For PathPassword the secret is the exact passphrase bytes (no
// normalization). For PathRecovery the secret is the canonical seed decoded
// from the phrase, not the phrase text itself.
type UnlockSecret struct {
	Path   UnlockPath
	Secret []byte
}

// PasswordSecret builds an UnlockSecret from a passphrase. The passphrase is
// byte-sensitive: no trimming or case folding is applied.
func PasswordSecret(passphrase string) UnlockSecret {
	return UnlockSecret{Path: PathPassword, Secret: []byte(passphrase)}
}

// RecoverySecret builds an UnlockSecret from a decoded recovery phrase seed.
func RecoverySecret(seed []byte) UnlockSecret {
	return UnlockSecret{Path: PathRecovery, Secret: seed}
}

// Zero overwrites the secret payload.
func (s *UnlockSecret) Zero() {
	Zero(s.Secret)
}
