package domain

// Algorithm represents the AEAD algorithm used for key wrapping and field encryption.
//
// Both supported algorithms provide Authenticated Encryption with Associated Data
// (AEAD) with 256-bit keys, 12-byte nonces, and 16-byte authentication tags.
type Algorithm string

const (
	// AESGCM represents the AES-256-GCM authenticated encryption algorithm.
	// Preferred on CPUs with AES-NI hardware acceleration.
	AESGCM Algorithm = "aes-gcm"

	// ChaCha20 represents the ChaCha20-Poly1305 authenticated encryption algorithm.
	// Constant-time in software, preferred on platforms without AES-NI.
	ChaCha20 Algorithm = "chacha20-poly1305"
)

const (
	// KeySize is the size in bytes of all symmetric keys: the survey DEK and
	// the KEKs derived from human secrets.
	KeySize = 32

	// SaltSize is the size in bytes of freshly generated KDF salts.
	SaltSize = 16

	// MinSaltSize is the minimum acceptable KDF salt length. Records with
	// shorter salts are rejected before any derivation is attempted.
	MinSaltSize = 16

	// PhraseWordCount is the number of words in a recovery phrase.
	PhraseWordCount = 12

	// PhraseEntropyBits is the entropy encoded by a recovery phrase. Twelve
	// words carry 128 bits of entropy plus a 4-bit checksum.
	PhraseEntropyBits = 128
)

// FormatVersion identifies the layout of a survey key record.
type FormatVersion string

const (
	// FormatLegacyRaw is the deprecated single-key format: the survey key was
	// shown to the owner once and only a verification hash was stored.
	FormatLegacyRaw FormatVersion = "legacy_raw"

	// FormatDualWrap is the current format: the DEK is wrapped twice, under a
	// passphrase-derived KEK and under a recovery-phrase-derived KEK.
	FormatDualWrap FormatVersion = "dual_wrap"
)
