package service

import (
	"fmt"
	"strings"

	"github.com/tyler-smith/go-bip39"

	keysDomain "github.com/pacharanero/checktick/internal/keys/domain"
)

// Bip39PhraseCodec implements PhraseCodec using the BIP39 English word list.
//
// A phrase is 12 words drawn from the fixed, publicly known 2048-word list,
// encoding 128 bits of entropy plus a checksum derived from a hash of the
// entropy. The checksum makes single-word typos and transpositions detectable
// structurally, before any expensive key derivation is attempted.
//
// The canonical seed for KEK derivation is the decoded entropy itself, so any
// spelling of the same 12 words (case, extra whitespace) derives the same KEK.
type Bip39PhraseCodec struct{}

// NewPhraseCodec creates a new Bip39PhraseCodec.
func NewPhraseCodec() *Bip39PhraseCodec {
	return &Bip39PhraseCodec{}
}

// Generate creates a new 12-word recovery phrase from 128 bits of fresh
// entropy and returns the phrase together with its canonical seed.
func (p *Bip39PhraseCodec) Generate() (string, []byte, error) {
	entropy, err := bip39.NewEntropy(keysDomain.PhraseEntropyBits)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate phrase entropy: %w", err)
	}

	phrase, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode recovery phrase: %w", err)
	}

	return phrase, entropy, nil
}

// Decode validates a recovery phrase and returns its canonical seed.
//
// Case and surrounding/extra whitespace are ignored (product requirement:
// capitalization and spacing must not matter). The phrase must contain
// exactly 12 tokens; any other count is a hard validation error, never a
// silent truncation. A checksum mismatch or unknown word also fails here,
// structurally, without revealing anything about the stored secret.
func (p *Bip39PhraseCodec) Decode(phrase string) ([]byte, error) {
	words := strings.Fields(strings.ToLower(phrase))
	if len(words) != keysDomain.PhraseWordCount {
		return nil, keysDomain.ErrMalformedRecoveryPhrase
	}

	normalized := strings.Join(words, " ")

	seed, err := bip39.EntropyFromMnemonic(normalized)
	if err != nil {
		// Unknown word or checksum failure; the distinction is not useful to
		// callers and is deliberately collapsed.
		return nil, keysDomain.ErrMalformedRecoveryPhrase
	}

	return seed, nil
}

// Hint returns the non-secret "first...last" hint for a phrase, matching the
// hint stored alongside the key record (e.g. "apple...zebra"). Returns an
// empty string for structurally invalid phrases.
func (p *Bip39PhraseCodec) Hint(phrase string) string {
	words := strings.Fields(strings.ToLower(phrase))
	if len(words) != keysDomain.PhraseWordCount {
		return ""
	}
	return words[0] + "..." + words[len(words)-1]
}
