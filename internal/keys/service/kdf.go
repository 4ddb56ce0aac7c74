package service

import (
	"context"
	"fmt"

	"golang.org/x/crypto/scrypt"
	"golang.org/x/sync/semaphore"

	keysDomain "github.com/pacharanero/checktick/internal/keys/domain"
)

// Default scrypt parameters: the interactive profile, roughly low hundreds
// of milliseconds per derivation on current server hardware.
const (
	DefaultKDFWorkFactor  = 1 << 14 // N
	DefaultKDFBlockSize   = 8       // r
	DefaultKDFParallelism = 1       // p
	defaultMaxConcurrent  = 4
)

// ScryptDeriver implements KeyDeriver using scrypt, a memory-hard KDF that
// makes offline brute-force of a passphrase expensive.
//
// Derivation is deterministic: the same (secret, salt, parameters) always
// yields the same KEK, which is what lets an unlock reproduce the original
// wrapping key. scrypt itself runs in time independent of the secret's
// content; a wrong secret is only detected later, when authenticated
// decryption of the wrapped DEK fails.
//
// Because each derivation pins ~128*N*r bytes of memory, concurrent
// derivations are bounded by a weighted semaphore. Waiting for capacity
// honors the caller's context; once a derivation starts it runs to
// completion.
type ScryptDeriver struct {
	workFactor  int
	blockSize   int
	parallelism int
	sem         *semaphore.Weighted
}

// ScryptOption configures a ScryptDeriver.
type ScryptOption func(*ScryptDeriver)

// WithScryptParams overrides the scrypt cost parameters. Intended for tests;
// production deployments should keep the defaults or raise them.
func WithScryptParams(workFactor, blockSize, parallelism int) ScryptOption {
	return func(d *ScryptDeriver) {
		d.workFactor = workFactor
		d.blockSize = blockSize
		d.parallelism = parallelism
	}
}

// WithMaxConcurrent bounds how many derivations may run at once.
func WithMaxConcurrent(n int) ScryptOption {
	return func(d *ScryptDeriver) {
		if n > 0 {
			d.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

// NewScryptDeriver creates a KeyDeriver with the default scrypt parameters
// (N=2^14, r=8, p=1) unless overridden by options.
func NewScryptDeriver(opts ...ScryptOption) *ScryptDeriver {
	d := &ScryptDeriver{
		workFactor:  DefaultKDFWorkFactor,
		blockSize:   DefaultKDFBlockSize,
		parallelism: DefaultKDFParallelism,
		sem:         semaphore.NewWeighted(defaultMaxConcurrent),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Derive computes a 32-byte KEK from the secret and salt.
//
// The only input validation is structural: salts shorter than 16 bytes are
// rejected. The secret is never inspected; weak-looking secrets derive just
// like strong ones, so no timing or error signal depends on the secret value.
func (d *ScryptDeriver) Derive(ctx context.Context, secret, salt []byte) ([]byte, error) {
	if len(salt) < keysDomain.MinSaltSize {
		return nil, keysDomain.ErrInvalidSaltSize
	}

	if err := d.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for key derivation capacity: %w", err)
	}
	defer d.sem.Release(1)

	kek, err := scrypt.Key(secret, salt, d.workFactor, d.blockSize, d.parallelism, keysDomain.KeySize)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	return kek, nil
}
