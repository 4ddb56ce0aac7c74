package service

import (
	keysDomain "github.com/pacharanero/checktick/internal/keys/domain"
)

// FieldCipherService implements FieldCipher on top of the AEAD layer.
//
// The DEK is handed in per call and never retained; the service itself is
// stateless and safe for concurrent use.
type FieldCipherService struct {
	aeadManager AEADManager
	algorithm   keysDomain.Algorithm
}

// NewFieldCipher creates a FieldCipherService using the given algorithm.
func NewFieldCipher(aeadManager AEADManager, alg keysDomain.Algorithm) *FieldCipherService {
	return &FieldCipherService{
		aeadManager: aeadManager,
		algorithm:   alg,
	}
}

// Encrypt seals plaintext under the DEK with a fresh random nonce, binding
// the associated data (survey ID plus field ID) into the authentication tag.
// Encrypting the same plaintext twice yields different ciphertexts because
// the nonce is never reused.
func (f *FieldCipherService) Encrypt(dek, plaintext, associatedData []byte) (keysDomain.EncryptedValue, error) {
	aead, err := f.aeadManager.CreateCipher(dek, f.algorithm)
	if err != nil {
		return keysDomain.EncryptedValue{}, err
	}

	ciphertext, nonce, err := aead.Encrypt(plaintext, associatedData)
	if err != nil {
		return keysDomain.EncryptedValue{}, err
	}

	return keysDomain.EncryptedValue{
		Ciphertext:     ciphertext,
		Nonce:          nonce,
		AssociatedData: associatedData,
	}, nil
}

// Decrypt verifies the authentication tag against the stored associated data
// before releasing plaintext. Tampering, a wrong DEK, or a ciphertext moved
// between fields or surveys all fail closed with ErrDecryptionFailed.
func (f *FieldCipherService) Decrypt(dek []byte, value keysDomain.EncryptedValue) ([]byte, error) {
	aead, err := f.aeadManager.CreateCipher(dek, f.algorithm)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Decrypt(value.Ciphertext, value.Nonce, value.AssociatedData)
	if err != nil {
		return nil, keysDomain.ErrDecryptionFailed
	}

	return plaintext, nil
}
