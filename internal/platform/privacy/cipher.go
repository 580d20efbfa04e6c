package privacy

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
)

// ivSize is the nonce length used for AES-GCM. The stored blob layout is
// IV (16 bytes) || ciphertext || tag (16 bytes), which existing rows depend on.
const ivSize = 16

// Cipher provides AES-256-GCM encryption for short secrets such as the BSN.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher creates a Cipher from a 32-byte AES-256 key.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("privacy cipher: key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("privacy cipher: create cipher: %w", err)
	}

	aead, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, fmt.Errorf("privacy cipher: create GCM: %w", err)
	}

	return &Cipher{aead: aead}, nil
}

// Encrypt seals the plaintext with a fresh random IV. IVs are never reused for
// the same key; every call draws from crypto/rand.
func (c *Cipher) Encrypt(plaintext []byte) ([]byte, error) {
	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("privacy encrypt: generate iv: %w", err)
	}

	// Seal appends ciphertext+tag to iv, producing iv || ciphertext || tag.
	return c.aead.Seal(iv, iv, plaintext, nil), nil
}

// Decrypt splits the blob into IV and ciphertext+tag and opens it. A failed
// tag check returns ErrDecryptionFailed and never partial plaintext.
func (c *Cipher) Decrypt(blob []byte) ([]byte, error) {
	if len(blob) < ivSize+c.aead.Overhead() {
		return nil, fmt.Errorf("%w: blob too short", ErrDecryptionFailed)
	}

	iv, sealed := blob[:ivSize], blob[ivSize:]
	plaintext, err := c.aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	return plaintext, nil
}
