// Package privacy implements the only code paths allowed to touch plaintext
// burgerservicenummers: validation, envelope encryption at rest, keyed-hash
// equality lookup, masking, and the audited reveal operation.
package privacy

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

const minJustificationLen = 5

// EncryptedBSN is the stored representation of a burgerservicenummer. None of
// its fields ever appear in an API response.
type EncryptedBSN struct {
	Blob       []byte `json:"-"`
	LookupHash string `json:"-"`
	KeyVersion int    `json:"-"`
}

// RevealRequest identifies who is asking for plaintext and why.
type RevealRequest struct {
	ActorID       uuid.UUID
	ActorRole     string
	PracticeID    uuid.UUID
	PatientID     uuid.UUID
	Justification string
	IPAddress     string
	UserAgent     string
}

// RevealRecorder persists the mandatory audit record for a reveal. The write
// must complete before any plaintext is released.
type RevealRecorder interface {
	RecordReveal(ctx context.Context, req RevealRequest) error
}

// Vault composes the keyring and lookup hash into the storage contract for
// sensitive identifiers.
type Vault struct {
	keyring  *Keyring
	hashKey  []byte
	recorder RevealRecorder
}

// NewVault creates a Vault. hashKey must be 32 bytes.
func NewVault(keyring *Keyring, hashKey []byte, recorder RevealRecorder) (*Vault, error) {
	if len(hashKey) != 32 {
		return nil, fmt.Errorf("privacy vault: hash key must be 32 bytes, got %d", len(hashKey))
	}
	return &Vault{keyring: keyring, hashKey: hashKey, recorder: recorder}, nil
}

// Store validates and encrypts a plaintext BSN. Validation is a hard
// precondition; nothing is encrypted for an identifier failing the 11-proof.
func (v *Vault) Store(plaintext string) (*EncryptedBSN, error) {
	if !ValidateBSN(plaintext) {
		return nil, ErrInvalidBSN
	}
	normalized := NormalizeBSN(plaintext)

	blob, version, err := v.keyring.Encrypt([]byte(normalized))
	if err != nil {
		return nil, fmt.Errorf("privacy vault: encrypt: %w", err)
	}

	return &EncryptedBSN{
		Blob:       blob,
		LookupHash: LookupHash(normalized, v.hashKey),
		KeyVersion: version,
	}, nil
}

// SearchHash returns the lookup digest for an identifier so callers can run
// equality queries without decrypting stored rows.
func (v *Vault) SearchHash(plaintext string) (string, error) {
	if !ValidateBSN(plaintext) {
		return "", ErrInvalidBSN
	}
	return LookupHash(plaintext, v.hashKey), nil
}

// Mask returns the masked rendering of a plaintext identifier.
func (v *Vault) Mask(plaintext string) string {
	return MaskBSN(plaintext)
}

// MaskedFromStored decrypts a stored value and immediately masks it. Used by
// read paths that show the masked identifier without a reveal.
func (v *Vault) MaskedFromStored(enc *EncryptedBSN) (string, error) {
	plaintext, err := v.keyring.Decrypt(enc.Blob, enc.KeyVersion)
	if err != nil {
		return "", err
	}
	return MaskBSN(string(plaintext)), nil
}

// Reveal decrypts a stored identifier for an explicitly justified request.
// The audit record is written before the plaintext is returned; if the write
// fails the operation fails closed and no plaintext is released.
func (v *Vault) Reveal(ctx context.Context, enc *EncryptedBSN, req RevealRequest) (string, error) {
	if len(req.Justification) < minJustificationLen {
		return "", ErrJustificationTooShort
	}

	plaintext, err := v.keyring.Decrypt(enc.Blob, enc.KeyVersion)
	if err != nil {
		return "", err
	}

	if err := v.recorder.RecordReveal(ctx, req); err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuditWriteFailed, err)
	}

	return string(plaintext), nil
}

// ReEncrypt re-seals a stored value under the current key version. The lookup
// hash is unchanged because the hash key does not rotate.
func (v *Vault) ReEncrypt(enc *EncryptedBSN) (*EncryptedBSN, error) {
	plaintext, err := v.keyring.Decrypt(enc.Blob, enc.KeyVersion)
	if err != nil {
		return nil, err
	}
	blob, version, err := v.keyring.Encrypt(plaintext)
	if err != nil {
		return nil, err
	}
	return &EncryptedBSN{Blob: blob, LookupHash: enc.LookupHash, KeyVersion: version}, nil
}
