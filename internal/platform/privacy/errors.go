package privacy

import "errors"

var (
	// ErrInvalidBSN is returned when an identifier fails the digit-count or
	// 11-proof checksum validation. The offending value is never included.
	ErrInvalidBSN = errors.New("invalid burgerservicenummer")

	// ErrDecryptionFailed is returned when a stored blob cannot be
	// authenticated and decrypted (wrong key, tampering, truncation).
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrJustificationTooShort is returned by Reveal when the supplied
	// justification does not meet the minimum length.
	ErrJustificationTooShort = errors.New("justification too short")

	// ErrAuditWriteFailed is returned by Reveal when the mandatory audit
	// record could not be written. No plaintext is released in that case.
	ErrAuditWriteFailed = errors.New("audit write failed")

	// ErrUnknownKeyVersion is returned when a blob references a key version
	// that is not present in the keyring.
	ErrUnknownKeyVersion = errors.New("unknown key version")
)
