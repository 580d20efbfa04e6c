package privacy

import (
	"fmt"
	"sync"
)

// Keyring holds the current data key plus previous key versions so that rows
// encrypted before a rotation remain readable. Keys are loaded at startup and
// never mutated in place; rotation means a new version, not a changed key.
type Keyring struct {
	mu         sync.RWMutex
	currentVer int
	ciphers    map[int]*Cipher
}

// NewKeyring creates a keyring whose current key is currentKey at version
// currentVersion.
func NewKeyring(currentKey []byte, currentVersion int) (*Keyring, error) {
	if currentVersion < 1 {
		return nil, fmt.Errorf("privacy keyring: version must be >= 1, got %d", currentVersion)
	}
	c, err := NewCipher(currentKey)
	if err != nil {
		return nil, fmt.Errorf("privacy keyring: current key: %w", err)
	}
	return &Keyring{
		currentVer: currentVersion,
		ciphers:    map[int]*Cipher{currentVersion: c},
	}, nil
}

// AddPreviousKey registers a retired key version for decryption only.
func (k *Keyring) AddPreviousKey(key []byte, version int) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if version >= k.currentVer {
		return fmt.Errorf("privacy keyring: previous key version %d is not older than current %d", version, k.currentVer)
	}
	c, err := NewCipher(key)
	if err != nil {
		return fmt.Errorf("privacy keyring: previous key v%d: %w", version, err)
	}
	k.ciphers[version] = c
	return nil
}

// Encrypt seals plaintext with the current key and returns the blob together
// with the key version it was encrypted under.
func (k *Keyring) Encrypt(plaintext []byte) ([]byte, int, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	blob, err := k.ciphers[k.currentVer].Encrypt(plaintext)
	if err != nil {
		return nil, 0, err
	}
	return blob, k.currentVer, nil
}

// Decrypt opens a blob using the key registered for version.
func (k *Keyring) Decrypt(blob []byte, version int) ([]byte, error) {
	k.mu.RLock()
	c, ok := k.ciphers[version]
	k.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: v%d", ErrUnknownKeyVersion, version)
	}
	return c.Decrypt(blob)
}

// CurrentVersion returns the version new encryptions are tagged with.
func (k *Keyring) CurrentVersion() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.currentVer
}

// NeedsReEncryption reports whether a row encrypted under version should be
// re-encrypted with the current key.
func (k *Keyring) NeedsReEncryption(version int) bool {
	return version != k.CurrentVersion()
}
