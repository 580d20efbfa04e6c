package privacy

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/vault/api"
)

// KeyMaterial is the decoded set of process-wide data keys. The keys are
// read-only after load; rotation happens by shipping a new current version,
// never by mutating a key in place.
type KeyMaterial struct {
	CurrentKey     []byte
	CurrentVersion int
	HashKey        []byte
	PreviousKeys   map[int][]byte
}

// Keyring builds a Keyring from the loaded material.
func (m *KeyMaterial) Keyring() (*Keyring, error) {
	kr, err := NewKeyring(m.CurrentKey, m.CurrentVersion)
	if err != nil {
		return nil, err
	}
	for version, key := range m.PreviousKeys {
		if err := kr.AddPreviousKey(key, version); err != nil {
			return nil, err
		}
	}
	return kr, nil
}

// ParseKeyMaterial decodes hex-encoded key configuration. previous uses the
// form "1:<hex>,2:<hex>".
func ParseKeyMaterial(currentHex string, currentVersion int, hashHex, previous string) (*KeyMaterial, error) {
	current, err := decodeKey(currentHex, "encryption key")
	if err != nil {
		return nil, err
	}
	hashKey, err := decodeKey(hashHex, "hash key")
	if err != nil {
		return nil, err
	}

	m := &KeyMaterial{
		CurrentKey:     current,
		CurrentVersion: currentVersion,
		HashKey:        hashKey,
		PreviousKeys:   make(map[int][]byte),
	}

	if previous != "" {
		for _, pair := range strings.Split(previous, ",") {
			verStr, keyHex, ok := strings.Cut(strings.TrimSpace(pair), ":")
			if !ok {
				return nil, fmt.Errorf("privacy keys: previous key entry %q must be version:hex", pair)
			}
			version, err := strconv.Atoi(verStr)
			if err != nil {
				return nil, fmt.Errorf("privacy keys: previous key version %q: %w", verStr, err)
			}
			key, err := decodeKey(keyHex, fmt.Sprintf("previous key v%d", version))
			if err != nil {
				return nil, err
			}
			m.PreviousKeys[version] = key
		}
	}

	return m, nil
}

// VaultKeySource fetches key material from a HashiCorp Vault KV v2 secret.
// The secret is expected to hold the same fields the env configuration uses:
// "encryption_key", "key_version", "hash_key" and optionally "previous_keys".
type VaultKeySource struct {
	client *api.Client
	path   string
}

// NewVaultKeySource creates a key source against the given Vault address.
func NewVaultKeySource(addr, token, path string) (*VaultKeySource, error) {
	cfg := api.DefaultConfig()
	if addr != "" {
		cfg.Address = addr
	}
	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("privacy keys: create vault client: %w", err)
	}
	client.SetToken(token)
	return &VaultKeySource{client: client, path: path}, nil
}

// Load reads and decodes the key material from Vault.
func (s *VaultKeySource) Load(ctx context.Context) (*KeyMaterial, error) {
	secret, err := s.client.Logical().ReadWithContext(ctx, s.path)
	if err != nil {
		return nil, fmt.Errorf("privacy keys: read %s: %w", s.path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("privacy keys: no secret at %s", s.path)
	}

	// KV v2 nests the payload under "data".
	data := secret.Data
	if nested, ok := data["data"].(map[string]interface{}); ok {
		data = nested
	}

	currentHex, _ := data["encryption_key"].(string)
	hashHex, _ := data["hash_key"].(string)
	previous, _ := data["previous_keys"].(string)

	version, err := keyVersionField(data["key_version"])
	if err != nil {
		return nil, err
	}

	return ParseKeyMaterial(currentHex, version, hashHex, previous)
}

// keyVersionField decodes the key_version secret field. Vault's API decodes
// JSON numbers as json.Number; plain string and float64 values are accepted
// for parity with hand-written secrets. An absent field means version 1.
func keyVersionField(v interface{}) (int, error) {
	switch v := v.(type) {
	case nil:
		return 1, nil
	case string:
		version, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("privacy keys: key_version %q: %w", v, err)
		}
		return version, nil
	case json.Number:
		version, err := strconv.Atoi(v.String())
		if err != nil {
			return 0, fmt.Errorf("privacy keys: key_version %q: %w", v.String(), err)
		}
		return version, nil
	case float64:
		return int(v), nil
	}
	return 0, fmt.Errorf("privacy keys: key_version has unsupported type %T", v)
}

func decodeKey(hexStr, name string) ([]byte, error) {
	key, err := hex.DecodeString(strings.TrimSpace(hexStr))
	if err != nil {
		return nil, fmt.Errorf("privacy keys: %s is not valid hex: %w", name, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("privacy keys: %s must be 32 bytes (64 hex chars), got %d bytes", name, len(key))
	}
	return key, nil
}
