package privacy

import (
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeyMaterial(t *testing.T) {
	current := hex.EncodeToString(testKey(t))
	hash := hex.EncodeToString(testKey(t))
	prev := hex.EncodeToString(testKey(t))

	m, err := ParseKeyMaterial(current, 2, hash, "1:"+prev)
	require.NoError(t, err)
	assert.Equal(t, 2, m.CurrentVersion)
	assert.Len(t, m.PreviousKeys, 1)

	kr, err := m.Keyring()
	require.NoError(t, err)

	blob, version, err := kr.Encrypt([]byte("111222333"))
	require.NoError(t, err)
	assert.Equal(t, 2, version)
	got, err := kr.Decrypt(blob, 2)
	require.NoError(t, err)
	assert.Equal(t, "111222333", string(got))
}

func TestParseKeyMaterialRejectsBadInput(t *testing.T) {
	current := hex.EncodeToString(testKey(t))
	hash := hex.EncodeToString(testKey(t))

	_, err := ParseKeyMaterial("zz", 1, hash, "")
	assert.Error(t, err)

	_, err = ParseKeyMaterial(current, 1, "abcd", "")
	assert.Error(t, err, "short hash key must be rejected")

	_, err = ParseKeyMaterial(current, 2, hash, "not-a-pair")
	assert.Error(t, err)
}

func TestKeyVersionField(t *testing.T) {
	tests := []struct {
		name    string
		value   interface{}
		want    int
		wantErr bool
	}{
		{"absent defaults to 1", nil, 1, false},
		{"string", "3", 3, false},
		{"vault json number", json.Number("7"), 7, false},
		{"float64", float64(4), 4, false},
		{"garbage string", "three", 0, true},
		{"garbage number", json.Number("7.5"), 0, true},
		{"unsupported type", true, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := keyVersionField(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
