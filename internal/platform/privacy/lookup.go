package privacy

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// LookupHash computes a deterministic HMAC-SHA-256 digest of the normalized
// identifier under the dedicated hash key. The hash key is separate from the
// data keys and does not rotate, so stored digests stay usable for equality
// search across data-key rotations.
func LookupHash(plaintext string, hashKey []byte) string {
	mac := hmac.New(sha256.New, hashKey)
	mac.Write([]byte(NormalizeBSN(plaintext)))
	return hex.EncodeToString(mac.Sum(nil))
}
