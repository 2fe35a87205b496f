// Package identity derives the privacy-preserving claimant identity used as
// the one-claim-per-identity uniqueness key. The raw network origin is never
// stored; only a keyed hash of it is.
package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint hashes the requester's network origin with a server-side pepper.
// The result is stable per origin but cannot be reversed to the origin itself.
func Fingerprint(pepper, origin string) string {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(origin))
	return hex.EncodeToString(mac.Sum(nil))
}
