package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint(t *testing.T) {
	fp := Fingerprint("pepper", "203.0.113.7")

	// hex-encoded sha256, stable for the same inputs
	assert.Len(t, fp, 64)
	assert.Equal(t, fp, Fingerprint("pepper", "203.0.113.7"))
}

func TestFingerprint_DistinguishesInputs(t *testing.T) {
	base := Fingerprint("pepper", "203.0.113.7")

	assert.NotEqual(t, base, Fingerprint("pepper", "203.0.113.8"))
	assert.NotEqual(t, base, Fingerprint("other-pepper", "203.0.113.7"))
}
