package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateKey(t *testing.T) {
	key, err := GenerateKey("ck-", 24)

	assert.NoError(t, err)
	assert.Len(t, key, 27)
	assert.True(t, strings.HasPrefix(key, "ck-"))
	for _, r := range key[3:] {
		assert.Contains(t, base62Chars, string(r))
	}
}

func TestGenerateKey_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key, err := GenerateKey("", 16)
		assert.NoError(t, err)
		assert.False(t, seen[key], "duplicate key %s", key)
		seen[key] = true
	}
}
