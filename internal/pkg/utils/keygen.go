package utils

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const base62Chars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateKey returns prefix plus length random base62 characters. Used for
// generated claim and admin passwords when the creator does not supply one.
func GenerateKey(prefix string, length int) (string, error) {
	var sb strings.Builder
	sb.WriteString(prefix)

	for range length {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(base62Chars))))
		if err != nil {
			return "", err
		}
		sb.WriteByte(base62Chars[num.Int64()])
	}

	return sb.String(), nil
}
