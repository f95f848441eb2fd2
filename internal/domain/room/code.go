package room

import (
	"crypto/rand"
	"strings"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// CodeLength is the length of generated room codes.
const CodeLength = 6

// GenerateCode returns a random room code. Uniqueness among live rooms is the
// registry's responsibility.
func GenerateCode() string {
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}

	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}

	return string(buf)
}

// NormalizeCode upper-cases and trims user-entered codes. Registry lookups
// are exact-string after normalization.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
