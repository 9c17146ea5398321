package session

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// Codes use every uppercase letter and digit.
const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// CodeLength is the number of characters in a session code.
const CodeLength = 4

// GenerateCode returns a random session code.
func GenerateCode() (string, error) {
	code := make([]byte, CodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			return "", err
		}
		code[i] = alphabet[n.Int64()]
	}
	return string(code), nil
}

// NormalizeCode upper-cases and trims a code typed by a participant.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
