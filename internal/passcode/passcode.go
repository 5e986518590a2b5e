// Package passcode implements the one-time passcode lifecycle: generation,
// hashed storage, dispatch through the active connector, and validation with
// expiry and attempt limits.
package passcode

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

const codeDigits = 6

// Generate returns a 6-digit numeric passcode string (e.g. "123456").
// Uses crypto/rand for randomness. Bytes of 250 and above are discarded so
// every digit is equally likely.
func Generate() (string, error) {
	s := make([]byte, codeDigits)
	buf := make([]byte, 1)
	for i := 0; i < codeDigits; {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		if buf[0] >= 250 {
			continue
		}
		s[i] = '0' + buf[0]%10
		i++
	}
	return string(s), nil
}

// Hash returns a SHA-256 hash of the passcode, hex-encoded. Only the hash is
// ever persisted.
func Hash(code string) string {
	h := sha256.Sum256([]byte(code))
	return hex.EncodeToString(h[:])
}

// Equal performs constant-time comparison of the provided code's hash with
// the stored hash.
func Equal(providedCode, storedHash string) bool {
	providedHash := Hash(providedCode)
	return subtle.ConstantTimeCompare([]byte(providedHash), []byte(storedHash)) == 1
}
