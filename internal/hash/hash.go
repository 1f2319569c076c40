// Package hash derives and verifies salted password digests.
//
// Digests are argon2id keys over password+salt; salt and digest travel as
// hex strings so the caller can persist them separately. Plaintext passwords
// are never stored or logged.
package hash

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

const (
	saltSize    = 16
	keySize     = 32
	timeCost    = 1
	memoryKB    = 64 * 1024
	parallelism = 2
)

// HashPassword derives a digest for password with a fresh random salt and
// returns both, hex-encoded.
func HashPassword(password string) (digest, salt string, err error) {
	raw := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", "", fmt.Errorf("hash: salt generation: %w", err)
	}
	salt = hex.EncodeToString(raw)
	return hashWithSalt(password, raw), salt, nil
}

// CheckPassword recomputes the digest for password under salt and compares it
// to the stored digest in constant time.
func CheckPassword(password, digest, salt string) bool {
	raw, err := hex.DecodeString(salt)
	if err != nil {
		return false
	}
	computed := hashWithSalt(password, raw)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(digest)) == 1
}

func hashWithSalt(password string, salt []byte) string {
	key := argon2.IDKey([]byte(password), salt, timeCost, memoryKB, parallelism, keySize)
	return hex.EncodeToString(key)
}
