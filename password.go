package whisperwall

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// argon2id parameters. Deliberately slow but bounded; tune memory/threads
// before raising time.
const (
	passwordSaltLen = 16
	argonTime       = 1
	argonMemory     = 64 * 1024
	argonThreads    = 4
	argonKeyLen     = 32
)

// HashPassword generates a random salt and computes the argon2id hash of the
// plaintext over it. The plaintext is never stored or logged.
func HashPassword(plaintext string) (hash, salt []byte, err error) {
	salt = make([]byte, passwordSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return hashWithSalt(plaintext, salt), salt, nil
}

// VerifyPassword recomputes the hash over the supplied plaintext with the
// stored salt and compares in constant time.
func VerifyPassword(plaintext string, hash, salt []byte) bool {
	if len(hash) == 0 || len(salt) == 0 {
		return false
	}
	computed := hashWithSalt(plaintext, salt)
	return subtle.ConstantTimeCompare(computed, hash) == 1
}

func hashWithSalt(plaintext string, salt []byte) []byte {
	return argon2.IDKey([]byte(plaintext), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}
