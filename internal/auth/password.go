package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

// ErrMalformedHash is returned when a stored password hash is not in the
// expected "hex(key).hex(salt)" form. This indicates data corruption, not
// a wrong password, and must not be reported as invalid credentials.
var ErrMalformedHash = errors.New("malformed password hash")

// scrypt cost parameters, fixed at hash-creation time.
const (
	scryptN       = 32768
	scryptR       = 8
	scryptP       = 1
	scryptKeyLen  = 64
	scryptSaltLen = 16
)

// HashPassword derives a salted scrypt hash of plain, stored as
// hex(derivedKey) + "." + hex(salt). A fresh random salt is drawn per
// call, so hashing the same password twice yields different results.
func HashPassword(plain string) (string, error) {
	salt := make([]byte, scryptSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key, err := scrypt.Key([]byte(plain), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return "", fmt.Errorf("derive key: %w", err)
	}
	return hex.EncodeToString(key) + "." + hex.EncodeToString(salt), nil
}

// VerifyPassword re-derives the key from plain and the stored salt and
// compares it to the stored key in constant time.
func VerifyPassword(plain, stored string) (bool, error) {
	keyHex, saltHex, ok := strings.Cut(stored, ".")
	if !ok {
		return false, ErrMalformedHash
	}
	wantKey, err := hex.DecodeString(keyHex)
	if err != nil {
		return false, ErrMalformedHash
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false, ErrMalformedHash
	}
	if len(wantKey) == 0 || len(salt) == 0 {
		return false, ErrMalformedHash
	}
	key, err := scrypt.Key([]byte(plain), salt, scryptN, scryptR, scryptP, len(wantKey))
	if err != nil {
		return false, fmt.Errorf("derive key: %w", err)
	}
	return subtle.ConstantTimeCompare(key, wantKey) == 1, nil
}
