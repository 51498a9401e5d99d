// Package credential implements the password and token primitives: Argon2id
// hashing, random token generation, and constant-time verification.
package credential

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"strings"

	"github.com/alexedwards/argon2id"

	"authgate/internal/apperr"
)

// HashPassword returns an Argon2id PHC string for the given plaintext,
// using a fresh random salt from a CSPRNG.
func HashPassword(plaintext string) (string, error) {
	hash, err := argon2id.CreateHash(plaintext, argon2id.DefaultParams)
	if err != nil {
		return "", apperr.PasswordHash(err)
	}
	return hash, nil
}

// VerifyPassword reports whether plaintext matches the given PHC string.
// An invalid PHC string is surfaced as an error, not a false result.
func VerifyPassword(plaintext, phc string) (bool, error) {
	match, err := argon2id.ComparePasswordAndHash(plaintext, phc)
	if err != nil {
		return false, apperr.PasswordHash(err)
	}
	return match, nil
}

// GenerateToken returns a fresh random bearer token: the plaintext to hand
// back to the caller once, and the lowercase hex SHA-256 digest to persist.
func GenerateToken() (plaintext string, hashHex string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	plaintext = base64.StdEncoding.EncodeToString(buf)
	sum := sha256.Sum256([]byte(plaintext))
	hashHex = hex.EncodeToString(sum[:])
	return plaintext, hashHex, nil
}

// VerifyToken reports whether plaintext hashes to storedHex.
func VerifyToken(plaintext, storedHex string) bool {
	sum := sha256.Sum256([]byte(plaintext))
	gotHex := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(gotHex), []byte(storedHex)) == 1
}

// ParseBasicAuthHeader parses an "Authorization: Basic ..." header value,
// returning the decoded username and password.
func ParseBasicAuthHeader(value string) (user, pass string, ok bool) {
	const prefix = "Basic "
	if !strings.HasPrefix(value, prefix) {
		return "", "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(value[len(prefix):])
	if err != nil {
		return "", "", false
	}
	parts := strings.SplitN(string(decoded), ":", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// ParseBearerAuthHeader strips the "Bearer " prefix from an Authorization
// header value.
func ParseBearerAuthHeader(value string) (token string, ok bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(value, prefix) {
		return "", false
	}
	return value[len(prefix):], true
}
