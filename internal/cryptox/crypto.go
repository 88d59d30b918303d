// Package cryptox implements the credential and session-token primitives:
// per-account random salts, wide password digests, opaque bearer tokens,
// and the salted digest used by the challenge-response login variant.
package cryptox

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"unicode"

	"golang.org/x/crypto/sha3"
)

const (
	// SaltSize is the number of random bytes in a credential or challenge salt.
	SaltSize = 64
	// TokenSize is the number of random bytes in a session token.
	TokenSize = 64
)

// GenerateSalt returns SaltSize cryptographically random bytes. Salts are
// never reused: every credential update draws a fresh one.
func GenerateSalt() ([]byte, error) {
	b := make([]byte, SaltSize)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// HashPassword returns the hex-encoded SHA-512 digest of the salt followed
// by the password bytes.
func HashPassword(password string, salt []byte) string {
	h := sha512.New()
	h.Write(salt)
	h.Write([]byte(password))
	return hex.EncodeToString(h.Sum(nil))
}

// NewSessionToken returns a fresh opaque bearer token: TokenSize random
// bytes, base64-encoded. The token carries no claims; it is only valid
// while the server holds a matching row.
func NewSessionToken() (string, error) {
	b := make([]byte, TokenSize)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// ChallengeDigest returns the hex-encoded SHA3-512 digest of the salt
// followed by the session token, as computed by a challenge-response client.
func ChallengeDigest(salt []byte, token string) string {
	h := sha3.New512()
	h.Write(salt)
	h.Write([]byte(token))
	return hex.EncodeToString(h.Sum(nil))
}

// ConstantTimeEquals compares two digests without leaking their content
// through timing. Inputs are fixed-width hex strings, so the length check
// inside ConstantTimeCompare reveals nothing secret.
func ConstantTimeEquals(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// ValidatePassword reports whether a password meets the local-account
// policy: at least 8 characters, one uppercase letter, one lowercase
// letter, one digit, no whitespace, ASCII only.
func ValidatePassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	var upper, lower, digit bool
	for _, c := range password {
		if c > unicode.MaxASCII || unicode.IsSpace(c) {
			return false
		}
		switch {
		case unicode.IsUpper(c):
			upper = true
		case unicode.IsLower(c):
			lower = true
		case unicode.IsDigit(c):
			digit = true
		}
	}
	return upper && lower && digit
}
