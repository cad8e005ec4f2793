// Package auth implements the single canonical identity contract: signup and
// login with bcrypt-hashed passwords, and stateless JWT bearer tokens carrying
// the user id. Historical variants of the session contract (cookie sessions,
// header-passed ids) are deliberately not supported alongside it.
package auth

import (
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLen is the minimum accepted password length at signup.
const MinPasswordLen = 6

var emailRE = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidEmail reports whether s looks like an email address. The check is
// intentionally shallow; deliverability is not our problem at signup time.
func ValidEmail(s string) bool {
	return emailRE.MatchString(strings.TrimSpace(s))
}

// HashPassword returns the bcrypt hash of a plaintext password.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether the plaintext password matches the stored
// bcrypt hash.
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
