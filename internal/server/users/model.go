// Package users manages accounts: registration, password login, token
// authentication, and credential rotation.
package users

import "time"

// User is an authenticated account. Local accounts carry both a password
// hash and a salt; federated accounts carry neither — never only one of
// the two.
type User struct {
	ID                 int32
	Username           string
	PasswordHash       string
	PasswordSalt       []byte
	MustChangePassword bool
	CreatedAt          time.Time
}

// IsLocal reports whether the account has local credential material and
// can use the password path.
func (u *User) IsLocal() bool {
	return u.PasswordHash != "" && len(u.PasswordSalt) > 0
}
