package domain

import "time"

// User is the read-mostly projection attached to a session. It never carries
// the password hash, so it is safe to cache.
type User struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Username      string     `json:"username"`
	Avatar        string     `json:"avatar"`
	EmailVerified bool       `json:"email_verified"`
	Registered2FA bool       `json:"registered_2fa"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at"`
}

// UserRecord is the full credential row as stored in Postgres.
type UserRecord struct {
	User
	PasswordHash string `json:"-"`
}

// HasPassword reports whether the account can sign in with a password.
func (u *UserRecord) HasPassword() bool {
	return u != nil && u.PasswordHash != ""
}
