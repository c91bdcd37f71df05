package domain

import "time"

// VerificationCode is a single-use code e-mailed to prove address ownership.
// There is at most one live code per email.
type VerificationCode struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (c *VerificationCode) IsExpired(reference time.Time) bool {
	if c == nil {
		return true
	}
	if reference.IsZero() {
		reference = time.Now()
	}
	return !c.ExpiresAt.After(reference)
}
