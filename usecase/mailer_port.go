package usecase

import (
	"context"
	"time"
)

// VerificationMail is the message carrying a one-time code.
type VerificationMail struct {
	Email     string
	Code      string
	ExpiresAt time.Time
}

// Mailer delivers verification codes.
type Mailer interface {
	SendVerificationCode(ctx context.Context, mail VerificationMail) error
}

// Geolocator resolves a client IP to a human readable location. An empty
// result means the location is unknown.
type Geolocator interface {
	Locate(ctx context.Context, ip string) string
}
