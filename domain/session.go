package domain

import "time"

// Session is the server-side record bound to a hashed client token.
// ID is the sha256 of the token; the token itself is never persisted.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionMetadata describes the client that opened a session.
type SessionMetadata struct {
	Location  string `json:"location"`
	Browser   string `json:"browser"`
	Device    string `json:"device"`
	OS        string `json:"os"`
	IPAddress string `json:"ip_address,omitempty"`
}

// SessionWithUser is what every cache tier holds for a session id.
type SessionWithUser struct {
	Session Session
	User    User
}

func (s *Session) IsExpired(reference time.Time) bool {
	if s == nil {
		return true
	}
	if reference.IsZero() {
		reference = time.Now()
	}
	return !s.ExpiresAt.After(reference)
}

// NeedsRefresh reports whether reference falls inside the trailing refresh
// window before expiry.
func (s *Session) NeedsRefresh(reference time.Time, window time.Duration) bool {
	if s == nil {
		return false
	}
	return !reference.Before(s.ExpiresAt.Add(-window))
}

// DefaultSessionMetadata is used when enrichment fails entirely.
func DefaultSessionMetadata() SessionMetadata {
	return SessionMetadata{
		Location:  "Unknown",
		Browser:   "Unknown Browser",
		Device:    "Unknown Device",
		OS:        "Unknown OS",
		IPAddress: "127.0.0.1",
	}
}
