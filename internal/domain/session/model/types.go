package model

import "time"

// Session is the server-issued opaque credential proving a successful
// two-factor login. A token is valid iff a matching unexpired row exists;
// rows are never reissued or mutated, only deleted.
type Session struct {
	Token         string    `json:"token"`
	ClientAddress string    `json:"client_address,omitempty"`
	IssuedAt      time.Time `json:"issued_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its validity window.
func (s Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Logger provides the minimal logging contract required by the session domain.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}
