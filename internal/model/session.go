package model

import "time"

// Session binds a session token to one user until it expires or is revoked.
type Session struct {
	ID         string    `db:"id"`
	UserID     string    `db:"user_id"`
	UserAgent  string    `db:"user_agent"`
	IPAddress  string    `db:"ip_address"`
	ExpiresAt  time.Time `db:"expires_at"`
	CreatedAt  time.Time `db:"created_at"`
	LastSeenAt time.Time `db:"last_seen_at"`
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// ClientInfo describes the caller that opens a session.
type ClientInfo struct {
	UserAgent string
	IPAddress string
}

// AuthSession is the outcome of a successful login or registration.
type AuthSession struct {
	Token     string
	ExpiresAt time.Time
	User      *User
}
