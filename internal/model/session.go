package model

import "time"

// Session is one row of the session registry.  A refresh token is honoured
// only while a row with its user id and sessid exists and has not expired.
type Session struct {
	ID        uint64    `json:"id"`        // sessions.id
	UserID    uint64    `json:"UserId"`    // sessions.user_id
	Sessid    string    `json:"sessid"`    // sessions.sessid (7 digits)
	ExpiresAt time.Time `json:"expiresAt"` // sessions.expires_at
	CreatedAt time.Time `json:"createdAt"` // sessions.created_at
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
