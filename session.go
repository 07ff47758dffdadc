package frummy

import (
	"fmt"
	"time"
)

// Session is the cached copy of a backend issued session: an identity plus
// its token material. The identity service owns the real thing; this copy is
// invalidated on sign-out or token expiry.
type Session struct {
	UserID       string     `json:"user_id,omitempty"`
	Email        string     `json:"email,omitempty"`
	AccessToken  string     `json:"access_token,omitempty"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

func (s *Session) GetUserID() string {
	return s.UserID
}

func (s *Session) GetEmail() string {
	return s.Email
}

// Expired reports whether the token lifetime has passed. Sessions without an
// expiry are treated as live; the backend will reject them if they are not.
func (s *Session) Expired() bool {
	if s == nil || s.ExpiresAt == nil {
		return false
	}
	return time.Now().After(*s.ExpiresAt)
}

// Valid reports whether the session can authenticate a request right now.
func (s *Session) Valid() bool {
	return s != nil && s.AccessToken != "" && !s.Expired()
}

func (s Session) String() string {
	expires := "<nil>"
	if s.ExpiresAt != nil {
		expires = s.ExpiresAt.Format(time.RFC1123)
	}
	// token material stays out of logs
	return fmt.Sprintf("user=%s email=%s expires=%s", s.UserID, s.Email, expires)
}
