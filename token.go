package frummy

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims are the claims we read out of a backend issued access token.
// The signing key belongs to the backend, so tokens are decoded rather than
// verified; the backend re-checks the signature on every request we proxy.
type AccessClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

var _ jwt.Claims = (*AccessClaims)(nil)

// UserID returns the stable user identifier
func (c *AccessClaims) UserID() string {
	return c.RegisteredClaims.Subject
}

// Expires returns the expiration time
func (c *AccessClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// DecodeAccessToken parses a raw access token without verifying its
// signature.
func DecodeAccessToken(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, ErrUnableToParseToken
	}
	return claims, nil
}

// sessionFromToken builds a Session from bare token material, filling the
// identity fields from the token claims.
func sessionFromToken(accessToken, refreshToken string) (*Session, error) {
	claims, err := DecodeAccessToken(accessToken)
	if err != nil {
		return nil, err
	}

	session := &Session{
		UserID:       claims.UserID(),
		Email:        claims.Email,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}

	if exp := claims.Expires(); !exp.IsZero() {
		session.ExpiresAt = &exp
	}

	return session, nil
}
