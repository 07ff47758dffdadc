package frummy

import (
	"errors"
	"strings"
)

// ErrNoSession is returned when a request carries no usable session
var ErrNoSession = errors.New("no active session")

// ErrSessionExpired is returned for sessions whose token lifetime has passed
var ErrSessionExpired = errors.New("session expired")

// ErrInvalidCredentials is the error for rejected sign-in attempts
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrUnableToParseToken means the access token could not be decoded
var ErrUnableToParseToken = errors.New("unable to parse access token")

// ErrProviderClosed is returned by operations on a torn down provider
var ErrProviderClosed = errors.New("session provider closed")

// IsInvalidGrantError matches the identity service's rejection messages
func IsInvalidGrantError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrInvalidCredentials) ||
		strings.Contains(err.Error(), "invalid_grant") ||
		strings.Contains(err.Error(), "Invalid login credentials")
}

// IsSessionExpiredError will check for expired sessions
func IsSessionExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrSessionExpired) ||
		strings.Contains(err.Error(), "token is expired")
}
