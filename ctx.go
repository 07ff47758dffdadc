package frummy

import (
	"context"

	"github.com/goliatone/go-router"
)

// DefaultSessionKey is the locals key the guard stores the session under.
const DefaultSessionKey = "session"

var sessionCtxKey = &contextKey{"session"}

type contextKey struct {
	name string
}

// WithSession sets the Session in the given context
func WithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey, session)
}

// SessionFromContext finds the session from the context.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	raw, ok := ctx.Value(sessionCtxKey).(*Session)
	return raw, ok
}

// SessionFromRouter extracts the session stashed in router locals by the
// guard.
func SessionFromRouter(c router.Context, key string) (*Session, error) {
	if key == "" {
		key = DefaultSessionKey
	}

	raw := c.Locals(key)
	if raw == nil {
		return nil, ErrNoSession
	}

	session, ok := raw.(*Session)
	if !ok || session == nil {
		return nil, ErrNoSession
	}

	return session, nil
}
