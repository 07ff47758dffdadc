package frummy

import (
	"errors"
	"time"

	"github.com/StuMason/frummy-supabase/sessionstore"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// RouteSessions is the web template's session transport: an opaque id cookie
// pointing at a stored session record. Token material stays server side.
//
// It doubles as the guard's per-request SessionResolver.
type RouteSessions struct {
	cfg            Config
	identity       IdentityService
	records        sessionstore.Store
	cookieDuration time.Duration
	Logger         Logger
}

var _ SessionResolver = (*RouteSessions)(nil)

func NewRouteSessions(cfg Config, identity IdentityService, records sessionstore.Store) (*RouteSessions, error) {
	if identity == nil {
		return nil, errors.New("route sessions require an identity service")
	}
	if records == nil {
		return nil, errors.New("route sessions require a session store")
	}

	cookieDuration := 24 * time.Hour
	if cfg.GetCookieDuration() > 0 {
		cookieDuration = time.Duration(cfg.GetCookieDuration()) * time.Hour
	}

	return &RouteSessions{
		cfg:            cfg,
		identity:       identity,
		records:        records,
		cookieDuration: cookieDuration,
		Logger:         defLogger{},
	}, nil
}

func (rs *RouteSessions) WithLogger(logger Logger) *RouteSessions {
	if logger != nil {
		rs.Logger = logger
	}
	return rs
}

func (rs *RouteSessions) GetCookieDuration() time.Duration {
	return rs.cookieDuration
}

// Establish stores the session and points a fresh cookie at it.
func (rs *RouteSessions) Establish(c router.Context, session *Session) error {
	record := &sessionstore.Record{
		ID:           uuid.New(),
		UserID:       session.UserID,
		Email:        session.Email,
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		ExpiresAt:    session.ExpiresAt,
	}

	if err := rs.records.Put(c.Context(), record); err != nil {
		return err
	}

	rs.setCookie(c, record.ID.String(), rs.cookieDuration)
	return nil
}

// Destroy drops the stored record and clears the cookie. The identity side
// of sign-out is the controller's call; a dead backend must not keep a
// browser signed in locally.
func (rs *RouteSessions) Destroy(c router.Context) error {
	defer rs.cookieDel(c, rs.cfg.GetCookieName())

	id, err := rs.cookieID(c)
	if err != nil {
		return nil
	}

	return rs.records.Delete(c.Context(), id)
}

// Resolve maps the request cookie to the provider's (session, state) pair:
//
//   - no cookie, unknown id, missing record: resolved signed out
//   - store unreachable: unknown, so the guard shows the placeholder
//     instead of bouncing a possibly signed-in user to login
//   - expired record: refreshed through the identity service when possible,
//     otherwise resolved signed out
func (rs *RouteSessions) Resolve(c router.Context) (*Session, State) {
	id, err := rs.cookieID(c)
	if err != nil {
		return nil, StateResolved
	}

	record, err := rs.records.Get(c.Context(), id)
	if err != nil {
		if errors.Is(err, sessionstore.ErrNotFound) {
			rs.cookieDel(c, rs.cfg.GetCookieName())
			return nil, StateResolved
		}
		rs.Logger.Error("session store lookup failed", "error", err)
		return nil, StateUnknown
	}

	if record.Expired() {
		return rs.refresh(c, record)
	}

	return sessionFromRecord(record), StateResolved
}

func (rs *RouteSessions) refresh(c router.Context, record *sessionstore.Record) (*Session, State) {
	if record.RefreshToken == "" {
		rs.discard(c, record.ID)
		return nil, StateResolved
	}

	session, err := rs.identity.RefreshSession(c.Context(), record.RefreshToken)
	if err != nil || session == nil {
		rs.Logger.Info("session refresh failed, signing out", "user_id", record.UserID, "error", err)
		rs.discard(c, record.ID)
		return nil, StateResolved
	}

	record.AccessToken = session.AccessToken
	record.RefreshToken = session.RefreshToken
	record.ExpiresAt = session.ExpiresAt
	if err := rs.records.Put(c.Context(), record); err != nil {
		rs.Logger.Error("failed to persist refreshed session", "error", err)
	}

	return session, StateResolved
}

func (rs *RouteSessions) discard(c router.Context, id uuid.UUID) {
	if err := rs.records.Delete(c.Context(), id); err != nil {
		rs.Logger.Error("failed to delete session record", "error", err)
	}
	rs.cookieDel(c, rs.cfg.GetCookieName())
}

func (rs *RouteSessions) cookieID(c router.Context) (uuid.UUID, error) {
	raw := c.Cookies(rs.cfg.GetCookieName())
	if raw == "" {
		return uuid.Nil, ErrNoSession
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		rs.cookieDel(c, rs.cfg.GetCookieName())
		return uuid.Nil, ErrNoSession
	}

	return id, nil
}

// SetRedirect remembers the rejected route so login can send the user back.
func (rs *RouteSessions) SetRedirect(c router.Context) {
	rejectedRoute := rs.cfg.GetRejectedRouteKey()

	rs.Logger.Info("Setting redirect cookie", "key", rejectedRoute, "path", c.OriginalURL())

	c.Cookie(&router.Cookie{
		Name:     rejectedRoute,
		Value:    c.OriginalURL(),
		Expires:  time.Now().Add(time.Minute * 5),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (rs *RouteSessions) GetRedirect(c router.Context, def ...string) string {
	rejectedRoute := rs.cfg.GetRejectedRouteKey()
	r := c.Cookies(rejectedRoute)
	if r == "" {
		if len(def) > 0 {
			return def[0]
		}
		return rs.cfg.GetRejectedRouteDefault()
	}
	rs.cookieDel(c, rejectedRoute)
	return r
}

func (rs *RouteSessions) GetRedirectOrDefault(c router.Context) string {
	rejectedRoute := rs.cfg.GetRejectedRouteKey()

	r := c.Cookies(rejectedRoute)
	if r == "" {
		r = rs.cfg.GetRejectedRouteDefault()
	}
	rs.cookieDel(c, rejectedRoute)
	return r
}

func (rs *RouteSessions) setCookie(c router.Context, val string, duration time.Duration) {
	c.Cookie(&router.Cookie{
		Name:     rs.cfg.GetCookieName(),
		Value:    val,
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (rs *RouteSessions) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func sessionFromRecord(record *sessionstore.Record) *Session {
	return &Session{
		UserID:       record.UserID,
		Email:        record.Email,
		AccessToken:  record.AccessToken,
		RefreshToken: record.RefreshToken,
		ExpiresAt:    record.ExpiresAt,
	}
}
