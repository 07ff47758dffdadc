package frummy

import (
	"net/http"

	"github.com/goliatone/go-router"
)

// Guard gates handlers on the resolver's (session, state) pair:
//
//   - StateUnknown renders the placeholder view; no protected content, no
//     redirect.
//   - resolved without a usable session issues a single redirect to the
//     login path.
//   - resolved with a session runs the protected handler with the session in
//     locals and in the request context.
//
// The guard is router level middleware on purpose: the per-view variant of
// this check is too easy to forget.
type Guard struct {
	Resolver        SessionResolver
	LoginPath       string
	PlaceholderView string
	ContextKey      string
	Logger          Logger
	// SetReturnPath stashes the rejected route so the login flow can send
	// the user back. Optional.
	SetReturnPath func(router.Context)
}

// NewGuard builds a guard with the package defaults filled in.
func NewGuard(resolver SessionResolver, cfg Config) *Guard {
	loginPath := "/auth/login"
	if cfg != nil && cfg.GetLoginPath() != "" {
		loginPath = cfg.GetLoginPath()
	}

	return &Guard{
		Resolver:        resolver,
		LoginPath:       loginPath,
		PlaceholderView: "loading",
		ContextKey:      DefaultSessionKey,
		Logger:          defLogger{},
	}
}

func (g *Guard) WithLogger(logger Logger) *Guard {
	if logger != nil {
		g.Logger = logger
	}
	return g
}

// Protect returns the middleware applied to protected route groups.
func (g *Guard) Protect() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			session, state := g.Resolver.Resolve(c)

			if state == StateUnknown {
				return c.Render(g.PlaceholderView, router.ViewContext{
					"path": c.OriginalURL(),
				})
			}

			if !session.Valid() {
				g.Logger.Info("rejecting unauthenticated request", "path", c.OriginalURL())
				if g.SetReturnPath != nil {
					g.SetReturnPath(c)
				}
				return c.Redirect(g.LoginPath, redirectStatus(c))
			}

			c.Locals(g.ContextKey, session)
			c.SetContext(WithSession(c.Context(), session))

			return next(c)
		}
	}
}

// redirectStatus keeps GET redirects cacheless-friendly and forces method
// downgrade for everything else.
func redirectStatus(c router.Context) int {
	if c.Method() == string(router.GET) {
		return http.StatusFound
	}
	return http.StatusSeeOther
}
