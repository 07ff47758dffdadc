package frummy

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-router"
)

// Logger is the minimal logging surface the package needs. Trailing args are
// key-value pairs, slog style.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// State is the provider's loading flag. It starts at StateUnknown and moves
// to StateResolved exactly once per Start; it never moves back.
type State int

const (
	StateUnknown State = iota
	StateResolved
)

func (s State) Resolved() bool {
	return s == StateResolved
}

func (s State) String() string {
	if s == StateResolved {
		return "resolved"
	}
	return "unknown"
}

// AuthEvent names a session change pushed by the identity service.
type AuthEvent string

const (
	AuthSignedIn       AuthEvent = "SIGNED_IN"
	AuthSignedOut      AuthEvent = "SIGNED_OUT"
	AuthTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
)

// AuthChangeListener receives session change pushes. Session is nil on
// sign-out.
type AuthChangeListener func(event AuthEvent, session *Session)

// Credentials is the payload for password based sign-in and sign-up.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// IdentityService is the external system of record for authentication. The
// backend owns every session; we only cache what it hands us.
type IdentityService interface {
	SignIn(ctx context.Context, creds Credentials) (*Session, error)
	SignUp(ctx context.Context, creds Credentials) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
	Recover(ctx context.Context, email string) error
	CurrentSession(ctx context.Context) (*Session, error)
	RefreshSession(ctx context.Context, refreshToken string) (*Session, error)
	OnAuthChange(fn AuthChangeListener) func()
}

// SessionResolver resolves the (session, state) pair the guard consumes.
// Provider implements it for embedded use; RouteSessions implements it per
// request for the web template.
type SessionResolver interface {
	Resolve(c router.Context) (*Session, State)
}

// Config holds the settings the package needs from the host application.
type Config interface {
	GetBackendURL() string
	GetAnonKey() string
	GetCookieName() string
	GetCookieDuration() int // hours
	GetLoginPath() string
	GetRejectedRouteKey() string
	GetRejectedRouteDefault() string
}

type defLogger struct{}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Println(logLine("ERR", msg, args))
}

func (d defLogger) Warn(msg string, args ...any) {
	fmt.Println(logLine("WRN", msg, args))
}

func (d defLogger) Info(msg string, args ...any) {
	fmt.Println(logLine("INF", msg, args))
}

func (d defLogger) Debug(msg string, args ...any) {
	fmt.Println(logLine("DBG", msg, args))
}

// logLine renders trailing args as key=value pairs, matching the slog style
// every call site in this package uses.
func logLine(level, msg string, args []any) string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(level)
	b.WriteString("] FRUMMY ")
	b.WriteString(strings.TrimRight(msg, ": "))

	for i := 0; i+1 < len(args); i += 2 {
		fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
	}
	if len(args)%2 != 0 {
		fmt.Fprintf(&b, " %v", args[len(args)-1])
	}

	return b.String()
}
