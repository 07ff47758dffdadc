package frummy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-errors"
)

// IdentityClient consumes the backend's identity API. It keeps one cached
// session for embedded use and fans every state change out to registered
// listeners; the backend remains the system of record.
type IdentityClient struct {
	baseURL string
	anonKey string
	http    *http.Client
	logger  Logger

	mu        sync.Mutex
	session   *Session
	nextID    int
	listeners map[int]AuthChangeListener
}

var _ IdentityService = (*IdentityClient)(nil)

// NewIdentityClient returns a client for the configured backend.
func NewIdentityClient(cfg Config) *IdentityClient {
	return &IdentityClient{
		baseURL: strings.TrimRight(cfg.GetBackendURL(), "/"),
		anonKey: cfg.GetAnonKey(),
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:    defLogger{},
		listeners: map[int]AuthChangeListener{},
	}
}

func (c *IdentityClient) WithLogger(logger Logger) *IdentityClient {
	if logger != nil {
		c.logger = logger
	}
	return c
}

func (c *IdentityClient) WithHTTPClient(client *http.Client) *IdentityClient {
	if client != nil {
		c.http = client
	}
	return c
}

// tokenResponse is the identity service's grant payload
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

func (r tokenResponse) toSession() (*Session, error) {
	if r.AccessToken == "" {
		return nil, nil
	}

	session := &Session{
		UserID:       r.User.ID,
		Email:        r.User.Email,
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
	}

	if r.ExpiresIn > 0 {
		expires := time.Now().Add(time.Duration(r.ExpiresIn) * time.Second)
		session.ExpiresAt = &expires
	}

	if session.UserID == "" {
		// fall back to the token claims when the grant omits the user record
		decoded, err := sessionFromToken(r.AccessToken, r.RefreshToken)
		if err != nil {
			return nil, err
		}
		session.UserID = decoded.UserID
		if session.Email == "" {
			session.Email = decoded.Email
		}
		if session.ExpiresAt == nil {
			session.ExpiresAt = decoded.ExpiresAt
		}
	}

	return session, nil
}

// SignIn performs a password grant against the identity service. On success
// the new session is cached and pushed to listeners.
func (c *IdentityClient) SignIn(ctx context.Context, creds Credentials) (*Session, error) {
	var res tokenResponse
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "", creds, &res); err != nil {
		if IsInvalidGrantError(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	session, err := res.toSession()
	if err != nil {
		return nil, err
	}

	// a grant without token material is not a sign in; pushing a nil
	// session would read as sign-out to every listener
	if session != nil {
		c.setSession(session, AuthSignedIn)
	}

	return session, nil
}

// SignUp registers new credentials. Backends that require email confirmation
// answer without token material; in that case the returned session is nil
// and no event fires.
func (c *IdentityClient) SignUp(ctx context.Context, creds Credentials) (*Session, error) {
	var res tokenResponse
	if err := c.do(ctx, http.MethodPost, "/auth/v1/signup", "", creds, &res); err != nil {
		return nil, err
	}

	session, err := res.toSession()
	if err != nil {
		return nil, err
	}

	if session != nil {
		c.setSession(session, AuthSignedIn)
	}

	return session, nil
}

// SignOut asks the identity service to revoke the given token. The signed
// out push happens only after the service confirms; a failed request leaves
// the cached session untouched.
func (c *IdentityClient) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		c.mu.Lock()
		if c.session != nil {
			accessToken = c.session.AccessToken
		}
		c.mu.Unlock()
	}

	if accessToken == "" {
		return nil
	}

	if err := c.do(ctx, http.MethodPost, "/auth/v1/logout", accessToken, nil, nil); err != nil {
		return err
	}

	c.setSession(nil, AuthSignedOut)
	return nil
}

// Recover asks the identity service to start password recovery for the
// given email. The service responds identically for unknown addresses.
func (c *IdentityClient) Recover(ctx context.Context, email string) error {
	payload := map[string]string{"email": email}
	return c.do(ctx, http.MethodPost, "/auth/v1/recover", "", payload, nil)
}

// CurrentSession returns the cached session, refreshing it first when the
// token lifetime has passed. (nil, nil) means signed out.
func (c *IdentityClient) CurrentSession(ctx context.Context) (*Session, error) {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()

	if session == nil {
		return nil, nil
	}

	if !session.Expired() {
		return session, nil
	}

	if session.RefreshToken == "" {
		c.setSession(nil, AuthSignedOut)
		return nil, nil
	}

	refreshed, err := c.RefreshSession(ctx, session.RefreshToken)
	if err != nil {
		return nil, err
	}

	return refreshed, nil
}

// RefreshSession exchanges a refresh token for fresh token material and
// pushes the refreshed session to listeners.
func (c *IdentityClient) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	payload := map[string]string{"refresh_token": refreshToken}

	var res tokenResponse
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=refresh_token", "", payload, &res); err != nil {
		return nil, err
	}

	session, err := res.toSession()
	if err != nil {
		return nil, err
	}

	// a token-less refresh answer means the grant is dead
	if session == nil {
		c.setSession(nil, AuthSignedOut)
		return nil, nil
	}

	c.setSession(session, AuthTokenRefreshed)
	return session, nil
}

// OnAuthChange registers a session change listener and returns its
// deregistration func.
func (c *IdentityClient) OnAuthChange(fn AuthChangeListener) func() {
	if fn == nil {
		return func() {}
	}

	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *IdentityClient) setSession(session *Session, event AuthEvent) {
	c.mu.Lock()
	c.session = session
	notify := make([]AuthChangeListener, 0, len(c.listeners))
	for _, fn := range c.listeners {
		notify = append(notify, fn)
	}
	c.mu.Unlock()

	for _, fn := range notify {
		fn(event, session)
	}
}

// identityError is the service's error envelope; fields vary by endpoint
type identityError struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
	Message     string `json:"msg"`
}

func (e identityError) text() string {
	switch {
	case e.Description != "":
		return e.Description
	case e.Message != "":
		return e.Message
	default:
		return e.Error
	}
}

func (c *IdentityClient) do(ctx context.Context, method, endpoint, accessToken string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "failed to marshal identity request")
		}
		body = bytes.NewBuffer(data)
	}

	url := c.baseURL + endpoint
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to create identity request")
	}

	req.Header.Set("apikey", c.anonKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	c.logger.Debug("identity request", "method", method, "endpoint", endpoint)

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "identity request failed")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to read identity response")
	}

	if resp.StatusCode >= 400 {
		var envelope identityError
		_ = json.Unmarshal(data, &envelope)
		msg := envelope.text()
		if msg == "" {
			msg = fmt.Sprintf("identity service error: status=%d", resp.StatusCode)
		}
		return errors.New(msg, errors.CategoryAuth).
			WithTextCode(envelope.Error).
			WithMetadata(map[string]any{
				"status":   resp.StatusCode,
				"endpoint": endpoint,
			})
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "failed to unmarshal identity response")
		}
	}

	return nil
}
