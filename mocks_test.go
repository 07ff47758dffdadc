package frummy_test

import (
	"context"
	"sync"

	frummy "github.com/StuMason/frummy-supabase"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/mock"
)

// FakeIdentity is a hand-rolled IdentityService for provider tests: it
// records calls and lets the test drive auth change pushes.
type FakeIdentity struct {
	mu        sync.Mutex
	session   *frummy.Session
	sessErr   error
	signOut   error
	signOuts  int
	listeners []frummy.AuthChangeListener
}

func (f *FakeIdentity) SignIn(ctx context.Context, creds frummy.Credentials) (*frummy.Session, error) {
	return f.session, f.sessErr
}

func (f *FakeIdentity) SignUp(ctx context.Context, creds frummy.Credentials) (*frummy.Session, error) {
	return f.session, f.sessErr
}

func (f *FakeIdentity) SignOut(ctx context.Context, accessToken string) error {
	f.mu.Lock()
	f.signOuts++
	err := f.signOut
	f.mu.Unlock()

	if err == nil {
		f.Push(frummy.AuthSignedOut, nil)
	}
	return err
}

func (f *FakeIdentity) Recover(ctx context.Context, email string) error {
	return nil
}

func (f *FakeIdentity) CurrentSession(ctx context.Context) (*frummy.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session, f.sessErr
}

func (f *FakeIdentity) RefreshSession(ctx context.Context, refreshToken string) (*frummy.Session, error) {
	return f.session, f.sessErr
}

func (f *FakeIdentity) OnAuthChange(fn frummy.AuthChangeListener) func() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listeners = append(f.listeners, fn)
	idx := len(f.listeners) - 1

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.listeners[idx] = nil
	}
}

// Push simulates the identity service notifying an auth change.
func (f *FakeIdentity) Push(event frummy.AuthEvent, session *frummy.Session) {
	f.mu.Lock()
	f.session = session
	listeners := append([]frummy.AuthChangeListener{}, f.listeners...)
	f.mu.Unlock()

	for _, fn := range listeners {
		if fn != nil {
			fn(event, session)
		}
	}
}

func (f *FakeIdentity) SignOutCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signOuts
}

func (f *FakeIdentity) ListenerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, fn := range f.listeners {
		if fn != nil {
			n++
		}
	}
	return n
}

// MockConfig implements frummy.Config
type MockConfig struct {
	mock.Mock
}

func (m *MockConfig) GetBackendURL() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetAnonKey() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetCookieName() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetCookieDuration() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockConfig) GetLoginPath() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetRejectedRouteKey() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetRejectedRouteDefault() string {
	args := m.Called()
	return args.String(0)
}

// stubConfig is the no-ceremony alternative when the test does not care
// which getters run.
type stubConfig struct {
	backendURL string
	anonKey    string
	cookieName string
	duration   int
}

func (s stubConfig) GetBackendURL() string  { return s.backendURL }
func (s stubConfig) GetAnonKey() string     { return s.anonKey }
func (s stubConfig) GetCookieName() string  { return s.cookieName }
func (s stubConfig) GetCookieDuration() int { return s.duration }
func (s stubConfig) GetLoginPath() string   { return "/auth/login" }
func (s stubConfig) GetRejectedRouteKey() string {
	return "rejected_route"
}
func (s stubConfig) GetRejectedRouteDefault() string { return "/app" }

// MockContext mocks router.Context
type MockContext struct {
	mock.Mock
	NextCalled bool
}

func (m *MockContext) Next() error {
	m.NextCalled = true
	return nil
}

func (m *MockContext) Context() context.Context {
	args := m.Called()
	c, ok := args.Get(0).(context.Context)
	if !ok {
		panic("arg needs to be context.Context")
	}
	return c
}

func (m *MockContext) SetContext(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockContext) Path() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Method() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Body() []byte {
	args := m.Called()
	return args.Get(0).([]byte)
}

func (m *MockContext) Status(code int) router.Context {
	m.Called(code)
	return m
}

func (m *MockContext) SendString(s string) error {
	args := m.Called(s)
	return args.Error(0)
}

func (m *MockContext) Send(b []byte) error {
	args := m.Called(b)
	return args.Error(0)
}

func (m *MockContext) JSON(code int, val any) error {
	args := m.Called(code, val)
	return args.Error(0)
}

func (m *MockContext) NoContent(code int) error {
	args := m.Called(code)
	return args.Error(0)
}

func (m *MockContext) Render(name string, bind any, layout ...string) error {
	if len(layout) > 0 {
		args := m.Called(name, bind, layout[0])
		return args.Error(0)
	}
	args := m.Called(name, bind)
	return args.Error(0)
}

func (m *MockContext) Redirect(path string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(path, status)
		return args.Error(0)
	}
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockContext) RedirectToRoute(name string, data router.ViewContext, status ...int) error {
	if len(status) > 0 {
		args := m.Called(name, data, status[0])
		return args.Error(0)
	}
	args := m.Called(name, data)
	return args.Error(0)
}

func (m *MockContext) RedirectBack(fallback string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(fallback, status)
		return args.Error(0)
	}
	args := m.Called(fallback)
	return args.Error(0)
}

func (m *MockContext) SetHeader(key, val string) router.Context {
	m.Called(key, val)
	return m
}

func (m *MockContext) Header(key string) string {
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Get(key string, defaultValue any) any {
	args := m.Called(key, defaultValue)
	return args.Get(0)
}

func (m *MockContext) GetBool(key string, defaultValue bool) bool {
	args := m.Called(key, defaultValue)
	return args.Bool(0)
}

func (m *MockContext) GetInt(key string, def int) int {
	args := m.Called(key, def)
	return args.Int(0)
}

func (m *MockContext) GetString(key string, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *MockContext) Set(key string, val any) {
	m.Called(key, val)
}

func (m *MockContext) Bind(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindJSON(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindXML(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindQuery(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) CookieParser(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) Cookie(cookie *router.Cookie) {
	m.Called(cookie)
}

func (m *MockContext) Cookies(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Param(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) ParamsInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Query(key string, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *MockContext) QueryInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Queries() map[string]string {
	args := m.Called()
	return args.Get(0).(map[string]string)
}

func (m *MockContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		m.Called(key, value[0])
		return nil
	}
	args := m.Called(key)
	return args.Get(0)
}

func (m *MockContext) OriginalURL() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) OnNext(callback func() error) {
	m.Called(callback)
}

func (m *MockContext) Referer() string {
	args := m.Called()
	return args.String(0)
}
