package frummy_test

import (
	"context"
	"errors"
	"testing"
	"time"

	frummy "github.com/StuMason/frummy-supabase"
	"github.com/StuMason/frummy-supabase/sessionstore"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testCookie = "frummy_session"

func newRouteSessions(t *testing.T, identity frummy.IdentityService, records sessionstore.Store) *frummy.RouteSessions {
	t.Helper()

	sessions, err := frummy.NewRouteSessions(stubConfig{
		backendURL: "http://localhost",
		anonKey:    "anon",
		cookieName: testCookie,
		duration:   24,
	}, identity, records)
	require.NoError(t, err)
	return sessions
}

func putRecord(t *testing.T, records sessionstore.Store, expires time.Time, refreshToken string) *sessionstore.Record {
	t.Helper()

	record := &sessionstore.Record{
		ID:           uuid.New(),
		UserID:       "user-1",
		Email:        "user@example.com",
		AccessToken:  "access-token",
		RefreshToken: refreshToken,
		ExpiresAt:    &expires,
	}
	require.NoError(t, records.Put(context.Background(), record))
	return record
}

func TestRouteSessionsEstablishSetsCookie(t *testing.T) {
	records := sessionstore.NewMemoryStore()
	sessions := newRouteSessions(t, &FakeIdentity{}, records)

	ctx := new(MockContext)
	ctx.On("Context").Return(context.Background())

	var recordID string
	ctx.On("Cookie", mock.MatchedBy(func(c *router.Cookie) bool {
		recordID = c.Value
		return c.Name == testCookie && c.HTTPOnly && c.Secure && c.SameSite == "Lax" &&
			c.Expires.After(time.Now())
	})).Return()

	require.NoError(t, sessions.Establish(ctx, validSession()))

	id, err := uuid.Parse(recordID)
	require.NoError(t, err, "cookie value is the opaque record id")

	record, err := records.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "user-1", record.UserID)
	assert.Equal(t, "token-abc", record.AccessToken)
}

func TestRouteSessionsResolveNoCookie(t *testing.T) {
	sessions := newRouteSessions(t, &FakeIdentity{}, sessionstore.NewMemoryStore())

	ctx := new(MockContext)
	ctx.On("Cookies", testCookie).Return("")

	session, state := sessions.Resolve(ctx)

	assert.Nil(t, session)
	assert.Equal(t, frummy.StateResolved, state)
}

func TestRouteSessionsResolveMalformedCookie(t *testing.T) {
	sessions := newRouteSessions(t, &FakeIdentity{}, sessionstore.NewMemoryStore())

	ctx := new(MockContext)
	ctx.On("Cookies", testCookie).Return("not-a-uuid")
	ctx.On("Cookie", mock.MatchedBy(func(c *router.Cookie) bool {
		return c.Name == testCookie && c.Value == "" && c.Expires.Before(time.Now())
	})).Return()

	session, state := sessions.Resolve(ctx)

	assert.Nil(t, session)
	assert.Equal(t, frummy.StateResolved, state)
	ctx.AssertExpectations(t)
}

func TestRouteSessionsResolveMissingRecord(t *testing.T) {
	sessions := newRouteSessions(t, &FakeIdentity{}, sessionstore.NewMemoryStore())

	ctx := new(MockContext)
	ctx.On("Context").Return(context.Background())
	ctx.On("Cookies", testCookie).Return(uuid.NewString())
	ctx.On("Cookie", mock.Anything).Return()

	session, state := sessions.Resolve(ctx)

	assert.Nil(t, session)
	assert.Equal(t, frummy.StateResolved, state)
}

type failingStore struct{}

func (failingStore) Put(context.Context, *sessionstore.Record) error { return errors.New("down") }
func (failingStore) Get(context.Context, uuid.UUID) (*sessionstore.Record, error) {
	return nil, errors.New("down")
}
func (failingStore) Delete(context.Context, uuid.UUID) error  { return errors.New("down") }
func (failingStore) DeleteExpired(context.Context) (int, error) { return 0, errors.New("down") }

func TestRouteSessionsResolveStoreUnavailable(t *testing.T) {
	sessions := newRouteSessions(t, &FakeIdentity{}, failingStore{})

	ctx := new(MockContext)
	ctx.On("Context").Return(context.Background())
	ctx.On("Cookies", testCookie).Return(uuid.NewString())

	session, state := sessions.Resolve(ctx)

	assert.Nil(t, session)
	assert.Equal(t, frummy.StateUnknown, state,
		"an unreachable store is indeterminate, not signed out")
}

func TestRouteSessionsResolveLiveRecord(t *testing.T) {
	records := sessionstore.NewMemoryStore()
	record := putRecord(t, records, time.Now().Add(time.Hour), "refresh-token")
	sessions := newRouteSessions(t, &FakeIdentity{}, records)

	ctx := new(MockContext)
	ctx.On("Context").Return(context.Background())
	ctx.On("Cookies", testCookie).Return(record.ID.String())

	session, state := sessions.Resolve(ctx)

	require.NotNil(t, session)
	assert.Equal(t, frummy.StateResolved, state)
	assert.Equal(t, "user-1", session.UserID)
	assert.Equal(t, "access-token", session.AccessToken)
}

func TestRouteSessionsResolveRefreshesExpired(t *testing.T) {
	records := sessionstore.NewMemoryStore()
	record := putRecord(t, records, time.Now().Add(-time.Hour), "refresh-token")

	fresh := validSession()
	sessions := newRouteSessions(t, &FakeIdentity{session: fresh}, records)

	ctx := new(MockContext)
	ctx.On("Context").Return(context.Background())
	ctx.On("Cookies", testCookie).Return(record.ID.String())

	session, state := sessions.Resolve(ctx)

	require.NotNil(t, session)
	assert.Equal(t, frummy.StateResolved, state)
	assert.Equal(t, fresh.AccessToken, session.AccessToken)

	stored, err := records.Get(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, fresh.AccessToken, stored.AccessToken, "refreshed tokens are persisted")
}

func TestRouteSessionsResolveExpiredWithoutRefreshToken(t *testing.T) {
	records := sessionstore.NewMemoryStore()
	record := putRecord(t, records, time.Now().Add(-time.Hour), "")
	sessions := newRouteSessions(t, &FakeIdentity{}, records)

	ctx := new(MockContext)
	ctx.On("Context").Return(context.Background())
	ctx.On("Cookies", testCookie).Return(record.ID.String())
	ctx.On("Cookie", mock.Anything).Return()

	session, state := sessions.Resolve(ctx)

	assert.Nil(t, session)
	assert.Equal(t, frummy.StateResolved, state)

	_, err := records.Get(context.Background(), record.ID)
	assert.ErrorIs(t, err, sessionstore.ErrNotFound)
}

func TestRouteSessionsResolveRefreshFailure(t *testing.T) {
	records := sessionstore.NewMemoryStore()
	record := putRecord(t, records, time.Now().Add(-time.Hour), "refresh-token")
	identity := &FakeIdentity{sessErr: errors.New("invalid refresh token")}
	sessions := newRouteSessions(t, identity, records)

	ctx := new(MockContext)
	ctx.On("Context").Return(context.Background())
	ctx.On("Cookies", testCookie).Return(record.ID.String())
	ctx.On("Cookie", mock.Anything).Return()

	session, state := sessions.Resolve(ctx)

	assert.Nil(t, session, "a dead refresh token means signed out")
	assert.Equal(t, frummy.StateResolved, state)

	_, err := records.Get(context.Background(), record.ID)
	assert.ErrorIs(t, err, sessionstore.ErrNotFound)
}

func TestRouteSessionsDestroy(t *testing.T) {
	records := sessionstore.NewMemoryStore()
	record := putRecord(t, records, time.Now().Add(time.Hour), "refresh-token")
	sessions := newRouteSessions(t, &FakeIdentity{}, records)

	ctx := new(MockContext)
	ctx.On("Context").Return(context.Background())
	ctx.On("Cookies", testCookie).Return(record.ID.String())
	ctx.On("Cookie", mock.MatchedBy(func(c *router.Cookie) bool {
		return c.Name == testCookie && c.Value == "" && c.Expires.Before(time.Now())
	})).Return()

	require.NoError(t, sessions.Destroy(ctx))

	_, err := records.Get(context.Background(), record.ID)
	assert.ErrorIs(t, err, sessionstore.ErrNotFound)
	ctx.AssertExpectations(t)
}

func TestRouteSessionsRedirectRoundTrip(t *testing.T) {
	sessions := newRouteSessions(t, &FakeIdentity{}, sessionstore.NewMemoryStore())

	setCtx := new(MockContext)
	setCtx.On("OriginalURL").Return("/app/todos")
	setCtx.On("Cookie", mock.MatchedBy(func(c *router.Cookie) bool {
		return c.Name == "rejected_route" && c.Value == "/app/todos"
	})).Return()

	sessions.SetRedirect(setCtx)
	setCtx.AssertExpectations(t)

	getCtx := new(MockContext)
	getCtx.On("Cookies", "rejected_route").Return("/app/todos")
	getCtx.On("Cookie", mock.Anything).Return()

	assert.Equal(t, "/app/todos", sessions.GetRedirect(getCtx, "/app"))

	emptyCtx := new(MockContext)
	emptyCtx.On("Cookies", "rejected_route").Return("")

	assert.Equal(t, "/app", sessions.GetRedirect(emptyCtx, "/app"))
}

func TestRouteSessionsGetRedirectWithoutDefault(t *testing.T) {
	sessions := newRouteSessions(t, &FakeIdentity{}, sessionstore.NewMemoryStore())

	ctx := new(MockContext)
	ctx.On("Cookies", "rejected_route").Return("")

	var redirect string
	require.NotPanics(t, func() {
		redirect = sessions.GetRedirect(ctx)
	})
	assert.Equal(t, "/app", redirect, "no cookie and no argument falls back to the configured default")
}
