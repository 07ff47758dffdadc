package frummy_test

import (
	"testing"
	"time"

	frummy "github.com/StuMason/frummy-supabase"
	"github.com/stretchr/testify/assert"
)

func TestSessionValid(t *testing.T) {
	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Minute)

	tests := []struct {
		name    string
		session *frummy.Session
		valid   bool
	}{
		{"nil session", nil, false},
		{"no token", &frummy.Session{UserID: "u"}, false},
		{"expired", &frummy.Session{AccessToken: "t", ExpiresAt: &past}, false},
		{"live", &frummy.Session{AccessToken: "t", ExpiresAt: &future}, true},
		{"no expiry", &frummy.Session{AccessToken: "t"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.session.Valid())
		})
	}
}

func TestSessionStringRedactsTokens(t *testing.T) {
	session := validSession()

	out := session.String()

	assert.Contains(t, out, "user-1")
	assert.NotContains(t, out, session.AccessToken)
	assert.NotContains(t, out, session.RefreshToken)
}

func TestStateResolved(t *testing.T) {
	assert.False(t, frummy.StateUnknown.Resolved())
	assert.True(t, frummy.StateResolved.Resolved())
	assert.Equal(t, "unknown", frummy.StateUnknown.String())
	assert.Equal(t, "resolved", frummy.StateResolved.String())
}
