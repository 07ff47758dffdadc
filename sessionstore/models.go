package sessionstore

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Record is one browser's cached session: the backend issued token material
// keyed by the opaque id the cookie carries. Tokens never travel to the
// browser themselves.
type Record struct {
	bun.BaseModel `bun:"table:sessions,alias:sess"`
	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id,omitempty"`
	UserID        string     `bun:"user_id,notnull" json:"user_id,omitempty"`
	Email         string     `bun:"email" json:"email,omitempty"`
	AccessToken   string     `bun:"access_token,notnull" json:"-"`
	RefreshToken  string     `bun:"refresh_token" json:"-"`
	ExpiresAt     *time.Time `bun:"expires_at,nullzero" json:"expires_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Expired reports whether the record's token lifetime has passed. Expired
// records are refresh candidates, not usable sessions.
func (r *Record) Expired() bool {
	if r == nil || r.ExpiresAt == nil {
		return false
	}
	return time.Now().After(*r.ExpiresAt)
}
