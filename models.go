package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the user model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Nickname      string         `bun:"nickname,notnull,unique" json:"nickname,omitempty"`
	Email         string         `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string         `bun:"password_hash" json:"password_hash,omitempty"`
	EmailVerified bool           `bun:"is_email_verified" json:"is_email_verified,omitempty"`
	LoggedInAt    *time.Time     `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	Metadata      map[string]any `bun:"metadata" json:"metadata,omitempty"`
	CreatedAt     *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time     `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time     `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// AddMetadata will append information to a metadata attribute
func (u *User) AddMetadata(key string, val any) *User {
	if u.Metadata == nil {
		u.Metadata = make(map[string]any)
	}
	u.Metadata[key] = val
	return u
}

// SessionRecord is the durable mirror of an in-memory Session.
type SessionRecord struct {
	bun.BaseModel `bun:"table:sessions,alias:sess"`
	ID            uuid.UUID            `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID            `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	RefreshToken  string               `bun:"refresh_token,notnull,unique" json:"refresh_token,omitempty"`
	Agent         string               `bun:"agent,notnull" json:"agent,omitempty"`
	TTLSeconds    int64                `bun:"ttl_seconds,notnull" json:"ttl_seconds,omitempty"`
	CreatedAt     time.Time            `bun:"created_at,notnull" json:"created_at,omitempty"`
	Tokens        []*AccessTokenRecord `bun:"rel:has-many,join:id=session_id" json:"tokens,omitempty"`
}

// AccessTokenRecord is the durable mirror of an in-memory AccessToken.
type AccessTokenRecord struct {
	bun.BaseModel `bun:"table:access_tokens,alias:atk"`
	Token         string    `bun:"token,pk" json:"token,omitempty"`
	SessionID     uuid.UUID `bun:"session_id,notnull,type:uuid" json:"session_id,omitempty"`
	Sequence      int       `bun:"sequence,notnull" json:"sequence,omitempty"`
	TTLSeconds    int64     `bun:"ttl_seconds,notnull" json:"ttl_seconds,omitempty"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at,omitempty"`
}
