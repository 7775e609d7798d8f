package auth

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SessionStore is the durable mirror consumed by the SessionRegistry. Every
// state-changing registry operation mirrors itself here alongside the
// in-memory mutation; on restart the registry is rehydrated through
// ListSessionsWithTokens.
type SessionStore interface {
	CreateSession(ctx context.Context, record *SessionRecord) error
	DeleteSession(ctx context.Context, id uuid.UUID) error
	CreateAccessToken(ctx context.Context, record *AccessTokenRecord) error
	DeleteAccessToken(ctx context.Context, token string) error
	ListSessionsWithTokens(ctx context.Context) ([]*SessionRecord, error)
}

type bunSessionStore struct {
	db bun.IDB
}

// NewSessionStore returns a bun-backed SessionStore.
func NewSessionStore(db bun.IDB) SessionStore {
	return &bunSessionStore{db: db}
}

func (s *bunSessionStore) CreateSession(ctx context.Context, record *SessionRecord) error {
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to persist session")
	}
	return nil
}

func (s *bunSessionStore) DeleteSession(ctx context.Context, id uuid.UUID) error {
	// Children go first so a crash in between leaves no orphan tokens.
	if _, err := s.db.NewDelete().
		Model((*AccessTokenRecord)(nil)).
		Where("session_id = ?", id).
		Exec(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to delete session access tokens")
	}

	if _, err := s.db.NewDelete().
		Model((*SessionRecord)(nil)).
		Where("id = ?", id).
		Exec(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to delete session")
	}

	return nil
}

func (s *bunSessionStore) CreateAccessToken(ctx context.Context, record *AccessTokenRecord) error {
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to persist access token")
	}
	return nil
}

func (s *bunSessionStore) DeleteAccessToken(ctx context.Context, token string) error {
	if _, err := s.db.NewDelete().
		Model((*AccessTokenRecord)(nil)).
		Where("token = ?", token).
		Exec(ctx); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to delete access token")
	}
	return nil
}

func (s *bunSessionStore) ListSessionsWithTokens(ctx context.Context) ([]*SessionRecord, error) {
	var records []*SessionRecord
	err := s.db.NewSelect().
		Model(&records).
		Relation("Tokens", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("sequence ASC")
		}).
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to list sessions")
	}
	return records, nil
}

// sessionRecord converts an in-memory session into its durable mirror.
func sessionRecord(s *Session) *SessionRecord {
	ttl := s.TTL()
	if ttl == TTLNever {
		ttl = 0
	}
	return &SessionRecord{
		ID:           s.ID,
		UserID:       s.UserID,
		RefreshToken: s.RefreshToken,
		Agent:        s.Agent,
		TTLSeconds:   int64(ttl / time.Second),
		CreatedAt:    s.CreatedAt(),
	}
}

// accessTokenRecord converts an in-memory access token into its durable
// mirror.
func accessTokenRecord(sessionID uuid.UUID, at *AccessToken) *AccessTokenRecord {
	ttl := at.TTL()
	if ttl == TTLNever {
		ttl = 0
	}
	return &AccessTokenRecord{
		Token:      at.Token,
		SessionID:  sessionID,
		Sequence:   at.Sequence,
		TTLSeconds: int64(ttl / time.Second),
		CreatedAt:  at.CreatedAt(),
	}
}
