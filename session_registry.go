package auth

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// SessionRegistry owns the two-tier credential hierarchy: refresh tokens
// index Sessions, access token strings index AccessTokens. Every
// state-changing operation mirrors itself to the durable store; eviction is
// lazy, gated by SessionSweepInterval, and only ever triggered from a
// mutating call.
type SessionRegistry struct {
	mu           sync.Mutex
	sessions     map[string]*Session
	accessTokens map[string]*AccessToken

	store          SessionStore
	clock          Clock
	tokens         TokenGenerator
	tokenLength    int
	sessionTTL     time.Duration
	accessTokenTTL time.Duration
	sweepInterval  time.Duration
	lastPurge      time.Time
	logger         Logger
}

// SessionRegistryOption configures a SessionRegistry.
type SessionRegistryOption func(*SessionRegistry)

// WithRegistryClock injects a custom clock (useful for tests). The sweep
// baseline is reset to the new clock's now, so the option is safe to apply
// after construction as well: a clock set in the past would otherwise leave
// lastPurge ahead of it and the lazy sweep would never come due.
func WithRegistryClock(clock Clock) SessionRegistryOption {
	return func(r *SessionRegistry) {
		if clock != nil {
			r.clock = clock
			r.lastPurge = clock()
		}
	}
}

// WithRegistryTokenGenerator overrides the random token source.
func WithRegistryTokenGenerator(gen TokenGenerator) SessionRegistryOption {
	return func(r *SessionRegistry) {
		if gen != nil {
			r.tokens = gen
		}
	}
}

// WithRegistryLogger overrides the default logger.
func WithRegistryLogger(logger Logger) SessionRegistryOption {
	return func(r *SessionRegistry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithSessionTTL overrides the default session lifetime.
func WithSessionTTL(ttl time.Duration) SessionRegistryOption {
	return func(r *SessionRegistry) {
		if ttl > 0 {
			r.sessionTTL = ttl
		}
	}
}

// WithAccessTokenTTL overrides the default access token lifetime.
func WithAccessTokenTTL(ttl time.Duration) SessionRegistryOption {
	return func(r *SessionRegistry) {
		if ttl > 0 {
			r.accessTokenTTL = ttl
		}
	}
}

// WithSweepInterval overrides the lazy purge cadence.
func WithSweepInterval(interval time.Duration) SessionRegistryOption {
	return func(r *SessionRegistry) {
		if interval > 0 {
			r.sweepInterval = interval
		}
	}
}

// NewSessionRegistry creates a registry backed by the given durable store.
func NewSessionRegistry(store SessionStore, opts ...SessionRegistryOption) *SessionRegistry {
	r := &SessionRegistry{
		sessions:       make(map[string]*Session),
		accessTokens:   make(map[string]*AccessToken),
		store:          store,
		clock:          time.Now,
		tokens:         RandomToken,
		tokenLength:    DefaultTokenLength,
		sessionTTL:     DefaultSessionTTL,
		accessTokenTTL: DefaultAccessTokenTTL,
		sweepInterval:  SessionSweepInterval,
		logger:         defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	r.lastPurge = r.clock()
	return r
}

// AddSession creates a session for the principal bound to the given agent
// fingerprint, persists it, and returns the fresh refresh token. The token
// is random alphanumeric with no uniqueness check against existing tokens.
func (r *SessionRegistry) AddSession(ctx context.Context, userID uuid.UUID, agent string) (string, error) {
	refreshToken, err := r.tokens(r.tokenLength)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.purgeIfDue(ctx)

	session := NewSession(userID, agent, refreshToken, r.sessionTTL, r.clock())
	if err := r.store.CreateSession(ctx, sessionRecord(session)); err != nil {
		return "", err
	}
	r.sessions[refreshToken] = session

	return refreshToken, nil
}

// AccessTokenRequest exchanges a refresh token for a fresh access token,
// superseding every previously issued access token of the session. An agent
// mismatch or an expired session destroys the session, cascading to its
// tokens, and fails with ErrSessionInvalidated.
func (r *SessionRegistry) AccessTokenRequest(ctx context.Context, refreshToken, agent string) (string, error) {
	token, err := r.tokens(r.tokenLength)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.purgeIfDue(ctx)

	session, ok := r.sessions[refreshToken]
	if !ok {
		return "", ErrSessionInvalidated
	}

	now := r.clock()
	if session.Agent != agent || !session.IsValidAt(now) {
		r.destroySession(ctx, session)
		return "", ErrSessionInvalidated
	}

	at := session.NewAccessToken(token, r.accessTokenTTL, now)
	if err := r.store.CreateAccessToken(ctx, accessTokenRecord(session.ID, at)); err != nil {
		return "", err
	}
	r.accessTokens[token] = at

	return token, nil
}

// GetSession resolves an access token to its principal. It never errors:
// any denial returns false so the caller can fall back to an
// unauthenticated context. A denied token whose session is itself no longer
// valid triggers a full cascade purge of the session and all its tokens.
func (r *SessionRegistry) GetSession(ctx context.Context, accessToken, agent string) (uuid.UUID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	at, ok := r.accessTokens[accessToken]
	if !ok {
		return uuid.Nil, false
	}

	session, ok := r.sessions[at.SessionKey]
	if !ok {
		// Orphaned index entry; the next sweep would drop it anyway.
		delete(r.accessTokens, accessToken)
		return uuid.Nil, false
	}

	now := r.clock()
	if session.AllowsAt(at, agent, now) {
		return session.UserID, true
	}

	if !session.IsValidAt(now) || session.Agent != agent {
		r.destroySession(ctx, session)
		return uuid.Nil, false
	}

	// The session stands; only this token is stale or superseded. Drop it
	// from the index and the durable mirror.
	delete(r.accessTokens, accessToken)
	if err := r.store.DeleteAccessToken(ctx, accessToken); err != nil {
		r.logger.Error("failed to delete durable access token record: %v", err)
	}

	return uuid.Nil, false
}

// RemoveSession is the explicit logout: the session is invalidated, its
// durable record deleted, and cleanup cascades to all its access tokens.
func (r *SessionRegistry) RemoveSession(ctx context.Context, refreshToken string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[refreshToken]
	if !ok {
		return ErrSessionInvalidated
	}

	r.destroySession(ctx, session)
	return nil
}

// Purge sweeps unconditionally, cascading cleanup of every expired session.
// Returns the number of sessions destroyed.
func (r *SessionRegistry) Purge(ctx context.Context) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sweep(ctx)
}

// Len returns the number of indexed sessions, including any not yet swept.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Rehydrate rebuilds the in-memory hierarchy from the durable store,
// preserving sequence numbers and TTLs. Intended for process startup; any
// state already indexed is replaced.
func (r *SessionRegistry) Rehydrate(ctx context.Context) error {
	records, err := r.store.ListSessionsWithTokens(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to rehydrate session registry")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions = make(map[string]*Session, len(records))
	r.accessTokens = make(map[string]*AccessToken)

	for _, rec := range records {
		session := &Session{
			Expiry:       NewExpiry(rec.CreatedAt, time.Duration(rec.TTLSeconds)*time.Second),
			ID:           rec.ID,
			UserID:       rec.UserID,
			RefreshToken: rec.RefreshToken,
			Agent:        rec.Agent,
		}
		r.sessions[rec.RefreshToken] = session

		for _, tok := range rec.Tokens {
			at := &AccessToken{
				Expiry: NewExpiry(tok.CreatedAt, time.Duration(tok.TTLSeconds)*time.Second),
				Token:  tok.Token,
			}
			session.restoreAccessToken(at)
			r.accessTokens[tok.Token] = at
		}
	}

	return nil
}

// destroySession cascades: the session is invalidated, dropped from the
// index together with all of its access tokens, and its durable record
// deleted. Store failures on this path are logged, not surfaced; the
// in-memory state is the source of truth and storage is a best-effort
// mirror to be reconciled on the next rehydration.
func (r *SessionRegistry) destroySession(ctx context.Context, session *Session) {
	session.Invalidate()

	for _, at := range session.AccessTokens() {
		delete(r.accessTokens, at.Token)
	}
	delete(r.sessions, session.RefreshToken)

	if err := r.store.DeleteSession(ctx, session.ID); err != nil {
		r.logger.Error("failed to delete durable session record %s: %v", session.ID, err)
	}
}

// purgeIfDue sweeps when the sweep interval has elapsed. Callers must hold
// the lock.
func (r *SessionRegistry) purgeIfDue(ctx context.Context) {
	now := r.clock()
	if now.Sub(r.lastPurge) <= r.sweepInterval {
		return
	}
	r.sweep(ctx)
}

func (r *SessionRegistry) sweep(ctx context.Context) int {
	now := r.clock()
	destroyed := 0
	for _, session := range r.sessions {
		if session.IsValidAt(now) {
			continue
		}
		r.destroySession(ctx, session)
		destroyed++
	}
	r.lastPurge = now
	return destroyed
}
