package auth

import (
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultSessionTTL is the refresh-credential lifetime unless the
	// session was restored from storage with an explicit value.
	DefaultSessionTTL = 36000 * time.Second

	// DefaultAccessTokenTTL is the short-lived credential lifetime.
	DefaultAccessTokenTTL = 300 * time.Second

	// SessionSweepInterval gates the registry's lazy purge cycle.
	SessionSweepInterval = 600 * time.Second
)

// Session is the server-side record backing a long-lived refresh token,
// bound to one client agent fingerprint. It exclusively owns an ordered
// sequence of AccessTokens; only the most recently issued one passes access
// checks, all earlier ones are logically superseded.
type Session struct {
	Expiry

	// ID is the durable-store identifier for this session.
	ID uuid.UUID

	// UserID is the authenticated principal.
	UserID uuid.UUID

	// RefreshToken is the random token string this session is indexed under.
	RefreshToken string

	// Agent is the bound client agent fingerprint.
	Agent string

	invalidated bool
	tokens      []*AccessToken
}

// AccessToken is a short-lived credential derived from a Session. It holds a
// back-reference to its session by refresh token key, not by ownership; the
// Session owns the token, the registry owns the Session.
type AccessToken struct {
	Expiry

	// Token is the random token string.
	Token string

	// SessionKey is the refresh token of the owning session.
	SessionKey string

	// Sequence is the issuance order within the owning session, starting
	// at zero. Only the highest sequence number is accepted.
	Sequence int
}

// NewSession creates an active session for the given principal and agent.
func NewSession(userID uuid.UUID, agent, refreshToken string, ttl time.Duration, now time.Time) *Session {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Session{
		Expiry:       NewExpiry(now, ttl),
		ID:           uuid.New(),
		UserID:       userID,
		RefreshToken: refreshToken,
		Agent:        agent,
	}
}

// IsValidAt reports whether the session can still back credentials: within
// its TTL and not explicitly invalidated.
func (s *Session) IsValidAt(now time.Time) bool {
	if s.invalidated {
		return false
	}
	return s.Expiry.IsValidAt(now)
}

// Invalidate marks the session terminally invalid. There is no way back.
func (s *Session) Invalidate() {
	s.invalidated = true
}

// Invalidated reports whether the session was explicitly invalidated.
func (s *Session) Invalidated() bool {
	return s.invalidated
}

// NewAccessToken appends a fresh access token to the session's sequence,
// implicitly superseding all previously issued ones.
func (s *Session) NewAccessToken(token string, ttl time.Duration, now time.Time) *AccessToken {
	if ttl <= 0 {
		ttl = DefaultAccessTokenTTL
	}
	at := &AccessToken{
		Expiry:     NewExpiry(now, ttl),
		Token:      token,
		SessionKey: s.RefreshToken,
		Sequence:   len(s.tokens),
	}
	s.tokens = append(s.tokens, at)
	return at
}

// restoreAccessToken reattaches a token loaded from storage without
// mutating its TTL. Tokens must be appended in sequence order.
func (s *Session) restoreAccessToken(at *AccessToken) {
	at.SessionKey = s.RefreshToken
	at.Sequence = len(s.tokens)
	s.tokens = append(s.tokens, at)
}

// AccessTokens returns the session's tokens in issuance order.
func (s *Session) AccessTokens() []*AccessToken {
	return s.tokens
}

// currentSequence returns the highest issued sequence number, or -1 when no
// token has been issued yet.
func (s *Session) currentSequence() int {
	return len(s.tokens) - 1
}

// AllowsAt reports whether an access check with the given token passes:
// the session is valid, the agent matches the bound fingerprint, the token
// itself is unexpired, and its sequence number is the current highest.
func (s *Session) AllowsAt(at *AccessToken, agent string, now time.Time) bool {
	if !s.IsValidAt(now) {
		return false
	}
	if s.Agent != agent {
		return false
	}
	if !at.Expiry.IsValidAt(now) {
		return false
	}
	return at.Sequence == s.currentSequence()
}
