package auth

import "time"

// Config holds auth options
type Config interface {
	GetSessionTTL() time.Duration
	GetAccessTokenTTL() time.Duration
	GetSessionSweepInterval() time.Duration
	GetPendingActionTTL() time.Duration
	GetTokenLength() int
	GetLenientReservations() bool
}

// SimpleConfig is a Config with sane zero-value fallbacks.
type SimpleConfig struct {
	SessionTTL           time.Duration
	AccessTokenTTL       time.Duration
	SessionSweepInterval time.Duration
	PendingActionTTL     time.Duration
	TokenLength          int
	LenientReservations  bool
}

var _ Config = SimpleConfig{}

func (c SimpleConfig) GetSessionTTL() time.Duration {
	if c.SessionTTL > 0 {
		return c.SessionTTL
	}
	return DefaultSessionTTL
}

func (c SimpleConfig) GetAccessTokenTTL() time.Duration {
	if c.AccessTokenTTL > 0 {
		return c.AccessTokenTTL
	}
	return DefaultAccessTokenTTL
}

func (c SimpleConfig) GetSessionSweepInterval() time.Duration {
	if c.SessionSweepInterval > 0 {
		return c.SessionSweepInterval
	}
	return SessionSweepInterval
}

func (c SimpleConfig) GetPendingActionTTL() time.Duration {
	if c.PendingActionTTL > 0 {
		return c.PendingActionTTL
	}
	return DefaultPendingActionTTL
}

func (c SimpleConfig) GetTokenLength() int {
	if c.TokenLength > 0 {
		return c.TokenLength
	}
	return DefaultTokenLength
}

func (c SimpleConfig) GetLenientReservations() bool {
	return c.LenientReservations
}
