package auth

import (
	"time"
)

// TTLNever is the sentinel returned by TTL for entities that never expire.
const TTLNever = time.Duration(-1)

// Expirable is the base capability for anything with a creation timestamp
// and an optional time-to-live. Expirable never schedules its own
// destruction; sweepers (PurgingCache, SessionRegistry) decide when to
// inspect and evict.
type Expirable interface {
	// IsValidAt reports whether the entity is still alive at the given
	// instant. Entities without a TTL are always valid.
	IsValidAt(now time.Time) bool
	// RefreshAt resets the validity window to start at the given instant.
	RefreshAt(now time.Time)
	// TTL returns the configured time-to-live, or TTLNever.
	TTL() time.Duration
}

// NudgeHook is fired during a sweep before the validity check, for entities
// that want to react before possible eviction.
type NudgeHook interface {
	OnNudge()
}

// DeathHook is fired when a sweeper evicts an entity, and exactly once.
type DeathHook interface {
	OnDeath()
}

// Expiry is an embeddable Expirable implementation.
type Expiry struct {
	createdAt time.Time
	ttl       time.Duration
}

// NewExpiry creates an expiry window starting at the given instant. A ttl
// of zero or less means the entity never expires.
func NewExpiry(createdAt time.Time, ttl time.Duration) Expiry {
	return Expiry{createdAt: createdAt, ttl: ttl}
}

func (e *Expiry) IsValidAt(now time.Time) bool {
	if e.ttl <= 0 {
		return true
	}
	return now.Before(e.createdAt.Add(e.ttl))
}

func (e *Expiry) RefreshAt(now time.Time) {
	e.createdAt = now
}

func (e *Expiry) TTL() time.Duration {
	if e.ttl <= 0 {
		return TTLNever
	}
	return e.ttl
}

// CreatedAt returns the start of the current validity window.
func (e *Expiry) CreatedAt() time.Time {
	return e.createdAt
}

// ExpiresAt returns the end of the current validity window, or the zero
// time for entities that never expire.
func (e *Expiry) ExpiresAt() time.Time {
	if e.ttl <= 0 {
		return time.Time{}
	}
	return e.createdAt.Add(e.ttl)
}

func nudge(v any) {
	if h, ok := v.(NudgeHook); ok {
		h.OnNudge()
	}
}

func die(v any) {
	if h, ok := v.(DeathHook); ok {
		h.OnDeath()
	}
}
