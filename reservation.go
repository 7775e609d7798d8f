package auth

import (
	"context"
	"sync"
)

// IdentifierStatus is the tri-state uniqueness answer for an email or
// nickname.
type IdentifierStatus int

const (
	// IdentifierAvailable means no pending or committed claim exists.
	IdentifierAvailable IdentifierStatus = iota
	// IdentifierReserved means an unconfirmed registration holds a soft
	// reservation; it may still become available again.
	IdentifierReserved
	// IdentifierTaken means a committed user owns the identifier.
	IdentifierTaken
)

func (s IdentifierStatus) String() string {
	switch s {
	case IdentifierAvailable:
		return "available"
	case IdentifierReserved:
		return "reserved"
	case IdentifierTaken:
		return "taken"
	}
	return "unknown"
}

// ReservationCache is the uniqueness gate for emails and nicknames. An
// identifier moves available -> reserved -> taken, and back to available
// only through explicit account deletion or the death of an unconfirmed
// registration. The cache starts unready; uniqueness checks block until the
// committed identifiers have been seeded from the durable store.
type ReservationCache struct {
	mu      sync.Mutex
	entries map[string]bool // false = soft-reserved, true = taken
	ready   chan struct{}
	once    sync.Once

	// Lenient permits re-reserving an identifier that is only
	// soft-reserved, letting a user retry registration before the prior
	// unconfirmed attempt expires.
	lenient bool
}

// ReservationOption configures a ReservationCache.
type ReservationOption func(*ReservationCache)

// WithLenientReservations allows reserving over a soft reservation.
func WithLenientReservations() ReservationOption {
	return func(c *ReservationCache) {
		c.lenient = true
	}
}

// NewReservationCache creates an unready cache; call Seed with the
// committed email/nickname pairs before serving uniqueness checks.
func NewReservationCache(opts ...ReservationOption) *ReservationCache {
	c := &ReservationCache{
		entries: make(map[string]bool),
		ready:   make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Seed marks the given identifiers as taken and opens the readiness gate.
// Intended to be called once with the durable store's committed identifiers.
func (c *ReservationCache) Seed(identifiers []string) {
	c.mu.Lock()
	for _, id := range identifiers {
		c.entries[id] = true
	}
	c.mu.Unlock()

	c.once.Do(func() { close(c.ready) })
}

// WaitReady blocks until the committed identifiers have been seeded.
func (c *ReservationCache) WaitReady(ctx context.Context) error {
	select {
	case <-c.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status reports the current state of a single identifier. Does not block
// on readiness; callers on correctness-critical paths go through Reserve.
func (c *ReservationCache) Status(identifier string) IdentifierStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	taken, ok := c.entries[identifier]
	switch {
	case !ok:
		return IdentifierAvailable
	case taken:
		return IdentifierTaken
	default:
		return IdentifierReserved
	}
}

// Reserve places a soft reservation on both identifiers, or fails with
// ErrCredentialsNotUnique if either is already claimed. In lenient mode a
// soft reservation may be re-taken; a committed identifier never can.
func (c *ReservationCache) Reserve(ctx context.Context, email, nickname string) error {
	if err := c.WaitReady(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, id := range []string{email, nickname} {
		taken, exists := c.entries[id]
		if !exists {
			continue
		}
		if taken || !c.lenient {
			return ErrCredentialsNotUnique
		}
	}

	c.entries[email] = false
	c.entries[nickname] = false
	return nil
}

// Release drops soft reservations on the given identifiers. Identifiers
// that have since become taken are untouched; a release racing a completed
// registration is a no-op.
func (c *ReservationCache) Release(email, nickname string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, id := range []string{email, nickname} {
		if taken, ok := c.entries[id]; ok && !taken {
			delete(c.entries, id)
		}
	}
}

// MarkTaken commits the identifiers, normally from the deferred callback of
// a verified registration.
func (c *ReservationCache) MarkTaken(identifiers ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, id := range identifiers {
		c.entries[id] = true
	}
}

// MarkAvailable returns committed identifiers to the pool. Only account
// deletion goes through here.
func (c *ReservationCache) MarkAvailable(identifiers ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, id := range identifiers {
		delete(c.entries, id)
	}
}
