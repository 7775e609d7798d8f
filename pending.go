package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DefaultPendingActionTTL is how long a code-gated deferred action stays
// activatable.
const DefaultPendingActionTTL = 300 * time.Second

// ActionKind enumerates the recognized deferred action kinds.
type ActionKind int

const (
	// ActionLogin confirms a login challenge.
	ActionLogin ActionKind = iota + 1
	// ActionRegistration confirms a new account and commits its identifiers.
	ActionRegistration
	// ActionPasswordChange confirms a password change for a principal.
	ActionPasswordChange
	// ActionEmailChange confirms an email change for a principal.
	ActionEmailChange
	// ActionAccountDeletion confirms deletion of a principal's account.
	ActionAccountDeletion
	// ActionPasswordRecovery confirms a forgot-password flow keyed by a
	// pre-authentication token.
	ActionPasswordRecovery
)

func (k ActionKind) defined() bool {
	return k >= ActionLogin && k <= ActionPasswordRecovery
}

func (k ActionKind) String() string {
	switch k {
	case ActionLogin:
		return "login"
	case ActionRegistration:
		return "registration"
	case ActionPasswordChange:
		return "password_change"
	case ActionEmailChange:
		return "email_change"
	case ActionAccountDeletion:
		return "account_deletion"
	case ActionPasswordRecovery:
		return "password_recovery"
	}
	return "undefined"
}

// Reservation is the identifier payload carried by registration actions.
// Its presence, not a subtype, selects the death hook behavior.
type Reservation struct {
	Email    string
	Nickname string
}

// DeferredCallback produces or mutates a principal. It runs exactly once,
// on successful code verification, and is where the actual side effect
// happens (creating the user row, changing an email, deleting an account).
type DeferredCallback func(ctx context.Context) (uuid.UUID, error)

// PendingAction is a single-use, code-gated deferred action with its own
// short TTL, keyed either by a principal (authenticated flows) or by an
// opaque pre-authentication token (registration, forgot-password).
type PendingAction struct {
	Expiry

	Kind        ActionKind
	Code        int
	Callback    DeferredCallback
	Reservation *Reservation

	release func(email, nickname string)
}

// OnDeath releases the soft reservation of an action that died without
// activation, whether by expiry sweep or by being superseded.
func (a *PendingAction) OnDeath() {
	if a.Reservation == nil || a.release == nil {
		return
	}
	a.release(a.Reservation.Email, a.Reservation.Nickname)
}

// PendingActionRegistry stores one pending action per key, the newest
// superseding the previous. Built on the purging cache; every Request sweeps
// expired actions first, and eviction fires their death hooks.
type PendingActionRegistry struct {
	cache        *PurgingCache[string, *PendingAction]
	reservations *ReservationCache
	clock        Clock
	ttl          time.Duration
}

// PendingActionRegistryOption configures a PendingActionRegistry.
type PendingActionRegistryOption func(*PendingActionRegistry)

// WithPendingActionTTL overrides the default action lifetime.
func WithPendingActionTTL(ttl time.Duration) PendingActionRegistryOption {
	return func(r *PendingActionRegistry) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithPendingActionClock injects a custom clock (useful for tests).
func WithPendingActionClock(clock Clock) PendingActionRegistryOption {
	return func(r *PendingActionRegistry) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// NewPendingActionRegistry creates a registry whose registration actions
// reserve identifiers in the given cache.
func NewPendingActionRegistry(reservations *ReservationCache, opts ...PendingActionRegistryOption) *PendingActionRegistry {
	r := &PendingActionRegistry{
		reservations: reservations,
		clock:        time.Now,
		ttl:          DefaultPendingActionTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	r.cache = NewPurgingCache(
		WithCacheClock[string, *PendingAction](r.clock),
		WithPurgeInterval[string, *PendingAction](r.ttl),
	)
	return r
}

// Request stores a pending action under key, evicting any prior action for
// that key; the superseded action loses its reservation through its death
// hook. Registration actions soft-reserve their identifiers immediately,
// failing with ErrCredentialsNotUnique when either is claimed.
func (r *PendingActionRegistry) Request(ctx context.Context, key string, action *PendingAction) error {
	if action == nil || !action.Kind.defined() {
		return ErrActionNotDefined
	}

	// Sweep up front so a dead action's stale reservation cannot reject the
	// request that replaces it, and evict the superseded action before
	// reserving so its death hook cannot release identifiers the new action
	// is about to claim.
	r.cache.Purge()
	r.cache.Delete(key)

	if action.Reservation != nil {
		if err := r.reservations.Reserve(ctx, action.Reservation.Email, action.Reservation.Nickname); err != nil {
			return err
		}
		action.release = r.reservations.Release
	}

	action.Expiry = NewExpiry(r.clock(), r.ttl)
	r.cache.Set(key, action)
	return nil
}

// Activate verifies the supplied code and, on match, consumes the action:
// it is removed from the registry and its deferred callback runs exactly
// once, returning the resulting principal. An absent or expired action, or
// a wrong code, fails with ErrCodeMismatch.
func (r *PendingActionRegistry) Activate(ctx context.Context, key string, code int) (uuid.UUID, error) {
	action, ok := r.cache.Get(key)
	if !ok {
		return uuid.Nil, ErrCodeMismatch
	}

	if !action.IsValidAt(r.clock()) {
		return uuid.Nil, ErrCodeMismatch
	}

	if action.Code != code {
		return uuid.Nil, ErrCodeMismatch
	}

	// Consumed, not evicted: the callback commits the reservation, so the
	// death hook must not fire.
	r.cache.Remove(key)

	return action.Callback(ctx)
}

// Peek returns the pending action for key without consuming it.
func (r *PendingActionRegistry) Peek(key string) (*PendingAction, bool) {
	return r.cache.Get(key)
}

// Purge sweeps expired actions unconditionally, firing death hooks.
func (r *PendingActionRegistry) Purge() int {
	return r.cache.Purge()
}
