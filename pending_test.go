package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/KuchtaVR6/learnopedia-auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPendingFixture(t *testing.T) (*auth.PendingActionRegistry, *auth.ReservationCache, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	reservations := auth.NewReservationCache()
	reservations.Seed(nil)
	registry := auth.NewPendingActionRegistry(reservations,
		auth.WithPendingActionClock(clock.Now),
	)
	return registry, reservations, clock
}

func callbackReturning(id uuid.UUID, calls *int) auth.DeferredCallback {
	return func(ctx context.Context) (uuid.UUID, error) {
		*calls++
		return id, nil
	}
}

func TestActivateRunsCallbackOnce(t *testing.T) {
	registry, _, _ := newPendingFixture(t)
	ctx := context.Background()
	principal := uuid.New()
	calls := 0

	err := registry.Request(ctx, "key-1", &auth.PendingAction{
		Kind:     auth.ActionLogin,
		Code:     12345,
		Callback: callbackReturning(principal, &calls),
	})
	require.NoError(t, err)

	got, err := registry.Activate(ctx, "key-1", 12345)
	require.NoError(t, err)
	assert.Equal(t, principal, got)
	assert.Equal(t, 1, calls)

	// Consumed: a second activation with the right code finds nothing.
	_, err = registry.Activate(ctx, "key-1", 12345)
	require.Error(t, err)
	assert.True(t, auth.IsCodeMismatchError(err))
	assert.Equal(t, 1, calls)
}

func TestActivateWrongCodeLeavesActionPending(t *testing.T) {
	registry, _, _ := newPendingFixture(t)
	ctx := context.Background()
	calls := 0

	err := registry.Request(ctx, "key-1", &auth.PendingAction{
		Kind:     auth.ActionPasswordChange,
		Code:     12345,
		Callback: callbackReturning(uuid.New(), &calls),
	})
	require.NoError(t, err)

	_, err = registry.Activate(ctx, "key-1", 54321)
	require.Error(t, err)
	assert.True(t, auth.IsCodeMismatchError(err))
	assert.Equal(t, 0, calls)

	// The action survives a failed attempt.
	_, err = registry.Activate(ctx, "key-1", 12345)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestActivateExpiredActionFails(t *testing.T) {
	registry, _, clock := newPendingFixture(t)
	ctx := context.Background()
	calls := 0

	err := registry.Request(ctx, "key-1", &auth.PendingAction{
		Kind:     auth.ActionEmailChange,
		Code:     12345,
		Callback: callbackReturning(uuid.New(), &calls),
	})
	require.NoError(t, err)

	clock.Advance(auth.DefaultPendingActionTTL + time.Second)

	_, err = registry.Activate(ctx, "key-1", 12345)
	require.Error(t, err)
	assert.True(t, auth.IsCodeMismatchError(err))
	assert.Equal(t, 0, calls)
}

func TestActivateUnknownKeyFails(t *testing.T) {
	registry, _, _ := newPendingFixture(t)

	_, err := registry.Activate(context.Background(), "missing", 12345)
	require.Error(t, err)
	assert.True(t, auth.IsCodeMismatchError(err))
}

func TestRequestRejectsUndefinedKind(t *testing.T) {
	registry, _, _ := newPendingFixture(t)
	ctx := context.Background()

	err := registry.Request(ctx, "key-1", &auth.PendingAction{
		Code:     12345,
		Callback: callbackReturning(uuid.New(), new(int)),
	})
	require.Error(t, err)
	assert.True(t, auth.IsActionNotDefinedError(err))

	err = registry.Request(ctx, "key-1", nil)
	assert.True(t, auth.IsActionNotDefinedError(err))
}

func TestRegistrationReservesIdentifiers(t *testing.T) {
	registry, reservations, _ := newPendingFixture(t)
	ctx := context.Background()

	err := registry.Request(ctx, "token-1", &auth.PendingAction{
		Kind:        auth.ActionRegistration,
		Code:        12345,
		Callback:    callbackReturning(uuid.New(), new(int)),
		Reservation: &auth.Reservation{Email: "ada@example.com", Nickname: "ada"},
	})
	require.NoError(t, err)
	assert.Equal(t, auth.IdentifierReserved, reservations.Status("ada@example.com"))
	assert.Equal(t, auth.IdentifierReserved, reservations.Status("ada"))

	// A second registration for the same identifiers is rejected up front.
	err = registry.Request(ctx, "token-2", &auth.PendingAction{
		Kind:        auth.ActionRegistration,
		Code:        67890,
		Callback:    callbackReturning(uuid.New(), new(int)),
		Reservation: &auth.Reservation{Email: "ada@example.com", Nickname: "other"},
	})
	require.Error(t, err)
	assert.True(t, auth.IsCredentialsNotUniqueError(err))
}

func TestSupersededRegistrationReleasesReservation(t *testing.T) {
	registry, reservations, _ := newPendingFixture(t)
	ctx := context.Background()

	err := registry.Request(ctx, "user-key", &auth.PendingAction{
		Kind:        auth.ActionRegistration,
		Code:        11111,
		Callback:    callbackReturning(uuid.New(), new(int)),
		Reservation: &auth.Reservation{Email: "old@example.com", Nickname: "old"},
	})
	require.NoError(t, err)

	// The newer request under the same key evicts the old action, whose
	// death hook frees its identifiers.
	err = registry.Request(ctx, "user-key", &auth.PendingAction{
		Kind:        auth.ActionRegistration,
		Code:        22222,
		Callback:    callbackReturning(uuid.New(), new(int)),
		Reservation: &auth.Reservation{Email: "new@example.com", Nickname: "new"},
	})
	require.NoError(t, err)

	assert.Equal(t, auth.IdentifierAvailable, reservations.Status("old@example.com"))
	assert.Equal(t, auth.IdentifierAvailable, reservations.Status("old"))
	assert.Equal(t, auth.IdentifierReserved, reservations.Status("new@example.com"))
}

func TestExpiredRegistrationReleasesReservationOnPurge(t *testing.T) {
	registry, reservations, clock := newPendingFixture(t)
	ctx := context.Background()

	err := registry.Request(ctx, "token-1", &auth.PendingAction{
		Kind:        auth.ActionRegistration,
		Code:        12345,
		Callback:    callbackReturning(uuid.New(), new(int)),
		Reservation: &auth.Reservation{Email: "ada@example.com", Nickname: "ada"},
	})
	require.NoError(t, err)

	clock.Advance(auth.DefaultPendingActionTTL + time.Second)
	evicted := registry.Purge()
	assert.Equal(t, 1, evicted)

	assert.Equal(t, auth.IdentifierAvailable, reservations.Status("ada@example.com"))
	assert.Equal(t, auth.IdentifierAvailable, reservations.Status("ada"))
}

func TestExpiredRegistrationFreesIdentifiersForNextRequest(t *testing.T) {
	registry, reservations, clock := newPendingFixture(t)
	ctx := context.Background()

	err := registry.Request(ctx, "token-1", &auth.PendingAction{
		Kind:        auth.ActionRegistration,
		Code:        12345,
		Callback:    callbackReturning(uuid.New(), new(int)),
		Reservation: &auth.Reservation{Email: "ada@example.com", Nickname: "ada"},
	})
	require.NoError(t, err)

	clock.Advance(auth.DefaultPendingActionTTL + time.Second)

	// No explicit purge: the new request itself must sweep the dead action
	// so its stale reservation cannot reject the same identifiers.
	err = registry.Request(ctx, "token-2", &auth.PendingAction{
		Kind:        auth.ActionRegistration,
		Code:        67890,
		Callback:    callbackReturning(uuid.New(), new(int)),
		Reservation: &auth.Reservation{Email: "ada@example.com", Nickname: "ada"},
	})
	require.NoError(t, err)

	assert.Equal(t, auth.IdentifierReserved, reservations.Status("ada@example.com"))
	assert.Equal(t, auth.IdentifierReserved, reservations.Status("ada"))

	_, ok := registry.Peek("token-1")
	assert.False(t, ok)
}

func TestLenientSupersedeKeepsNewReservation(t *testing.T) {
	clock := newFakeClock()
	reservations := auth.NewReservationCache(auth.WithLenientReservations())
	reservations.Seed(nil)
	registry := auth.NewPendingActionRegistry(reservations,
		auth.WithPendingActionClock(clock.Now),
	)
	ctx := context.Background()

	err := registry.Request(ctx, "user-key", &auth.PendingAction{
		Kind:        auth.ActionRegistration,
		Code:        11111,
		Callback:    callbackReturning(uuid.New(), new(int)),
		Reservation: &auth.Reservation{Email: "ada@example.com", Nickname: "ada"},
	})
	require.NoError(t, err)

	// Same key, same identifiers. The old action's death hook must fire
	// before the new reservation is made, not after, or it would release
	// the identifiers the replacement just claimed.
	err = registry.Request(ctx, "user-key", &auth.PendingAction{
		Kind:        auth.ActionRegistration,
		Code:        22222,
		Callback:    callbackReturning(uuid.New(), new(int)),
		Reservation: &auth.Reservation{Email: "ada@example.com", Nickname: "ada"},
	})
	require.NoError(t, err)

	assert.Equal(t, auth.IdentifierReserved, reservations.Status("ada@example.com"))
	assert.Equal(t, auth.IdentifierReserved, reservations.Status("ada"))
}

func TestActivatedRegistrationKeepsReservation(t *testing.T) {
	registry, reservations, _ := newPendingFixture(t)
	ctx := context.Background()
	principal := uuid.New()

	err := registry.Request(ctx, "token-1", &auth.PendingAction{
		Kind: auth.ActionRegistration,
		Code: 12345,
		Callback: func(ctx context.Context) (uuid.UUID, error) {
			reservations.MarkTaken("ada@example.com", "ada")
			return principal, nil
		},
		Reservation: &auth.Reservation{Email: "ada@example.com", Nickname: "ada"},
	})
	require.NoError(t, err)

	got, err := registry.Activate(ctx, "token-1", 12345)
	require.NoError(t, err)
	assert.Equal(t, principal, got)

	// Consumption bypasses the death hook; the commit stands.
	assert.Equal(t, auth.IdentifierTaken, reservations.Status("ada@example.com"))
	assert.Equal(t, auth.IdentifierTaken, reservations.Status("ada"))
}

func TestPeekDoesNotConsume(t *testing.T) {
	registry, _, _ := newPendingFixture(t)
	ctx := context.Background()

	err := registry.Request(ctx, "key-1", &auth.PendingAction{
		Kind:     auth.ActionAccountDeletion,
		Code:     12345,
		Callback: callbackReturning(uuid.New(), new(int)),
	})
	require.NoError(t, err)

	action, ok := registry.Peek("key-1")
	require.True(t, ok)
	assert.Equal(t, auth.ActionAccountDeletion, action.Kind)

	_, ok = registry.Peek("key-1")
	assert.True(t, ok)
}
