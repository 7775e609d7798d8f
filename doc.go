// Package auth implements the expiring-credential and session-lifecycle
// engine of a multi-tenant content platform: issuance, validation, rotation,
// and revocation of time-bounded credentials, plus code-gated deferred
// actions and identifier reservation for in-flight registrations.
//
// Credential hierarchy:
//   - A Session backs a long-lived refresh token bound to a single client
//     agent fingerprint. Each Session owns an ordered sequence of short-lived
//     AccessTokens; only the most recently issued one is accepted, which is
//     the mechanism for detecting token replay and concurrent refresh races.
//   - SessionRegistry indexes both credential kinds by token string, mirrors
//     every state change to a durable SessionStore, and rehydrates the full
//     hierarchy from storage on startup.
//
// Deferred actions:
//   - PendingActionRegistry maps a principal or an opaque pre-auth token to a
//     single-use, code-gated callback with its own short TTL. The callback is
//     the only place side effects happen: nothing is committed until the user
//     confirms with the correct code.
//   - Registration actions additionally soft-reserve the requested email and
//     nickname in the ReservationCache so two concurrent, unverified
//     registrations cannot claim the same identifiers. The reservation is
//     released if the action expires or is superseded.
//
// Expiry plumbing:
//   - Expirable is the base time-to-live capability, and PurgingCache is a
//     generic keyed store of Expirable values that sweeps lazily on writes,
//     gated by a minimum inter-purge interval. There are no background
//     timers; all eviction happens synchronously inside mutating calls so
//     behavior stays deterministic under test.
//
// All services are explicitly constructed with injected collaborators
// (store, clock, random source, notifier) rather than reached through
// package globals.
package auth
