package auth

import (
	"github.com/goliatone/go-errors"
)

const (
	TextCodeSessionInvalidated   = "session_invalidated"
	TextCodeCodeMismatch         = "code_mismatch"
	TextCodeCredentialsNotUnique = "credentials_not_unique"
	TextCodeActionNotDefined     = "action_not_defined"
	TextCodeIdentityNotFound     = "identity_not_found"
	TextCodeEmptyPassword        = "empty_password"
	TextCodePasswordMismatch     = "password_mismatch"
	TextCodeTokenGeneration      = "token_generation_failed"
)

// ErrSessionInvalidated is returned when a refresh or access token is
// missing, expired, agent-mismatched, or explicitly logged out. Callers must
// force re-authentication.
var ErrSessionInvalidated = errors.New("session invalidated", errors.CategoryAuth).
	WithTextCode(TextCodeSessionInvalidated).
	WithCode(errors.CodeUnauthorized)

// ErrCodeMismatch is returned when a pending action is absent, expired, or
// the supplied verification code is wrong. Retryable up to the action TTL.
var ErrCodeMismatch = errors.New("verification code mismatch", errors.CategoryAuth).
	WithTextCode(TextCodeCodeMismatch).
	WithCode(errors.CodeUnauthorized)

// ErrCredentialsNotUnique is returned at registration time when an email or
// nickname is already taken or soft-reserved by another in-flight request.
var ErrCredentialsNotUnique = errors.New("credentials not unique", errors.CategoryConflict).
	WithTextCode(TextCodeCredentialsNotUnique).
	WithCode(errors.CodeConflict)

// ErrActionNotDefined is returned when a pending action carries a kind that
// is not one of the recognized enumerated kinds. Programming error, should
// be unreachable in production.
var ErrActionNotDefined = errors.New("action kind not defined", errors.CategoryInternal).
	WithTextCode(TextCodeActionNotDefined)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryAuth).
	WithTextCode(TextCodeIdentityNotFound).
	WithCode(errors.CodeUnauthorized)

// ErrNoEmptyString is returned when hashing an empty password.
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword)

// ErrMismatchedHashAndPassword is returned when a cleartext password does
// not match the stored hash.
var ErrMismatchedHashAndPassword = errors.New("password does not match", errors.CategoryAuth).
	WithTextCode(TextCodePasswordMismatch).
	WithCode(errors.CodeUnauthorized)

// ErrTokenGeneration is returned when the random source fails.
var ErrTokenGeneration = errors.New("failed to generate token", errors.CategoryInternal).
	WithTextCode(TextCodeTokenGeneration)

// IsSessionInvalidatedError checks for session invalidation regardless of
// how deep the error is wrapped.
func IsSessionInvalidatedError(err error) bool {
	return hasTextCode(err, TextCodeSessionInvalidated)
}

// IsCodeMismatchError checks for verification code failures.
func IsCodeMismatchError(err error) bool {
	return hasTextCode(err, TextCodeCodeMismatch)
}

// IsCredentialsNotUniqueError checks for identifier uniqueness conflicts.
func IsCredentialsNotUniqueError(err error) bool {
	return hasTextCode(err, TextCodeCredentialsNotUnique)
}

// IsActionNotDefinedError checks for unrecognized pending action kinds.
func IsActionNotDefinedError(err error) bool {
	return hasTextCode(err, TextCodeActionNotDefined)
}

func hasTextCode(err error, code string) bool {
	// A wrapping *errors.Error carries its own (often empty) TextCode, so a
	// single As is not enough; keep descending through Source.
	for err != nil {
		var richErr *errors.Error
		if !errors.As(err, &richErr) {
			return false
		}
		if richErr.TextCode == code {
			return true
		}
		err = richErr.Unwrap()
	}
	return false
}
