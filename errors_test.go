package auth_test

import (
	"errors"
	"testing"

	"github.com/KuchtaVR6/learnopedia-auth"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
)

func TestIsSessionInvalidatedError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "Structured session invalidated error",
			err:      auth.ErrSessionInvalidated,
			expected: true,
		},
		{
			name:     "Wrapped session invalidated error",
			err:      goerrors.Wrap(auth.ErrSessionInvalidated, goerrors.CategoryAuth, "refresh rejected"),
			expected: true,
		},
		{
			name: "Double wrapped session invalidated error",
			err: goerrors.Wrap(
				goerrors.Wrap(auth.ErrSessionInvalidated, goerrors.CategoryAuth, "refresh rejected"),
				goerrors.CategoryInternal, "middleware failure"),
			expected: true,
		},
		{
			name:     "Wrapped different structured error",
			err:      goerrors.Wrap(auth.ErrCodeMismatch, goerrors.CategoryAuth, "activation failed"),
			expected: false,
		},
		{
			name:     "Different structured error",
			err:      auth.ErrCodeMismatch,
			expected: false,
		},
		{
			name:     "Plain error",
			err:      errors.New("session invalidated"),
			expected: false,
		},
		{
			name:     "Nil error",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, auth.IsSessionInvalidatedError(tt.err))
		})
	}
}

func TestIsCodeMismatchError(t *testing.T) {
	assert.True(t, auth.IsCodeMismatchError(auth.ErrCodeMismatch))
	assert.False(t, auth.IsCodeMismatchError(auth.ErrSessionInvalidated))
	assert.False(t, auth.IsCodeMismatchError(nil))
}

func TestIsCredentialsNotUniqueError(t *testing.T) {
	assert.True(t, auth.IsCredentialsNotUniqueError(auth.ErrCredentialsNotUnique))
	assert.False(t, auth.IsCredentialsNotUniqueError(auth.ErrIdentityNotFound))
}

func TestIsActionNotDefinedError(t *testing.T) {
	assert.True(t, auth.IsActionNotDefinedError(auth.ErrActionNotDefined))
	assert.False(t, auth.IsActionNotDefinedError(auth.ErrCodeMismatch))
}

func TestStructuredErrorProperties(t *testing.T) {
	t.Run("ErrSessionInvalidated", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryAuth, auth.ErrSessionInvalidated.Category)
		assert.Equal(t, auth.TextCodeSessionInvalidated, auth.ErrSessionInvalidated.TextCode)
		assert.Equal(t, goerrors.CodeUnauthorized, auth.ErrSessionInvalidated.Code)
	})

	t.Run("ErrCodeMismatch", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryAuth, auth.ErrCodeMismatch.Category)
		assert.Equal(t, auth.TextCodeCodeMismatch, auth.ErrCodeMismatch.TextCode)
	})

	t.Run("ErrCredentialsNotUnique", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryConflict, auth.ErrCredentialsNotUnique.Category)
		assert.Equal(t, auth.TextCodeCredentialsNotUnique, auth.ErrCredentialsNotUnique.TextCode)
		assert.Equal(t, goerrors.CodeConflict, auth.ErrCredentialsNotUnique.Code)
	})

	t.Run("ErrActionNotDefined", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryInternal, auth.ErrActionNotDefined.Category)
		assert.Equal(t, auth.TextCodeActionNotDefined, auth.ErrActionNotDefined.TextCode)
	})

	t.Run("ErrIdentityNotFound", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryAuth, auth.ErrIdentityNotFound.Category)
		assert.Equal(t, auth.TextCodeIdentityNotFound, auth.ErrIdentityNotFound.TextCode)
	})

	t.Run("ErrMismatchedHashAndPassword", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryAuth, auth.ErrMismatchedHashAndPassword.Category)
		assert.Equal(t, auth.TextCodePasswordMismatch, auth.ErrMismatchedHashAndPassword.TextCode)
	})
}
