package auth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type ChangePasswordMessage struct {
	UserID      uuid.UUID `json:"user_id"`
	NewPassword string    `json:"new_password"`
}

func (e ChangePasswordMessage) Type() string { return "user.password_change" }

func (e ChangePasswordMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.UserID, validation.Required, validation.By(validateNonNilUUID)),
		validation.Field(&e.NewPassword, validation.Required, validation.Length(10, 100)),
	)
}

// ChangePasswordHandler commits a verified password change.
type ChangePasswordHandler struct {
	repo RepositoryManager
}

func (h *ChangePasswordHandler) Execute(ctx context.Context, event ChangePasswordMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during password change")
	default:
		return h.execute(ctx, event)
	}
}

func (h *ChangePasswordHandler) execute(ctx context.Context, event ChangePasswordMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		hash, err := HashPassword(event.NewPassword)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		return h.repo.Users().ResetPasswordTx(ctx, tx, event.UserID, hash)
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "password change transaction failed")
	}

	return nil
}

type ChangeEmailMessage struct {
	UserID   uuid.UUID `json:"user_id"`
	NewEmail string    `json:"new_email"`
}

func (e ChangeEmailMessage) Type() string { return "user.email_change" }

func (e ChangeEmailMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.UserID, validation.Required, validation.By(validateNonNilUUID)),
		validation.Field(&e.NewEmail, validation.Required, validation.Length(6, 100), is.Email),
	)
}

// ChangeEmailHandler commits a verified email change and reports the
// previous address so the caller can update the uniqueness gate.
type ChangeEmailHandler struct {
	repo       RepositoryManager
	OnResponse func(previousEmail string)
}

func (h *ChangeEmailHandler) Execute(ctx context.Context, event ChangeEmailMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during email change")
	default:
		return h.execute(ctx, event)
	}
}

func (h *ChangeEmailHandler) execute(ctx context.Context, event ChangeEmailMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	previous := ""
	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().GetByIdentifierTx(ctx, tx, event.UserID.String())
		if err != nil {
			return err
		}
		previous = user.Email

		return h.repo.Users().UpdateEmailTx(ctx, tx, event.UserID, event.NewEmail)
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "email change transaction failed")
	}

	if h.OnResponse != nil {
		h.OnResponse(previous)
	}

	return nil
}

func validateNonNilUUID(value any) error {
	id, ok := value.(uuid.UUID)
	if !ok || id == uuid.Nil {
		return goerrors.New("a non-nil user id is required", goerrors.CategoryBadInput)
	}
	return nil
}
