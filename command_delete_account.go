package auth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type DeleteAccountMessage struct {
	UserID     uuid.UUID `json:"user_id"`
	OnResponse func(email, nickname string)
}

func (e DeleteAccountMessage) Type() string { return "user.delete" }

func (e DeleteAccountMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.UserID, validation.Required, validation.By(validateNonNilUUID)),
	)
}

// DeleteAccountHandler commits a verified account deletion and reports the
// released identifiers. Deletion is the only path that returns a taken
// identifier to the available pool.
type DeleteAccountHandler struct {
	repo RepositoryManager
}

func (h *DeleteAccountHandler) Execute(ctx context.Context, event DeleteAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during account deletion")
	default:
		return h.execute(ctx, event)
	}
}

func (h *DeleteAccountHandler) execute(ctx context.Context, event DeleteAccountMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	email, nickname := "", ""
	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().GetByIdentifierTx(ctx, tx, event.UserID.String())
		if err != nil {
			return err
		}
		email, nickname = user.Email, user.Nickname

		return h.repo.Users().SoftDeleteTx(ctx, tx, event.UserID)
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "account deletion transaction failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(email, nickname)
	}

	return nil
}
