package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Auther wires the credential engine together: identity verification,
// session issuance, pending-action flows, and the identifier uniqueness
// gate. Construct with NewAuthenticator and the With* methods; every
// collaborator is injected, there are no package-level singletons.
type Auther struct {
	repo         RepositoryManager
	sessions     *SessionRegistry
	pending      *PendingActionRegistry
	reservations *ReservationCache
	notifier     Notifier
	hasher       PasswordAuthenticator
	logger       Logger
	clock        Clock
	tokens       TokenGenerator
	codes        CodeGenerator
	tokenLength  int
}

var _ IdentityProvider = (*Auther)(nil)

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(repo RepositoryManager, cfg Config) *Auther {
	reservationOpts := []ReservationOption{}
	if cfg.GetLenientReservations() {
		reservationOpts = append(reservationOpts, WithLenientReservations())
	}
	reservations := NewReservationCache(reservationOpts...)

	a := &Auther{
		repo:         repo,
		reservations: reservations,
		notifier:     noopNotifier{},
		hasher:       bcryptHasher{},
		logger:       defLogger{},
		clock:        time.Now,
		tokens:       RandomToken,
		codes:        GenerateCode,
		tokenLength:  cfg.GetTokenLength(),
	}

	a.sessions = NewSessionRegistry(repo.Sessions(),
		WithSessionTTL(cfg.GetSessionTTL()),
		WithAccessTokenTTL(cfg.GetAccessTokenTTL()),
		WithSweepInterval(cfg.GetSessionSweepInterval()),
	)
	a.pending = NewPendingActionRegistry(reservations,
		WithPendingActionTTL(cfg.GetPendingActionTTL()),
	)

	return a
}

func (a *Auther) WithLogger(logger Logger) *Auther {
	a.logger = logger
	return a
}

// WithNotifier sets the outbound notification service.
func (a *Auther) WithNotifier(notifier Notifier) *Auther {
	if notifier != nil {
		a.notifier = notifier
	}
	return a
}

// WithHasher overrides the password hashing capability.
func (a *Auther) WithHasher(hasher PasswordAuthenticator) *Auther {
	if hasher != nil {
		a.hasher = hasher
	}
	return a
}

// WithClock injects a custom clock into the Auther and both registries
// (useful for tests).
func (a *Auther) WithClock(clock Clock) *Auther {
	if clock == nil {
		return a
	}
	a.clock = clock
	WithRegistryClock(clock)(a.sessions)
	a.pending = NewPendingActionRegistry(a.reservations,
		WithPendingActionTTL(a.pending.ttl),
		WithPendingActionClock(clock),
	)
	return a
}

// WithTokenGenerator overrides the random token source.
func (a *Auther) WithTokenGenerator(gen TokenGenerator) *Auther {
	if gen != nil {
		a.tokens = gen
		WithRegistryTokenGenerator(gen)(a.sessions)
	}
	return a
}

// WithCodeGenerator overrides the verification code source.
func (a *Auther) WithCodeGenerator(gen CodeGenerator) *Auther {
	if gen != nil {
		a.codes = gen
	}
	return a
}

// Sessions exposes the session registry for callers that resolve
// credentials directly.
func (a *Auther) Sessions() *SessionRegistry {
	return a.sessions
}

// Reservations exposes the uniqueness gate.
func (a *Auther) Reservations() *ReservationCache {
	return a.reservations
}

// Bootstrap rehydrates the session registry from durable storage and seeds
// the reservation cache with every committed email and nickname. Uniqueness
// checks block until this has run.
func (a *Auther) Bootstrap(ctx context.Context) error {
	if err := a.sessions.Rehydrate(ctx); err != nil {
		return err
	}

	identifiers, err := a.repo.Users().ListIdentifiers(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to seed reservation cache")
	}
	a.reservations.Seed(identifiers)

	return nil
}

// Login verifies the identity and opens a session bound to the agent
// fingerprint, returning the refresh token.
func (a *Auther) Login(ctx context.Context, identifier, password, agent string) (string, error) {
	user, err := a.verifyIdentity(ctx, identifier, password)
	if err != nil {
		return "", err
	}

	if err := a.repo.Users().TrackSuccessfulLogin(ctx, user); err != nil {
		a.logger.Error("failed to track successful login: %v", err)
	}

	return a.sessions.AddSession(ctx, user.ID, agent)
}

// Logout destroys the session behind the refresh token, cascading to all
// its access tokens.
func (a *Auther) Logout(ctx context.Context, refreshToken string) error {
	return a.sessions.RemoveSession(ctx, refreshToken)
}

// RequestAccessToken exchanges a refresh token for a fresh access token,
// superseding all previously issued ones for that session.
func (a *Auther) RequestAccessToken(ctx context.Context, refreshToken, agent string) (string, error) {
	return a.sessions.AccessTokenRequest(ctx, refreshToken, agent)
}

// Resolve maps an access token to its principal, or reports an
// unauthenticated context. It never errors.
func (a *Auther) Resolve(ctx context.Context, accessToken, agent string) (uuid.UUID, bool) {
	return a.sessions.GetSession(ctx, accessToken, agent)
}

// RequestLogin starts a code-confirmed login: credentials are verified
// immediately but no session is opened until the emailed code is activated.
// Returns the pre-authentication token keying the pending action.
func (a *Auther) RequestLogin(ctx context.Context, identifier, password string) (string, error) {
	user, err := a.verifyIdentity(ctx, identifier, password)
	if err != nil {
		return "", err
	}

	userID := user.ID
	return a.requestPreAuth(ctx, ActionLogin, user.Email, nil,
		func(ctx context.Context) (uuid.UUID, error) {
			return userID, nil
		})
}

// RequestRegistration validates the payload, soft-reserves the requested
// identifiers, and parks the actual user creation behind an emailed code.
// Returns the pre-authentication token keying the pending action.
func (a *Auther) RequestRegistration(ctx context.Context, msg RegisterUserMessage) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", errors.Wrap(err, errors.CategoryValidation, "invalid registration payload")
	}

	handler := &RegisterUserHandler{repo: a.repo}
	reservation := &Reservation{Email: msg.Email, Nickname: msg.Nickname}

	return a.requestPreAuth(ctx, ActionRegistration, msg.Email, reservation,
		func(ctx context.Context) (uuid.UUID, error) {
			var created *User
			msg.OnResponse = func(u *User) { created = u }

			if err := handler.Execute(ctx, msg); err != nil {
				return uuid.Nil, err
			}

			a.reservations.MarkTaken(msg.Email, msg.Nickname)
			return created.ID, nil
		})
}

// RequestPasswordChange parks a password change behind an emailed code,
// keyed by the principal.
func (a *Auther) RequestPasswordChange(ctx context.Context, msg ChangePasswordMessage) error {
	if err := msg.Validate(); err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "invalid password change payload")
	}

	user, err := a.repo.Users().GetByIdentifier(ctx, msg.UserID.String())
	if err != nil {
		return ErrIdentityNotFound
	}

	handler := &ChangePasswordHandler{repo: a.repo}
	return a.requestForPrincipal(ctx, ActionPasswordChange, msg.UserID, user.Email,
		func(ctx context.Context) (uuid.UUID, error) {
			return msg.UserID, handler.Execute(ctx, msg)
		})
}

// RequestEmailChange parks an email change behind a code sent to the new
// address, keyed by the principal. The uniqueness gate is consulted up
// front and updated when the change commits.
func (a *Auther) RequestEmailChange(ctx context.Context, msg ChangeEmailMessage) error {
	if err := msg.Validate(); err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "invalid email change payload")
	}

	if a.reservations.Status(msg.NewEmail) != IdentifierAvailable {
		return ErrCredentialsNotUnique
	}

	handler := &ChangeEmailHandler{repo: a.repo}
	handler.OnResponse = func(previous string) {
		a.reservations.MarkAvailable(previous)
		a.reservations.MarkTaken(msg.NewEmail)
	}

	return a.requestForPrincipal(ctx, ActionEmailChange, msg.UserID, msg.NewEmail,
		func(ctx context.Context) (uuid.UUID, error) {
			return msg.UserID, handler.Execute(ctx, msg)
		})
}

// RequestAccountDeletion parks an account deletion behind an emailed code,
// keyed by the principal. On commit the identifiers return to the pool and
// every session of the principal is destroyed.
func (a *Auther) RequestAccountDeletion(ctx context.Context, msg DeleteAccountMessage) error {
	if err := msg.Validate(); err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "invalid account deletion payload")
	}

	user, err := a.repo.Users().GetByIdentifier(ctx, msg.UserID.String())
	if err != nil {
		return ErrIdentityNotFound
	}

	handler := &DeleteAccountHandler{repo: a.repo}
	msg.OnResponse = func(email, nickname string) {
		a.reservations.MarkAvailable(email, nickname)
	}

	return a.requestForPrincipal(ctx, ActionAccountDeletion, msg.UserID, user.Email,
		func(ctx context.Context) (uuid.UUID, error) {
			if err := handler.Execute(ctx, msg); err != nil {
				return uuid.Nil, err
			}
			return msg.UserID, nil
		})
}

// RequestPasswordRecovery starts a forgot-password flow keyed by a
// pre-authentication token: the new password is captured now, committed
// only when the emailed code is activated.
func (a *Auther) RequestPasswordRecovery(ctx context.Context, email, newPassword string) (string, error) {
	user, err := a.repo.Users().GetByIdentifier(ctx, email)
	if err != nil {
		return "", ErrIdentityNotFound
	}

	msg := ChangePasswordMessage{UserID: user.ID, NewPassword: newPassword}
	if err := msg.Validate(); err != nil {
		return "", errors.Wrap(err, errors.CategoryValidation, "invalid recovery payload")
	}

	handler := &ChangePasswordHandler{repo: a.repo}
	return a.requestPreAuth(ctx, ActionPasswordRecovery, user.Email, nil,
		func(ctx context.Context) (uuid.UUID, error) {
			return msg.UserID, handler.Execute(ctx, msg)
		})
}

// Activate verifies the code for the pending action under key and runs its
// deferred callback, returning the resulting principal.
func (a *Auther) Activate(ctx context.Context, key string, code int) (uuid.UUID, error) {
	return a.pending.Activate(ctx, key, code)
}

// ActivateAndLogin verifies the code and, on success, opens a session for
// the resulting principal bound to the agent fingerprint. This is how
// registration and code-confirmed login flows end with a refresh token.
func (a *Auther) ActivateAndLogin(ctx context.Context, key string, code int, agent string) (string, error) {
	userID, err := a.pending.Activate(ctx, key, code)
	if err != nil {
		return "", err
	}
	return a.sessions.AddSession(ctx, userID, agent)
}

// VerifyIdentity implements IdentityProvider for callers that only need
// credential verification without opening a session.
func (a *Auther) VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error) {
	user, err := a.verifyIdentity(ctx, identifier, password)
	if err != nil {
		return nil, err
	}
	return principalFromUser(user), nil
}

// FindIdentityByIdentifier looks up an identity by email, nickname, or id
// without checking credentials.
func (a *Auther) FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error) {
	user, err := a.repo.Users().GetByIdentifier(ctx, identifier)
	if err != nil {
		return nil, ErrIdentityNotFound
	}
	return principalFromUser(user), nil
}

func (a *Auther) verifyIdentity(ctx context.Context, identifier, password string) (*User, error) {
	user, err := a.repo.Users().GetByIdentifier(ctx, identifier)
	if err != nil {
		return nil, ErrIdentityNotFound
	}

	if err := a.hasher.ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		return nil, ErrIdentityNotFound
	}

	return user, nil
}

// requestPreAuth creates a pending action keyed by a fresh opaque token and
// notifies the destination with the verification code.
func (a *Auther) requestPreAuth(ctx context.Context, kind ActionKind, destination string, reservation *Reservation, callback DeferredCallback) (string, error) {
	key, err := a.tokens(a.tokenLength)
	if err != nil {
		return "", err
	}

	if err := a.request(ctx, kind, key, destination, reservation, callback); err != nil {
		return "", err
	}

	return key, nil
}

// requestForPrincipal creates a pending action keyed by the principal,
// superseding any prior pending action for that principal.
func (a *Auther) requestForPrincipal(ctx context.Context, kind ActionKind, userID uuid.UUID, destination string, callback DeferredCallback) error {
	return a.request(ctx, kind, userID.String(), destination, nil, callback)
}

func (a *Auther) request(ctx context.Context, kind ActionKind, key, destination string, reservation *Reservation, callback DeferredCallback) error {
	code, err := a.codes()
	if err != nil {
		return err
	}

	action := &PendingAction{
		Kind:        kind,
		Code:        code,
		Callback:    callback,
		Reservation: reservation,
	}

	if err := a.pending.Request(ctx, key, action); err != nil {
		return err
	}

	if err := a.notifier.Send(ctx, destination, Message{
		Subject: "Verification code",
		Code:    code,
	}); err != nil {
		a.logger.Error("failed to deliver %s verification code: %v", kind, err)
	}

	return nil
}
