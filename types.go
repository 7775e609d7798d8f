package auth

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// Clock returns the current time. Injected everywhere a validity window is
// evaluated so tests can run against a fake clock.
type Clock func() time.Time

// Identity holds the attributes of an identity
type Identity interface {
	ID() string
	Nickname() string
	Email() string
}

// IdentityProvider ensure we have a store to retrieve auth identity
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error)
	FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// Notifier delivers a rendered message to a destination. The engine never
// formats messages itself; it only supplies the verification code and the
// recipient resolution data.
type Notifier interface {
	Send(ctx context.Context, destination string, message Message) error
}

// Message is the payload handed to a Notifier.
type Message struct {
	Subject string
	Body    string
	Code    int
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

type noopNotifier struct{}

func (noopNotifier) Send(context.Context, string, Message) error { return nil }

// principalFromUser adapts a stored user into the caller-facing identity.
func principalFromUser(u *User) Identity {
	return authIdentity{
		id:       u.ID.String(),
		email:    u.Email,
		nickname: u.Nickname,
	}
}

type authIdentity struct {
	id       string
	email    string
	nickname string
}

func (a authIdentity) ID() string       { return a.id }
func (a authIdentity) Email() string    { return a.email }
func (a authIdentity) Nickname() string { return a.nickname }
