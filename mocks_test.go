package auth_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/KuchtaVR6/learnopedia-auth"
	"github.com/google/uuid"
)

// fakeClock is a manually advanced clock shared by the registries under
// test.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// seqTokens generates deterministic token strings: tok-1, tok-2, ...
type seqTokens struct {
	mu sync.Mutex
	n  int
}

func (s *seqTokens) Generate(length int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("tok-%d", s.n), nil
}

// fakeSessionStore is an in-memory SessionStore recording every mirror
// operation.
type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*auth.SessionRecord
	tokens   map[string]*auth.AccessTokenRecord

	createSessionErr error
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		sessions: make(map[uuid.UUID]*auth.SessionRecord),
		tokens:   make(map[string]*auth.AccessTokenRecord),
	}
}

func (f *fakeSessionStore) CreateSession(ctx context.Context, record *auth.SessionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createSessionErr != nil {
		return f.createSessionErr
	}
	f.sessions[record.ID] = record
	return nil
}

func (f *fakeSessionStore) DeleteSession(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
	for token, rec := range f.tokens {
		if rec.SessionID == id {
			delete(f.tokens, token)
		}
	}
	return nil
}

func (f *fakeSessionStore) CreateAccessToken(ctx context.Context, record *auth.AccessTokenRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[record.Token] = record
	return nil
}

func (f *fakeSessionStore) DeleteAccessToken(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, token)
	return nil
}

func (f *fakeSessionStore) ListSessionsWithTokens(ctx context.Context) ([]*auth.SessionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*auth.SessionRecord, 0, len(f.sessions))
	for _, sess := range f.sessions {
		copied := *sess
		copied.Tokens = nil
		for _, tok := range f.tokens {
			if tok.SessionID == sess.ID {
				copied.Tokens = append(copied.Tokens, tok)
			}
		}
		sortTokensBySequence(copied.Tokens)
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakeSessionStore) sessionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

func (f *fakeSessionStore) tokenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tokens)
}

func sortTokensBySequence(tokens []*auth.AccessTokenRecord) {
	for i := 1; i < len(tokens); i++ {
		for j := i; j > 0 && tokens[j-1].Sequence > tokens[j].Sequence; j-- {
			tokens[j-1], tokens[j] = tokens[j], tokens[j-1]
		}
	}
}

// captureNotifier records every delivered message.
type captureNotifier struct {
	mu       sync.Mutex
	messages []capturedMessage
}

type capturedMessage struct {
	destination string
	message     auth.Message
}

func (n *captureNotifier) Send(ctx context.Context, destination string, message auth.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, capturedMessage{destination: destination, message: message})
	return nil
}

func (n *captureNotifier) last() (capturedMessage, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.messages) == 0 {
		return capturedMessage{}, false
	}
	return n.messages[len(n.messages)-1], true
}
