// Package memory implements an in-memory session repository.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"orangemon/internal/domain"
)

// ErrNotFound is returned when a session token is unknown.
var ErrNotFound = errors.New("session not found")

// SessionRepo is a mutex-guarded in-memory session store. Sessions are
// not persisted across restarts; a restart simply requires a new login.
type SessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

var _ domain.SessionRepository = (*SessionRepo)(nil)

// NewSessionRepo creates an empty session store.
func NewSessionRepo() *SessionRepo {
	return &SessionRepo{sessions: make(map[string]*domain.Session)}
}

// Create stores a new session.
func (r *SessionRepo) Create(ctx context.Context, username, token string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[token] = &domain.Session{
		Token:     token,
		Username:  username,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	return nil
}

// GetByToken looks up a session by its token.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[token]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *s
	return &copied, nil
}

// Delete removes a session.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, token)
	return nil
}

// DeleteExpired removes every session past its expiry.
func (r *SessionRepo) DeleteExpired(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for token, s := range r.sessions {
		if now.After(s.ExpiresAt) {
			delete(r.sessions, token)
		}
	}
	return nil
}
