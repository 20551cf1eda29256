package repository

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/igrejaonline/portal/internal/model"
)

// MemorySessionRepository keeps sessions in process memory. Every session is
// lost on restart, which is acceptable for development and tests only.
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]model.Session

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewMemorySessionRepository starts a cleanup goroutine that drops expired
// sessions every interval. Close stops it.
func NewMemorySessionRepository(interval time.Duration) *MemorySessionRepository {
	r := &MemorySessionRepository{
		sessions: make(map[string]model.Session),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	go r.cleanupLoop(interval)

	return r
}

func (r *MemorySessionRepository) Create(_ context.Context, session *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[session.ID] = *session
	return nil
}

func (r *MemorySessionRepository) ByID(_ context.Context, id string) (*model.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

func (r *MemorySessionRepository) Touch(_ context.Context, id string, lastSeenAt, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	session.LastSeenAt = lastSeenAt
	session.ExpiresAt = expiresAt
	r.sessions[id] = session
	return nil
}

func (r *MemorySessionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, id)
	return nil
}

func (r *MemorySessionRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, session := range r.sessions {
		if session.Expired(now) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored sessions, expired ones included.
func (r *MemorySessionRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close stops the cleanup goroutine and waits for it to exit.
func (r *MemorySessionRepository) Close() error {
	r.once.Do(func() { close(r.stop) })
	<-r.done
	return nil
}

func (r *MemorySessionRepository) cleanupLoop(interval time.Duration) {
	defer close(r.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case now := <-ticker.C:
			n, _ := r.DeleteExpired(context.Background(), now)
			if n > 0 {
				slog.Debug("expired sessions removed", "count", n)
			}
		}
	}
}
