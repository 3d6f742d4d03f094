package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// FENKey is the fixed per-session key the board position is stored under.
const FENKey = "fen"

// ErrSessionNotFound is returned when nothing is stored for a session.
var ErrSessionNotFound = errors.New("session not found")

// Store keeps session-scoped values, most importantly the board FEN.
type Store interface {
	LoadFEN(ctx context.Context, sessionID string) (string, error)
	SaveFEN(ctx context.Context, sessionID, fen string) error
	Delete(ctx context.Context, sessionID string) error
	Close() error
}

type memEntry struct {
	fen     string
	expires time.Time
}

// MemoryStore is used when no Redis is configured.
type MemoryStore struct {
	mu   sync.RWMutex
	ttl  time.Duration
	now  func() time.Time
	data map[string]memEntry
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now, data: make(map[string]memEntry)}
}

func (m *MemoryStore) LoadFEN(_ context.Context, sessionID string) (string, error) {
	id := strings.TrimSpace(sessionID)
	m.mu.RLock()
	e, ok := m.data[id]
	m.mu.RUnlock()
	if !ok {
		return "", ErrSessionNotFound
	}
	if !e.expires.IsZero() && m.now().After(e.expires) {
		m.mu.Lock()
		delete(m.data, id)
		m.mu.Unlock()
		return "", ErrSessionNotFound
	}
	return e.fen, nil
}

func (m *MemoryStore) SaveFEN(_ context.Context, sessionID, fen string) error {
	e := memEntry{fen: fen}
	if m.ttl > 0 {
		e.expires = m.now().Add(m.ttl)
	}
	m.mu.Lock()
	m.data[strings.TrimSpace(sessionID)] = e
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.data, strings.TrimSpace(sessionID))
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Close() error { return nil }
