package journal

import (
	"context"
	"errors"
	"sync"
)

var errNilEntry = errors.New("journal: nil entry")

// memJournal backs development setups without a database.
type memJournal struct {
	mu        sync.RWMutex
	bySession map[string][]*Entry
}

func NewMemory() Journal {
	return &memJournal{bySession: make(map[string][]*Entry)}
}

func (m *memJournal) Record(_ context.Context, e *Entry) error {
	if e == nil {
		return errNilEntry
	}
	prepare(e)

	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.bySession[e.SessionID]
	cp := *e
	cp.Seq = len(list) + 1
	e.Seq = cp.Seq
	m.bySession[e.SessionID] = append(list, &cp)
	return nil
}

// List returns entries oldest first; limit keeps the most recent ones.
func (m *memJournal) List(_ context.Context, sessionID string, limit int) ([]*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.bySession[sessionID]
	if limit > 0 && len(list) > limit {
		list = list[len(list)-limit:]
	}
	out := make([]*Entry, 0, len(list))
	for _, e := range list {
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memJournal) Close() error { return nil }
