package web

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Hub owns the live board sessions.
type Hub struct {
	mu       sync.Mutex
	sessions map[string]*Session
	opening  map[string]chan struct{}
	deps     Deps
}

func NewHub(deps Deps) *Hub {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Hub{
		sessions: make(map[string]*Session),
		opening:  make(map[string]chan struct{}),
		deps:     deps,
	}
}

// Get returns the session for id, creating and seeding it on first use.
// Seeding talks to the store and the move server, so it runs outside the hub lock;
// concurrent callers for the same id wait for the first one.
func (h *Hub) Get(ctx context.Context, id string) *Session {
	for {
		h.mu.Lock()
		if s, ok := h.sessions[id]; ok {
			h.mu.Unlock()
			s.touch()
			return s
		}
		wait, busy := h.opening[id]
		if !busy {
			done := make(chan struct{})
			h.opening[id] = done
			h.mu.Unlock()
			return h.open(ctx, id, done)
		}
		h.mu.Unlock()
		<-wait
	}
}

func (h *Hub) open(ctx context.Context, id string, done chan struct{}) *Session {
	s := newSession(ctx, id, h.deps)

	h.mu.Lock()
	h.sessions[id] = s
	delete(h.opening, id)
	h.mu.Unlock()
	close(done)

	h.deps.Logger.Info("session_opened", zap.String("session_id", id))
	return s
}

// Lookup returns an existing session without creating one.
func (h *Hub) Lookup(id string) (*Session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[id]
	return s, ok
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Sweep closes sessions without watchers that have been idle longer than maxIdle.
// The stored position survives, so a later visit restores the board.
func (h *Hub) Sweep(now time.Time, maxIdle time.Duration) int {
	h.mu.Lock()
	var idle []*Session
	for id, s := range h.sessions {
		if s.watcherCount() == 0 && now.Sub(s.idleSince()) > maxIdle {
			idle = append(idle, s)
			delete(h.sessions, id)
		}
	}
	h.mu.Unlock()

	for _, s := range idle {
		s.Close()
		h.deps.Logger.Info("session_closed_idle", zap.String("session_id", s.ID()))
	}
	return len(idle)
}

// Run sweeps idle sessions until ctx is done.
func (h *Hub) Run(ctx context.Context, every, maxIdle time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			h.Sweep(now, maxIdle)
		}
	}
}

func (h *Hub) Close() {
	h.mu.Lock()
	all := h.sessions
	h.sessions = make(map[string]*Session)
	h.mu.Unlock()
	for _, s := range all {
		s.Close()
	}
}
