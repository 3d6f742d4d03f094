package journal

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Entry is one applied move of a session.
type Entry struct {
	ID        uuid.UUID
	SessionID string
	Seq       int
	PieceID   string
	FromTile  string
	ToTile    string
	Captured  string
	ExtraFrom string
	ExtraTo   string
	Placement string
	PlayedAt  time.Time
}

// Journal records applied moves.
type Journal interface {
	Record(ctx context.Context, e *Entry) error
	List(ctx context.Context, sessionID string, limit int) ([]*Entry, error)
	Close() error
}

func prepare(e *Entry) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.PlayedAt.IsZero() {
		e.PlayedAt = time.Now().UTC()
	}
}
