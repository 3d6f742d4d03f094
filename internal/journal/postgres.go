package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

const schema = `CREATE TABLE IF NOT EXISTS board_moves (
    id          UUID PRIMARY KEY,
    session_id  TEXT NOT NULL,
    seq         INTEGER NOT NULL,
    piece_id    TEXT NOT NULL,
    from_tile   CHAR(2) NOT NULL,
    to_tile     CHAR(2) NOT NULL,
    captured    TEXT NOT NULL DEFAULT '',
    extra_from  TEXT NOT NULL DEFAULT '',
    extra_to    TEXT NOT NULL DEFAULT '',
    placement   TEXT NOT NULL,
    played_at   TIMESTAMPTZ NOT NULL,
    UNIQUE (session_id, seq)
)`

// Repository persists the journal in PostgreSQL.
type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Record appends e, assigning the next sequence number of its session.
// Writers of one session are serialised by a transaction scoped advisory lock.
func (r *Repository) Record(ctx context.Context, e *Entry) (err error) {
	if e == nil {
		return errNilEntry
	}
	prepare(e)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record move: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, e.SessionID); err != nil {
		return fmt.Errorf("record move: lock session: %w", err)
	}

	const q = `INSERT INTO board_moves (
        id, session_id, seq, piece_id, from_tile, to_tile,
        captured, extra_from, extra_to, placement, played_at
      ) VALUES (
        $1, $2,
        COALESCE((SELECT MAX(seq) FROM board_moves WHERE session_id = $2), 0) + 1,
        $3, $4, $5, $6, $7, $8, $9, $10
      ) RETURNING seq`
	if err = tx.QueryRowContext(ctx, q,
		e.ID, e.SessionID, e.PieceID, e.FromTile, e.ToTile,
		e.Captured, e.ExtraFrom, e.ExtraTo, e.Placement, e.PlayedAt,
	).Scan(&e.Seq); err != nil {
		return fmt.Errorf("record move: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("record move: commit: %w", err)
	}
	return nil
}

func (r *Repository) List(ctx context.Context, sessionID string, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 1000
	}
	const q = `SELECT id, session_id, seq, piece_id, from_tile, to_tile,
        captured, extra_from, extra_to, placement, played_at
      FROM (
        SELECT * FROM board_moves WHERE session_id = $1 ORDER BY seq DESC LIMIT $2
      ) recent ORDER BY seq ASC`
	rows, err := r.db.QueryContext(ctx, q, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list moves: %w", err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Seq, &e.PieceID, &e.FromTile, &e.ToTile,
			&e.Captured, &e.ExtraFrom, &e.ExtraTo, &e.Placement, &e.PlayedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
