package web

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chessplayer-web/internal/audio"
	"github.com/park285/chessplayer-web/internal/board"
	"github.com/park285/chessplayer-web/internal/interact"
	"github.com/park285/chessplayer-web/internal/journal"
	"github.com/park285/chessplayer-web/internal/msgcat"
	"github.com/park285/chessplayer-web/internal/render"
	"github.com/park285/chessplayer-web/internal/session"
	"github.com/park285/chessplayer-web/pkg/viewdto"
)

// MoveServer is the move server as seen by one board session.
type MoveServer interface {
	interact.MoveService
	Reset(ctx context.Context) error
}

// Deps are shared by every session of a hub.
type Deps struct {
	Moves       func(sessionID string) MoveServer
	Store       session.Store
	Journal     journal.Journal
	Manifest    *audio.Manifest
	Messages    *msgcat.Catalog
	Logger      *zap.Logger
	MoveTimeout time.Duration
}

// Session is one board with its own event loop. Board and controller are only touched on the loop.
type Session struct {
	id     string
	deps   Deps
	logger *zap.Logger
	moves  MoveServer

	loop   *interact.Loop
	writes *writeQueue
	ctrl   *interact.Controller
	player *audio.Player
	cancel context.CancelFunc

	// loop-only
	version  uint64
	lastFrom string
	lastTo   string

	watchMu  sync.Mutex
	watchers map[chan []byte]struct{}
	lastSeen atomic.Int64
}

func newSession(ctx context.Context, id string, deps Deps) *Session {
	logger := deps.Logger.With(zap.String("session_id", id))
	s := &Session{
		id:       id,
		deps:     deps,
		logger:   logger,
		moves:    deps.Moves(id),
		loop:     interact.NewLoop(deps.MoveTimeout),
		writes:   newWriteQueue(deps.MoveTimeout),
		watchers: make(map[chan []byte]struct{}),
	}
	s.touch()

	b := board.New()
	fen, err := deps.Store.LoadFEN(ctx, id)
	fresh := err != nil
	if err != nil && !errors.Is(err, session.ErrSessionNotFound) {
		logger.Warn("session_fen_load_failed", zap.Error(err))
	}
	if fresh {
		fen = board.StartFEN
	}
	if _, err := board.PlaceFEN(b, fen); err != nil {
		logger.Warn("session_fen_invalid", zap.String("fen", fen), zap.Error(err))
	}
	if fresh {
		s.resetMoveServer(ctx)
		s.waitSaved(ctx, s.saveFEN(b.Placement()))
	}

	s.player = audio.NewPlayer(deps.Manifest, func() (audio.Sink, error) {
		return audio.SinkFunc(s.pushCue), nil
	}, audio.WithLogger(logger))
	s.ctrl = interact.NewController(b, s.moves, s.player, s.loop,
		interact.WithLogger(logger),
		interact.WithChangeHook(s.publishState),
		interact.WithErrorHook(s.reportError),
		interact.WithAppliedHook(s.persist),
		interact.WithNoticeFormatter(deps.Messages.Failure),
	)

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go func() {
		if err := s.loop.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("session_loop_stopped", zap.Error(err))
		}
	}()
	return s
}

func (s *Session) resetMoveServer(ctx context.Context) {
	if err := s.moves.Reset(ctx); err != nil {
		s.logger.Warn("move_server_reset_failed", zap.Error(err))
	}
}

// saveFEN queues a placement write behind every earlier write of this session.
func (s *Session) saveFEN(placement string) <-chan error {
	return s.writes.Submit(func(ctx context.Context) error {
		return s.deps.Store.SaveFEN(ctx, s.id, placement)
	})
}

func (s *Session) waitSaved(ctx context.Context, res <-chan error) {
	select {
	case err := <-res:
		if err != nil {
			s.logger.Warn("session_fen_save_failed", zap.Error(err))
		}
	case <-ctx.Done():
		s.logger.Warn("session_fen_save_pending", zap.Error(ctx.Err()))
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) touch() { s.lastSeen.Store(time.Now().UnixNano()) }

func (s *Session) idleSince() time.Time { return time.Unix(0, s.lastSeen.Load()) }

// Dispatch runs one client event through the controller.
func (s *Session) Dispatch(ctx context.Context, ce viewdto.ClientEvent) (viewdto.Ack, error) {
	s.touch()
	ev, err := toEvent(ce)
	if err != nil {
		return viewdto.Ack{Seq: ce.Seq}, err
	}
	var out interact.Outcome
	err = s.loop.Call(ctx, func() {
		out = s.ctrl.Handle(ev)
		if out.Changed {
			s.publishState()
		}
	})
	return viewdto.Ack{Seq: ce.Seq, PreventDefault: out.PreventDefault, Cancel: out.Cancel}, err
}

// Snapshot returns the current board state.
func (s *Session) Snapshot(ctx context.Context) (viewdto.BoardState, error) {
	var st viewdto.BoardState
	err := s.loop.Call(ctx, func() { st = s.snapshot() })
	return st, err
}

// RenderInput copies what the PNG projection needs off the loop.
func (s *Session) RenderInput(ctx context.Context) (*board.Board, render.Overlay, error) {
	var (
		b  *board.Board
		ov render.Overlay
	)
	err := s.loop.Call(ctx, func() {
		v := s.ctrl.View()
		b = s.ctrl.Board().Clone()
		ov = render.Overlay{
			Highlighted: v.Highlighted,
			Outlined:    v.Outlined,
			Previews:    v.Previews,
			LastFrom:    s.lastFrom,
			LastTo:      s.lastTo,
		}
	})
	return b, ov, err
}

// Reset puts the start position back on the board and on the move server.
func (s *Session) Reset(ctx context.Context) error {
	s.touch()
	var saved <-chan error
	err := s.loop.Call(ctx, func() {
		b := s.ctrl.Board()
		b.Clear()
		_, _ = board.PlaceFEN(b, board.StartFEN)
		s.ctrl.ResetView()
		s.lastFrom, s.lastTo = "", ""
		saved = s.saveFEN(b.Placement())
		s.publishState()
	})
	if err != nil {
		return err
	}
	s.resetMoveServer(ctx)
	s.waitSaved(ctx, saved)
	return nil
}

// Subscribe registers a watcher for outgoing messages. The returned func unregisters it.
func (s *Session) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, 32)
	s.watchMu.Lock()
	s.watchers[ch] = struct{}{}
	s.watchMu.Unlock()
	s.touch()
	return ch, func() {
		s.watchMu.Lock()
		delete(s.watchers, ch)
		s.watchMu.Unlock()
		s.touch()
	}
}

func (s *Session) watcherCount() int {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	return len(s.watchers)
}

func (s *Session) Close() {
	s.loop.Close()
	s.writes.Close()
	s.cancel()
}

func (s *Session) snapshot() viewdto.BoardState {
	return projectState(s.id, s.version, s.ctrl.Board(), s.ctrl.View())
}

func (s *Session) publishState() {
	s.version++
	st := s.snapshot()
	s.broadcast(viewdto.ServerMessage{Type: viewdto.MessageState, State: &st})
}

func (s *Session) reportError(op string, err error) {
	s.broadcast(viewdto.ServerMessage{
		Type:  viewdto.MessageError,
		Error: &viewdto.ErrorDetail{Code: op, Message: s.deps.Messages.Failure(op, err), Retryable: true},
	})
}

func (s *Session) pushCue(cue audio.Cue) error {
	s.broadcast(viewdto.ServerMessage{
		Type:  viewdto.MessageSound,
		Sound: &viewdto.SoundCue{Category: cue.Category, Index: cue.Index, URL: cue.URL},
	})
	return nil
}

func (s *Session) persist(m interact.AppliedMove) {
	s.lastFrom, s.lastTo = m.Request.FromTile, m.Result.ToTile
	entry := &journal.Entry{
		SessionID: s.id,
		PieceID:   m.Result.PieceID,
		FromTile:  m.Request.FromTile,
		ToTile:    m.Result.ToTile,
		Placement: m.Placement,
	}
	if m.Captured != nil {
		entry.Captured = m.Captured.ID
	}
	if m.Result.Extra != nil {
		entry.ExtraFrom, entry.ExtraTo = m.Result.Extra.From, m.Result.Extra.To
	}
	queued := s.writes.Enqueue(func(ctx context.Context) {
		if err := s.deps.Store.SaveFEN(ctx, s.id, m.Placement); err != nil {
			s.logger.Warn("session_fen_save_failed", zap.Error(err))
		}
		if err := s.deps.Journal.Record(ctx, entry); err != nil {
			s.logger.Warn("journal_record_failed", zap.Error(err))
		}
	})
	if !queued {
		s.logger.Warn("session_move_not_persisted", zap.String("placement", m.Placement))
	}
}

func (s *Session) broadcast(msg viewdto.ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("marshal_message_failed", zap.Error(err))
		return
	}
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	for ch := range s.watchers {
		select {
		case ch <- data:
		default:
			s.logger.Debug("watcher_slow_drop", zap.String("type", msg.Type))
		}
	}
}
