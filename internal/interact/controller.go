package interact

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/park285/chessplayer-web/internal/audio"
	"github.com/park285/chessplayer-web/internal/board"
	"github.com/park285/chessplayer-web/internal/moveclient"
)

// MoveService is the move server seen from the controller.
type MoveService interface {
	GetMoves(ctx context.Context, q moveclient.MovesQuery) (*moveclient.PossibleMoves, error)
	MakeMove(ctx context.Context, req moveclient.MoveRequest) (*moveclient.MoveResult, error)
}

// SoundPlayer plays one random asset of a category.
type SoundPlayer interface {
	PlayRandomSound(category string) (audio.Cue, error)
}

// AppliedMove describes a legal move after it reached the board.
type AppliedMove struct {
	Request   moveclient.MoveRequest
	Result    moveclient.MoveResult
	Captured  *board.Piece
	Placement string
}

// Controller owns the board model, the drag context and the transient view state.
// It is not safe for concurrent use: every method must run on the session event loop.
type Controller struct {
	board  *board.Board
	moves  MoveService
	sounds SoundPlayer
	runner Runner
	logger *zap.Logger

	onChange  func()
	onError   func(op string, err error)
	onApplied func(AppliedMove)
	notify    func(op string, err error) string

	drag       *DragContext
	generation uint64

	highlighted map[string]struct{}
	outlined    map[string]struct{}
	previews    []string
	notice      string
}

type Option func(*Controller)

func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithChangeHook is called after an asynchronous completion changed the view.
func WithChangeHook(fn func()) Option {
	return func(c *Controller) { c.onChange = fn }
}

// WithErrorHook receives move server failures.
func WithErrorHook(fn func(op string, err error)) Option {
	return func(c *Controller) { c.onError = fn }
}

// WithAppliedHook is called after every legal move has been applied to the board.
func WithAppliedHook(fn func(AppliedMove)) Option {
	return func(c *Controller) { c.onApplied = fn }
}

// WithNoticeFormatter sets how a failure is worded in the view notice.
func WithNoticeFormatter(fn func(op string, err error) string) Option {
	return func(c *Controller) {
		if fn != nil {
			c.notify = fn
		}
	}
}

func NewController(b *board.Board, moves MoveService, sounds SoundPlayer, runner Runner, opts ...Option) *Controller {
	if b == nil {
		b = board.New()
	}
	if runner == nil {
		runner = Inline{}
	}
	c := &Controller{
		board:       b,
		moves:       moves,
		sounds:      sounds,
		runner:      runner,
		logger:      zap.NewNop(),
		notify:      defaultNotice,
		highlighted: make(map[string]struct{}),
		outlined:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) Board() *board.Board { return c.board }

// Drag returns a copy of the armed drag context, or nil when idle.
func (c *Controller) Drag() *DragContext {
	if c.drag == nil {
		return nil
	}
	d := *c.drag
	return &d
}

// Handle dispatches one input event.
func (c *Controller) Handle(ev Event) Outcome {
	switch e := ev.(type) {
	case DragStart:
		return c.dragStart(e.Target)
	case DragEnter:
		return c.dragEnter(e.Target)
	case DragLeave:
		return c.dragLeave(e.Target)
	case DragOver:
		return Outcome{PreventDefault: true}
	case Drop:
		return c.drop(e.Target)
	case DragEnd:
		c.drag = nil
		return Outcome{}
	case MouseDown:
		return c.mouseDown(e.Target, e.Button)
	default:
		return Outcome{}
	}
}

func (c *Controller) dragStart(t Target) Outcome {
	if t.Kind != TargetPiece {
		return Outcome{Cancel: true, PreventDefault: true}
	}
	from, ok := c.board.Find(t.ID)
	if !ok {
		c.logger.Debug("drag_start_unknown_piece", zap.String("piece_id", t.ID))
		return Outcome{Cancel: true, PreventDefault: true}
	}

	c.generation++
	ctx := DragContext{FromTile: from, PieceID: t.ID, Generation: c.generation}
	c.drag = &ctx

	if c.moves != nil {
		q := moveclient.MovesQuery{FromTile: ctx.FromTile, PieceID: ctx.PieceID}
		c.runner.Go(func(rctx context.Context) func() {
			res, err := c.moves.GetMoves(rctx, q)
			return func() { c.completePossibleMoves(ctx.Generation, res, err) }
		})
	}
	return Outcome{}
}

func (c *Controller) dragEnter(t Target) Outcome {
	if t.Kind != TargetTile {
		return Outcome{}
	}
	tile, err := board.NormalizeTile(t.ID)
	if err != nil {
		return Outcome{}
	}
	c.highlighted[tile] = struct{}{}
	return Outcome{Changed: true}
}

func (c *Controller) dragLeave(t Target) Outcome {
	if t.Kind != TargetTile {
		return Outcome{}
	}
	tile, _ := board.NormalizeTile(t.ID)
	if _, ok := c.highlighted[tile]; !ok {
		return Outcome{}
	}
	delete(c.highlighted, tile)
	return Outcome{Changed: true}
}

func (c *Controller) drop(t Target) Outcome {
	to, ok := c.owningTile(t)
	if !ok {
		return Outcome{PreventDefault: true}
	}

	drag := c.drag
	c.drag = nil
	delete(c.highlighted, to)
	c.previews = nil

	if drag == nil {
		c.logger.Debug("drop_without_drag", zap.String("to_tile", to))
		return Outcome{PreventDefault: true, Changed: true}
	}

	req := moveclient.MoveRequest{FromTile: drag.FromTile, ToTile: to, PieceID: drag.PieceID}
	if req.FromTile == req.ToTile {
		return Outcome{PreventDefault: true, Changed: true}
	}
	if c.moves != nil {
		c.runner.Go(func(rctx context.Context) func() {
			res, err := c.moves.MakeMove(rctx, req)
			return func() { c.completeMoveResult(req, res, err) }
		})
	}
	return Outcome{PreventDefault: true, Changed: true}
}

func (c *Controller) mouseDown(t Target, b Button) Outcome {
	switch b {
	case ButtonRight:
		tile, ok := c.owningTile(t)
		if !ok || t.Kind == TargetMovePreview {
			return Outcome{PreventDefault: true}
		}
		if _, on := c.outlined[tile]; on {
			delete(c.outlined, tile)
		} else {
			c.outlined[tile] = struct{}{}
		}
		return Outcome{PreventDefault: true, Changed: true}
	case ButtonLeft:
		if t.Kind != TargetTile || len(c.outlined) == 0 {
			return Outcome{}
		}
		clear(c.outlined)
		return Outcome{Changed: true}
	default:
		return Outcome{}
	}
}

// owningTile resolves the tile an event target belongs to.
func (c *Controller) owningTile(t Target) (string, bool) {
	switch t.Kind {
	case TargetTile, TargetMovePreview:
		tile, err := board.NormalizeTile(t.ID)
		return tile, err == nil
	case TargetPiece:
		return c.board.Find(t.ID)
	default:
		return "", false
	}
}

// ViewState is the transient presentation state on top of the board.
type ViewState struct {
	Highlighted []string
	Outlined    []string
	Previews    []string
	Notice      string
	Drag        *DragContext
}

func (c *Controller) View() ViewState {
	return ViewState{
		Highlighted: sortedKeys(c.highlighted),
		Outlined:    sortedKeys(c.outlined),
		Previews:    append([]string(nil), c.previews...),
		Notice:      c.notice,
		Drag:        c.Drag(),
	}
}

// ClearNotice drops the last failure notice.
func (c *Controller) ClearNotice() { c.notice = "" }

// ResetView returns to Idle and drops all transient visuals.
// Completions still in flight for the old drag are discarded.
func (c *Controller) ResetView() {
	c.drag = nil
	c.generation++
	clear(c.highlighted)
	clear(c.outlined)
	c.previews = nil
	c.notice = ""
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (c *Controller) changed() {
	if c.onChange != nil {
		c.onChange()
	}
}
