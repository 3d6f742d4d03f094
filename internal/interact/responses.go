package interact

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/park285/chessplayer-web/internal/audio"
	"github.com/park285/chessplayer-web/internal/board"
	"github.com/park285/chessplayer-web/internal/moveclient"
)

func (c *Controller) completePossibleMoves(gen uint64, res *moveclient.PossibleMoves, err error) {
	if c.drag == nil || c.drag.Generation != gen {
		c.logger.Debug("possible_moves_stale", zap.Uint64("generation", gen), zap.Error(err))
		return
	}
	if err != nil {
		c.fail("get_moves", err)
		return
	}
	if c.HandlePossibleMoves(res) > 0 {
		c.changed()
	}
}

// HandlePossibleMoves appends one preview marker per listed tile and returns how many were added.
// Duplicates are kept; invalid coordinates are skipped.
func (c *Controller) HandlePossibleMoves(res *moveclient.PossibleMoves) int {
	if res == nil {
		return 0
	}
	added := 0
	for _, tile := range res.Moves {
		id, err := board.NormalizeTile(tile)
		if err != nil {
			c.logger.Warn("possible_moves_invalid_tile", zap.String("tile", tile))
			continue
		}
		c.previews = append(c.previews, id)
		added++
	}
	return added
}

func (c *Controller) completeMoveResult(req moveclient.MoveRequest, res *moveclient.MoveResult, err error) {
	if err != nil {
		c.fail("make_move", err)
		return
	}
	applied, ok := c.HandleMoveResult(res)
	if !ok {
		return
	}
	applied.Request = req
	if c.onApplied != nil {
		c.onApplied(applied)
	}
	c.changed()
}

// HandleMoveResult applies a make-move verdict to the board.
// It reports false when the board was left untouched.
func (c *Controller) HandleMoveResult(res *moveclient.MoveResult) (AppliedMove, bool) {
	if res == nil || !res.Legal {
		return AppliedMove{}, false
	}
	dest, err := board.NormalizeTile(res.ToTile)
	if err != nil {
		c.logger.Warn("move_result_invalid_tile", zap.String("to_tile", res.ToTile))
		return AppliedMove{}, false
	}
	if _, found := c.board.Find(res.PieceID); !found {
		c.logger.Warn("move_result_unknown_piece", zap.String("piece_id", res.PieceID))
		return AppliedMove{}, false
	}

	out := AppliedMove{Result: *res}

	captured, _ := c.board.Remove(dest)
	// en passant: an extra move without destination removes the piece on its source tile
	if res.Extra != nil && res.Extra.To == "" && captured == nil {
		captured, _ = c.board.Remove(res.Extra.From)
	}
	out.Captured = captured

	category := audio.CategoryMove
	if captured != nil {
		category = audio.CategoryCapture
	}
	c.play(category)

	if _, err := c.board.Relocate(res.PieceID, dest); err != nil {
		c.logger.Warn("move_result_relocate_failed", zap.Error(err))
	}

	if res.Extra != nil && res.Extra.To != "" {
		if _, err := c.board.MoveTile(res.Extra.From, res.Extra.To); err != nil {
			c.logger.Warn("extra_move_failed",
				zap.String("from", res.Extra.From),
				zap.String("to", res.Extra.To),
				zap.Error(err))
		}
	}

	out.Placement = c.board.Placement()
	c.notice = ""
	return out, true
}

func (c *Controller) play(category string) {
	if c.sounds == nil {
		return
	}
	if _, err := c.sounds.PlayRandomSound(category); err != nil {
		c.logger.Warn("play_sound_failed", zap.String("category", category), zap.Error(err))
	}
}

func (c *Controller) fail(op string, err error) {
	c.logger.Warn("move_request_failed", zap.String("op", op), zap.Error(err))
	c.notice = c.notify(op, err)
	if c.onError != nil {
		c.onError(op, err)
	}
	c.changed()
}

func defaultNotice(op string, err error) string {
	return fmt.Sprintf("%s failed: %v", op, err)
}
