package board

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/park285/chessplayer-web/internal/obslog"
	"go.uber.org/zap"
)

// StartPlacement is the placement field of the standard starting position.
const StartPlacement = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR"

// StartFEN is the full standard starting position.
const StartFEN = StartPlacement + " w KQkq - 0 1"

// FENError reports where placement stopped. Pieces placed before Index stay on the board.
type FENError struct {
	Index  int
	Char   rune
	Placed int
	Reason string
}

func (e *FENError) Error() string {
	return fmt.Sprintf("fen placement aborted at %d (%q): %s", e.Index, e.Char, e.Reason)
}

// PlaceFEN populates b from the placement field of fen; the remaining fields are ignored.
// On a malformed character it logs, stops, and returns the number placed so far with a *FENError.
func PlaceFEN(b *Board, fen string) (int, error) {
	placement := ""
	if fields := strings.Fields(fen); len(fields) > 0 {
		placement = fields[0]
	}

	counters := map[Side]map[Kind]int{White: {}, Black: {}}
	rank, file, placed := 0, 0, 0

	for i, ch := range placement {
		switch {
		case ch >= '0' && ch <= '9':
			file += int(ch - '0')
			if file > Size-1 {
				file = 0
			}
		case ch == '/':
			rank++
			file = 0
		case unicode.IsLetter(ch):
			kind, ok := KindFromLetter(ch)
			if !ok {
				return placed, abort(i, ch, placed, "unknown piece letter")
			}
			if rank > Size-1 {
				return placed, abort(i, ch, placed, "too many ranks")
			}
			side := White
			if unicode.IsLower(ch) {
				side = Black
			}
			id := side.Prefix() + kind.String()
			if kind.Counted() {
				id += strconv.Itoa(counters[side][kind])
				counters[side][kind]++
			}
			if _, err := b.Place(TileID(rank, file), NewPiece(kind, id, side)); err != nil {
				return placed, abort(i, ch, placed, err.Error())
			}
			placed++
			file++
			if file > Size-1 {
				file = 0
			}
		default:
			return placed, abort(i, ch, placed, "unexpected character")
		}
	}
	return placed, nil
}

func abort(i int, ch rune, placed int, reason string) error {
	obslog.L().Warn("fen_abort",
		zap.Int("index", i),
		zap.String("char", string(ch)),
		zap.Int("placed", placed),
		zap.String("reason", reason),
	)
	return &FENError{Index: i, Char: ch, Placed: placed, Reason: reason}
}
