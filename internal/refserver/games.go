package refserver

import (
	"errors"
	"fmt"
	"sync"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/chessplayer-web/internal/board"
	"github.com/park285/chessplayer-web/internal/moveclient"
)

// ErrNoPiece is returned when get-moves names an empty tile.
var ErrNoPiece = errors.New("no piece on tile")

// Games keeps one rules-checked game per board session.
type Games struct {
	mu    sync.Mutex
	games map[string]*nchess.Game
}

func NewGames() *Games {
	return &Games{games: make(map[string]*nchess.Game)}
}

// gameLocked returns the session's game, starting one on first use. Callers hold mu.
func (g *Games) gameLocked(session string) *nchess.Game {
	game, ok := g.games[session]
	if !ok {
		game = nchess.NewGame()
		g.games[session] = game
	}
	return game
}

// Reset starts a new game for session.
func (g *Games) Reset(session string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.games[session] = nchess.NewGame()
}

// FEN returns the session's current position.
func (g *Games) FEN(session string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gameLocked(session).FEN()
}

// Len reports how many sessions have a game.
func (g *Games) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.games)
}

// PossibleMoves lists the destination tiles of every legal move starting on fromTile.
// Promotions to different pieces collapse into one destination.
func (g *Games) PossibleMoves(session, fromTile string) ([]string, error) {
	from, err := board.SquareOf(fromTile)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	game := g.gameLocked(session)
	if game.Position().Board().Piece(from) == nchess.NoPiece {
		return nil, fmt.Errorf("%w: %s", ErrNoPiece, fromTile)
	}

	out := []string{}
	seen := map[nchess.Square]bool{}
	for _, mv := range game.ValidMoves() {
		if mv.S1() != from || seen[mv.S2()] {
			continue
		}
		seen[mv.S2()] = true
		out = append(out, board.TileOfSquare(mv.S2()))
	}
	return out, nil
}

// Play applies req if it is legal and reports the auxiliary relocation the view must mirror.
// Pawns reaching the last rank always promote to a queen.
func (g *Games) Play(session string, req moveclient.MoveRequest) (*moveclient.MoveResult, error) {
	res := &moveclient.MoveResult{PieceID: req.PieceID, ToTile: req.ToTile}
	from, err := board.SquareOf(req.FromTile)
	if err != nil {
		return nil, err
	}
	to, err := board.SquareOf(req.ToTile)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	game := g.gameLocked(session)
	pos := game.Position()
	piece := pos.Board().Piece(from)
	if piece == nchess.NoPiece {
		return res, nil
	}

	uci := from.String() + to.String()
	if piece.Type() == nchess.Pawn && (to.Rank() == nchess.Rank1 || to.Rank() == nchess.Rank8) {
		uci += "q"
	}
	mv, err := nchess.UCINotation{}.Decode(pos, uci)
	if err != nil {
		return res, nil
	}
	targetEmpty := pos.Board().Piece(to) == nchess.NoPiece
	if err := game.Move(mv, nil); err != nil {
		return res, nil
	}

	res.Legal = true
	res.Extra = extraMove(piece.Type(), from, to, targetEmpty)
	return res, nil
}

// extraMove derives the castling rook hop or the en passant capture from a legal move.
// An en passant capture is reported as a relocation to the empty tile.
func extraMove(kind nchess.PieceType, from, to nchess.Square, targetEmpty bool) *moveclient.ExtraMove {
	switch {
	case kind == nchess.King && to.File() == from.File()+2:
		return &moveclient.ExtraMove{
			From: board.TileOfSquare(nchess.NewSquare(nchess.FileH, from.Rank())),
			To:   board.TileOfSquare(nchess.NewSquare(nchess.FileF, from.Rank())),
		}
	case kind == nchess.King && from.File() == to.File()+2:
		return &moveclient.ExtraMove{
			From: board.TileOfSquare(nchess.NewSquare(nchess.FileA, from.Rank())),
			To:   board.TileOfSquare(nchess.NewSquare(nchess.FileD, from.Rank())),
		}
	case kind == nchess.Pawn && targetEmpty && from.File() != to.File():
		return &moveclient.ExtraMove{From: board.TileOfSquare(nchess.NewSquare(to.File(), from.Rank()))}
	}
	return nil
}
