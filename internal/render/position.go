package render

import (
	nchess "github.com/corentings/chess/v2"

	"github.com/park285/chessplayer-web/internal/board"
)

var pieceCodes = map[board.Side]map[board.Kind]nchess.Piece{
	board.White: {
		board.Pawn: nchess.WhitePawn, board.Rook: nchess.WhiteRook, board.Knight: nchess.WhiteKnight,
		board.Bishop: nchess.WhiteBishop, board.Queen: nchess.WhiteQueen, board.King: nchess.WhiteKing,
	},
	board.Black: {
		board.Pawn: nchess.BlackPawn, board.Rook: nchess.BlackRook, board.Knight: nchess.BlackKnight,
		board.Bishop: nchess.BlackBishop, board.Queen: nchess.BlackQueen, board.King: nchess.BlackKing,
	},
}

// ToChessBoard projects the view board onto a rules-library board.
func ToChessBoard(b *board.Board) *nchess.Board {
	m := make(map[nchess.Square]nchess.Piece)
	for row := 0; row < board.Size; row++ {
		for col := 0; col < board.Size; col++ {
			p := b.AtCell(row, col)
			if p == nil {
				continue
			}
			if code, ok := pieceCodes[p.Side][p.Kind]; ok {
				m[board.SquareAt(row, col)] = code
			}
		}
	}
	return nchess.NewBoard(m)
}
