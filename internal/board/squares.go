package board

import (
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// SquareAt converts grid coordinates to a rules-library square.
func SquareAt(row, col int) nchess.Square {
	return nchess.NewSquare(nchess.File(col), nchess.Rank(Size-1-row))
}

// SquareOf converts a tile id such as "E4".
func SquareOf(tile string) (nchess.Square, error) {
	row, col, err := ParseTile(tile)
	if err != nil {
		return nchess.NoSquare, err
	}
	return SquareAt(row, col), nil
}

// TileOfSquare is the inverse of SquareOf.
func TileOfSquare(sq nchess.Square) string {
	return strings.ToUpper(sq.String())
}
