package board

import (
	"errors"
	"fmt"
	"strings"
)

// Size is the number of rows and columns.
const Size = 8

// ErrInvalidTile is returned for coordinates outside A1..H8.
var ErrInvalidTile = errors.New("invalid tile")

// TileShade is the color of a board cell.
type TileShade int

const (
	Light TileShade = iota
	Dark
)

func (s TileShade) String() string {
	if s == Dark {
		return "dark"
	}
	return "light"
}

var fileLetters = [Size]byte{'A', 'B', 'C', 'D', 'E', 'F', 'G', 'H'}

// TileColor returns Light when row+col is even. Row 0 is rank 8.
func TileColor(row, col int) TileShade {
	if (row+col)%2 == 0 {
		return Light
	}
	return Dark
}

// TileID maps grid coordinates to an algebraic coordinate, e.g. (0, 0) => "A8", (7, 7) => "H1".
func TileID(row, col int) string {
	return string([]byte{fileLetters[col], byte('0' + (Size - row))})
}

// ParseTile is the inverse of TileID. The file letter may be lowercase.
func ParseTile(id string) (row, col int, err error) {
	if len(id) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTile, id)
	}
	file := strings.ToUpper(id[:1])[0]
	rank := id[1]
	if file < 'A' || file > 'H' || rank < '1' || rank > '8' {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTile, id)
	}
	return Size - int(rank-'0'), int(file - 'A'), nil
}

// ValidTile reports whether id names one of the 64 tiles.
func ValidTile(id string) bool {
	_, _, err := ParseTile(id)
	return err == nil
}

// NormalizeTile upper-cases the file letter of a valid tile id.
func NormalizeTile(id string) (string, error) {
	row, col, err := ParseTile(id)
	if err != nil {
		return "", err
	}
	return TileID(row, col), nil
}

// AllTiles lists tile ids in board order, A8..H8 down to A1..H1.
func AllTiles() []string {
	out := make([]string, 0, Size*Size)
	for row := 0; row < Size; row++ {
		for col := 0; col < Size; col++ {
			out = append(out, TileID(row, col))
		}
	}
	return out
}
