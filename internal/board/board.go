package board

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrPieceNotFound is returned when no tile holds the requested piece id.
var ErrPieceNotFound = errors.New("piece not found")

// Board is an 8x8 grid of optional pieces. Row 0 is rank 8.
// A piece is held by at most one cell. Board is not safe for concurrent use.
type Board struct {
	cells [Size][Size]*Piece
}

// Placement pairs a piece with the tile holding it.
type Placement struct {
	Tile  string
	Piece *Piece
}

func New() *Board { return &Board{} }

// AtCell returns the piece at grid coordinates or nil.
func (b *Board) AtCell(row, col int) *Piece {
	return b.cells[row][col]
}

// At returns the piece on tile or nil.
func (b *Board) At(tile string) (*Piece, error) {
	row, col, err := ParseTile(tile)
	if err != nil {
		return nil, err
	}
	return b.cells[row][col], nil
}

// Occupied reports whether tile holds a piece. Invalid tiles are never occupied.
func (b *Board) Occupied(tile string) bool {
	p, err := b.At(tile)
	return err == nil && p != nil
}

// Place attaches p to tile, detaching it from any other tile first.
// It returns whatever piece previously stood on tile.
func (b *Board) Place(tile string, p *Piece) (*Piece, error) {
	row, col, err := ParseTile(tile)
	if err != nil {
		return nil, err
	}
	if p != nil {
		b.detach(p)
	}
	prev := b.cells[row][col]
	b.cells[row][col] = p
	return prev, nil
}

// Remove empties tile and returns the piece that stood there.
func (b *Board) Remove(tile string) (*Piece, error) {
	row, col, err := ParseTile(tile)
	if err != nil {
		return nil, err
	}
	prev := b.cells[row][col]
	b.cells[row][col] = nil
	return prev, nil
}

// Find returns the tile holding the piece with the given id.
func (b *Board) Find(id string) (string, bool) {
	for row := 0; row < Size; row++ {
		for col := 0; col < Size; col++ {
			if p := b.cells[row][col]; p != nil && p.ID == id {
				return TileID(row, col), true
			}
		}
	}
	return "", false
}

// Relocate moves the piece with the given id to tile, keeping its identity.
// A piece already standing on tile is displaced and returned.
func (b *Board) Relocate(id, to string) (*Piece, error) {
	from, ok := b.Find(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPieceNotFound, id)
	}
	p, _ := b.At(from)
	return b.Place(to, p)
}

// MoveTile moves whatever stands on from to to. It returns the displaced piece, if any.
func (b *Board) MoveTile(from, to string) (*Piece, error) {
	p, err := b.At(from)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: tile %s is empty", ErrPieceNotFound, from)
	}
	return b.Place(to, p)
}

// Pieces lists occupied tiles in board order.
func (b *Board) Pieces() []Placement {
	var out []Placement
	for row := 0; row < Size; row++ {
		for col := 0; col < Size; col++ {
			if p := b.cells[row][col]; p != nil {
				out = append(out, Placement{Tile: TileID(row, col), Piece: p})
			}
		}
	}
	return out
}

// Count returns the number of pieces of a side.
func (b *Board) Count(side Side) int {
	n := 0
	for _, pl := range b.Pieces() {
		if pl.Piece.Side == side {
			n++
		}
	}
	return n
}

func (b *Board) Clear() {
	b.cells = [Size][Size]*Piece{}
}

// Clone returns a deep copy.
func (b *Board) Clone() *Board {
	out := New()
	for row := 0; row < Size; row++ {
		for col := 0; col < Size; col++ {
			if p := b.cells[row][col]; p != nil {
				cp := *p
				out.cells[row][col] = &cp
			}
		}
	}
	return out
}

// Placement returns the FEN piece-placement field for the current grid.
func (b *Board) Placement() string {
	var sb strings.Builder
	for row := 0; row < Size; row++ {
		empty := 0
		for col := 0; col < Size; col++ {
			p := b.cells[row][col]
			if p == nil {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			sb.WriteRune(p.FENLetter())
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if row < Size-1 {
			sb.WriteByte('/')
		}
	}
	return sb.String()
}

func (b *Board) detach(p *Piece) {
	for row := 0; row < Size; row++ {
		for col := 0; col < Size; col++ {
			if b.cells[row][col] == p {
				b.cells[row][col] = nil
			}
		}
	}
}
