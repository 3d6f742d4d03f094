package board

import "unicode"

// Kind is a piece type, stored as its uppercase FEN letter.
type Kind byte

const (
	Pawn   Kind = 'P'
	Rook   Kind = 'R'
	Knight Kind = 'N'
	Bishop Kind = 'B'
	Queen  Kind = 'Q'
	King   Kind = 'K'
)

var kindNames = map[Kind]string{
	Pawn:   "pawn",
	Rook:   "rook",
	Knight: "knight",
	Bishop: "bishop",
	Queen:  "queen",
	King:   "king",
}

// KindFromLetter accepts either case.
func KindFromLetter(r rune) (Kind, bool) {
	k := Kind(unicode.ToUpper(r))
	_, ok := kindNames[k]
	return k, ok
}

func (k Kind) String() string { return kindNames[k] }

// Letter returns the uppercase FEN letter.
func (k Kind) Letter() string { return string(rune(k)) }

// Counted reports whether ids of this kind carry a disambiguating index.
func (k Kind) Counted() bool { return k != King && k != Queen }

// Side is the owner of a piece.
type Side int

const (
	White Side = iota
	Black
)

func (s Side) String() string {
	if s == Black {
		return "black"
	}
	return "white"
}

// Prefix is the id prefix for pieces of this side.
func (s Side) Prefix() string {
	if s == Black {
		return "b_"
	}
	return "w_"
}

// RolePiece tags elements that represent pieces.
const RolePiece = "piece"

// Piece is a movable unit. Its location is owned by the Board.
type Piece struct {
	ID        string
	Kind      Kind
	Side      Side
	Role      string
	Draggable bool
}

// NewPiece builds a draggable piece. Id uniqueness is the caller's responsibility.
func NewPiece(kind Kind, id string, side Side) *Piece {
	return &Piece{
		ID:        id,
		Kind:      kind,
		Side:      side,
		Role:      RolePiece,
		Draggable: true,
	}
}

// FENLetter returns the piece letter with FEN casing.
func (p *Piece) FENLetter() rune {
	if p.Side == Black {
		return unicode.ToLower(rune(p.Kind))
	}
	return rune(p.Kind)
}
