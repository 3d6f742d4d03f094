package viewdto

// PieceState is one piece element of the board view.
type PieceState struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Side      string `json:"side"`
	Role      string `json:"role"`
	Draggable bool   `json:"draggable"`
}

// TileState is one of the 64 tiles, in board order A8..H1.
type TileState struct {
	ID          string      `json:"id"`
	Shade       string      `json:"shade"`
	Piece       *PieceState `json:"piece,omitempty"`
	Highlighted bool        `json:"highlighted,omitempty"`
	Outlined    bool        `json:"outlined,omitempty"`
	Previews    int         `json:"previews,omitempty"`
}

// BoardState is the full snapshot pushed to the page after every change.
type BoardState struct {
	SessionID string      `json:"sessionId"`
	Placement string      `json:"placement"`
	Tiles     []TileState `json:"tiles"`
	Armed     bool        `json:"armed"`
	Notice    string      `json:"notice,omitempty"`
	Version   uint64      `json:"version"`
}
