package moveclient

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMultipleExtraMoves is returned when a make-move response carries more than one auxiliary relocation.
var ErrMultipleExtraMoves = errors.New("make-move response has more than one extra move")

// MovesQuery is the get-moves query.
type MovesQuery struct {
	FromTile string
	PieceID  string
}

// PossibleMoves is the get-moves response.
type PossibleMoves struct {
	Moves []string `json:"possibleMoves"`
}

// MoveRequest is the make-move body.
type MoveRequest struct {
	FromTile string `json:"fromTile"`
	ToTile   string `json:"toTile"`
	PieceID  string `json:"pieceID"`
}

// ExtraMove is an auxiliary relocation triggered by the primary move, e.g. the rook when castling.
type ExtraMove struct {
	From string
	To   string
}

// MoveResult is the server verdict on a proposed move.
type MoveResult struct {
	Legal   bool
	PieceID string
	ToTile  string
	Extra   *ExtraMove
}

type moveResultWire struct {
	Legal      bool              `json:"legal"`
	PieceID    string            `json:"pieceID"`
	ToTile     string            `json:"toTile"`
	FromTile   string            `json:"fromTile,omitempty"`
	ExtraMoves map[string]string `json:"extraMoves,omitempty"`
}

func (r *MoveResult) UnmarshalJSON(b []byte) error {
	var w moveResultWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	if len(w.ExtraMoves) > 1 {
		return fmt.Errorf("%w: %d entries", ErrMultipleExtraMoves, len(w.ExtraMoves))
	}
	*r = MoveResult{Legal: w.Legal, PieceID: w.PieceID, ToTile: w.ToTile}
	for from, to := range w.ExtraMoves {
		r.Extra = &ExtraMove{From: from, To: to}
	}
	return nil
}

func (r MoveResult) MarshalJSON() ([]byte, error) {
	w := moveResultWire{Legal: r.Legal, PieceID: r.PieceID, ToTile: r.ToTile}
	if r.Extra != nil {
		w.ExtraMoves = map[string]string{r.Extra.From: r.Extra.To}
	}
	return json.Marshal(w)
}

// APIError is a non-2xx answer from the move server.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("move server error: status=%d body=%s", e.Status, e.Body)
}
