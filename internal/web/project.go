package web

import (
	"fmt"

	"github.com/park285/chessplayer-web/internal/board"
	"github.com/park285/chessplayer-web/internal/interact"
	"github.com/park285/chessplayer-web/pkg/viewdto"
)

// projectState turns the board model plus view state into the snapshot the page renders.
func projectState(sessionID string, version uint64, b *board.Board, v interact.ViewState) viewdto.BoardState {
	highlighted := toSet(v.Highlighted)
	outlined := toSet(v.Outlined)
	previews := make(map[string]int, len(v.Previews))
	for _, t := range v.Previews {
		previews[t]++
	}

	tiles := make([]viewdto.TileState, 0, board.Size*board.Size)
	for row := 0; row < board.Size; row++ {
		for col := 0; col < board.Size; col++ {
			id := board.TileID(row, col)
			ts := viewdto.TileState{
				ID:          id,
				Shade:       board.TileColor(row, col).String(),
				Highlighted: highlighted[id],
				Outlined:    outlined[id],
				Previews:    previews[id],
			}
			if p := b.AtCell(row, col); p != nil {
				ts.Piece = &viewdto.PieceState{
					ID:        p.ID,
					Kind:      p.Kind.String(),
					Side:      p.Side.String(),
					Role:      p.Role,
					Draggable: p.Draggable,
				}
			}
			tiles = append(tiles, ts)
		}
	}
	return viewdto.BoardState{
		SessionID: sessionID,
		Placement: b.Placement(),
		Tiles:     tiles,
		Armed:     v.Drag != nil,
		Notice:    v.Notice,
		Version:   version,
	}
}

func toSet(items []string) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, it := range items {
		out[it] = true
	}
	return out
}

// toEvent decodes a page event into a controller event.
func toEvent(ce viewdto.ClientEvent) (interact.Event, error) {
	target := interact.Target{Kind: interact.ParseTargetKind(ce.Target), ID: ce.ID}
	switch ce.Type {
	case viewdto.EventDragStart:
		return interact.DragStart{Target: target}, nil
	case viewdto.EventDragEnter:
		return interact.DragEnter{Target: target}, nil
	case viewdto.EventDragLeave:
		return interact.DragLeave{Target: target}, nil
	case viewdto.EventDragOver:
		return interact.DragOver{Target: target}, nil
	case viewdto.EventDrop:
		return interact.Drop{Target: target}, nil
	case viewdto.EventDragEnd:
		return interact.DragEnd{}, nil
	case viewdto.EventMouseDown:
		return interact.MouseDown{Target: target, Button: interact.Button(ce.Button)}, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", ce.Type)
	}
}
