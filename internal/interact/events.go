package interact

import "fmt"

// TargetKind says what kind of element an input event landed on.
type TargetKind int

const (
	TargetOther TargetKind = iota
	TargetTile
	TargetPiece
	TargetMovePreview
)

func (k TargetKind) String() string {
	switch k {
	case TargetTile:
		return "tile"
	case TargetPiece:
		return "piece"
	case TargetMovePreview:
		return "movePreview"
	default:
		return "other"
	}
}

// ParseTargetKind maps the DOM marker class to a kind.
func ParseTargetKind(s string) TargetKind {
	switch s {
	case "tile":
		return TargetTile
	case "piece":
		return TargetPiece
	case "movePreview":
		return TargetMovePreview
	default:
		return TargetOther
	}
}

// Target identifies the element under the pointer.
// For tiles and move previews ID is the tile coordinate, for pieces it is the piece id.
type Target struct {
	Kind TargetKind
	ID   string
}

func (t Target) String() string { return fmt.Sprintf("%s(%s)", t.Kind, t.ID) }

// Button is a mouse button as reported by the DOM.
type Button int

const (
	ButtonLeft   Button = 0
	ButtonMiddle Button = 1
	ButtonRight  Button = 2
)

// Event is one discrete input event.
type Event interface {
	isEvent()
}

type (
	DragStart struct{ Target Target }
	DragEnter struct{ Target Target }
	DragLeave struct{ Target Target }
	DragOver  struct{ Target Target }
	Drop      struct{ Target Target }
	DragEnd   struct{}
	MouseDown struct {
		Target Target
		Button Button
	}
)

func (DragStart) isEvent() {}
func (DragEnter) isEvent() {}
func (DragLeave) isEvent() {}
func (DragOver) isEvent()  {}
func (Drop) isEvent()      {}
func (DragEnd) isEvent()   {}
func (MouseDown) isEvent() {}

// Outcome tells the input layer how to treat the native event.
type Outcome struct {
	// PreventDefault suppresses the platform default (required on drag-over to keep the drop allowed).
	PreventDefault bool
	// Cancel aborts the native drag gesture.
	Cancel bool
	// Changed is set when the view state changed synchronously.
	Changed bool
}

// DragContext links a drag-start to its drop.
type DragContext struct {
	FromTile   string
	PieceID    string
	Generation uint64
}
