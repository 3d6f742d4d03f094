package viewdto

// Client to server event types.
const (
	EventDragStart = "dragstart"
	EventDragEnter = "dragenter"
	EventDragLeave = "dragleave"
	EventDragOver  = "dragover"
	EventDrop      = "drop"
	EventDragEnd   = "dragend"
	EventMouseDown = "mousedown"
)

// Server to client message types.
const (
	MessageState = "state"
	MessageSound = "sound"
	MessageAck   = "ack"
	MessageError = "error"
)

// ClientEvent is a raw input event forwarded by the page.
type ClientEvent struct {
	Seq    uint64 `json:"seq"`
	Type   string `json:"type"`
	Target string `json:"target"`
	ID     string `json:"id"`
	Button int    `json:"button"`
}

// Ack answers one ClientEvent.
type Ack struct {
	Seq            uint64 `json:"seq"`
	PreventDefault bool   `json:"preventDefault"`
	Cancel         bool   `json:"cancel"`
}

// SoundCue asks the page to play one audio element.
type SoundCue struct {
	Category string `json:"category"`
	Index    int    `json:"index"`
	URL      string `json:"url"`
}

// ServerMessage is the envelope for everything sent to the page.
type ServerMessage struct {
	Type  string       `json:"type"`
	State *BoardState  `json:"state,omitempty"`
	Sound *SoundCue    `json:"sound,omitempty"`
	Ack   *Ack         `json:"ack,omitempty"`
	Error *ErrorDetail `json:"error,omitempty"`
}
