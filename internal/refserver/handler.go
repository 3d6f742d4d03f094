package refserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/park285/chessplayer-web/internal/board"
	"github.com/park285/chessplayer-web/internal/moveclient"
)

// Handler exposes Games over the get-moves / make-move contract.
type Handler struct {
	games  *Games
	logger *zap.Logger
}

func NewHandler(games *Games, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{games: games, logger: logger}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.handleReset)
	mux.HandleFunc("GET /get-moves", h.handleGetMoves)
	mux.HandleFunc("PUT /make-move", h.handleMakeMove)
	mux.HandleFunc("GET /fen", h.handleFEN)
	return mux
}

type movesResponse struct {
	FromTile      string   `json:"fromTile"`
	PieceID       string   `json:"pieceID,omitempty"`
	Legal         bool     `json:"legal"`
	PossibleMoves []string `json:"possibleMoves"`
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	session := r.Header.Get(moveclient.SessionHeader)
	h.games.Reset(session)
	h.logger.Info("game_reset", zap.String("session_id", session))
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleGetMoves(w http.ResponseWriter, r *http.Request) {
	session := r.Header.Get(moveclient.SessionHeader)
	q := r.URL.Query()
	fromTile, pieceID := q.Get("fromTile"), q.Get("pieceID")
	h.logger.Debug("get_moves", zap.String("session_id", session), zap.String("from", fromTile), zap.String("piece", pieceID))

	moves, err := h.games.PossibleMoves(session, fromTile)
	switch {
	case errors.Is(err, board.ErrInvalidTile):
		WriteJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	case errors.Is(err, ErrNoPiece):
		moves = []string{}
	case err != nil:
		WriteJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	WriteJSON(w, http.StatusOK, movesResponse{FromTile: fromTile, PieceID: pieceID, Legal: true, PossibleMoves: moves})
}

func (h *Handler) handleMakeMove(w http.ResponseWriter, r *http.Request) {
	session := r.Header.Get(moveclient.SessionHeader)
	var req moveclient.MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "bad json"})
		return
	}
	res, err := h.games.Play(session, req)
	if err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	h.logger.Info("make_move",
		zap.String("session_id", session),
		zap.String("piece", req.PieceID),
		zap.String("from", req.FromTile),
		zap.String("to", req.ToTile),
		zap.Bool("legal", res.Legal),
	)
	WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleFEN(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{"fen": h.games.FEN(r.Header.Get(moveclient.SessionHeader))})
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
