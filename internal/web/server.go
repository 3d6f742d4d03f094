package web

import (
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/chessplayer-web/internal/audio"
	"github.com/park285/chessplayer-web/internal/board"
	"github.com/park285/chessplayer-web/internal/render"
	"github.com/park285/chessplayer-web/internal/session"
	"github.com/park285/chessplayer-web/pkg/viewdto"
)

// CookieName holds the board session id.
const CookieName = "board_session"

//go:embed templates/page.html
var templateFiles embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFiles, "templates/page.html"))

// Server serves the board page, its PNG projection and the event channel.
type Server struct {
	hub       *Hub
	renderer  *render.Renderer
	manifest  *audio.Manifest
	logger    *zap.Logger
	staticDir string
}

type ServerOption func(*Server)

func WithStaticDir(dir string) ServerOption {
	return func(s *Server) { s.staticDir = strings.TrimSpace(dir) }
}

func WithRenderer(r *render.Renderer) ServerOption {
	return func(s *Server) {
		if r != nil {
			s.renderer = r
		}
	}
}

func NewServer(hub *Hub, manifest *audio.Manifest, logger *zap.Logger, opts ...ServerOption) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{hub: hub, renderer: render.NewRenderer(), manifest: manifest, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes registers every endpoint on a fresh mux.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handlePage)
	mux.HandleFunc("GET /board.png", s.handleBoardPNG)
	mux.HandleFunc("GET /state", s.handleState)
	mux.HandleFunc("POST /reset", s.handleReset)
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "sessions": s.hub.Len()})
	})
	mux.Handle("GET /pieces/", http.StripPrefix("/pieces/", http.FileServerFS(render.AssetFS())))
	if s.staticDir != "" {
		mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(s.staticDir))))
	}
	return s.logRequests(mux)
}

type pageTile struct {
	viewdto.TileState
	Img string
}

type pageSound struct {
	Category string
	URL      string
}

type pageData struct {
	Title       string
	About       string
	SessionID   string
	Tiles       []pageTile
	Sounds      []pageSound
	PieceImages map[string]string
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	if id == "" {
		id = uuid.NewString()
		http.SetCookie(w, &http.Cookie{Name: CookieName, Value: id, Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
	}
	sess := s.hub.Get(r.Context(), id)
	st, err := sess.Snapshot(r.Context())
	if err != nil {
		s.fail(w, http.StatusServiceUnavailable, "session_unavailable", err)
		return
	}

	msgs := s.hub.deps.Messages
	data := pageData{
		Title:       msgs.Text("page.title", nil, "Chessplayer"),
		About:       msgs.Text("page.about", nil, "Drag a piece to move it. Right-click a tile to mark it."),
		SessionID:   id,
		PieceImages: pieceImageURLs(),
	}
	for _, t := range st.Tiles {
		pt := pageTile{TileState: t}
		if t.Piece != nil {
			pt.Img = data.PieceImages[t.Piece.Side+":"+t.Piece.Kind]
		}
		data.Tiles = append(data.Tiles, pt)
	}
	if s.manifest != nil {
		for _, cat := range s.manifest.Categories() {
			for _, url := range s.manifest.Assets(cat) {
				data.Sounds = append(data.Sounds, pageSound{Category: cat, URL: url})
			}
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := pageTemplate.Execute(w, data); err != nil {
		s.logger.Warn("page_render_failed", zap.Error(err))
	}
}

func (s *Server) handleBoardPNG(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	b, ov, err := sess.RenderInput(r.Context())
	if err != nil {
		s.fail(w, http.StatusServiceUnavailable, "session_unavailable", err)
		return
	}
	png, err := s.renderer.RenderPNG(r.Context(), b, ov)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, "render_failed", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	st, err := sess.Snapshot(r.Context())
	if err != nil {
		s.fail(w, http.StatusServiceUnavailable, "session_unavailable", err)
		return
	}
	WriteJSON(w, http.StatusOK, st)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := sess.Reset(r.Context()); err != nil {
		s.fail(w, http.StatusServiceUnavailable, "reset_failed", err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// lookup resolves the caller's session, reopening it from the store after an idle sweep.
// Requests without a session id get a 404.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	id := sessionID(r)
	if id == "" {
		s.fail(w, http.StatusNotFound, "no_session", session.ErrSessionNotFound)
		return nil, false
	}
	if sess, ok := s.hub.Lookup(id); ok {
		return sess, true
	}
	return s.hub.Get(r.Context(), id), true
}

func (s *Server) fail(w http.ResponseWriter, status int, code string, err error) {
	s.logger.Warn("request_failed", zap.String("code", code), zap.Error(err))
	WriteJSON(w, status, viewdto.ErrorDetail{Code: code, Message: err.Error(), Retryable: status >= 500})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("http_request", zap.String("method", r.Method), zap.String("path", r.URL.Path))
		next.ServeHTTP(w, r)
	})
}

// sessionID reads the session from the cookie, or from ?session= for tools without cookies.
// Only UUIDs are accepted.
func sessionID(r *http.Request) string {
	raw := r.URL.Query().Get("session")
	if c, err := r.Cookie(CookieName); err == nil && raw == "" {
		raw = c.Value
	}
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return id.String()
}

func pieceImageURLs() map[string]string {
	out := make(map[string]string, 12)
	for _, side := range []board.Side{board.White, board.Black} {
		for _, kind := range []board.Kind{board.Pawn, board.Rook, board.Knight, board.Bishop, board.Queen, board.King} {
			if name, err := render.AssetName(side, kind); err == nil {
				out[side.String()+":"+kind.String()] = "/pieces/" + name
			}
		}
	}
	return out
}

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
