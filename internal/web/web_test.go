package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/chessplayer-web/internal/audio"
	"github.com/park285/chessplayer-web/internal/board"
	"github.com/park285/chessplayer-web/internal/interact"
	"github.com/park285/chessplayer-web/internal/journal"
	"github.com/park285/chessplayer-web/internal/moveclient"
	"github.com/park285/chessplayer-web/internal/msgcat"
	"github.com/park285/chessplayer-web/internal/session"
	"github.com/park285/chessplayer-web/pkg/viewdto"
)

// fakeMoveServer accepts every move and offers a fixed set of targets.
type fakeMoveServer struct {
	mu       sync.Mutex
	possible []string
	resets   int
	made     []moveclient.MoveRequest
}

func (f *fakeMoveServer) GetMoves(context.Context, moveclient.MovesQuery) (*moveclient.PossibleMoves, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &moveclient.PossibleMoves{Moves: append([]string(nil), f.possible...)}, nil
}

func (f *fakeMoveServer) MakeMove(_ context.Context, req moveclient.MoveRequest) (*moveclient.MoveResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.made = append(f.made, req)
	return &moveclient.MoveResult{Legal: true, PieceID: req.PieceID, ToTile: req.ToTile}, nil
}

func (f *fakeMoveServer) Reset(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	return nil
}

func (f *fakeMoveServer) resetCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resets
}

type fixture struct {
	moves   *fakeMoveServer
	store   *session.MemoryStore
	journal journal.Journal
	hub     *Hub
	server  *httptest.Server
}

func newFixture(t *testing.T, opts ...func(*Deps)) *fixture {
	t.Helper()
	manifest, err := audio.LoadManifest("")
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	messages, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat: %v", err)
	}
	f := &fixture{
		moves:   &fakeMoveServer{possible: []string{"E3", "E4"}},
		store:   session.NewMemoryStore(time.Hour),
		journal: journal.NewMemory(),
	}
	deps := Deps{
		Moves:       func(string) MoveServer { return f.moves },
		Store:       f.store,
		Journal:     f.journal,
		Manifest:    manifest,
		Messages:    messages,
		MoveTimeout: time.Second,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	f.hub = NewHub(deps)
	f.server = httptest.NewServer(NewServer(f.hub, manifest, nil).Routes())
	t.Cleanup(func() {
		f.server.Close()
		f.hub.Close()
	})
	return f
}

func (f *fixture) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(f.server.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestPageCarriesBoardMarkup(t *testing.T) {
	f := newFixture(t)
	resp := f.get(t, "/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == CookieName {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatalf("session cookie not set")
	}
	if _, err := uuid.Parse(cookie.Value); err != nil {
		t.Fatalf("cookie is not a uuid: %q", cookie.Value)
	}

	body, _ := io.ReadAll(resp.Body)
	page := string(body)
	for _, want := range []string{
		`id="A8" class="tile light"`,
		`id="B8" class="tile dark"`,
		`id="w_pawn0" class="piece white pawn"`,
		`id="b_king" class="piece black king"`,
		`<audio class="moveSound"`,
		`<audio class="captureSound"`,
		`<title>Chessplayer</title>`,
		`function patchTile(tile, t)`,
	} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %s", want)
		}
	}
	if f.moves.resetCount() != 1 {
		t.Fatalf("fresh session should reset the move server once, got %d", f.moves.resetCount())
	}
}

func TestStateAndPNGNeedSession(t *testing.T) {
	f := newFixture(t)
	if resp := f.get(t, "/state"); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("/state without session = %d", resp.StatusCode)
	}

	id := uuid.NewString()
	resp := f.get(t, "/state?session="+id)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/state = %d", resp.StatusCode)
	}
	var st viewdto.BoardState
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Placement != board.StartPlacement || len(st.Tiles) != 64 || st.SessionID != id {
		t.Fatalf("unexpected state: %+v", st)
	}

	png := f.get(t, "/board.png?session="+id)
	if ct := png.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type = %q", ct)
	}
}

func TestSessionRestoredFromStore(t *testing.T) {
	f := newFixture(t)
	id := uuid.NewString()
	const placement = "4k3/8/8/8/8/8/8/4K2R"
	if err := f.store.SaveFEN(context.Background(), id, placement); err != nil {
		t.Fatal(err)
	}
	resp := f.get(t, "/state?session="+id)
	var st viewdto.BoardState
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Placement != placement {
		t.Fatalf("placement = %q", st.Placement)
	}
	if f.moves.resetCount() != 0 {
		t.Fatalf("restored session must not reset the move server")
	}
}

func TestResetRestoresStartPosition(t *testing.T) {
	f := newFixture(t)
	id := uuid.NewString()
	if err := f.store.SaveFEN(context.Background(), id, "4k3/8/8/8/8/8/8/4K3"); err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(f.server.URL+"/reset?session="+id, "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reset = %d", resp.StatusCode)
	}
	fen, err := f.store.LoadFEN(context.Background(), id)
	if err != nil || fen != board.StartPlacement {
		t.Fatalf("stored fen = %q, %v", fen, err)
	}
	if f.moves.resetCount() != 1 {
		t.Fatalf("resets = %d", f.moves.resetCount())
	}
}

// readUntil reads messages until pred accepts one.
func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, pred func(viewdto.ServerMessage) bool) viewdto.ServerMessage {
	t.Helper()
	for {
		var msg viewdto.ServerMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if pred(msg) {
			return msg
		}
	}
}

func TestWebsocketDragAndDrop(t *testing.T) {
	f := newFixture(t)
	id := uuid.NewString()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws?session=" + id
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	first := readUntil(t, ctx, conn, func(m viewdto.ServerMessage) bool { return true })
	if first.Type != viewdto.MessageState || first.State.Placement != board.StartPlacement {
		t.Fatalf("first message = %+v", first)
	}

	if err := wsjson.Write(ctx, conn, viewdto.ClientEvent{Seq: 1, Type: viewdto.EventDragStart, Target: "piece", ID: "w_pawn4"}); err != nil {
		t.Fatal(err)
	}
	readUntil(t, ctx, conn, func(m viewdto.ServerMessage) bool {
		return m.Type == viewdto.MessageState && m.State.Armed && countPreviews(m.State) == 2
	})

	if err := wsjson.Write(ctx, conn, viewdto.ClientEvent{Seq: 2, Type: viewdto.EventDrop, Target: "tile", ID: "E4"}); err != nil {
		t.Fatal(err)
	}
	sound := readUntil(t, ctx, conn, func(m viewdto.ServerMessage) bool { return m.Type == viewdto.MessageSound })
	if sound.Sound.Category != audio.CategoryMove {
		t.Fatalf("sound = %+v", sound.Sound)
	}
	moved := readUntil(t, ctx, conn, func(m viewdto.ServerMessage) bool {
		return m.Type == viewdto.MessageState && strings.Contains(m.State.Placement, "4P3")
	})
	if moved.State.Armed || countPreviews(moved.State) != 0 {
		t.Fatalf("drag state left behind: %+v", moved.State)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		entries, err := f.journal.List(ctx, id, 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) == 1 {
			if entries[0].FromTile != "E2" || entries[0].ToTile != "E4" {
				t.Fatalf("journal entry = %+v", entries[0])
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("move never journaled")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWebsocketRejectsUnknownEvent(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws?session=" + uuid.NewString()
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	if err := wsjson.Write(ctx, conn, viewdto.ClientEvent{Seq: 7, Type: "wheel"}); err != nil {
		t.Fatal(err)
	}
	msg := readUntil(t, ctx, conn, func(m viewdto.ServerMessage) bool { return m.Type == viewdto.MessageError })
	if msg.Error.Code != "bad_event" {
		t.Fatalf("error = %+v", msg.Error)
	}
}

func countPreviews(st *viewdto.BoardState) int {
	n := 0
	for _, t := range st.Tiles {
		n += t.Previews
	}
	return n
}

func TestHubSweepKeepsWatchedSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	idle := f.hub.Get(ctx, uuid.NewString())
	watched := f.hub.Get(ctx, uuid.NewString())
	_, unsubscribe := watched.Subscribe()
	defer unsubscribe()

	if n := f.hub.Sweep(time.Now().Add(time.Hour), time.Minute); n != 1 {
		t.Fatalf("swept %d sessions", n)
	}
	if _, ok := f.hub.Lookup(idle.ID()); ok {
		t.Fatalf("idle session still registered")
	}
	if _, ok := f.hub.Lookup(watched.ID()); !ok {
		t.Fatalf("watched session was swept")
	}
}

func TestToEventMapsTargets(t *testing.T) {
	ev, err := toEvent(viewdto.ClientEvent{Type: viewdto.EventMouseDown, Target: "movePreview", ID: "E4", Button: 2})
	if err != nil {
		t.Fatal(err)
	}
	md, ok := ev.(interact.MouseDown)
	if !ok {
		t.Fatalf("event = %T", ev)
	}
	if md.Target.Kind != interact.TargetMovePreview || md.Target.ID != "E4" || md.Button != interact.ButtonRight {
		t.Fatalf("mouse down = %+v", md)
	}
}

// slowStore delays saves of one placement so later saves could overtake it.
type slowStore struct {
	*session.MemoryStore
	slow  string
	delay time.Duration
}

func (s *slowStore) SaveFEN(ctx context.Context, sessionID, fen string) error {
	if fen == s.slow {
		time.Sleep(s.delay)
	}
	return s.MemoryStore.SaveFEN(ctx, sessionID, fen)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestStoredPlacementFollowsMoveOrder(t *testing.T) {
	const afterE4 = "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR"
	var store *slowStore
	f := newFixture(t, func(d *Deps) {
		store = &slowStore{MemoryStore: d.Store.(*session.MemoryStore), slow: afterE4, delay: 200 * time.Millisecond}
		d.Store = store
	})
	ctx := context.Background()
	id := uuid.NewString()
	sess := f.hub.Get(ctx, id)

	move := func(seq uint64, piece, to string) {
		t.Helper()
		for _, ce := range []viewdto.ClientEvent{
			{Seq: seq, Type: viewdto.EventDragStart, Target: "piece", ID: piece},
			{Seq: seq + 1, Type: viewdto.EventDrop, Target: "tile", ID: to},
		} {
			if _, err := sess.Dispatch(ctx, ce); err != nil {
				t.Fatalf("dispatch %+v: %v", ce, err)
			}
		}
	}
	placement := func() string {
		st, err := sess.Snapshot(ctx)
		if err != nil {
			t.Fatal(err)
		}
		return st.Placement
	}

	move(1, "w_pawn4", "E4")
	waitFor(t, "white move", func() bool { return placement() == afterE4 })
	move(3, "b_pawn4", "E5")
	waitFor(t, "both moves journaled", func() bool {
		entries, err := f.journal.List(ctx, id, 10)
		return err == nil && len(entries) == 2
	})

	live := placement()
	stored, err := store.LoadFEN(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if stored != live {
		t.Fatalf("stored placement %q, live %q", stored, live)
	}

	if err := sess.Reset(ctx); err != nil {
		t.Fatal(err)
	}
	if stored, err := store.LoadFEN(ctx, id); err != nil || stored != board.StartPlacement {
		t.Fatalf("stored after reset = %q, %v", stored, err)
	}
}

// gatedMoveServer blocks Reset until released, stalling session creation.
type gatedMoveServer struct {
	*fakeMoveServer
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedMoveServer) Reset(ctx context.Context) error {
	g.once.Do(func() { close(g.started) })
	<-g.release
	return g.fakeMoveServer.Reset(ctx)
}

func TestHubServesOthersWhileSessionOpens(t *testing.T) {
	slowID := uuid.NewString()
	gated := &gatedMoveServer{
		fakeMoveServer: &fakeMoveServer{},
		started:        make(chan struct{}),
		release:        make(chan struct{}),
	}
	f := newFixture(t, func(d *Deps) {
		plain := d.Moves
		d.Moves = func(id string) MoveServer {
			if id == slowID {
				return gated
			}
			return plain(id)
		}
	})
	ctx := context.Background()
	other := f.hub.Get(ctx, uuid.NewString())

	got := make(chan *Session, 2)
	go func() { got <- f.hub.Get(ctx, slowID) }()
	<-gated.started
	go func() { got <- f.hub.Get(ctx, slowID) }()

	looked := make(chan bool, 1)
	go func() {
		_, ok := f.hub.Lookup(other.ID())
		_ = f.hub.Len()
		looked <- ok
	}()
	select {
	case ok := <-looked:
		if !ok {
			t.Fatalf("existing session not found")
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("hub blocked while another session was opening")
	}

	close(gated.release)
	first, second := <-got, <-got
	if first != second {
		t.Fatalf("concurrent opens built two sessions")
	}
	if f.hub.Len() != 2 {
		t.Fatalf("hub holds %d sessions", f.hub.Len())
	}
}
