package render

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io/fs"
	"testing"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/chessplayer-web/internal/board"
)

func startBoard(t *testing.T) *board.Board {
	t.Helper()
	b := board.New()
	if _, err := board.PlaceFEN(b, board.StartFEN); err != nil {
		t.Fatalf("PlaceFEN: %v", err)
	}
	return b
}

func TestToChessBoard(t *testing.T) {
	cb := ToChessBoard(startBoard(t))
	if got := cb.Piece(nchess.E1); got != nchess.WhiteKing {
		t.Fatalf("E1 = %v", got)
	}
	if got := cb.Piece(nchess.D8); got != nchess.BlackQueen {
		t.Fatalf("D8 = %v", got)
	}
	if got := cb.Piece(nchess.E4); got != nchess.NoPiece {
		t.Fatalf("E4 = %v", got)
	}
	if n := len(cb.SquareMap()); n != 32 {
		t.Fatalf("pieces = %d", n)
	}
}

func decode(t *testing.T, raw []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	return img
}

func TestRenderPNG(t *testing.T) {
	r := NewRenderer(WithSquareSize(40))
	raw, err := r.RenderPNG(context.Background(), startBoard(t), Overlay{
		Outlined: []string{"A1"},
		Previews: []string{"E4"},
	})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	img := decode(t, raw)
	if img.Bounds().Dx() != r.Size() || img.Bounds().Dy() != r.Size() {
		t.Fatalf("size = %v, want %d", img.Bounds(), r.Size())
	}

	// A1 outline: top-left corner of the tile is drawn in the outline colour.
	a1 := squareRect(nchess.A1, 40, image.Pt(r.margin, r.margin))
	cr, _, cb, _ := img.At(a1.Min.X+1, a1.Min.Y+1).RGBA()
	if cr>>8 < 180 || cb>>8 > 80 {
		t.Fatalf("A1 outline not drawn: r=%d b=%d", cr>>8, cb>>8)
	}

	// E4 preview dot darkens the centre compared with C4, an empty light tile.
	e4 := squareRect(nchess.E4, 40, image.Pt(r.margin, r.margin))
	c4 := squareRect(nchess.C4, 40, image.Pt(r.margin, r.margin))
	pr, _, _, _ := img.At(e4.Min.X+20, e4.Min.Y+20).RGBA()
	er, _, _, _ := img.At(c4.Min.X+20, c4.Min.Y+20).RGBA()
	if pr >= er {
		t.Fatalf("preview marker not drawn: %d >= %d", pr, er)
	}
}

func TestRenderEmptyBoard(t *testing.T) {
	raw, err := NewRenderer().RenderPNG(context.Background(), board.New(), Overlay{LastFrom: "E2", LastTo: "E4"})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	decode(t, raw)
}

func TestRenderCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewRenderer().RenderPNG(ctx, board.New(), Overlay{}); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestEveryPieceAssetParses(t *testing.T) {
	cache := newPieceCache()
	for _, side := range []map[board.Kind]nchess.Piece{pieceCodes[board.White], pieceCodes[board.Black]} {
		for _, p := range side {
			if _, err := cache.get(p, 32); err != nil {
				t.Fatalf("piece %v: %v", p, err)
			}
		}
	}
	if len(cache.images) != 12 {
		t.Fatalf("cached %d images", len(cache.images))
	}
}

func TestAssetFS(t *testing.T) {
	name, err := AssetName(board.White, board.Knight)
	if err != nil || name != "wN.svg" {
		t.Fatalf("AssetName = %q, %v", name, err)
	}
	if _, err := fs.Stat(AssetFS(), name); err != nil {
		t.Fatalf("asset missing: %v", err)
	}
}
