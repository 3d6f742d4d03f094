package render

import (
	"bytes"
	"embed"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io/fs"
	"strings"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/park285/chessplayer-web/internal/board"
)

//go:embed assets/pieces/*.svg
var pieceFiles embed.FS

// AssetFS exposes the piece images so the page can use the same artwork as the PNG view.
func AssetFS() fs.FS {
	sub, err := fs.Sub(pieceFiles, "assets/pieces")
	if err != nil {
		panic(err)
	}
	return sub
}

// AssetName returns the file name of a piece image inside AssetFS, e.g. "wP.svg".
func AssetName(side board.Side, kind board.Kind) (string, error) {
	code, ok := pieceCodes[side][kind]
	if !ok {
		return "", fmt.Errorf("no asset for %s %s", side, kind)
	}
	name, err := pieceAssetName(code)
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(name, "assets/pieces/"), nil
}

type pieceKey struct {
	piece nchess.Piece
	size  int
}

// pieceCache holds rasterised piece images per size.
type pieceCache struct {
	mu     sync.RWMutex
	images map[pieceKey]image.Image
}

func newPieceCache() *pieceCache {
	return &pieceCache{images: make(map[pieceKey]image.Image)}
}

func (c *pieceCache) get(piece nchess.Piece, size int) (image.Image, error) {
	key := pieceKey{piece: piece, size: size}

	c.mu.RLock()
	img, ok := c.images[key]
	c.mu.RUnlock()
	if ok {
		return img, nil
	}

	img, err := rasterisePiece(piece, size)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.images[key] = img
	c.mu.Unlock()
	return img, nil
}

func rasterisePiece(piece nchess.Piece, size int) (image.Image, error) {
	name, err := pieceAssetName(piece)
	if err != nil {
		return nil, err
	}
	data, err := pieceFiles.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read piece asset %s: %w", name, err)
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(sanitizeSVG(data)))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg %s: %w", name, err)
	}
	if icon.ViewBox.W <= 0 {
		icon.ViewBox.W = float64(size)
	}
	if icon.ViewBox.H <= 0 {
		icon.ViewBox.H = float64(size)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)
	return img, nil
}

func pieceAssetName(piece nchess.Piece) (string, error) {
	prefix := "b"
	if piece.Color() == nchess.White {
		prefix = "w"
	}

	var suffix string
	switch piece.Type() {
	case nchess.King:
		suffix = "K"
	case nchess.Queen:
		suffix = "Q"
	case nchess.Rook:
		suffix = "R"
	case nchess.Bishop:
		suffix = "B"
	case nchess.Knight:
		suffix = "N"
	case nchess.Pawn:
		suffix = "P"
	default:
		return "", fmt.Errorf("no asset for piece %v", piece)
	}
	return fmt.Sprintf("assets/pieces/%s%s.svg", prefix, suffix), nil
}
