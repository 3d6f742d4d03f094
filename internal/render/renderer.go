package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"

	nchess "github.com/corentings/chess/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/park285/chessplayer-web/internal/board"
)

// Overlay carries the transient view state drawn on top of the pieces.
type Overlay struct {
	Highlighted []string
	Outlined    []string
	Previews    []string
	LastFrom    string
	LastTo      string
}

// Renderer projects a board onto a PNG image.
type Renderer struct {
	squareSize int
	margin     int
	pieces     *pieceCache
}

type Option func(*Renderer)

func WithSquareSize(px int) Option {
	return func(r *Renderer) {
		if px >= 16 {
			r.squareSize = px
		}
	}
}

func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{squareSize: 72, margin: 24, pieces: newPieceCache()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Size returns the image edge length in pixels.
func (r *Renderer) Size() int { return r.squareSize*board.Size + r.margin*2 }

func (r *Renderer) RenderPNG(ctx context.Context, b *board.Board, ov Overlay) ([]byte, error) {
	if b == nil {
		return nil, fmt.Errorf("board is nil")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	total := r.Size()
	origin := image.Point{X: r.margin, Y: r.margin}
	img := image.NewRGBA(image.Rect(0, 0, total, total))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(frameColor), image.Point{}, imagedraw.Src)

	drawSquares(img, r.squareSize, origin)
	for _, tile := range []string{ov.LastFrom, ov.LastTo} {
		if sq, err := board.SquareOf(tile); err == nil {
			drawSquareOverlay(img, sq, r.squareSize, origin, lastMoveFill)
		}
	}
	if err := r.drawPieces(img, ToChessBoard(b), origin); err != nil {
		return nil, err
	}
	for _, tile := range ov.Highlighted {
		if sq, err := board.SquareOf(tile); err == nil {
			drawSquareBorder(img, sq, r.squareSize, origin, 3, highlightBorder)
		}
	}
	for _, tile := range ov.Outlined {
		if sq, err := board.SquareOf(tile); err == nil {
			drawSquareBorder(img, sq, r.squareSize, origin, 4, outlineBorder)
		}
	}
	for _, tile := range ov.Previews {
		if sq, err := board.SquareOf(tile); err == nil {
			rect := squareRect(sq, r.squareSize, origin)
			center := image.Pt(rect.Min.X+r.squareSize/2, rect.Min.Y+r.squareSize/2)
			drawDisc(img, center, r.squareSize/7, previewDot)
		}
	}
	drawCoordinates(img, r.squareSize, origin, r.margin)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	lightSquare     = color.RGBA{233, 207, 163, 255}
	darkSquare      = color.RGBA{187, 136, 96, 255}
	frameColor      = color.RGBA{40, 44, 52, 255}
	lastMoveFill    = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	highlightBorder = color.NRGBA{R: 20, G: 20, B: 20, A: 230}
	outlineBorder   = color.NRGBA{R: 220, G: 40, B: 40, A: 230}
	previewDot      = color.NRGBA{R: 30, G: 30, B: 30, A: 110}
	coordinateText  = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
)

func drawSquares(dst imagedraw.Image, squareSize int, origin image.Point) {
	for row := 0; row < board.Size; row++ {
		for col := 0; col < board.Size; col++ {
			x := origin.X + col*squareSize
			y := origin.Y + row*squareSize
			clr := lightSquare
			if board.TileColor(row, col) == board.Dark {
				clr = darkSquare
			}
			imagedraw.Draw(dst, image.Rect(x, y, x+squareSize, y+squareSize), image.NewUniform(clr), image.Point{}, imagedraw.Src)
		}
	}
}

func (r *Renderer) drawPieces(dst imagedraw.Image, cb *nchess.Board, origin image.Point) error {
	for sq, piece := range cb.SquareMap() {
		if piece == nchess.NoPiece {
			continue
		}
		img, err := r.pieces.get(piece, r.squareSize)
		if err != nil {
			return err
		}
		rect := squareRect(sq, r.squareSize, origin)
		imagedraw.Draw(dst, rect, img, image.Point{}, imagedraw.Over)
	}
	return nil
}

func drawSquareOverlay(img *image.RGBA, sq nchess.Square, squareSize int, origin image.Point, clr color.Color) {
	rect := squareRect(sq, squareSize, origin)
	imagedraw.Draw(img, rect, image.NewUniform(clr), image.Point{}, imagedraw.Over)
}

func drawSquareBorder(img *image.RGBA, sq nchess.Square, squareSize int, origin image.Point, width int, clr color.Color) {
	rect := squareRect(sq, squareSize, origin)
	fill := image.NewUniform(clr)
	edges := []image.Rectangle{
		image.Rect(rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y+width),
		image.Rect(rect.Min.X, rect.Max.Y-width, rect.Max.X, rect.Max.Y),
		image.Rect(rect.Min.X, rect.Min.Y+width, rect.Min.X+width, rect.Max.Y-width),
		image.Rect(rect.Max.X-width, rect.Min.Y+width, rect.Max.X, rect.Max.Y-width),
	}
	for _, e := range edges {
		imagedraw.Draw(img, e, fill, image.Point{}, imagedraw.Over)
	}
}

func drawCoordinates(dst imagedraw.Image, squareSize int, origin image.Point, margin int) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: dst, Face: face, Src: image.NewUniform(coordinateText)}
	ascent := face.Metrics().Ascent.Ceil()
	boardEnd := origin.Y + board.Size*squareSize

	for i := 0; i < board.Size; i++ {
		tile := board.TileID(i, i)
		rank := tile[1:]
		file := tile[:1]
		rankBaseline := origin.Y + i*squareSize + squareSize/2 + ascent/2
		drawCenteredText(drawer, rank, origin.X-margin/2, rankBaseline)
		fileCenter := origin.X + i*squareSize + squareSize/2
		drawCenteredText(drawer, file, fileCenter, boardEnd+(margin+ascent)/2)
	}
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

func drawDisc(img *image.RGBA, center image.Point, radius int, clr color.Color) {
	if radius <= 0 {
		blendPixel(img, center.X, center.Y, clr)
		return
	}
	rSquared := radius * radius
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if x*x+y*y > rSquared {
				continue
			}
			blendPixel(img, center.X+x, center.Y+y, clr)
		}
	}
}

func blendPixel(img *image.RGBA, x, y int, clr color.Color) {
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return
	}
	sr, sg, sb, sa := clr.RGBA()
	srcA := float64(sa) / 65535.0
	if srcA <= 0 {
		return
	}
	dst := img.RGBAAt(x, y)
	dstA := float64(dst.A) / 255.0

	// clr.RGBA is alpha-premultiplied, as is image.RGBA
	outA := srcA + dstA*(1-srcA)
	outR := float64(sr)/65535.0 + float64(dst.R)/255.0*(1-srcA)
	outG := float64(sg)/65535.0 + float64(dst.G)/255.0*(1-srcA)
	outB := float64(sb)/65535.0 + float64(dst.B)/255.0*(1-srcA)

	img.SetRGBA(x, y, color.RGBA{
		R: floatToUint8(outR * 255.0),
		G: floatToUint8(outG * 255.0),
		B: floatToUint8(outB * 255.0),
		A: floatToUint8(outA * 255.0),
	})
}

func floatToUint8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

func squareRect(sq nchess.Square, squareSize int, origin image.Point) image.Rectangle {
	row := board.Size - 1 - int(sq.Rank())
	col := int(sq.File())
	x := origin.X + col*squareSize
	y := origin.Y + row*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}
