package board

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPlaceFENEmpty(t *testing.T) {
	b := New()
	n, err := PlaceFEN(b, "8/8/8/8/8/8/8/8")
	if err != nil {
		t.Fatalf("PlaceFEN: %v", err)
	}
	if n != 0 || len(b.Pieces()) != 0 {
		t.Fatalf("expected empty board, placed %d", n)
	}
}

func TestPlaceFENStartPosition(t *testing.T) {
	b := New()
	n, err := PlaceFEN(b, StartFEN)
	if err != nil {
		t.Fatalf("PlaceFEN: %v", err)
	}
	if n != 32 {
		t.Fatalf("placed %d, want 32", n)
	}
	if b.Count(White) != 16 || b.Count(Black) != 16 {
		t.Fatalf("white=%d black=%d", b.Count(White), b.Count(Black))
	}

	kinds := map[Side]map[Kind]int{White: {}, Black: {}}
	for _, pl := range b.Pieces() {
		kinds[pl.Piece.Side][pl.Piece.Kind]++
	}
	for _, side := range []Side{White, Black} {
		if kinds[side][King] != 1 || kinds[side][Queen] != 1 {
			t.Fatalf("%s: king=%d queen=%d", side, kinds[side][King], kinds[side][Queen])
		}
	}

	if b.Placement() != StartPlacement {
		t.Fatalf("placement round trip = %s", b.Placement())
	}
}

func TestPlaceFENIds(t *testing.T) {
	b := New()
	if _, err := PlaceFEN(b, StartPlacement); err != nil {
		t.Fatalf("PlaceFEN: %v", err)
	}
	want := map[string]string{
		"A2": "w_pawn0",
		"H2": "w_pawn7",
		"A1": "w_rook0",
		"H1": "w_rook1",
		"C1": "w_bishop0",
		"F1": "w_bishop1",
		"E1": "w_king",
		"D1": "w_queen",
		"B8": "b_knight0",
		"E8": "b_king",
		"D8": "b_queen",
		"H7": "b_pawn7",
	}
	got := map[string]string{}
	for tile := range want {
		p, err := b.At(tile)
		if err != nil || p == nil {
			t.Fatalf("no piece on %s", tile)
		}
		got[tile] = p.ID
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
}

func TestPlaceFENAbortsOnUnknownLetter(t *testing.T) {
	b := New()
	n, err := PlaceFEN(b, "rnbx/8/8/8/8/8/8/8 w - - 0 1")
	var fe *FENError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FENError, got %v", err)
	}
	if n != 3 || fe.Placed != 3 || fe.Char != 'x' || fe.Index != 3 {
		t.Fatalf("unexpected abort state: n=%d err=%+v", n, fe)
	}
	if b.Occupied("E8") || len(b.Pieces()) != 3 {
		t.Fatalf("pieces after the bad character must not be placed")
	}
}

func TestPlaceFENIgnoresTrailingFields(t *testing.T) {
	b := New()
	if _, err := PlaceFEN(b, "4k3/8/8/8/8/8/8/4K3 b - e3 12 40"); err != nil {
		t.Fatalf("PlaceFEN: %v", err)
	}
	if p, _ := b.At("E8"); p == nil || p.ID != "b_king" {
		t.Fatalf("black king missing: %+v", p)
	}
	if p, _ := b.At("E1"); p == nil || p.ID != "w_king" {
		t.Fatalf("white king missing: %+v", p)
	}
}

func TestPlaceFENQueensShareIdWithoutCounter(t *testing.T) {
	b := New()
	if _, err := PlaceFEN(b, "QQ6/8/8/8/8/8/8/8"); err != nil {
		t.Fatalf("PlaceFEN: %v", err)
	}
	a, _ := b.At("A8")
	c, _ := b.At("B8")
	if a.ID != "w_queen" || c.ID != "w_queen" {
		t.Fatalf("queens should share the uncounted id, got %s and %s", a.ID, c.ID)
	}
}

func TestPlaceFENTooManyRanks(t *testing.T) {
	b := New()
	_, err := PlaceFEN(b, "8/8/8/8/8/8/8/8/p")
	var fe *FENError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FENError, got %v", err)
	}
}
