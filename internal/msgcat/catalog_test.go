package msgcat

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEmbeddedMessages(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.Text("page.title", nil, ""); got != "Chessplayer" {
		t.Fatalf("title = %q", got)
	}
	got := c.Failure("make_move", errors.New("timeout"))
	if !strings.Contains(got, "timeout") || strings.HasPrefix(got, "make_move failed") {
		t.Fatalf("failure notice = %q", got)
	}
}

func TestFailureFallsBackForUnknownOp(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatal(err)
	}
	if got := c.Failure("undo", errors.New("boom")); got != "undo failed: boom" {
		t.Fatalf("got %q", got)
	}
	var nilCat *Catalog
	if got := nilCat.Failure("make_move", errors.New("boom")); got != "make_move failed: boom" {
		t.Fatalf("nil catalog got %q", got)
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("page:\n  title: \"Board\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.Text("page.title", nil, ""); got != "Board" {
		t.Fatalf("title = %q", got)
	}
	if got := c.Text("page.about", nil, ""); got == "" {
		t.Fatalf("embedded keys lost after override")
	}
}

func TestOverrideDuplicateKeys(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.yaml", "b.yml"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("page:\n  title: x\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := New(dir); err == nil {
		t.Fatalf("expected duplicate key error")
	}
}

func TestRenderMissingField(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Render("notice.make_move", map[string]any{}); err == nil {
		t.Fatalf("expected missing key error")
	}
}
