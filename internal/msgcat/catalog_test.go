package msgcat

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEmbeddedMessages(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := c.Render("game.round_win", map[string]any{"Round": 2, "Own": "rock", "Other": "scissors"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "Round 2: you won (rock beats scissors)." {
		t.Fatalf("unexpected text: %q", got)
	}
	for _, key := range []string{"errors.invalid_move", "errors.duplicate_move", "matchmaking.cancelled", "errors.internal"} {
		if !c.Has(key) {
			t.Fatalf("missing key %s", key)
		}
	}
}

func TestRenderMissing(t *testing.T) {
	c, _ := New("")
	if _, err := c.Render("nope.nothing", nil); err == nil {
		t.Fatalf("expected error for unknown key")
	}
	if _, err := c.Render("matchmaking.found", map[string]any{"Opponent": "x"}); err == nil {
		t.Fatalf("expected error for missing field")
	}
	if got := c.Text("nope.nothing", nil, "fallback"); got != "fallback" {
		t.Fatalf("Text fallback: %q", got)
	}
	var nilCat *Catalog
	if got := nilCat.Text("errors.internal", nil, "x"); got != "x" {
		t.Fatalf("nil catalog: %q", got)
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("matchmaking:\n  cancelled: \"Search stopped.\"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got, _ := c.Render("matchmaking.cancelled", nil); got != "Search stopped." {
		t.Fatalf("override not applied: %q", got)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.yml"), []byte("matchmaking:\n  cancelled: \"dup\"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := New(dir); err == nil {
		t.Fatalf("expected duplicate key error")
	}
}
