package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"kara/karaoke"
)

func testTranscript() *karaoke.Transcript {
	return &karaoke.Transcript{
		Words: []karaoke.Word{
			{Text: "go", Start: 0, End: 500 * time.Millisecond},
			{Text: "team", Start: 500 * time.Millisecond, End: time.Second},
		},
		Text:     "go team",
		Language: "en",
		Model:    "base.en",
	}
}

func newTestStore(t *testing.T) *TranscriptStore {
	t.Helper()
	store, err := NewTranscriptStore(t.TempDir(), 10, 3)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func TestTranscriptStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)

	if _, ok := store.Get("missing"); ok {
		t.Fatal("expected miss")
	}
	if err := store.Put("key", testTranscript()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok := store.Get("key")
	if !ok {
		t.Fatal("expected hit")
	}
	if len(got.Words) != 2 || got.Words[1].Text != "team" {
		t.Fatalf("unexpected transcript %+v", got)
	}
	if got.Words[1].Start != 500*time.Millisecond {
		t.Fatalf("timing lost in round trip: %v", got.Words[1].Start)
	}
}

func TestTranscriptStoreDiskPromotion(t *testing.T) {
	store := newTestStore(t)

	if err := store.Put("key", testTranscript()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Drop the memory tier; the next Get must come from disk and promote.
	if err := store.memory.Clear(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := store.Get("key"); !ok {
		t.Fatal("expected disk hit")
	}
	if !store.memory.Contains("key") {
		t.Fatal("expected promotion into memory tier")
	}
}

func TestTranscriptStoreCorruptedEntry(t *testing.T) {
	store := newTestStore(t)

	if err := store.memory.Put("bad", []byte("not json")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := store.Get("bad"); ok {
		t.Fatal("expected corrupted entry treated as miss")
	}
	if store.Contains("bad") {
		t.Fatal("expected corrupted entry dropped")
	}
}

func TestTranscriptStoreDelete(t *testing.T) {
	store := newTestStore(t)

	if err := store.Put("key", testTranscript()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Delete("key"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.Contains("key") {
		t.Fatal("expected entry gone from both tiers")
	}
}

func TestKeyDeterministic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "track.mp3")
	if err := os.WriteFile(path, []byte("audio bytes"), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	k1, err := Key(path, "base.en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	k2, err := Key(path, "base.en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if k1 != k2 {
		t.Fatal("expected stable key for same inputs")
	}

	k3, err := Key(path, "small.en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if k1 == k3 {
		t.Fatal("expected model to influence key")
	}

	other := filepath.Join(dir, "other.mp3")
	if err := os.WriteFile(other, []byte("different audio"), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	k4, err := Key(other, "base.en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if k1 == k4 {
		t.Fatal("expected contents to influence key")
	}
}

func TestKeyMissingFile(t *testing.T) {
	if _, err := Key(filepath.Join(t.TempDir(), "nope.mp3"), "base.en"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
