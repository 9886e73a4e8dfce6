/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playlist

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).Level(zerolog.Disabled)
}

func writePlaylist(t *testing.T, lines ...string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "playlist.txt")
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBuiltinServesLinesInOrder(t *testing.T) {
	path := writePlaylist(t, "/a.mp3", "/b.mp3", "/c.mp3")
	b, err := NewBuiltin(testLogger(), path, false)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Shutdown()

	for _, want := range []string{"/a.mp3", "/b.mp3", "/c.mp3"} {
		got, err := b.Next()
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Fatalf("want %q got %q", want, got)
		}
	}
	if b.Lineno() != 3 {
		t.Fatalf("want lineno 3 got %d", b.Lineno())
	}
}

func TestBuiltinRewindsAtEOF(t *testing.T) {
	path := writePlaylist(t, "/a.mp3", "/b.mp3")
	b, err := NewBuiltin(testLogger(), path, false)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Shutdown()

	b.Next()
	b.Next()
	got, err := b.Next()
	if err != nil {
		t.Fatal(err)
	}
	if got != "/a.mp3" {
		t.Fatalf("want rewind to /a.mp3 got %q", got)
	}
	if b.Lineno() != 1 {
		t.Fatalf("want lineno reset to 1 after rewind got %d", b.Lineno())
	}
}

func TestBuiltinReloadsWhenFileChangesOnDisk(t *testing.T) {
	path := writePlaylist(t, "/a.mp3")
	b, err := NewBuiltin(testLogger(), path, false)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Shutdown()

	b.Next()

	// force a newer mtime than what was recorded at open time
	future := time.Now().Add(time.Hour)
	if err := os.WriteFile(path, []byte("/x.mp3\n/y.mp3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}

	got, err := b.Next()
	if err != nil {
		t.Fatal(err)
	}
	if got != "/x.mp3" {
		t.Fatalf("want reloaded content /x.mp3 got %q", got)
	}
}

func TestBuiltinShuffleServesAllEntriesExactlyOnceBeforeRepeat(t *testing.T) {
	path := writePlaylist(t, "/a.mp3", "/b.mp3", "/c.mp3")
	b, err := NewBuiltin(testLogger(), path, true)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Shutdown()

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		got, err := b.Next()
		if err != nil {
			t.Fatal(err)
		}
		seen[got] = true
	}
	if len(seen) != 3 {
		t.Fatalf("want 3 distinct entries served, got %d: %v", len(seen), seen)
	}
}

func TestBuiltinMissingFileErrors(t *testing.T) {
	_, err := NewBuiltin(testLogger(), filepath.Join(t.TempDir(), "missing.txt"), false)
	if err == nil {
		t.Fatal("expected error opening missing playlist file")
	}
}
