/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playlist

import (
	"os"
	"path/filepath"
	"testing"
)

func writeStaticPlaylist(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "playlist.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestStaticServesEntriesInOrder(t *testing.T) {
	path := writeStaticPlaylist(t, `
entries:
  - path: /music/a.mp3
  - path: /music/b.mp3
`)
	s, err := NewStatic(testLogger(), path)
	if err != nil {
		t.Fatal(err)
	}

	first, err := s.Next()
	if err != nil {
		t.Fatal(err)
	}
	if first != "/music/a.mp3" {
		t.Fatalf("want a.mp3 got %q", first)
	}

	second, err := s.Next()
	if err != nil {
		t.Fatal(err)
	}
	if second != "/music/b.mp3" {
		t.Fatalf("want b.mp3 got %q", second)
	}
}

func TestStaticWrapsAtEndOfList(t *testing.T) {
	path := writeStaticPlaylist(t, `
entries:
  - path: /music/only.mp3
`)
	s, err := NewStatic(testLogger(), path)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Next(); err != nil {
		t.Fatal(err)
	}
	if s.Lineno() != 1 {
		t.Fatalf("want lineno 1 got %d", s.Lineno())
	}

	got, err := s.Next()
	if err != nil {
		t.Fatal(err)
	}
	if got != "/music/only.mp3" {
		t.Fatalf("want wraparound to first entry, got %q", got)
	}
	if s.Lineno() != 1 {
		t.Fatalf("want lineno reset to 1 after wraparound, got %d", s.Lineno())
	}
}

func TestStaticExposesPerEntryMetadataAndTimelimit(t *testing.T) {
	path := writeStaticPlaylist(t, `
entries:
  - path: /music/a.mp3
    metadata: Artist - Title
    timelimit_seconds: 90
  - path: /music/b.mp3
`)
	s, err := NewStatic(testLogger(), path)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Next(); err != nil {
		t.Fatal(err)
	}
	if s.MetadataOverride() != "Artist - Title" {
		t.Fatalf("want metadata override, got %q", s.MetadataOverride())
	}
	if s.TimelimitSeconds() != 90 {
		t.Fatalf("want timelimit 90, got %d", s.TimelimitSeconds())
	}

	if _, err := s.Next(); err != nil {
		t.Fatal(err)
	}
	if s.MetadataOverride() != "" {
		t.Fatalf("want no metadata override for second entry, got %q", s.MetadataOverride())
	}
	if s.TimelimitSeconds() != 0 {
		t.Fatalf("want timelimit 0 for second entry, got %d", s.TimelimitSeconds())
	}
}

func TestNewStaticRejectsEmptyEntryList(t *testing.T) {
	path := writeStaticPlaylist(t, "entries: []\n")
	if _, err := NewStatic(testLogger(), path); err == nil {
		t.Fatal("expected error for empty entry list")
	}
}

func TestNewStaticRejectsEntryWithoutPath(t *testing.T) {
	path := writeStaticPlaylist(t, `
entries:
  - metadata: no path here
`)
	if _, err := NewStatic(testLogger(), path); err == nil {
		t.Fatal("expected error for entry missing a path")
	}
}

func TestStaticReloadPicksUpChangedFile(t *testing.T) {
	path := writeStaticPlaylist(t, `
entries:
  - path: /music/a.mp3
`)
	s, err := NewStatic(testLogger(), path)
	if err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("entries:\n  - path: /music/reloaded.mp3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := s.Reload(); err != nil {
		t.Fatal(err)
	}

	got, err := s.Next()
	if err != nil {
		t.Fatal(err)
	}
	if got != "/music/reloaded.mp3" {
		t.Fatalf("want reloaded entry, got %q", got)
	}
}
