/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package cuefile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestUpdateWritesEightLineFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ices.cue")
	w := New(path)

	err := w.Update(Status{
		Path:        "/music/track.mp3",
		FileSize:    1000,
		BitrateKbps: 128,
		BytesRead:   500,
		Lineno:      42,
		Artist:      "The Artist",
		Title:       "A Song",
	})
	if err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 8 {
		t.Fatalf("want 8 lines got %d: %q", len(lines), lines)
	}
	if lines[0] != "/music/track.mp3" {
		t.Fatalf("line 0 want path got %q", lines[0])
	}
	if lines[6] != "The Artist" || lines[7] != "A Song" {
		t.Fatalf("want artist/title in lines 6/7, got %q %q", lines[6], lines[7])
	}
}

func TestUpdateReplacesExistingFileAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ices.cue")
	w := New(path)
	if err := w.Update(Status{Path: "a", Lineno: 1}); err != nil {
		t.Fatal(err)
	}
	if err := w.Update(Status{Path: "b", Lineno: 2}); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(data), "b\n") {
		t.Fatalf("expected second update's content, got %q", data)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected no leftover temp files, found %d entries", len(entries))
	}
}

func TestRemoveIsNoopWhenFileMissing(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "does-not-exist.cue"))
	if err := w.Remove(); err != nil {
		t.Fatalf("expected no error removing missing file, got %v", err)
	}
}
