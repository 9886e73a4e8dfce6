/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playlist

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("script backend requires a POSIX shell")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "next.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestScriptParsesThreeLineOutput(t *testing.T) {
	path := writeScript(t, "echo /music/song.mp3\necho Artist - Title\necho 120\n")
	s, err := NewScript(testLogger(), path)
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.Next()
	if err != nil {
		t.Fatal(err)
	}
	if got != "/music/song.mp3" {
		t.Fatalf("want /music/song.mp3 got %q", got)
	}
	if s.MetadataOverride() != "Artist - Title" {
		t.Fatalf("want metadata override got %q", s.MetadataOverride())
	}
	if s.TimelimitSeconds() != 120 {
		t.Fatalf("want timelimit 120 got %d", s.TimelimitSeconds())
	}
}

func TestScriptRejectsNonPathOutput(t *testing.T) {
	path := writeScript(t, "echo not-a-path\n")
	s, err := NewScript(testLogger(), path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Next(); err == nil {
		t.Fatal("expected error for non-path output")
	}
}

func TestScriptToleratesMissingMetadataAndTimelimit(t *testing.T) {
	path := writeScript(t, "echo /music/song.mp3\n")
	s, err := NewScript(testLogger(), path)
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.Next()
	if err != nil {
		t.Fatal(err)
	}
	if got != "/music/song.mp3" {
		t.Fatalf("want /music/song.mp3 got %q", got)
	}
	if s.MetadataOverride() != "" {
		t.Fatalf("want empty metadata override got %q", s.MetadataOverride())
	}
	if s.TimelimitSeconds() != 0 {
		t.Fatalf("want timelimit 0 got %d", s.TimelimitSeconds())
	}
}

func TestNewScriptRejectsEmptyCommand(t *testing.T) {
	if _, err := NewScript(testLogger(), ""); err == nil {
		t.Fatal("expected error for empty script path")
	}
}
