/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package cuefile writes the "now playing" status file external tools
// can tail: one line each for path, file size, bitrate, elapsed time,
// percent played, playlist line number, artist, and title.
package cuefile

import (
	"fmt"
	"os"
	"path/filepath"
)

// Status is the snapshot of a track's playback position written to the
// cue file on every update.
type Status struct {
	Path        string
	FileSize    int64
	BitrateKbps int
	BytesRead   int64
	Lineno      int
	Artist      string
	Title       string
}

// Writer rewrites a single cue file, always by atomic replace (write to
// a temp file in the same directory, then rename over the target) so a
// reader never observes a half-written file.
type Writer struct {
	path string
}

func New(path string) *Writer {
	return &Writer{path: path}
}

// Update writes the current status, replacing the cue file's contents
// atomically.
func (w *Writer) Update(s Status) error {
	elapsed := fileTime(s.BitrateKbps, s.BytesRead)
	pct := percent(s.BytesRead, s.FileSize)

	content := fmt.Sprintf("%s\n%d\n%d\n%s\n%f\n%d\n%s\n%s\n",
		s.Path, s.FileSize, s.BitrateKbps, elapsed, pct, s.Lineno, s.Artist, s.Title)

	dir := filepath.Dir(w.path)
	tmp, err := os.CreateTemp(dir, ".cuefile-*")
	if err != nil {
		return fmt.Errorf("cuefile: create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("cuefile: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("cuefile: close temp: %w", err)
	}
	if err := os.Rename(tmpName, w.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("cuefile: rename: %w", err)
	}
	return nil
}

// Remove deletes the cue file, ignoring a not-exist error.
func (w *Writer) Remove() error {
	if err := os.Remove(w.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// fileTime renders bytesRead at bitrateKbps as elapsed time in the
// "days:hours:minutes:seconds" form (e.g. "0:01:02:03").
func fileTime(bitrateKbps int, bytesRead int64) string {
	if bitrateKbps <= 0 {
		return "0:00:00:00"
	}
	secs := bytesRead / int64(bitrateKbps*128)
	return fmt.Sprintf("%d:%02d:%02d:%02d", secs/86400, secs/3600%24, secs/60%60, secs%60)
}

func percent(bytesRead, fileSize int64) float64 {
	if fileSize <= 0 {
		return 0
	}
	return float64(bytesRead) / float64(fileSize) * 100.0
}
