/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playlist

import (
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// staticEntry is one playlist.yaml entry: a path plus the two optional
// per-track overrides Script also supports, so a statically declared
// playlist can express everything a script-driven one can.
type staticEntry struct {
	Path             string `yaml:"path"`
	Metadata         string `yaml:"metadata,omitempty"`
	TimelimitSeconds int    `yaml:"timelimit_seconds,omitempty"`
}

type staticFile struct {
	Entries []staticEntry `yaml:"entries"`
}

// Static is the YAML playlist backend: an ordered list of tracks read
// from a playlist.yaml file, each with an optional metadata override
// and per-track time limit. The list loops forever once exhausted, and
// Reload (SIGHUP) re-reads the file from disk.
type Static struct {
	log  zerolog.Logger
	path string

	mu      sync.Mutex
	entries []staticEntry
	idx     int
	lineno  int
}

// NewStatic parses path once at startup.
func NewStatic(log zerolog.Logger, path string) (*Static, error) {
	s := &Static{log: log, path: path}
	if err := s.loadLocked(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Static) loadLocked() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("playlist: reading %s: %w", s.path, err)
	}

	var doc staticFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("playlist: parsing %s: %w", s.path, err)
	}
	if len(doc.Entries) == 0 {
		return fmt.Errorf("playlist: %s declares no entries", s.path)
	}
	for i, e := range doc.Entries {
		if e.Path == "" {
			return fmt.Errorf("playlist: %s entry %d has no path", s.path, i)
		}
	}

	s.entries = doc.Entries
	s.idx = 0
	return nil
}

// Next returns the next entry's path, wrapping back to the first entry
// once the list is exhausted.
func (s *Static) Next() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.idx >= len(s.entries) {
		s.idx = 0
		s.lineno = 0
	}
	e := s.entries[s.idx]
	s.idx++
	s.lineno++

	s.log.Debug().Str("path", e.Path).Msg("static playlist serving entry")
	return e.Path, nil
}

func (s *Static) Lineno() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lineno
}

// MetadataOverride returns the metadata override declared on the entry
// Next last returned, or "" if it declared none.
func (s *Static) MetadataOverride() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current().Metadata
}

// TimelimitSeconds returns the time limit declared on the entry Next
// last returned, or 0 for no limit.
func (s *Static) TimelimitSeconds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current().TimelimitSeconds
}

// current returns the entry most recently served by Next, accounting
// for the wraparound Next performs before advancing idx.
func (s *Static) current() staticEntry {
	if len(s.entries) == 0 || s.idx == 0 {
		return staticEntry{}
	}
	return s.entries[s.idx-1]
}

func (s *Static) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Static) Shutdown() error { return nil }
