/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playlist

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Script asks an external program for the next track on every call:
// it runs cmd and reads up to three lines from its stdout — the
// filename, an optional metadata override, and an optional per-track
// time limit in seconds. This covers the same use case as embedding a
// Perl or Python interpreter, with no interpreter linked into the
// binary.
type Script struct {
	log zerolog.Logger
	cmd string

	mu        sync.Mutex
	metadata  string
	timelimit int
}

func NewScript(log zerolog.Logger, cmd string) (*Script, error) {
	if cmd == "" {
		return nil, fmt.Errorf("playlist: no playlist script configured")
	}
	return &Script{log: log, cmd: cmd}, nil
}

func (s *Script) Next() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, s.cmd).Output()
	if err != nil {
		return "", fmt.Errorf("playlist: running script %s: %w", s.cmd, err)
	}

	sc := bufio.NewScanner(bytes.NewReader(out))
	filename := ""
	if sc.Scan() {
		filename = cleanLine(sc.Text())
	}
	if filename == "" {
		return "", fmt.Errorf("playlist: script %s returned no filename", s.cmd)
	}
	if !strings.HasPrefix(filename, "/") && !strings.HasPrefix(filename, "./") {
		return "", fmt.Errorf("playlist: script %s did not return a path: %q", s.cmd, filename)
	}

	metadata := ""
	if sc.Scan() {
		metadata = cleanLine(sc.Text())
	}
	timelimit := 0
	if sc.Scan() {
		if v, err := strconv.Atoi(cleanLine(sc.Text())); err == nil {
			timelimit = v
		}
	}

	s.mu.Lock()
	s.metadata = metadata
	s.timelimit = timelimit
	s.mu.Unlock()

	s.log.Debug().Str("path", filename).Str("metadata", metadata).Int("timelimit", timelimit).
		Msg("script playlist handler serving entry")
	return filename, nil
}

func (s *Script) Lineno() int { return 0 }

func (s *Script) MetadataOverride() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metadata
}

func (s *Script) TimelimitSeconds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timelimit
}

func (s *Script) Reload() error { return nil }
func (s *Script) Shutdown() error { return nil }
