/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playlist

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Builtin is the flat-file playlist backend: a text file with one path
// per line. It reloads from disk whenever the file's mtime advances,
// rewinding and resetting the line counter to 0 at end-of-file so the
// list repeats forever. An optional one-time shuffle copies the list
// into box-local random order at open time.
type Builtin struct {
	log zerolog.Logger

	path      string
	shuffle   bool
	randomSrc *rand.Rand

	mu      sync.Mutex
	file    *os.File
	reader  *bufio.Reader
	modTime int64
	lineno  int
	lines   []string // shuffled in-memory copy, used only when shuffle is set
}

// NewBuiltin opens path and, if shuffle is set, reads the whole file
// into memory once and serves it back in randomized order.
func NewBuiltin(log zerolog.Logger, path string, shuffle bool) (*Builtin, error) {
	b := &Builtin{
		log:       log,
		path:      path,
		shuffle:   shuffle,
		randomSrc: rand.New(rand.NewSource(1)),
	}
	if err := b.openLocked(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Builtin) openLocked() error {
	if b.path == "" {
		return fmt.Errorf("playlist: playlist file is not set")
	}
	f, err := os.Open(b.path)
	if err != nil {
		return fmt.Errorf("playlist: open %s: %w", b.path, err)
	}
	if b.file != nil {
		b.file.Close()
	}
	b.file = f
	b.reader = bufio.NewReader(f)
	b.lineno = 0

	if info, err := f.Stat(); err == nil {
		b.modTime = info.ModTime().UnixNano()
	}

	if b.shuffle {
		lines, err := readAllLines(f)
		if err != nil {
			return fmt.Errorf("playlist: read for shuffle: %w", err)
		}
		b.randomSrc.Shuffle(len(lines), func(i, j int) { lines[i], lines[j] = lines[j], lines[i] })
		b.lines = lines
	}
	return nil
}

func readAllLines(f *os.File) ([]string, error) {
	if _, err := f.Seek(0, 0); err != nil {
		return nil, err
	}
	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := cleanLine(sc.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, sc.Err()
}

func cleanLine(s string) string {
	return strings.TrimRight(s, "\r\n")
}

// Next returns the next playlist entry, reloading the file first if it
// changed on disk, and rewinding to line 0 at end-of-file.
func (b *Builtin) Next() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.shuffle {
		return b.nextShuffledLocked()
	}

	if info, err := os.Stat(b.path); err == nil && info.ModTime().UnixNano() > b.modTime {
		b.log.Debug().Msg("playlist file changed on disk, reloading")
		if err := b.openLocked(); err != nil {
			return "", err
		}
	}

	for attempts := 0; attempts < 2; attempts++ {
		line, err := b.reader.ReadString('\n')
		if line == "" && err != nil {
			b.log.Debug().Msg("reached end of playlist, rewinding")
			if _, serr := b.file.Seek(0, 0); serr != nil {
				return "", fmt.Errorf("playlist: rewind: %w", serr)
			}
			b.reader = bufio.NewReader(b.file)
			b.lineno = 0
			continue
		}
		clean := cleanLine(line)
		if clean == "" {
			continue
		}
		b.lineno++
		b.log.Debug().Str("path", clean).Msg("builtin playlist serving entry")
		return clean, nil
	}
	return "", fmt.Errorf("playlist: unreadable or empty playlist %s", b.path)
}

func (b *Builtin) nextShuffledLocked() (string, error) {
	if len(b.lines) == 0 {
		return "", fmt.Errorf("playlist: empty playlist %s", b.path)
	}
	if b.lineno >= len(b.lines) {
		b.lineno = 0
	}
	line := b.lines[b.lineno]
	b.lineno++
	return line, nil
}

func (b *Builtin) Lineno() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lineno
}

func (b *Builtin) MetadataOverride() string { return "" }
func (b *Builtin) TimelimitSeconds() int    { return 0 }

func (b *Builtin) Reload() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.openLocked()
}

func (b *Builtin) Shutdown() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.file != nil {
		return b.file.Close()
	}
	return nil
}
