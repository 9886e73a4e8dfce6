/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package inputstream implements the input demultiplexer: opening a
// track path, probing its container format in a fixed order, and
// exposing a uniform compressed/PCM read interface plus the metadata
// and capability set the probe discovered.
package inputstream

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/friendsincode/grimnir-ices/internal/id3"
	"github.com/friendsincode/grimnir-ices/internal/mp3frame"
)

// Decoder capability: whether this container can be passed through
// compressed, must be decoded to PCM, or supports both.
type Decoder int

const (
	DecoderCompressed Decoder = iota
	DecoderPCM
	DecoderBoth
)

// MetadataUpdate is a single emission of a track's display metadata.
type MetadataUpdate struct {
	Artist string
	Title  string
	GainDB float64
}

// probeResult is what a format probe reports.
type probeResult int

const (
	probeNotThisFormat probeResult = iota
	probeOK
	probeFatal
)

// ErrNoFormatMatched is returned when no probe in the fixed order
// recognizes the file.
var ErrNoFormatMatched = errors.New("inputstream: no format probe matched")

// InputStream is an opened, probed track ready for reading.
type InputStream struct {
	log zerolog.Logger

	path     string
	file     *os.File
	reader   *bufio.Reader
	seekable bool
	fileSize int64 // 0 = unknown/unbounded (stdin)

	Capability   Decoder
	SampleRateHz int
	Channels     int
	BitrateKbps  int // 0 if VBR or unknown

	Metadata MetadataUpdate

	// mp3State is populated only when the MP3 probe matched.
	mp3Locked mp3frame.Header
	mp3VBR    bool

	totalConsumed int64 // logical bytes delivered out of Read so far, probe + reads
}

// Read delegates to the underlying buffered reader and tracks the
// logical stream position (Peek-ahead lookahead does not count; only
// bytes actually delivered to a caller do). Probe code and
// ReadCompressed both go through this method so file_size-relative
// cutoffs (ID3v1 trimming) stay correct no matter how much a probe
// consumed up front.
func (is *InputStream) Read(p []byte) (int, error) {
	n, err := is.reader.Read(p)
	is.totalConsumed += int64(n)
	return n, err
}

// prologueSize bounds how much of the file start a probe may inspect
// via Peek (no logical consumption: ReadCompressed still delivers these
// same bytes later, from absolute offset 0). 256 KiB comfortably covers
// every ID3v2 tag and frame-sync search distance seen in practice, in
// exchange for a bounded, simpler single-buffer probe instead of an
// arbitrary-length streaming scan.
const prologueSize = 256 * 1024

// Open performs the fixed-order container probe (FLAC, MP4, MP3,
// Vorbis) on path, returning a ready-to-read InputStream. path of "-"
// reads from stdin (no size, no seek).
func Open(log zerolog.Logger, path string) (*InputStream, error) {
	is := &InputStream{log: log.With().Str("path", path).Logger(), path: path}

	if path == "-" {
		is.reader = bufio.NewReaderSize(os.Stdin, prologueSize*2)
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("inputstream: open %s: %w", path, err)
		}
		is.file = f
		if info, err := f.Stat(); err == nil {
			is.seekable = true
			is.fileSize = info.Size()
		}
		is.reader = bufio.NewReaderSize(f, prologueSize*2)
	}

	prologue, _ := is.reader.Peek(prologueSize)

	probes := []func([]byte) (probeResult, error){
		is.probeFLAC,
		is.probeMP4,
		is.probeMP3,
		is.probeVorbis,
	}
	for _, probe := range probes {
		res, err := probe(prologue)
		switch res {
		case probeFatal:
			is.Close()
			return nil, fmt.Errorf("inputstream: %s: %w", path, err)
		case probeOK:
			return is, nil
		}
	}

	is.Close()
	return nil, fmt.Errorf("%w: %s", ErrNoFormatMatched, path)
}

// ReadCompressed returns up to len(buf) raw bytes from the underlying
// file, never returning bytes beyond fileSize once it is known (this is
// how a trimmed ID3v1 trailer, or any other byte range excluded by a
// probe, stays hidden from downstream).
func (is *InputStream) ReadCompressed(buf []byte) (int, error) {
	if is.fileSize > 0 {
		remaining := is.fileSize - is.totalConsumed
		if remaining <= 0 {
			return 0, io.EOF
		}
		if int64(len(buf)) > remaining {
			buf = buf[:remaining]
		}
	}
	return is.Read(buf)
}

// Close releases the underlying file handle, if any.
func (is *InputStream) Close() error {
	if is.file != nil {
		return is.file.Close()
	}
	return nil
}

// HasReadCompressed reports whether this container supports pass-through
// compressed delivery (false for PCM-only containers like Vorbis/FLAC/
// MP4 in this implementation, matching spec.md's orchestrator step 7
// requirement that those force reencode mode on every stream).
func (is *InputStream) HasReadCompressed() bool {
	return is.Capability == DecoderCompressed || is.Capability == DecoderBoth
}

func (is *InputStream) FileSize() int64 { return is.fileSize }
