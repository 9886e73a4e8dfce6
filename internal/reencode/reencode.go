/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package reencode wraps GStreamer subprocesses that decode a track's
// compressed bytes to raw PCM and, per output stream, re-encode PCM back
// to MP3 at the stream's configured bitrate/samplerate/channel count.
//
// There is one decoder for the whole process, restarted for every track
// (decoding is stream-independent), and one encoder per stream that has reencode
// enabled; an encoder is only torn down and rebuilt when the upstream
// samplerate actually changes, mirroring how a classic MP3 encoder
// library behaves when asked to re-negotiate its input format mid-run.
package reencode

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/rs/zerolog"
)

// StreamEncodeConfig is the per-stream encode target.
type StreamEncodeConfig struct {
	BitrateKbps    int
	OutSampleRate  int // 0 = keep source rate
	OutChannels    int // 1 = force mono
	InSampleRateHz int
	InChannels     int
}

// Encoder manages one GStreamer subprocess encoding raw PCM (stdin) to
// MP3 (stdout) for a single stream.
type Encoder struct {
	log zerolog.Logger

	cfg    StreamEncodeConfig
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	buffered *bufio.Reader

	mu      sync.Mutex
	started bool
}

// NewEncoder builds (but does not start) an encoder for the given
// config.
func NewEncoder(log zerolog.Logger, cfg StreamEncodeConfig) *Encoder {
	return &Encoder{log: log, cfg: cfg}
}

// Reset tears down the encoder if the input samplerate changed since it
// was last built, then (re)starts it. A no-op if the rate is unchanged
// and the process is already running.
func (e *Encoder) Reset(ctx context.Context, sourceRateHz, sourceChannels int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started && e.cfg.InSampleRateHz == sourceRateHz {
		return nil
	}
	if e.started {
		e.stopLocked()
	}

	e.cfg.InSampleRateHz = sourceRateHz
	e.cfg.InChannels = sourceChannels

	pipeline := e.buildPipeline()
	e.cmd = exec.CommandContext(ctx, "gst-launch-1.0", pipeline...)

	var err error
	e.stdin, err = e.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("reencode: encoder stdin pipe: %w", err)
	}
	e.stdout, err = e.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("reencode: encoder stdout pipe: %w", err)
	}
	if err := e.cmd.Start(); err != nil {
		return fmt.Errorf("reencode: encoder start: %w", err)
	}
	e.buffered = bufio.NewReaderSize(e.stdout, 32*1024)
	e.started = true
	e.log.Debug().Int("in_hz", sourceRateHz).Int("out_hz", e.cfg.OutSampleRate).Msg("encoder (re)started")
	return nil
}

// buildPipeline constructs the gst-launch-1.0 argument list for a raw
// interleaved 16-bit PCM stdin source re-encoded to MP3 at the
// configured bitrate/rate/channel count.
func (e *Encoder) buildPipeline() []string {
	caps := fmt.Sprintf("audio/x-raw,format=S16LE,channels=%d,rate=%d,layout=interleaved", e.cfg.InChannels, e.cfg.InSampleRateHz)

	args := []string{
		"-q",
		"fdsrc", "fd=0", "!",
		"capsfilter", "caps=" + caps, "!",
		"audioconvert", "!",
		"audioresample",
	}
	if e.cfg.OutSampleRate > 0 {
		args = append(args, "!", fmt.Sprintf("audio/x-raw,rate=%d", e.cfg.OutSampleRate))
	}
	if e.cfg.OutChannels == 1 {
		args = append(args, "!", "audio/x-raw,channels=1")
	}
	args = append(args, "!", "lamemp3enc", "target=bitrate", fmt.Sprintf("bitrate=%d", e.cfg.BitrateKbps))
	args = append(args, "!", "fdsink", "fd=1")
	return args
}

// Write feeds raw PCM bytes to the encoder.
func (e *Encoder) Write(p []byte) (int, error) {
	e.mu.Lock()
	stdin := e.stdin
	e.mu.Unlock()
	if stdin == nil {
		return 0, fmt.Errorf("reencode: encoder not started")
	}
	return stdin.Write(p)
}

// Stdout exposes the encoded MP3 byte stream. The same buffered reader
// is returned on every call so bytes already pulled into its internal
// buffer are not dropped between reads.
func (e *Encoder) Stdout() io.Reader {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buffered
}

func (e *Encoder) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
}

func (e *Encoder) stopLocked() {
	if !e.started {
		return
	}
	if e.stdin != nil {
		e.stdin.Close()
	}
	if e.cmd != nil && e.cmd.Process != nil {
		_ = e.cmd.Wait()
	}
	e.started = false
}

// Decoder decodes one track's compressed bytes to raw interleaved
// 16-bit PCM. Unlike Encoder it is never reset per output stream
// (decoding is stream-independent, not track-independent): a fresh
// subprocess is started for every track, since decodebin's container
// state cannot be reused across unrelated files on the same stream.
type Decoder struct {
	log zerolog.Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stdout  io.ReadCloser
	started bool
}

func NewDecoder(log zerolog.Logger) *Decoder {
	return &Decoder{log: log}
}

// Start (re)launches the decoder pipeline, tearing down any subprocess
// left over from a previous track first. Format auto-detection is
// delegated to GStreamer's decodebin element.
func (d *Decoder) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		d.stopLocked()
	}

	args := []string{
		"-q",
		"fdsrc", "fd=0", "!",
		"decodebin", "!",
		"audioconvert", "!",
		"audio/x-raw,format=S16LE,layout=interleaved", "!",
		"fdsink", "fd=1",
	}
	d.cmd = exec.CommandContext(ctx, "gst-launch-1.0", args...)

	var err error
	d.stdin, err = d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("reencode: decoder stdin pipe: %w", err)
	}
	d.stdout, err = d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("reencode: decoder stdout pipe: %w", err)
	}
	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("reencode: decoder start: %w", err)
	}
	d.started = true
	d.log.Debug().Msg("decoder started")
	return nil
}

func (d *Decoder) Write(p []byte) (int, error) { return d.stdin.Write(p) }
func (d *Decoder) Stdout() io.Reader           { return d.stdout }

// Stop closes stdin (letting the pipeline flush and exit) and waits
// for the subprocess. Call this at track end before reading any
// trailing buffered PCM from Stdout().
func (d *Decoder) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
}

func (d *Decoder) stopLocked() {
	if !d.started {
		return
	}
	if d.stdin != nil {
		d.stdin.Close()
	}
	if d.cmd != nil && d.cmd.Process != nil {
		_ = d.cmd.Wait()
	}
	d.started = false
}
