/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package orchestrator runs the single-threaded cooperative track
// pipeline: playlist -> input demultiplexer -> optional decode ->
// plugin chain (incl. crossfade) -> optional per-stream re-encode ->
// send, for every output stream, until the playlist is exhausted, a
// stream accumulates too many errors, or too many consecutive tracks
// fail to open.
package orchestrator

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/grimnir-ices/internal/crossfade"
	"github.com/friendsincode/grimnir-ices/internal/cuefile"
	"github.com/friendsincode/grimnir-ices/internal/eventbus"
	"github.com/friendsincode/grimnir-ices/internal/events"
	"github.com/friendsincode/grimnir-ices/internal/inputstream"
	"github.com/friendsincode/grimnir-ices/internal/outputstream"
	"github.com/friendsincode/grimnir-ices/internal/pcm"
	"github.com/friendsincode/grimnir-ices/internal/playhistory"
	"github.com/friendsincode/grimnir-ices/internal/playlist"
	"github.com/friendsincode/grimnir-ices/internal/plugin"
	"github.com/friendsincode/grimnir-ices/internal/reencode"
	"github.com/friendsincode/grimnir-ices/internal/signals"
	"github.com/friendsincode/grimnir-ices/internal/telemetry"
)

// errorDelay is the global pause taken after a buffer iteration where
// every destination errored, to avoid a tight reconnect loop.
const errorDelay = 999 * time.Millisecond

// maxConsecutiveOpenErrors guards against a misbehaving playlist that
// only ever emits bad paths.
const maxConsecutiveOpenErrors = 10

const bufferFrames = 4096

// Destination pairs an output stream with the encoder it uses when a
// track must be re-encoded for it. Encoder is nil for a destination
// that never re-encodes.
type Destination struct {
	Stream  *outputstream.Stream
	Encoder *reencode.Encoder
}

// LogReopener closes and reopens the process's log file, for SIGHUP-driven
// log cycling under an external log rotator. Satisfied by *logging.FileWriter.
type LogReopener interface {
	Reopen() error
}

// Orchestrator holds everything the track loop needs across tracks:
// the playlist, every destination, the shared plugin chain and
// crossfade ring (process-wide, reused across tracks), the shared PCM
// decoder subprocess, the cue file writer, and the signal flags.
type Orchestrator struct {
	log zerolog.Logger

	source       playlist.Source
	destinations []*Destination
	chain        *plugin.Chain
	ring         *crossfade.Ring
	decoder      *reencode.Decoder
	cue          *cuefile.Writer
	flags        *signals.Flags
	events       *eventbus.Bus
	history      playhistory.Recorder
	logReopener  LogReopener

	statusMu     sync.Mutex
	currentPath  string
	currentSong  string
	currentLine  int
	trackStarted time.Time
}

// StreamStatus is one destination's snapshot for the admin status
// surface.
type StreamStatus struct {
	Mount string
	State string
	Errs  int
}

// Status is a point-in-time snapshot of the orchestrator's progress,
// safe to read concurrently from the admin HTTP surface while the
// track loop runs.
type Status struct {
	Path          string
	Song          string
	Lineno        int
	TrackStarted  time.Time
	Streams       []StreamStatus
}

// Status reports the current track and every destination's connection
// state. Safe for concurrent use while Run is executing.
func (o *Orchestrator) Status() Status {
	o.statusMu.Lock()
	s := Status{Path: o.currentPath, Song: o.currentSong, Lineno: o.currentLine, TrackStarted: o.trackStarted}
	o.statusMu.Unlock()

	s.Streams = make([]StreamStatus, 0, len(o.destinations))
	for _, d := range o.destinations {
		s.Streams = append(s.Streams, StreamStatus{
			Mount: d.Stream.Config.Mount,
			State: d.Stream.State().String(),
			Errs:  d.Stream.Errs(),
		})
	}
	return s
}

func (o *Orchestrator) setCurrentTrack(path, song string, lineno int) {
	o.statusMu.Lock()
	o.currentPath = path
	o.currentSong = song
	o.currentLine = lineno
	o.trackStarted = time.Now()
	o.statusMu.Unlock()
}

func New(log zerolog.Logger, source playlist.Source, destinations []*Destination, chain *plugin.Chain, ring *crossfade.Ring, decoder *reencode.Decoder, cue *cuefile.Writer, flags *signals.Flags) *Orchestrator {
	return &Orchestrator{
		log:          log,
		source:       source,
		destinations: destinations,
		chain:        chain,
		ring:         ring,
		decoder:      decoder,
		cue:          cue,
		flags:        flags,
		history:      playhistory.NopRecorder{},
	}
}

// SetEventBus attaches the optional lifecycle event publisher; nil (the
// default) means no events are published.
func (o *Orchestrator) SetEventBus(bus *eventbus.Bus) { o.events = bus }

// SetLogReopener attaches the optional log-file cycler; nil (the
// default) means SIGHUP only reloads the playlist.
func (o *Orchestrator) SetLogReopener(r LogReopener) { o.logReopener = r }

// SetHistory attaches the optional play-history recorder; defaults to
// playhistory.NopRecorder, which discards every entry.
func (o *Orchestrator) SetHistory(r playhistory.Recorder) {
	if r == nil {
		r = playhistory.NopRecorder{}
	}
	o.history = r
}

func (o *Orchestrator) publish(eventType events.EventType, payload events.Payload) {
	if o.events != nil {
		o.events.Publish(eventType, payload)
	}
}

// Run drives the track loop until the playlist is exhausted, a fatal
// per-stream error budget is exceeded, or the process is asked to shut
// down.
func (o *Orchestrator) Run(ctx context.Context) error {
	consecutiveOpenErrors := 0

	for {
		if o.flags.ShouldShutdown() {
			o.log.Info().Msg("shutdown requested, stopping track loop")
			return nil
		}

		if o.flags.ConsumeReopenLog() {
			o.reopenLogAndPlaylist()
		}

		path, err := o.source.Next()
		if err != nil {
			o.log.Warn().Err(err).Msg("playlist exhausted or errored, shutting down")
			return nil
		}
		if path == "" {
			o.log.Info().Msg("playlist returned no further tracks, shutting down")
			return nil
		}

		if consecutiveOpenErrors > maxConsecutiveOpenErrors {
			return fmt.Errorf("orchestrator: exceeded %d consecutive track-open errors", maxConsecutiveOpenErrors)
		}

		lineno := o.source.Lineno()
		if o.cue != nil {
			o.cue.Update(cuefile.Status{Path: path, Lineno: lineno})
		}

		in, err := inputstream.Open(o.log, path)
		if err != nil {
			o.log.Warn().Err(err).Str("path", path).Msg("failed to open track, skipping")
			telemetry.TrackOpenErrorsTotal.Inc()
			consecutiveOpenErrors++
			continue
		}
		consecutiveOpenErrors = 0

		err = o.runTrack(ctx, in, path, lineno)
		in.Close()
		if err != nil {
			if errors.Is(err, outputstream.ErrTooManyErrors) {
				return err
			}
			o.log.Warn().Err(err).Str("path", path).Msg("track aborted")
		}
	}
}

// reopenLogAndPlaylist is SIGHUP's safe point: cycle the log file (if one
// is configured) and reload the playlist, mirroring original_source's
// signals_hup pairing of ices_log_reopen_logfile/ices_playlist_reload.
func (o *Orchestrator) reopenLogAndPlaylist() {
	if o.logReopener != nil {
		if err := o.logReopener.Reopen(); err != nil {
			o.log.Warn().Err(err).Msg("failed to reopen log file")
		} else {
			o.log.Info().Msg("log file reopened")
		}
	}
	if err := o.source.Reload(); err != nil {
		o.log.Warn().Err(err).Msg("failed to reload playlist")
	} else {
		o.log.Info().Msg("playlist reloaded")
	}
}

func songString(artist, title, override string) string {
	if override != "" {
		return override
	}
	if artist != "" && title != "" {
		return fmt.Sprintf("%s - %s", artist, title)
	}
	if title != "" {
		return title
	}
	return ""
}

// runTrack executes steps 6-12 of the track pipeline for one opened
// input stream.
func (o *Orchestrator) runTrack(ctx context.Context, in *inputstream.InputStream, path string, lineno int) error {
	title := in.Metadata.Title
	if title == "" {
		title = filepath.Base(path)
	}
	override := o.source.MetadataOverride()
	song := songString(in.Metadata.Artist, title, override)
	o.setCurrentTrack(path, song, lineno)
	trackStartedAt := time.Now()
	o.publish(events.EventTrackStarted, events.Payload{"path": path, "song": song, "lineno": lineno})

	if o.cue != nil {
		o.cue.Update(cuefile.Status{
			Path: path, FileSize: in.FileSize(), BitrateKbps: in.BitrateKbps,
			Lineno: lineno, Artist: in.Metadata.Artist, Title: title,
		})
	}

	var deadline time.Time
	if secs := o.source.TimelimitSeconds(); secs > 0 {
		deadline = time.Now().Add(time.Duration(secs) * time.Second)
	}

	if !in.HasReadCompressed() {
		for _, d := range o.destinations {
			if !d.Stream.Config.Reencode {
				o.log.Warn().Str("path", path).Msg("source has no compressed pass-through and a destination is not in reencode mode; skipping track")
				return nil
			}
		}
	}

	decodingRequired := o.chain.Len() > 0 || o.ring != nil
	if !decodingRequired {
		for _, d := range o.destinations {
			if d.Stream.NeedsReencode(in.BitrateKbps, in.SampleRateHz, in.Channels, in.Metadata.GainDB, in.HasReadCompressed()) {
				decodingRequired = true
				break
			}
		}
	}

	for _, d := range o.destinations {
		d.Stream.SetPendingMetadata(song)
	}

	reencodingDests := make([]*Destination, 0, len(o.destinations))
	passthroughDests := make([]*Destination, 0, len(o.destinations))
	for _, d := range o.destinations {
		if decodingRequired && d.Stream.NeedsReencode(in.BitrateKbps, in.SampleRateHz, in.Channels, in.Metadata.GainDB, in.HasReadCompressed()) {
			reencodingDests = append(reencodingDests, d)
		} else if in.HasReadCompressed() {
			passthroughDests = append(passthroughDests, d)
		}
	}

	var decodedOut <-chan []byte
	if decodingRequired {
		if err := o.decoder.Start(ctx); err != nil {
			return fmt.Errorf("orchestrator: starting decoder: %w", err)
		}
		decodedOut = pumpStdout(o.decoder)
	}
	pcmLeftover := make([]byte, 0, in.Channels*4096)

	encOutputs := make(map[*Destination]<-chan []byte, len(reencodingDests))
	for _, d := range reencodingDests {
		if err := d.Encoder.Reset(ctx, in.SampleRateHz, in.Channels); err != nil {
			o.log.Warn().Err(err).Str("mount", d.Stream.Config.Mount).Msg("failed to reset encoder, dropping reencode for this track")
			continue
		}
		encOutputs[d] = pumpStdout(d.Encoder)
	}

	o.chain.NewTrack(plugin.TrackInfo{GainDB: in.Metadata.GainDB})
	if o.ring != nil {
		o.ring.NewTrack(crossfade.TrackMeta{SampleRateHz: in.SampleRateHz, BitrateKbps: in.BitrateKbps, FileSizeByte: in.FileSize()})
		telemetry.CrossfadeActivationsTotal.Inc()
	}

	readBuf := make([]byte, 16*1024)
	trackErr := error(nil)
	inputEOF := false
	decoderStopped := false

	frameBytes := 2 * in.Channels
	if frameBytes <= 0 {
		frameBytes = 4
	}

iterations:
	for {
		if o.flags.ConsumeSkip() {
			break
		}

		allErrored := true
		anySent := false

		if !inputEOF {
			var n int
			var rerr error
			if in.HasReadCompressed() {
				n, rerr = in.ReadCompressed(readBuf)
			} else {
				n, rerr = in.Read(readBuf)
			}
			if n > 0 {
				chunk := readBuf[:n]
				for _, d := range passthroughDests {
					if sendErr := d.Stream.Send(ctx, chunk); sendErr != nil {
						if errors.Is(sendErr, outputstream.ErrTooManyErrors) {
							trackErr = sendErr
							break iterations
						}
						o.log.Warn().Err(sendErr).Str("mount", d.Stream.Config.Mount).Msg("pass-through send failed")
					} else {
						allErrored = false
					}
				}
				if len(passthroughDests) > 0 {
					anySent = true
				}
				if decodingRequired {
					if _, werr := o.decoder.Write(chunk); werr != nil {
						o.log.Warn().Err(werr).Msg("decoder write failed")
						inputEOF = true
					}
				}
			}
			if rerr != nil {
				inputEOF = true
				if decodingRequired && !decoderStopped {
					o.decoder.Stop()
					decoderStopped = true
				}
			}
		}

		if decodingRequired {
			pcmLeftover = drainAvailable(decodedOut, pcmLeftover)
			for len(pcmLeftover) >= frameBytes {
				take := bufferFrames * frameBytes
				if take > len(pcmLeftover) {
					take = (len(pcmLeftover) / frameBytes) * frameBytes
				}
				chunk := pcmLeftover[:take]
				pcmLeftover = pcmLeftover[take:]

				left, right := decodeFrames(chunk, in.Channels)
				buf := pcm.Buffer{Left: left, Right: right}
				o.chain.Process(&buf)
				if o.ring != nil {
					o.ring.Process(buf.Left, buf.Right)
				}
				encoded := encodePCM(buf.Left, buf.Right, in.Channels)
				for _, d := range reencodingDests {
					out, ok := encOutputs[d]
					if !ok {
						continue
					}
					if _, werr := d.Encoder.Write(encoded); werr != nil {
						o.log.Warn().Err(werr).Str("mount", d.Stream.Config.Mount).Msg("encoder write failed")
						continue
					}
					drainAndSend(ctx, o.log, d, out)
					allErrored = false
				}
				anySent = true
			}
			if inputEOF {
				select {
				case chunk, ok := <-decodedOut:
					if ok {
						pcmLeftover = append(pcmLeftover, chunk...)
						anySent = true
					} else {
						decodingRequired = false
					}
				default:
					if decoderStopped {
						decodingRequired = false
					}
				}
			}
		}

		if inputEOF && !decodingRequired {
			break
		}
		if !anySent && inputEOF {
			break
		}
		if allErrored && anySent {
			time.Sleep(errorDelay)
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			break
		}
	}

	if o.chain.Len() == 0 {
		for _, d := range reencodingDests {
			out, ok := encOutputs[d]
			if !ok {
				continue
			}
			drainAndSend(ctx, o.log, d, out)
		}
	}

	maxErrs := 0
	for _, d := range o.destinations {
		if d.Stream.Errs() > maxErrs {
			maxErrs = d.Stream.Errs()
		}
		d.Stream.ResetErrCount()
	}

	endedAt := time.Now()
	o.publish(events.EventTrackEnded, events.Payload{"path": path, "song": song, "stream_errs": maxErrs})
	if err := o.history.Record(ctx, playhistory.Entry{
		Path: path, Song: song, StartedAt: trackStartedAt, EndedAt: endedAt, StreamErrs: maxErrs,
	}); err != nil {
		o.log.Warn().Err(err).Msg("failed to record play history entry")
	}

	return trackErr
}

// stdoutSource is the subset both Encoder and Decoder expose: a byte
// stream to drain on a background goroutine.
type stdoutSource interface {
	Stdout() io.Reader
}

// pumpStdout drains a subprocess's stdout continuously on a background
// goroutine so the main loop's write cadence is never blocked on the
// subprocess's internal buffering latency.
func pumpStdout(src stdoutSource) <-chan []byte {
	out := make(chan []byte, 4)
	go func() {
		r := src.Stdout()
		for {
			chunk := make([]byte, 8*1024)
			n, err := r.Read(chunk)
			if n > 0 {
				out <- chunk[:n]
			}
			if err != nil {
				close(out)
				return
			}
		}
	}()
	return out
}

// drainAndSend forwards whatever encoded chunks are immediately
// available on out to the destination's stream, without blocking when
// none are ready yet (they will be picked up on a later iteration).
func drainAndSend(ctx context.Context, log zerolog.Logger, d *Destination, out <-chan []byte) {
	for {
		select {
		case chunk, ok := <-out:
			if !ok {
				return
			}
			if err := d.Stream.Send(ctx, chunk); err != nil {
				log.Warn().Err(err).Str("mount", d.Stream.Config.Mount).Msg("reencoded send failed")
			}
		default:
			return
		}
	}
}

// drainAvailable appends every chunk currently ready on data to leftover
// without blocking, so the caller never waits on the decoder subprocess
// when there happens to be nothing decoded yet.
func drainAvailable(data <-chan []byte, leftover []byte) []byte {
	for {
		select {
		case chunk, ok := <-data:
			if !ok {
				return leftover
			}
			leftover = append(leftover, chunk...)
		default:
			return leftover
		}
	}
}

// decodeFrames parses a whole number of interleaved S16LE frames out of
// buf, expanding mono to stereo. Callers only ever pass buf lengths that
// are exact multiples of the frame size.
func decodeFrames(buf []byte, channels int) (left, right []int16) {
	bytesPerFrame := 2 * channels
	n := len(buf) / bytesPerFrame
	left = make([]int16, n)
	right = make([]int16, n)
	for i := 0; i < n; i++ {
		base := i * bytesPerFrame
		l := int16(binary.LittleEndian.Uint16(buf[base:]))
		left[i] = l
		if channels >= 2 {
			right[i] = int16(binary.LittleEndian.Uint16(buf[base+2:]))
		} else {
			right[i] = l
		}
	}
	return left, right
}

// encodePCM renders interleaved S16LE bytes from parallel channel
// buffers for the re-encode subprocess.
func encodePCM(left, right []int16, channels int) []byte {
	n := len(left)
	buf := make([]byte, 0, n*2*channels)
	tmp := make([]byte, 2)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(tmp, uint16(left[i]))
		buf = append(buf, tmp...)
		if channels >= 2 {
			binary.LittleEndian.PutUint16(tmp, uint16(right[i]))
			buf = append(buf, tmp...)
		}
	}
	return buf
}
