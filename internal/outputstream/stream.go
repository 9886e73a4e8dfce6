/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package outputstream implements the per-destination connection state
// machine: Idle -> Connecting -> Connected -> Sending <-> Syncing, with
// reconnect backoff on error.
package outputstream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/grimnir-ices/internal/eventbus"
	"github.com/friendsincode/grimnir-ices/internal/events"
	"github.com/friendsincode/grimnir-ices/internal/metacache"
	"github.com/friendsincode/grimnir-ices/internal/telemetry"
)

// Protocol selects the wire protocol used to talk to the destination
// server.
type Protocol int

const (
	ProtocolHTTP Protocol = iota
	ProtocolXAudiocast
	ProtocolICY
)

// State is one of the connection state machine's states.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateSending
	StateSyncing
	StateErrored
	StateBackoff
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateSending:
		return "sending"
	case StateSyncing:
		return "syncing"
	case StateErrored:
		return "errored"
	case StateBackoff:
		return "backoff"
	default:
		return "unknown"
	}
}

// ErrTooManyErrors is returned once a stream accumulates more than 10
// send/connect errors on the current track; the orchestrator treats this
// as fatal for the process.
var ErrTooManyErrors = errors.New("outputstream: too many consecutive errors")

// maxErrsBeforeFatal mirrors spec.md's "errs > 10" fatal threshold.
const maxErrsBeforeFatal = 10

// reconnectDelay is the fixed 1s backoff applied after a connect
// failure.
const reconnectDelay = time.Second

// metadataDelay is the fixed delay after a successful connect before the
// pending metadata update is sent, giving the server time to register
// the source.
const metadataDelay = 500 * time.Millisecond

// Transport is the output transport contract the core requires of a
// wire protocol implementation (Icecast HTTP source, XAUDIOCAST, ICY).
type Transport interface {
	Open(ctx context.Context) error
	Close() error
	SetMetadata(ctx context.Context, songString string) error
	// Send paces the write to the advertised bitrate; Sync flushes/syncs
	// as the protocol requires before the next send.
	Send(ctx context.Context, buf []byte) error
	Sync(ctx context.Context) error
	IsConnected() bool
}

// Config is a single destination's static configuration.
type Config struct {
	Host, Mount string
	Port        int
	Password    string
	Protocol    Protocol

	BitrateKbps   int
	OutSampleRate int // <=0 = match source
	OutChannels   int // <=0 = match source
	Reencode      bool

	Name, Genre, Description, URL string
	Public                        bool
	DumpFile                      string
}

// Stream owns one destination's connection lifecycle.
type Stream struct {
	log zerolog.Logger

	Config    Config
	transport Transport

	state       State
	errs        int
	connectAt   time.Time
	pendingMeta string
	metaOnce    chan struct{}
	metaCache   *metacache.Cache
	events      *eventbus.Bus
}

// New builds a stream bound to the given transport implementation.
func New(log zerolog.Logger, cfg Config, transport Transport) *Stream {
	return &Stream{log: log.With().Str("mount", cfg.Mount).Logger(), Config: cfg, transport: transport, state: StateIdle}
}

// SetMetaCache attaches an optional metadata de-dupe cache; nil disables
// de-dupe (every song string is always sent).
func (s *Stream) SetMetaCache(c *metacache.Cache) { s.metaCache = c }

// SetEventBus attaches the optional lifecycle event publisher.
func (s *Stream) SetEventBus(bus *eventbus.Bus) { s.events = bus }

func (s *Stream) State() State { return s.state }
func (s *Stream) Errs() int    { return s.errs }

// SetPendingMetadata stages a metadata string to be pushed 500ms after
// the next successful connect. If a metadata cache is attached and
// songString matches the last one actually sent to this mount, the
// update is skipped entirely.
func (s *Stream) SetPendingMetadata(songString string) {
	if s.metaCache != nil && !s.metaCache.ShouldSend(context.Background(), s.Config.Mount, songString) {
		return
	}
	s.pendingMeta = songString
}

// Connect attempts the mount if the backoff window has elapsed. Returns
// nil if already connected or if a delayed retry was simply skipped this
// call (the caller should try again on the next buffer iteration).
func (s *Stream) Connect(ctx context.Context) error {
	if s.transport.IsConnected() {
		s.state = StateConnected
		return nil
	}
	if time.Now().Before(s.connectAt) {
		return nil
	}

	s.state = StateConnecting
	if err := s.transport.Open(ctx); err != nil {
		s.errs++
		s.connectAt = time.Now().Add(reconnectDelay)
		s.state = StateErrored
		return fmt.Errorf("outputstream: connect %s: %w", s.Config.Mount, err)
	}

	s.state = StateConnected
	telemetry.ReconnectsTotal.WithLabelValues(s.Config.Mount).Inc()
	if s.events != nil {
		s.events.Publish(events.EventStreamReconnected, events.Payload{"mount": s.Config.Mount})
	}
	s.scheduleInitialMetadata(ctx)
	return nil
}

// scheduleInitialMetadata runs the post-connect metadata push on a
// short-lived worker goroutine so the audio path is never blocked by the
// fixed delay.
func (s *Stream) scheduleInitialMetadata(ctx context.Context) {
	meta := s.pendingMeta
	if meta == "" {
		return
	}
	go func() {
		select {
		case <-time.After(metadataDelay):
		case <-ctx.Done():
			return
		}
		if err := s.transport.SetMetadata(ctx, meta); err != nil {
			s.log.Warn().Err(err).Msg("deferred metadata update failed")
			return
		}
		if s.metaCache != nil {
			s.metaCache.Record(ctx, s.Config.Mount, meta)
		}
	}()
}

// Send attempts a connect if needed, then sends buf through the paced
// transport. On failure the connection is closed and the error count
// incremented; ErrTooManyErrors is returned once the per-track threshold
// is exceeded (the caller should treat this as fatal).
func (s *Stream) Send(ctx context.Context, buf []byte) error {
	if !s.transport.IsConnected() {
		if err := s.Connect(ctx); err != nil {
			// Connect has already counted this failure; countErr counts it
			// again, so undo one increment to count it once.
			s.errs--
			return s.countErr(err)
		}
		if !s.transport.IsConnected() {
			// connect was skipped this call (still in backoff window)
			return nil
		}
	}

	s.state = StateSyncing
	if err := s.transport.Sync(ctx); err != nil {
		return s.failSend(err)
	}

	s.state = StateSending
	if err := s.transport.Send(ctx, buf); err != nil {
		return s.failSend(err)
	}

	s.errs = 0
	s.state = StateConnected
	telemetry.BytesSentTotal.WithLabelValues(s.Config.Mount).Add(float64(len(buf)))
	return nil
}

func (s *Stream) failSend(err error) error {
	s.transport.Close()
	s.state = StateErrored
	return s.countErr(fmt.Errorf("outputstream: send %s: %w", s.Config.Mount, err))
}

func (s *Stream) countErr(err error) error {
	s.errs++
	if s.errs > maxErrsBeforeFatal {
		if s.events != nil {
			s.events.Publish(events.EventStreamFatal, events.Payload{"mount": s.Config.Mount, "errs": s.errs})
		}
		return fmt.Errorf("%w: %s: %v", ErrTooManyErrors, s.Config.Mount, err)
	}
	s.state = StateBackoff
	return err
}

// ResetErrCount clears the error counter, called per new track.
func (s *Stream) ResetErrCount() { s.errs = 0 }

// NeedsReencode reports whether, given the current track's properties,
// this stream must re-encode rather than pass compressed bytes through.
func (s *Stream) NeedsReencode(sourceBitrate, sourceSampleRate, sourceChannels int, gainDB float64, hasCompressedPath bool) bool {
	if !s.Config.Reencode {
		return false
	}
	if !hasCompressedPath {
		return true
	}
	if s.Config.BitrateKbps > 0 && s.Config.BitrateKbps != sourceBitrate {
		return true
	}
	if s.Config.OutSampleRate > 0 && s.Config.OutSampleRate != sourceSampleRate {
		return true
	}
	if s.Config.OutChannels > 0 && s.Config.OutChannels != sourceChannels {
		return true
	}
	if gainDB != 0 {
		return true
	}
	return false
}
