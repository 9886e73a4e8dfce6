/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package signals wires OS signals and the admin HTTP surface's "skip"
// endpoint to the three volatile flags the orchestrator polls at safe
// points: shut down, reopen the log, and skip the current track.
package signals

import (
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/rs/zerolog"
)

// Flags holds the sampled-at-safe-points state the orchestrator checks.
// All fields are accessed via the atomic package so a signal handler
// goroutine and the audio-path goroutine never race.
type Flags struct {
	shutdown  atomic.Bool
	reopenLog atomic.Bool
	skip      atomic.Bool
}

// ShouldShutdown reports whether SIGINT/SIGTERM was received.
func (f *Flags) ShouldShutdown() bool { return f.shutdown.Load() }

// ConsumeReopenLog reports and clears the reopen-log flag. The orchestrator
// checks it once per track, at the top of its track loop; log writes do
// not check it.
func (f *Flags) ConsumeReopenLog() bool { return f.reopenLog.Swap(false) }

// ConsumeSkip reports and clears the skip-current-track flag; call this
// at the top of each buffer iteration.
func (f *Flags) ConsumeSkip() bool { return f.skip.Swap(false) }

// RequestSkip sets the skip flag, e.g. from an admin HTTP handler.
func (f *Flags) RequestSkip() { f.skip.Store(true) }

// RequestReopenLog sets the reopen-log flag, as SIGHUP does. Exposed so
// callers other than Watch's signal goroutine (e.g. tests) can drive the
// same safe-point path.
func (f *Flags) RequestReopenLog() { f.reopenLog.Store(true) }

// Watch installs OS signal handlers (SIGINT/SIGTERM -> shutdown, SIGHUP
// -> reopen log) and returns the Flags they populate. The returned
// stop function restores the default signal behavior.
func Watch(log zerolog.Logger) (*Flags, func()) {
	f := &Flags{}

	sigCh := make(chan os.Signal, 4)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig, ok := <-sigCh:
				if !ok {
					return
				}
				switch sig {
				case syscall.SIGINT, syscall.SIGTERM:
					log.Info().Str("signal", sig.String()).Msg("shutdown requested")
					f.shutdown.Store(true)
				case syscall.SIGHUP:
					log.Info().Msg("log reopen requested")
					f.reopenLog.Store(true)
				}
			case <-done:
				return
			}
		}
	}()

	stop := func() {
		signal.Stop(sigCh)
		close(done)
	}
	return f, stop
}
