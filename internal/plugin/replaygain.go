/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package plugin

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/friendsincode/grimnir-ices/internal/pcm"
)

// ReplayGain scales samples by the current track's ReplayGain track gain,
// clamped by preamp and track peak the same way as a classic ReplayGain
// player implementation.
type ReplayGain struct {
	log zerolog.Logger

	// Preamp is an extra linear multiplier applied on top of the gain
	// scale, 1.0 meaning no change.
	Preamp float64

	gain  float64
	peak  float64
	scale float64
}

// NewReplayGain builds a ReplayGain plugin. preamp of 0 is treated as 1.0
// (no extra gain).
func NewReplayGain(log zerolog.Logger, preamp float64) *ReplayGain {
	if preamp == 0 {
		preamp = 1.0
	}
	return &ReplayGain{log: log, Preamp: preamp, scale: 1.0}
}

func (r *ReplayGain) Name() string { return "replaygain" }

func (r *ReplayGain) Init() error {
	r.gain = 0
	r.peak = 0
	r.scale = 1.0
	r.log.Debug().Msg("replaygain plugin initialized")
	return nil
}

func (r *ReplayGain) NewTrack(info TrackInfo) {
	r.gain = info.GainDB
	r.peak = info.Peak
	r.scale = r.computeScale()
	r.log.Debug().Float64("gain_db", r.gain).Float64("peak", r.peak).Float64("scale", r.scale).Msg("track gain set")
}

// computeScale implements scale = min(10^(gain/20) * preamp, 15.0),
// additionally clamped so that scale*peak never exceeds 1.0 when a peak
// is known.
func (r *ReplayGain) computeScale() float64 {
	scale := math.Pow(10.0, r.gain/20.0) * r.Preamp
	if scale > 15.0 {
		scale = 15.0
	}
	if r.peak != 0 && scale*r.peak > 1.0 {
		scale = 1.0 / r.peak
	}
	return scale
}

func (r *ReplayGain) Process(buf *pcm.Buffer) {
	if r.scale == 1.0 {
		return
	}
	applyGain(r.scale, buf.Left)
	applyGain(r.scale, buf.Right)
}

func applyGain(scale float64, samples []int16) {
	for i, s := range samples {
		samples[i] = pcm.Clamp(int32(math.Round(float64(s) * scale)))
	}
}

func (r *ReplayGain) Shutdown() {}
