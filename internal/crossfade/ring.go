/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package crossfade implements the fixed-length PCM ring that spans the
// boundary between two successive tracks: fading or crossmixing the
// incoming track's head against the outgoing track's tail, and
// resampling the ring's contents when the samplerate changes between
// tracks.
package crossfade

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/friendsincode/grimnir-ices/internal/pcm"
)

// TrackMeta is what Ring needs to know about a track boundary.
type TrackMeta struct {
	SampleRateHz int
	BitrateKbps  int
	FileSizeByte int64
}

// Ring is the crossfade/crossmix ring buffer. One instance exists per
// process; it is resized in place when the samplerate changes between
// tracks.
type Ring struct {
	log zerolog.Logger

	fadeSeconds int
	fadeMinSecs int
	crossmix    bool

	capacity int // FadeSamples
	left     []int16
	right    []int16
	swap     []int16

	fpos int
	flen int

	newTrackRemaining int // NewTrack
	skipNext          bool
	lastRateHz        int
}

// NewRing builds a ring for the given fade length and minimum track
// length (seconds) at the given initial samplerate. crossmix selects
// sum-at-unity-gain blending instead of linear crossfade.
func NewRing(log zerolog.Logger, fadeSeconds, fadeMinSecs int, crossmix bool, initialRateHz int) *Ring {
	r := &Ring{
		log:         log,
		fadeSeconds: fadeSeconds,
		fadeMinSecs: fadeMinSecs,
		crossmix:    crossmix,
	}
	r.capacity = fadeSeconds * initialRateHz
	r.lastRateHz = initialRateHz
	return r
}

// Init allocates the ring's backing buffers.
func (r *Ring) Init() error {
	r.left = make([]int16, r.capacity)
	r.right = make([]int16, r.capacity)
	r.swap = make([]int16, r.capacity)
	r.log.Debug().Int("fade_secs", r.fadeSeconds).Int("fade_min_secs", r.fadeMinSecs).Msg("crossfade ring initialized")
	return nil
}

// NewTrack announces a track boundary. If the new track's samplerate
// differs from the last one seen, the ring is resampled in place; a
// resample failure is fatal and returned to the caller (the ring cannot
// continue in an inconsistent state). Tracks shorter than twice the
// fade length, or shorter than the configured minimum, do not trigger a
// crossfade at either boundary they touch.
func (r *Ring) NewTrack(meta TrackMeta) error {
	if r.lastRateHz != 0 && r.lastRateHz != meta.SampleRateHz {
		if err := r.resample(r.lastRateHz, meta.SampleRateHz); err != nil {
			r.skipNext = true
			r.lastRateHz = meta.SampleRateHz
			return fmt.Errorf("crossfade: resample %d -> %d hz: %w", r.lastRateHz, meta.SampleRateHz, err)
		}
	}
	r.lastRateHz = meta.SampleRateHz

	if r.skipNext {
		r.skipNext = false
		return nil
	}

	if meta.FileSizeByte > 0 && meta.BitrateKbps > 0 {
		fileSecs := int(meta.FileSizeByte / int64(meta.BitrateKbps*128))
		if fileSecs < r.fadeMinSecs || fileSecs <= r.fadeSeconds*2 {
			r.log.Debug().Int("file_secs", fileSecs).Msg("crossfade: not fading short track")
			r.skipNext = true
			return nil
		}
	}

	if r.flen < r.capacity {
		// ring isn't full yet (e.g. first track): nothing to fade against.
		return nil
	}
	r.newTrackRemaining = r.capacity
	return nil
}

// Process blends ring content into the head of the incoming buffer (if a
// crossfade is in progress), then folds the buffer's tail back into the
// ring, returning the frame count actually produced in il/ir (equal to
// the input length once the ring has reached full capacity for the
// first time, per the pipeline's steady-state invariant).
func (r *Ring) Process(il, ir []int16) int {
	ilen := len(il)
	i := 0

	if r.flen < r.capacity {
		r.newTrackRemaining = 0
	}

	if r.crossmix {
		for ilen > 0 && r.newTrackRemaining > 0 {
			il[i] = pcm.SatAdd(r.left[r.fpos], il[i])
			ir[i] = pcm.SatAdd(r.right[r.fpos], ir[i])
			i++
			r.fpos = (r.fpos + 1) % r.capacity
			ilen--
			r.newTrackRemaining--
			if r.newTrackRemaining == 0 {
				r.flen = 0
			}
		}
	} else {
		for ilen > 0 && r.newTrackRemaining > 0 {
			weight := float64(r.newTrackRemaining) / float64(r.capacity)
			il[i] = blend(r.left[r.fpos], il[i], weight)
			ir[i] = blend(r.right[r.fpos], ir[i], weight)
			i++
			r.fpos = (r.fpos + 1) % r.capacity
			ilen--
			r.newTrackRemaining--
			if r.newTrackRemaining == 0 {
				r.flen = 0
			}
		}
	}

	j := i
	for ilen > 0 && r.flen < r.capacity {
		clen := min(ilen, r.capacity-r.flen)
		if r.capacity-r.fpos < clen {
			clen = r.capacity - r.fpos
		}
		copy(r.left[r.fpos:r.fpos+clen], il[j:j+clen])
		copy(r.right[r.fpos:r.fpos+clen], ir[j:j+clen])
		r.fpos = (r.fpos + clen) % r.capacity
		j += clen
		r.flen += clen
		ilen -= clen
	}

	for ilen > 0 {
		clen := min(ilen, r.capacity-r.fpos)
		copy(r.swap[:clen], il[j:j+clen])
		copy(il[i:i+clen], r.left[r.fpos:r.fpos+clen])
		copy(r.left[r.fpos:r.fpos+clen], r.swap[:clen])

		copy(r.swap[:clen], ir[j:j+clen])
		copy(ir[i:i+clen], r.right[r.fpos:r.fpos+clen])
		copy(r.right[r.fpos:r.fpos+clen], r.swap[:clen])

		r.fpos = (r.fpos + clen) % r.capacity
		i += clen
		j += clen
		ilen -= clen
	}

	return i
}

func (r *Ring) Shutdown() {
	r.left, r.right, r.swap = nil, nil, nil
	r.log.Debug().Msg("crossfade ring shut down")
}

// blend implements the linear fade: ring sample weighted by the
// remaining-fade fraction plus incoming sample weighted by its
// complement.
func blend(ringSample, inSample int16, weight float64) int16 {
	v := float64(ringSample)*weight + float64(inSample)*(1-weight)
	return int16(math.Round(v))
}

// resample remaps the flen frames currently held in the ring from
// oldHz to newHz using integer Bresenham resampling, and reallocates the
// ring's buffers to the new capacity (fadeSeconds * newHz). The new
// length is round(flen * newHz / oldHz), matching the rounding the
// original float-truncating C code does not do but this design
// explicitly calls for.
func (r *Ring) resample(oldHz, newHz int) error {
	newCapacity := r.fadeSeconds * newHz
	newLen := int(math.Round(float64(r.flen) * float64(newHz) / float64(oldHz)))
	if newLen > newCapacity {
		newLen = newCapacity
	}

	left := make([]int16, newCapacity)
	right := make([]int16, newCapacity)
	swap := make([]int16, newCapacity)

	off := (r.fpos + r.capacity - r.flen) % r.capacity
	eps := 0
	i := 0
	for i < newLen {
		left[i] = r.left[off]
		right[i] = r.right[off]
		eps += oldHz
		for eps*2 >= newHz {
			off = (off + 1) % r.capacity
			eps -= newHz
		}
		i++
	}

	r.left, r.right, r.swap = left, right, swap
	r.capacity = newCapacity
	r.flen = newLen
	if newCapacity > 0 {
		r.fpos = i % newCapacity
	} else {
		r.fpos = 0
	}

	r.log.Debug().Int("old_hz", oldHz).Int("new_hz", newHz).Int("new_len", newLen).Msg("crossfade ring resampled")
	return nil
}
