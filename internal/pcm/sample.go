/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package pcm implements the 16-bit signed PCM sample model shared by every
// stage of the audio pipeline: mono/stereo expansion and saturating
// arithmetic. Nothing in this package allocates per-sample; callers own the
// buffers.
package pcm

const (
	// MaxSample is the largest representable 16-bit signed sample.
	MaxSample int16 = 32767
	// MinSample is the smallest representable 16-bit signed sample.
	MinSample int16 = -32768
)

// Buffer is a pair of equal-length parallel channel buffers.
type Buffer struct {
	Left  []int16
	Right []int16
}

// Frames returns the number of PCM frames held in the buffer.
func (b Buffer) Frames() int {
	return len(b.Left)
}

// ExpandMonoToStereo duplicates mono into a stereo pair. The caller-supplied
// right slice must have the same length as mono; it is overwritten in place.
func ExpandMonoToStereo(mono, right []int16) {
	copy(right, mono)
}

// SatAdd performs a saturating add of two 16-bit signed samples using
// headroom-1 boundary semantics: values that would land at or past the rail
// minus one unit saturate to the rail exactly. This is the contract of the
// original crossmix implementation and must be preserved bit-exactly.
func SatAdd(a, b int16) int16 {
	sum := int32(a) + int32(b)
	if a >= 0 && b >= 0 && sum >= int32(MaxSample)-1 {
		return MaxSample
	}
	if a <= 0 && b <= 0 && sum <= int32(MinSample)+1 {
		return MinSample
	}
	return int16(sum)
}

// Clamp saturates a wider integer into the int16 range without the
// headroom-1 quirk of SatAdd; used by ReplayGain and the linear fade blend
// where the original code clamps to the true rails.
func Clamp(v int32) int16 {
	if v > int32(MaxSample) {
		return MaxSample
	}
	if v < int32(MinSample) {
		return MinSample
	}
	return int16(v)
}
