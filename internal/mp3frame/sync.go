/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package mp3frame

import "bytes"

// State is the synchroniser's terminal classification.
type State int

const (
	Searching State = iota
	LockedCBR
	LockedVBR
	Failed
)

// LockResult describes where and how sync was found.
type LockResult struct {
	State  State
	Header Header
	// Offset is the number of leading junk bytes skipped before the locked
	// frame's sync word.
	Offset int
}

// Locate implements the garbage-skip search: walk a 1-byte sliding window
// looking for a frame header whose computed length leads to a second,
// consistent header. It declines outright on a leading OggS marker (this is
// the caller's cue to retry as Vorbis).
//
// It does not interpret ID3v2 tags; the caller is expected to have already
// consumed any leading ID3v2 tag via the id3 package before calling Locate.
func Locate(b *Buffer) LockResult {
	if b.Len() >= 4 && bytes.Equal(b.Bytes()[:4], []byte("OggS")) {
		return LockResult{State: Failed}
	}

	if !b.Fill(4) {
		return LockResult{State: Failed}
	}

	offset := 0
	for {
		if b.Len() < 4 {
			if !b.Fill(4) {
				return LockResult{State: Failed}
			}
		}

		for b.Len() >= 4 {
			h, ok := ParseHeader(b.Bytes())
			framelen := 0
			if ok {
				framelen = FrameLength(h)
			}
			if ok && framelen > 0 {
				vbr := checkVBRTag(b, h)
				if vbr {
					h.BitrateKbps = 0
					return LockResult{State: LockedVBR, Header: h, Offset: offset}
				}

				if !b.Fill(framelen + 4) {
					// can't verify a second frame; treat as junk and keep scanning
					b.Advance(1)
					offset++
					continue
				}

				next, nok := ParseHeader(b.Bytes()[framelen:])
				if nok {
					if h.Version != next.Version || h.Layer != next.Layer || h.SampleRateHz != next.SampleRateHz {
						nok = false
					} else {
						if h.BitrateKbps != next.BitrateKbps {
							h.BitrateKbps = 0
							return LockResult{State: LockedVBR, Header: h, Offset: offset}
						}
						return LockResult{State: LockedCBR, Header: h, Offset: offset}
					}
				}
				if !nok {
					// first frame was junk; keep scanning
				}
			}
			b.Advance(1)
			offset++
		}
	}
}

// checkVBRTag inspects the frame at the buffer's current position for a
// Xing/Info/VBRI tag at the header's conventional offset.
func checkVBRTag(b *Buffer, h Header) bool {
	off := VBRTagOffset(h)
	if !b.Fill(off + 4) {
		return false
	}
	tag := b.Bytes()[off : off+4]
	return bytes.Equal(tag, []byte("VBRI")) || bytes.Equal(tag, []byte("Xing")) || bytes.Equal(tag, []byte("Info"))
}
