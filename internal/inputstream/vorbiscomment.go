/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package inputstream

import (
	"encoding/binary"
	"strings"
)

// vorbisComment is the common "vendor string + N length-prefixed
// KEY=VALUE fields" layout shared by Ogg Vorbis comment headers and
// FLAC VORBIS_COMMENT metadata blocks.
type vorbisComment struct {
	Artist string
	Title  string
	GainDB float64
}

// parseVorbisComment parses buf starting at the vendor-string length
// field. Unknown or malformed trailing data simply stops the scan early
// rather than failing the whole probe.
func parseVorbisComment(buf []byte) vorbisComment {
	var vc vorbisComment
	if len(buf) < 4 {
		return vc
	}
	pos := 0
	vendorLen := int(binary.LittleEndian.Uint32(buf[pos:]))
	pos += 4 + vendorLen
	if pos+4 > len(buf) {
		return vc
	}
	count := int(binary.LittleEndian.Uint32(buf[pos:]))
	pos += 4

	for i := 0; i < count && pos+4 <= len(buf); i++ {
		fieldLen := int(binary.LittleEndian.Uint32(buf[pos:]))
		pos += 4
		if pos+fieldLen > len(buf) || fieldLen < 0 {
			break
		}
		field := string(buf[pos : pos+fieldLen])
		pos += fieldLen

		eq := strings.IndexByte(field, '=')
		if eq < 0 {
			continue
		}
		key := strings.ToUpper(field[:eq])
		val := field[eq+1:]
		switch key {
		case "ARTIST":
			vc.Artist = val
		case "TITLE":
			vc.Title = val
		case "REPLAYGAIN_TRACK_GAIN":
			vc.GainDB = parseGainField(val)
		}
	}
	return vc
}

// parseGainField parses a "-6.50 dB"-shaped ReplayGain comment value,
// ignoring any trailing unit text.
func parseGainField(s string) float64 {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	sawDigit := false
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || s[end] == '.') {
		end++
		sawDigit = true
	}
	if !sawDigit {
		return 0
	}
	var v float64
	var frac float64 = 1
	neg := false
	afterDot := false
	for i := 0; i < end; i++ {
		c := s[i]
		switch {
		case c == '+':
		case c == '-':
			neg = true
		case c == '.':
			afterDot = true
		default:
			d := float64(c - '0')
			if afterDot {
				frac *= 10
				v += d / frac
			} else {
				v = v*10 + d
			}
		}
	}
	if neg {
		v = -v
	}
	return v
}
