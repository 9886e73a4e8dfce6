/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package id3

import (
	"io"
	"strings"
)

const (
	flagUnsync = 1 << 7
	flagExthdr = 1 << 6
	flagExphdr = 1 << 5
	flagFooter = 1 << 4
)

type versionInfo struct {
	frameHeaderLen int
	artistTag      string
	titleTag       string
	txxxTag        string
}

// Indexed by major version (0..4). Versions 0-2 share the 6-byte v2.2-style
// frame header and 3-character frame IDs; versions 3-4 use the 10-byte
// header and 4-character IDs.
var versionTable = [5]versionInfo{
	{6, "TP1", "TT2", "TXX"},
	{6, "TP1", "TT2", "TXX"},
	{6, "TP1", "TT2", "TXX"},
	{10, "TPE1", "TIT2", "TXXX"},
	{10, "TPE1", "TIT2", "TXXX"},
}

// Tag is the result of parsing an ID3v2 prologue.
type Tag struct {
	MajorVersion byte
	MinorVersion byte
	Flags        byte
	Len          int

	Artist string
	Title  string
	// GainDB is the ReplayGain track gain found in this tag, or 0 if none.
	GainDB float64
}

// ParseV2 reads and consumes exactly Len bytes (the full declared tag
// size) from r, which must be positioned at the first byte of a 10-byte
// ID3v2 header (the leading "ID3" marker has already been confirmed by the
// caller). Frame parsing errors and oversized frames stop the frame walk
// but do not fail the tag: remaining declared bytes are always skipped so
// the stream lands exactly at the end of the tag.
func ParseV2(r io.Reader) (*Tag, error) {
	var hdr [10]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}

	tag := &Tag{
		MajorVersion: hdr[3],
		MinorVersion: hdr[4],
		Flags:        hdr[5],
		Len:          decodeSynchsafe4(hdr[6:10]),
	}

	pos := 0

	if tag.MajorVersion > 4 {
		skipExact(r, tag.Len)
		return tag, nil
	}

	if tag.MajorVersion > 2 && tag.Flags&flagExthdr != 0 {
		n, err := readExtendedHeader(r)
		if err != nil {
			return tag, nil
		}
		pos += n
	}

	remaining := tag.Len - pos
	if tag.MajorVersion > 3 && tag.Flags&flagFooter != 0 {
		remaining -= 10
	}

	vi := versionTable[tag.MajorVersion]
	for remaining > vi.frameHeaderLen {
		consumed, stop := readFrame(r, tag, vi, &pos)
		if stop {
			break
		}
		remaining -= consumed
	}

	leftover := tag.Len - pos
	if leftover > 0 {
		skipExact(r, leftover)
	}

	return tag, nil
}

func readExtendedHeader(r io.Reader) (int, error) {
	var hdr [6]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, err
	}
	n := 6
	length := decodeSynchsafe4(hdr[:])
	if length > 6 {
		skipExact(r, length-6)
		n += length - 6
	}
	return n, nil
}

// readFrame reads one frame header plus (if relevant) its payload,
// returning the number of bytes consumed from the stream for this frame
// (header + payload) and whether the frame walk should stop (padding
// reached, or an unrecoverable read error).
func readFrame(r io.Reader, tag *Tag, vi versionInfo, pos *int) (consumed int, stop bool) {
	hdr := make([]byte, vi.frameHeaderLen)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return 0, true
	}
	*pos += vi.frameHeaderLen

	if hdr[0] == 0 {
		// padding
		return 0, true
	}

	var frameID string
	var length int
	switch {
	case tag.MajorVersion < 3:
		length = decodeSynchsafe3(hdr[3:6])
		frameID = string(hdr[:3])
	case tag.MajorVersion == 3:
		length = decodeUnsafe32(hdr[4:8])
		frameID = string(hdr[:4])
	default:
		length = decodeSynchsafe4(hdr[4:8])
		frameID = string(hdr[:4])
	}

	if length > tag.Len-*pos {
		return 0, true
	}

	interesting := frameID == vi.artistTag || frameID == vi.titleTag || frameID == vi.txxxTag || frameID == "RVA2"
	if !interesting {
		skipExact(r, length)
		*pos += length
		return length + vi.frameHeaderLen, false
	}

	buf := make([]byte, length)
	n, _ := io.ReadFull(r, buf)
	*pos += n
	if n < length {
		return length + vi.frameHeaderLen, true
	}

	switch frameID {
	case vi.titleTag:
		tag.Title = string(decodeFrameText(buf))
	case vi.artistTag:
		tag.Artist = string(decodeFrameText(buf))
	case "RVA2":
		// RVA2 is a binary frame with no leading text-encoding byte; it is
		// decoded straight off the raw payload, not through decodeFrameText.
		if tag.GainDB == 0 {
			tag.GainDB = rva2TrackGain(buf)
		}
	case vi.txxxTag:
		tag.GainDB = txxxTrackGain(decodeFrameText(buf))
	}

	return length + vi.frameHeaderLen, false
}

// decodeFrameText converts a text frame's payload (encoding byte + data) to
// UTF-8, returning just the converted data (the encoding byte is consumed).
func decodeFrameText(buf []byte) []byte {
	if len(buf) == 0 {
		return nil
	}
	data := buf[1:]
	switch buf[0] {
	case 0:
		return convertISO88591(data)
	case 1, 2:
		return convertUTF16(data)
	case 3:
		fallthrough
	default:
		return append([]byte(nil), data...)
	}
}

// txxxTrackGain parses a TXXX frame's decoded "description\0data" payload,
// returning the dB gain if the description case-insensitively equals
// replaygain_track_gain.
func txxxTrackGain(obuf []byte) float64 {
	s := string(obuf)
	if !strings.EqualFold(firstField(s), "replaygain_track_gain") {
		return 0
	}
	return parseLeadingFloat(s[len("replaygain_track_gain"):])
}

func firstField(s string) string {
	if i := strings.IndexByte(s, 0); i >= 0 {
		return s[:i]
	}
	return s
}

// parseLeadingFloat mimics atof: parses the longest valid leading decimal
// (optionally signed, skipping one separator byte such as the TXXX NUL)
// from s, returning 0 if none is found.
func parseLeadingFloat(s string) float64 {
	i := 0
	for i < len(s) && (s[i] == 0 || s[i] == ' ') {
		i++
	}
	start := i
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	sawDigit := false
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
		sawDigit = true
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
			sawDigit = true
		}
	}
	if !sawDigit {
		return 0
	}
	var v float64
	var frac float64 = 1
	neg := false
	j := start
	if s[j] == '+' || s[j] == '-' {
		neg = s[j] == '-'
		j++
	}
	afterDot := false
	for ; j < i; j++ {
		if s[j] == '.' {
			afterDot = true
			continue
		}
		d := float64(s[j] - '0')
		if afterDot {
			frac *= 10
			v += d / frac
		} else {
			v = v*10 + d
		}
	}
	if neg {
		v = -v
	}
	return v
}

// rva2TrackGain decodes an RVA2 frame's raw (undecoded) payload: "track\0"
// channel blocks, keeping only the "master volume" channel (type byte 1).
// The gain is encoded as a signed 16-bit big-endian value divided by 512.
func rva2TrackGain(buf []byte) float64 {
	// Layout after NUL-terminated channel identification string "track":
	// buf[0:5]="track", buf[5]=0x00, buf[6]=channel type, buf[7:9]=gain
	// (big-endian signed), buf[9]=peak bits length, buf[10:]=peak bytes.
	if len(buf) < 10 {
		return 0
	}
	ident := firstField(string(buf))
	if !strings.EqualFold(ident, "track") {
		return 0
	}
	if buf[6] != 1 {
		return 0
	}
	hi := int8(buf[7])
	lo := buf[8]
	gain := (int32(hi)<<8 | int32(lo))
	return float64(gain) / 512.0
}

func skipExact(r io.Reader, n int) {
	if n <= 0 {
		return
	}
	io.CopyN(io.Discard, r, int64(n))
}
