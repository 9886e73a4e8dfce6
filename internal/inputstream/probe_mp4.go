/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package inputstream

import (
	"bytes"
	"encoding/binary"
)

// probeMP4 recognizes an "ftyp" box at offset 4 and walks top-level
// boxes looking for "moov/udta/meta/ilst" iTunes metadata atoms
// (©nam/©ART/----:com.apple.iTunes:replaygain_track_gain). Samplerate
// and channel count are left to the decoder (discovered once decoding
// starts); only display metadata is extracted here, matching what a
// demultiplexer can cheaply learn without a full MP4 track parser.
func (is *InputStream) probeMP4(prologue []byte) (probeResult, error) {
	if len(prologue) < 12 || !bytes.Equal(prologue[4:8], []byte("ftyp")) {
		return probeNotThisFormat, nil
	}

	is.Capability = DecoderPCM
	walkMP4Boxes(prologue, is)
	return probeOK, nil
}

func walkMP4Boxes(buf []byte, is *InputStream) {
	pos := 0
	for pos+8 <= len(buf) {
		size := int(binary.BigEndian.Uint32(buf[pos:]))
		name := string(buf[pos+4 : pos+8])
		if size < 8 || pos+size > len(buf) {
			// container box whose true size exceeds what we peeked, or a
			// malformed size: recurse into what we do have for moov/udta/
			// meta/ilst since those hold the metadata we care about, then
			// stop.
			if isMP4ContainerBox(name) {
				walkMP4Boxes(buf[pos+8:], is)
			}
			return
		}

		switch name {
		case "moov", "udta", "meta", "ilst":
			inner := buf[pos+8 : pos+size]
			if name == "meta" && len(inner) > 4 {
				inner = inner[4:] // meta has a 4-byte version/flags field
			}
			walkMP4Boxes(inner, is)
		case "\xa9nam":
			is.Metadata.Title = mp4DataString(buf[pos+8 : pos+size])
		case "\xa9ART":
			is.Metadata.Artist = mp4DataString(buf[pos+8 : pos+size])
		case "----":
			parseMP4Freeform(buf[pos+8:pos+size], is)
		}

		pos += size
	}
}

func isMP4ContainerBox(name string) bool {
	switch name {
	case "moov", "udta", "meta", "ilst":
		return true
	default:
		return false
	}
}

// mp4DataString extracts the string payload of a "data" sub-atom inside
// an iTunes metadata item atom.
func mp4DataString(buf []byte) string {
	pos := 0
	for pos+8 <= len(buf) {
		size := int(binary.BigEndian.Uint32(buf[pos:]))
		name := string(buf[pos+4 : pos+8])
		if size < 8 || pos+size > len(buf) {
			return ""
		}
		if name == "data" && size > 16 {
			return string(buf[pos+16 : pos+size])
		}
		pos += size
	}
	return ""
}

// parseMP4Freeform looks for the com.apple.iTunes:replaygain_track_gain
// freeform atom (a "----" item containing mean/name/data sub-atoms).
func parseMP4Freeform(buf []byte, is *InputStream) {
	var name, value string
	pos := 0
	for pos+8 <= len(buf) {
		size := int(binary.BigEndian.Uint32(buf[pos:]))
		atom := string(buf[pos+4 : pos+8])
		if size < 8 || pos+size > len(buf) {
			return
		}
		body := buf[pos+8 : pos+size]
		switch atom {
		case "name":
			if len(body) > 4 {
				name = string(body[4:])
			}
		case "data":
			if len(body) > 8 {
				value = string(body[8:])
			}
		}
		pos += size
	}
	if name == "replaygain_track_gain" {
		is.Metadata.GainDB = parseGainField(value)
	}
}
