/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package inputstream

import (
	"bytes"
	"encoding/binary"
)

// probeVorbis recognizes the "OggS" page marker, reads the identification
// packet (channels/samplerate) from the first page's payload, and scans
// for the comment packet's "\x03vorbis" marker to extract artist/title/
// replaygain_track_gain the same way the FLAC probe does (both containers
// share the Vorbis comment format).
func (is *InputStream) probeVorbis(prologue []byte) (probeResult, error) {
	if !bytes.HasPrefix(prologue, []byte("OggS")) {
		return probeNotThisFormat, nil
	}

	if idx := bytes.Index(prologue, []byte("\x01vorbis")); idx >= 0 && idx+7+4+4+4+4 <= len(prologue) {
		p := idx + 7
		p += 4 // vorbis_version
		is.Channels = int(prologue[p])
		p++
		is.SampleRateHz = int(binary.LittleEndian.Uint32(prologue[p:]))
	}

	if idx := bytes.Index(prologue, []byte("\x03vorbis")); idx >= 0 {
		vc := parseVorbisComment(prologue[idx+7:])
		is.Metadata.Artist = vc.Artist
		is.Metadata.Title = vc.Title
		is.Metadata.GainDB = vc.GainDB
	}

	is.Capability = DecoderPCM
	return probeOK, nil
}
