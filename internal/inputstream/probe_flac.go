/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package inputstream

import (
	"bytes"
	"encoding/binary"
)

// probeFLAC recognizes the "fLaC" marker, reads the mandatory
// STREAMINFO metadata block for samplerate/channels, and scans any
// further metadata blocks for a VORBIS_COMMENT block (artist/title/
// replaygain_track_gain). Decoding itself is delegated to the
// re-encoder's decoder subprocess; the probe only needs enough to
// populate metadata and the capability set.
func (is *InputStream) probeFLAC(prologue []byte) (probeResult, error) {
	if !bytes.HasPrefix(prologue, []byte("fLaC")) {
		return probeNotThisFormat, nil
	}

	pos := 4
	for pos+4 <= len(prologue) {
		header := prologue[pos]
		last := header&0x80 != 0
		blockType := header & 0x7F
		blockLen := int(prologue[pos+1])<<16 | int(prologue[pos+2])<<8 | int(prologue[pos+3])
		pos += 4
		if pos+blockLen > len(prologue) {
			break
		}
		block := prologue[pos : pos+blockLen]

		switch blockType {
		case 0: // STREAMINFO
			if len(block) >= 18 {
				// bytes 10..12 (20 bits) samplerate, next bits channels-1 (3 bits)
				v := binary.BigEndian.Uint32(block[10:14])
				is.SampleRateHz = int(v >> 12)
				is.Channels = int((v>>9)&0x7) + 1
			}
		case 4: // VORBIS_COMMENT
			vc := parseVorbisComment(block)
			is.Metadata.Artist = vc.Artist
			is.Metadata.Title = vc.Title
			is.Metadata.GainDB = vc.GainDB
		}

		pos += blockLen
		if last {
			break
		}
	}

	is.Capability = DecoderPCM
	return probeOK, nil
}
