/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package mp3frame locates and parses MPEG-1/2/2.5 Layer I/II/III audio
// frame headers: finding the first valid frame in a file that may carry
// leading ID3v2/junk bytes, detecting VBR tags, and trimming a trailing
// short frame. Reference: http://mpgedit.org/mpgedit/mpeg_format/mpeghdr.htm
package mp3frame

// Version identifies the MPEG version a frame header declares.
type Version int

const (
	MPEG1 Version = iota
	MPEG2LSF
	MPEG25
)

// Mode is the channel mode carried in byte 3 of the header.
type Mode int

const (
	ModeStereo Mode = iota
	ModeJointStereo
	ModeDualChannel
	ModeMono
)

var bitrates = [2][3][15]int{
	// MPEG-1
	{
		{0, 32, 64, 96, 128, 160, 192, 224, 256, 288, 320, 352, 384, 416, 448},
		{0, 32, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 384},
		{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320},
	},
	// MPEG-2 LSF, MPEG-2.5
	{
		{0, 32, 48, 56, 64, 80, 96, 112, 128, 144, 160, 176, 192, 224, 256},
		{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160},
		{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160},
	},
}

var sampleRates = [3][4]int{
	{44100, 48000, 32000, 0},
	{22050, 24000, 16000, 0},
	{11025, 8000, 8000, 0},
}

// Header is a fully decoded MPEG audio frame header.
type Header struct {
	Version          Version
	Layer            int // 1, 2 or 3
	ErrorProtection  bool
	BitrateKbps      int
	SampleRateHz     int
	Padding          int
	Extension        int
	Mode             Mode
	ModeExt          int
	Copyright        bool
	Original         bool
	Emphasis         int
	Channels         int
}

// ParseHeader decodes 4 header bytes. It reports ok=false if the bytes do
// not form a syntactically valid header (bad sync, reserved bitrate index,
// reserved samplerate index, reserved layer, or reserved emphasis). Free
// bitrate (index 0) is accepted syntactically but callers must treat it as
// "unparseable length" per FrameLength.
func ParseHeader(buf []byte) (Header, bool) {
	var h Header
	if len(buf) < 4 {
		return h, false
	}

	if (int(buf[0])<<4)|((int(buf[1])>>4)&0xE) != 0xFFE {
		return h, false
	}

	switch (buf[1] >> 3) & 0x3 {
	case 3:
		h.Version = MPEG1
	case 2:
		h.Version = MPEG2LSF
	case 0:
		h.Version = MPEG25
	default:
		return h, false
	}

	bitrateIdx := int(buf[2]>>4) & 0xF
	samplerateIdx := int(buf[2]>>2) & 0x3
	h.Mode = Mode((buf[3] >> 6) & 0x3)
	h.Layer = 4 - int((buf[1]>>1)&0x3)
	h.Emphasis = int(buf[3] & 0x3)

	if bitrateIdx == 0xF || samplerateIdx == 0x3 || h.Layer == 4 || h.Emphasis == 2 {
		return h, false
	}

	h.ErrorProtection = buf[1]&0x1 == 0
	if h.Version == MPEG1 {
		h.BitrateKbps = bitrates[0][h.Layer-1][bitrateIdx]
	} else {
		h.BitrateKbps = bitrates[1][h.Layer-1][bitrateIdx]
	}
	h.SampleRateHz = sampleRates[h.Version][samplerateIdx]
	h.Padding = int(buf[2]>>1) & 0x01
	h.Extension = int(buf[2] & 0x01)
	h.ModeExt = int(buf[3]>>4) & 0x03
	h.Copyright = (buf[3]>>3)&0x01 != 0
	h.Original = (buf[3]>>2)&0x1 != 0
	if h.Mode == ModeMono {
		h.Channels = 1
	} else {
		h.Channels = 2
	}

	return h, true
}

// FrameLength computes the byte length of the frame this header describes.
// It returns 0 for free-bitrate frames (BitrateKbps == 0), which the
// synchroniser must treat as "unparseable length".
func FrameLength(h Header) int {
	if h.BitrateKbps == 0 {
		return 0
	}
	if h.Layer == 1 {
		return (12000*h.BitrateKbps/h.SampleRateHz + h.Padding) * 4
	}
	if h.Layer == 3 && h.Version != MPEG1 {
		return 72000*h.BitrateKbps/h.SampleRateHz + h.Padding
	}
	return 144000*h.BitrateKbps/h.SampleRateHz + h.Padding
}

// VBRTagOffset returns the byte offset (from the frame's start) at which a
// Xing/Info/VBRI tag would appear for the given version/channel count. FhG
// VBRI tags are always MPEG-1 Layer III 160 kbps stereo but the offset
// convention covers all versions uniformly.
func VBRTagOffset(h Header) int {
	if h.Version == MPEG1 {
		if h.Channels == 1 {
			return 21
		}
		return 36
	}
	if h.Channels == 1 {
		return 13
	}
	return 21
}
