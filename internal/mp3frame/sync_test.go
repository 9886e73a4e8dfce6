/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package mp3frame

import (
	"bytes"
	"math/rand"
	"testing"
)

// buildMPEG1Layer3Frame builds a syntactically valid MPEG-1 Layer III frame
// header at 128 kbps / 44100 Hz / stereo, with framelen-4 zero bytes of
// payload (the sync scanner never reads past the header to classify, so
// payload content is irrelevant).
func buildMPEG1Layer3Frame(bitrateKbps, sampleRateHz int, padding int) []byte {
	// version bits: MPEG-1 => 0b11 at bits 4:3 of byte1 (index within byte1 bits 4-3)
	// byte0 = 0xFF
	// byte1 = 1111 1 VV L L E -> sync(5 bits)=11111, version(2)=11(MPEG1), layer(2)=01(LayerIII->layer bits "01" maps layer=4-1=3), protection(1)
	// Using ParseHeader's decode: layer = 4 - ((buf[1]>>1)&0x3). For layer III we need (buf[1]>>1)&0x3 == 1.
	byte1 := byte(0xE0) | (0x3 << 3) | (0x1 << 1) | 0x1 // sync top 3 bits + version=11 + layer bits=01 + protection=1
	// bitrate index lookup for MPEG1 layer3 table (index 2)
	bitrateIdx := -1
	table := bitrates[0][2]
	for i, v := range table {
		if v == bitrateKbps {
			bitrateIdx = i
			break
		}
	}
	if bitrateIdx < 0 {
		panic("bitrate not in table")
	}
	srIdx := -1
	for i, v := range sampleRates[0] {
		if v == sampleRateHz {
			srIdx = i
			break
		}
	}
	if srIdx < 0 {
		panic("samplerate not in table")
	}
	byte2 := byte(bitrateIdx<<4) | byte(srIdx<<2) | byte(padding<<1)
	byte3 := byte(0x00) // stereo mode, no emphasis

	h := []byte{0xFF, byte1, byte2, byte3}
	// sanity check it round-trips
	parsed, ok := ParseHeader(h)
	if !ok {
		panic("constructed header failed to parse")
	}
	framelen := FrameLength(parsed)
	frame := make([]byte, framelen)
	copy(frame, h)
	return frame
}

func TestLocateSkipsLeadingJunk(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for _, K := range []int{0, 1, 17, 200, 513} {
		junk := make([]byte, K)
		for i := range junk {
			// avoid accidentally creating a valid sync word in the junk
			junk[i] = byte(r.Intn(256))
			if junk[i] == 0xFF {
				junk[i] = 0x00
			}
		}
		frame := buildMPEG1Layer3Frame(128, 44100, 0)
		// Three repeated frames so the second-header-agreement check succeeds
		// and there is a third frame's worth of buffer available for Fill.
		stream := append(append(append([]byte{}, junk...), frame...), frame...)
		stream = append(stream, frame...)

		buf := NewBuffer(bytes.NewReader(stream), nil)
		res := Locate(buf)
		if res.State != LockedCBR {
			t.Fatalf("K=%d: expected LockedCBR, got state=%v", K, res.State)
		}
		if res.Offset != K {
			t.Fatalf("K=%d: expected offset %d, got %d", K, K, res.Offset)
		}
	}
}

func TestLocateDeclinesOggS(t *testing.T) {
	buf := NewBuffer(bytes.NewReader([]byte("OggS0000000000000")), nil)
	res := Locate(buf)
	if res.State != Failed {
		t.Fatalf("expected Failed for OggS prefix, got %v", res.State)
	}
}

func TestLocateDetectsVBRViaBitrateMismatch(t *testing.T) {
	frameA := buildMPEG1Layer3Frame(128, 44100, 0)
	frameB := buildMPEG1Layer3Frame(192, 44100, 0)
	stream := append(append([]byte{}, frameA...), frameB...)
	buf := NewBuffer(bytes.NewReader(stream), nil)
	res := Locate(buf)
	if res.State != LockedVBR {
		t.Fatalf("expected LockedVBR, got %v", res.State)
	}
	if res.Header.BitrateKbps != 0 {
		t.Fatalf("expected nominal bitrate cleared to 0 for VBR, got %d", res.Header.BitrateKbps)
	}
}

func TestFrameLengthLayer3MPEG1(t *testing.T) {
	h := Header{Version: MPEG1, Layer: 3, BitrateKbps: 128, SampleRateHz: 44100, Padding: 0}
	want := 144000*128/44100 + 0
	if got := FrameLength(h); got != want {
		t.Fatalf("want %d got %d", want, got)
	}
}

func TestFrameLengthLayer3MPEG2(t *testing.T) {
	h := Header{Version: MPEG2LSF, Layer: 3, BitrateKbps: 64, SampleRateHz: 22050, Padding: 1}
	want := 72000*64/22050 + 1
	if got := FrameLength(h); got != want {
		t.Fatalf("want %d got %d", want, got)
	}
}
