/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package inputstream

import (
	"encoding/binary"
	"testing"
)

func TestParseVorbisCommentExtractsFields(t *testing.T) {
	var buf []byte
	vendor := "test-encoder"
	buf = appendUint32LE(buf, uint32(len(vendor)))
	buf = append(buf, vendor...)

	fields := []string{"ARTIST=The Artist", "TITLE=A Song", "REPLAYGAIN_TRACK_GAIN=-3.50 dB"}
	buf = appendUint32LE(buf, uint32(len(fields)))
	for _, f := range fields {
		buf = appendUint32LE(buf, uint32(len(f)))
		buf = append(buf, f...)
	}

	vc := parseVorbisComment(buf)
	if vc.Artist != "The Artist" {
		t.Fatalf("want artist got %q", vc.Artist)
	}
	if vc.Title != "A Song" {
		t.Fatalf("want title got %q", vc.Title)
	}
	if vc.GainDB != -3.5 {
		t.Fatalf("want -3.5 got %v", vc.GainDB)
	}
}

func appendUint32LE(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func TestParseGainFieldHandlesUnitSuffix(t *testing.T) {
	if g := parseGainField("-6.00 dB"); g != -6.0 {
		t.Fatalf("want -6.0 got %v", g)
	}
	if g := parseGainField("+2.25 dB"); g != 2.25 {
		t.Fatalf("want 2.25 got %v", g)
	}
}

func buildFLACStreamInfo(sampleRate, channels int) []byte {
	buf := make([]byte, 18)
	// bytes 10..13 pack: 20 bits samplerate, 3 bits channels-1, 5 bits
	// bits-per-sample-1 (high bit), rest total samples.
	v := uint32(sampleRate)<<12 | uint32(channels-1)<<9
	binary.BigEndian.PutUint32(buf[10:14], v)
	return buf
}

func TestProbeFLACReadsStreamInfo(t *testing.T) {
	is := &InputStream{}
	var data []byte
	data = append(data, "fLaC"...)
	si := buildFLACStreamInfo(44100, 2)
	data = append(data, 0x80) // last-block flag set, type 0
	data = append(data, byte(len(si)>>16), byte(len(si)>>8), byte(len(si)))
	data = append(data, si...)

	res, err := is.probeFLAC(data)
	if err != nil {
		t.Fatal(err)
	}
	if res != probeOK {
		t.Fatalf("want probeOK got %v", res)
	}
	if is.SampleRateHz != 44100 {
		t.Fatalf("want 44100 got %d", is.SampleRateHz)
	}
	if is.Channels != 2 {
		t.Fatalf("want 2 channels got %d", is.Channels)
	}
}

func TestProbeFLACDeclinesNonFLAC(t *testing.T) {
	is := &InputStream{}
	res, _ := is.probeFLAC([]byte("not a flac file at all"))
	if res != probeNotThisFormat {
		t.Fatalf("want probeNotThisFormat got %v", res)
	}
}

func TestProbeMP4DeclinesWithoutFtyp(t *testing.T) {
	is := &InputStream{}
	res, _ := is.probeMP4([]byte("random bytes without an ftyp marker"))
	if res != probeNotThisFormat {
		t.Fatalf("want probeNotThisFormat got %v", res)
	}
}
