/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package id3

import (
	"bytes"
	"testing"
)

func synchsafe4(v int) [4]byte {
	return [4]byte{
		byte((v >> 21) & 0x7F),
		byte((v >> 14) & 0x7F),
		byte((v >> 7) & 0x7F),
		byte(v & 0x7F),
	}
}

// buildV23Frame builds one ID3v2.3 frame: 4-byte ID, 4-byte PLAIN
// big-endian size (the deliberate non-synchsafe workaround), 2 flag bytes,
// then payload.
func buildV23Frame(id string, payload []byte) []byte {
	var out []byte
	out = append(out, []byte(id)...)
	size := len(payload)
	out = append(out, byte(size>>24), byte(size>>16), byte(size>>8), byte(size))
	out = append(out, 0, 0) // flags
	out = append(out, payload...)
	return out
}

func buildV23Tag(frames ...[]byte) []byte {
	var body []byte
	for _, f := range frames {
		body = append(body, f...)
	}
	tagLen := len(body)
	var out []byte
	out = append(out, 'I', 'D', '3')
	out = append(out, 3, 0) // major=3, minor=0
	out = append(out, 0)    // flags
	ss := synchsafe4(tagLen)
	out = append(out, ss[:]...)
	out = append(out, body...)
	return out
}

func textFrame(encodingByte byte, text string) []byte {
	return append([]byte{encodingByte}, []byte(text)...)
}

func TestParseV2ConsumesExactlyDeclaredLength(t *testing.T) {
	title := buildV23Frame("TIT2", textFrame(0, "Hello"))
	artist := buildV23Frame("TPE1", textFrame(0, "World"))
	tagBytes := buildV23Tag(title, artist)
	trailing := []byte{0xFF, 0xFB, 0x90, 0x00} // start of an mp3 frame, must be untouched

	r := bytes.NewReader(append(append([]byte{}, tagBytes...), trailing...))
	// ParseV2 expects to start reading right at the "ID3" header.
	tag, err := ParseV2(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tag.Title != "Hello" {
		t.Fatalf("want title Hello got %q", tag.Title)
	}
	if tag.Artist != "World" {
		t.Fatalf("want artist World got %q", tag.Artist)
	}

	rest := make([]byte, 4)
	if _, err := r.Read(rest); err != nil {
		t.Fatalf("reading trailing bytes: %v", err)
	}
	if !bytes.Equal(rest, trailing) {
		t.Fatalf("parser consumed into trailing data: got %x want %x", rest, trailing)
	}
}

func TestParseV2TXXXWinsOverRVA2(t *testing.T) {
	txxx := buildV23Frame("TXXX", textFrame(0, "replaygain_track_gain\x00-6.0"))

	rva2payload := []byte{}
	rva2payload = append(rva2payload, []byte("track")...)
	rva2payload = append(rva2payload, 0) // NUL terminator
	rva2payload = append(rva2payload, 1) // channel type = master(1)
	// gain = -3.0 dB => raw = -3.0*512 = -1536 = 0xFA00 as int16
	raw := int16(-1536)
	rva2payload = append(rva2payload, byte(raw>>8), byte(raw&0xFF), 0 /*peak bits*/)
	rva2 := buildV23Frame("RVA2", rva2payload)

	// RVA2 appears first, TXXX second: TXXX must still win because it is
	// unconditional while RVA2 only fills in when gain is still zero.
	tagBytes := buildV23Tag(rva2, txxx)
	r := bytes.NewReader(tagBytes)
	tag, err := ParseV2(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tag.GainDB != -6.0 {
		t.Fatalf("want -6.0 got %v", tag.GainDB)
	}
}

func TestParseV2RVA2OnlyWhenNoTXXX(t *testing.T) {
	rva2payload := []byte{}
	rva2payload = append(rva2payload, []byte("track")...)
	rva2payload = append(rva2payload, 0)
	rva2payload = append(rva2payload, 1)
	raw := int16(-1536)
	rva2payload = append(rva2payload, byte(raw>>8), byte(raw&0xFF), 0)
	rva2 := buildV23Frame("RVA2", rva2payload)

	tagBytes := buildV23Tag(rva2)
	tag, err := ParseV2(bytes.NewReader(tagBytes))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tag.GainDB != -3.0 {
		t.Fatalf("want -3.0 got %v", tag.GainDB)
	}
}

func TestDecodeSynchsafeVariants(t *testing.T) {
	ss4 := synchsafe4(12345)
	if got := decodeSynchsafe4(ss4[:]); got != 12345 {
		t.Fatalf("want 12345 got %d", got)
	}
}

func TestDecodeUnsafe32IsPlainBigEndian(t *testing.T) {
	b := []byte{0x00, 0x00, 0x01, 0x00} // 256 as plain big-endian, NOT synchsafe
	if got := decodeUnsafe32(b); got != 256 {
		t.Fatalf("want 256 got %d", got)
	}
}
