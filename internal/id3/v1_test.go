/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package id3

import (
	"bytes"
	"testing"
)

type memReaderAt []byte

func (m memReaderAt) ReadAt(p []byte, off int64) (int, error) {
	n := copy(p, m[off:])
	return n, nil
}

func buildV1Tag(title, artist string) []byte {
	buf := make([]byte, 128)
	copy(buf[0:3], "TAG")
	copy(buf[3:33], title)
	copy(buf[33:63], artist)
	return buf
}

func TestParseV1Found(t *testing.T) {
	prefix := bytes.Repeat([]byte{0x00}, 1000)
	tag := buildV1Tag("Song Title", "The Artist")
	data := append(append([]byte{}, prefix...), tag...)
	res := ParseV1(memReaderAt(data), int64(len(data)))
	if !res.Found {
		t.Fatal("expected tag found")
	}
	if res.Title != "Song Title" {
		t.Fatalf("want 'Song Title' got %q", res.Title)
	}
	if res.Artist != "The Artist" {
		t.Fatalf("want 'The Artist' got %q", res.Artist)
	}
	if res.AdjustedFileSize != int64(len(data))-128 {
		t.Fatalf("want adjusted size %d got %d", len(data)-128, res.AdjustedFileSize)
	}
}

func TestParseV1NotFound(t *testing.T) {
	data := bytes.Repeat([]byte{0x01}, 500)
	res := ParseV1(memReaderAt(data), int64(len(data)))
	if res.Found {
		t.Fatal("expected not found")
	}
	if res.AdjustedFileSize != int64(len(data)) {
		t.Fatal("file size must be unchanged when no tag present")
	}
}

func TestISO88591RoundTripRanges(t *testing.T) {
	for c := 0x20; c <= 0x7E; c++ {
		out := convertISO88591([]byte{byte(c)})
		if len(out) != 1 || out[0] != byte(c) {
			t.Fatalf("ascii range should round-trip as 1 byte identity: c=%x got %x", c, out)
		}
	}
	for c := 0xA0; c <= 0xFF; c++ {
		out := convertISO88591([]byte{byte(c)})
		if len(out) != 2 {
			t.Fatalf("c=%x: expected 2-byte utf8 encoding, got %d bytes", c, len(out))
		}
	}
}
