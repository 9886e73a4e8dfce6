/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package id3 parses ID3v1 and ID3v2 (2.2/2.3/2.4) tags: artist/title text
// frames converted to a single canonical UTF-8 encoding, and ReplayGain
// track-gain extraction from TXXX/RVA2 frames.
package id3

// decodeSynchsafe4 decodes a 4-byte big-endian synchsafe integer (7 usable
// bits per byte), used for the ID3v2 header's tag size and for ID3v2.4
// frame sizes.
func decodeSynchsafe4(b []byte) int {
	return int(b[3]) | int(b[2])<<7 | int(b[1])<<14 | int(b[0])<<21
}

// decodeSynchsafe3 decodes a 3-byte big-endian synchsafe integer, used for
// ID3v2.2 frame sizes.
func decodeSynchsafe3(b []byte) int {
	return int(b[2]) | int(b[1])<<7 | int(b[0])<<14
}

// decodeUnsafe32 decodes a plain big-endian 32-bit integer. ID3v2.3 frame
// sizes are deliberately decoded this way (not synchsafe): this is a
// long-standing workaround for a common encoder bug in v2.3 taggers that
// write frame sizes as plain big-endian instead of synchsafe. Preserved
// intentionally, not a mistake.
func decodeUnsafe32(b []byte) int {
	return int(b[3]) | int(b[2])<<8 | int(b[1])<<16 | int(b[0])<<24
}
