/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package mp3frame

import "io"

// Buffer is a growable read-ahead window over an underlying reader, used by
// the synchroniser to look several frames ahead without losing already-read
// bytes (mirrors ices0's mp3_fill_buffer/ices_mp3_in_t pairing).
type Buffer struct {
	data []byte
	pos  int
	r    io.Reader
	eof  bool
}

// NewBuffer wraps r, seeding the window with an already-read prologue.
func NewBuffer(r io.Reader, prologue []byte) *Buffer {
	b := &Buffer{r: r}
	b.data = append(b.data, prologue...)
	return b
}

// Len returns the number of unconsumed bytes currently buffered.
func (b *Buffer) Len() int {
	return len(b.data) - b.pos
}

// Bytes returns the unconsumed portion of the buffer without advancing pos.
func (b *Buffer) Bytes() []byte {
	return b.data[b.pos:]
}

// Advance discards n bytes from the front of the unconsumed window.
func (b *Buffer) Advance(n int) {
	b.pos += n
}

// Fill ensures at least n unconsumed bytes are available, reading more from
// the underlying reader as needed. It returns false if EOF was reached
// before n bytes became available.
func (b *Buffer) Fill(n int) bool {
	if b.Len() >= n {
		return true
	}
	if b.eof {
		return false
	}
	// Compact: drop already-consumed bytes so growth stays bounded.
	if b.pos > 0 {
		b.data = append(b.data[:0], b.data[b.pos:]...)
		b.pos = 0
	}
	need := n - len(b.data)
	chunk := make([]byte, 4096)
	for need > 0 {
		rn, err := b.r.Read(chunk)
		if rn > 0 {
			b.data = append(b.data, chunk[:rn]...)
			need -= rn
		}
		if err != nil {
			b.eof = true
			break
		}
	}
	return b.Len() >= n
}
