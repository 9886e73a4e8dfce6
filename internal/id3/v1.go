/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package id3

import (
	"bytes"
	"io"
)

// V1Result is what ParseV1 extracted, plus the file size adjusted to
// exclude the 128-byte trailer when a tag was found.
type V1Result struct {
	Found         bool
	Artist, Title string
	// AdjustedFileSize is fileSize - 128 when a "TAG" trailer was found,
	// otherwise fileSize unchanged.
	AdjustedFileSize int64
}

// ParseV1 reads the last 128 bytes of a file looking for the "TAG" marker.
// ra must support reads at arbitrary offsets; fileSize is the file's
// current known size (0 = unknown, in which case ParseV1 is a no-op).
func ParseV1(ra io.ReaderAt, fileSize int64) V1Result {
	res := V1Result{AdjustedFileSize: fileSize}
	if fileSize == 0 || fileSize < 128 {
		return res
	}

	buf := make([]byte, 128)
	if _, err := ra.ReadAt(buf, fileSize-128); err != nil && err != io.EOF {
		return res
	}
	if !bytes.Equal(buf[:3], []byte("TAG")) {
		return res
	}

	res.Found = true
	res.AdjustedFileSize = fileSize - 128

	title := trimTrailingSpaces(buf[3:33])
	artist := trimTrailingSpaces(buf[33:63])
	res.Title = string(convertISO88591(title))
	res.Artist = string(convertISO88591(artist))
	return res
}

func trimTrailingSpaces(b []byte) []byte {
	// Mirrors the original's right-trim of the raw C-string (stops at the
	// first embedded NUL, then strips trailing spaces).
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	end := len(b)
	for end > 0 && b[end-1] == ' ' {
		end--
	}
	return b[:end]
}
