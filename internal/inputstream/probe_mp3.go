/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package inputstream

import (
	"bytes"

	"github.com/friendsincode/grimnir-ices/internal/id3"
	"github.com/friendsincode/grimnir-ices/internal/mp3frame"
)

// probeMP3 implements 4.C's fixed recipe: decline on a leading "OggS",
// consume a leading ID3v2 tag if present, then walk a sliding window
// looking for MPEG frame sync. On success it also trims a trailing
// ID3v1 tag (shrinking file_size by 128) and a short/spurious trailing
// frame.
func (is *InputStream) probeMP3(prologue []byte) (probeResult, error) {
	if bytes.HasPrefix(prologue, []byte("OggS")) {
		return probeNotThisFormat, nil
	}

	searchFrom := prologue
	var tag *id3.Tag
	if bytes.HasPrefix(prologue, []byte("ID3")) {
		r := bytes.NewReader(prologue)
		t, err := id3.ParseV2(r)
		if err != nil {
			return probeNotThisFormat, nil
		}
		tag = t
		consumed := len(prologue) - r.Len()
		if consumed > len(prologue) {
			consumed = len(prologue)
		}
		searchFrom = prologue[consumed:]
	}

	buf := mp3frame.NewBuffer(bytes.NewReader(nil), searchFrom)
	lock := mp3frame.Locate(buf)
	if lock.State == mp3frame.Failed {
		return probeNotThisFormat, nil
	}

	is.Capability = DecoderBoth
	is.mp3Locked = lock.Header
	is.mp3VBR = lock.State == mp3frame.LockedVBR
	is.SampleRateHz = lock.Header.SampleRateHz
	is.Channels = lock.Header.Channels
	if !is.mp3VBR {
		is.BitrateKbps = lock.Header.BitrateKbps
	}

	if is.seekable && is.file != nil {
		v1 := id3.ParseV1(is.file, is.fileSize)
		if v1.Found {
			is.fileSize = v1.AdjustedFileSize
			is.Metadata.Artist = v1.Artist
			is.Metadata.Title = v1.Title
		}
		is.fileSize = mp3frame.TrimFile(is.file, 0, is.fileSize, lock.Header)
	}

	if tag != nil {
		if tag.Artist != "" {
			is.Metadata.Artist = tag.Artist
		}
		if tag.Title != "" {
			is.Metadata.Title = tag.Title
		}
		if tag.GainDB != 0 {
			is.Metadata.GainDB = tag.GainDB
		}
	}

	return probeOK, nil
}
