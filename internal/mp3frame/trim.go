/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package mp3frame

import "io"

const trimChunkSize = 4096

// TrimFile scans backward from fileSize looking for a trailing frame whose
// header agrees with locked on version/layer/samplerate (and bitrate, if
// locked is CBR). It returns the adjusted file size: smaller than fileSize
// if a short trailing frame must be excluded, larger only in the sense that
// a spurious tail past the last full frame is dropped (the returned value
// is always <= fileSize). cur is the current read offset; the scan never
// looks before it. ra must support ReadAt; fileSize and cur are absolute
// byte offsets.
func TrimFile(ra io.ReaderAt, cur, fileSize int64, locked Header) int64 {
	if fileSize == 0 {
		return fileSize
	}

	buf := make([]byte, trimChunkSize)
	end := fileSize

	for end > cur {
		start := end - int64(len(buf))
		if start < cur {
			start = cur
		}

		n, _ := readAtFull(ra, buf[:end-start], start)
		if n <= 0 {
			return fileSize
		}
		chunk := buf[:n]
		end = start

		for i := n - 4; i >= 0; i-- {
			h, ok := ParseHeader(chunk[i:])
			if !ok {
				continue
			}
			framelen := FrameLength(h)
			if framelen == 0 {
				continue
			}
			if h.Version != locked.Version || h.Layer != locked.Layer || h.SampleRateHz != locked.SampleRateHz {
				continue
			}
			if locked.BitrateKbps != 0 && locked.BitrateKbps != h.BitrateKbps {
				continue
			}

			trimmed := start + int64(i) + int64(framelen)
			if trimmed < fileSize {
				return trimmed
			}
			if trimmed > fileSize {
				return start + int64(i)
			}
			return fileSize
		}
	}

	return fileSize
}

func readAtFull(ra io.ReaderAt, buf []byte, off int64) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := ra.ReadAt(buf[total:], off+int64(total))
		total += n
		if err != nil {
			if err == io.EOF {
				return total, nil
			}
			return total, err
		}
		if n == 0 {
			break
		}
	}
	return total, nil
}
