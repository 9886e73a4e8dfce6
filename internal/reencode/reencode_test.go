/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package reencode

import (
	"io"
	"testing"

	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger { return zerolog.New(io.Discard) }

func TestBuildPipelineIncludesConfiguredBitrate(t *testing.T) {
	e := NewEncoder(testLogger(), StreamEncodeConfig{
		BitrateKbps:    128,
		InSampleRateHz: 44100,
		InChannels:     2,
	})
	args := e.buildPipeline()
	found := false
	for _, a := range args {
		if a == "bitrate=128" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected bitrate=128 in pipeline args: %v", args)
	}
}

func TestBuildPipelineForcesMonoWhenConfigured(t *testing.T) {
	e := NewEncoder(testLogger(), StreamEncodeConfig{
		BitrateKbps:    96,
		InSampleRateHz: 44100,
		InChannels:     2,
		OutChannels:    1,
	})
	args := e.buildPipeline()
	found := false
	for _, a := range args {
		if a == "audio/x-raw,channels=1" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected mono caps in pipeline args: %v", args)
	}
}
