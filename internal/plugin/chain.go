/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package plugin implements the per-track sample processing chain that
// sits between the input demultiplexer and the encoder: ReplayGain
// scaling today, with room for more stages later.
package plugin

import "github.com/friendsincode/grimnir-ices/internal/pcm"

// TrackInfo is the subset of a track's metadata a plugin may need when a
// new track starts.
type TrackInfo struct {
	GainDB float64
	// Peak is the linear track peak amplitude (not dB), 0 if unknown.
	Peak float64
}

// Plugin is one stage of the processing chain. Init is called once at
// startup, NewTrack at the start of every track, Process on every buffer
// of decoded samples (in place), and Shutdown once at teardown.
type Plugin interface {
	Name() string
	Init() error
	NewTrack(info TrackInfo)
	Process(buf *pcm.Buffer)
	Shutdown()
}

// Chain runs an ordered list of plugins over each buffer.
type Chain struct {
	plugins []Plugin
}

// NewChain builds a chain from the given plugins, in processing order.
func NewChain(plugins ...Plugin) *Chain {
	return &Chain{plugins: plugins}
}

// Len reports the number of plugins in the chain.
func (c *Chain) Len() int { return len(c.plugins) }

func (c *Chain) Init() error {
	for _, p := range c.plugins {
		if err := p.Init(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Chain) NewTrack(info TrackInfo) {
	for _, p := range c.plugins {
		p.NewTrack(info)
	}
}

func (c *Chain) Process(buf *pcm.Buffer) {
	for _, p := range c.plugins {
		p.Process(buf)
	}
}

func (c *Chain) Shutdown() {
	for _, p := range c.plugins {
		p.Shutdown()
	}
}
