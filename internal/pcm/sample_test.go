/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package pcm

import (
	"math/rand"
	"testing"
)

func TestSatAddCommutative(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 10000; i++ {
		a := int16(r.Intn(65536) - 32768)
		b := int16(r.Intn(65536) - 32768)
		if SatAdd(a, b) != SatAdd(b, a) {
			t.Fatalf("SatAdd not commutative for %d,%d", a, b)
		}
	}
}

func TestSatAddNeverOverflows(t *testing.T) {
	cases := []struct{ a, b int16 }{
		{30000, 30000},
		{-30000, -30000},
		{32767, 1},
		{-32768, -1},
		{0, 0},
		{32766, 1},
		{32766, 2},
	}
	for _, c := range cases {
		got := SatAdd(c.a, c.b)
		if int32(got) > int32(MaxSample) || int32(got) < int32(MinSample) {
			t.Fatalf("SatAdd(%d,%d)=%d out of range", c.a, c.b, got)
		}
	}
}

func TestSatAddHeadroomOne(t *testing.T) {
	// both >=0, sum >= vmax-1 (32766) saturates to vmax.
	if got := SatAdd(32764, 1); got != 32765 {
		t.Fatalf("expected plain sum below headroom, got %d", got)
	}
	if got := SatAdd(32765, 2); got != MaxSample {
		t.Fatalf("expected saturation at headroom boundary, got %d", got)
	}
	if got := SatAdd(-32765, -1); got != -32766 {
		t.Fatalf("expected plain sum above headroom, got %d", got)
	}
	if got := SatAdd(-32767, -2); got != MinSample {
		t.Fatalf("expected saturation at headroom boundary, got %d", got)
	}
}

func TestExpandMonoToStereo(t *testing.T) {
	mono := []int16{1, 2, 3, -4}
	right := make([]int16, len(mono))
	ExpandMonoToStereo(mono, right)
	for i := range mono {
		if right[i] != mono[i] {
			t.Fatalf("index %d: want %d got %d", i, mono[i], right[i])
		}
	}
}

func TestClamp(t *testing.T) {
	if Clamp(40000) != MaxSample {
		t.Fatal("expected clamp to max")
	}
	if Clamp(-40000) != MinSample {
		t.Fatal("expected clamp to min")
	}
	if Clamp(100) != 100 {
		t.Fatal("expected passthrough")
	}
}
