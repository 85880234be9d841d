// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package parallel

import (
	"runtime"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewPoolDefaultsToGOMAXPROCS(t *testing.T) {
	p := NewPool(0)
	defer p.Close()
	if got, want := p.Workers(), runtime.GOMAXPROCS(0); got != want {
		t.Errorf("Workers() = %d, want %d", got, want)
	}
}

func TestPoolRun(t *testing.T) {
	p := NewPool(4)
	defer p.Close()

	var n atomic.Int64
	work := make([]func(), 100)
	for i := range work {
		work[i] = func() { n.Add(1) }
	}
	p.Run(work)
	if got := n.Load(); got != 100 {
		t.Errorf("ran %d items, want 100", got)
	}
	p.Run(nil)
}

func TestPoolRunAfterClose(t *testing.T) {
	p := NewPool(2)
	p.Close()
	p.Close()

	ran := false
	p.Run([]func(){func() { ran = true }})
	if !ran {
		t.Error("Run after Close did not execute inline")
	}
}

func TestBands(t *testing.T) {
	tests := []struct {
		height, n int
		want      int
	}{
		{0, 4, 0},
		{10, 4, 1},
		{32, 4, 2},
		{1080, 8, 8},
		{1081, 8, 8},
		{100, 1, 1},
	}
	for _, tt := range tests {
		bands := Bands(tt.height, tt.n)
		if len(bands) != tt.want {
			t.Errorf("Bands(%d, %d) = %d bands, want %d", tt.height, tt.n, len(bands), tt.want)
			continue
		}
		next := 0
		for _, b := range bands {
			if b[0] != next || b[1] <= b[0] {
				t.Fatalf("Bands(%d, %d) not contiguous: %v", tt.height, tt.n, bands)
			}
			next = b[1]
		}
		if len(bands) > 0 && next != tt.height {
			t.Errorf("Bands(%d, %d) ends at %d", tt.height, tt.n, next)
		}
	}
}

func TestPoolRowsCoversEveryRow(t *testing.T) {
	p := NewPool(3)
	defer p.Close()

	const h = 200
	var hits [h]atomic.Int32
	p.Rows(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			hits[y].Add(1)
		}
	})
	for y := range hits {
		if got := hits[y].Load(); got != 1 {
			t.Fatalf("row %d visited %d times", y, got)
		}
	}
}

func TestPoolRunRacingClose(t *testing.T) {
	for range 50 {
		p := NewPool(4)
		var n atomic.Int64
		work := make([]func(), 64)
		for i := range work {
			work[i] = func() { n.Add(1) }
		}

		ran := make(chan struct{})
		go func() {
			defer close(ran)
			p.Run(work)
		}()
		p.Close()

		select {
		case <-ran:
		case <-time.After(5 * time.Second):
			t.Fatal("Run did not return while the pool closed")
		}
		if got := n.Load(); got != int64(len(work)) {
			t.Fatalf("ran %d items, want %d", got, len(work))
		}
	}
}
