// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package profile keeps rolling averages of per-pass execution times and
// formats them for periodic reporting.
package profile

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// DefaultWindow is the number of samples a Rolling average keeps.
const DefaultWindow = 24

// Rolling is a fixed-window moving average. Adding a sample past the window
// evicts the oldest one in O(1).
type Rolling struct {
	buf  []time.Duration
	head int // index of the oldest sample
	n    int
	sum  time.Duration
}

// NewRolling creates a rolling average over window samples.
func NewRolling(window int) *Rolling {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Rolling{buf: make([]time.Duration, window)}
}

// Add records a sample.
func (r *Rolling) Add(d time.Duration) {
	if r.n == len(r.buf) {
		r.sum -= r.buf[r.head]
		r.buf[r.head] = d
		r.head = (r.head + 1) % len(r.buf)
	} else {
		r.buf[(r.head+r.n)%len(r.buf)] = d
		r.n++
	}
	r.sum += d
}

// Average returns the mean of the retained samples, 0 when empty.
func (r *Rolling) Average() time.Duration {
	if r.n == 0 {
		return 0
	}
	return r.sum / time.Duration(r.n)
}

// Len returns the number of retained samples.
func (r *Rolling) Len() int { return r.n }

// Reset drops all samples.
func (r *Rolling) Reset() {
	r.head, r.n, r.sum = 0, 0, 0
}

// Pass is a snapshot of one pass's rolling average.
type Pass struct {
	Name    string
	Average time.Duration
	Samples int
}

// Set tracks one Rolling per named pass. It is safe for concurrent use.
type Set struct {
	mu     sync.Mutex
	names  []string
	passes map[string]*Rolling
}

// NewSet creates a set with the given passes, reported in that order.
func NewSet(window int, names ...string) *Set {
	s := &Set{names: names, passes: make(map[string]*Rolling, len(names))}
	for _, n := range names {
		s.passes[n] = NewRolling(window)
	}
	return s
}

// Add records a sample for a pass. Unknown names are ignored.
func (s *Set) Add(name string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.passes[name]; ok {
		r.Add(d)
	}
}

// Reset clears every pass.
func (s *Set) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.passes {
		r.Reset()
	}
}

// Snapshot returns the current averages in declaration order.
func (s *Set) Snapshot() []Pass {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Pass, 0, len(s.names))
	for _, n := range s.names {
		r := s.passes[n]
		out = append(out, Pass{Name: n, Average: r.Average(), Samples: r.Len()})
	}
	return out
}

// Summary formats passes as "positioning:  420µs effects:      -".
// Passes without samples print "-".
func Summary(passes []Pass) string {
	var b strings.Builder
	for i, p := range passes {
		if i > 0 {
			b.WriteByte(' ')
		}
		v := "-"
		if p.Samples > 0 {
			v = p.Average.Round(10 * time.Microsecond).String()
		}
		fmt.Fprintf(&b, "%s:%7s", p.Name, v)
	}
	return b.String()
}
