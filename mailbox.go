// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package frameproc

import "sync"

// mailbox is the scheduler's unbounded command inbox.
//
// put never blocks: batches are appended under a mutex and the loop is
// woken through a one-slot channel. A pending wake is never lost because
// the loop drains every batch after each wake.
type mailbox struct {
	mu      sync.Mutex
	batches [][]RenderCmd
	closed  bool
	wake    chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{wake: make(chan struct{}, 1)}
}

// put enqueues one batch. It reports false after close.
func (m *mailbox) put(batch []RenderCmd) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.batches = append(m.batches, batch)
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
	return true
}

// take removes and returns every queued batch in arrival order.
func (m *mailbox) take() [][]RenderCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.batches
	m.batches = nil
	return b
}

func (m *mailbox) close() {
	m.mu.Lock()
	m.closed = true
	m.batches = nil
	m.mu.Unlock()
}
