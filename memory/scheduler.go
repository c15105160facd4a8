// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: memory/scheduler.go
// Summary: Moves work between the UI thread and background workers.
//
// Architecture:
//
//	All view state is owned by a single UI goroutine. Fetches and
//	connect/disconnect requests run through Background; their results are
//	handed back with Post and applied when the host drains the queue on the
//	UI goroutine. Nothing started by Background may touch view state
//	directly.

package memory

import "sync"

// Scheduler dispatches work off and back onto the UI thread.
type Scheduler interface {
	// Background runs fn on a worker.
	Background(fn func())
	// Post queues fn to run on the UI thread.
	Post(fn func())
}

// InlineScheduler runs everything immediately on the calling goroutine.
// It suits tests and hosts whose sources are local and fast.
type InlineScheduler struct{}

func (InlineScheduler) Background(fn func()) { fn() }
func (InlineScheduler) Post(fn func())       { fn() }

// LoopScheduler runs background work on goroutines and queues UI work
// until the host calls Drain from its UI goroutine.
type LoopScheduler struct {
	mu     sync.Mutex
	queue  []func()
	notify func()
	wg     sync.WaitGroup
}

// NewLoopScheduler creates a scheduler with an empty queue.
func NewLoopScheduler() *LoopScheduler {
	return &LoopScheduler{}
}

// SetNotifier registers fn to be called (from any goroutine) whenever work
// is posted. The tcell runner uses it to wake its event loop.
func (s *LoopScheduler) SetNotifier(fn func()) {
	s.mu.Lock()
	s.notify = fn
	s.mu.Unlock()
}

// Background starts fn on a new goroutine.
func (s *LoopScheduler) Background(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

// Post queues fn for the UI thread.
func (s *LoopScheduler) Post(fn func()) {
	s.mu.Lock()
	s.queue = append(s.queue, fn)
	notify := s.notify
	s.mu.Unlock()
	if notify != nil {
		notify()
	}
}

// Drain runs all queued UI work and returns how many functions ran.
// Work posted while draining runs in the same call.
func (s *LoopScheduler) Drain() int {
	ran := 0
	for {
		s.mu.Lock()
		queue := s.queue
		s.queue = nil
		s.mu.Unlock()
		if len(queue) == 0 {
			return ran
		}
		for _, fn := range queue {
			fn()
			ran++
		}
	}
}

// Pending returns the number of queued UI functions.
func (s *LoopScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Wait blocks until all background work has finished. Primarily useful for tests.
func (s *LoopScheduler) Wait() {
	s.wg.Wait()
}
