// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: memory/event_lock.go
// Summary: Single-owner guard against re-entrant navigation events.

package memory

// eventLock breaks the loop "scrollbar moved -> reload -> table
// repositioned -> scrollbar moved". Only UI-thread code touches it.
type eventLock struct {
	held bool
}

// tryAcquire takes the lock if it is free.
func (l *eventLock) tryAcquire() bool {
	if l.held {
		return false
	}
	l.held = true
	return true
}

func (l *eventLock) release() {
	l.held = false
}

func (l *eventLock) locked() bool {
	return l.held
}
