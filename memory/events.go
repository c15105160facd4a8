// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: memory/events.go
// Summary: Change notifications a View delivers to its host.

package memory

import (
	"log"
	"sync"
)

// EventType identifies what changed in a view.
type EventType int

const (
	// WindowChanged means the visible lines or their content changed.
	WindowChanged EventType = iota
	// SelectionChanged means the selected address moved.
	SelectionChanged
	// GeometryChanged means the column layout changed.
	GeometryChanged
	// ErrorChanged means the view entered or left its error presentation.
	ErrorChanged
)

func (t EventType) String() string {
	switch t {
	case WindowChanged:
		return "WindowChanged"
	case SelectionChanged:
		return "SelectionChanged"
	case GeometryChanged:
		return "GeometryChanged"
	case ErrorChanged:
		return "ErrorChanged"
	}
	return "Unknown"
}

// Event is delivered to view listeners on the UI thread.
type Event struct {
	Type     EventType
	Selected Address
	Top      Address
	Err      error
}

// Listener receives view events.
type Listener interface {
	OnViewEvent(ev Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ev Event)

func (f ListenerFunc) OnViewEvent(ev Event) { f(ev) }

// EventDispatcher broadcasts view events to subscribed listeners.
type EventDispatcher struct {
	mu        sync.RWMutex
	listeners []Listener
}

// NewEventDispatcher creates an empty dispatcher.
func NewEventDispatcher() *EventDispatcher {
	return &EventDispatcher{listeners: make([]Listener, 0)}
}

// Subscribe adds a listener.
func (d *EventDispatcher) Subscribe(l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, l)
}

// Unsubscribe removes a listener. Function listeners cannot be compared
// and must be removed with Clear.
func (d *EventDispatcher) Unsubscribe(l Listener) {
	if _, ok := l.(ListenerFunc); ok {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, cur := range d.listeners {
		if _, ok := cur.(ListenerFunc); ok {
			continue
		}
		if cur == l {
			d.listeners = append(d.listeners[:i], d.listeners[i+1:]...)
			break
		}
	}
}

// Clear removes every listener.
func (d *EventDispatcher) Clear() {
	d.mu.Lock()
	d.listeners = nil
	d.mu.Unlock()
}

// Broadcast sends ev to every listener. A panicking listener is logged and
// does not prevent delivery to the others.
func (d *EventDispatcher) Broadcast(ev Event) {
	d.mu.RLock()
	listeners := make([]Listener, len(d.listeners))
	copy(listeners, d.listeners)
	d.mu.RUnlock()
	for _, l := range listeners {
		deliver(l, ev)
	}
}

func deliver(l Listener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Memview: listener panicked on %s: %v", ev.Type, r)
		}
	}()
	l.OnViewEvent(ev)
}
