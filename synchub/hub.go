// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: synchub/hub.go
// Summary: Publish/subscribe hub that keeps views of one block in step.
//
// Architecture:
//
//	Values are keyed by (source ID, property). Publish stores the value
//	and notifies every listener of that source that asked for the
//	property, except the publisher. A listener reacting to a change may
//	publish again; a publish to a key that is already being delivered is
//	queued and delivered after the current round, so notifications never
//	nest on the same key.
//
//	One view per source is the active provider. Views only publish while
//	they are the provider or while no provider is set.

package synchub

import (
	"log"
	"sync"
)

// Property names a synchronized view setting.
type Property int

const (
	// SelectedAddress is the selected unit (memory.Address).
	SelectedAddress Property = iota
	// ColumnSize is the number of bytes per column (int).
	ColumnSize
	// TopAddress is the first visible line (memory.Address).
	TopAddress
)

// AllProperties lists every synchronized property.
var AllProperties = []Property{SelectedAddress, ColumnSize, TopAddress}

func (p Property) String() string {
	switch p {
	case SelectedAddress:
		return "selectedAddress"
	case ColumnSize:
		return "columnSize"
	case TopAddress:
		return "topAddress"
	}
	return "unknown"
}

// Listener receives changes published by peers. A returned error is
// logged and does not affect other listeners.
type Listener interface {
	PropertyChanged(sourceID string, prop Property, value any) error
}

type key struct {
	source string
	prop   Property
}

type subscription struct {
	listener Listener
	props    map[Property]bool
}

func (s *subscription) wants(p Property) bool {
	return s.props == nil || s.props[p]
}

type publication struct {
	value     any
	publisher any
}

// Hub is safe for concurrent use.
type Hub struct {
	mu         sync.Mutex
	values     map[key]any
	subs       map[string][]*subscription
	providers  map[string]any
	delivering map[key]bool
	queued     map[key][]publication
}

// New creates an empty hub.
func New() *Hub {
	return &Hub{
		values:     make(map[key]any),
		subs:       make(map[string][]*subscription),
		providers:  make(map[string]any),
		delivering: make(map[key]bool),
		queued:     make(map[key][]publication),
	}
}

// Subscribe registers l for changes of props on sourceID. Nil or empty
// props means every property. Subscribing again replaces the property set.
func (h *Hub) Subscribe(sourceID string, props []Property, l Listener) {
	sub := &subscription{listener: l}
	if len(props) > 0 {
		sub.props = make(map[Property]bool, len(props))
		for _, p := range props {
			sub.props[p] = true
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	list := h.subs[sourceID]
	for i, s := range list {
		if s.listener == l {
			list[i] = sub
			return
		}
	}
	h.subs[sourceID] = append(list, sub)
}

// Unsubscribe removes l from sourceID. If l was the active provider the
// source is left without one.
func (h *Hub) Unsubscribe(sourceID string, l Listener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	list := h.subs[sourceID]
	for i, s := range list {
		if s.listener == l {
			h.subs[sourceID] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(h.subs[sourceID]) == 0 {
		delete(h.subs, sourceID)
	}
	if p, ok := h.providers[sourceID]; ok && p == any(l) {
		delete(h.providers, sourceID)
	}
}

// Subscribers returns the number of listeners registered for sourceID.
func (h *Hub) Subscribers(sourceID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[sourceID])
}

// CurrentValue returns the last value published for the property.
func (h *Hub) CurrentValue(sourceID string, prop Property) (any, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.values[key{sourceID, prop}]
	return v, ok
}

// SetActiveProvider makes provider the publishing view of sourceID.
// Nothing is republished.
func (h *Hub) SetActiveProvider(sourceID string, provider any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if provider == nil {
		delete(h.providers, sourceID)
		return
	}
	h.providers[sourceID] = provider
}

// ActiveProvider returns the publishing view of sourceID, if any.
func (h *Hub) ActiveProvider(sourceID string) (any, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.providers[sourceID]
	return p, ok
}

// MayPublish reports whether publisher is allowed to publish for sourceID:
// it is the active provider or no provider is set.
func (h *Hub) MayPublish(sourceID string, publisher any) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.providers[sourceID]
	return !ok || p == publisher
}

// Publish stores value and notifies every other listener of the property.
func (h *Hub) Publish(sourceID string, prop Property, value, publisher any) {
	k := key{sourceID, prop}

	h.mu.Lock()
	h.values[k] = value
	if h.delivering[k] {
		h.queued[k] = append(h.queued[k], publication{value, publisher})
		h.mu.Unlock()
		return
	}
	h.delivering[k] = true
	h.mu.Unlock()

	// The key is released even if delivery unwinds.
	released := false
	defer func() {
		if released {
			return
		}
		h.mu.Lock()
		delete(h.queued, k)
		delete(h.delivering, k)
		h.mu.Unlock()
	}()

	next := publication{value, publisher}
	for {
		h.deliver(k, next)

		h.mu.Lock()
		queue := h.queued[k]
		if len(queue) == 0 {
			delete(h.queued, k)
			delete(h.delivering, k)
			released = true
			h.mu.Unlock()
			return
		}
		next = queue[0]
		h.queued[k] = queue[1:]
		h.mu.Unlock()
	}
}

func (h *Hub) deliver(k key, pub publication) {
	h.mu.Lock()
	var targets []Listener
	for _, s := range h.subs[k.source] {
		if s.wants(k.prop) && any(s.listener) != pub.publisher {
			targets = append(targets, s.listener)
		}
	}
	h.mu.Unlock()

	for _, l := range targets {
		notify(l, k, pub.value)
	}
}

func notify(l Listener, k key, value any) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Synchub: %s %s listener panicked: %v", k.source, k.prop, r)
		}
	}()
	if err := l.PropertyChanged(k.source, k.prop, value); err != nil {
		log.Printf("Synchub: %s %s listener failed: %v", k.source, k.prop, err)
	}
}
