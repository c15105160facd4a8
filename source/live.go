// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: source/live.go
// Summary: Sparse, unbounded data source that must be connected to update.
//
// Architecture:
//
//	Live models an expensive target such as a running process: memory is a
//	set of mapped pages in a 64-bit address space, unmapped addresses read
//	as unreadable, and change notifications only flow to connected
//	listeners. A Live source can run a Mutator on a ticker while at least
//	one listener is connected, which is how the demo shows changing memory.
//
//	The base address is an "expression" that can be moved with SetBase;
//	views notice on their next refresh.

package source

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/framegrace/texelmem/memory"
)

// PageSize is the mapping granularity of a Live source, in bytes.
const PageSize = 4096

// ErrNotMapped is returned for writes to unmapped memory.
var ErrNotMapped = errors.New("source: address not mapped")

// ErrTerminated is returned once a Live source has been terminated.
var ErrTerminated = errors.New("source: terminated")

// Mutator changes a live source's memory; it runs on the ticker goroutine.
type Mutator func(l *Live)

// Live is safe for concurrent use.
type Live struct {
	id string

	mu         sync.Mutex
	pages      map[uint64][]byte
	base       memory.Address
	listeners  []memory.SourceListener
	terminated bool

	mutator  Mutator
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}

	connects    int
	disconnects int
}

// NewLive creates an empty live source.
func NewLive(id string) *Live {
	return &Live{id: id, pages: make(map[uint64][]byte)}
}

// SetMutator runs m every interval while any listener is connected.
func (l *Live) SetMutator(m Mutator, interval time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mutator = m
	l.interval = interval
}

// Map makes [address, address+len(data)) readable with data.
func (l *Live) Map(address memory.Address, data []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, b := range data {
		a := uint64(address) + uint64(i)
		page := l.pages[a/PageSize]
		if page == nil {
			page = make([]byte, PageSize)
			l.pages[a/PageSize] = page
		}
		page[a%PageSize] = b
	}
}

// SetBase moves the base address.
func (l *Live) SetBase(address memory.Address) {
	l.mu.Lock()
	l.base = address
	l.mu.Unlock()
}

func (l *Live) ID() string { return l.id }

// AddressSize implements memory.AddressSizer: addresses are 64-bit.
func (l *Live) AddressSize() int { return 8 }

// BaseAddress implements memory.BaseAddresser.
func (l *Live) BaseAddress() (memory.Address, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.base, true
}

// ValidRange implements memory.DataSource; a live source is unbounded.
func (l *Live) ValidRange() (memory.Range, bool) {
	return memory.Range{}, false
}

// ReadBytes implements memory.DataSource.
func (l *Live) ReadBytes(ctx context.Context, address memory.Address, units uint64) ([]memory.MemoryByte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.terminated {
		return nil, ErrTerminated
	}
	out := make([]memory.MemoryByte, units)
	for i := range out {
		a := uint64(address) + uint64(i)
		if a < uint64(address) {
			break
		}
		if page := l.pages[a/PageSize]; page != nil {
			out[i] = memory.NewByte(page[a%PageSize])
		}
	}
	return out, nil
}

// WriteBytes implements memory.DataSource. Every byte must be mapped.
func (l *Live) WriteBytes(ctx context.Context, address memory.Address, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.terminated {
		return ErrTerminated
	}
	for i := range data {
		a := uint64(address) + uint64(i)
		if l.pages[a/PageSize] == nil {
			return fmt.Errorf("%w: %X", ErrNotMapped, a)
		}
	}
	for i, b := range data {
		a := uint64(address) + uint64(i)
		l.pages[a/PageSize][a%PageSize] = b
	}
	return nil
}

// CanWrite implements memory.WriteGuard.
func (l *Live) CanWrite(address memory.Address, units uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.terminated {
		return false
	}
	for a := uint64(address); a < uint64(address)+units; a++ {
		if l.pages[a/PageSize] == nil {
			return false
		}
	}
	return true
}

// Connect implements memory.Connector.
func (l *Live) Connect(ctx context.Context, listener memory.SourceListener) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.terminated {
		return ErrTerminated
	}
	l.connects++
	l.listeners = append(l.listeners, listener)
	if len(l.listeners) == 1 && l.mutator != nil && l.interval > 0 {
		l.startLocked()
	}
	return nil
}

// Disconnect implements memory.Connector.
func (l *Live) Disconnect(ctx context.Context, listener memory.SourceListener) error {
	l.mu.Lock()
	l.disconnects++
	for i, cur := range l.listeners {
		if cur == listener {
			l.listeners = append(l.listeners[:i], l.listeners[i+1:]...)
			break
		}
	}
	var done chan struct{}
	if len(l.listeners) == 0 && l.stop != nil {
		close(l.stop)
		done = l.done
		l.stop, l.done = nil, nil
	}
	l.mu.Unlock()
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Connections returns how many Connect and Disconnect calls were served.
func (l *Live) Connections() (connects, disconnects int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connects, l.disconnects
}

func (l *Live) startLocked() {
	stop, done := make(chan struct{}), make(chan struct{})
	l.stop, l.done = stop, done
	m, interval := l.mutator, l.interval
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				m(l)
				l.Notify(memory.SourceContentChanged)
			}
		}
	}()
}

// Notify delivers kind to every connected listener.
func (l *Live) Notify(kind memory.SourceEventKind) {
	l.mu.Lock()
	listeners := make([]memory.SourceListener, len(l.listeners))
	copy(listeners, l.listeners)
	l.mu.Unlock()
	ev := memory.SourceEvent{Kind: kind, SourceID: l.id}
	for _, listener := range listeners {
		listener.SourceChanged(ev)
	}
}

// Terminate ends the target. Reads and writes fail from now on.
func (l *Live) Terminate() {
	l.mu.Lock()
	if l.terminated {
		l.mu.Unlock()
		return
	}
	l.terminated = true
	if l.stop != nil {
		close(l.stop)
		l.stop, l.done = nil, nil
	}
	l.mu.Unlock()
	log.Printf("Source: %s terminated", l.id)
	l.Notify(memory.SourceTerminated)
}
