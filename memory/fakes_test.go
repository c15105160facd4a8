// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: memory/fakes_test.go
// Summary: Test doubles for data sources and codecs used across memory tests.

package memory

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// fakeSource is a bounded byte slice mapped at base with unit size 1.
type fakeSource struct {
	mu       sync.Mutex
	id       string
	base     Address
	data     []byte
	readOnly map[Address]bool
	readErr  error
	writeErr error
	reads    int
	writes   int
}

func newFakeSource(size int) *fakeSource {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i)
	}
	return &fakeSource{id: "fake", data: data, readOnly: map[Address]bool{}}
}

func (s *fakeSource) ID() string { return s.id }

func (s *fakeSource) ValidRange() (Range, bool) {
	return Range{Start: s.base, End: s.base.Add(uint64(len(s.data)))}, true
}

func (s *fakeSource) ReadBytes(_ context.Context, address Address, units uint64) ([]MemoryByte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.readErr != nil {
		return nil, s.readErr
	}
	out := make([]MemoryByte, units)
	for i := range out {
		a := address.Add(uint64(i))
		if a < s.base || uint64(a-s.base) >= uint64(len(s.data)) {
			continue
		}
		out[i] = NewByte(s.data[a-s.base])
		if s.readOnly[a] {
			out[i].Flags = Readable
		}
	}
	return out, nil
}

func (s *fakeSource) WriteBytes(_ context.Context, address Address, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if s.writeErr != nil {
		return s.writeErr
	}
	if address < s.base || uint64(address-s.base)+uint64(len(data)) > uint64(len(s.data)) {
		return errors.New("out of bounds")
	}
	copy(s.data[address-s.base:], data)
	return nil
}

func (s *fakeSource) byteAt(a Address) byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[a-s.base]
}

func (s *fakeSource) set(a Address, v byte) {
	s.mu.Lock()
	s.data[a-s.base] = v
	s.mu.Unlock()
}

func (s *fakeSource) readCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

func (s *fakeSource) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// fakeLive adds connection tracking to fakeSource.
type fakeLive struct {
	*fakeSource
	connectErr  error
	connects    int
	disconnects int
	listeners   []SourceListener
}

func newFakeLive(size int) *fakeLive {
	return &fakeLive{fakeSource: newFakeSource(size)}
}

func (l *fakeLive) Connect(_ context.Context, listener SourceListener) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.connects++
	if l.connectErr != nil {
		return l.connectErr
	}
	l.listeners = append(l.listeners, listener)
	return nil
}

func (l *fakeLive) Disconnect(_ context.Context, listener SourceListener) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.disconnects++
	for i, cur := range l.listeners {
		if cur == listener {
			l.listeners = append(l.listeners[:i], l.listeners[i+1:]...)
			break
		}
	}
	return nil
}

// notify delivers ev to every connected listener.
func (l *fakeLive) notify(kind SourceEventKind) {
	l.mu.Lock()
	listeners := append([]SourceListener(nil), l.listeners...)
	l.mu.Unlock()
	for _, li := range listeners {
		li.SourceChanged(SourceEvent{Kind: kind, SourceID: l.ID()})
	}
}

func (l *fakeLive) counts() (int, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connects, l.disconnects
}

// testHex renders each byte as two hex digits.
type testHex struct{}

func (testHex) Name() string      { return "hex" }
func (testHex) CharsPerByte() int { return 2 }

func (testHex) Encode(data []MemoryByte, _ Address) string {
	var sb strings.Builder
	for _, b := range data {
		fmt.Fprintf(&sb, "%02X", b.Value)
	}
	return sb.String()
}

func (testHex) Decode(text string, size, _ int) ([]byte, error) {
	b, err := hex.DecodeString(text)
	if err != nil {
		return nil, err
	}
	if len(b) != size {
		return nil, fmt.Errorf("want %d bytes, got %d", size, len(b))
	}
	return b, nil
}

// eventLog records view events.
type eventLog struct {
	events []Event
}

func (l *eventLog) OnViewEvent(ev Event) { l.events = append(l.events, ev) }

func (l *eventLog) count(t EventType) int {
	n := 0
	for _, ev := range l.events {
		if ev.Type == t {
			n++
		}
	}
	return n
}

func testBufferConfig() BufferConfig {
	return BufferConfig{
		PreBufferLines:     20,
		PostBufferLines:    20,
		DefaultWindowLines: 24,
		EdgeThreshold:      3,
		DynamicLoad:        true,
	}
}

func mustGeometry(t interface{ Fatalf(string, ...any) }, unitSize, bytesPerColumn int) Geometry {
	g, err := NewGeometry(unitSize, bytesPerColumn)
	if err != nil {
		t.Fatalf("NewGeometry(%d, %d): %v", unitSize, bytesPerColumn, err)
	}
	return g
}
