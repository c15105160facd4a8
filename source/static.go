// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: source/static.go
// Summary: Bounded in-memory data source over a byte slice.

package source

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/framegrace/texelmem/memory"
)

// ErrOutOfBounds is returned for writes outside a bounded source.
var ErrOutOfBounds = errors.New("source: address out of bounds")

// ErrReadOnly is returned for writes to a read-only source.
var ErrReadOnly = errors.New("source: read-only")

// Static serves a fixed byte slice mapped at a base address. It is safe
// for concurrent use.
type Static struct {
	id       string
	base     memory.Address
	unitSize int

	mu       sync.RWMutex
	data     []byte
	readOnly bool
}

// NewStatic maps data at base. len(data) is truncated to a whole number of
// units. The slice is copied.
func NewStatic(id string, base memory.Address, data []byte, unitSize int) *Static {
	if unitSize < 1 {
		unitSize = 1
	}
	n := len(data) / unitSize * unitSize
	buf := make([]byte, n)
	copy(buf, data[:n])
	return &Static{id: id, base: base, unitSize: unitSize, data: buf}
}

// SetReadOnly marks every byte read-only.
func (s *Static) SetReadOnly(readOnly bool) {
	s.mu.Lock()
	s.readOnly = readOnly
	s.mu.Unlock()
}

func (s *Static) ID() string    { return s.id }
func (s *Static) UnitSize() int { return s.unitSize }

// BaseAddress implements memory.BaseAddresser.
func (s *Static) BaseAddress() (memory.Address, bool) {
	return s.base, true
}

// ValidRange implements memory.DataSource.
func (s *Static) ValidRange() (memory.Range, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return memory.Range{Start: s.base, End: s.base.Add(uint64(len(s.data) / s.unitSize))}, true
}

// ReadBytes implements memory.DataSource. Units outside the mapped range
// come back unreadable.
func (s *Static) ReadBytes(ctx context.Context, address memory.Address, units uint64) ([]memory.MemoryByte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]memory.MemoryByte, units*uint64(s.unitSize))
	flags := memory.Readable | memory.Writable
	if s.readOnly {
		flags = memory.Readable
	}
	for i := range out {
		off, ok := s.offset(address, i)
		if !ok {
			continue
		}
		out[i] = memory.MemoryByte{Value: s.data[off], Flags: flags}
	}
	return out, nil
}

// offset maps byte i of a read at address to an index into data.
func (s *Static) offset(address memory.Address, i int) (int, bool) {
	unit := address.Add(uint64(i / s.unitSize))
	if unit < s.base {
		return 0, false
	}
	rel := uint64(unit-s.base)*uint64(s.unitSize) + uint64(i%s.unitSize)
	if rel >= uint64(len(s.data)) {
		return 0, false
	}
	return int(rel), true
}

// WriteBytes implements memory.DataSource.
func (s *Static) WriteBytes(ctx context.Context, address memory.Address, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readOnly {
		return ErrReadOnly
	}
	if address < s.base {
		return fmt.Errorf("%w: %s", ErrOutOfBounds, address)
	}
	rel := uint64(address-s.base) * uint64(s.unitSize)
	if rel+uint64(len(data)) > uint64(len(s.data)) {
		return fmt.Errorf("%w: %d bytes at %s", ErrOutOfBounds, len(data), address)
	}
	copy(s.data[rel:], data)
	return nil
}

// Bytes returns a copy of the backing data.
func (s *Static) Bytes() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out
}
