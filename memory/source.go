// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: memory/source.go
// Summary: Interfaces the engine consumes from data sources and codecs.
//
// Architecture:
//
//	A DataSource is an abstract byte-range provider. Sources that are
//	expensive to keep live (a debug target, a remote process) additionally
//	implement Connector; views only hold a connection while visible.
//	Expression-backed sources implement BaseAddresser so a refresh can
//	notice that the anchor moved. Optional capabilities are plain Go
//	interfaces checked with a type assertion.

package memory

import "context"

// Range is a half-open address interval [Start, End).
type Range struct {
	Start Address
	End   Address
}

// Contains reports whether address lies in the range.
func (r Range) Contains(address Address) bool {
	return address >= r.Start && address < r.End
}

// Len returns the number of addresses in the range.
func (r Range) Len() uint64 {
	if r.End <= r.Start {
		return 0
	}
	return uint64(r.End - r.Start)
}

// Unbounded is the range used for sources without a fixed extent.
var Unbounded = Range{Start: 0, End: MaxAddress}

// DataSource provides the content of one memory block.
type DataSource interface {
	// ID identifies the logical block. Views of the same ID synchronize.
	ID() string

	// ReadBytes returns units*UnitSize bytes starting at address. A shorter
	// result is padded with unreadable bytes by the caller.
	ReadBytes(ctx context.Context, address Address, units uint64) ([]MemoryByte, error)

	// WriteBytes stores data starting at address.
	WriteBytes(ctx context.Context, address Address, data []byte) error

	// ValidRange returns the fixed extent of the block. ok is false for
	// open-ended sources.
	ValidRange() (r Range, ok bool)
}

// SourceEventKind classifies a change reported by a live source.
type SourceEventKind int

const (
	// SourceContentChanged means bytes in the block may have changed.
	SourceContentChanged SourceEventKind = iota
	// SourceSuspended means the producer stopped and content is stable.
	SourceSuspended
	// SourceTerminated means the producer is gone; no further reads succeed.
	SourceTerminated
)

// SourceEvent is delivered to connected listeners.
type SourceEvent struct {
	Kind     SourceEventKind
	SourceID string
}

// SourceListener receives change notifications from a live source.
// Notifications may arrive on any goroutine.
type SourceListener interface {
	SourceChanged(ev SourceEvent)
}

// Connector is implemented by live sources that must be connected
// before they deliver updates.
type Connector interface {
	Connect(ctx context.Context, l SourceListener) error
	Disconnect(ctx context.Context, l SourceListener) error
}

// BaseAddresser is implemented by expression-backed sources whose
// anchor can move between refreshes.
type BaseAddresser interface {
	BaseAddress() (Address, bool)
}

// WriteGuard lets a source veto edits on individual cells.
type WriteGuard interface {
	CanWrite(address Address, units uint64) bool
}

// AddressSizer reports the width of addresses in bytes for label padding.
type AddressSizer interface {
	AddressSize() int
}

// Codec converts between raw bytes and presentation text.
type Codec interface {
	// Name identifies the presentation format ("hex", "ascii", ...).
	Name() string

	// CharsPerByte is the fixed number of characters per byte, or 0 for
	// variable-width formats.
	CharsPerByte() int

	// Decode parses text into exactly size bytes.
	Decode(text string, size, unitSize int) ([]byte, error)

	// Encode renders data, which starts at address, as text.
	Encode(data []MemoryByte, address Address) string
}

func sourceRange(src DataSource) (Range, bool) {
	if r, ok := src.ValidRange(); ok {
		return r, true
	}
	return Unbounded, false
}
