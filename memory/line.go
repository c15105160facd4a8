// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: memory/line.go
// Summary: MemoryByte and RenderingLine, the unit of content a view caches.

package memory

// ByteFlags tag a byte with readability and change information.
type ByteFlags uint8

const (
	Readable ByteFlags = 1 << iota
	Writable
	// Changed marks a byte whose value differs from the previous snapshot.
	Changed
	// HistoryKnown marks a byte whose previous value was known, so Changed
	// is meaningful.
	HistoryKnown
)

// MemoryByte is one byte of fetched content.
type MemoryByte struct {
	Value byte
	Flags ByteFlags
}

// NewByte returns a readable, writable byte.
func NewByte(v byte) MemoryByte {
	return MemoryByte{Value: v, Flags: Readable | Writable}
}

// UnreadableByte is the placeholder for bytes the source could not deliver.
var UnreadableByte = MemoryByte{}

func (b MemoryByte) IsReadable() bool { return b.Flags&Readable != 0 }
func (b MemoryByte) IsWritable() bool { return b.Flags&Writable != 0 }
func (b MemoryByte) IsChanged() bool  { return b.Flags&Changed != 0 }

// BytesOf wraps raw values as readable, writable memory bytes.
func BytesOf(values []byte) []MemoryByte {
	out := make([]MemoryByte, len(values))
	for i, v := range values {
		out[i] = NewByte(v)
	}
	return out
}

// Values extracts the raw values of data.
func Values(data []MemoryByte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b.Value
	}
	return out
}

// RenderingLine is one row of a memory view.
type RenderingLine struct {
	// Address of the first unit on the line.
	Address Address

	// Bytes holds exactly BytesPerLine bytes.
	Bytes []MemoryByte

	// Monitored is true when a previous snapshot of this line exists, so
	// change highlighting applies to it.
	Monitored bool
}

// NewRenderingLine copies data into a new line starting at address.
func NewRenderingLine(address Address, data []MemoryByte) *RenderingLine {
	bytes := make([]MemoryByte, len(data))
	copy(bytes, data)
	return &RenderingLine{Address: address, Bytes: bytes}
}

// Clone returns a deep copy of the line.
func (l *RenderingLine) Clone() *RenderingLine {
	c := NewRenderingLine(l.Address, l.Bytes)
	c.Monitored = l.Monitored
	return c
}

// HasChanges reports whether any byte on the line is flagged as changed.
func (l *RenderingLine) HasChanges() bool {
	for _, b := range l.Bytes {
		if b.IsChanged() {
			return true
		}
	}
	return false
}

// Readable reports whether every byte in [offset, offset+n) is readable.
func (l *RenderingLine) Readable(offset, n int) bool {
	if offset < 0 || offset+n > len(l.Bytes) {
		return false
	}
	for _, b := range l.Bytes[offset : offset+n] {
		if !b.IsReadable() {
			return false
		}
	}
	return true
}

// Column returns the bytes of a data column (1-based) under g.
func (l *RenderingLine) Column(g Geometry, column int) []MemoryByte {
	if !g.IsDataColumn(column) {
		return nil
	}
	start := (column - 1) * g.BytesPerColumn()
	end := start + g.BytesPerColumn()
	if end > len(l.Bytes) {
		return nil
	}
	return l.Bytes[start:end]
}

// IsLineChanged reports whether any value differs from old.
func (l *RenderingLine) IsLineChanged(old *RenderingLine) bool {
	if old == nil || len(old.Bytes) != len(l.Bytes) {
		return true
	}
	for i := range l.Bytes {
		if l.Bytes[i].Value != old.Bytes[i].Value ||
			l.Bytes[i].IsReadable() != old.Bytes[i].IsReadable() {
			return true
		}
	}
	return false
}

// MarkDeltas flags bytes whose value differs from old.
func (l *RenderingLine) MarkDeltas(old *RenderingLine) {
	if old == nil || len(old.Bytes) != len(l.Bytes) {
		return
	}
	for i := range l.Bytes {
		l.Bytes[i].Flags |= HistoryKnown
		if l.Bytes[i].Value != old.Bytes[i].Value && l.Bytes[i].IsReadable() && old.Bytes[i].IsReadable() {
			l.Bytes[i].Flags |= Changed
		} else {
			l.Bytes[i].Flags &^= Changed
		}
	}
}

// UnmarkDeltas clears change flags.
func (l *RenderingLine) UnmarkDeltas() {
	for i := range l.Bytes {
		l.Bytes[i].Flags &^= Changed
	}
}
