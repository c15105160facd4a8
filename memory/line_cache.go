// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: memory/line_cache.go
// Summary: LineCache holds the contiguous, address-sorted lines of a window.

package memory

// LineCache is a contiguous run of rendering lines.
// Thread-safety must be managed by the caller (ContentBuffer).
type LineCache struct {
	geom  Geometry
	lines []*RenderingLine
}

// NewLineCache creates an empty cache laid out with geom.
func NewLineCache(geom Geometry) *LineCache {
	return &LineCache{geom: geom}
}

// SetGeometry updates the column layout. Line bytes are unaffected because
// the line width is fixed by the units-per-line constant.
func (c *LineCache) SetGeometry(geom Geometry) {
	c.geom = geom
}

// Len returns the number of cached lines.
func (c *LineCache) Len() int {
	return len(c.lines)
}

// IsEmpty reports whether no lines are cached.
func (c *LineCache) IsEmpty() bool {
	return len(c.lines) == 0
}

// Lines returns the cached lines. Callers must treat the slice as read-only.
func (c *LineCache) Lines() []*RenderingLine {
	return c.lines
}

// Start returns the address of the first cached line.
func (c *LineCache) Start() Address {
	if len(c.lines) == 0 {
		return 0
	}
	return c.lines[0].Address
}

// End returns the address one past the last cached line.
func (c *LineCache) End() Address {
	if len(c.lines) == 0 {
		return 0
	}
	return c.lines[len(c.lines)-1].Address.Add(c.geom.LineSpan(1))
}

// Contains reports whether address falls on a cached line.
func (c *LineCache) Contains(address Address) bool {
	return c.Index(address) >= 0
}

// Index returns the line index holding address, or -1.
func (c *LineCache) Index(address Address) int {
	if len(c.lines) == 0 || address < c.Start() {
		return -1
	}
	idx := uint64(address-c.Start()) / uint64(c.geom.UnitsPerLine())
	if idx >= uint64(len(c.lines)) {
		return -1
	}
	return int(idx)
}

// Line returns the line at index i, or nil.
func (c *LineCache) Line(i int) *RenderingLine {
	if i < 0 || i >= len(c.lines) {
		return nil
	}
	return c.lines[i]
}

// LineAt returns the line holding address, or nil.
func (c *LineCache) LineAt(address Address) *RenderingLine {
	return c.Line(c.Index(address))
}

// Range returns up to n lines starting with the line holding address.
func (c *LineCache) Range(address Address, n int) []*RenderingLine {
	i := c.Index(address)
	if i < 0 || n <= 0 {
		return nil
	}
	end := min(i+n, len(c.lines))
	return c.lines[i:end]
}

// Replace swaps in a new set of lines.
func (c *LineCache) Replace(lines []*RenderingLine) {
	c.lines = lines
}

// Clear drops all lines.
func (c *LineCache) Clear() {
	c.lines = nil
}

// organizeLines chops raw bytes fetched from start into lines.
// It pads a short final line with unreadable bytes.
func organizeLines(geom Geometry, start Address, data []MemoryByte) []*RenderingLine {
	bpl := geom.BytesPerLine()
	count := (len(data) + bpl - 1) / bpl
	lines := make([]*RenderingLine, 0, count)
	address := start
	for i := 0; i < count; i++ {
		bytes := make([]MemoryByte, bpl)
		n := copy(bytes, data[i*bpl:min((i+1)*bpl, len(data))])
		for j := n; j < bpl; j++ {
			bytes[j] = UnreadableByte
		}
		lines = append(lines, &RenderingLine{Address: address, Bytes: bytes})
		address = address.Add(geom.LineSpan(1))
	}
	return lines
}
