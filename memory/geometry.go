// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: memory/geometry.go
// Summary: Address arithmetic between absolute addresses and grid cells.
//
// Architecture:
//
//	A memory view renders each line as
//
//	  | address | col 1 | col 2 | ... | col N | gutter |
//
//	Column 0 carries the address label and is never editable. The last
//	column is a zero-width navigation gutter that lets the cursor step off
//	the final data column before wrapping. Addresses are counted in
//	addressable units, so a line always spans UnitsPerLine addresses
//	regardless of how many bytes a unit holds.

package memory

import (
	"fmt"
	"math"
)

// Address is an absolute position in a memory block, in addressable units.
type Address uint64

// MaxAddress is the highest representable address.
const MaxAddress = Address(math.MaxUint64)

// DefaultUnitsPerLine is the number of addressable units rendered per line.
const DefaultUnitsPerLine = 16

// Add returns a+n, saturating at MaxAddress.
func (a Address) Add(n uint64) Address {
	if uint64(MaxAddress-a) < n {
		return MaxAddress
	}
	return a + Address(n)
}

// Sub returns a-n, saturating at zero.
func (a Address) Sub(n uint64) Address {
	if uint64(a) < n {
		return 0
	}
	return a - Address(n)
}

// String formats the address as upper-case hex.
func (a Address) String() string {
	return fmt.Sprintf("%X", uint64(a))
}

// Geometry describes how a linear address space is laid out as a grid.
// It is an immutable value; Reconfigure returns a new Geometry.
type Geometry struct {
	unitSize       int
	unitsPerLine   int
	bytesPerLine   int
	bytesPerColumn int
}

// NewGeometry builds a geometry with DefaultUnitsPerLine units per line.
func NewGeometry(unitSize, bytesPerColumn int) (Geometry, error) {
	if unitSize < 1 {
		return Geometry{}, fmt.Errorf("%w: unit size %d", ErrGeometryRejected, unitSize)
	}
	return NewGeometryWithUnits(unitSize, DefaultUnitsPerLine, DefaultUnitsPerLine*unitSize, bytesPerColumn)
}

// NewGeometryWithUnits builds a geometry with an explicit units-per-line constant.
func NewGeometryWithUnits(unitSize, unitsPerLine, bytesPerLine, bytesPerColumn int) (Geometry, error) {
	if unitSize < 1 || unitsPerLine < 1 {
		return Geometry{}, fmt.Errorf("%w: unit size %d, units per line %d", ErrGeometryRejected, unitSize, unitsPerLine)
	}
	g := Geometry{unitSize: unitSize, unitsPerLine: unitsPerLine}
	if err := g.validate(bytesPerLine, bytesPerColumn); err != nil {
		return Geometry{}, err
	}
	g.bytesPerLine = bytesPerLine
	g.bytesPerColumn = bytesPerColumn
	return g, nil
}

func (g Geometry) validate(bytesPerLine, bytesPerColumn int) error {
	if bytesPerLine <= 0 || bytesPerColumn <= 0 {
		return fmt.Errorf("%w: %d bytes per line, %d bytes per column", ErrGeometryRejected, bytesPerLine, bytesPerColumn)
	}
	if bytesPerLine%g.unitSize != 0 || bytesPerLine/g.unitSize != g.unitsPerLine {
		return fmt.Errorf("%w: line of %d bytes is not %d units of %d bytes",
			ErrGeometryRejected, bytesPerLine, g.unitsPerLine, g.unitSize)
	}
	if bytesPerLine%bytesPerColumn != 0 {
		return fmt.Errorf("%w: column of %d bytes does not divide line of %d bytes",
			ErrGeometryRejected, bytesPerColumn, bytesPerLine)
	}
	if bytesPerColumn%g.unitSize != 0 {
		return fmt.Errorf("%w: column of %d bytes is not a whole number of units",
			ErrGeometryRejected, bytesPerColumn)
	}
	return nil
}

// Reconfigure validates a new line/column size. It returns the resulting
// geometry and whether anything changed. Invalid values leave g untouched
// and return ErrGeometryRejected.
func (g Geometry) Reconfigure(bytesPerLine, bytesPerColumn int) (Geometry, bool, error) {
	if err := g.validate(bytesPerLine, bytesPerColumn); err != nil {
		return g, false, err
	}
	if g.bytesPerLine == bytesPerLine && g.bytesPerColumn == bytesPerColumn {
		return g, false, nil
	}
	next := g
	next.bytesPerLine = bytesPerLine
	next.bytesPerColumn = bytesPerColumn
	return next, true, nil
}

// WithColumnSize is Reconfigure keeping the current line size.
func (g Geometry) WithColumnSize(bytesPerColumn int) (Geometry, bool, error) {
	return g.Reconfigure(g.bytesPerLine, bytesPerColumn)
}

func (g Geometry) UnitSize() int       { return g.unitSize }
func (g Geometry) BytesPerLine() int   { return g.bytesPerLine }
func (g Geometry) BytesPerColumn() int { return g.bytesPerColumn }
func (g Geometry) UnitsPerLine() int   { return g.unitsPerLine }

// UnitsPerColumn returns the number of addresses covered by one column.
func (g Geometry) UnitsPerColumn() int {
	return g.bytesPerColumn / g.unitSize
}

// ColumnsPerLine returns the number of data columns.
func (g Geometry) ColumnsPerLine() int {
	if g.bytesPerColumn == 0 {
		return 0
	}
	return g.bytesPerLine / g.bytesPerColumn
}

// GutterColumn returns the index of the trailing navigation column.
func (g Geometry) GutterColumn() int {
	return g.ColumnsPerLine() + 1
}

// IsDataColumn reports whether column holds editable data.
func (g Geometry) IsDataColumn(column int) bool {
	return column >= 1 && column <= g.ColumnsPerLine()
}

// LineStart aligns address down to its line boundary.
func (g Geometry) LineStart(address Address) Address {
	upl := Address(g.unitsPerLine)
	return address - address%upl
}

// ColumnStart aligns address down to the first address of its column.
func (g Geometry) ColumnStart(address Address) Address {
	line := g.LineStart(address)
	upc := Address(g.UnitsPerColumn())
	return line + (address-line)/upc*upc
}

// LineSpan returns the number of addresses covered by n lines.
func (g Geometry) LineSpan(n int) uint64 {
	if n <= 0 {
		return 0
	}
	return uint64(n) * uint64(g.unitsPerLine)
}

// AddressToLineColumn maps address to a line index relative to the line
// containing bufferBase and a grid column (1-based, column 0 is the label).
func (g Geometry) AddressToLineColumn(address, bufferBase Address) (line int64, column int) {
	lineStart := g.LineStart(address)
	baseStart := g.LineStart(bufferBase)
	upl := int64(g.unitsPerLine)
	if lineStart >= baseStart {
		line = int64(uint64(lineStart-baseStart) / uint64(upl))
	} else {
		line = -int64(uint64(baseStart-lineStart) / uint64(upl))
	}
	column = int(uint64(address-lineStart)/uint64(g.UnitsPerColumn())) + 1
	return line, column
}

// LineColumnToAddress returns the first address of column on the line
// starting at lineStart. It reports false for the label and gutter columns.
func (g Geometry) LineColumnToAddress(lineStart Address, column int) (Address, bool) {
	if !g.IsDataColumn(column) {
		return 0, false
	}
	return lineStart + Address((column-1)*g.UnitsPerColumn()), true
}
