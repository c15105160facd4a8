// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: memory/navigator.go
// Summary: Navigator tracks the selected cell and the top visible line.
//
// Architecture:
//
//	Navigator turns user navigation (arrows, page keys, clicks, go-to
//	address) into a selected address and a top visible address. After
//	each move it applies the edge-approach policy of ContentBuffer, so the
//	window is refilled before the viewport runs off cached content.
//	Column movement is plain address arithmetic: stepping past the last
//	column of a line lands on the first column of the next one.

package memory

import "fmt"

// Navigator owns cursor and scroll state for one view.
// All methods must be called from the UI thread.
type Navigator struct {
	buf *ContentBuffer

	selected Address
	column   int
	top      Address

	viewportLines int
}

// NewNavigator creates a navigator over buf with its cursor at start.
func NewNavigator(buf *ContentBuffer, start Address, viewportLines int) *Navigator {
	if viewportLines <= 0 {
		viewportLines = buf.Config().DefaultWindowLines
	}
	n := &Navigator{buf: buf, viewportLines: viewportLines}
	g := buf.Geometry()
	n.selected = start
	n.column = n.columnOf(start)
	n.top = g.LineStart(start)
	return n
}

func (n *Navigator) geom() Geometry {
	return n.buf.Geometry()
}

func (n *Navigator) columnOf(address Address) int {
	_, col := n.geom().AddressToLineColumn(address, address)
	return col
}

// Selected returns the selected address.
func (n *Navigator) Selected() Address { return n.selected }

// Column returns the grid column of the cursor (0 is the address column).
func (n *Navigator) Column() int { return n.column }

// Top returns the address of the first visible line.
func (n *Navigator) Top() Address { return n.top }

// ViewportLines returns the visible height in lines.
func (n *Navigator) ViewportLines() int { return n.viewportLines }

// SetViewportLines changes the visible height and re-applies the edge policy.
func (n *Navigator) SetViewportLines(lines int) error {
	if lines <= 0 || lines == n.viewportLines {
		return nil
	}
	n.viewportLines = lines
	n.ensureVisible()
	return n.checkEdges()
}

// IsVisible reports whether address falls inside the viewport.
func (n *Navigator) IsVisible(address Address) bool {
	line := n.geom().LineStart(address)
	last := n.top.Add(n.geom().LineSpan(n.viewportLines - 1))
	return line >= n.top && line <= last
}

// CursorRow returns the viewport row of the selection, or -1 when it is
// scrolled out of view.
func (n *Navigator) CursorRow() int {
	if !n.IsVisible(n.selected) {
		return -1
	}
	line, _ := n.geom().AddressToLineColumn(n.selected, n.top)
	return int(line)
}

// MoveTo selects address. Addresses inside the window move the cursor;
// addresses outside the window but inside the source's range refill the
// window around address and make its line the top line.
func (n *Navigator) MoveTo(address Address) error {
	return n.moveTo(address, n.columnOf(address))
}

func (n *Navigator) moveTo(address Address, column int) error {
	if !n.buf.InRange(address) {
		rng := n.buf.ValidRange()
		return fmt.Errorf("%w: %s not in [%s, %s)", ErrAddressOutOfRange, address, rng.Start, rng.End)
	}
	if n.buf.Contains(address) {
		n.selected = address
		n.column = column
		n.ensureVisible()
		return n.checkEdges()
	}

	top := n.geom().LineStart(address)
	if err := n.buf.Refill(top, n.viewportLines); err != nil {
		return err
	}
	n.selected = address
	n.column = column
	n.top = top
	return nil
}

// MoveByLine moves the cursor delta lines, keeping its column.
func (n *Navigator) MoveByLine(delta int) error {
	target, ok := offset(n.selected, int64(delta), n.geom().UnitsPerLine())
	if !ok {
		return fmt.Errorf("%w: %d lines from %s", ErrAddressOutOfRange, delta, n.selected)
	}
	return n.moveTo(target, n.keepColumn(target))
}

// MoveByColumn moves the cursor delta columns, wrapping across lines.
func (n *Navigator) MoveByColumn(delta int) error {
	base := n.geom().ColumnStart(n.selected)
	target, ok := offset(base, int64(delta), n.geom().UnitsPerColumn())
	if !ok {
		return fmt.Errorf("%w: %d columns from %s", ErrAddressOutOfRange, delta, n.selected)
	}
	return n.moveTo(target, n.columnOf(target))
}

// keepColumn keeps the cursor on the address column when it is there.
func (n *Navigator) keepColumn(target Address) int {
	if n.column == 0 {
		return 0
	}
	return n.columnOf(target)
}

// SelectCell handles a click on a visible cell. Column 0 selects the line
// start with the cursor on the address column; the gutter is ignored.
func (n *Navigator) SelectCell(row, column int) error {
	g := n.geom()
	if column < 0 || column >= g.GutterColumn() || row < 0 {
		return nil
	}
	lineStart, ok := offset(n.top, int64(row), g.UnitsPerLine())
	if !ok {
		return fmt.Errorf("%w: row %d", ErrAddressOutOfRange, row)
	}
	if column == 0 {
		return n.moveTo(lineStart, 0)
	}
	address, _ := g.LineColumnToAddress(lineStart, column)
	return n.moveTo(address, column)
}

// ScrollTo makes the line holding top the first visible line.
func (n *Navigator) ScrollTo(top Address) error {
	if !n.buf.InRange(top) {
		rng := n.buf.ValidRange()
		return fmt.Errorf("%w: %s not in [%s, %s)", ErrAddressOutOfRange, top, rng.Start, rng.End)
	}
	n.top = n.geom().LineStart(top)
	if n.buf.Pending() {
		return nil
	}
	if n.buf.NearEdge(n.top, n.viewportLines) {
		return n.buf.Refill(n.top, n.viewportLines)
	}
	return nil
}

// ScrollBy scrolls delta lines, clamped to the source's range.
func (n *Navigator) ScrollBy(delta int) error {
	g := n.geom()
	rng := n.buf.ValidRange()
	target, ok := offset(n.top, int64(delta), g.UnitsPerLine())
	if !ok || !rng.Contains(target) {
		if delta < 0 {
			target = g.LineStart(rng.Start)
			if target < rng.Start {
				target = rng.Start
			}
		} else {
			target = g.LineStart(rng.End.Sub(1))
		}
	}
	if target == n.top {
		return nil
	}
	return n.ScrollTo(target)
}

// Relayout re-derives the cursor column after a geometry change.
func (n *Navigator) Relayout() {
	if n.column != 0 {
		n.column = n.columnOf(n.selected)
	}
	n.top = n.geom().LineStart(n.top)
}

// Reset places the cursor at address without touching the buffer.
func (n *Navigator) Reset(address Address) {
	n.selected = address
	n.column = n.columnOf(address)
	n.top = n.geom().LineStart(address)
}

// RevealSelection scrolls so the selected line is visible.
func (n *Navigator) RevealSelection() error {
	if n.IsVisible(n.selected) {
		return nil
	}
	n.ensureVisible()
	return n.checkEdges()
}

// BeginEdit opens an edit transaction on the selected cell. It returns a
// nil transaction when the cursor is on the address or gutter column.
func (n *Navigator) BeginEdit(codec Codec, initialText *string) (*EditTransaction, error) {
	if !n.geom().IsDataColumn(n.column) {
		return nil, nil
	}
	tx, err := BeginEdit(n.buf, codec, n.geom().ColumnStart(n.selected))
	if err != nil {
		return nil, err
	}
	if initialText != nil {
		tx.SetText(*initialText)
	}
	return tx, nil
}

// ensureVisible scrolls the minimum amount to show the selected line.
func (n *Navigator) ensureVisible() {
	g := n.geom()
	line := g.LineStart(n.selected)
	if line < n.top {
		n.top = line
		return
	}
	last := n.top.Add(g.LineSpan(n.viewportLines - 1))
	if line > last {
		n.top = line.Sub(g.LineSpan(n.viewportLines - 1))
	}
}

// checkEdges refills around the viewport when the cursor approaches a
// buffer edge or the viewport is no longer cached.
func (n *Navigator) checkEdges() error {
	if n.buf.Pending() {
		return nil
	}
	if n.buf.NearEdge(n.selected, 1) || !n.buf.Covers(n.top, n.viewportLines) {
		return n.buf.Refill(n.top, n.viewportLines)
	}
	return nil
}

// offset returns base + delta*step, reporting false on overflow.
func offset(base Address, delta int64, step int) (Address, bool) {
	if delta == 0 {
		return base, true
	}
	if delta > 0 {
		d := uint64(delta) * uint64(step)
		if uint64(MaxAddress-base) < d {
			return 0, false
		}
		return base + Address(d), true
	}
	d := uint64(-delta) * uint64(step)
	if uint64(base) < d {
		return 0, false
	}
	return base - Address(d), true
}
