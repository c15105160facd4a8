// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: memory/navigator_test.go
// Summary: Exercises cursor movement, wrapping and the edge-approach refill policy.

package memory

import (
	"errors"
	"testing"
)

func newTestNavigator(t *testing.T, src *fakeSource, columnSize int, start Address) (*Navigator, *ContentBuffer) {
	t.Helper()
	buf := NewContentBuffer(src, mustGeometry(t, 1, columnSize), InlineScheduler{}, testBufferConfig())
	nav := NewNavigator(buf, start, 24)
	if err := buf.Refill(start, 24); err != nil {
		t.Fatalf("initial refill: %v", err)
	}
	return nav, buf
}

func TestEdgeApproachExample(t *testing.T) {
	src := newFakeSource(0x10000)

	// A 64-line window with 0x0FFE well inside it: no refill.
	nav, buf := newTestNavigator(t, src, 1, 0x0FF0)
	reads := src.readCount()
	if err := nav.MoveTo(0x0FFE); err != nil {
		t.Fatalf("MoveTo(FFE): %v", err)
	}
	if src.readCount() != reads {
		t.Fatalf("MoveTo(FFE) refilled; window [%s, %s)", buf.BufferStart(), buf.BufferEnd())
	}

	// A window starting at 0x1000; landing two lines above it refills
	// around the target.
	nav, buf = newTestNavigator(t, src, 1, 0x1140)
	if buf.BufferStart() != 0x1000 {
		t.Fatalf("buffer start = %s, want 1000", buf.BufferStart())
	}
	reads = src.readCount()
	if err := nav.MoveTo(0x0FE0); err != nil {
		t.Fatalf("MoveTo(FE0): %v", err)
	}
	if src.readCount() != reads+1 {
		t.Fatal("expected a refill")
	}
	if buf.BufferStart() > 0x1000-20*16 {
		t.Fatalf("buffer start = %s, want <= %s", buf.BufferStart(), Address(0x1000-20*16))
	}
	if nav.Top() != 0x0FE0 || nav.Selected() != 0x0FE0 {
		t.Fatalf("top %s selected %s", nav.Top(), nav.Selected())
	}
}

func TestEdgeApproachInsideWindow(t *testing.T) {
	src := newFakeSource(0x10000)
	nav, buf := newTestNavigator(t, src, 1, 0x1140)
	reads := src.readCount()

	// The centre of the window never refills.
	if err := nav.MoveTo(0x1200); err != nil {
		t.Fatal(err)
	}
	if src.readCount() != reads {
		t.Fatal("moving to the window centre refilled")
	}

	// One line below the buffer start is within the threshold.
	if err := nav.MoveTo(0x1010); err != nil {
		t.Fatal(err)
	}
	if src.readCount() != reads+1 {
		t.Fatal("approaching the start edge did not refill")
	}
	if !buf.Contains(0x1010) || buf.Index(0x1010) < 3 {
		t.Fatalf("refilled window [%s, %s) leaves the cursor at the edge", buf.BufferStart(), buf.BufferEnd())
	}
}

func TestMoveReplayMatchesArithmetic(t *testing.T) {
	src := newFakeSource(0x10000)
	nav, _ := newTestNavigator(t, src, 4, 0x8000)

	moves := []struct{ lines, columns int }{
		{1, 0}, {0, 1}, {0, 3}, {-2, 0}, {0, -5}, {30, 0}, {0, 9}, {-45, 0}, {0, -1}, {60, 2},
	}
	lines, columns := 0, 0
	for _, m := range moves {
		if m.lines != 0 {
			if err := nav.MoveByLine(m.lines); err != nil {
				t.Fatalf("MoveByLine(%d): %v", m.lines, err)
			}
		}
		if m.columns != 0 {
			if err := nav.MoveByColumn(m.columns); err != nil {
				t.Fatalf("MoveByColumn(%d): %v", m.columns, err)
			}
		}
		lines += m.lines
		columns += m.columns
		want := Address(0x8000 + 16*lines + 4*columns)
		if nav.Selected() != want {
			t.Fatalf("after %+v selected %s, want %s", m, nav.Selected(), want)
		}
		if !nav.IsVisible(nav.Selected()) {
			t.Fatalf("selection %s scrolled out of view (top %s)", nav.Selected(), nav.Top())
		}
	}
}

func TestColumnMovementWraps(t *testing.T) {
	src := newFakeSource(0x1000)
	nav, _ := newTestNavigator(t, src, 4, 0x100)
	if nav.Column() != 1 {
		t.Fatalf("column = %d, want 1", nav.Column())
	}
	if err := nav.MoveByColumn(-1); err != nil {
		t.Fatal(err)
	}
	if nav.Selected() != 0xFC || nav.Column() != 4 {
		t.Fatalf("wrap left: %s column %d", nav.Selected(), nav.Column())
	}
	if err := nav.MoveByColumn(1); err != nil {
		t.Fatal(err)
	}
	if nav.Selected() != 0x100 || nav.Column() != 1 {
		t.Fatalf("wrap right: %s column %d", nav.Selected(), nav.Column())
	}
}

func TestMoveOutOfRange(t *testing.T) {
	src := newFakeSource(0x1000)
	nav, _ := newTestNavigator(t, src, 1, 0)
	if err := nav.MoveByColumn(-1); !errors.Is(err, ErrAddressOutOfRange) {
		t.Fatalf("wrap before first line: %v", err)
	}
	if err := nav.MoveTo(0x1000); !errors.Is(err, ErrAddressOutOfRange) {
		t.Fatalf("MoveTo past end: %v", err)
	}
	if nav.Selected() != 0 {
		t.Fatalf("failed move changed selection to %s", nav.Selected())
	}
	if err := nav.MoveTo(0xFFF); err != nil {
		t.Fatal(err)
	}
	if err := nav.MoveByColumn(1); !errors.Is(err, ErrAddressOutOfRange) {
		t.Fatalf("wrap after last line: %v", err)
	}
}

func TestSelectCellAndGutter(t *testing.T) {
	src := newFakeSource(0x1000)
	nav, _ := newTestNavigator(t, src, 4, 0)
	if err := nav.SelectCell(2, 3); err != nil {
		t.Fatal(err)
	}
	if nav.Selected() != 0x28 || nav.Column() != 3 {
		t.Fatalf("selected %s column %d", nav.Selected(), nav.Column())
	}
	if err := nav.SelectCell(1, 0); err != nil {
		t.Fatal(err)
	}
	if nav.Selected() != 0x10 || nav.Column() != 0 {
		t.Fatalf("address column click: %s column %d", nav.Selected(), nav.Column())
	}
	g := nav.geom()
	if err := nav.SelectCell(3, g.GutterColumn()); err != nil || nav.Selected() != 0x10 {
		t.Fatalf("gutter click moved the cursor: %s, %v", nav.Selected(), err)
	}
	if tx, err := nav.BeginEdit(testHex{}, nil); tx != nil || err != nil {
		t.Fatalf("edit on the address column: %v, %v", tx, err)
	}
}

func TestScrollByClamps(t *testing.T) {
	src := newFakeSource(0x1000)
	nav, _ := newTestNavigator(t, src, 1, 0x100)
	if err := nav.ScrollBy(-100); err != nil {
		t.Fatal(err)
	}
	if nav.Top() != 0 {
		t.Fatalf("top = %s, want 0", nav.Top())
	}
	if err := nav.ScrollBy(1000); err != nil {
		t.Fatal(err)
	}
	if nav.Top() != 0xFF0 {
		t.Fatalf("top = %s, want FF0", nav.Top())
	}
}
