// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: memory/geometry_test.go
// Summary: Exercises address arithmetic between addresses and grid cells.

package memory

import (
	"errors"
	"testing"
)

func TestGeometryRejectsInvalidLayouts(t *testing.T) {
	cases := []struct {
		name                          string
		unit, upl, perLine, perColumn int
	}{
		{"zero unit", 0, 16, 16, 1},
		{"zero column", 1, 16, 16, 0},
		{"column not dividing line", 1, 16, 16, 3},
		{"column not whole units", 2, 16, 32, 3},
		{"line not units per line", 1, 16, 32, 4},
	}
	for _, tc := range cases {
		if _, err := NewGeometryWithUnits(tc.unit, tc.upl, tc.perLine, tc.perColumn); !errors.Is(err, ErrGeometryRejected) {
			t.Errorf("%s: err = %v, want ErrGeometryRejected", tc.name, err)
		}
	}
}

func TestGeometryReconfigureKeepsOldOnError(t *testing.T) {
	g := mustGeometry(t, 1, 4)
	next, changed, err := g.WithColumnSize(5)
	if !errors.Is(err, ErrGeometryRejected) || changed {
		t.Fatalf("WithColumnSize(5) = %v, %v", changed, err)
	}
	if next.BytesPerColumn() != 4 {
		t.Fatalf("bytes per column = %d, want 4", next.BytesPerColumn())
	}
	if _, changed, _ := g.WithColumnSize(4); changed {
		t.Fatal("same column size reported a change")
	}
	next, changed, err = g.WithColumnSize(8)
	if err != nil || !changed || next.ColumnsPerLine() != 2 || next.GutterColumn() != 3 {
		t.Fatalf("WithColumnSize(8) = %+v, %v, %v", next, changed, err)
	}
}

func TestGeometryLineColumnRoundTrip(t *testing.T) {
	for _, unit := range []int{1, 2, 4} {
		perLine := DefaultUnitsPerLine * unit
		for perColumn := unit; perColumn <= perLine; perColumn += unit {
			if perLine%perColumn != 0 {
				continue
			}
			g, err := NewGeometryWithUnits(unit, DefaultUnitsPerLine, perLine, perColumn)
			if err != nil {
				t.Fatalf("geometry %d/%d: %v", unit, perColumn, err)
			}
			lineStart := Address(0x1230)
			for col := 1; col <= g.ColumnsPerLine(); col++ {
				addr, ok := g.LineColumnToAddress(lineStart, col)
				if !ok {
					t.Fatalf("column %d not a data column", col)
				}
				line, gotCol := g.AddressToLineColumn(addr, lineStart)
				if line != 0 || gotCol != col {
					t.Fatalf("unit %d column %d bytes: %s -> (%d, %d), want (0, %d)",
						unit, perColumn, addr, line, gotCol, col)
				}
				back, _ := g.LineColumnToAddress(g.LineStart(addr), gotCol)
				if back != addr {
					t.Fatalf("round trip %s -> %s", addr, back)
				}
			}
		}
	}
}

func TestGeometryLabelAndGutterAreNotDataColumns(t *testing.T) {
	g := mustGeometry(t, 1, 4)
	if _, ok := g.LineColumnToAddress(0, 0); ok {
		t.Fatal("address column mapped to an address")
	}
	if _, ok := g.LineColumnToAddress(0, g.GutterColumn()); ok {
		t.Fatal("gutter mapped to an address")
	}
}

func TestGeometryNegativeLineIndex(t *testing.T) {
	g := mustGeometry(t, 1, 1)
	line, col := g.AddressToLineColumn(0x0FE3, 0x1000)
	if line != -2 || col != 4 {
		t.Fatalf("got (%d, %d), want (-2, 4)", line, col)
	}
}

func TestAddressSaturates(t *testing.T) {
	if got := MaxAddress.Add(1); got != MaxAddress {
		t.Fatalf("MaxAddress+1 = %s", got)
	}
	if got := Address(3).Sub(5); got != 0 {
		t.Fatalf("3-5 = %s", got)
	}
	if got := Address(0xFF).String(); got != "FF" {
		t.Fatalf("String = %q", got)
	}
}
