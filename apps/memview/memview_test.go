// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: apps/memview/memview_test.go
// Summary: Drives the viewer through keys, paste and mouse input.

package memview

import (
	"testing"

	"github.com/gdamore/tcell/v2"

	"github.com/framegrace/texelmem/memory"
	"github.com/framegrace/texelmem/source"
)

func newTestApp(t *testing.T) (*App, *source.Static) {
	t.Helper()
	data := make([]byte, 0x400)
	for i := range data {
		data[i] = byte(i)
	}
	src := source.NewStatic("mem", 0, data, 1)
	a, err := New("test", src, memory.DefaultViewConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(a.Close)
	a.Resize(80, 21)
	settle(a)
	return a, src
}

// settle runs background fetches to completion and applies them.
func settle(a *App) {
	for {
		a.Scheduler().Wait()
		if a.Drain() == 0 {
			return
		}
	}
}

func key(a *App, k tcell.Key) {
	a.HandleKey(tcell.NewEventKey(k, 0, tcell.ModNone))
	settle(a)
}

func typeRunes(a *App, s string) {
	for _, r := range s {
		a.HandleKey(tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone))
	}
	settle(a)
}

func TestKeysMoveBothPanes(t *testing.T) {
	a, _ := newTestApp(t)
	key(a, tcell.KeyDown)
	key(a, tcell.KeyRight)
	if a.View(0).Selected() != 0x14 {
		t.Fatalf("active selected %s", a.View(0).Selected())
	}
	if a.View(1).Selected() != 0x14 {
		t.Fatalf("peer selected %s", a.View(1).Selected())
	}

	key(a, tcell.KeyTab)
	if a.Active() != 1 {
		t.Fatalf("active pane = %d", a.Active())
	}
	key(a, tcell.KeyDown)
	if a.View(0).Selected() != 0x24 {
		t.Fatalf("first pane did not follow the new provider: %s", a.View(0).Selected())
	}

	key(a, tcell.KeyCtrlG)
	if a.View(1).Selected() != 0 {
		t.Fatalf("reset selected %s", a.View(1).Selected())
	}
	key(a, tcell.KeyUp)
	if a.Status() == "" {
		t.Fatal("moving above the first line reported nothing")
	}
}

func TestColumnSizeAndCodecKeys(t *testing.T) {
	a, _ := newTestApp(t)
	typeRunes(a, "[")
	for i := 0; i < PaneCount; i++ {
		if n := a.View(i).Geometry().BytesPerColumn(); n != 2 {
			t.Fatalf("pane %d column size %d", i, n)
		}
	}
	typeRunes(a, "]]")
	if n := a.View(1).Geometry().BytesPerColumn(); n != 8 {
		t.Fatalf("column size %d after doubling twice", n)
	}

	before := a.View(0).Codec().Name()
	key(a, tcell.KeyCtrlF)
	after := a.View(0).Codec().Name()
	if after == before || a.View(1).Codec().Name() != after {
		t.Fatalf("codecs %s -> %s, peer %s", before, after, a.View(1).Codec().Name())
	}
}

func TestTypingEditsTheSelectedCell(t *testing.T) {
	a, src := newTestApp(t)
	typeRunes(a, "[[")
	key(a, tcell.KeyRight)

	typeRunes(a, "1234")
	if !a.Editing() {
		t.Fatal("typing did not open an edit")
	}
	key(a, tcell.KeyEnter)
	if !a.Editing() {
		t.Fatal("overflow did not continue on the next cell")
	}
	if a.View(0).Selected() != 2 {
		t.Fatalf("selected %s after overflow", a.View(0).Selected())
	}
	key(a, tcell.KeyEnter)
	if a.Editing() {
		t.Fatal("edit still open")
	}
	if b := src.Bytes(); b[1] != 0x12 || b[2] != 0x34 {
		t.Fatalf("source = %02X %02X", b[1], b[2])
	}

	typeRunes(a, "zz")
	key(a, tcell.KeyEnter)
	if !a.Editing() || a.Status() == "" {
		t.Fatal("invalid text closed the edit without a message")
	}
	key(a, tcell.KeyEscape)
	if a.Editing() {
		t.Fatal("escape left the edit open")
	}
	if b := src.Bytes(); b[2] != 0x34 {
		t.Fatalf("cancelled edit wrote %02X", b[2])
	}
}

func TestPasteStartsEdit(t *testing.T) {
	a, src := newTestApp(t)
	a.HandlePaste([]byte("DEAD\nBEEF\r\n"))
	if !a.Editing() {
		t.Fatal("paste did not open an edit")
	}
	key(a, tcell.KeyEnter)
	if b := src.Bytes(); b[0] != 0xDE || b[3] != 0xEF {
		t.Fatalf("source = % X", b[:4])
	}
}

func TestMouseSelectsInOtherPane(t *testing.T) {
	a, _ := newTestApp(t)
	// Pane 1 starts at row 10; row 12 is its second line. Column 2 of an
	// eight-digit address label and eight-wide hex cells starts at x=18.
	a.HandleMouse(tcell.NewEventMouse(18, 12, tcell.Button1, tcell.ModNone))
	settle(a)
	if a.Active() != 1 {
		t.Fatalf("active pane = %d", a.Active())
	}
	if a.View(1).Selected() != 0x14 || a.View(0).Selected() != 0x14 {
		t.Fatalf("selected %s / %s", a.View(1).Selected(), a.View(0).Selected())
	}
}

func TestRender(t *testing.T) {
	a, _ := newTestApp(t)
	buf := a.Render()
	if len(buf) != 21 || len(buf[0]) != 80 {
		t.Fatalf("render is %dx%d", len(buf[0]), len(buf))
	}
	if buf[0][0].Ch != 'h' {
		t.Fatalf("header starts with %q", buf[0][0].Ch)
	}
	if got := string([]rune{buf[2][0].Ch, buf[2][6].Ch, buf[2][7].Ch}); got != "010" {
		t.Fatalf("second address label = %q", got)
	}
	if buf[20][1].Ch != 'm' {
		t.Fatalf("status line starts with %q", buf[20][1].Ch)
	}

	a.Stop()
	if a.Drain() != 0 {
		t.Fatal("stopped app drained work")
	}
}
