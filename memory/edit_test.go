// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: memory/edit_test.go
// Summary: Exercises edit staging, commit, cancel and overflow splitting.

package memory

import (
	"errors"
	"testing"
)

func newEditBuffer(t *testing.T, src *fakeSource, columnSize int) *ContentBuffer {
	t.Helper()
	buf := NewContentBuffer(src, mustGeometry(t, 1, columnSize), InlineScheduler{}, testBufferConfig())
	if err := buf.Refill(0, 24); err != nil {
		t.Fatal(err)
	}
	return buf
}

func TestEditCommitWrites(t *testing.T) {
	src := newFakeSource(0x100)
	buf := newEditBuffer(t, src, 2)
	tx, err := BeginEdit(buf, testHex{}, 0x13)
	if err != nil {
		t.Fatal(err)
	}
	if tx.Address() != 0x12 || tx.Text() != "1213" {
		t.Fatalf("edit at %s text %q", tx.Address(), tx.Text())
	}
	if _, err := tx.Apply("BEEF"); err != nil {
		t.Fatal(err)
	}
	if src.writeCount() != 0 {
		t.Fatal("Apply wrote to the source")
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
	if src.byteAt(0x12) != 0xBE || src.byteAt(0x13) != 0xEF {
		t.Fatalf("source holds %02X %02X", src.byteAt(0x12), src.byteAt(0x13))
	}
	if got := buf.LineAt(0x10).Bytes[2].Value; got != 0xBE {
		t.Fatalf("cache not updated: %02X", got)
	}
	if tx.IsOpen() {
		t.Fatal("transaction still open after commit")
	}
	if err := tx.Commit(); !errors.Is(err, ErrTransactionClosed) {
		t.Fatalf("second commit: %v", err)
	}
}

func TestEditCancelNeverWrites(t *testing.T) {
	src := newFakeSource(0x100)
	buf := newEditBuffer(t, src, 1)
	tx, err := BeginEdit(buf, testHex{}, 0x20)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tx.Apply("FF"); err != nil {
		t.Fatal(err)
	}
	tx.Cancel()
	if src.writeCount() != 0 || src.byteAt(0x20) != 0x20 {
		t.Fatalf("cancel wrote: writes %d value %02X", src.writeCount(), src.byteAt(0x20))
	}
	if _, err := tx.Apply("00"); !errors.Is(err, ErrTransactionClosed) {
		t.Fatalf("apply after cancel: %v", err)
	}
}

func TestEditInvalidFormatStaysOpen(t *testing.T) {
	src := newFakeSource(0x100)
	buf := newEditBuffer(t, src, 1)
	tx, _ := BeginEdit(buf, testHex{}, 0x20)
	if _, err := tx.Apply("ZZ"); !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("err = %v, want ErrInvalidFormat", err)
	}
	if !tx.IsOpen() {
		t.Fatal("decode failure closed the transaction")
	}
	if _, err := tx.Apply("7F"); err != nil {
		t.Fatalf("corrected text: %v", err)
	}
}

func TestEditOverflowSplits(t *testing.T) {
	src := newFakeSource(0x100)
	buf := newEditBuffer(t, src, 1)
	tx, _ := BeginEdit(buf, testHex{}, 0x20)
	overflow, err := tx.Apply("ABCDE")
	if err != nil {
		t.Fatal(err)
	}
	if overflow != "CDE" || string(tx.Staged()) != "\xAB" {
		t.Fatalf("overflow %q staged %X", overflow, tx.Staged())
	}
}

func TestEditNotEditable(t *testing.T) {
	src := newFakeSource(0x100)
	src.readOnly[0x31] = true
	buf := newEditBuffer(t, src, 2)
	if _, err := BeginEdit(buf, testHex{}, 0x30); !errors.Is(err, ErrNotEditable) {
		t.Fatalf("read-only cell: %v", err)
	}
	if _, err := BeginEdit(buf, testHex{}, 0x100-2); err != nil {
		t.Fatalf("last cell: %v", err)
	}
	if _, err := BeginEdit(buf, testHex{}, 0x900); !errors.Is(err, ErrNotEditable) {
		t.Fatalf("uncached cell: %v", err)
	}
}

func TestEditFailedWriteRestores(t *testing.T) {
	src := newFakeSource(0x100)
	buf := newEditBuffer(t, src, 1)
	tx, _ := BeginEdit(buf, testHex{}, 0x40)
	tx.Apply("00")
	src.writeErr = errors.New("device busy")
	if err := tx.Commit(); !errors.Is(err, ErrWriteFailed) {
		t.Fatalf("err = %v, want ErrWriteFailed", err)
	}
	if got := buf.LineAt(0x40).Bytes[0].Value; got != 0x40 {
		t.Fatalf("cache changed to %02X after failed write", got)
	}
}

func TestEditRoundTripThroughSource(t *testing.T) {
	src := newFakeSource(0x100)
	buf := newEditBuffer(t, src, 4)
	for _, text := range []string{"00000000", "DEADBEEF", "0102A0FF"} {
		tx, err := BeginEdit(buf, testHex{}, 0x80)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := tx.Apply(text); err != nil {
			t.Fatal(err)
		}
		if err := tx.Commit(); err != nil {
			t.Fatal(err)
		}
		if err := buf.Refresh(0, 24); err != nil {
			t.Fatal(err)
		}
		cell := buf.LineAt(0x80).Column(buf.Geometry(), 1)
		if got := (testHex{}).Encode(cell, 0x80); got != text {
			t.Fatalf("read back %q, want %q", got, text)
		}
	}
}
