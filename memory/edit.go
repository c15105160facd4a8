// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: memory/edit.go
// Summary: EditTransaction validates and commits a single cell edit.
//
// Architecture:
//
//	Begin captures the cell's current bytes. Apply decodes text with the
//	view's codec and stages the result; nothing reaches the data source
//	until Commit. Cancel simply drops the staged bytes. Text longer than a
//	cell is split: Apply stages the part that fits and hands back the
//	remainder so the caller can seed the next cell's transaction.

package memory

import (
	"fmt"
	"log"
	"unicode/utf8"
)

type editState int

const (
	editOpen editState = iota
	editStaged
	editCommitted
	editCancelled
)

// EditTransaction is an edit of one column.
type EditTransaction struct {
	buf     *ContentBuffer
	codec   Codec
	address Address

	original []byte
	staged   []byte
	text     string
	state    editState
}

// BeginEdit opens a transaction on the column holding address.
// It fails with ErrNotEditable when the cell is not cached, holds
// unreadable or read-only bytes, or the source's WriteGuard refuses it.
func BeginEdit(buf *ContentBuffer, codec Codec, address Address) (*EditTransaction, error) {
	g := buf.Geometry()
	address = g.ColumnStart(address)
	line := buf.LineAt(address)
	if line == nil {
		return nil, fmt.Errorf("%w: %s is not loaded", ErrNotEditable, address)
	}
	offset := int(address-line.Address) * g.UnitSize()
	cell := line.Bytes[offset : offset+g.BytesPerColumn()]
	for _, b := range cell {
		if !b.IsReadable() || !b.IsWritable() {
			return nil, fmt.Errorf("%w: %s is read-only", ErrNotEditable, address)
		}
	}
	if guard, ok := buf.source.(WriteGuard); ok && !guard.CanWrite(address, uint64(g.UnitsPerColumn())) {
		return nil, fmt.Errorf("%w: %s rejected by source", ErrNotEditable, address)
	}
	return &EditTransaction{
		buf:      buf,
		codec:    codec,
		address:  address,
		original: Values(cell),
		text:     codec.Encode(cell, address),
	}, nil
}

// Address returns the first address of the edited cell.
func (t *EditTransaction) Address() Address { return t.address }

// Original returns the cell's bytes as they were when the edit began.
func (t *EditTransaction) Original() []byte { return t.original }

// Staged returns the bytes Commit would write, or nil.
func (t *EditTransaction) Staged() []byte { return t.staged }

// Text returns the text shown in the cell editor.
func (t *EditTransaction) Text() string { return t.text }

// SetText seeds the cell editor, e.g. with the key that started the edit.
func (t *EditTransaction) SetText(text string) { t.text = text }

// IsOpen reports whether the transaction can still be applied or committed.
func (t *EditTransaction) IsOpen() bool {
	return t.state == editOpen || t.state == editStaged
}

// Capacity returns the number of characters one cell holds, or 0 when the
// codec has no fixed width.
func (t *EditTransaction) Capacity() int {
	return t.codec.CharsPerByte() * t.buf.Geometry().BytesPerColumn()
}

// Apply decodes text and stages the bytes for Commit. When text holds
// more characters than the cell, only the leading part is decoded and the
// rest is returned as overflow. A decode failure returns ErrInvalidFormat
// and leaves the transaction open for correction.
func (t *EditTransaction) Apply(text string) (overflow string, err error) {
	if !t.IsOpen() {
		return "", ErrTransactionClosed
	}
	if text == "" {
		return "", nil
	}
	cellText := text
	if capacity := t.Capacity(); capacity > 0 && utf8.RuneCountInString(text) > capacity {
		cellText, overflow = splitRunes(text, capacity)
	}

	g := t.buf.Geometry()
	data, err := t.codec.Decode(cellText, g.BytesPerColumn(), g.UnitSize())
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrInvalidFormat, cellText, err)
	}
	if len(data) != g.BytesPerColumn() {
		return "", fmt.Errorf("%w: %q decodes to %d bytes, cell holds %d",
			ErrInvalidFormat, cellText, len(data), g.BytesPerColumn())
	}
	t.staged = data
	t.text = cellText
	t.state = editStaged
	return overflow, nil
}

// Commit writes the staged bytes through the data source and updates the
// cached line. Committing with nothing staged closes the transaction
// without writing. On a failed write the pre-edit bytes are restored.
func (t *EditTransaction) Commit() error {
	switch t.state {
	case editCommitted, editCancelled:
		return ErrTransactionClosed
	case editOpen:
		t.state = editCommitted
		return nil
	}

	ctx := t.buf.ctx
	if err := t.buf.source.WriteBytes(ctx, t.address, t.staged); err != nil {
		t.state = editCancelled
		// The source may have applied part of the write.
		if rerr := t.buf.source.WriteBytes(ctx, t.address, t.original); rerr != nil {
			log.Printf("Memview: %s: restoring %s after failed edit: %v", t.buf.source.ID(), t.address, rerr)
		}
		return fmt.Errorf("%w at %s: %w", ErrWriteFailed, t.address, err)
	}
	t.buf.UpdateBytes(t.address, t.staged)
	t.state = editCommitted
	debugLog.Printf("committed %X at %s", t.staged, t.address)
	return nil
}

// Cancel discards the transaction. The data source is never written.
func (t *EditTransaction) Cancel() {
	if t.IsOpen() {
		t.state = editCancelled
		t.staged = nil
	}
}

func splitRunes(s string, n int) (head, tail string) {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos], s[pos:]
		}
		i++
	}
	return s, ""
}
