// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: memory/errors.go
// Summary: Error values reported by the memory view engine.

package memory

import "errors"

var (
	// ErrFetchFailed is returned when the data source cannot deliver the
	// requested range. It is the only error that switches a view into its
	// error presentation.
	ErrFetchFailed = errors.New("memory: fetch failed")

	// ErrAddressOutOfRange is returned when a navigation or edit target lies
	// outside the data source's valid range.
	ErrAddressOutOfRange = errors.New("memory: address out of range")

	// ErrInvalidFormat is returned when a codec cannot decode edit text.
	ErrInvalidFormat = errors.New("memory: invalid format")

	// ErrNotEditable is returned when an edit targets a read-only cell.
	ErrNotEditable = errors.New("memory: cell not editable")

	// ErrGeometryRejected is returned for an invalid reformat request.
	ErrGeometryRejected = errors.New("memory: geometry rejected")

	// ErrWriteFailed is returned when the data source rejects a commit.
	ErrWriteFailed = errors.New("memory: write failed")

	// ErrTransactionClosed is returned by operations on a committed or
	// cancelled edit transaction.
	ErrTransactionClosed = errors.New("memory: transaction closed")

	// ErrDisposed is returned by operations on a disposed view.
	ErrDisposed = errors.New("memory: view disposed")

	// ErrBusy is returned when another navigation event is being processed.
	ErrBusy = errors.New("memory: event in progress")
)
