// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: texel/app.go
// Summary: Contract between hosted apps and the screen runner.

package texel

import "github.com/gdamore/tcell/v2"

// Cell is one character cell of a rendered app buffer.
type Cell struct {
	Ch    rune
	Style tcell.Style
}

// App is a full-screen program driven by a runner.
//
// Resize, Render and the Handle* methods are called from the runner's UI
// goroutine. Run is started on its own goroutine and returns after Stop.
type App interface {
	Run() error
	Stop()
	Resize(cols, rows int)
	Render() [][]Cell
	HandleKey(ev *tcell.EventKey)
	SetRefreshNotifier(refreshChan chan<- bool)
	GetTitle() string
}

// MouseHandler is implemented by apps that accept mouse input.
type MouseHandler interface {
	HandleMouse(ev *tcell.EventMouse)
}

// PasteHandler is implemented by apps that accept bracketed paste.
type PasteHandler interface {
	HandlePaste(data []byte)
}

// Drainer is implemented by apps that queue work for the UI goroutine.
// The runner calls Drain before every draw triggered by a refresh.
type Drainer interface {
	Drain() int
}
