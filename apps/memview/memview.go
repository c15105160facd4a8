// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: apps/memview/memview.go
// Summary: Terminal memory viewer showing two synchronized views of a block.
//
// Architecture:
//
//	The screen is split into two panes, each a memory.View of the same
//	data source, with a status line at the bottom:
//
//	  | header: address column + column labels |
//	  | rows of the active view                | pane 0
//	  | header                                 |
//	  | rows of the peer view                  | pane 1
//	  | status                                 |
//
//	Tab switches the active pane; the newly active view becomes the
//	synchronization provider and adopts the shared selection. Background
//	fetches complete through a LoopScheduler that the runner drains on
//	its UI goroutine before each refresh draw.

package memview

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/framegrace/texelmem/codec"
	"github.com/framegrace/texelmem/memory"
	"github.com/framegrace/texelmem/synchub"
	"github.com/framegrace/texelmem/texel"
)

// PaneCount is the number of views the app shows.
const PaneCount = 2

var (
	styleDefault  = tcell.StyleDefault
	styleHeader   = tcell.StyleDefault.Foreground(tcell.PaletteColor(6))
	styleActive   = styleHeader.Bold(true).Underline(true)
	styleAddress  = tcell.StyleDefault.Foreground(tcell.PaletteColor(4))
	styleChanged  = tcell.StyleDefault.Foreground(tcell.PaletteColor(1)).Bold(true)
	styleMissing  = tcell.StyleDefault.Dim(true)
	styleCursor   = tcell.StyleDefault.Reverse(true)
	styleEditing  = tcell.StyleDefault.Reverse(true).Foreground(tcell.PaletteColor(3))
	styleStatus   = tcell.StyleDefault.Reverse(true)
	styleErrorMsg = tcell.StyleDefault.Foreground(tcell.PaletteColor(1))
)

// pane is the screen area of one view.
type pane struct {
	view *memory.View
	y    int
	rows int
}

// App is the memory viewer. Its methods (except Run and Stop) must be
// called from the runner's UI goroutine.
type App struct {
	title  string
	source memory.DataSource
	sched  *memory.LoopScheduler
	hub    *synchub.Hub

	panes  [PaneCount]*pane
	active int

	codecs []string
	codec  int

	width, height int
	status        string

	editing  bool
	editText []rune

	stop     chan struct{}
	stopOnce sync.Once
}

// New creates an app over source with two views configured by cfg.
func New(title string, source memory.DataSource, cfg memory.ViewConfig) (*App, error) {
	first, err := codec.New(cfg.DefaultCodec)
	if err != nil {
		return nil, err
	}
	a := &App{
		title:  title,
		source: source,
		sched:  memory.NewLoopScheduler(),
		hub:    synchub.New(),
		codecs: codec.Names(),
		stop:   make(chan struct{}),
	}
	for i, name := range a.codecs {
		if name == first.Name() {
			a.codec = i
		}
	}
	for i := range a.panes {
		v, err := memory.NewView(source, first, a.hub, a.sched, cfg)
		if err != nil {
			a.dispose()
			return nil, err
		}
		a.panes[i] = &pane{view: v}
	}
	for _, p := range a.panes {
		if err := p.view.BecomesVisible(); err != nil {
			a.dispose()
			return nil, err
		}
	}
	if err := a.panes[0].view.Activate(); err != nil {
		a.dispose()
		return nil, err
	}
	return a, nil
}

// View returns the view shown in pane i.
func (a *App) View(i int) *memory.View { return a.panes[i].view }

// Active returns the index of the active pane.
func (a *App) Active() int { return a.active }

// Status returns the message shown on the status line.
func (a *App) Status() string { return a.status }

// Editing reports whether a cell edit is in progress.
func (a *App) Editing() bool { return a.editing }

func (a *App) current() *memory.View { return a.panes[a.active].view }

// Run waits until Stop. All view work happens on the UI goroutine.
func (a *App) Run() error {
	<-a.stop
	return nil
}

// Stop ends Run. Close releases the views.
func (a *App) Stop() {
	a.stopOnce.Do(func() { close(a.stop) })
}

func (a *App) stopped() bool {
	select {
	case <-a.stop:
		return true
	default:
		return false
	}
}

func (a *App) dispose() {
	for _, p := range a.panes {
		if p != nil {
			p.view.Dispose()
		}
	}
}

// Close disposes both views. It must run on the UI goroutine.
func (a *App) Close() {
	a.Stop()
	a.dispose()
}

func (a *App) GetTitle() string { return a.title }

// SetRefreshNotifier wakes the runner whenever background work completes.
func (a *App) SetRefreshNotifier(refreshChan chan<- bool) {
	a.sched.SetNotifier(func() {
		if refreshChan == nil {
			return
		}
		select {
		case refreshChan <- true:
		default:
		}
	})
}

// Drain applies completed fetches and connection results.
func (a *App) Drain() int {
	if a.stopped() {
		return 0
	}
	return a.sched.Drain()
}

// Scheduler exposes the UI work queue for hosts without a runner.
func (a *App) Scheduler() *memory.LoopScheduler { return a.sched }

// Resize lays out the two panes and the status line.
func (a *App) Resize(cols, rows int) {
	a.width, a.height = cols, rows
	avail := max(rows-1, 0)
	top := avail / 2
	a.panes[0].y, a.panes[0].rows = 0, top
	a.panes[1].y, a.panes[1].rows = top, avail-top
	for _, p := range a.panes {
		if lines := p.rows - 1; lines > 0 {
			a.report(p.view.Resize(lines))
		}
	}
}

// report shows err on the status line. It returns true if err was nil.
func (a *App) report(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, memory.ErrBusy) {
		return false
	}
	a.status = err.Error()
	return false
}

// --- Input ---

// HandleKey maps keys to view operations.
//
//	arrows       move by line or column
//	PgUp/PgDn    scroll one viewport
//	Tab          switch active pane
//	Enter/typing edit the selected cell
//	Esc          cancel an edit
//	Ctrl-R       refresh
//	Ctrl-G       go to the base address
//	Ctrl-F       next presentation format
//	[ and ]      halve or double the column size
func (a *App) HandleKey(ev *tcell.EventKey) {
	if a.editing {
		a.handleEditKey(ev)
		return
	}
	v := a.current()
	a.status = ""
	switch ev.Key() {
	case tcell.KeyUp:
		a.report(v.MoveByLine(-1))
	case tcell.KeyDown:
		a.report(v.MoveByLine(1))
	case tcell.KeyLeft:
		a.report(v.MoveByColumn(-1))
	case tcell.KeyRight:
		a.report(v.MoveByColumn(1))
	case tcell.KeyPgUp:
		a.report(v.ScrollBy(-v.ViewportLines()))
	case tcell.KeyPgDn:
		a.report(v.ScrollBy(v.ViewportLines()))
	case tcell.KeyTab:
		a.switchPane()
	case tcell.KeyEnter:
		a.beginEdit(nil)
	case tcell.KeyCtrlR:
		a.report(v.Refresh())
	case tcell.KeyCtrlG:
		a.report(v.Reset())
	case tcell.KeyCtrlF:
		a.nextCodec()
	case tcell.KeyRune:
		switch r := ev.Rune(); r {
		case '[':
			a.report(v.Format(v.Geometry().BytesPerColumn() / 2))
		case ']':
			a.report(v.Format(v.Geometry().BytesPerColumn() * 2))
		default:
			text := string(r)
			a.beginEdit(&text)
		}
	}
}

func (a *App) switchPane() {
	a.active = (a.active + 1) % PaneCount
	a.report(a.current().Activate())
}

func (a *App) nextCodec() {
	a.codec = (a.codec + 1) % len(a.codecs)
	c, err := codec.New(a.codecs[a.codec])
	if !a.report(err) {
		return
	}
	for _, p := range a.panes {
		a.report(p.view.SetCodec(c))
	}
}

func (a *App) beginEdit(initial *string) {
	tx, err := a.current().BeginEdit(initial)
	if !a.report(err) || tx == nil {
		return
	}
	a.editing = true
	a.editText = []rune(tx.Text())
}

func (a *App) handleEditKey(ev *tcell.EventKey) {
	v := a.current()
	switch ev.Key() {
	case tcell.KeyEscape:
		v.CancelEdit()
		a.editing = false
	case tcell.KeyEnter:
		err := v.CommitEdit(string(a.editText))
		if errors.Is(err, memory.ErrInvalidFormat) {
			a.report(err)
			return
		}
		a.report(err)
		if next := v.Edit(); next != nil && next.IsOpen() {
			a.editText = []rune(next.Text())
			return
		}
		a.editing = false
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if n := len(a.editText); n > 0 {
			a.editText = a.editText[:n-1]
		}
	case tcell.KeyRune:
		a.editText = append(a.editText, ev.Rune())
	}
}

// HandlePaste types pasted text into the open edit, starting one if
// needed. Line breaks are dropped.
func (a *App) HandlePaste(data []byte) {
	text := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, string(data))
	if text == "" {
		return
	}
	if !a.editing {
		a.beginEdit(&text)
		return
	}
	a.editText = append(a.editText, []rune(text)...)
}

// HandleMouse selects clicked cells, switches panes and scrolls.
func (a *App) HandleMouse(ev *tcell.EventMouse) {
	if a.editing {
		return
	}
	x, y := ev.Position()
	idx := -1
	for i, p := range a.panes {
		if y >= p.y && y < p.y+p.rows {
			idx = i
		}
	}
	if idx < 0 {
		return
	}
	if idx != a.active {
		a.active = idx
		a.report(a.current().Activate())
	}
	v := a.current()
	p := a.panes[idx]
	switch buttons := ev.Buttons(); {
	case buttons&tcell.WheelUp != 0:
		a.report(v.ScrollBy(-3))
	case buttons&tcell.WheelDown != 0:
		a.report(v.ScrollBy(3))
	case buttons&tcell.Button1 != 0:
		row := y - p.y - 1
		if row < 0 {
			return
		}
		if col, ok := columnAt(v, x); ok {
			a.report(v.SelectCell(row, col))
		}
	}
}

// --- Layout ---

// cellWidth returns the display width of a data column: wide enough for
// the widest cell text and the column label.
func cellWidth(v *memory.View) int {
	widest := dataWidth(v)
	for _, label := range v.ColumnLabels() {
		widest = max(widest, runewidth.StringWidth(label))
	}
	return widest
}

func dataWidth(v *memory.View) int {
	c := v.Codec()
	n := v.Geometry().BytesPerColumn()
	if cpb := c.CharsPerByte(); cpb > 0 {
		return cpb * n
	}
	// Variable-width codecs: size for the widest values of the cell.
	widest := 0
	ones := make([]memory.MemoryByte, n)
	lowSign := make([]memory.MemoryByte, n)
	highSign := make([]memory.MemoryByte, n)
	for i := range ones {
		ones[i] = memory.NewByte(0xFF)
		lowSign[i] = memory.NewByte(0)
		highSign[i] = memory.NewByte(0)
	}
	lowSign[0].Value, highSign[n-1].Value = 0x80, 0x80
	for _, sample := range [][]memory.MemoryByte{ones, lowSign, highSign} {
		widest = max(widest, runewidth.StringWidth(c.Encode(sample, 0)))
	}
	return widest
}

// columnX returns the screen x of grid column col for cells of width w.
func columnX(v *memory.View, col, w int) int {
	label := runewidth.StringWidth(v.AddressLabel(0))
	if col == 0 {
		return 0
	}
	return label + 1 + (col-1)*(w+1)
}

// columnAt maps a screen x to a grid column.
func columnAt(v *memory.View, x int) (int, bool) {
	label := runewidth.StringWidth(v.AddressLabel(0))
	if x < label {
		return 0, true
	}
	if x == label {
		return 0, false
	}
	col := (x-label-1)/(cellWidth(v)+1) + 1
	if col > v.Geometry().ColumnsPerLine() {
		return 0, false
	}
	return col, true
}

// --- Rendering ---

// Render draws both panes and the status line.
func (a *App) Render() [][]texel.Cell {
	if a.width <= 0 || a.height <= 0 {
		return [][]texel.Cell{}
	}
	buf := make([][]texel.Cell, a.height)
	for y := range buf {
		buf[y] = make([]texel.Cell, a.width)
		for x := range buf[y] {
			buf[y][x] = texel.Cell{Ch: ' ', Style: styleDefault}
		}
	}
	if a.stopped() {
		return buf
	}
	for i, p := range a.panes {
		a.renderPane(buf, i, p)
	}
	a.renderStatus(buf)
	return buf
}

func put(buf [][]texel.Cell, x, y int, s string, style tcell.Style) int {
	if y < 0 || y >= len(buf) {
		return x
	}
	for _, r := range s {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		if x >= 0 && x < len(buf[y]) {
			buf[y][x] = texel.Cell{Ch: r, Style: style}
		}
		x += w
	}
	return x
}

func (a *App) renderPane(buf [][]texel.Cell, idx int, p *pane) {
	if p.rows <= 0 {
		return
	}
	v := p.view
	g := v.Geometry()
	width := cellWidth(v)

	headerStyle := styleHeader
	if idx == a.active {
		headerStyle = styleActive
	}
	put(buf, 0, p.y, runewidth.FillRight(v.Codec().Name(), runewidth.StringWidth(v.AddressLabel(0))), headerStyle)
	for i, label := range v.ColumnLabels() {
		put(buf, columnX(v, i+1, width), p.y, runewidth.FillLeft(label, width), headerStyle)
	}

	lines, err := v.CurrentWindow()
	if err != nil {
		put(buf, 0, p.y+1, err.Error(), styleErrorMsg)
		return
	}
	cursorRow := v.CursorRow()
	for row, line := range lines {
		y := p.y + 1 + row
		if row >= p.rows-1 {
			break
		}
		put(buf, 0, y, v.CellText(line, 0), styleAddress)
		for col := 1; col <= g.ColumnsPerLine(); col++ {
			style := cellStyle(line.Column(g, col))
			text := v.CellText(line, col)
			if row == cursorRow && col == v.Column() {
				style = styleCursor
				if a.editing && idx == a.active {
					style = styleEditing
					text = string(a.editText)
				}
			}
			put(buf, columnX(v, col, width), y, runewidth.FillLeft(runewidth.Truncate(text, width, ""), width), style)
		}
	}
}

func cellStyle(data []memory.MemoryByte) tcell.Style {
	for _, b := range data {
		if !b.IsReadable() {
			return styleMissing
		}
	}
	for _, b := range data {
		if b.IsChanged() {
			return styleChanged
		}
	}
	return styleDefault
}

func (a *App) renderStatus(buf [][]texel.Cell) {
	y := a.height - 1
	v := a.current()
	var sb strings.Builder
	fmt.Fprintf(&sb, " %s  pane %d  sel %s  top %s  col %dB",
		a.source.ID(), a.active+1, v.AddressLabel(v.Selected()), v.AddressLabel(v.Top()), v.Geometry().BytesPerColumn())
	if a.editing {
		sb.WriteString("  [edit]")
	}
	if a.status != "" {
		sb.WriteString("  ")
		sb.WriteString(a.status)
	}
	put(buf, 0, y, runewidth.FillRight(sb.String(), a.width), styleStatus)
}
