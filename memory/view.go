// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: memory/view.go
// Summary: View composes buffer, navigator, codec, lifecycle and sync hub.
//
// Architecture:
//
//	View is what a host widget talks to. It owns one ContentBuffer and one
//	Navigator over a DataSource, renders cells with a Codec and keeps its
//	selected address, column size and top address in step with other views
//	of the same source through a Hub.
//
//	  host --MoveTo/ScrollBy/...--> View --> Navigator --> ContentBuffer
//	                                  |                       |
//	                                  +--publish--> Hub       +--> DataSource
//	                                  <--adopt------+
//
//	User-initiated changes are published while the view is the active
//	provider of its source, or while the source has no provider. Values
//	adopted from peers are never republished, with one exception: Activate
//	republishes a top address it had to correct.
//
//	All methods run on the UI thread. Host operations hold an event lock;
//	a listener that calls back into the view while it is handling an
//	operation gets ErrBusy.

package memory

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/framegrace/texelmem/config"
	"github.com/framegrace/texelmem/synchub"
)

// Hub is the synchronization capability a view needs. *synchub.Hub
// implements it.
type Hub interface {
	Publish(sourceID string, prop synchub.Property, value, publisher any)
	Subscribe(sourceID string, props []synchub.Property, l synchub.Listener)
	Unsubscribe(sourceID string, l synchub.Listener)
	CurrentValue(sourceID string, prop synchub.Property) (any, bool)
	SetActiveProvider(sourceID string, provider any)
	MayPublish(sourceID string, publisher any) bool
}

// ViewConfig is read once when a view is created.
type ViewConfig struct {
	// UnitSize is the number of bytes per addressable unit.
	// Default: 1
	UnitSize int

	// UnitsPerLine is the number of addressable units per line.
	// Default: 16
	UnitsPerLine int

	// ColumnSize is the initial number of bytes per column.
	// Default: 4
	ColumnSize int

	Buffer BufferConfig

	// Padding is shown for each unreadable byte.
	// Default: ".."
	Padding string

	// DefaultCodec names the presentation hosts should start with.
	// Default: "hex"
	DefaultCodec string

	// ConnectTimeout bounds connect requests to live sources.
	// Default: 0 (none)
	ConnectTimeout time.Duration
}

// DefaultViewConfig returns sensible defaults.
func DefaultViewConfig() ViewConfig {
	return ViewConfig{
		UnitSize:     1,
		UnitsPerLine: DefaultUnitsPerLine,
		ColumnSize:   4,
		Buffer:       DefaultBufferConfig(),
		Padding:      "..",
		DefaultCodec: "hex",
	}
}

// ConfigSection is the configuration section holding view settings.
const ConfigSection = "memview"

// ConfigFromStore reads view settings from the memview section of cfg.
// Missing keys fall back to DefaultViewConfig.
func ConfigFromStore(cfg config.Config) ViewConfig {
	def := DefaultViewConfig()
	return ViewConfig{
		UnitSize:     def.UnitSize,
		UnitsPerLine: cfg.GetInt(ConfigSection, "units_per_line", def.UnitsPerLine),
		ColumnSize:   cfg.GetInt(ConfigSection, "column_size", def.ColumnSize),
		Buffer: BufferConfig{
			PreBufferLines:     cfg.GetInt(ConfigSection, "pre_buffer_lines", def.Buffer.PreBufferLines),
			PostBufferLines:    cfg.GetInt(ConfigSection, "post_buffer_lines", def.Buffer.PostBufferLines),
			DefaultWindowLines: cfg.GetInt(ConfigSection, "default_window_lines", def.Buffer.DefaultWindowLines),
			EdgeThreshold:      cfg.GetInt(ConfigSection, "edge_threshold", def.Buffer.EdgeThreshold),
			DynamicLoad:        cfg.GetBool(ConfigSection, "dynamic_load", def.Buffer.DynamicLoad),
		},
		Padding:        cfg.GetString(ConfigSection, "padding", def.Padding),
		DefaultCodec:   cfg.GetString(ConfigSection, "default_codec", def.DefaultCodec),
		ConnectTimeout: cfg.GetDuration(ConfigSection, "connect_timeout_ms", 0),
	}
}

// View is one rendering of a memory block.
type View struct {
	source DataSource
	codec  Codec
	hub    Hub
	sched  Scheduler
	config ViewConfig

	buf    *ContentBuffer
	nav    *Navigator
	life   *Lifecycle
	events *EventDispatcher
	lock   eventLock

	edit          *EditTransaction
	shownErr      error
	reloadPending bool
	disposed      bool
}

// NewView creates a hidden view of source. hub may be nil for a view that
// does not synchronize.
func NewView(source DataSource, codec Codec, hub Hub, sched Scheduler, cfg ViewConfig) (*View, error) {
	if source == nil || codec == nil {
		return nil, fmt.Errorf("memory: view needs a data source and a codec")
	}
	if sched == nil {
		sched = InlineScheduler{}
	}
	def := DefaultViewConfig()
	if cfg.UnitSize <= 0 {
		cfg.UnitSize = def.UnitSize
	}
	if cfg.UnitsPerLine <= 0 {
		cfg.UnitsPerLine = def.UnitsPerLine
	}
	if cfg.ColumnSize <= 0 {
		cfg.ColumnSize = cfg.UnitSize
	}
	if cfg.Padding == "" {
		cfg.Padding = def.Padding
	}
	geom, err := NewGeometryWithUnits(cfg.UnitSize, cfg.UnitsPerLine, cfg.UnitsPerLine*cfg.UnitSize, cfg.ColumnSize)
	if err != nil {
		return nil, err
	}

	v := &View{
		source: source,
		codec:  codec,
		hub:    hub,
		sched:  sched,
		config: cfg,
		events: NewEventDispatcher(),
	}
	v.buf = NewContentBuffer(source, geom, sched, cfg.Buffer)
	v.buf.SetLoadListener(v.onLoaded)
	v.nav = NewNavigator(v.buf, v.baseAddress(), cfg.Buffer.DefaultWindowLines)
	v.life = NewLifecycle(source, v, sched)
	v.life.SetConnectTimeout(cfg.ConnectTimeout)
	v.life.setObserver(v)
	if hub != nil {
		hub.Subscribe(source.ID(), nil, v)
	}
	return v, nil
}

// --- Accessors ---

func (v *View) Source() DataSource     { return v.source }
func (v *View) Codec() Codec           { return v.codec }
func (v *View) Geometry() Geometry     { return v.buf.Geometry() }
func (v *View) Buffer() *ContentBuffer { return v.buf }
func (v *View) Lifecycle() *Lifecycle  { return v.life }
func (v *View) Selected() Address      { return v.nav.Selected() }
func (v *View) Top() Address           { return v.nav.Top() }
func (v *View) Column() int            { return v.nav.Column() }
func (v *View) CursorRow() int         { return v.nav.CursorRow() }
func (v *View) ViewportLines() int     { return v.nav.ViewportLines() }
func (v *View) Edit() *EditTransaction { return v.edit }
func (v *View) IsDisposed() bool       { return v.disposed }

// Err returns the fetch error the view is presenting, or nil.
func (v *View) Err() error { return v.buf.Err() }

// Subscribe registers a listener for view events.
func (v *View) Subscribe(l Listener) { v.events.Subscribe(l) }

// Unsubscribe removes a listener.
func (v *View) Unsubscribe(l Listener) { v.events.Unsubscribe(l) }

func (v *View) baseAddress() Address {
	if base, ok := v.buf.ContentBase(); ok {
		return base
	}
	return v.buf.ValidRange().Start
}

func (v *View) enter() error {
	if v.disposed {
		return ErrDisposed
	}
	if !v.lock.tryAcquire() {
		return ErrBusy
	}
	return nil
}

// leave releases the event lock and runs a reload that arrived while the
// lock was held. A view presenting a fetch error drops it.
func (v *View) leave() {
	v.lock.release()
	if v.reloadPending && !v.disposed {
		v.reloadPending = false
		if v.buf.Err() == nil {
			v.loadVisible()
		}
	}
}

func (v *View) emit(t EventType) {
	v.events.Broadcast(Event{Type: t, Selected: v.nav.Selected(), Top: v.nav.Top(), Err: v.buf.Err()})
}

// --- Rendering ---

// CurrentWindow returns the lines of the viewport. A view in its error
// state returns the fetch error until Refresh or Reset succeeds.
func (v *View) CurrentWindow() ([]*RenderingLine, error) {
	if v.disposed {
		return nil, ErrDisposed
	}
	return v.buf.CurrentWindow(v.nav.Top(), v.nav.ViewportLines())
}

// CellText renders one grid cell of line. Column 0 is the address label;
// the gutter renders empty.
func (v *View) CellText(line *RenderingLine, column int) string {
	g := v.buf.Geometry()
	if column == 0 {
		return v.AddressLabel(line.Address)
	}
	data := line.Column(g, column)
	if data == nil {
		return ""
	}
	colAddr, _ := g.LineColumnToAddress(line.Address, column)
	for _, b := range data {
		if !b.IsReadable() {
			return v.paddingFor(data)
		}
	}
	return v.codec.Encode(data, colAddr)
}

// paddingFor renders a cell holding unreadable bytes.
func (v *View) paddingFor(data []MemoryByte) string {
	cpb := v.codec.CharsPerByte()
	pad := []rune(v.config.Padding)
	if cpb <= 0 {
		return string(pad)
	}
	unit := make([]rune, cpb)
	for i := range unit {
		unit[i] = pad[i%len(pad)]
	}
	return strings.Repeat(string(unit), len(data))
}

// AddressLabel formats address padded to the source's address width.
func (v *View) AddressLabel(address Address) string {
	return fmt.Sprintf("%0*X", v.addressDigits(), uint64(address))
}

func (v *View) addressDigits() int {
	if s, ok := v.source.(AddressSizer); ok && s.AddressSize() > 0 {
		return s.AddressSize() * 2
	}
	digits := 8
	if r, ok := v.source.ValidRange(); ok && r.End > 0 {
		if n := len(fmt.Sprintf("%X", uint64(r.End-1))); n > digits {
			digits = n
		}
	} else if !ok {
		digits = 16
	}
	return digits
}

// ColumnLabels returns the header of each data column: the unit offset
// within the line, or an offset range for multi-unit columns.
func (v *View) ColumnLabels() []string {
	g := v.buf.Geometry()
	upc := g.UnitsPerColumn()
	labels := make([]string, g.ColumnsPerLine())
	for i := range labels {
		first := i * upc
		if upc == 1 {
			labels[i] = fmt.Sprintf("%X", first)
		} else {
			labels[i] = fmt.Sprintf("%X-%X", first, first+upc-1)
		}
	}
	return labels
}

// --- Navigation ---

func (v *View) navigate(op func() error) error {
	if err := v.enter(); err != nil {
		return err
	}
	defer v.leave()
	v.dropEdit()
	selected, top := v.nav.Selected(), v.nav.Top()
	err := op()
	v.afterMove(selected, top, true)
	return err
}

// afterMove emits events and, when publish is set, publishes what changed.
func (v *View) afterMove(selected, top Address, publish bool) {
	selChanged := v.nav.Selected() != selected
	topChanged := v.nav.Top() != top
	if selChanged {
		v.emit(SelectionChanged)
	}
	if topChanged {
		v.emit(WindowChanged)
	}
	if !publish {
		return
	}
	if selChanged {
		v.publish(synchub.SelectedAddress, v.nav.Selected())
	}
	if topChanged {
		v.publish(synchub.TopAddress, v.nav.Top())
	}
}

func (v *View) publish(prop synchub.Property, value any) {
	if v.hub == nil || !v.hub.MayPublish(v.source.ID(), v) {
		return
	}
	debugLog.Printf("%s: publishing %s=%v", v.source.ID(), prop, value)
	v.hub.Publish(v.source.ID(), prop, value, v)
}

// MoveTo selects address, refilling the window when it is not cached.
func (v *View) MoveTo(address Address) error {
	return v.navigate(func() error { return v.nav.MoveTo(address) })
}

// MoveByLine moves the selection delta lines.
func (v *View) MoveByLine(delta int) error {
	return v.navigate(func() error { return v.nav.MoveByLine(delta) })
}

// MoveByColumn moves the selection delta columns, wrapping across lines.
func (v *View) MoveByColumn(delta int) error {
	return v.navigate(func() error { return v.nav.MoveByColumn(delta) })
}

// ScrollTo makes the line holding top the first visible line.
func (v *View) ScrollTo(top Address) error {
	return v.navigate(func() error { return v.nav.ScrollTo(top) })
}

// ScrollBy scrolls delta lines.
func (v *View) ScrollBy(delta int) error {
	return v.navigate(func() error { return v.nav.ScrollBy(delta) })
}

// SelectCell selects the cell at a viewport row and grid column.
func (v *View) SelectCell(row, column int) error {
	return v.navigate(func() error { return v.nav.SelectCell(row, column) })
}

// Resize changes the viewport height.
func (v *View) Resize(lines int) error {
	if err := v.enter(); err != nil {
		return err
	}
	defer v.leave()
	top := v.nav.Top()
	err := v.nav.SetViewportLines(lines)
	v.emit(WindowChanged)
	if v.nav.Top() != top {
		v.publish(synchub.TopAddress, v.nav.Top())
	}
	return err
}

// --- Formatting ---

// Format changes the column size in bytes. An unchanged size is a no-op;
// an invalid one returns ErrGeometryRejected.
func (v *View) Format(columnSize int) error {
	if err := v.enter(); err != nil {
		return err
	}
	defer v.leave()
	changed, err := v.reformat(columnSize)
	if err != nil || !changed {
		return err
	}
	v.publish(synchub.ColumnSize, columnSize)
	return nil
}

func (v *View) reformat(columnSize int) (bool, error) {
	geom, changed, err := v.buf.Geometry().WithColumnSize(columnSize)
	if err != nil || !changed {
		return false, err
	}
	v.dropEdit()
	v.buf.Reformat(geom)
	v.nav.Relayout()
	debugLog.Printf("%s: column size %d", v.source.ID(), columnSize)
	v.emit(GeometryChanged)
	return true, nil
}

// SetCodec switches the presentation format. Open edits are dropped.
func (v *View) SetCodec(codec Codec) error {
	if codec == nil {
		return fmt.Errorf("memory: nil codec")
	}
	if err := v.enter(); err != nil {
		return err
	}
	defer v.leave()
	v.dropEdit()
	v.codec = codec
	v.emit(WindowChanged)
	return nil
}

// --- Refresh ---

// Refresh reloads the window and computes change highlighting against the
// content shown before. If an expression-backed source moved its base
// address, the view reloads at the new base instead.
func (v *View) Refresh() error {
	if err := v.enter(); err != nil {
		return err
	}
	defer v.leave()
	return v.refresh()
}

func (v *View) refresh() error {
	v.dropEdit()
	if ba, ok := v.source.(BaseAddresser); ok {
		if base, ok := ba.BaseAddress(); ok {
			if old, had := v.buf.ContentBase(); !had || old != base {
				debugLog.Printf("%s: content base moved to %s", v.source.ID(), base)
				v.buf.SetContentBase(base)
				return v.resetTo(base)
			}
		}
	}
	return v.buf.Refresh(v.nav.Top(), v.nav.ViewportLines())
}

// Reset drops all cached content and goes to the base address.
func (v *View) Reset() error {
	if err := v.enter(); err != nil {
		return err
	}
	defer v.leave()
	v.dropEdit()
	return v.resetTo(v.baseAddress())
}

func (v *View) resetTo(address Address) error {
	selected, top := v.nav.Selected(), v.nav.Top()
	v.buf.Clear()
	v.nav.Reset(address)
	err := v.buf.Refill(address, v.nav.ViewportLines())
	v.afterMove(selected, top, true)
	return err
}

func (v *View) onLoaded(err error) {
	if v.disposed {
		return
	}
	v.emit(WindowChanged)
	if (err == nil) != (v.shownErr == nil) {
		v.shownErr = err
		v.emit(ErrorChanged)
	}
}

// --- Editing ---

// BeginEdit opens an edit on the selected cell. It returns nil without
// error when the cursor is on the address column or the gutter.
func (v *View) BeginEdit(initialText *string) (*EditTransaction, error) {
	if err := v.enter(); err != nil {
		return nil, err
	}
	defer v.leave()
	v.dropEdit()
	tx, err := v.nav.BeginEdit(v.codec, initialText)
	if err != nil {
		return nil, err
	}
	v.edit = tx
	return tx, nil
}

// CommitEdit applies text to the open edit and writes it. Text that does
// not fit the cell opens a new edit on the next cell, seeded with the
// remainder, which the host continues editing. A decode error leaves the
// edit open.
func (v *View) CommitEdit(text string) error {
	if err := v.enter(); err != nil {
		return err
	}
	defer v.leave()
	tx := v.edit
	if tx == nil || !tx.IsOpen() {
		v.edit = nil
		return ErrTransactionClosed
	}

	overflow, err := tx.Apply(text)
	if err != nil {
		return err
	}
	err = tx.Commit()
	v.edit = nil
	v.emit(WindowChanged)
	if err != nil {
		return err
	}
	if overflow == "" {
		return nil
	}

	selected, top := v.nav.Selected(), v.nav.Top()
	err = v.nav.MoveByColumn(1)
	v.afterMove(selected, top, true)
	if err != nil {
		return err
	}
	next, err := v.nav.BeginEdit(v.codec, &overflow)
	if err != nil {
		return err
	}
	v.edit = next
	return nil
}

// CancelEdit discards the open edit without writing.
func (v *View) CancelEdit() {
	v.dropEdit()
}

func (v *View) dropEdit() {
	if v.edit != nil {
		v.edit.Cancel()
		v.edit = nil
	}
}

// --- Lifecycle ---

// BecomesVisible connects live sources and synchronizes with peers.
func (v *View) BecomesVisible() error {
	if v.disposed {
		return ErrDisposed
	}
	return v.life.BecomesVisible()
}

// BecomesHidden disconnects live sources and discards change tracking.
func (v *View) BecomesHidden() error {
	if v.disposed {
		return ErrDisposed
	}
	return v.life.BecomesHidden()
}

// State returns the lifecycle state.
func (v *View) State() LifecycleState { return v.life.State() }

// Dispose releases the view. Live sources get exactly one disconnect and the
// view leaves the hub.
func (v *View) Dispose() {
	if v.disposed {
		return
	}
	v.dropEdit()
	v.life.Dispose()
	if v.hub != nil {
		v.hub.Unsubscribe(v.source.ID(), v)
	}
	v.buf.Close()
	v.events.Clear()
	v.disposed = true
}

func (v *View) lifecycleVisible() {
	v.synchronize(false)
	if v.life.State() == VisibleDisconnected {
		v.loadVisible()
	}
}

func (v *View) lifecycleConnected() {
	v.loadVisible()
}

func (v *View) lifecycleConnectFailed(err error) {
	// Fall back to whatever the source can serve without a connection.
	v.loadVisible()
}

func (v *View) lifecycleHidden() {
	v.dropEdit()
	v.buf.ResetDeltas()
}

func (v *View) lifecycleDisposed() {}

func (v *View) loadVisible() {
	if !v.lock.tryAcquire() {
		v.reloadPending = true
		return
	}
	defer v.leave()
	if err := v.refresh(); err != nil {
		log.Printf("Memview: %s: refresh: %v", v.source.ID(), err)
	}
}

// SourceChanged implements SourceListener. It may be called on any
// goroutine; the refresh runs on the UI thread.
func (v *View) SourceChanged(ev SourceEvent) {
	v.sched.Post(func() { v.handleSourceEvent(ev) })
}

func (v *View) handleSourceEvent(ev SourceEvent) {
	if v.disposed || !v.life.State().IsVisible() {
		return
	}
	switch ev.Kind {
	case SourceContentChanged, SourceSuspended:
		// Errors wait for an explicit Refresh or Reset.
		if err := v.buf.Err(); err != nil {
			debugLog.Printf("%s: ignoring source event %d while failed: %v", v.source.ID(), ev.Kind, err)
			return
		}
		v.loadVisible()
	case SourceTerminated:
		log.Printf("Memview: %s: source terminated", v.source.ID())
	}
}

// --- Synchronization ---

// Activate makes this view the provider of its source and adopts the
// values peers published. The selected address is authoritative: when the
// published top does not show it, the view derives its own top and
// republishes it.
func (v *View) Activate() error {
	if err := v.enter(); err != nil {
		return err
	}
	defer v.leave()
	if v.hub != nil {
		v.hub.SetActiveProvider(v.source.ID(), v)
	}
	v.synchronize(true)
	return nil
}

// synchronize adopts column size, then selection, then top from the hub.
func (v *View) synchronize(republish bool) {
	if v.hub == nil {
		return
	}
	id := v.source.ID()
	if raw, ok := v.hub.CurrentValue(id, synchub.ColumnSize); ok {
		if size, ok := raw.(int); ok {
			if _, err := v.reformat(size); err != nil {
				log.Printf("Memview: %s: ignoring column size %d: %v", id, size, err)
			}
		}
	}

	selected, top := v.nav.Selected(), v.nav.Top()
	rawSel, haveSel := v.hub.CurrentValue(id, synchub.SelectedAddress)
	if addr, ok := rawSel.(Address); haveSel && ok && addr != v.nav.Selected() {
		if err := v.nav.MoveTo(addr); err != nil {
			log.Printf("Memview: %s: ignoring selected address %s: %v", id, addr, err)
		}
	}
	if rawTop, ok := v.hub.CurrentValue(id, synchub.TopAddress); ok {
		if addr, ok := rawTop.(Address); ok && addr != v.nav.Top() {
			if !haveSel || v.shows(addr, v.nav.Selected()) {
				if err := v.nav.ScrollTo(addr); err != nil {
					log.Printf("Memview: %s: ignoring top address %s: %v", id, addr, err)
				}
			}
		}
	}
	if err := v.nav.RevealSelection(); err != nil {
		log.Printf("Memview: %s: %v", id, err)
	}
	v.afterMove(selected, top, false)

	if !republish || !haveSel {
		return
	}
	if rawTop, ok := v.hub.CurrentValue(id, synchub.TopAddress); !ok || rawTop != any(v.nav.Top()) {
		v.publish(synchub.TopAddress, v.nav.Top())
	}
}

// shows reports whether a viewport starting at top contains address.
func (v *View) shows(top, address Address) bool {
	g := v.buf.Geometry()
	line := g.LineStart(address)
	top = g.LineStart(top)
	return line >= top && line <= top.Add(g.LineSpan(v.nav.ViewportLines()-1))
}

// PropertyChanged implements synchub.Listener. Hidden views ignore peers
// and catch up when they become visible.
func (v *View) PropertyChanged(sourceID string, prop synchub.Property, value any) error {
	if v.disposed || sourceID != v.source.ID() || !v.life.State().IsVisible() {
		return nil
	}
	if err := v.enter(); err != nil {
		return err
	}
	defer v.leave()

	selected, top := v.nav.Selected(), v.nav.Top()
	var err error
	switch prop {
	case synchub.SelectedAddress:
		addr, ok := value.(Address)
		if !ok {
			return fmt.Errorf("%s: unexpected %T", prop, value)
		}
		if addr == selected {
			return nil
		}
		v.dropEdit()
		err = v.nav.MoveTo(addr)
	case synchub.TopAddress:
		addr, ok := value.(Address)
		if !ok {
			return fmt.Errorf("%s: unexpected %T", prop, value)
		}
		if addr == top {
			return nil
		}
		err = v.nav.ScrollTo(addr)
	case synchub.ColumnSize:
		size, ok := value.(int)
		if !ok {
			return fmt.Errorf("%s: unexpected %T", prop, value)
		}
		_, err = v.reformat(size)
	}
	v.afterMove(selected, top, false)
	return err
}
