// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: memory/content_buffer.go
// Summary: ContentBuffer caches a window of lines around the viewport.
//
// Architecture:
//
//	ContentBuffer presents a huge, possibly sparse address space as a small
//	window that is cheap to render:
//
//	  bufferStart                                          bufferEnd
//	  | pre-buffer lines | viewport lines | post-buffer lines |
//
//	When the visible position comes within EdgeThreshold lines of either
//	edge (and the window is not already flush with the source's bound) the
//	owner asks for a refill centered on the new position. Fetches run on
//	the scheduler's background worker and are applied on the UI thread; a
//	refill superseded by a newer request is dropped when it returns.
//
//	Before every refresh the current lines are copied into a snapshot.
//	Lines fetched later are compared against that snapshot to flag changed
//	bytes for highlighting.

package memory

import (
	"context"
	"fmt"
	"log"
)

// BufferConfig holds sizing for the content buffer.
type BufferConfig struct {
	// PreBufferLines are fetched above the viewport.
	// Default: 20
	PreBufferLines int

	// PostBufferLines are fetched below the viewport.
	// Default: 20
	PostBufferLines int

	// DefaultWindowLines is the viewport height assumed when the host has
	// not reported one yet.
	// Default: 20
	DefaultWindowLines int

	// EdgeThreshold is how close (in lines) the visible position may get to
	// a buffer edge before a refill is requested.
	// Default: 3
	EdgeThreshold int

	// DynamicLoad enables the pre/post margins. When false each refill
	// fetches exactly the viewport.
	// Default: true
	DynamicLoad bool
}

// DefaultBufferConfig returns sensible defaults.
func DefaultBufferConfig() BufferConfig {
	return BufferConfig{
		PreBufferLines:     20,
		PostBufferLines:    20,
		DefaultWindowLines: 20,
		EdgeThreshold:      3,
		DynamicLoad:        true,
	}
}

func (c BufferConfig) normalized() BufferConfig {
	def := DefaultBufferConfig()
	if c.PreBufferLines < 0 {
		c.PreBufferLines = def.PreBufferLines
	}
	if c.PostBufferLines < 0 {
		c.PostBufferLines = def.PostBufferLines
	}
	if c.DefaultWindowLines <= 0 {
		c.DefaultWindowLines = def.DefaultWindowLines
	}
	if c.EdgeThreshold < 0 {
		c.EdgeThreshold = def.EdgeThreshold
	}
	return c
}

// fetchRequest tracks one in-flight refill.
type fetchRequest struct {
	gen   uint64
	start Address
	units uint64
	done  bool
	err   error
}

// ContentBuffer owns the cached window of a single view.
// All methods must be called from the UI thread.
type ContentBuffer struct {
	geom   Geometry
	source DataSource
	sched  Scheduler
	config BufferConfig

	ctx    context.Context
	cancel context.CancelFunc

	cache    *LineCache
	snapshot map[Address]*RenderingLine

	contentBase    Address
	hasContentBase bool

	generation uint64
	pending    *fetchRequest
	err        error

	// contentVersion increments on every applied fetch or write.
	contentVersion int64

	onLoaded func(err error)
}

// NewContentBuffer creates an empty buffer over source.
func NewContentBuffer(source DataSource, geom Geometry, sched Scheduler, config BufferConfig) *ContentBuffer {
	if sched == nil {
		sched = InlineScheduler{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := &ContentBuffer{
		geom:     geom,
		source:   source,
		sched:    sched,
		config:   config.normalized(),
		ctx:      ctx,
		cancel:   cancel,
		cache:    NewLineCache(geom),
		snapshot: make(map[Address]*RenderingLine),
	}
	if ba, ok := source.(BaseAddresser); ok {
		if base, ok := ba.BaseAddress(); ok {
			b.contentBase = base
			b.hasContentBase = true
		}
	}
	return b
}

// SetLoadListener registers fn to run on the UI thread after each fetch
// has been applied (err == nil) or has failed.
func (b *ContentBuffer) SetLoadListener(fn func(err error)) {
	b.onLoaded = fn
}

// Config returns the buffer configuration.
func (b *ContentBuffer) Config() BufferConfig {
	return b.config
}

// Geometry returns the current layout.
func (b *ContentBuffer) Geometry() Geometry {
	return b.geom
}

// --- Window queries ---

// Lines returns every cached line.
func (b *ContentBuffer) Lines() []*RenderingLine {
	return b.cache.Lines()
}

// Len returns the number of cached lines.
func (b *ContentBuffer) Len() int {
	return b.cache.Len()
}

// BufferStart returns the address of the first cached line.
func (b *ContentBuffer) BufferStart() Address {
	return b.cache.Start()
}

// BufferEnd returns the address one past the last cached line.
func (b *ContentBuffer) BufferEnd() Address {
	return b.cache.End()
}

// Contains reports whether address is cached.
func (b *ContentBuffer) Contains(address Address) bool {
	return b.cache.Contains(address)
}

// Index returns the buffer line index holding address, or -1.
func (b *ContentBuffer) Index(address Address) int {
	return b.cache.Index(address)
}

// LineAt returns the cached line holding address, or nil.
func (b *ContentBuffer) LineAt(address Address) *RenderingLine {
	return b.cache.LineAt(address)
}

// Covers reports whether the viewport starting at top is fully cached.
// A viewport hanging past the end of a bounded source counts as covered
// once the buffer reaches that end.
func (b *ContentBuffer) Covers(top Address, viewportLines int) bool {
	if b.cache.Index(top) < 0 {
		return false
	}
	last := top.Add(b.geom.LineSpan(viewportLines - 1))
	return b.cache.Index(last) >= 0 || b.AtBottomLimit()
}

// ValidRange returns the source's extent, or Unbounded.
func (b *ContentBuffer) ValidRange() Range {
	r, _ := sourceRange(b.source)
	return r
}

// IsBounded reports whether the source has a fixed extent.
func (b *ContentBuffer) IsBounded() bool {
	_, ok := b.source.ValidRange()
	return ok
}

// InRange reports whether address lies in the source's valid range.
func (b *ContentBuffer) InRange(address Address) bool {
	return b.ValidRange().Contains(address)
}

// AtTopLimit reports whether the buffer starts at the source's lower bound.
func (b *ContentBuffer) AtTopLimit() bool {
	if b.cache.IsEmpty() {
		return false
	}
	return b.cache.Start() <= b.geom.LineStart(b.ValidRange().Start)
}

// AtBottomLimit reports whether the buffer reaches the source's upper bound.
func (b *ContentBuffer) AtBottomLimit() bool {
	if b.cache.IsEmpty() {
		return false
	}
	return b.cache.End() >= b.ValidRange().End
}

// NearEdge applies the edge-approach policy to a span of lines starting
// at the line holding address. It is true when address is not cached, or
// when the span is within EdgeThreshold lines of an edge that is not flush
// with the source's bound.
func (b *ContentBuffer) NearEdge(address Address, spanLines int) bool {
	i := b.cache.Index(address)
	if i < 0 {
		return true
	}
	threshold := b.config.EdgeThreshold
	if i < threshold && !b.AtTopLimit() {
		return true
	}
	if b.cache.Len()-(i+max(spanLines, 1)) < threshold && !b.AtBottomLimit() {
		return true
	}
	return false
}

// CurrentWindow returns the lines of the viewport starting at top.
// If the viewport is not cached a refill is requested; the lines covered
// afterwards are returned. A buffer in the failed state returns its error
// without retrying.
func (b *ContentBuffer) CurrentWindow(top Address, viewportLines int) ([]*RenderingLine, error) {
	if viewportLines <= 0 {
		viewportLines = b.config.DefaultWindowLines
	}
	if b.err != nil {
		return nil, b.err
	}
	if !b.Covers(top, viewportLines) && b.pending == nil {
		if err := b.Refill(top, viewportLines); err != nil {
			return nil, err
		}
	}
	return b.cache.Range(top, viewportLines), nil
}

// Err returns the error of the last failed fetch, or nil.
func (b *ContentBuffer) Err() error {
	return b.err
}

// Pending reports whether a refill is in flight.
func (b *ContentBuffer) Pending() bool {
	return b.pending != nil
}

// ContentVersion returns a counter that changes whenever cached content does.
func (b *ContentBuffer) ContentVersion() int64 {
	return b.contentVersion
}

// --- Loading ---

// Refill fetches a new window centered on center. The previously cached
// lines stay in place until the fetch succeeds.
func (b *ContentBuffer) Refill(center Address, viewportLines int) error {
	return b.load(center, viewportLines)
}

// Refresh snapshots the current lines for change detection, then reloads
// the window around top.
func (b *ContentBuffer) Refresh(top Address, viewportLines int) error {
	b.TakeSnapshot()
	return b.load(top, viewportLines)
}

// Window computes the [start, end) range a refill centered on center
// would request.
func (b *ContentBuffer) Window(center Address, viewportLines int) (start, end Address, err error) {
	if viewportLines <= 0 {
		viewportLines = b.config.DefaultWindowLines
	}
	rng := b.ValidRange()
	if !rng.Contains(center) {
		return 0, 0, fmt.Errorf("%w: %s not in [%s, %s)", ErrAddressOutOfRange, center, rng.Start, rng.End)
	}
	pre, post := b.config.PreBufferLines, b.config.PostBufferLines
	if !b.config.DynamicLoad {
		pre, post = 0, 0
	}

	center = b.geom.LineStart(center)
	lowest := b.geom.LineStart(rng.Start)
	start = center.Sub(b.geom.LineSpan(pre))
	end = center.Add(b.geom.LineSpan(viewportLines + post))
	if start < lowest {
		start = lowest
	}
	if end > rng.End {
		end = rng.End
		// Pull the start back so the viewport and pre-buffer still fit.
		pulled := b.geom.LineStart(end.Sub(b.geom.LineSpan(viewportLines + pre)))
		if pulled < start {
			start = max(pulled, lowest)
		}
	}
	if end <= start {
		return 0, 0, fmt.Errorf("%w: empty window at %s", ErrAddressOutOfRange, center)
	}
	return start, end, nil
}

func (b *ContentBuffer) load(center Address, viewportLines int) error {
	start, end, err := b.Window(center, viewportLines)
	if err != nil {
		return err
	}

	b.generation++
	req := &fetchRequest{gen: b.generation, start: start, units: uint64(end - start)}
	b.pending = req

	ctx, src, sched := b.ctx, b.source, b.sched
	debugLog.Printf("refill #%d [%s, %s)", req.gen, start, end)
	sched.Background(func() {
		data, err := src.ReadBytes(ctx, req.start, req.units)
		sched.Post(func() { b.apply(req, data, err) })
	})

	// An inline scheduler has already applied the result.
	if req.done {
		return req.err
	}
	return nil
}

// apply runs on the UI thread once a fetch returns.
func (b *ContentBuffer) apply(req *fetchRequest, data []MemoryByte, fetchErr error) {
	req.done = true
	if req.gen != b.generation {
		debugLog.Printf("dropping superseded refill #%d (current #%d)", req.gen, b.generation)
		return
	}
	b.pending = nil

	if fetchErr == nil && data == nil {
		fetchErr = fmt.Errorf("no content returned")
	}
	if fetchErr != nil {
		req.err = fmt.Errorf("%w at %s: %w", ErrFetchFailed, req.start, fetchErr)
		b.err = req.err
		log.Printf("Memview: %s: %v", b.source.ID(), req.err)
		if b.onLoaded != nil {
			b.onLoaded(req.err)
		}
		return
	}

	want := int(req.units) * b.geom.UnitSize()
	if len(data) > want {
		data = data[:want]
	}
	if len(data) < want {
		// The zero MemoryByte is UnreadableByte.
		padded := make([]MemoryByte, want)
		copy(padded, data)
		data = padded
	}
	lines := organizeLines(b.geom, req.start, data)
	wasFailed := b.err != nil
	for _, line := range lines {
		old := b.snapshot[line.Address]
		line.Monitored = old != nil && !wasFailed
		if line.Monitored {
			line.MarkDeltas(old)
		}
	}
	b.cache.Replace(lines)
	b.err = nil
	b.contentVersion++
	if b.onLoaded != nil {
		b.onLoaded(nil)
	}
}

// --- Deltas ---

// TakeSnapshot keeps a copy of the cached lines to compute change
// information against on the next fetch. A failed buffer keeps no
// snapshot because its content is not trustworthy.
func (b *ContentBuffer) TakeSnapshot() {
	b.snapshot = make(map[Address]*RenderingLine, b.cache.Len())
	if b.err != nil {
		return
	}
	for _, line := range b.cache.Lines() {
		c := line.Clone()
		c.UnmarkDeltas()
		b.snapshot[c.Address] = c
	}
}

// ResetDeltas clears change flags on cached lines and drops the snapshot,
// so changes are recomputed fresh the next time content is fetched.
func (b *ContentBuffer) ResetDeltas() {
	for _, line := range b.cache.Lines() {
		line.UnmarkDeltas()
		line.Monitored = false
	}
	b.snapshot = make(map[Address]*RenderingLine)
}

// SnapshotLen returns the number of lines in the delta snapshot.
func (b *ContentBuffer) SnapshotLen() int {
	return len(b.snapshot)
}

// --- Content base ---

// ContentBase returns the anchor address of the block.
func (b *ContentBuffer) ContentBase() (Address, bool) {
	return b.contentBase, b.hasContentBase
}

// SetContentBase records the anchor the current content was loaded for.
func (b *ContentBuffer) SetContentBase(address Address) {
	b.contentBase = address
	b.hasContentBase = true
}

// --- Mutation ---

// Reformat applies a new column layout. Cached bytes are kept.
func (b *ContentBuffer) Reformat(geom Geometry) {
	b.geom = geom
	b.cache.SetGeometry(geom)
}

// UpdateBytes overwrites cached bytes at address after a successful write.
func (b *ContentBuffer) UpdateBytes(address Address, values []byte) {
	line := b.cache.LineAt(address)
	if line == nil {
		return
	}
	offset := int(address-line.Address) * b.geom.UnitSize()
	for i, v := range values {
		if offset+i >= len(line.Bytes) {
			next := b.cache.LineAt(line.Address.Add(b.geom.LineSpan(1)))
			if next == nil {
				break
			}
			line, offset = next, -i
		}
		line.Bytes[offset+i].Value = v
	}
	b.contentVersion++
}

// Clear discards cached lines, any failure state and in-flight fetches.
func (b *ContentBuffer) Clear() {
	b.generation++
	b.pending = nil
	b.err = nil
	b.cache.Clear()
	b.snapshot = make(map[Address]*RenderingLine)
}

// Close cancels in-flight work and releases all cached lines.
func (b *ContentBuffer) Close() {
	b.cancel()
	b.Clear()
}
