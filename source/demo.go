// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: source/demo.go
// Summary: Demo live source with a text page and a page of ticking counters.

package source

import (
	"encoding/binary"
	"time"

	"github.com/framegrace/texelmem/memory"
)

// Demo layout.
const (
	DemoBase     memory.Address = 0x400000
	DemoCounters memory.Address = DemoBase + PageSize
	demoInterval                = 250 * time.Millisecond
)

const demoBanner = "texelmem demo: page 1 holds counters that tick while a view is connected. " +
	"The page after it is unmapped.\x00"

// NewDemo returns a live source with two mapped pages at DemoBase. The
// first holds text. The second holds little-endian uint32 counters that
// increase on a ticker while any listener is connected.
func NewDemo() *Live {
	l := NewLive("demo")
	page := make([]byte, PageSize)
	copy(page, demoBanner)
	for i := len(demoBanner); i < PageSize; i++ {
		page[i] = byte(i)
	}
	l.Map(DemoBase, page)
	l.Map(DemoCounters, make([]byte, PageSize))
	l.SetBase(DemoBase)

	var tick uint32
	l.SetMutator(func(l *Live) {
		tick++
		var buf [4]byte
		for i := uint32(0); i < 8; i++ {
			binary.LittleEndian.PutUint32(buf[:], tick*(i+1))
			l.Map(DemoCounters.Add(uint64(i*4)), buf[:])
		}
	}, demoInterval)
	return l
}
