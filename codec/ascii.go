// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: codec/ascii.go
// Summary: One printable character per byte.

package codec

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"

	"github.com/framegrace/texelmem/memory"
)

// NonPrintable is shown for bytes without a single-cell glyph.
const NonPrintable = '.'

// ASCII renders printable 7-bit bytes as themselves and everything else
// as NonPrintable.
type ASCII struct{}

func (ASCII) Name() string      { return "ascii" }
func (ASCII) CharsPerByte() int { return 1 }

// Printable reports whether b renders as itself in a single terminal cell.
func Printable(b byte) bool {
	r := rune(b)
	return b < 0x80 && unicode.IsPrint(r) && runewidth.RuneWidth(r) == 1
}

func (ASCII) Encode(data []memory.MemoryByte, _ memory.Address) string {
	var sb strings.Builder
	sb.Grow(len(data))
	for _, b := range data {
		if b.IsReadable() && Printable(b.Value) {
			sb.WriteByte(b.Value)
			continue
		}
		sb.WriteRune(NonPrintable)
	}
	return sb.String()
}

// Decode accepts up to size printable characters. Bytes not covered by
// text are zero.
func (ASCII) Decode(text string, size, _ int) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("empty value")
	}
	if n := uniseg.GraphemeClusterCount(text); n > size {
		return nil, fmt.Errorf("%d characters do not fit %d bytes", n, size)
	}
	data := make([]byte, size)
	g := uniseg.NewGraphemes(text)
	for i := 0; g.Next(); i++ {
		cluster := g.Str()
		if len(cluster) != 1 || !Printable(cluster[0]) {
			return nil, fmt.Errorf("%q is not a printable ASCII character", cluster)
		}
		data[i] = cluster[0]
	}
	return data, nil
}
