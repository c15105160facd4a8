// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: codec/hex.go
// Summary: Two hex digits per byte, in address order.

package codec

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/framegrace/texelmem/memory"
)

// Hex renders each byte as two upper-case hex digits.
type Hex struct{}

func (Hex) Name() string      { return "hex" }
func (Hex) CharsPerByte() int { return 2 }

// Encode renders data in address order. Unreadable bytes render as "??".
func (Hex) Encode(data []memory.MemoryByte, _ memory.Address) string {
	var sb strings.Builder
	sb.Grow(len(data) * 2)
	for _, b := range data {
		if !b.IsReadable() {
			sb.WriteString("??")
			continue
		}
		fmt.Fprintf(&sb, "%02X", b.Value)
	}
	return sb.String()
}

// Decode parses up to size bytes of hex digits. Spaces are ignored and a
// short value is padded with leading zeros, so "F" in a one-byte cell
// decodes to 0x0F.
func (Hex) Decode(text string, size, _ int) ([]byte, error) {
	digits := strings.ReplaceAll(strings.TrimSpace(text), " ", "")
	if digits == "" {
		return nil, fmt.Errorf("empty value")
	}
	if len(digits) > size*2 {
		return nil, fmt.Errorf("%d digits do not fit %d bytes", len(digits), size)
	}
	digits = strings.Repeat("0", size*2-len(digits)) + digits
	data, err := hex.DecodeString(digits)
	if err != nil {
		return nil, err
	}
	return data, nil
}
