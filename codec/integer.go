// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: codec/integer.go
// Summary: Decimal rendering of a whole cell as one integer.

package codec

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/framegrace/texelmem/memory"
)

// Integer renders a cell as a signed or unsigned decimal number. Cells may
// be wider than 8 bytes, so values are computed with math/big.
type Integer struct {
	Signed    bool
	BigEndian bool
}

func (c Integer) Name() string {
	name := "unsigned"
	if c.Signed {
		name = "signed"
	}
	if c.BigEndian {
		name += "-be"
	}
	return name
}

// CharsPerByte is 0: decimal text has no fixed width, edits never split.
func (Integer) CharsPerByte() int { return 0 }

// Encode renders data as one number. A cell holding any unreadable byte
// renders as "?".
func (c Integer) Encode(data []memory.MemoryByte, _ memory.Address) string {
	raw := make([]byte, len(data))
	for i, b := range data {
		if !b.IsReadable() {
			return "?"
		}
		raw[i] = b.Value
	}
	return c.toInt(raw).String()
}

func (c Integer) toInt(raw []byte) *big.Int {
	be := make([]byte, len(raw))
	copy(be, raw)
	if !c.BigEndian {
		reverse(be)
	}
	v := new(big.Int).SetBytes(be)
	if c.Signed && len(be) > 0 && be[0]&0x80 != 0 {
		v.Sub(v, new(big.Int).Lsh(big.NewInt(1), uint(len(be)*8)))
	}
	return v
}

// Decode parses a decimal number into size bytes.
func (c Integer) Decode(text string, size, _ int) ([]byte, error) {
	text = strings.TrimSpace(text)
	v, ok := new(big.Int).SetString(text, 10)
	if !ok {
		return nil, fmt.Errorf("%q is not a decimal number", text)
	}

	bits := uint(size * 8)
	limit := new(big.Int).Lsh(big.NewInt(1), bits)
	lo, hi := big.NewInt(0), new(big.Int).Sub(limit, big.NewInt(1))
	if c.Signed {
		half := new(big.Int).Rsh(limit, 1)
		lo = new(big.Int).Neg(half)
		hi = new(big.Int).Sub(half, big.NewInt(1))
	}
	if v.Cmp(lo) < 0 || v.Cmp(hi) > 0 {
		return nil, fmt.Errorf("%s does not fit %d bytes", text, size)
	}
	if v.Sign() < 0 {
		v.Add(v, limit)
	}

	data := v.FillBytes(make([]byte, size))
	if !c.BigEndian {
		reverse(data)
	}
	return data, nil
}

func reverse(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}
