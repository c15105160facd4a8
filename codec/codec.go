// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: codec/codec.go
// Summary: Presentation codecs for memory views and their lookup.
//
// Architecture:
//
//	A codec turns the bytes of one cell into text and parses edited text
//	back into bytes. Views receive a codec at construction; New resolves a
//	configured name, Detect picks a default for loaded content.

package codec

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-enry/go-enry/v2"

	"github.com/framegrace/texelmem/memory"
)

// ErrUnknownCodec is returned by New for unregistered names.
var ErrUnknownCodec = errors.New("codec: unknown codec")

var factories = map[string]func() memory.Codec{
	"hex":         func() memory.Codec { return Hex{} },
	"ascii":       func() memory.Codec { return ASCII{} },
	"signed":      func() memory.Codec { return Integer{Signed: true} },
	"unsigned":    func() memory.Codec { return Integer{} },
	"signed-be":   func() memory.Codec { return Integer{Signed: true, BigEndian: true} },
	"unsigned-be": func() memory.Codec { return Integer{BigEndian: true} },
}

// New returns the codec registered under name.
func New(name string) (memory.Codec, error) {
	f, ok := factories[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
	return f(), nil
}

// Names lists the registered codec names.
func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Detect picks a presentation for sample: ascii for text, hex otherwise.
func Detect(sample []byte) memory.Codec {
	if len(sample) == 0 || enry.IsBinary(sample) {
		return Hex{}
	}
	return ASCII{}
}
