// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: memory/logging.go
// Summary: Verbose debug logging toggle for the memory view engine.

package memory

import (
	"io"
	"log"
	"os"
)

var debugLog = log.New(io.Discard, "Memview: ", log.LstdFlags)

// SetVerboseLogging toggles verbose engine logging.
// When disabled (default), debug output is discarded.
func SetVerboseLogging(enable bool) {
	if enable {
		debugLog.SetOutput(os.Stderr)
	} else {
		debugLog.SetOutput(io.Discard)
	}
}

// SetLogOutput redirects verbose engine logging to w.
func SetLogOutput(w io.Writer) {
	debugLog.SetOutput(w)
}
