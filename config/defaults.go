// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: config/defaults.go
// Summary: Default values for system and app configuration files.

package config

func applySystemDefaults(cfg Config) {
	if cfg == nil {
		return
	}
	cfg.RegisterDefaults("", Section{
		"defaultApp": "memview",
		"log_file":   "",
		"verbose":    false,
	})
	cfg.RegisterDefaults("store", Section{
		"path": "",
	})
}

func applyAppDefaults(app string, cfg Config) {
	if cfg == nil {
		return
	}
	switch app {
	case "memview":
		cfg.RegisterDefaults("memview", Section{
			"column_size":          4,
			"units_per_line":       16,
			"pre_buffer_lines":     20,
			"post_buffer_lines":    20,
			"default_window_lines": 20,
			"edge_threshold":       3,
			"dynamic_load":         true,
			"default_codec":        "hex",
			"padding":              "..",
			"connect_timeout_ms":   0,
			"file_base":            "0x0",
		})
	}
}
