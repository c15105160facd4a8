// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: config/clone.go
// Summary: Deep copies of config data.

package config

// Clone returns a deep copy of cfg. Nested sections come back as Section
// values whether they were decoded as plain maps or not.
func Clone(cfg Config) Config {
	if cfg == nil {
		return nil
	}
	out := make(Config, len(cfg))
	for k, v := range cfg {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return cloneSection(t)
	case Section:
		return cloneSection(t)
	case []interface{}:
		list := make([]interface{}, len(t))
		for i, item := range t {
			list[i] = cloneValue(item)
		}
		return list
	default:
		return v
	}
}

func cloneSection(m map[string]interface{}) Section {
	out := make(Section, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}
