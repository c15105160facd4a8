// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: config/types.go
// Summary: Typed getters over config data.
//
// Values decoded from JSON arrive as float64, json.Number or string
// depending on how the file was written, so every getter accepts all of
// them and falls back to its default when a value does not convert. A nil
// Config is valid and returns defaults everywhere.

package config

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Section returns the named section or nil if missing.
func (c Config) Section(sectionName string) Section {
	if c == nil {
		return nil
	}
	if sectionName == "" {
		return Section(c)
	}
	switch v := c[sectionName].(type) {
	case Section:
		return v
	case map[string]interface{}:
		return Section(v)
	}
	return nil
}

// RegisterDefaults adds defaults to a section without overwriting keys that
// are already set.
func (c Config) RegisterDefaults(sectionName string, defaults Section) {
	if c == nil || len(defaults) == 0 {
		return
	}
	section := c.Section(sectionName)
	if section == nil {
		section = make(Section, len(defaults))
		c[sectionName] = section
	}
	for key, value := range defaults {
		if _, ok := section[key]; !ok {
			section[key] = value
		}
	}
}

func (c Config) lookup(sectionName, key string) (interface{}, bool) {
	section := c.Section(sectionName)
	if section == nil {
		return nil, false
	}
	v, ok := section[key]
	return v, ok
}

// GetString retrieves a string value.
func (c Config) GetString(sectionName, key, defaultValue string) string {
	if v, ok := c.lookup(sectionName, key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return defaultValue
}

// GetFloat retrieves a float value.
func (c Config) GetFloat(sectionName, key string, defaultValue float64) float64 {
	v, ok := c.lookup(sectionName, key)
	if !ok {
		return defaultValue
	}
	if f, ok := toFloat(v); ok {
		return f
	}
	return defaultValue
}

// GetInt retrieves an integer value. Fractions are truncated.
func (c Config) GetInt(sectionName, key string, defaultValue int) int {
	v, ok := c.lookup(sectionName, key)
	if !ok {
		return defaultValue
	}
	if s, ok := v.(string); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return n
		}
		return defaultValue
	}
	if f, ok := toFloat(v); ok {
		return int(f)
	}
	return defaultValue
}

// GetBool retrieves a boolean value. Numbers are true when non-zero.
func (c Config) GetBool(sectionName, key string, defaultValue bool) bool {
	v, ok := c.lookup(sectionName, key)
	if !ok {
		return defaultValue
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		if b, err := strconv.ParseBool(t); err == nil {
			return b
		}
		return defaultValue
	}
	if f, ok := toFloat(v); ok {
		return f != 0
	}
	return defaultValue
}

// GetAddress retrieves an unsigned address. Strings may be decimal or
// carry a 0x prefix ("0x400000"); negative numbers are rejected.
func (c Config) GetAddress(sectionName, key string, defaultValue uint64) uint64 {
	v, ok := c.lookup(sectionName, key)
	if !ok {
		return defaultValue
	}
	switch t := v.(type) {
	case string:
		if n, err := ParseAddress(t); err == nil {
			return n
		}
		return defaultValue
	case json.Number:
		if n, err := strconv.ParseUint(t.String(), 10, 64); err == nil {
			return n
		}
		return defaultValue
	}
	if f, ok := toFloat(v); ok && f >= 0 && f < math.MaxUint64 && f == math.Trunc(f) {
		return uint64(f)
	}
	return defaultValue
}

// ParseAddress parses a decimal, 0x-prefixed hex, 0o octal or 0b binary
// address.
func ParseAddress(s string) (uint64, error) {
	return strconv.ParseUint(strings.TrimSpace(s), 0, 64)
}

// GetDuration retrieves a duration. Numbers are milliseconds; strings use
// time.ParseDuration syntax ("250ms", "2s").
func (c Config) GetDuration(sectionName, key string, defaultValue time.Duration) time.Duration {
	v, ok := c.lookup(sectionName, key)
	if !ok {
		return defaultValue
	}
	if s, ok := v.(string); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d
		}
		return defaultValue
	}
	if f, ok := toFloat(v); ok {
		return time.Duration(f * float64(time.Millisecond))
	}
	return defaultValue
}

func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}
