// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: config/store.go
// Summary: Loading of one config file: seeding, migration and defaults.

package config

import "log"

// document describes one config file and how to fill it in.
type document struct {
	label    string
	path     func() (string, error)
	seed     func() Config
	defaults func(Config)
	legacy   func(Config) (bool, error)
}

func systemDocument() document {
	return document{
		label:    "system",
		path:     systemConfigPath,
		seed:     defaultSystemConfig,
		defaults: applySystemDefaults,
		legacy:   migrateSystemFromLegacy,
	}
}

func appDocument(name string) document {
	return document{
		label:    "app " + name,
		path:     func() (string, error) { return appConfigPath(name) },
		seed:     func() Config { return defaultAppConfig(name) },
		defaults: func(cfg Config) { applyAppDefaults(name, cfg) },
		legacy:   func(cfg Config) (bool, error) { return migrateAppFromLegacy(name, cfg) },
	}
}

// loadDocument reads d from disk. A missing file is created from legacy
// settings or the embedded seed; an empty one is reseeded. The returned
// config is never nil and always carries defaults. The first error met is
// returned alongside it.
func loadDocument(d document) (Config, error) {
	path, err := d.path()
	if err != nil {
		log.Printf("Config: Failed to resolve %s config path: %v", d.label, err)
		cfg := make(Config)
		d.defaults(cfg)
		return cfg, err
	}

	var firstErr error
	note := func(what string, err error) {
		log.Printf("Config: %s %s config: %v", what, d.label, err)
		if firstErr == nil {
			firstErr = err
		}
	}

	cfg, exists, err := readConfig(path)
	if err != nil {
		note("Failed to read", err)
		cfg = nil
	}

	write := false
	switch {
	case !exists:
		cfg = make(Config)
		migrated, err := d.legacy(cfg)
		if err != nil {
			note("Legacy migration of", err)
		}
		if !migrated {
			if seed := d.seed(); seed != nil {
				cfg, migrated = seed, true
			}
		}
		write = migrated
	case len(cfg) == 0 && firstErr == nil:
		if seed := d.seed(); seed != nil {
			cfg = seed
			write = true
		}
	}
	cfg = orEmpty(cfg)
	d.defaults(cfg)

	if write {
		if err := writeConfig(path, cfg); err != nil {
			note("Failed to write", err)
		}
	}
	if exists && firstErr == nil {
		log.Printf("Config: Loaded %s config from %s", d.label, path)
	}
	return cfg, firstErr
}
