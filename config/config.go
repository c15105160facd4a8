// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: config/config.go
// Summary: Process-wide system and per-app configuration for texelmem.
//
// Two kinds of JSON files live under the user config directory:
//
//	texelmem/texelmem.json             system settings (logging, block store)
//	texelmem/apps/<app>/config.json    settings of one app, e.g. memview
//
// Both are loaded lazily, created from the embedded defaults on first use
// and topped up with defaults for keys the user has not set.

package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"
)

const (
	systemConfigName = "texelmem.json"
	legacyConfigName = "config.json"
)

// Config stores configuration sections as JSON-compatible data. The empty
// section name addresses top-level keys.
type Config map[string]interface{}

// Section stores key/value pairs for a configuration section.
type Section map[string]interface{}

type store struct {
	mu      sync.RWMutex
	system  Config
	apps    map[string]Config
	loadErr error
}

var (
	once   sync.Once
	shared *store
)

func current() *store {
	once.Do(func() {
		s := &store{apps: make(map[string]Config)}
		s.system, s.loadErr = loadDocument(systemDocument())
		shared = s
	})
	return shared
}

// Err returns the error of the most recent system config load.
func Err() error {
	s := current()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadErr
}

// System returns the system configuration.
func System() Config {
	s := current()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.system
}

// App returns the configuration of the named app, loading it on first use.
// A file that cannot be read yields the defaults.
func App(name string) Config {
	if name == "" {
		return nil
	}
	s := current()
	s.mu.RLock()
	cfg, ok := s.apps[name]
	s.mu.RUnlock()
	if ok {
		return cfg
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg, ok := s.apps[name]; ok {
		return cfg
	}
	cfg, err := loadDocument(appDocument(name))
	if err != nil {
		log.Printf("Config: Failed to load app %q config: %v", name, err)
	}
	s.apps[name] = cfg
	return cfg
}

// Reload rereads the system config and every app config loaded so far.
func Reload() error {
	s := current()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.system, s.loadErr = loadDocument(systemDocument())
	for name := range s.apps {
		cfg, err := loadDocument(appDocument(name))
		if err != nil {
			log.Printf("Config: Failed to reload app %q config: %v", name, err)
			continue
		}
		s.apps[name] = cfg
	}
	return s.loadErr
}

// SetSystem replaces the in-memory system config with a copy of cfg.
func SetSystem(cfg Config) {
	s := current()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.system = orEmpty(Clone(cfg))
}

// SetApp replaces the in-memory config of an app with a copy of cfg.
func SetApp(name string, cfg Config) {
	if name == "" {
		return
	}
	s := current()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apps[name] = orEmpty(Clone(cfg))
}

// SaveSystem writes the in-memory system config to disk.
func SaveSystem() error {
	s := current()
	s.mu.RLock()
	defer s.mu.RUnlock()
	path, err := systemConfigPath()
	if err != nil {
		return err
	}
	return writeConfig(path, s.system)
}

// SaveApp writes the in-memory config of an app to disk, creating it from
// defaults if the app was never loaded.
func SaveApp(name string) error {
	if name == "" {
		return nil
	}
	s := current()
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg := s.apps[name]
	if cfg == nil {
		cfg = make(Config)
		applyAppDefaults(name, cfg)
		s.apps[name] = cfg
	}
	path, err := appConfigPath(name)
	if err != nil {
		return err
	}
	return writeConfig(path, cfg)
}

func orEmpty(cfg Config) Config {
	if cfg == nil {
		return make(Config)
	}
	return cfg
}

// readConfig returns exists=false without error for a missing file.
func readConfig(path string) (cfg Config, exists bool, err error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, true, err
	}
	return cfg, true, nil
}

func writeConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(orEmpty(cfg), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
