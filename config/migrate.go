// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: config/migrate.go
// Summary: Legacy config migration helpers.
//
// Before the system/app split every setting lived in a single config.json
// under the config root. Missing files are seeded from it once.

package config

var legacySystemKeys = []string{"defaultApp", "log_file", "verbose"}

func migrateSystemFromLegacy(cfg Config) (bool, error) {
	if cfg == nil {
		return false, nil
	}
	legacyCfg, err := readLegacy()
	if err != nil || legacyCfg == nil {
		return false, err
	}
	migrated := false
	for _, key := range legacySystemKeys {
		if _, ok := cfg[key]; ok {
			continue
		}
		if val, ok := legacyCfg[key]; ok {
			cfg[key] = val
			migrated = true
		}
	}
	if copySection(cfg, legacyCfg, "store") {
		migrated = true
	}
	return migrated, nil
}

func migrateAppFromLegacy(app string, cfg Config) (bool, error) {
	if cfg == nil || app != "memview" {
		return false, nil
	}
	legacyCfg, err := readLegacy()
	if err != nil || legacyCfg == nil {
		return false, err
	}
	return copySection(cfg, legacyCfg, "memview"), nil
}

func readLegacy() (Config, error) {
	path, err := legacyConfigPath()
	if err != nil {
		return nil, err
	}
	cfg, exists, err := readConfig(path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	return cfg, nil
}

func copySection(dst Config, src Config, name string) bool {
	if dst == nil || src == nil || name == "" {
		return false
	}
	if _, ok := dst[name]; ok {
		return false
	}
	if section, ok := src[name]; ok {
		dst[name] = section
		return true
	}
	return false
}
