// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: config/paths.go
// Summary: Where texelmem keeps its config files and cached data.

package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const dirName = "texelmem"

func configRoot() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, dirName), nil
}

func inConfigRoot(parts ...string) (string, error) {
	root, err := configRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(append([]string{root}, parts...)...), nil
}

func systemConfigPath() (string, error) { return inConfigRoot(systemConfigName) }
func legacyConfigPath() (string, error) { return inConfigRoot(legacyConfigName) }

func appConfigPath(app string) (string, error) {
	if app == "" {
		return "", fmt.Errorf("app name is required")
	}
	return inConfigRoot("apps", app, "config.json")
}

// CachePath returns name inside the texelmem user cache directory, which
// holds the log file and the default block store.
func CachePath(name string) (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, dirName, name), nil
}
