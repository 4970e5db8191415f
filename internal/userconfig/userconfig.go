// Copyright (c) 2024 santosr2
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package userconfig handles the per-user tool configuration file, distinct
// from a project's portman.yaml: where to cache fetched registries, which
// overlay directories to search before any registry, and how many
// registry fetches may run concurrently.
//
// # Example Configuration
//
//	cache-dir = "~/.cache/portman/registries"
//	overlay-search-path = ["~/.config/portman/ports"]
//	concurrency = 8
package userconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/cppkit/portman/internal/secureio"
)

// defaultConcurrency is used when the user hasn't configured a concurrency.
const defaultConcurrency = 8

// Config is the complete per-user configuration file.
type Config struct {
	CacheDir          string   `toml:"cache-dir,omitempty"`
	OverlaySearchPath []string `toml:"overlay-search-path,omitempty"`
	Concurrency       int      `toml:"concurrency,omitempty"`
}

// DefaultPath returns the conventional location of the user config file,
// $XDG_CONFIG_HOME/portman/config.toml or ~/.config/portman/config.toml.
func DefaultPath() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("determine home directory: %w", err)
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "portman", "config.toml"), nil
}

// Load reads and parses a user config file.
func Load(path string) (*Config, error) {
	data, err := secureio.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read user config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse user config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a zero-configuration user config: no cache directory
// override, no extra overlay search path, and the builtin concurrency.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Concurrency <= 0 {
		c.Concurrency = defaultConcurrency
	}
}
