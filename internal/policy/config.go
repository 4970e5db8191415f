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

// Package policy handles portman.yaml configuration file parsing.
//
// # Overview
//
// portman.yaml controls:
//   - The registry set: which registries back which package names, and in
//     what priority order they are consulted.
//   - Overlay port and triplet directories, consulted before any registry.
//   - The host and default target triplets.
//   - What happens when a manifest requests a package or feature the
//     configured registries cannot resolve.
//
// # Example Configuration
//
//	version: 1
//	default-triplet: x64-linux
//	host-triplet: x64-linux
//	unsupported-port-action: error
//	overlay-ports:
//	  - ./custom-ports
//	registries:
//	  - kind: git
//	    repository: https://github.com/cppkit/registry
//	    reference: main
//	    baseline: a1b2c3d4e5f6...
//	  - kind: filesystem
//	    path: ./local-registry
//	    packages: ["internal-widgets"]
//	features:
//	  versions: true
package policy

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/cppkit/portman/internal/secureio"
)

// UnsupportedPortAction selects what the planner does when a cluster's
// platform expression excludes the current triplet.
type UnsupportedPortAction string

// Recognized UnsupportedPortAction values.
const (
	UnsupportedPortActionError UnsupportedPortAction = "error"
	UnsupportedPortActionSkip  UnsupportedPortAction = "warn-and-skip"
)

// RegistryKind selects one of the three registry backends.
type RegistryKind string

// Recognized RegistryKind values.
const (
	RegistryKindBuiltin    RegistryKind = "builtin"
	RegistryKindFilesystem RegistryKind = "filesystem"
	RegistryKindGit        RegistryKind = "git"
)

// RegistryConfig is one entry of the registry set, consulted in list order
// for any package name it claims via Packages, which lists exact names (or,
// if Packages is empty, as the fallback for every name that no scoped entry
// claims, wherever in the list that entry sits).
type RegistryConfig struct {
	Kind       RegistryKind `yaml:"kind"`
	Path       string       `yaml:"path,omitempty"`
	Repository string       `yaml:"repository,omitempty"`
	Reference  string       `yaml:"reference,omitempty"`
	Baseline   string       `yaml:"baseline,omitempty"`
	Packages   []string     `yaml:"packages,omitempty"`
}

// FeatureFlags gates optional manifest syntax, mirroring vcpkg's
// feature-flag mechanism for staged rollout of version-sensitive fields.
type FeatureFlags struct {
	Versions bool `yaml:"versions"`
}

// Config is the complete portman.yaml configuration file.
type Config struct {
	Registries            []RegistryConfig      `yaml:"registries,omitempty"`
	OverlayPorts          []string              `yaml:"overlay-ports,omitempty"`
	OverlayTriplets       []string              `yaml:"overlay-triplets,omitempty"`
	DefaultTriplet        string                `yaml:"default-triplet,omitempty"`
	HostTriplet           string                `yaml:"host-triplet,omitempty"`
	UnsupportedPortAction UnsupportedPortAction `yaml:"unsupported-port-action,omitempty"`
	Features              FeatureFlags          `yaml:"features,omitempty"`
	Version               int                   `yaml:"version"`
}

// LoadConfig reads and parses a portman.yaml file.
func LoadConfig(path string) (*Config, error) {
	data, err := secureio.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Validate checks structural invariants of the configuration.
func (c *Config) Validate() error {
	if c.Version != 1 {
		return fmt.Errorf("unsupported version: %d (expected 1)", c.Version)
	}

	switch c.UnsupportedPortAction {
	case "", UnsupportedPortActionError, UnsupportedPortActionSkip:
	default:
		return fmt.Errorf("invalid unsupported-port-action %q (must be: error, warn-and-skip)", c.UnsupportedPortAction)
	}

	for i, r := range c.Registries {
		if err := validateRegistry(&r); err != nil {
			return fmt.Errorf("registries[%d]: %w", i, err)
		}
	}

	return nil
}

func validateRegistry(r *RegistryConfig) error {
	switch r.Kind {
	case RegistryKindBuiltin:
		return nil
	case RegistryKindFilesystem:
		if r.Path == "" {
			return fmt.Errorf("filesystem registry requires a path")
		}
		return nil
	case RegistryKindGit:
		if r.Repository == "" {
			return fmt.Errorf("git registry requires a repository")
		}
		if r.Baseline == "" {
			return fmt.Errorf("git registry requires a baseline commit")
		}
		return nil
	default:
		return fmt.Errorf("invalid kind %q (must be: builtin, filesystem, git)", r.Kind)
	}
}

// EffectiveUnsupportedPortAction returns the configured action, or the
// default (error) when unset.
func (c *Config) EffectiveUnsupportedPortAction() UnsupportedPortAction {
	if c.UnsupportedPortAction == "" {
		return UnsupportedPortActionError
	}
	return c.UnsupportedPortAction
}

// DefaultConfig returns a configuration with a single builtin registry and
// no overlays, matching a zero-configuration install of portman.
func DefaultConfig() *Config {
	return &Config{
		Version:               1,
		UnsupportedPortAction: UnsupportedPortActionError,
		Registries: []RegistryConfig{
			{Kind: RegistryKindBuiltin},
		},
	}
}
