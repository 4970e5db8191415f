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

package cmd

import (
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/cppkit/portman/internal/manifest"
	"github.com/cppkit/portman/internal/pkgid"
	"github.com/cppkit/portman/internal/policy"
	"github.com/cppkit/portman/internal/portprovider"
	"github.com/cppkit/portman/internal/registryset"
	"github.com/cppkit/portman/internal/secureio"
	"github.com/cppkit/portman/internal/statusdb"
	"github.com/cppkit/portman/internal/triplet"
	"github.com/cppkit/portman/internal/userconfig"
)

// newLogger builds the process-wide structured logger at the level
// selected by the global -q/-v flags.
func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: GetLogLevel(),
	}))
}

// loadPolicyConfig reads portman.yaml from the current directory, falling
// back to policy.DefaultConfig when no file is present.
func loadPolicyConfig(logger *slog.Logger) (*policy.Config, error) {
	configPath, err := filepath.Abs("portman.yaml")
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(configPath); err != nil {
		logger.Debug("no portman.yaml found, using defaults")
		return policy.DefaultConfig(), nil
	}

	cfg, err := policy.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger.Debug("loaded configuration", "path", configPath)
	return cfg, nil
}

// loadProjectManifest reads and parses vcpkg.json from the current
// directory.
func loadProjectManifest() (*manifest.SourceControlFile, error) {
	path, err := filepath.Abs("vcpkg.json")
	if err != nil {
		return nil, err
	}
	raw, err := secureio.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return manifest.ParseProjectManifest(raw, path)
}

// buildRegistrySet constructs a RegistrySet from cfg's registry entries.
func buildRegistrySet(cfg *policy.Config, logger *slog.Logger) *registryset.RegistrySet {
	return registryset.NewRegistrySet(cfg.Registries, logger)
}

// buildPortProvider wires an overlay-aware port provider over rs, using
// cfg's configured overlay port directories.
func buildPortProvider(cfg *policy.Config, rs *registryset.RegistrySet) *portprovider.Provider {
	return portprovider.New(cfg.OverlayPorts, rs)
}

// buildVarProvider wires a batched triplet-variable provider over cfg's
// overlay triplet directories, the user's own overlay search path, and the
// builtin triplets/ directory, in that precedence order.
func buildVarProvider(cfg *policy.Config, user *userconfig.Config) *triplet.DepInfoVarProvider {
	dirs := append(append([]string{}, cfg.OverlayTriplets...), user.OverlaySearchPath...)
	dirs = append(dirs, "triplets")
	return triplet.NewDepInfoVarProvider(dirs)
}

// loadUserConfig reads the per-user config.toml, falling back to
// userconfig.Default when no file is present.
func loadUserConfig(logger *slog.Logger) (*userconfig.Config, error) {
	path, err := userconfig.DefaultPath()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		logger.Debug("no user config found, using defaults", "path", path)
		return userconfig.Default(), nil
	}
	cfg, err := userconfig.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Debug("loaded user configuration", "path", path)
	return cfg, nil
}

// loadStatusDB reads the installed-package status database from
// portman/status, returning an empty database if it does not yet exist
// (a fresh install has nothing installed).
func loadStatusDB() (*statusdb.Database, error) {
	path, err := filepath.Abs(filepath.Join("portman", "status"))
	if err != nil {
		return nil, err
	}
	raw, err := secureio.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return statusdb.NewDatabase(nil), nil
		}
		return nil, err
	}
	paragraphs, err := statusdb.Parse(raw)
	if err != nil {
		return nil, err
	}
	return statusdb.NewDatabase(paragraphs), nil
}

// resolveTriplet returns t if non-empty, else cfg's configured default,
// else the host triplet for the current GOOS/GOARCH.
func resolveTriplet(t string, cfg *policy.Config) pkgid.Triplet {
	if t != "" {
		return pkgid.Triplet(t)
	}
	if cfg.DefaultTriplet != "" {
		return pkgid.Triplet(cfg.DefaultTriplet)
	}
	return hostTriplet()
}

func hostTriplet() pkgid.Triplet {
	arch := runtime.GOARCH
	switch arch {
	case "amd64":
		arch = "x64"
	case "386":
		arch = "x86"
	}
	goos := runtime.GOOS
	if goos == "darwin" {
		goos = "osx"
	}
	return pkgid.Triplet(arch + "-" + goos)
}
