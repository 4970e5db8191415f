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

package registryset

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/cppkit/portman/internal/pkgid"
	"github.com/cppkit/portman/internal/pkgver"
	"github.com/cppkit/portman/internal/secureio"
)

// portPathPrefix marks a path locator as relative to the owning registry's
// own root, vcpkg's "$/ports/<name>" convention.
const portPathPrefix = "$/"

// wireVersionEntry is one JSON record of a versions/<x->/<name>.json file.
type wireVersionEntry struct {
	Version       string `json:"version"`
	VersionString string `json:"version-string"`
	VersionSemver string `json:"version-semver"`
	VersionDate   string `json:"version-date"`
	PortVersion   int    `json:"port-version"`
	GitTree       string `json:"git-tree"`
	Path          string `json:"path"`
}

// versionText returns the entry's version text, from whichever of the four
// scheme-specific keys is present.
func (e wireVersionEntry) versionText() (string, error) {
	found := map[string]string{
		"version":        e.Version,
		"version-string": e.VersionString,
		"version-semver": e.VersionSemver,
		"version-date":   e.VersionDate,
	}
	var key, text string
	for k, v := range found {
		if v == "" {
			continue
		}
		if key != "" {
			return "", fmt.Errorf("exactly one of version, version-string, version-semver, version-date is allowed; found %q and %q", key, k)
		}
		key, text = k, v
	}
	if key == "" {
		return "", fmt.Errorf("missing version text: one of version, version-string, version-semver, version-date is required")
	}
	return text, nil
}

// wireVersionDB is the top-level shape of a versions/<x->/<name>.json file.
type wireVersionDB struct {
	Versions []wireVersionEntry `json:"versions"`
}

// VersionEntry is one decoded historical record for a port: exactly one of
// GitTree (git registries) or Path (filesystem/builtin registries, relative
// to the registry root) identifies where its files live.
type VersionEntry struct {
	Version pkgver.Version
	GitTree string
	Path    string
}

// VersionDB is a decoded versions/<x->/<name>.json file, in file order
// (newest first, by registry convention).
type VersionDB struct {
	Entries []VersionEntry
}

// ParseVersionDB decodes a version database file.
func ParseVersionDB(raw []byte) (*VersionDB, error) {
	var wire wireVersionDB
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("invalid version database JSON: %w", err)
	}
	db := &VersionDB{Entries: make([]VersionEntry, 0, len(wire.Versions))}
	for i, e := range wire.Versions {
		text, err := e.versionText()
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if (e.GitTree == "") == (e.Path == "") {
			return nil, fmt.Errorf("entry %d: exactly one of git-tree or path is required", i)
		}
		path := ""
		if e.Path != "" {
			rel, err := resolveRegistryPath(e.Path)
			if err != nil {
				return nil, fmt.Errorf("entry %d: %w", i, err)
			}
			path = rel
		}
		db.Entries = append(db.Entries, VersionEntry{
			Version: pkgver.Version{Text: text, PortVersion: e.PortVersion},
			GitTree: e.GitTree,
			Path:    path,
		})
	}
	return db, nil
}

// resolveRegistryPath strips a path locator's "$/" registry-root marker,
// returning the remaining slash-separated path converted to the host's
// separator convention.
func resolveRegistryPath(raw string) (string, error) {
	if !strings.HasPrefix(raw, portPathPrefix) {
		return "", fmt.Errorf("path locator %q must start with %q", raw, portPathPrefix)
	}
	rel := strings.TrimPrefix(raw, portPathPrefix)
	if rel == "" {
		return "", fmt.Errorf("path locator %q names no path after %q", raw, portPathPrefix)
	}
	return filepath.FromSlash(rel), nil
}

// wireBaselineEntry is one package's pin inside baseline.json's "default"
// object.
type wireBaselineEntry struct {
	Baseline    string `json:"baseline"`
	PortVersion int    `json:"port-version"`
}

type wireBaselineFile struct {
	Default map[string]wireBaselineEntry `json:"default"`
}

// ParseBaseline decodes a versions/baseline.json file into one PortEntry
// per package, keyed by name. The returned entries carry no Locator: the
// baseline only pins a version, the caller resolves its git-tree via
// Registry.GetPortEntry.
func ParseBaseline(raw []byte) (map[pkgid.PackageName]PortEntry, error) {
	var wire wireBaselineFile
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("invalid baseline JSON: %w", err)
	}
	out := make(map[pkgid.PackageName]PortEntry, len(wire.Default))
	for name, e := range wire.Default {
		out[pkgid.PackageName(name)] = PortEntry{
			Version: pkgver.Version{Text: e.Baseline, PortVersion: e.PortVersion},
		}
	}
	return out, nil
}

func readLocalFile(path string) ([]byte, error) {
	return secureio.ReadFile(mustAbs(path))
}

func semverCompare(a, b string) int {
	if !semverHasV(a) {
		a = "v" + a
	}
	if !semverHasV(b) {
		b = "v" + b
	}
	if !semver.IsValid(a) || !semver.IsValid(b) {
		if a == b {
			return 0
		}
		if a < b {
			return -1
		}
		return 1
	}
	return semver.Compare(a, b)
}

func semverHasV(s string) bool {
	return len(s) > 0 && s[0] == 'v'
}
