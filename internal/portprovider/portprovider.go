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

// Package portprovider loads and caches the SourceControlFile for a package
// name, consulting overlay port directories before falling back to a
// RegistrySet.
package portprovider

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cppkit/portman/internal/manifest"
	"github.com/cppkit/portman/internal/pkgid"
	"github.com/cppkit/portman/internal/pkgver"
	"github.com/cppkit/portman/internal/registryset"
	"github.com/cppkit/portman/internal/secureio"
)

// SourceControlFileAndLocation pairs a decoded manifest with where it was
// found, for diagnostics and for reading the port's helper scripts.
type SourceControlFileAndLocation struct {
	SCF    *manifest.SourceControlFile
	Origin string
}

// Provider caches PackageName -> SourceControlFileAndLocation lookups and
// enforces overlay precedence over any configured registry.
type Provider struct {
	overlays   []string
	registries *registryset.RegistrySet

	cache map[pkgid.PackageName]*SourceControlFileAndLocation
}

// New builds a Provider. overlayDirs is a search list: each entry is either
// a single port's directory (its own vcpkg.json lives directly inside) or a
// parent-of-port-directories (vcpkg.json lives at <dir>/<name>/vcpkg.json);
// each lookup detects which by probing for a manifest file directly inside.
func New(overlayDirs []string, registries *registryset.RegistrySet) *Provider {
	return &Provider{
		overlays:   overlayDirs,
		registries: registries,
		cache:      make(map[pkgid.PackageName]*SourceControlFileAndLocation),
	}
}

// Get resolves pkg's manifest, checking overlays first (in configured
// order; a name found in more than one overlay is a hard error), then the
// registry set.
func (p *Provider) Get(ctx context.Context, pkg pkgid.PackageName) (*SourceControlFileAndLocation, error) {
	if cached, ok := p.cache[pkg]; ok {
		return cached, nil
	}

	result, err := p.resolve(ctx, pkg)
	if err != nil {
		return nil, err
	}
	p.cache[pkg] = result
	return result, nil
}

func (p *Provider) resolve(ctx context.Context, pkg pkgid.PackageName) (*SourceControlFileAndLocation, error) {
	var found *SourceControlFileAndLocation
	var foundOverlay string

	for _, dir := range p.overlays {
		candidate, ok, err := p.tryOverlay(dir, pkg)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("package %q found in two overlay directories: %q and %q", pkg, foundOverlay, dir)
		}
		found = candidate
		foundOverlay = dir
	}
	if found != nil {
		return found, nil
	}

	return p.resolveFromRegistry(ctx, pkg)
}

func (p *Provider) tryOverlay(dir string, pkg pkgid.PackageName) (*SourceControlFileAndLocation, bool, error) {
	direct := filepath.Join(dir, "vcpkg.json")
	if info, err := os.Stat(direct); err == nil && !info.IsDir() {
		// dir is itself a single overlay port directory; it only answers
		// for the package it's named after on disk.
		if filepath.Base(dir) != string(pkg) {
			return nil, false, nil
		}
		return p.loadManifestFile(direct, pkg)
	}

	nested := filepath.Join(dir, string(pkg), "vcpkg.json")
	if info, err := os.Stat(nested); err == nil && !info.IsDir() {
		return p.loadManifestFile(nested, pkg)
	}

	return nil, false, nil
}

func (p *Provider) loadManifestFile(path string, pkg pkgid.PackageName) (*SourceControlFileAndLocation, bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, false, err
	}
	raw, err := secureio.ReadFile(abs)
	if err != nil {
		return nil, false, fmt.Errorf("read overlay manifest for %q at %s: %w", pkg, path, err)
	}
	scf, err := manifest.ParsePortManifest(raw, path)
	if err != nil {
		return nil, false, fmt.Errorf("parse overlay manifest for %q at %s: %w", pkg, path, err)
	}
	return &SourceControlFileAndLocation{SCF: scf, Origin: path}, true, nil
}

func (p *Provider) resolveFromRegistry(ctx context.Context, pkg pkgid.PackageName) (*SourceControlFileAndLocation, error) {
	if p.registries == nil {
		return nil, fmt.Errorf("package %q not found in any overlay and no registry is configured", pkg)
	}
	entry, err := p.registries.BaselineFor(ctx, pkg)
	if err != nil {
		return nil, fmt.Errorf("package %q not found in any overlay or registry: %w", pkg, err)
	}
	full, err := p.registries.GetPortEntry(ctx, pkg, entry.Version)
	if err != nil {
		return nil, err
	}
	return p.loadFromLocator(ctx, pkg, full)
}

// GetAtVersion resolves pkg at a specific version (used by the versioned
// planner once it has picked a concrete version to install), bypassing
// overlays: overlays always serve their single live version.
func (p *Provider) GetAtVersion(ctx context.Context, pkg pkgid.PackageName, version pkgver.Version) (*SourceControlFileAndLocation, error) {
	if p.registries == nil {
		return nil, fmt.Errorf("no registry configured to resolve %q@%s", pkg, version)
	}
	entry, err := p.registries.GetPortEntry(ctx, pkg, version)
	if err != nil {
		return nil, err
	}
	return p.loadFromLocator(ctx, pkg, entry)
}

func (p *Provider) loadFromLocator(ctx context.Context, pkg pkgid.PackageName, entry registryset.PortEntry) (*SourceControlFileAndLocation, error) {
	if entry.Locator.FilesystemPath != "" {
		return p.loadManifestDir(entry.Locator.FilesystemPath, pkg)
	}
	if entry.Locator.GitTree != "" {
		fetcher := registryset.NewGitFetcher(entry.Locator.Repository, entry.Locator.Reference)
		raw, err := fetcher.FetchAt(ctx, entry.Locator.GitTree, "vcpkg.json")
		if err != nil {
			return nil, fmt.Errorf("fetch manifest for %q: %w", pkg, err)
		}
		origin := fmt.Sprintf("%s@%s", entry.Locator.Repository, entry.Locator.GitTree)
		scf, err := manifest.ParsePortManifest(raw, origin)
		if err != nil {
			return nil, fmt.Errorf("parse manifest for %q from %s: %w", pkg, origin, err)
		}
		return &SourceControlFileAndLocation{SCF: scf, Origin: origin}, nil
	}
	return nil, fmt.Errorf("registry entry for %q has no usable locator", pkg)
}

func (p *Provider) loadManifestDir(dir string, pkg pkgid.PackageName) (*SourceControlFileAndLocation, error) {
	path := filepath.Join(dir, "vcpkg.json")
	result, ok, err := p.loadManifestFile(path, pkg)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no manifest found for %q at %s", pkg, path)
	}
	return result, nil
}
