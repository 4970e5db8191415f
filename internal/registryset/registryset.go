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

// Package registryset resolves a package name to the registry that owns it,
// and a registry to the baseline version and storage locator it hands back
// for that package, across the three registry kinds: builtin, filesystem,
// and git.
package registryset

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/cppkit/portman/internal/pkgid"
	"github.com/cppkit/portman/internal/pkgver"
	"github.com/cppkit/portman/internal/policy"
)

// Locator is where a resolved port's files live.
type Locator struct {
	// FilesystemPath is set for builtin/filesystem registries: the
	// directory containing the port's manifest and helper scripts.
	FilesystemPath string
	// GitTree is set for git registries: the tree object holding the
	// port's files at the resolved version.
	GitTree string
	// Repository and Reference identify the git registry GitTree belongs
	// to, needed to actually fetch it.
	Repository string
	Reference  string
}

// PortEntry is one resolvable (version, locator) pair for a package.
type PortEntry struct {
	Version pkgver.Version
	Locator Locator
}

// Registry is one entry of a RegistrySet, wrapping a policy.RegistryConfig
// with the state needed to answer lookups against it.
type Registry struct {
	Config policy.RegistryConfig

	claimed map[pkgid.PackageName]bool
	fetcher *GitFetcher
	logger  *slog.Logger

	baselineCache map[pkgid.PackageName]PortEntry
	versionsCache map[pkgid.PackageName][]PortEntry
}

// NewRegistry builds a Registry from its configuration.
func NewRegistry(cfg policy.RegistryConfig, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		Config:        cfg,
		logger:        logger,
		baselineCache: make(map[pkgid.PackageName]PortEntry),
		versionsCache: make(map[pkgid.PackageName][]PortEntry),
	}
	if len(cfg.Packages) > 0 {
		r.claimed = make(map[pkgid.PackageName]bool, len(cfg.Packages))
		for _, p := range cfg.Packages {
			r.claimed[pkgid.PackageName(p)] = true
		}
	}
	if cfg.Kind == policy.RegistryKindGit {
		r.fetcher = NewGitFetcher(cfg.Repository, cfg.Reference)
	}
	return r
}

// Claims reports whether this registry's Packages scoping list names pkg, or
// whether the registry is unscoped (claims everything).
func (r *Registry) Claims(pkg pkgid.PackageName) bool {
	if r.claimed == nil {
		return true
	}
	return r.claimed[pkg]
}

// Baseline resolves the pinned baseline version for pkg from this registry.
func (r *Registry) Baseline(ctx context.Context, pkg pkgid.PackageName) (PortEntry, error) {
	if entry, ok := r.baselineCache[pkg]; ok {
		return entry, nil
	}

	raw, err := r.readBaselineFile(ctx)
	if err != nil {
		return PortEntry{}, err
	}
	baseline, err := ParseBaseline(raw)
	if err != nil {
		return PortEntry{}, fmt.Errorf("registry %s: parse baseline: %w", r.describeSelf(), err)
	}
	for name, entry := range baseline {
		r.baselineCache[name] = entry
	}

	entry, ok := r.baselineCache[pkg]
	if !ok {
		return PortEntry{}, fmt.Errorf("registry %s: no baseline entry for %q", r.describeSelf(), pkg)
	}
	return entry, nil
}

// Versions returns every known (version, locator) entry for pkg, newest
// first according to the git-tree insertion order the version database
// file records (the database itself is the source of truth for ordering
// between port-versions of the same text; cross-text ordering is the
// caller's job via pkgver.Compare once the port's scheme is known).
func (r *Registry) Versions(ctx context.Context, pkg pkgid.PackageName) ([]PortEntry, error) {
	if entries, ok := r.versionsCache[pkg]; ok {
		return entries, nil
	}

	raw, err := r.readVersionDBFile(ctx, pkg)
	if err != nil {
		return nil, err
	}
	db, err := ParseVersionDB(raw)
	if err != nil {
		return nil, fmt.Errorf("registry %s: parse version db for %q: %w", r.describeSelf(), pkg, err)
	}

	entries := make([]PortEntry, 0, len(db.Entries))
	for _, e := range db.Entries {
		loc := Locator{Repository: r.Config.Repository, Reference: r.Config.Reference}
		switch {
		case e.Path != "":
			loc.FilesystemPath = filepath.Join(r.Config.Path, e.Path)
		case e.GitTree != "":
			loc.GitTree = e.GitTree
		}
		entries = append(entries, PortEntry{Version: e.Version, Locator: loc})
	}
	r.versionsCache[pkg] = entries
	return entries, nil
}

// GetPortEntry looks up the entry of pkg whose version text and port-version
// both equal version's; the scheme is not consulted, and there is no
// fallback when no entry matches exactly.
func (r *Registry) GetPortEntry(ctx context.Context, pkg pkgid.PackageName, version pkgver.Version) (PortEntry, error) {
	entries, err := r.Versions(ctx, pkg)
	if err != nil {
		return PortEntry{}, err
	}
	for _, e := range entries {
		if e.Version.Text == version.Text && e.Version.PortVersion == version.PortVersion {
			return e, nil
		}
	}
	return PortEntry{}, fmt.Errorf("registry %s: no entry for %s@%s", r.describeSelf(), pkg, version)
}

func (r *Registry) readBaselineFile(ctx context.Context) ([]byte, error) {
	switch r.Config.Kind {
	case policy.RegistryKindFilesystem, policy.RegistryKindBuiltin:
		return readLocalFile(filepath.Join(r.Config.Path, "versions", "baseline.json"))
	case policy.RegistryKindGit:
		return r.fetcher.FetchAt(ctx, r.Config.Baseline, "versions/baseline.json")
	default:
		return nil, fmt.Errorf("registry %s: unknown kind %q", r.describeSelf(), r.Config.Kind)
	}
}

func (r *Registry) readVersionDBFile(ctx context.Context, pkg pkgid.PackageName) ([]byte, error) {
	rel := versionDBRelPath(pkg)
	switch r.Config.Kind {
	case policy.RegistryKindFilesystem, policy.RegistryKindBuiltin:
		return readLocalFile(filepath.Join(r.Config.Path, rel))
	case policy.RegistryKindGit:
		return r.fetcher.FetchAt(ctx, r.Config.Baseline, rel)
	default:
		return nil, fmt.Errorf("registry %s: unknown kind %q", r.describeSelf(), r.Config.Kind)
	}
}

// versionDBRelPath mirrors the sharded layout "versions/<first-letter>-/<name>.json".
func versionDBRelPath(pkg pkgid.PackageName) string {
	name := string(pkg)
	shard := name[:1] + "-"
	return filepath.Join("versions", shard, name+".json")
}

func (r *Registry) describeSelf() string {
	switch r.Config.Kind {
	case policy.RegistryKindGit:
		return fmt.Sprintf("git:%s@%s", r.Config.Repository, r.Config.Reference)
	case policy.RegistryKindFilesystem:
		return fmt.Sprintf("filesystem:%s", r.Config.Path)
	default:
		return "builtin"
	}
}

// RegistrySet is the ordered collection of registries a planner consults,
// most-specific (package-scoped) first, then the first unscoped registry.
type RegistrySet struct {
	registries []*Registry
	logger     *slog.Logger
}

// NewRegistrySet builds a RegistrySet from configuration, preserving
// configuration order: a scoped registry only answers for the packages it
// claims, and the first unscoped registry is the fallback for everything
// else.
func NewRegistrySet(cfgs []policy.RegistryConfig, logger *slog.Logger) *RegistrySet {
	rs := &RegistrySet{logger: logger}
	for _, cfg := range cfgs {
		rs.registries = append(rs.registries, NewRegistry(cfg, logger))
	}
	return rs
}

// RegistryFor returns the registry responsible for resolving pkg: the
// first scoped registry that claims it, else the first unscoped registry.
func (rs *RegistrySet) RegistryFor(pkg pkgid.PackageName) (*Registry, error) {
	var fallback *Registry
	for _, r := range rs.registries {
		if r.claimed != nil {
			if r.Claims(pkg) {
				return r, nil
			}
			continue
		}
		if fallback == nil {
			fallback = r
		}
	}
	if fallback != nil {
		return fallback, nil
	}
	return nil, fmt.Errorf("no registry configured to resolve package %q", pkg)
}

// BaselineFor resolves pkg's baseline (version, locator) via its owning
// registry.
func (rs *RegistrySet) BaselineFor(ctx context.Context, pkg pkgid.PackageName) (PortEntry, error) {
	r, err := rs.RegistryFor(pkg)
	if err != nil {
		return PortEntry{}, err
	}
	return r.Baseline(ctx, pkg)
}

// GetPortEntry resolves the exact version of pkg via its owning registry.
func (rs *RegistrySet) GetPortEntry(ctx context.Context, pkg pkgid.PackageName, version pkgver.Version) (PortEntry, error) {
	r, err := rs.RegistryFor(pkg)
	if err != nil {
		return PortEntry{}, err
	}
	return r.GetPortEntry(ctx, pkg, version)
}

// Versions returns all known versions of pkg, sorted newest-declared-first
// as recorded by the version database.
func (rs *RegistrySet) Versions(ctx context.Context, pkg pkgid.PackageName) ([]PortEntry, error) {
	r, err := rs.RegistryFor(pkg)
	if err != nil {
		return nil, err
	}
	return r.Versions(ctx, pkg)
}

// SortBySemverDescending re-orders entries using golang.org/x/mod/semver as
// a cross-check against the version database's own declared order. The
// versioned planner calls it on a copy of every Semver-scheme port's entries
// and only logs a warning when the two orders disagree.
func SortBySemverDescending(entries []PortEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return semverCompare(entries[i].Version.Text, entries[j].Version.Text) > 0
	})
}
