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

// Package statusdb models the installed-package status database: a
// read-only (from the planner's perspective) record of which packages and
// features are already present in an installed tree.
package statusdb

import (
	"sort"

	"github.com/cppkit/portman/internal/pkgid"
	"github.com/cppkit/portman/internal/pkgver"
)

// WantState is the lifecycle state a StatusParagraph records for one
// installed or half-installed feature.
type WantState int

// Recognized want states.
const (
	WantInstall WantState = iota
	WantPurge
)

// InstallState is the on-disk completion state of a status paragraph.
type InstallState int

// Recognized install states.
const (
	StateNotInstalled InstallState = iota
	StateHalfInstalled
	StateInstalled
)

// StatusParagraph is one recorded (package, feature) installation entry,
// mirroring a single paragraph of an on-disk status file.
type StatusParagraph struct {
	Spec    pkgid.FeatureSpec
	Version pkgver.Version
	Want    WantState
	State   InstallState
	Depends []pkgid.PackageName
	// DefaultFeaturesSnapshot is only meaningful on a core paragraph: the
	// default-feature list the manifest declared the last time this
	// package was installed (see InstalledDefaultSnapshot).
	DefaultFeaturesSnapshot []pkgid.FeatureName
}

// Database is the read-only query surface over a parsed status file,
// providing the installed-features lookups the planner's cluster-seeding
// step needs.
type Database struct {
	paragraphs []StatusParagraph
}

// NewDatabase builds a Database from its parsed paragraphs.
func NewDatabase(paragraphs []StatusParagraph) *Database {
	return &Database{paragraphs: paragraphs}
}

// FindInstalled returns every currently-installed (State == StateInstalled,
// Want == WantInstall) feature paragraph for pkg, core first.
func (d *Database) FindInstalled(pkg pkgid.PackageSpec) []StatusParagraph {
	var out []StatusParagraph
	for _, p := range d.paragraphs {
		if p.Spec.Package != pkg {
			continue
		}
		if p.State != StateInstalled || p.Want != WantInstall {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Spec.Feature == pkgid.FeatureCore {
			return true
		}
		if out[j].Spec.Feature == pkgid.FeatureCore {
			return false
		}
		return out[i].Spec.Feature < out[j].Spec.Feature
	})
	return out
}

// InstalledFeatures returns the installed feature-name set for pkg,
// excluding the implicit "core" pseudo-feature.
func (d *Database) InstalledFeatures(pkg pkgid.PackageSpec) []pkgid.FeatureName {
	var out []pkgid.FeatureName
	for _, p := range d.FindInstalled(pkg) {
		if p.Spec.Feature == pkgid.FeatureCore {
			continue
		}
		out = append(out, p.Spec.Feature)
	}
	return out
}

// IsInstalled reports whether pkg has at least a core installation record.
func (d *Database) IsInstalled(pkg pkgid.PackageSpec) bool {
	core := pkgid.FeatureSpec{Package: pkg, Feature: pkgid.FeatureCore}
	for _, p := range d.paragraphs {
		if p.Spec == core && p.State == StateInstalled && p.Want == WantInstall {
			return true
		}
	}
	return false
}

// InstalledVersion returns the recorded version of pkg's core installation.
func (d *Database) InstalledVersion(pkg pkgid.PackageSpec) (pkgver.Version, bool) {
	core := pkgid.FeatureSpec{Package: pkg, Feature: pkgid.FeatureCore}
	for _, p := range d.paragraphs {
		if p.Spec == core && p.State == StateInstalled {
			return p.Version, true
		}
	}
	return pkgver.Version{}, false
}

// InstalledDefaultSnapshot returns the default-feature set recorded at
// pkg's last install. The planner copies it into the cluster's installed
// info, but its check for new default features compares the manifest's
// current defaults against the installed feature set, not this snapshot.
func (d *Database) InstalledDefaultSnapshot(pkg pkgid.PackageSpec) []pkgid.FeatureName {
	core := pkgid.FeatureSpec{Package: pkg, Feature: pkgid.FeatureCore}
	for _, p := range d.paragraphs {
		if p.Spec == core && p.State == StateInstalled {
			return p.DefaultFeaturesSnapshot
		}
	}
	return nil
}

// InstalledPackageView is the full snapshot of one package's installed
// state: its version and the features currently marked installed.
type InstalledPackageView struct {
	Package  pkgid.PackageSpec
	Version  pkgver.Version
	Features []pkgid.FeatureName
	Present  bool
}

// GetInstalledPackageView returns the complete snapshot the reinstall
// cascade and the output formatter both need for one package.
func (d *Database) GetInstalledPackageView(pkg pkgid.PackageSpec) InstalledPackageView {
	version, present := d.InstalledVersion(pkg)
	return InstalledPackageView{
		Package:  pkg,
		Version:  version,
		Features: d.InstalledFeatures(pkg),
		Present:  present,
	}
}

// Dependents returns every installed package that declared a dependency on
// pkg the last time it was installed, used by the reinstall cascade to
// find what must also be rebuilt when pkg's plan changes.
func (d *Database) Dependents(pkg pkgid.PackageName) []pkgid.PackageSpec {
	seen := make(map[pkgid.PackageSpec]bool)
	var out []pkgid.PackageSpec
	for _, p := range d.paragraphs {
		if p.State != StateInstalled || p.Want != WantInstall {
			continue
		}
		for _, dep := range p.Depends {
			if dep == pkg && !seen[p.Spec.Package] {
				seen[p.Spec.Package] = true
				out = append(out, p.Spec.Package)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// AllInstalledPackages returns every distinct package with at least a core
// install record, in deterministic (name, triplet) order.
func (d *Database) AllInstalledPackages() []pkgid.PackageSpec {
	seen := make(map[pkgid.PackageSpec]bool)
	var out []pkgid.PackageSpec
	for _, p := range d.paragraphs {
		if p.Spec.Feature != pkgid.FeatureCore {
			continue
		}
		if p.State != StateInstalled || p.Want != WantInstall {
			continue
		}
		if !seen[p.Spec.Package] {
			seen[p.Spec.Package] = true
			out = append(out, p.Spec.Package)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
