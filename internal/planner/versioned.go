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

package planner

import (
	"context"
	"fmt"

	"github.com/cppkit/portman/internal/manifest"
	"github.com/cppkit/portman/internal/pkgid"
	"github.com/cppkit/portman/internal/pkgver"
	"github.com/cppkit/portman/internal/portprovider"
	"github.com/cppkit/portman/internal/registryset"
)

// toplevelName addresses the synthetic package standing in for the root
// manifest's own dependency list, so the classic worklist algorithm can
// resolve it exactly like any other port's "core" feature.
const toplevelName pkgid.PackageName = "toplevel"

// maxVersionedPasses bounds the fixpoint iteration against a runaway
// constraint cycle; a real manifest converges in a handful of passes since
// each pass only ever advances a selection, never reverts one.
const maxVersionedPasses = 64

// ConstraintUnsatisfiableError reports a "version>=" constraint whose
// minimum is not among a registry's enumerated versions for that package.
type ConstraintUnsatisfiableError struct {
	Package pkgid.PackageName
	Minimum pkgver.Version
}

func (e *ConstraintUnsatisfiableError) Error() string {
	return fmt.Sprintf("package %q: constraint version>=%s is not enumerated by its registry", e.Package, e.Minimum)
}

// CreateVersionedFeatureInstallPlan implements the versioned planning
// procedure (builtin-baseline resolution, override precedence, and
// constraint-driven version advancement) on top of the classic worklist
// algorithm: root acts as a pseudo-package whose "core" dependencies are
// the project manifest's own dependencies, resolved on the target triplet.
func CreateVersionedFeatureInstallPlan(
	ctx context.Context,
	target pkgid.Triplet,
	root *manifest.SourceControlFile,
	ports VersionedPortProvider,
	versions VersionProvider,
	vars VarProvider,
	status StatusDB,
	opts Options,
) (*ActionPlan, error) {
	sel := newVersionSelector(root, ports, versions, opts)
	rootSCFL := &portprovider.SourceControlFileAndLocation{SCF: root, Origin: "<root manifest>"}
	rootSpec := pkgid.PackageSpec{Name: toplevelName, Triplet: target}
	request := []pkgid.FullPackageSpec{{Package: rootSpec}}

	var plan *ActionPlan
	for pass := 0; ; pass++ {
		if pass >= maxVersionedPasses {
			return nil, fmt.Errorf("versioned plan did not converge after %d passes", maxVersionedPasses)
		}

		pinned := &pinnedPortProvider{sel: sel, rootSCFL: rootSCFL}
		built, err := CreateFeatureInstallPlan(ctx, pinned, vars, status, request, opts)
		if err != nil {
			return nil, err
		}
		plan = built

		changed, err := sel.advance(ctx, pinned.resolved)
		if err != nil {
			return nil, err
		}
		if !changed {
			break
		}
	}

	stripToplevel(plan)
	sel.annotate(plan)
	return plan, nil
}

// pinnedPortProvider is the PortProvider a single classic worklist pass
// sees: every name resolves to whatever version the outer versionSelector
// currently has selected (or the project manifest itself, for toplevel).
// It records every concrete (name -> SCF) resolution it serves so the
// selector can mine constraints out of the resulting clusters afterward.
type pinnedPortProvider struct {
	sel      *versionSelector
	rootSCFL *portprovider.SourceControlFileAndLocation

	resolved map[pkgid.PackageName]*portprovider.SourceControlFileAndLocation
}

func (p *pinnedPortProvider) Get(ctx context.Context, name pkgid.PackageName) (*portprovider.SourceControlFileAndLocation, error) {
	if name == toplevelName {
		return p.rootSCFL, nil
	}
	scfl, err := p.sel.resolve(ctx, name)
	if err != nil {
		return nil, err
	}
	if p.resolved == nil {
		p.resolved = make(map[pkgid.PackageName]*portprovider.SourceControlFileAndLocation)
	}
	p.resolved[name] = scfl
	p.sel.record(name, scfl.SCF.Core.Scheme)
	if scfl.SCF.Core.Scheme == pkgver.SchemeSemver {
		crossCheckSemverOrder(ctx, p.sel.versions, name, p.sel.opts)
	}
	return scfl, nil
}

// versionSelector tracks the version currently selected for every package
// reached by any pass so far, and advances selections when an accumulated
// "version>=" constraint exceeds the current choice.
type versionSelector struct {
	root     *manifest.SourceControlFile
	ports    VersionedPortProvider
	versions VersionProvider
	opts     Options

	overrides map[pkgid.PackageName]manifest.Override
	selected  map[pkgid.PackageName]pkgver.Version
	scheme    map[pkgid.PackageName]pkgver.Scheme
	warnings  map[pkgid.PackageName][]string
}

func newVersionSelector(root *manifest.SourceControlFile, ports VersionedPortProvider, versions VersionProvider, opts Options) *versionSelector {
	overrides := make(map[pkgid.PackageName]manifest.Override, len(root.Core.Overrides))
	for _, o := range root.Core.Overrides {
		overrides[o.Name] = o
	}
	return &versionSelector{
		root:      root,
		ports:     ports,
		versions:  versions,
		opts:      opts,
		overrides: overrides,
		selected:  make(map[pkgid.PackageName]pkgver.Version),
		scheme:    make(map[pkgid.PackageName]pkgver.Scheme),
		warnings:  make(map[pkgid.PackageName][]string),
	}
}

// resolve returns the SCFL for name at its currently-selected version,
// selecting the override or baseline the first time name is seen.
func (s *versionSelector) resolve(ctx context.Context, name pkgid.PackageName) (*portprovider.SourceControlFileAndLocation, error) {
	version, ok := s.selected[name]
	if !ok {
		var err error
		version, err = s.initialSelection(ctx, name)
		if err != nil {
			return nil, err
		}
		s.selected[name] = version
	}
	scfl, err := s.ports.GetAtVersion(ctx, name, version)
	if err != nil {
		return nil, fmt.Errorf("resolve %q at %s: %w", name, version, err)
	}
	return scfl, nil
}

func (s *versionSelector) initialSelection(ctx context.Context, name pkgid.PackageName) (pkgver.Version, error) {
	if o, ok := s.overrides[name]; ok {
		return o.Version, nil
	}
	entry, err := s.versions.BaselineFor(ctx, name)
	if err != nil {
		return pkgver.Version{}, fmt.Errorf("resolve baseline for %q: %w", name, err)
	}
	return entry.Version, nil
}

// record stores the scheme a package's currently-selected manifest
// declares, which the next advance() pass compares constraints against.
func (s *versionSelector) record(name pkgid.PackageName, scheme pkgver.Scheme) {
	s.scheme[name] = scheme
}

// advance mines every resolved cluster's recorded VersionConstraints out of
// the pass that just ran (via resolved, the set of SCFLs the pass actually
// touched) and advances any package whose accumulated constraint exceeds
// its current selection. It reports whether any selection changed, which
// means another pass is needed to re-traverse with the new manifests.
func (s *versionSelector) advance(ctx context.Context, resolved map[pkgid.PackageName]*portprovider.SourceControlFileAndLocation) (bool, error) {
	constraints := map[pkgid.PackageName][]pkgver.Version{}
	collect := func(scfl *portprovider.SourceControlFileAndLocation) {
		if scfl == nil || scfl.SCF == nil {
			return
		}
		for _, d := range scfl.SCF.Core.Dependencies {
			if d.Constraint != nil {
				constraints[d.Name] = append(constraints[d.Name], d.Constraint.Minimum)
			}
		}
		for _, f := range scfl.SCF.Features {
			for _, d := range f.Dependencies {
				if d.Constraint != nil {
					constraints[d.Name] = append(constraints[d.Name], d.Constraint.Minimum)
				}
			}
		}
	}
	collect(&portprovider.SourceControlFileAndLocation{SCF: s.root})
	for _, scfl := range resolved {
		collect(scfl)
	}

	changed := false
	for name, mins := range constraints {
		scheme, ok := s.scheme[name]
		if !ok {
			// name carries a constraint but was never itself resolved this
			// pass (its own edge was platform-excluded); it will be picked
			// up once something platform-includes it.
			continue
		}
		max := mins[0]
		for _, m := range mins[1:] {
			if pkgver.Compare(m, max, scheme) == pkgver.Greater {
				max = m
			}
		}

		if o, overridden := s.overrides[name]; overridden {
			if pkgver.Compare(max, o.Version, scheme) == pkgver.Greater {
				s.warn(name, fmt.Sprintf("override pins %q to %s, below the version>=%s constraint", name, o.Version, max))
			}
			continue
		}

		current := s.selected[name]
		if pkgver.Compare(max, current, scheme) != pkgver.Greater {
			continue
		}
		if _, err := s.ports.GetAtVersion(ctx, name, max); err != nil {
			return false, &ConstraintUnsatisfiableError{Package: name, Minimum: max}
		}
		s.selected[name] = max
		changed = true
	}
	return changed, nil
}

func (s *versionSelector) warn(name pkgid.PackageName, msg string) {
	for _, existing := range s.warnings[name] {
		if existing == msg {
			return
		}
	}
	s.warnings[name] = append(s.warnings[name], msg)
}

// annotate stamps every surviving install action with its selected version
// and any constraint-violation warnings collected for it.
func (s *versionSelector) annotate(plan *ActionPlan) {
	for i := range plan.InstallActions {
		a := &plan.InstallActions[i]
		a.SelectedVersion = s.selected[a.Spec.Name]
		a.ConstraintWarnings = s.warnings[a.Spec.Name]
	}
}

// stripToplevel removes the synthetic root package from every partition of
// plan: it is never a real port and must never appear in the final plan.
func stripToplevel(plan *ActionPlan) {
	plan.InstallActions = filterOutSpec(plan.InstallActions, toplevelName)
	plan.AlreadyInstalled = filterOutSpec(plan.AlreadyInstalled, toplevelName)
	var removes []RemoveAction
	for _, r := range plan.RemoveActions {
		if r.Spec.Name != toplevelName {
			removes = append(removes, r)
		}
	}
	plan.RemoveActions = removes
}

func filterOutSpec(actions []InstallAction, name pkgid.PackageName) []InstallAction {
	var out []InstallAction
	for _, a := range actions {
		if a.Spec.Name != name {
			out = append(out, a)
		}
	}
	return out
}

// crossCheckSemverOrder defensively verifies the version database's own
// declared order against golang.org/x/mod/semver, logging a warning on
// mismatch rather than trusting "first entry is newest" blindly for a
// Semver-scheme port.
func crossCheckSemverOrder(ctx context.Context, versions VersionProvider, name pkgid.PackageName, opts Options) {
	entries, err := versions.Versions(ctx, name)
	if err != nil || len(entries) < 2 {
		return
	}
	resorted := append([]registryset.PortEntry(nil), entries...)
	registryset.SortBySemverDescending(resorted)
	if resorted[0].Version.Text != entries[0].Version.Text {
		opts.logger().Warn("version database order disagrees with semver ordering",
			"package", name, "declared_first", entries[0].Version.Text, "semver_first", resorted[0].Version.Text)
	}
}
