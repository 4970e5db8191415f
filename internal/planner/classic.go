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
	"sort"

	"github.com/cppkit/portman/internal/manifest"
	"github.com/cppkit/portman/internal/pkgid"
	"github.com/cppkit/portman/internal/pkgver"
	"github.com/cppkit/portman/internal/platform"
	"github.com/cppkit/portman/internal/policy"
)

// classicRun holds the mutable state of a single CreateFeatureInstallPlan
// invocation: the cluster arena, the two worklist stacks, and the
// accumulated unsupported-feature set. It is discarded once the plan is
// emitted; nothing here is safe to share across planning invocations.
type classicRun struct {
	arena  *arena
	ports  PortProvider
	vars   VarProvider
	status StatusDB
	opts   Options

	userRequested map[pkgid.PackageSpec]bool
	unsupported   map[pkgid.FeatureSpec]platform.Expr

	nextDeps  []pkgid.FeatureSpec
	qualified []pkgid.FeatureSpec
}

// CreateFeatureInstallPlan implements the classic (non-version-aware)
// feature planning algorithm: seed clusters from the status database,
// expand the request into feature specs, drain the worklist (batching
// triplet-variable loads when an edge's platform expression can't yet be
// evaluated), cascade reinstalls through reverse dependencies, and emit a
// topologically sorted ActionPlan.
func CreateFeatureInstallPlan(
	ctx context.Context,
	ports PortProvider,
	vars VarProvider,
	status StatusDB,
	request []pkgid.FullPackageSpec,
	opts Options,
) (*ActionPlan, error) {
	r := &classicRun{
		arena:         newArena(),
		ports:         ports,
		vars:          vars,
		status:        status,
		opts:          opts,
		userRequested: make(map[pkgid.PackageSpec]bool),
		unsupported:   make(map[pkgid.FeatureSpec]platform.Expr),
	}

	r.seedInstalled()
	r.expandRequest(request)

	for {
		if len(r.nextDeps) == 0 {
			if len(r.qualified) == 0 {
				break
			}
			if err := r.resolveQualified(ctx); err != nil {
				return nil, err
			}
			continue
		}
		spec := r.pop()
		if err := r.process(ctx, spec); err != nil {
			return nil, err
		}
	}

	return r.emit()
}

func (r *classicRun) push(spec pkgid.FeatureSpec) {
	r.nextDeps = append(r.nextDeps, spec)
}

func (r *classicRun) pop() pkgid.FeatureSpec {
	n := len(r.nextDeps) - 1
	spec := r.nextDeps[n]
	r.nextDeps = r.nextDeps[:n]
	return spec
}

// seedInstalled creates one cluster per currently-installed package,
// populated with its recorded feature set and default-feature snapshot.
func (r *classicRun) seedInstalled() {
	for _, spec := range r.status.AllInstalledPackages() {
		cluster := r.arena.create(spec)
		features := map[pkgid.FeatureName]bool{pkgid.FeatureCore: true}
		for _, f := range r.status.InstalledFeatures(spec) {
			features[f] = true
		}
		snapshot := map[pkgid.FeatureName]bool{}
		for _, f := range r.status.InstalledDefaultSnapshot(spec) {
			snapshot[f] = true
		}
		cluster.Installed = &InstalledInfo{
			FeaturesInstalled:       features,
			DefaultFeaturesSnapshot: snapshot,
		}
	}
}

// expandRequest seeds the worklist with one FeatureSpec per requested
// feature, or the synthetic "default" feature when a request names no
// explicit features.
func (r *classicRun) expandRequest(request []pkgid.FullPackageSpec) {
	for _, req := range request {
		r.userRequested[req.Package] = true
		if len(req.Features) == 0 {
			r.push(pkgid.FeatureSpec{Package: req.Package, Feature: pkgid.FeatureDefault})
			continue
		}
		names := make([]pkgid.FeatureName, 0, len(req.Features))
		for f := range req.Features {
			names = append(names, f)
		}
		sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
		for _, f := range names {
			r.push(pkgid.FeatureSpec{Package: req.Package, Feature: f})
		}
	}
}

// resolveQualified batch-loads triplet variables for every distinct
// triplet among the qualified-dependencies stack, then moves every entry
// back onto the ready stack.
func (r *classicRun) resolveQualified(ctx context.Context) error {
	seen := map[pkgid.Triplet]bool{}
	var triplets []pkgid.Triplet
	for _, spec := range r.qualified {
		t := spec.Package.Triplet
		if !seen[t] {
			seen[t] = true
			triplets = append(triplets, t)
		}
	}
	if err := r.vars.LoadDepInfoVars(ctx, triplets); err != nil {
		return fmt.Errorf("load triplet variables: %w", err)
	}
	r.nextDeps = append(r.nextDeps, r.qualified...)
	r.qualified = nil
	return nil
}

func (r *classicRun) getOrCreateCluster(ctx context.Context, pkg pkgid.PackageSpec) (*Cluster, error) {
	cluster, existed := r.arena.lookup(pkg)
	if !existed {
		cluster = r.arena.create(pkg)
	}
	if r.userRequested[pkg] {
		cluster.RequestType = UserRequested
	}
	if cluster.SCFL == nil && cluster.SCFLErr == nil {
		scfl, err := r.ports.Get(ctx, pkg.Name)
		if err != nil {
			cluster.SCFLErr = err
			return cluster, fmt.Errorf("resolve manifest for %q: %w", pkg.Name, err)
		}
		cluster.SCFL = scfl
	}
	if cluster.SCFLErr != nil {
		return cluster, cluster.SCFLErr
	}
	return cluster, nil
}

func (r *classicRun) process(ctx context.Context, spec pkgid.FeatureSpec) error {
	cluster, err := r.getOrCreateCluster(ctx, spec.Package)
	if err != nil {
		return err
	}
	scf := manifestOf(cluster)

	if spec.Feature == pkgid.FeatureAny {
		r.push(pkgid.FeatureSpec{Package: spec.Package, Feature: pkgid.FeatureCore})
		for _, f := range scf.FeatureNames() {
			r.push(pkgid.FeatureSpec{Package: spec.Package, Feature: f})
		}
		return nil
	}

	vars, loaded := r.vars.GetDepInfoVars(spec.Package.Triplet)
	if !loaded {
		if featureNeedsVars(scf, spec.Feature) {
			r.qualified = append(r.qualified, spec)
			return nil
		}
		vars = platform.Vars{}
	}

	if spec.Feature == pkgid.FeatureDefault {
		return r.processDefault(cluster, scf, vars)
	}

	supports, err := featureSupports(scf, spec.Feature)
	if err != nil {
		return err
	}
	if !supports.Evaluate(vars) {
		if r.opts.UnsupportedPortAction == policy.UnsupportedPortActionSkip {
			r.unsupported[spec] = supports
			return nil
		}
		return fmt.Errorf("package %q: feature %q is unsupported on triplet %q (supports %q is false)",
			spec.Package.Name, spec.Feature, spec.Package.Triplet, supports.String())
	}

	return r.processFeature(cluster, scf, spec.Feature, vars)
}

func (r *classicRun) processFeature(cluster *Cluster, scf *manifest.SourceControlFile, feature pkgid.FeatureName, vars platform.Vars) error {
	switch {
	case cluster.InstallInfo != nil:
		return r.addFeature(cluster, scf, feature, vars)
	case cluster.Installed == nil:
		r.ensureInstallInfo(cluster)
		return r.addFeature(cluster, scf, feature, vars)
	default:
		if cluster.Installed.FeaturesInstalled[feature] {
			return nil
		}
		r.markReinstall(cluster)
		return r.addFeature(cluster, scf, feature, vars)
	}
}

func (r *classicRun) processDefault(cluster *Cluster, scf *manifest.SourceControlFile, vars platform.Vars) error {
	switch {
	case cluster.InstallInfo != nil:
		r.pushDefaultEntries(cluster.Spec, scf, vars)
		return nil
	case cluster.Installed == nil:
		r.ensureInstallInfo(cluster)
		r.pushDefaultEntries(cluster.Spec, scf, vars)
		return nil
	default:
		required := requiredDefaults(scf, vars)
		if isSubset(required, cluster.Installed.FeaturesInstalled) {
			return nil
		}
		r.markReinstall(cluster)
		r.pushDefaultEntries(cluster.Spec, scf, vars)
		return nil
	}
}

func requiredDefaults(scf *manifest.SourceControlFile, vars platform.Vars) map[pkgid.FeatureName]bool {
	required := map[pkgid.FeatureName]bool{}
	for _, e := range scf.Core.DefaultFeatures {
		if e.Platform.Evaluate(vars) {
			required[e.Name] = true
		}
	}
	return required
}

func isSubset(sub, super map[pkgid.FeatureName]bool) bool {
	for f := range sub {
		if !super[f] {
			return false
		}
	}
	return true
}

func (r *classicRun) pushDefaultEntries(pkg pkgid.PackageSpec, scf *manifest.SourceControlFile, vars platform.Vars) {
	for _, e := range scf.Core.DefaultFeatures {
		if !e.Platform.Evaluate(vars) {
			continue
		}
		r.push(pkgid.FeatureSpec{Package: pkg, Feature: e.Name})
	}
}

func (r *classicRun) ensureInstallInfo(cluster *Cluster) {
	if cluster.InstallInfo != nil {
		return
	}
	cluster.InstallInfo = newInstallInfo()
	cluster.InstallInfo.Features[pkgid.FeatureCore] = true
	r.push(pkgid.FeatureSpec{Package: cluster.Spec, Feature: pkgid.FeatureCore})
}

// markReinstall promotes an installed-only cluster to a rebuild: its
// InstallInfo is seeded with its currently-installed feature set (so
// nothing already present is dropped), each of those features is
// re-queued to recompute its edges against the current manifest, and
// every reverse dependent recorded in the status database is recursively
// marked for reinstall too. A no-op if the cluster is already marked.
func (r *classicRun) markReinstall(cluster *Cluster) {
	if cluster.InstallInfo != nil {
		return
	}
	info := newInstallInfo()
	for f := range cluster.Installed.FeaturesInstalled {
		info.Features[f] = true
	}
	cluster.InstallInfo = info
	for f := range info.Features {
		r.push(pkgid.FeatureSpec{Package: cluster.Spec, Feature: f})
	}
	for _, dependent := range r.status.Dependents(cluster.Spec.Name) {
		if depCluster, ok := r.arena.lookup(dependent); ok {
			r.markReinstall(depCluster)
		}
	}
}

func newInstallInfo() *InstallInfo {
	return &InstallInfo{
		Features:           map[pkgid.FeatureName]bool{},
		BuildEdges:         map[pkgid.FeatureName]map[pkgid.FeatureSpec]bool{},
		VersionConstraints: map[pkgid.PackageName][]pkgver.Version{},
	}
}

func (r *classicRun) addFeature(cluster *Cluster, scf *manifest.SourceControlFile, feature pkgid.FeatureName, vars platform.Vars) error {
	var deps []manifest.Dependency
	if feature == pkgid.FeatureCore {
		deps = scf.Core.Dependencies
	} else {
		fp, ok := scf.FindFeature(feature)
		if !ok {
			return fmt.Errorf("package %q: feature %q not found", cluster.Spec.Name, feature)
		}
		deps = fp.Dependencies
	}

	cluster.InstallInfo.Features[feature] = true
	edgeSet := map[pkgid.FeatureSpec]bool{}

	for _, d := range deps {
		if !d.Platform.Evaluate(vars) {
			continue
		}
		targetTriplet := cluster.Spec.Triplet
		if d.Host {
			targetTriplet = r.opts.HostTriplet
		}
		depPkg := pkgid.PackageSpec{Name: d.Name, Triplet: targetTriplet}

		addEdge := func(feat pkgid.FeatureName) {
			fs := pkgid.FeatureSpec{Package: depPkg, Feature: feat}
			r.push(fs)
			if feat != pkgid.FeatureDefault {
				edgeSet[fs] = true
			}
		}
		addEdge(pkgid.FeatureCore)
		if d.DefaultFeatures {
			addEdge(pkgid.FeatureDefault)
		}
		for _, f := range d.Features {
			addEdge(f)
		}

		if d.Constraint != nil {
			cluster.InstallInfo.VersionConstraints[d.Name] = append(cluster.InstallInfo.VersionConstraints[d.Name], d.Constraint.Minimum)
		}
	}

	cluster.InstallInfo.BuildEdges[feature] = edgeSet
	return nil
}

// featureNeedsVars reports whether resolving spec.Feature requires
// evaluating a platform expression: a dependency platform predicate, a
// supports expression, or (for "default") a platform-gated default-feature
// entry. "*" never needs vars; its expansion is evaluated per-feature once
// each entry is individually popped.
func featureNeedsVars(scf *manifest.SourceControlFile, feature pkgid.FeatureName) bool {
	switch feature {
	case pkgid.FeatureAny:
		return false
	case pkgid.FeatureDefault:
		for _, e := range scf.Core.DefaultFeatures {
			if !e.Platform.IsEmpty() {
				return true
			}
		}
		return false
	case pkgid.FeatureCore:
		if !scf.Core.Supports.IsEmpty() {
			return true
		}
		return dependenciesNeedVars(scf.Core.Dependencies)
	default:
		fp, ok := scf.FindFeature(feature)
		if !ok {
			return false
		}
		if !fp.Supports.IsEmpty() {
			return true
		}
		return dependenciesNeedVars(fp.Dependencies)
	}
}

func dependenciesNeedVars(deps []manifest.Dependency) bool {
	for _, d := range deps {
		if !d.Platform.IsEmpty() {
			return true
		}
	}
	return false
}

func featureSupports(scf *manifest.SourceControlFile, feature pkgid.FeatureName) (platform.Expr, error) {
	if feature == pkgid.FeatureCore {
		return scf.Core.Supports, nil
	}
	fp, ok := scf.FindFeature(feature)
	if !ok {
		return platform.Expr{}, fmt.Errorf("package %q: feature %q not found", scf.Core.Name, feature)
	}
	return fp.Supports, nil
}
