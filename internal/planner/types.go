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

// Package planner builds topologically-sorted install/remove action plans
// from a set of requested packages, the installed-status database, and a
// port provider, resolving features and default-feature propagation along
// the way.
package planner

import (
	"context"
	"log/slog"

	"github.com/cppkit/portman/internal/manifest"
	"github.com/cppkit/portman/internal/pkgid"
	"github.com/cppkit/portman/internal/pkgver"
	"github.com/cppkit/portman/internal/platform"
	"github.com/cppkit/portman/internal/policy"
	"github.com/cppkit/portman/internal/portprovider"
	"github.com/cppkit/portman/internal/registryset"
	"github.com/cppkit/portman/internal/statusdb"
)

// ClusterId addresses one Cluster in a planning run's arena. Using an
// index instead of a pointer lets two clusters hold edges to each other
// (including to themselves, for a port that depends on itself on another
// triplet) without forming a reference cycle.
type ClusterId uint32

// RequestType distinguishes a package named directly in the user's request
// from one pulled in only as a transitive dependency.
type RequestType int

// Recognized request types.
const (
	Auto RequestType = iota
	UserRequested
)

// InstalledInfo is the subset of Cluster state describing a package's
// current on-disk install, read once from the status database when the
// cluster is first created.
type InstalledInfo struct {
	FeaturesInstalled       map[pkgid.FeatureName]bool
	DefaultFeaturesSnapshot map[pkgid.FeatureName]bool
	DefaultsRequested       bool
}

// InstallInfo is the subset of Cluster state describing a package's plan
// to be (re)installed: the resolved per-feature dependency edges and any
// minimum-version constraints collected while traversing them.
type InstallInfo struct {
	// Features is the resolved feature set for this install, always
	// including "core" once the plan is emitted.
	Features map[pkgid.FeatureName]bool
	// BuildEdges maps a resolved feature name to the set of FeatureSpecs
	// it depends on, filtered by platform expression.
	BuildEdges map[pkgid.FeatureName]map[pkgid.FeatureSpec]bool
	// VersionConstraints records, for the versioned planner, every
	// "version>=" minimum seen for a given dependency package.
	VersionConstraints map[pkgid.PackageName][]pkgver.Version
	DefaultsRequested  bool
}

// Cluster is the planner-internal node representing one (package, triplet)
// and its accumulated install/remove state across a single planning run.
type Cluster struct {
	ID      ClusterId
	Spec    pkgid.PackageSpec
	SCFL    *portprovider.SourceControlFileAndLocation
	SCFLErr error

	Installed   *InstalledInfo
	InstallInfo *InstallInfo

	// RequestType is UserRequested if this package was named directly in
	// the original request on this cluster's own triplet; it is promoted
	// from Auto the first time a request names it.
	RequestType RequestType

	triplet platform.Vars
}

// IsRebuild reports whether cluster denotes an install over a pre-existing
// installation (both Installed and InstallInfo populated).
func (c *Cluster) IsRebuild() bool {
	return c.Installed != nil && c.InstallInfo != nil
}

// RemoveAction removes a previously installed package ahead of its
// replacement install, emitted only for clusters undergoing a rebuild.
type RemoveAction struct {
	Spec pkgid.PackageSpec
}

// InstallAction is one package's resolved install step: its final feature
// set, the per-feature dependency edges that fed the plan, and the
// manifest that will drive the build.
type InstallAction struct {
	Spec               pkgid.PackageSpec
	Features           []pkgid.FeatureName
	Dependencies       map[pkgid.FeatureName][]pkgid.FeatureSpec
	SCFL               *portprovider.SourceControlFileAndLocation
	HostTriplet        pkgid.Triplet
	RequestType        RequestType
	SelectedVersion    pkgver.Version
	ConstraintWarnings []string
}

// ActionPlan is the planner's output: a fully topologically-sorted set of
// removes and installs, plus the user-requested packages already present
// in the desired shape and any unsupported (platform-excluded) features.
type ActionPlan struct {
	RemoveActions       []RemoveAction
	AlreadyInstalled    []InstallAction
	InstallActions      []InstallAction
	UnsupportedFeatures map[pkgid.FeatureSpec]platform.Expr
}

// Permuter lets tests reorder the set of topologically-ready clusters at
// each step, to verify the planner's correctness does not depend on a
// particular tie-break among otherwise-unordered candidates. The default
// is an identity permutation (stable first-seen order).
type Permuter interface {
	Permute(ready []ClusterId) []ClusterId
}

// IdentityPermuter implements Permuter as a no-op, preserving the stable
// first-seen insertion order the planner otherwise applies.
type IdentityPermuter struct{}

// Permute returns ready unchanged.
func (IdentityPermuter) Permute(ready []ClusterId) []ClusterId { return ready }

// VarProvider resolves platform.Vars for a triplet, batched across the
// specs the worklist could not immediately evaluate a platform expression
// for. internal/triplet.DepInfoVarProvider implements this.
type VarProvider interface {
	LoadDepInfoVars(ctx context.Context, triplets []pkgid.Triplet) error
	GetDepInfoVars(t pkgid.Triplet) (platform.Vars, bool)
}

// PortProvider resolves a package's manifest, implemented by
// internal/portprovider.Provider.
type PortProvider interface {
	Get(ctx context.Context, pkg pkgid.PackageName) (*portprovider.SourceControlFileAndLocation, error)
}

// StatusDB is the read-only installed-package query surface the planner
// seeds clusters from, implemented by internal/statusdb.Database.
type StatusDB interface {
	AllInstalledPackages() []pkgid.PackageSpec
	FindInstalled(pkg pkgid.PackageSpec) []statusdb.StatusParagraph
	InstalledFeatures(pkg pkgid.PackageSpec) []pkgid.FeatureName
	InstalledDefaultSnapshot(pkg pkgid.PackageSpec) []pkgid.FeatureName
	IsInstalled(pkg pkgid.PackageSpec) bool
	Dependents(pkg pkgid.PackageName) []pkgid.PackageSpec
}

// Options controls planner-wide behavior not captured by the request
// itself.
type Options struct {
	HostTriplet           pkgid.Triplet
	UnsupportedPortAction policy.UnsupportedPortAction
	Permuter              Permuter
	Logger                *slog.Logger
}

func (o Options) permuter() Permuter {
	if o.Permuter != nil {
		return o.Permuter
	}
	return IdentityPermuter{}
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// VersionedPortProvider resolves a package's manifest at an exact selected
// version, implemented by internal/portprovider.Provider.
type VersionedPortProvider interface {
	PortProvider
	GetAtVersion(ctx context.Context, pkg pkgid.PackageName, version pkgver.Version) (*portprovider.SourceControlFileAndLocation, error)
}

// VersionProvider resolves baseline pins, implemented by
// internal/registryset.RegistrySet.
type VersionProvider interface {
	BaselineFor(ctx context.Context, pkg pkgid.PackageName) (registryset.PortEntry, error)
	Versions(ctx context.Context, pkg pkgid.PackageName) ([]registryset.PortEntry, error)
}

// manifestOf is a small helper shared by classic.go and versioned.go to
// fetch the *manifest.SourceControlFile out of a resolved cluster.
func manifestOf(c *Cluster) *manifest.SourceControlFile {
	if c.SCFL == nil {
		return nil
	}
	return c.SCFL.SCF
}
