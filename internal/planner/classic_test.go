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
	"testing"

	"github.com/cppkit/portman/internal/manifest"
	"github.com/cppkit/portman/internal/pkgid"
	"github.com/cppkit/portman/internal/platform"
	"github.com/cppkit/portman/internal/policy"
	"github.com/cppkit/portman/internal/portprovider"
	"github.com/cppkit/portman/internal/statusdb"
)

const testTriplet pkgid.Triplet = "x64-linux"

// fakePorts serves a fixed, in-memory set of manifests by name, ignoring
// triplet: enough for the planner scenarios, which never vary a port's
// manifest by target.
type fakePorts struct {
	scfs map[pkgid.PackageName]*manifest.SourceControlFile
}

func newFakePorts() *fakePorts {
	return &fakePorts{scfs: map[pkgid.PackageName]*manifest.SourceControlFile{}}
}

func (f *fakePorts) add(name pkgid.PackageName, scf *manifest.SourceControlFile) {
	f.scfs[name] = scf
}

func (f *fakePorts) Get(_ context.Context, pkg pkgid.PackageName) (*portprovider.SourceControlFileAndLocation, error) {
	scf, ok := f.scfs[pkg]
	if !ok {
		return nil, fmt.Errorf("no such port %q", pkg)
	}
	return &portprovider.SourceControlFileAndLocation{SCF: scf, Origin: "ports/" + string(pkg)}, nil
}

// fakeVars reports every triplet as already loaded with a single fixed
// Vars value, so none of the scenarios below ever touch the deferred
// qualified-dependencies path.
type fakeVars struct{ vars platform.Vars }

func (fakeVars) LoadDepInfoVars(context.Context, []pkgid.Triplet) error { return nil }
func (f fakeVars) GetDepInfoVars(pkgid.Triplet) (platform.Vars, bool)   { return f.vars, true }

func dep(name pkgid.PackageName, features ...pkgid.FeatureName) manifest.Dependency {
	return manifest.Dependency{Name: name, DefaultFeatures: true, Features: features}
}

func corePort(name pkgid.PackageName, deps ...manifest.Dependency) *manifest.SourceControlFile {
	return &manifest.SourceControlFile{Core: manifest.CoreParagraph{Name: name, Dependencies: deps}}
}

func spec(name pkgid.PackageName) pkgid.PackageSpec {
	return pkgid.PackageSpec{Name: name, Triplet: testTriplet}
}

func actionNames(actions []InstallAction) []string {
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = string(a.Spec.Name)
	}
	return out
}

func removeNames(actions []RemoveAction) []string {
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = string(a.Spec.Name)
	}
	return out
}

func featuresOf(plan *ActionPlan, name pkgid.PackageName) []pkgid.FeatureName {
	for _, a := range plan.InstallActions {
		if a.Spec.Name == name {
			return a.Features
		}
	}
	return nil
}

func assertStringSlice(t *testing.T, label string, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s = %v, want %v", label, got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("%s = %v, want %v", label, got, want)
		}
	}
}

func runPlan(t *testing.T, ports *fakePorts, status StatusDB, request []pkgid.FullPackageSpec) *ActionPlan {
	t.Helper()
	plan, err := CreateFeatureInstallPlan(context.Background(), ports, fakeVars{}, status, request,
		Options{HostTriplet: testTriplet, UnsupportedPortAction: policy.UnsupportedPortActionError})
	if err != nil {
		t.Fatalf("CreateFeatureInstallPlan: %v", err)
	}
	return plan
}

// S1: a linear chain a -> b -> c installs in dependency order c, b, a.
func TestScenarioS1LinearChainInstallOrder(t *testing.T) {
	ports := newFakePorts()
	ports.add("c", corePort("c"))
	ports.add("b", corePort("b", dep("c")))
	ports.add("a", corePort("a", dep("b")))

	status := statusdb.NewDatabase(nil)
	plan := runPlan(t, ports, status, []pkgid.FullPackageSpec{{Package: spec("a")}})

	assertStringSlice(t, "install order", actionNames(plan.InstallActions), []string{"c", "b", "a"})
	if len(plan.RemoveActions) != 0 {
		t.Fatalf("unexpected removes: %v", removeNames(plan.RemoveActions))
	}
}

// S2: b is pulled in only transitively by a; b's declared default feature
// "x" is still added since a's edge to b carries default-features.
func TestScenarioS2TransitiveDefaultsAdded(t *testing.T) {
	ports := newFakePorts()
	bSCF := corePort("b")
	bSCF.Core.DefaultFeatures = []manifest.DefaultFeatureEntry{{Name: "x"}}
	bSCF.Features = []manifest.FeatureParagraph{{Name: "x"}}
	ports.add("b", bSCF)
	ports.add("a", corePort("a", dep("b")))

	status := statusdb.NewDatabase(nil)
	plan := runPlan(t, ports, status, []pkgid.FullPackageSpec{{Package: spec("a")}})

	assertStringSlice(t, "b features", toStrings(featuresOf(plan, "b")), []string{"core", "x"})
}

// S3: requesting b directly with an explicit, non-empty feature list
// suppresses its default features entirely.
func TestScenarioS3ExplicitRequestSuppressesDefaults(t *testing.T) {
	ports := newFakePorts()
	bSCF := corePort("b")
	bSCF.Core.DefaultFeatures = []manifest.DefaultFeatureEntry{{Name: "x"}}
	bSCF.Features = []manifest.FeatureParagraph{{Name: "x"}, {Name: "y"}}
	ports.add("b", bSCF)

	status := statusdb.NewDatabase(nil)
	plan := runPlan(t, ports, status, []pkgid.FullPackageSpec{
		pkgid.NewFullPackageSpec(spec("b"), "y"),
	})

	assertStringSlice(t, "b features", toStrings(featuresOf(plan, "b")), []string{"core", "y"})
}

// S4: requesting a new feature on an already-installed package that a
// dependent also relies on reinstalls both, removing the dependent and
// then the rebuilt package, and installing it before its dependent.
func TestScenarioS4ReinstallCascadesToDependents(t *testing.T) {
	ports := newFakePorts()
	aSCF := corePort("a")
	aSCF.Features = []manifest.FeatureParagraph{{Name: "z"}}
	ports.add("a", aSCF)
	ports.add("c", corePort("c", dep("a")))

	status := statusdb.NewDatabase([]statusdb.StatusParagraph{
		{Spec: pkgid.FeatureSpec{Package: spec("a"), Feature: pkgid.FeatureCore}, State: statusdb.StateInstalled, Want: statusdb.WantInstall},
		{Spec: pkgid.FeatureSpec{Package: spec("c"), Feature: pkgid.FeatureCore}, State: statusdb.StateInstalled, Want: statusdb.WantInstall, Depends: []pkgid.PackageName{"a"}},
	})

	plan := runPlan(t, ports, status, []pkgid.FullPackageSpec{
		pkgid.NewFullPackageSpec(spec("a"), "z"),
	})

	// c depends on a, so the reinstall cascade marks c for rebuild too
	// even though none of c's own requested features changed; removes
	// run in the reverse of the install order restricted to rebuilds.
	assertStringSlice(t, "removes", removeNames(plan.RemoveActions), []string{"c", "a"})
	assertStringSlice(t, "install order", actionNames(plan.InstallActions), []string{"a", "c"})
	assertStringSlice(t, "a features", toStrings(featuresOf(plan, "a")), []string{"core", "z"})
}

// S5: the "*" wildcard expands to every declared feature of the package.
func TestScenarioS5WildcardExpandsAllFeatures(t *testing.T) {
	ports := newFakePorts()
	aSCF := corePort("a")
	aSCF.Features = []manifest.FeatureParagraph{{Name: "f1"}, {Name: "f2"}}
	ports.add("a", aSCF)

	status := statusdb.NewDatabase(nil)
	plan := runPlan(t, ports, status, []pkgid.FullPackageSpec{
		pkgid.NewFullPackageSpec(spec("a"), pkgid.FeatureAny),
	})

	assertStringSlice(t, "a features", toStrings(featuresOf(plan, "a")), []string{"core", "f1", "f2"})
}

// S6: the manifest has grown a new default feature since a was installed;
// requesting a's defaults again reinstalls it with the feature added.
func TestScenarioS6UpgradeAddsNewDefaultFeature(t *testing.T) {
	ports := newFakePorts()
	aSCF := corePort("a")
	aSCF.Core.DefaultFeatures = []manifest.DefaultFeatureEntry{{Name: "w"}}
	aSCF.Features = []manifest.FeatureParagraph{{Name: "w"}}
	ports.add("a", aSCF)

	status := statusdb.NewDatabase([]statusdb.StatusParagraph{
		{Spec: pkgid.FeatureSpec{Package: spec("a"), Feature: pkgid.FeatureCore}, State: statusdb.StateInstalled, Want: statusdb.WantInstall},
	})

	plan := runPlan(t, ports, status, []pkgid.FullPackageSpec{{Package: spec("a")}})

	assertStringSlice(t, "removes", removeNames(plan.RemoveActions), []string{"a"})
	assertStringSlice(t, "a features", toStrings(featuresOf(plan, "a")), []string{"core", "w"})
}

// reversingPermuter reverses every ready batch, used to prove the final
// order is still a valid topological sort regardless of tie-break choice
// among simultaneously-ready clusters.
type reversingPermuter struct{}

func (reversingPermuter) Permute(ready []ClusterId) []ClusterId {
	out := make([]ClusterId, len(ready))
	for i, id := range ready {
		out[len(ready)-1-i] = id
	}
	return out
}

// TestTopologicalOrderIndependentOfPermutation builds a diamond (a depends
// on b and c, both depend on d) where b and c become ready simultaneously,
// and checks both the identity and a reversing permuter still produce a
// valid topological order: d first, a last.
func TestTopologicalOrderIndependentOfPermutation(t *testing.T) {
	for _, permuter := range []Permuter{IdentityPermuter{}, reversingPermuter{}} {
		ports := newFakePorts()
		ports.add("d", corePort("d"))
		ports.add("b", corePort("b", dep("d")))
		ports.add("c", corePort("c", dep("d")))
		ports.add("a", corePort("a", dep("b"), dep("c")))

		status := statusdb.NewDatabase(nil)
		plan, err := CreateFeatureInstallPlan(context.Background(), ports, fakeVars{}, status,
			[]pkgid.FullPackageSpec{{Package: spec("a")}},
			Options{HostTriplet: testTriplet, UnsupportedPortAction: policy.UnsupportedPortActionError, Permuter: permuter})
		if err != nil {
			t.Fatalf("CreateFeatureInstallPlan: %v", err)
		}

		order := actionNames(plan.InstallActions)
		pos := map[string]int{}
		for i, n := range order {
			pos[n] = i
		}
		if pos["d"] >= pos["b"] || pos["d"] >= pos["c"] || pos["b"] >= pos["a"] || pos["c"] >= pos["a"] {
			t.Fatalf("order %v is not a valid topological sort of the diamond", order)
		}
	}
}

// TestDependencyCycleIsFatal checks a two-package dependency loop (a <-> b)
// surfaces as a DependencyCycleError rather than a partial plan.
func TestDependencyCycleIsFatal(t *testing.T) {
	ports := newFakePorts()
	ports.add("a", corePort("a", dep("b")))
	ports.add("b", corePort("b", dep("a")))

	status := statusdb.NewDatabase(nil)
	_, err := CreateFeatureInstallPlan(context.Background(), ports, fakeVars{}, status,
		[]pkgid.FullPackageSpec{{Package: spec("a")}},
		Options{HostTriplet: testTriplet, UnsupportedPortAction: policy.UnsupportedPortActionError})
	if err == nil {
		t.Fatal("expected a dependency cycle error, got nil")
	}
	var cycleErr *DependencyCycleError
	if !asCycleError(err, &cycleErr) {
		t.Fatalf("expected *DependencyCycleError, got %T: %v", err, err)
	}
}

func asCycleError(err error, target **DependencyCycleError) bool {
	ce, ok := err.(*DependencyCycleError)
	if ok {
		*target = ce
	}
	return ok
}

func toStrings(features []pkgid.FeatureName) []string {
	out := make([]string, len(features))
	for i, f := range features {
		out[i] = string(f)
	}
	return out
}
