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
	"sort"
	"strings"

	"github.com/cppkit/portman/internal/pkgid"
)

// emit builds the install dependency graph over every cluster touched by
// this run (InstallInfo != nil), topologically sorts it, derives the
// remove order as its reverse restricted to rebuilding clusters, and
// collects the already-installed partition.
func (r *classicRun) emit() (*ActionPlan, error) {
	var installNodes []ClusterId
	for _, c := range r.arena.all() {
		if c.InstallInfo != nil {
			installNodes = append(installNodes, c.ID)
		}
	}

	successors := r.buildSuccessors(installNodes)
	order, err := topoSort(installNodes, successors, r.opts.permuter())
	if err != nil {
		cycleErr := err.(*CycleError)
		var specs []string
		for _, id := range cycleErr.Remaining {
			specs = append(specs, r.arena.get(id).Spec.String())
		}
		return nil, &DependencyCycleError{Clusters: specs}
	}

	plan := &ActionPlan{UnsupportedFeatures: r.unsupported}

	for _, id := range order {
		c := r.arena.get(id)
		if c.IsRebuild() {
			plan.RemoveActions = append(plan.RemoveActions, RemoveAction{Spec: c.Spec})
		}
	}
	reverseRemoveActions(plan.RemoveActions)

	for _, id := range order {
		c := r.arena.get(id)
		plan.InstallActions = append(plan.InstallActions, r.buildInstallAction(c))
	}

	for _, c := range r.arena.all() {
		if c.InstallInfo == nil && c.Installed != nil && c.RequestType == UserRequested {
			plan.AlreadyInstalled = append(plan.AlreadyInstalled, r.buildAlreadyInstalledAction(c))
		}
	}
	sort.Slice(plan.AlreadyInstalled, func(i, j int) bool {
		return plan.AlreadyInstalled[i].Spec.String() < plan.AlreadyInstalled[j].Spec.String()
	})

	return plan, nil
}

// buildSuccessors derives, for every cluster among nodes, the set of
// clusters that must come after it: for each feature's resolved
// dependency edges, the depended-on package must install before the
// dependent, so the dependency is the predecessor and the dependent the
// successor. Same-cluster edges (a feature depending on a sibling feature
// of the same package on the same triplet) are not inter-cluster edges
// and are excluded; a self-dependency on a different triplet is a
// distinct cluster and is kept.
func (r *classicRun) buildSuccessors(nodes []ClusterId) map[ClusterId][]ClusterId {
	installSet := map[ClusterId]bool{}
	for _, id := range nodes {
		installSet[id] = true
	}

	successors := map[ClusterId][]ClusterId{}
	seenEdge := map[[2]ClusterId]bool{}
	for _, id := range nodes {
		c := r.arena.get(id)
		for _, edges := range c.InstallInfo.BuildEdges {
			for fs := range edges {
				depCluster, ok := r.arena.lookup(fs.Package)
				if !ok || !installSet[depCluster.ID] || depCluster.ID == id {
					continue
				}
				key := [2]ClusterId{depCluster.ID, id}
				if seenEdge[key] {
					continue
				}
				seenEdge[key] = true
				successors[depCluster.ID] = append(successors[depCluster.ID], id)
			}
		}
	}
	return successors
}

func reverseRemoveActions(actions []RemoveAction) {
	for i, j := 0, len(actions)-1; i < j; i, j = i+1, j-1 {
		actions[i], actions[j] = actions[j], actions[i]
	}
}

func (r *classicRun) buildInstallAction(c *Cluster) InstallAction {
	return InstallAction{
		Spec:         c.Spec,
		Features:     sortedFeatureNames(c.InstallInfo.Features),
		Dependencies: sortedDependencies(c.InstallInfo.BuildEdges),
		SCFL:         c.SCFL,
		HostTriplet:  r.opts.HostTriplet,
		RequestType:  c.RequestType,
	}
}

func (r *classicRun) buildAlreadyInstalledAction(c *Cluster) InstallAction {
	return InstallAction{
		Spec:        c.Spec,
		Features:    sortedFeatureNames(c.Installed.FeaturesInstalled),
		SCFL:        c.SCFL,
		HostTriplet: r.opts.HostTriplet,
		RequestType: c.RequestType,
	}
}

// sortedFeatureNames renders a feature set deterministically, "core"
// always first.
func sortedFeatureNames(set map[pkgid.FeatureName]bool) []pkgid.FeatureName {
	out := make([]pkgid.FeatureName, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i] == pkgid.FeatureCore {
			return true
		}
		if out[j] == pkgid.FeatureCore {
			return false
		}
		return out[i] < out[j]
	})
	return out
}

func sortedDependencies(buildEdges map[pkgid.FeatureName]map[pkgid.FeatureSpec]bool) map[pkgid.FeatureName][]pkgid.FeatureSpec {
	out := make(map[pkgid.FeatureName][]pkgid.FeatureSpec, len(buildEdges))
	for feat, edges := range buildEdges {
		list := make([]pkgid.FeatureSpec, 0, len(edges))
		for fs := range edges {
			list = append(list, fs)
		}
		sort.Slice(list, func(i, j int) bool { return list[i].String() < list[j].String() })
		out[feat] = list
	}
	return out
}

// DependencyCycleError is fatal: the planner never returns a partial plan.
type DependencyCycleError struct {
	Clusters []string
}

func (e *DependencyCycleError) Error() string {
	return "dependency cycle detected: " + strings.Join(e.Clusters, ", ")
}
