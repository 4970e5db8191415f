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
	"fmt"
	"sort"
	"strings"

	"github.com/mitchellh/go-wordwrap"

	"github.com/cppkit/portman/internal/pkgid"
)

// DisplayPlan is the partitioned, human-readable rendering of an
// ActionPlan: one package per line, grouped the way the CLI prints a
// plan preview before building anything.
type DisplayPlan struct {
	Excluded         []string
	AlreadyInstalled []string
	Remove           []string
	Rebuild          []string
	NewInstall       []string
}

// FormatPlan partitions plan into excluded / already-installed / remove /
// rebuild / new-install groups, each sorted by (name, triplet), and
// renders one line per package: "*" marks an auto-selected (transitive)
// package, a blank marker a user-requested one. wrapWidth wraps lines
// longer than it (0 disables wrapping), matching the CLI's terminal-width
// formatting of long dependency lists.
func FormatPlan(plan *ActionPlan, wrapWidth uint) *DisplayPlan {
	removing := make(map[pkgid.PackageSpec]bool, len(plan.RemoveActions))
	for _, a := range plan.RemoveActions {
		removing[a.Spec] = true
	}

	byNameTriplet := func(actions []InstallAction) []InstallAction {
		sorted := append([]InstallAction(nil), actions...)
		sort.SliceStable(sorted, func(i, j int) bool {
			if sorted[i].Spec.Name != sorted[j].Spec.Name {
				return sorted[i].Spec.Name < sorted[j].Spec.Name
			}
			return sorted[i].Spec.Triplet < sorted[j].Spec.Triplet
		})
		return sorted
	}

	d := &DisplayPlan{}
	for spec, expr := range plan.UnsupportedFeatures {
		line := fmt.Sprintf("  %s (excluded: supports %q is false)", spec.String(), expr.String())
		d.Excluded = append(d.Excluded, wrapLine(line, wrapWidth))
	}
	sort.Strings(d.Excluded)

	for _, a := range byNameTriplet(plan.AlreadyInstalled) {
		d.AlreadyInstalled = append(d.AlreadyInstalled, formatAction(a, wrapWidth))
	}

	for _, a := range byNameTriplet(plan.InstallActions) {
		line := formatAction(a, wrapWidth)
		if removing[a.Spec] {
			d.Rebuild = append(d.Rebuild, line)
		} else {
			d.NewInstall = append(d.NewInstall, line)
		}
	}
	for _, a := range plan.RemoveActions {
		d.Remove = append(d.Remove, fmt.Sprintf("  %s %s", marker(a.Spec, removing), a.Spec.String()))
	}

	sort.Strings(d.Remove)
	return d
}

func formatAction(a InstallAction, wrapWidth uint) string {
	mark := " "
	if a.RequestType == Auto {
		mark = "*"
	}
	features := featureSuffix(a.Features)
	line := fmt.Sprintf("%s %s%s", mark, a.Spec.String(), features)
	if a.SCFL != nil && !isBuiltinOrigin(a.SCFL.Origin) {
		line += fmt.Sprintf(" -- %s", a.SCFL.Origin)
	}
	return wrapLine(line, wrapWidth)
}

func marker(spec pkgid.PackageSpec, removing map[pkgid.PackageSpec]bool) string {
	if removing[spec] {
		return "*"
	}
	return " "
}

func featureSuffix(features []pkgid.FeatureName) string {
	var extra []string
	for _, f := range features {
		if f == pkgid.FeatureCore {
			continue
		}
		extra = append(extra, string(f))
	}
	if len(extra) == 0 {
		return ""
	}
	return fmt.Sprintf("[%s]", strings.Join(extra, ", "))
}

func isBuiltinOrigin(origin string) bool {
	return strings.Contains(origin, "/ports/") || strings.HasPrefix(origin, "ports/")
}

func wrapLine(line string, width uint) string {
	if width == 0 {
		return line
	}
	return wordwrap.WrapString(line, width)
}
