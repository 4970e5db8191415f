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

// Package pkgid defines the identifier primitives shared across the planner:
// package names, feature names, triplets, and the composite specs built from
// them.
package pkgid

import (
	"fmt"
	"regexp"
)

var identifierRE = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// reservedNames are package/feature names that never name a real port.
var reservedNames = map[string]bool{
	"core":    true,
	"default": true,
	"prn":     true,
	"aux":     true,
	"nul":     true,
	"con":     true,
}

var reservedNumberedRE = regexp.MustCompile(`^(com|lpt)[0-9]$`)

// IsIdentifier reports whether s matches the grammar `[a-z0-9]+(-[a-z0-9]+)*`.
func IsIdentifier(s string) bool {
	return identifierRE.MatchString(s)
}

func isReserved(s string) bool {
	return reservedNames[s] || reservedNumberedRE.MatchString(s)
}

// IsPackageName reports whether s is a legal, non-reserved package name.
func IsPackageName(s string) bool {
	return IsIdentifier(s) && !isReserved(s)
}

// IsFeatureName reports whether s is a legal feature name. Unlike package
// names, "core" and "default" are handled as the reserved pseudo-features
// by callers and are rejected here as ordinary feature names.
func IsFeatureName(s string) bool {
	if s == "core" || s == "default" {
		return false
	}
	return IsIdentifier(s)
}

var gitShaRE = regexp.MustCompile(`^[0-9a-f]{40}$`)

// IsGitSha reports whether s is exactly 40 lowercase hex characters.
func IsGitSha(s string) bool {
	return gitShaRE.MatchString(s)
}

// PackageName is a validated port/project identifier.
type PackageName string

// Validate returns an error if the name does not meet the package-name grammar.
func (n PackageName) Validate() error {
	if !IsPackageName(string(n)) {
		return fmt.Errorf("invalid package name %q: must match [a-z0-9]+(-[a-z0-9]+)* and not be reserved", n)
	}
	return nil
}

// FeatureName is a validated feature identifier, or one of the reserved
// pseudo-feature spellings "core", "default", "*".
type FeatureName string

// Reserved pseudo-feature spellings.
const (
	FeatureCore    FeatureName = "core"
	FeatureDefault FeatureName = "default"
	FeatureAny     FeatureName = "*"
)

// Validate returns an error unless n is a legal feature name or one of the
// reserved pseudo-feature spellings.
func (n FeatureName) Validate() error {
	if n == FeatureCore || n == FeatureDefault || n == FeatureAny {
		return nil
	}
	if !IsIdentifier(string(n)) {
		return fmt.Errorf("invalid feature name %q: must match [a-z0-9]+(-[a-z0-9]+)*", n)
	}
	return nil
}

// Triplet is an opaque canonical platform descriptor, e.g. "x64-windows".
type Triplet string

// PackageSpec names a package on a specific triplet.
type PackageSpec struct {
	Name    PackageName
	Triplet Triplet
}

// String renders "name:triplet".
func (s PackageSpec) String() string {
	return fmt.Sprintf("%s:%s", s.Name, s.Triplet)
}

// FeatureSpec names a single feature of a PackageSpec.
type FeatureSpec struct {
	Package PackageSpec
	Feature FeatureName
}

// String renders "name[feature]:triplet", or "name:triplet" for "core".
func (s FeatureSpec) String() string {
	if s.Feature == FeatureCore {
		return s.Package.String()
	}
	return fmt.Sprintf("%s[%s]:%s", s.Package.Name, s.Feature, s.Package.Triplet)
}

// FullPackageSpec names a package together with an explicit feature set. An
// empty Features set means "apply default features".
type FullPackageSpec struct {
	Package  PackageSpec
	Features map[FeatureName]bool
}

// NewFullPackageSpec builds a FullPackageSpec from a feature slice.
func NewFullPackageSpec(pkg PackageSpec, features ...FeatureName) FullPackageSpec {
	set := make(map[FeatureName]bool, len(features))
	for _, f := range features {
		set[f] = true
	}
	return FullPackageSpec{Package: pkg, Features: set}
}

// HasFeature reports whether the explicit feature set requests f.
func (s FullPackageSpec) HasFeature(f FeatureName) bool {
	return s.Features[f]
}
