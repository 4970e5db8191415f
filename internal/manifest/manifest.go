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

// Package manifest decodes, validates, and canonically re-serializes port
// and project manifests (vcpkg.json documents).
package manifest

import (
	"encoding/json"

	"github.com/cppkit/portman/internal/license"
	"github.com/cppkit/portman/internal/pkgid"
	"github.com/cppkit/portman/internal/pkgver"
	"github.com/cppkit/portman/internal/platform"
)

// ConfigurationSource records which of the two mutually exclusive keys a
// manifest's embedded registry configuration arrived under, so canonical
// serialization can round-trip it faithfully.
type ConfigurationSource int

// Configuration source values.
const (
	ConfigurationNone ConfigurationSource = iota
	ConfigurationKeyConfiguration
	ConfigurationKeyVcpkgConfiguration
)

// ExtraField is one "$"-prefixed top-level key, preserved verbatim. The
// parser stores them sorted by key, so they round-trip in key order, not
// in the order the source file listed them (§4.3 rule 4).
type ExtraField struct {
	Key   string
	Value json.RawMessage
}

// Dependency is a single dependency declaration, normalized to the object
// form described in §4.3's recognized-key table.
type Dependency struct {
	Name            pkgid.PackageName
	Features        []pkgid.FeatureName
	Platform        platform.Expr
	Constraint      *Constraint
	ExtraInfo       []ExtraField
	DefaultFeatures bool // true unless "default-features": false was given
	Host            bool
}

// Constraint is a "version>=" minimum-version edge constraint. PortVersion
// constraints ("#N") mean "minimum port-version at this text version".
type Constraint struct {
	Minimum pkgver.Version
	Scheme  pkgver.Scheme
}

// DefaultFeatureEntry is one entry of a manifest's default-features list:
// either a bare feature name or a {name, platform} object.
type DefaultFeatureEntry struct {
	Name     pkgid.FeatureName
	Platform platform.Expr
}

// Override forces the version of a named package in the root manifest,
// ignoring all constraints.
type Override struct {
	Name        pkgid.PackageName
	Version     pkgver.Version
	Scheme      pkgver.Scheme
	PortVersion int
}

// FeatureParagraph is one optional component of a port.
type FeatureParagraph struct {
	Name         pkgid.FeatureName
	Description  []string
	Dependencies []Dependency
	Supports     platform.Expr
	License      *license.Expr
}

// CoreParagraph is the mandatory "core" section of a manifest.
type CoreParagraph struct {
	Name                pkgid.PackageName
	Version             pkgver.Version
	Scheme              pkgver.Scheme
	Maintainers         []string
	Description         []string
	Summary             []string
	Homepage            string
	Documentation       string
	License             *license.Expr
	Supports            platform.Expr
	Dependencies        []Dependency
	DefaultFeatures     []DefaultFeatureEntry
	Overrides           []Override
	BuiltinBaseline     string
	Configuration       json.RawMessage
	ConfigurationSource ConfigurationSource
	ExtraInfo           []ExtraField
}

// SourceControlFile is the fully decoded form of one port or project
// manifest.
type SourceControlFile struct {
	Core     CoreParagraph
	Features []FeatureParagraph
	// IsProjectManifest distinguishes a project manifest (name optional,
	// Missing scheme allowed) from a port manifest.
	IsProjectManifest bool
}

// DependsOnAnyFeature reports whether the core paragraph or any feature
// paragraph declares a dependency named pkg.
func (s *SourceControlFile) DependsOnAnyFeature(pkg pkgid.PackageName) bool {
	for _, d := range s.Core.Dependencies {
		if d.Name == pkg {
			return true
		}
	}
	for _, f := range s.Features {
		for _, d := range f.Dependencies {
			if d.Name == pkg {
				return true
			}
		}
	}
	return false
}

// FindFeature returns the named feature paragraph, if present.
func (s *SourceControlFile) FindFeature(name pkgid.FeatureName) (FeatureParagraph, bool) {
	for _, f := range s.Features {
		if f.Name == name {
			return f, true
		}
	}
	return FeatureParagraph{}, false
}

// FeatureNames returns every declared feature's name, in declaration order.
func (s *SourceControlFile) FeatureNames() []pkgid.FeatureName {
	names := make([]pkgid.FeatureName, 0, len(s.Features))
	for _, f := range s.Features {
		names = append(names, f.Name)
	}
	return names
}
