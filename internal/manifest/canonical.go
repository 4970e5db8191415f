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

package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/cppkit/portman/internal/pkgid"
	"github.com/cppkit/portman/internal/pkgver"
)

// Canonicalize sorts a manifest in place per the ordering rules: top-level
// dependencies by (name, platform string, feature-list size, lexical), each
// dependency's own feature list lexically, feature paragraphs by name, and
// every ExtraField list by key.
func Canonicalize(scf *SourceControlFile) {
	canonicalizeDependencies(scf.Core.Dependencies)
	for i := range scf.Features {
		canonicalizeDependencies(scf.Features[i].Dependencies)
	}
	sort.SliceStable(scf.Features, func(i, j int) bool {
		return scf.Features[i].Name < scf.Features[j].Name
	})
	sort.SliceStable(scf.Core.DefaultFeatures, func(i, j int) bool {
		return scf.Core.DefaultFeatures[i].Name < scf.Core.DefaultFeatures[j].Name
	})
	sort.SliceStable(scf.Core.Overrides, func(i, j int) bool {
		return scf.Core.Overrides[i].Name < scf.Core.Overrides[j].Name
	})
	sortExtraFields(scf.Core.ExtraInfo)
	for i := range scf.Features {
		// feature paragraphs carry no ExtraField slice of their own in this
		// model; dependency-level ExtraInfo is sorted below.
		for j := range scf.Features[i].Dependencies {
			sortExtraFields(scf.Features[i].Dependencies[j].ExtraInfo)
		}
	}
	for i := range scf.Core.Dependencies {
		sortExtraFields(scf.Core.Dependencies[i].ExtraInfo)
	}
}

func sortExtraFields(fields []ExtraField) {
	sort.SliceStable(fields, func(i, j int) bool { return fields[i].Key < fields[j].Key })
}

func canonicalizeDependencies(deps []Dependency) {
	for i := range deps {
		names := make([]pkgid.FeatureName, len(deps[i].Features))
		copy(names, deps[i].Features)
		sort.Slice(names, func(a, b int) bool { return names[a] < names[b] })
		deps[i].Features = names
	}
	sort.SliceStable(deps, func(i, j int) bool {
		a, b := deps[i], deps[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		ap, bp := a.Platform.String(), b.Platform.String()
		if ap != bp {
			return ap < bp
		}
		if len(a.Features) != len(b.Features) {
			return len(a.Features) < len(b.Features)
		}
		for k := range a.Features {
			if a.Features[k] != b.Features[k] {
				return a.Features[k] < b.Features[k]
			}
		}
		return false
	})
}

// MarshalCanonical serializes a canonicalized manifest to its byte-exact
// field order: name, version fields, port-version, maintainers,
// description, homepage, documentation, license, summary, supports,
// dependencies, default-features, overrides, builtin-baseline,
// configuration/vcpkg-configuration, features, then sorted "$"-fields.
func MarshalCanonical(scf *SourceControlFile) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	put := func(key string, value any) error {
		enc, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", key, err)
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		keyEnc, _ := json.Marshal(key)
		buf.Write(keyEnc)
		buf.WriteByte(':')
		buf.Write(enc)
		return nil
	}

	core := scf.Core

	if core.Name != "" {
		if err := put("name", string(core.Name)); err != nil {
			return nil, err
		}
	}

	if core.Scheme != pkgver.SchemeMissing && core.Scheme != "" {
		if key, ok := versionKeyForScheme(core.Scheme); ok {
			if err := put(key, core.Version.Text); err != nil {
				return nil, err
			}
			if core.Version.PortVersion != 0 {
				if err := put("port-version", core.Version.PortVersion); err != nil {
					return nil, err
				}
			}
		}
	}

	if len(core.Maintainers) > 0 {
		if err := put("maintainers", core.Maintainers); err != nil {
			return nil, err
		}
	}
	if err := putStringOrList(put, "description", core.Description); err != nil {
		return nil, err
	}
	if core.Homepage != "" {
		if err := put("homepage", core.Homepage); err != nil {
			return nil, err
		}
	}
	if core.Documentation != "" {
		if err := put("documentation", core.Documentation); err != nil {
			return nil, err
		}
	}
	if core.License != nil {
		if err := put("license", core.License.Canonical()); err != nil {
			return nil, err
		}
	}
	if err := putStringOrList(put, "summary", core.Summary); err != nil {
		return nil, err
	}
	if !core.Supports.IsEmpty() {
		if err := put("supports", core.Supports.String()); err != nil {
			return nil, err
		}
	}
	if len(core.Dependencies) > 0 {
		depsJSON, err := marshalDependencies(core.Dependencies)
		if err != nil {
			return nil, err
		}
		if err := put("dependencies", depsJSON); err != nil {
			return nil, err
		}
	}
	if len(core.DefaultFeatures) > 0 {
		if err := put("default-features", marshalDefaultFeatures(core.DefaultFeatures)); err != nil {
			return nil, err
		}
	}
	if len(core.Overrides) > 0 {
		if err := put("overrides", marshalOverrides(core.Overrides)); err != nil {
			return nil, err
		}
	}
	if core.BuiltinBaseline != "" {
		if err := put("builtin-baseline", core.BuiltinBaseline); err != nil {
			return nil, err
		}
	}
	switch core.ConfigurationSource {
	case ConfigurationKeyConfiguration:
		if err := put("configuration", core.Configuration); err != nil {
			return nil, err
		}
	case ConfigurationKeyVcpkgConfiguration:
		if err := put("vcpkg-configuration", core.Configuration); err != nil {
			return nil, err
		}
	}
	if len(scf.Features) > 0 {
		if err := put("features", marshalFeatures(scf.Features)); err != nil {
			return nil, err
		}
	}
	for _, f := range core.ExtraInfo {
		if err := put(f.Key, f.Value); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func versionKeyForScheme(s pkgver.Scheme) (string, bool) {
	switch s {
	case "string":
		return "version-string", true
	case "relaxed":
		return "version", true
	case "semver":
		return "version-semver", true
	case "date":
		return "version-date", true
	default:
		return "", false
	}
}

func putStringOrList(put func(string, any) error, key string, values []string) error {
	if len(values) == 0 {
		return nil
	}
	if len(values) == 1 {
		return put(key, values[0])
	}
	return put(key, values)
}

type wireDependency struct {
	Name            string   `json:"name"`
	Host            bool     `json:"host,omitempty"`
	Features        []string `json:"features,omitempty"`
	DefaultFeatures *bool    `json:"default-features,omitempty"`
	Platform        string   `json:"platform,omitempty"`
	VersionGE       string   `json:"version>=,omitempty"`
	PortVersion     int      `json:"port-version,omitempty"`
}

func marshalDependencies(deps []Dependency) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(deps))
	for _, d := range deps {
		if len(d.Features) == 0 && d.DefaultFeatures && !d.Host && d.Platform.IsEmpty() && d.Constraint == nil && len(d.ExtraInfo) == 0 {
			raw, err := json.Marshal(string(d.Name))
			if err != nil {
				return nil, err
			}
			out = append(out, raw)
			continue
		}
		w := wireDependency{Name: string(d.Name), Host: d.Host}
		for _, f := range d.Features {
			w.Features = append(w.Features, string(f))
		}
		if !d.DefaultFeatures {
			df := false
			w.DefaultFeatures = &df
		}
		if !d.Platform.IsEmpty() {
			w.Platform = d.Platform.String()
		}
		if d.Constraint != nil {
			w.VersionGE = d.Constraint.Minimum.Text
			w.PortVersion = d.Constraint.Minimum.PortVersion
		}
		raw, err := json.Marshal(w)
		if err != nil {
			return nil, err
		}
		if len(d.ExtraInfo) > 0 {
			raw, err = mergeExtra(raw, d.ExtraInfo)
			if err != nil {
				return nil, err
			}
		}
		out = append(out, raw)
	}
	return out, nil
}

func mergeExtra(base json.RawMessage, extra []ExtraField) (json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(base, &obj); err != nil {
		return nil, err
	}
	for _, f := range extra {
		obj[f.Key] = f.Value
	}
	return json.Marshal(obj)
}

func marshalDefaultFeatures(entries []DefaultFeatureEntry) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(entries))
	for _, e := range entries {
		if e.Platform.IsEmpty() {
			raw, _ := json.Marshal(string(e.Name))
			out = append(out, raw)
			continue
		}
		raw, _ := json.Marshal(struct {
			Name     string `json:"name"`
			Platform string `json:"platform"`
		}{string(e.Name), e.Platform.String()})
		out = append(out, raw)
	}
	return out
}

func marshalOverrides(overrides []Override) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(overrides))
	for _, o := range overrides {
		key, ok := versionKeyForScheme(o.Scheme)
		if !ok {
			continue
		}
		obj := map[string]any{"name": string(o.Name), key: o.Version.Text}
		if o.PortVersion != 0 {
			obj["port-version"] = o.PortVersion
		}
		raw, _ := json.Marshal(obj)
		out = append(out, raw)
	}
	return out
}

func marshalFeatures(features []FeatureParagraph) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(features))
	for _, f := range features {
		obj := map[string]any{}
		if len(f.Description) == 1 {
			obj["description"] = f.Description[0]
		} else {
			obj["description"] = f.Description
		}
		if len(f.Dependencies) > 0 {
			deps, err := marshalDependencies(f.Dependencies)
			if err == nil {
				obj["dependencies"] = deps
			}
		}
		if !f.Supports.IsEmpty() {
			obj["supports"] = f.Supports.String()
		}
		if f.License != nil {
			obj["license"] = f.License.Canonical()
		}
		raw, _ := json.Marshal(obj)
		out[string(f.Name)] = raw
	}
	return out
}
