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
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/agext/levenshtein"

	"github.com/cppkit/portman/internal/license"
	"github.com/cppkit/portman/internal/pkgid"
	"github.com/cppkit/portman/internal/pkgver"
	"github.com/cppkit/portman/internal/platform"
)

var levParams = levenshtein.NewParams()

// ParseError is a manifest parse or validation failure, carrying the
// origin the manifest was loaded from and a JSON-pointer to the offending
// field.
type ParseError struct {
	Origin  string
	Pointer string
	Msg     string
}

func (e *ParseError) Error() string {
	if e.Pointer == "" {
		return fmt.Sprintf("%s: %s", e.Origin, e.Msg)
	}
	return fmt.Sprintf("%s (%s): %s", e.Origin, e.Pointer, e.Msg)
}

func errAt(origin, pointer, format string, args ...any) error {
	return &ParseError{Origin: origin, Pointer: pointer, Msg: fmt.Sprintf(format, args...)}
}

// recognizedDependencyKeys is the closed set of keys a dependency object
// may carry, besides "$"-prefixed comment keys.
var recognizedDependencyKeys = []string{
	"name", "host", "features", "default-features", "platform", "version>=",
}

// recognizedVersionKeys map a manifest version field name to its scheme.
var recognizedVersionKeys = map[string]pkgver.Scheme{
	"version":        pkgver.SchemeRelaxed,
	"version-string": pkgver.SchemeString,
	"version-semver": pkgver.SchemeSemver,
	"version-date":   pkgver.SchemeDate,
}

// ParsePortManifest decodes a port manifest: name and a version are
// mandatory, and the Missing scheme is rejected.
func ParsePortManifest(raw []byte, origin string) (*SourceControlFile, error) {
	return parseManifest(raw, origin, false)
}

// ParseProjectManifest decodes a project manifest: name is optional (the
// Missing scheme applies when absent).
func ParseProjectManifest(raw []byte, origin string) (*SourceControlFile, error) {
	return parseManifest(raw, origin, true)
}

func parseManifest(raw []byte, origin string, isProject bool) (*SourceControlFile, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, errAt(origin, "$", "invalid JSON: %v", err)
	}

	scf := &SourceControlFile{IsProjectManifest: isProject}
	core := &scf.Core

	if err := decodeName(obj, origin, isProject, core); err != nil {
		return nil, err
	}
	if err := decodeVersion(obj, origin, isProject, core); err != nil {
		return nil, err
	}

	core.Maintainers = decodeStringList(obj["maintainers"])
	core.Description = decodeStringOrList(obj["description"])
	core.Summary = decodeStringOrList(obj["summary"])
	core.Homepage = decodeString(obj["homepage"])
	core.Documentation = decodeString(obj["documentation"])

	if raw, ok := obj["license"]; ok {
		lic, err := decodeLicense(raw, origin, "$.license")
		if err != nil {
			return nil, err
		}
		core.License = lic
	}

	if raw, ok := obj["supports"]; ok {
		expr, err := decodePlatformExpr(raw, origin, "$.supports")
		if err != nil {
			return nil, err
		}
		core.Supports = expr
	}

	deps, err := decodeDependencies(obj["dependencies"], origin, "$.dependencies")
	if err != nil {
		return nil, err
	}
	core.Dependencies = deps

	defs, err := decodeDefaultFeatures(obj["default-features"], origin)
	if err != nil {
		return nil, err
	}
	core.DefaultFeatures = defs

	overrides, err := decodeOverrides(obj["overrides"], origin)
	if err != nil {
		return nil, err
	}
	core.Overrides = overrides

	if raw, ok := obj["builtin-baseline"]; ok {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, errAt(origin, "$.builtin-baseline", "must be a string: %v", err)
		}
		if !pkgid.IsGitSha(s) {
			return nil, errAt(origin, "$.builtin-baseline", "must be exactly 40 lowercase hex characters")
		}
		core.BuiltinBaseline = s
	}

	if err := decodeConfiguration(obj, origin, core); err != nil {
		return nil, err
	}

	features, err := decodeFeatures(obj["features"], origin)
	if err != nil {
		return nil, err
	}
	scf.Features = features

	if err := validateFeatureNameUniqueness(scf); err != nil {
		return nil, err
	}

	core.ExtraInfo = extractExtraFields(obj)

	return scf, nil
}

func decodeName(obj map[string]json.RawMessage, origin string, isProject bool, core *CoreParagraph) error {
	raw, ok := obj["name"]
	if !ok {
		if isProject {
			return nil
		}
		return errAt(origin, "$.name", "required for a port manifest")
	}
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return errAt(origin, "$.name", "must be a string: %v", err)
	}
	if name == "" {
		if isProject {
			return nil
		}
		return errAt(origin, "$.name", "must not be empty")
	}
	if err := pkgid.PackageName(name).Validate(); err != nil {
		return errAt(origin, "$.name", "%v", err)
	}
	core.Name = pkgid.PackageName(name)
	return nil
}

func decodeVersion(obj map[string]json.RawMessage, origin string, isProject bool, core *CoreParagraph) error {
	var foundKey string
	var scheme pkgver.Scheme
	for key, s := range recognizedVersionKeys {
		if _, ok := obj[key]; ok {
			if foundKey != "" {
				return errAt(origin, "$", "exactly one of version, version-string, version-semver, version-date is allowed; found %q and %q", foundKey, key)
			}
			foundKey = key
			scheme = s
		}
	}

	if foundKey == "" {
		if isProject && core.Name == "" {
			core.Scheme = pkgver.SchemeMissing
			core.Version = pkgver.Version{}
			return nil
		}
		return errAt(origin, "$", "a version is required: one of version, version-string, version-semver, version-date")
	}

	var text string
	if err := json.Unmarshal(obj[foundKey], &text); err != nil {
		return errAt(origin, "$."+foundKey, "must be a string: %v", err)
	}

	hasPortVersionKey := false
	portVersion := 0
	if raw, ok := obj["port-version"]; ok {
		hasPortVersionKey = true
		if err := json.Unmarshal(raw, &portVersion); err != nil {
			return errAt(origin, "$.port-version", "must be an integer: %v", err)
		}
		if portVersion < 0 {
			return errAt(origin, "$.port-version", "must not be negative")
		}
	}

	if scheme == pkgver.SchemeString && strings.ContainsRune(text, '#') {
		return errAt(origin, "$."+foundKey, "version-string must not contain '#' (port-version embedding is disallowed for this scheme)")
	}

	v, err := pkgver.Parse(text, scheme)
	if err != nil {
		return errAt(origin, "$."+foundKey, "%v", err)
	}

	if v.PortVersion != 0 && hasPortVersionKey {
		return errAt(origin, "$.port-version", "a sibling port-version and an embedded '#N' suffix are mutually exclusive")
	}
	if hasPortVersionKey {
		v.PortVersion = portVersion
	}

	core.Version = v
	core.Scheme = scheme
	return nil
}

func decodeStringList(raw json.RawMessage) []string {
	if raw == nil {
		return nil
	}
	var out []string
	_ = json.Unmarshal(raw, &out)
	return out
}

func decodeString(raw json.RawMessage) string {
	if raw == nil {
		return ""
	}
	var s string
	_ = json.Unmarshal(raw, &s)
	return s
}

// decodeStringOrList decodes a field that may be a bare string or an array
// of strings, normalizing to a slice.
func decodeStringOrList(raw json.RawMessage) []string {
	if raw == nil {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []string{s}
	}
	var list []string
	_ = json.Unmarshal(raw, &list)
	return list
}

func decodeLicense(raw json.RawMessage, origin, pointer string) (*license.Expr, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, errAt(origin, pointer, "must be a string: %v", err)
	}
	expr, err := license.Parse(s)
	if err != nil {
		return nil, errAt(origin, pointer, "%v", err)
	}
	return &expr, nil
}

func decodePlatformExpr(raw json.RawMessage, origin, pointer string) (platform.Expr, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return platform.Expr{}, errAt(origin, pointer, "must be a string: %v", err)
	}
	expr, err := platform.Parse(s, platform.Strict)
	if err != nil {
		return platform.Expr{}, errAt(origin, pointer, "%v", err)
	}
	return expr, nil
}

func decodeDependencies(raw json.RawMessage, origin, pointer string) ([]Dependency, error) {
	if raw == nil {
		return nil, nil
	}
	var rawList []json.RawMessage
	if err := json.Unmarshal(raw, &rawList); err != nil {
		return nil, errAt(origin, pointer, "must be an array: %v", err)
	}

	deps := make([]Dependency, 0, len(rawList))
	for i, item := range rawList {
		itemPointer := fmt.Sprintf("%s[%d]", pointer, i)
		dep, err := decodeOneDependency(item, origin, itemPointer)
		if err != nil {
			return nil, err
		}
		deps = append(deps, dep)
	}
	return deps, nil
}

func decodeOneDependency(raw json.RawMessage, origin, pointer string) (Dependency, error) {
	var bareName string
	if err := json.Unmarshal(raw, &bareName); err == nil {
		if err := validateDependencyName(bareName, origin, pointer); err != nil {
			return Dependency{}, err
		}
		return Dependency{Name: pkgid.PackageName(bareName), DefaultFeatures: true}, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return Dependency{}, errAt(origin, pointer, "must be a string or an object: %v", err)
	}

	dep := Dependency{DefaultFeatures: true}

	nameRaw, ok := obj["name"]
	if !ok {
		return Dependency{}, errAt(origin, pointer, "dependency object missing required field 'name'")
	}
	var name string
	if err := json.Unmarshal(nameRaw, &name); err != nil {
		return Dependency{}, errAt(origin, pointer+".name", "must be a string: %v", err)
	}
	if err := validateDependencyName(name, origin, pointer+".name"); err != nil {
		return Dependency{}, err
	}
	dep.Name = pkgid.PackageName(name)

	if raw, ok := obj["host"]; ok {
		if err := json.Unmarshal(raw, &dep.Host); err != nil {
			return Dependency{}, errAt(origin, pointer+".host", "must be a boolean: %v", err)
		}
	}

	if raw, ok := obj["features"]; ok {
		var names []string
		if err := json.Unmarshal(raw, &names); err != nil {
			return Dependency{}, errAt(origin, pointer+".features", "must be an array of strings: %v", err)
		}
		for _, n := range names {
			if n == "core" || n == "default" {
				return Dependency{}, errAt(origin, pointer+".features", "'core' and 'default' are not allowed in a dependency's feature list; use default-features instead")
			}
			if !pkgid.IsFeatureName(n) {
				return Dependency{}, errAt(origin, pointer+".features", "invalid feature name %q", n)
			}
			dep.Features = append(dep.Features, pkgid.FeatureName(n))
		}
	}

	if raw, ok := obj["default-features"]; ok {
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return Dependency{}, errAt(origin, pointer+".default-features", "must be a boolean: %v", err)
		}
		dep.DefaultFeatures = b
	}

	if raw, ok := obj["platform"]; ok {
		expr, err := decodePlatformExpr(raw, origin, pointer+".platform")
		if err != nil {
			return Dependency{}, err
		}
		dep.Platform = expr
	}

	hasVersionConstraint := false
	if raw, ok := obj["version>="]; ok {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Dependency{}, errAt(origin, pointer+".version>=", "must be a string: %v", err)
		}
		v, err := pkgver.ParseLoose(s)
		if err != nil {
			return Dependency{}, errAt(origin, pointer+".version>=", "%v", err)
		}

		hasPortVersionKey := false
		portVersion := 0
		if raw, ok := obj["port-version"]; ok {
			hasPortVersionKey = true
			if err := json.Unmarshal(raw, &portVersion); err != nil {
				return Dependency{}, errAt(origin, pointer+".port-version", "must be an integer: %v", err)
			}
			if portVersion < 0 {
				return Dependency{}, errAt(origin, pointer+".port-version", "must not be negative")
			}
		}
		if v.PortVersion != 0 && hasPortVersionKey {
			return Dependency{}, errAt(origin, pointer+".port-version", "a sibling port-version and an embedded '#N' suffix are mutually exclusive")
		}
		if hasPortVersionKey {
			v.PortVersion = portVersion
		}

		dep.Constraint = &Constraint{Minimum: v}
		hasVersionConstraint = true
	}

	if _, hasPortVersion := obj["port-version"]; hasPortVersion && !hasVersionConstraint {
		return Dependency{}, errAt(origin, pointer+".port-version", "a dependency's port-version is only legal alongside version>=")
	}

	extra, unknown := partitionDependencyExtra(obj)
	if len(unknown) > 0 {
		return Dependency{}, errAt(origin, pointer, "unrecognized key %q%s", unknown[0], suggestKey(unknown[0], recognizedDependencyKeys))
	}
	dep.ExtraInfo = extra

	return dep, nil
}

func validateDependencyName(name string, origin, pointer string) error {
	if name == "" {
		return errAt(origin, pointer, "dependency name must not be empty")
	}
	if name == "core" || name == "default" {
		return errAt(origin, pointer, "%q is a reserved name and cannot be depended on directly", name)
	}
	if err := pkgid.PackageName(name).Validate(); err != nil {
		return errAt(origin, pointer, "%v", err)
	}
	return nil
}

func partitionDependencyExtra(obj map[string]json.RawMessage) (extra []ExtraField, unknown []string) {
	recognized := map[string]bool{
		"name": true, "host": true, "features": true, "default-features": true,
		"platform": true, "version>=": true, "port-version": true,
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.HasPrefix(k, "$") {
			extra = append(extra, ExtraField{Key: k, Value: obj[k]})
			continue
		}
		if !recognized[k] {
			unknown = append(unknown, k)
		}
	}
	return extra, unknown
}

// suggestKey returns a " (did you mean X?)" hint when an unrecognized key
// is close, by edit distance, to a recognized one.
func suggestKey(got string, allowed []string) string {
	best := ""
	bestDist := 1 << 30
	for _, a := range allowed {
		d := levenshtein.Distance(got, a, levParams)
		if d < bestDist {
			bestDist = d
			best = a
		}
	}
	if best == "" || bestDist > 3 {
		return ""
	}
	return fmt.Sprintf(" (did you mean %q?)", best)
}

func decodeDefaultFeatures(raw json.RawMessage, origin string) ([]DefaultFeatureEntry, error) {
	if raw == nil {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errAt(origin, "$.default-features", "must be an array: %v", err)
	}
	out := make([]DefaultFeatureEntry, 0, len(items))
	for i, item := range items {
		pointer := fmt.Sprintf("$.default-features[%d]", i)
		var name string
		if err := json.Unmarshal(item, &name); err == nil {
			if name == "core" || name == "default" {
				return nil, errAt(origin, pointer, "'core' and 'default' cannot appear in default-features")
			}
			if !pkgid.IsFeatureName(name) {
				return nil, errAt(origin, pointer, "invalid feature name %q", name)
			}
			out = append(out, DefaultFeatureEntry{Name: pkgid.FeatureName(name)})
			continue
		}
		var obj struct {
			Name     string `json:"name"`
			Platform string `json:"platform"`
		}
		if err := json.Unmarshal(item, &obj); err != nil {
			return nil, errAt(origin, pointer, "must be a string or {name, platform} object: %v", err)
		}
		if obj.Name == "core" || obj.Name == "default" {
			return nil, errAt(origin, pointer, "'core' and 'default' cannot appear in default-features")
		}
		if !pkgid.IsFeatureName(obj.Name) {
			return nil, errAt(origin, pointer, "invalid feature name %q", obj.Name)
		}
		expr, err := platform.Parse(obj.Platform, platform.Strict)
		if err != nil {
			return nil, errAt(origin, pointer+".platform", "%v", err)
		}
		out = append(out, DefaultFeatureEntry{Name: pkgid.FeatureName(obj.Name), Platform: expr})
	}
	return out, nil
}

func decodeOverrides(raw json.RawMessage, origin string) ([]Override, error) {
	if raw == nil {
		return nil, nil
	}
	var items []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errAt(origin, "$.overrides", "must be an array of objects: %v", err)
	}

	out := make([]Override, 0, len(items))
	for i, obj := range items {
		pointer := fmt.Sprintf("$.overrides[%d]", i)

		nameRaw, ok := obj["name"]
		if !ok {
			return nil, errAt(origin, pointer+".name", "required")
		}
		var name string
		if err := json.Unmarshal(nameRaw, &name); err != nil {
			return nil, errAt(origin, pointer+".name", "must be a string: %v", err)
		}
		if err := pkgid.PackageName(name).Validate(); err != nil {
			return nil, errAt(origin, pointer+".name", "%v", err)
		}

		var foundKey string
		var scheme pkgver.Scheme
		for key, s := range recognizedVersionKeys {
			if _, ok := obj[key]; ok {
				if foundKey != "" {
					return nil, errAt(origin, pointer, "exactly one version field is allowed; found %q and %q", foundKey, key)
				}
				foundKey = key
				scheme = s
			}
		}
		if foundKey == "" {
			return nil, errAt(origin, pointer, "a version field is required")
		}

		var text string
		if err := json.Unmarshal(obj[foundKey], &text); err != nil {
			return nil, errAt(origin, pointer+"."+foundKey, "must be a string: %v", err)
		}

		hasPortVersionKey := false
		portVersion := 0
		if raw, ok := obj["port-version"]; ok {
			hasPortVersionKey = true
			if err := json.Unmarshal(raw, &portVersion); err != nil {
				return nil, errAt(origin, pointer+".port-version", "must be an integer: %v", err)
			}
		}

		if scheme == pkgver.SchemeString && strings.ContainsRune(text, '#') {
			return nil, errAt(origin, pointer+"."+foundKey, "version-string must not contain '#'")
		}

		v, err := pkgver.Parse(text, scheme)
		if err != nil {
			return nil, errAt(origin, pointer+"."+foundKey, "%v", err)
		}
		if v.PortVersion != 0 && hasPortVersionKey {
			return nil, errAt(origin, pointer+".port-version", "a sibling port-version and an embedded '#N' suffix are mutually exclusive")
		}
		if hasPortVersionKey {
			v.PortVersion = portVersion
		}

		out = append(out, Override{
			Name:        pkgid.PackageName(name),
			Version:     v,
			Scheme:      scheme,
			PortVersion: v.PortVersion,
		})
	}
	return out, nil
}

func decodeConfiguration(obj map[string]json.RawMessage, origin string, core *CoreParagraph) error {
	c, hasC := obj["configuration"]
	v, hasV := obj["vcpkg-configuration"]
	switch {
	case hasC && hasV:
		return errAt(origin, "$", "only one of 'configuration' or 'vcpkg-configuration' may be present")
	case hasC:
		core.Configuration = c
		core.ConfigurationSource = ConfigurationKeyConfiguration
	case hasV:
		core.Configuration = v
		core.ConfigurationSource = ConfigurationKeyVcpkgConfiguration
	}
	return nil
}

func decodeFeatures(raw json.RawMessage, origin string) ([]FeatureParagraph, error) {
	if raw == nil {
		return nil, nil
	}

	// Try object form: { "name": { feature-obj-without-name } }
	var asObject map[string]json.RawMessage
	if err := json.Unmarshal(raw, &asObject); err == nil {
		names := make([]string, 0, len(asObject))
		for n := range asObject {
			names = append(names, n)
		}
		sort.Strings(names)
		out := make([]FeatureParagraph, 0, len(names))
		for _, n := range names {
			fp, err := decodeOneFeature(asObject[n], origin, "$.features."+n, n)
			if err != nil {
				return nil, err
			}
			out = append(out, fp)
		}
		return out, nil
	}

	// Array form: [ {name, ...}, ... ]
	var asArray []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &asArray); err != nil {
		return nil, errAt(origin, "$.features", "must be an object or array of objects: %v", err)
	}
	out := make([]FeatureParagraph, 0, len(asArray))
	for i, item := range asArray {
		nameRaw, ok := item["name"]
		if !ok {
			return nil, errAt(origin, fmt.Sprintf("$.features[%d].name", i), "required")
		}
		var name string
		if err := json.Unmarshal(nameRaw, &name); err != nil {
			return nil, errAt(origin, fmt.Sprintf("$.features[%d].name", i), "must be a string: %v", err)
		}
		raw, _ := json.Marshal(item)
		fp, err := decodeOneFeature(raw, origin, fmt.Sprintf("$.features[%d]", i), name)
		if err != nil {
			return nil, err
		}
		out = append(out, fp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func decodeOneFeature(raw json.RawMessage, origin, pointer, name string) (FeatureParagraph, error) {
	if name == "core" || name == "default" {
		return FeatureParagraph{}, errAt(origin, pointer, "%q is a reserved pseudo-feature name", name)
	}
	if !pkgid.IsFeatureName(name) {
		return FeatureParagraph{}, errAt(origin, pointer, "invalid feature name %q", name)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return FeatureParagraph{}, errAt(origin, pointer, "must be an object: %v", err)
	}

	fp := FeatureParagraph{Name: pkgid.FeatureName(name)}

	descRaw, ok := obj["description"]
	if !ok {
		return FeatureParagraph{}, errAt(origin, pointer+".description", "required")
	}
	fp.Description = decodeStringOrList(descRaw)
	if len(fp.Description) == 0 {
		return FeatureParagraph{}, errAt(origin, pointer+".description", "must not be empty")
	}

	deps, err := decodeDependencies(obj["dependencies"], origin, pointer+".dependencies")
	if err != nil {
		return FeatureParagraph{}, err
	}
	fp.Dependencies = deps

	if raw, ok := obj["supports"]; ok {
		expr, err := decodePlatformExpr(raw, origin, pointer+".supports")
		if err != nil {
			return FeatureParagraph{}, err
		}
		fp.Supports = expr
	}

	if raw, ok := obj["license"]; ok {
		lic, err := decodeLicense(raw, origin, pointer+".license")
		if err != nil {
			return FeatureParagraph{}, err
		}
		fp.License = lic
	}

	return fp, nil
}

func validateFeatureNameUniqueness(scf *SourceControlFile) error {
	seen := make(map[pkgid.FeatureName]bool, len(scf.Features))
	for _, f := range scf.Features {
		if seen[f.Name] {
			return fmt.Errorf("duplicate feature name %q", f.Name)
		}
		seen[f.Name] = true
	}
	return nil
}

func extractExtraFields(obj map[string]json.RawMessage) []ExtraField {
	var keys []string
	for k := range obj {
		if strings.HasPrefix(k, "$") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([]ExtraField, 0, len(keys))
	for _, k := range keys {
		out = append(out, ExtraField{Key: k, Value: obj[k]})
	}
	return out
}

// FeatureFlags gates presence of version-related fields by the enabled
// feature flags and default-registry kind, per §4.3's feature-flag table.
type FeatureFlags struct {
	VersionsEnabled          bool
	IsDefaultBuiltinRegistry bool
}

// ValidateFeatureFlags enforces §4.3's versions-flag rules: without the
// versions feature, version>=/overrides/builtin-baseline are all errors;
// with it enabled against the default builtin registry, version>= or
// overrides without a builtin-baseline are errors too.
func ValidateFeatureFlags(scf *SourceControlFile, flags FeatureFlags) error {
	hasConstraint := false
	for _, d := range scf.Core.Dependencies {
		if d.Constraint != nil {
			hasConstraint = true
		}
	}
	for _, f := range scf.Features {
		for _, d := range f.Dependencies {
			if d.Constraint != nil {
				hasConstraint = true
			}
		}
	}
	hasOverrides := len(scf.Core.Overrides) > 0
	hasBaseline := scf.Core.BuiltinBaseline != ""

	if !flags.VersionsEnabled {
		if hasConstraint || hasOverrides || hasBaseline {
			return fmt.Errorf("version>=, overrides, and builtin-baseline require the versions feature flag")
		}
		return nil
	}

	if flags.IsDefaultBuiltinRegistry && (hasConstraint || hasOverrides) && !hasBaseline {
		return fmt.Errorf("version>= or overrides require builtin-baseline when using the default builtin registry")
	}
	return nil
}
