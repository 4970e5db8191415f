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
	"testing"
)

const basicPort = `{
  "name": "fmtlib",
  "version": "9.1.0",
  "port-version": 1,
  "maintainers": ["vicroms"],
  "homepage": "https://github.com/fmtlib/fmt",
  "description": "Formatting library for C++",
  "license": "MIT",
  "dependencies": [
    "zlib",
    { "name": "vcpkg-cmake", "host": true },
    { "name": "openssl", "platform": "!windows", "features": ["zz", "aa"] }
  ],
  "features": {
    "header-only": {
      "description": "Use header-only mode"
    }
  }
}`

func mustParse(t *testing.T, raw string) *SourceControlFile {
	t.Helper()
	scf, err := ParsePortManifest([]byte(raw), "test")
	if err != nil {
		t.Fatalf("ParsePortManifest: %v", err)
	}
	return scf
}

func TestParseBasicPort(t *testing.T) {
	scf := mustParse(t, basicPort)
	if scf.Core.Name != "fmtlib" {
		t.Errorf("Name = %q", scf.Core.Name)
	}
	if scf.Core.Version.Text != "9.1.0" || scf.Core.Version.PortVersion != 1 {
		t.Errorf("Version = %+v", scf.Core.Version)
	}
	if len(scf.Core.Dependencies) != 3 {
		t.Fatalf("got %d dependencies, want 3", len(scf.Core.Dependencies))
	}
}

func TestCanonicalizeSortsDependencies(t *testing.T) {
	scf := mustParse(t, basicPort)
	Canonicalize(scf)

	deps := scf.Core.Dependencies
	for i := 1; i < len(deps); i++ {
		if deps[i-1].Name > deps[i].Name {
			t.Errorf("dependencies not sorted by name: %q before %q", deps[i-1].Name, deps[i].Name)
		}
	}

	for _, d := range deps {
		if d.Name == "openssl" {
			if len(d.Features) != 2 || d.Features[0] != "aa" || d.Features[1] != "zz" {
				t.Errorf("openssl features not sorted: %v", d.Features)
			}
		}
	}
}

func TestCanonicalizeIdempotent(t *testing.T) {
	scf := mustParse(t, basicPort)
	Canonicalize(scf)
	first, err := MarshalCanonical(scf)
	if err != nil {
		t.Fatal(err)
	}

	scf2, err := ParsePortManifest(first, "round-trip")
	if err != nil {
		t.Fatalf("re-parsing canonical output: %v", err)
	}
	Canonicalize(scf2)
	second, err := MarshalCanonical(scf2)
	if err != nil {
		t.Fatal(err)
	}

	var a, b map[string]any
	_ = json.Unmarshal(first, &a)
	_ = json.Unmarshal(second, &b)
	firstIndented, _ := json.MarshalIndent(a, "", "  ")
	secondIndented, _ := json.MarshalIndent(b, "", "  ")
	if string(firstIndented) != string(secondIndented) {
		t.Errorf("canonicalization is not idempotent:\nfirst:  %s\nsecond: %s", firstIndented, secondIndented)
	}
}

func TestVersionSchemeMutualExclusion(t *testing.T) {
	raw := `{"name": "x", "version": "1.0", "version-string": "rolling"}`
	if _, err := ParsePortManifest([]byte(raw), "test"); err == nil {
		t.Error("expected error for two version keys")
	}
}

func TestVersionStringRejectsHash(t *testing.T) {
	raw := `{"name": "x", "version-string": "abc#1"}`
	if _, err := ParsePortManifest([]byte(raw), "test"); err == nil {
		t.Error("expected error for '#' inside version-string text")
	}
}

func TestPortVersionAndHashMutuallyExclusive(t *testing.T) {
	raw := `{"name": "x", "version": "1.0#2", "port-version": 3}`
	if _, err := ParsePortManifest([]byte(raw), "test"); err == nil {
		t.Error("expected error for sibling port-version plus embedded '#N'")
	}
}

func TestReservedFeatureNameRejected(t *testing.T) {
	raw := `{"name": "x", "version": "1.0", "dependencies": [{"name": "y", "features": ["core"]}]}`
	if _, err := ParsePortManifest([]byte(raw), "test"); err == nil {
		t.Error("expected error for 'core' in a dependency feature list")
	}
}

func TestUnrecognizedDependencyKeySuggests(t *testing.T) {
	raw := `{"name": "x", "version": "1.0", "dependencies": [{"name": "y", "platfrom": "windows"}]}`
	_, err := ParsePortManifest([]byte(raw), "test")
	if err == nil {
		t.Fatal("expected error for unrecognized key")
	}
	if got := err.Error(); !contains(got, "platform") {
		t.Errorf("expected suggestion for 'platform', got %q", got)
	}
}

func TestProjectManifestAllowsMissingNameAndVersion(t *testing.T) {
	raw := `{"dependencies": ["fmt"]}`
	scf, err := ParseProjectManifest([]byte(raw), "test")
	if err != nil {
		t.Fatal(err)
	}
	if scf.Core.Scheme != "missing" {
		t.Errorf("Scheme = %q, want missing", scf.Core.Scheme)
	}
}

func TestPortManifestRequiresVersion(t *testing.T) {
	raw := `{"name": "x"}`
	if _, err := ParsePortManifest([]byte(raw), "test"); err == nil {
		t.Error("expected error for missing version in a port manifest")
	}
}

func TestExtraFieldsSortedOnCanonicalization(t *testing.T) {
	raw := `{"name": "x", "version": "1.0", "$zeta": 1, "$alpha": 2}`
	scf := mustParse(t, raw)
	Canonicalize(scf)
	if len(scf.Core.ExtraInfo) != 2 {
		t.Fatalf("got %d extra fields, want 2", len(scf.Core.ExtraInfo))
	}
	if scf.Core.ExtraInfo[0].Key != "$alpha" || scf.Core.ExtraInfo[1].Key != "$zeta" {
		t.Errorf("extra fields not sorted: %+v", scf.Core.ExtraInfo)
	}
}

func contains(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}
