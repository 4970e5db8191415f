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

package registryset

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cppkit/portman/internal/pkgid"
	"github.com/cppkit/portman/internal/policy"
)

func TestParseVersionDB(t *testing.T) {
	raw := []byte(`{"versions":[
		{"version":"2.0.0","port-version":0,"git-tree":"aaaa"},
		{"version":"1.0.0","port-version":1,"git-tree":"bbbb"}
	]}`)
	db, err := ParseVersionDB(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(db.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(db.Entries))
	}
	if db.Entries[0].GitTree != "aaaa" || db.Entries[1].Version.PortVersion != 1 {
		t.Errorf("entries = %+v", db.Entries)
	}
}

func TestParseVersionDBRejectsMissingGitTree(t *testing.T) {
	raw := []byte(`{"versions":[{"version":"1.0.0"}]}`)
	if _, err := ParseVersionDB(raw); err == nil {
		t.Error("expected error for missing git-tree")
	}
}

func TestParseBaseline(t *testing.T) {
	raw := []byte(`{"default":{"fmt":{"baseline":"9.1.0","port-version":2}}}`)
	baseline, err := ParseBaseline(raw)
	if err != nil {
		t.Fatal(err)
	}
	entry, ok := baseline["fmt"]
	if !ok || entry.Version.Text != "9.1.0" || entry.Version.PortVersion != 2 {
		t.Errorf("baseline[fmt] = %+v, ok=%v", entry, ok)
	}
}

func TestRegistryForScoping(t *testing.T) {
	rs := NewRegistrySet([]policy.RegistryConfig{
		{Kind: policy.RegistryKindFilesystem, Path: "/scoped", Packages: []string{"internal-widgets"}},
		{Kind: policy.RegistryKindBuiltin},
	}, nil)

	r, err := rs.RegistryFor("internal-widgets")
	if err != nil {
		t.Fatal(err)
	}
	if r.Config.Kind != policy.RegistryKindFilesystem {
		t.Errorf("expected the scoped filesystem registry, got %+v", r.Config)
	}

	r2, err := rs.RegistryFor("fmt")
	if err != nil {
		t.Fatal(err)
	}
	if r2.Config.Kind != policy.RegistryKindBuiltin {
		t.Errorf("expected fallback to the builtin registry, got %+v", r2.Config)
	}
}

func TestFilesystemRegistryBaseline(t *testing.T) {
	root := t.TempDir()
	versionsDir := filepath.Join(root, "versions")
	if err := os.MkdirAll(versionsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	baselineJSON := `{"default":{"fmt":{"baseline":"9.1.0","port-version":0}}}`
	if err := os.WriteFile(filepath.Join(versionsDir, "baseline.json"), []byte(baselineJSON), 0o600); err != nil {
		t.Fatal(err)
	}

	rs := NewRegistrySet([]policy.RegistryConfig{
		{Kind: policy.RegistryKindFilesystem, Path: root},
	}, nil)

	entry, err := rs.BaselineFor(context.Background(), pkgid.PackageName("fmt"))
	if err != nil {
		t.Fatal(err)
	}
	if entry.Version.Text != "9.1.0" {
		t.Errorf("Version = %+v", entry.Version)
	}
}

func TestFilesystemRegistryEndToEndResolution(t *testing.T) {
	root := t.TempDir()
	versionsDir := filepath.Join(root, "versions", "f-")
	if err := os.MkdirAll(versionsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, "versions"), 0o755); err != nil {
		t.Fatal(err)
	}
	baselineJSON := `{"default":{"fmt":{"baseline":"9.1.0","port-version":0}}}`
	if err := os.WriteFile(filepath.Join(root, "versions", "baseline.json"), []byte(baselineJSON), 0o600); err != nil {
		t.Fatal(err)
	}
	versionDBJSON := `{"versions":[
		{"version":"9.1.0","port-version":0,"path":"$/ports/fmt"},
		{"version":"9.0.0","port-version":0,"path":"$/ports/fmt-9.0.0"}
	]}`
	if err := os.WriteFile(filepath.Join(versionsDir, "fmt.json"), []byte(versionDBJSON), 0o600); err != nil {
		t.Fatal(err)
	}

	rs := NewRegistrySet([]policy.RegistryConfig{
		{Kind: policy.RegistryKindFilesystem, Path: root},
	}, nil)

	ctx := context.Background()
	baseline, err := rs.BaselineFor(ctx, pkgid.PackageName("fmt"))
	if err != nil {
		t.Fatal(err)
	}

	entry, err := rs.GetPortEntry(ctx, pkgid.PackageName("fmt"), baseline.Version)
	if err != nil {
		t.Fatal(err)
	}
	wantDir := filepath.Join(root, "ports", "fmt")
	if entry.Locator.FilesystemPath != wantDir {
		t.Errorf("Locator.FilesystemPath = %q, want %q", entry.Locator.FilesystemPath, wantDir)
	}
}

func TestSemverCompare(t *testing.T) {
	if semverCompare("1.2.0", "1.10.0") >= 0 {
		t.Error("expected 1.2.0 < 1.10.0 under semver ordering")
	}
}
