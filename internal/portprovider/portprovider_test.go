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

package portprovider

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writePort(t *testing.T, root, name, contents string) {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "vcpkg.json"), []byte(contents), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestOverlayResolvesBeforeRegistry(t *testing.T) {
	overlayRoot := t.TempDir()
	writePort(t, overlayRoot, "fmt", `{"name":"fmt","version":"9.9.9"}`)

	p := New([]string{overlayRoot}, nil)
	result, err := p.Get(context.Background(), "fmt")
	if err != nil {
		t.Fatal(err)
	}
	if result.SCF.Core.Version.Text != "9.9.9" {
		t.Errorf("Version = %+v", result.SCF.Core.Version)
	}
}

func TestOverlayCollisionIsHardError(t *testing.T) {
	a := t.TempDir()
	b := t.TempDir()
	writePort(t, a, "fmt", `{"name":"fmt","version":"1.0.0"}`)
	writePort(t, b, "fmt", `{"name":"fmt","version":"2.0.0"}`)

	p := New([]string{a, b}, nil)
	if _, err := p.Get(context.Background(), "fmt"); err == nil {
		t.Error("expected an error for a package found in two overlays")
	}
}

func TestMissingPackageWithNoRegistry(t *testing.T) {
	p := New(nil, nil)
	if _, err := p.Get(context.Background(), "fmt"); err == nil {
		t.Error("expected an error when no overlay or registry can resolve the package")
	}
}

func TestCachesResolvedManifest(t *testing.T) {
	overlayRoot := t.TempDir()
	writePort(t, overlayRoot, "fmt", `{"name":"fmt","version":"9.9.9"}`)

	p := New([]string{overlayRoot}, nil)
	first, err := p.Get(context.Background(), "fmt")
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.Get(context.Background(), "fmt")
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("expected the cached pointer to be returned on the second Get")
	}
}
