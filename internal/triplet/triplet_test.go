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

package triplet

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cppkit/portman/internal/pkgid"
)

const x64Linux = `
system_name         = "Linux"
target_architecture = "x64"
cxx11_abi           = true
static_link         = false
libc                = "glibc"
`

const arm64Windows = `
system_name         = "Windows"
target_architecture = "arm64"
static_link         = true
`

func writeTriplet(t *testing.T, dir, name, contents string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name+".hcl"), []byte(contents), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDecodesAllFields(t *testing.T) {
	dir := t.TempDir()
	writeTriplet(t, dir, "x64-linux", x64Linux)

	f, err := Load(filepath.Join(dir, "x64-linux.hcl"))
	if err != nil {
		t.Fatal(err)
	}
	if f.Name != "x64-linux" {
		t.Errorf("Name = %q", f.Name)
	}
	if f.Vars.CMakeSystemName != "Linux" || f.Vars.TargetArchitecture != "x64" {
		t.Errorf("Vars = %+v", f.Vars)
	}
	if !f.Vars.Cxx11ABI || f.Vars.StaticLink {
		t.Errorf("Vars = %+v", f.Vars)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeTriplet(t, dir, "arm64-windows", arm64Windows)

	f, err := Load(filepath.Join(dir, "arm64-windows.hcl"))
	if err != nil {
		t.Fatal(err)
	}
	if f.Vars.LibC != "glibc" {
		t.Errorf("default LibC = %q, want glibc", f.Vars.LibC)
	}
	if !f.Vars.StaticLink {
		t.Errorf("StaticLink = false, want true")
	}
}

func TestDepInfoVarProviderBatchLoad(t *testing.T) {
	dir := t.TempDir()
	writeTriplet(t, dir, "x64-linux", x64Linux)
	writeTriplet(t, dir, "arm64-windows", arm64Windows)

	p := NewDepInfoVarProvider([]string{dir})
	err := p.LoadDepInfoVars(context.Background(), []pkgid.Triplet{"x64-linux", "arm64-windows", "x64-linux"})
	if err != nil {
		t.Fatal(err)
	}

	linux, ok := p.GetDepInfoVars("x64-linux")
	if !ok || linux.TargetArchitecture != "x64" {
		t.Errorf("GetDepInfoVars(x64-linux) = %+v, ok=%v", linux, ok)
	}
	win, ok := p.GetDepInfoVars("arm64-windows")
	if !ok || win.CMakeSystemName != "Windows" {
		t.Errorf("GetDepInfoVars(arm64-windows) = %+v, ok=%v", win, ok)
	}
}

func TestDepInfoVarProviderMissingTriplet(t *testing.T) {
	p := NewDepInfoVarProvider([]string{t.TempDir()})
	err := p.LoadDepInfoVars(context.Background(), []pkgid.Triplet{"does-not-exist"})
	if err == nil {
		t.Error("expected an error for an unresolvable triplet")
	}
	if _, ok := p.GetDepInfoVars("does-not-exist"); ok {
		t.Error("GetDepInfoVars should report unresolved triplets as absent")
	}
}
