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

package cmd

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/cppkit/portman/internal/policy"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func TestLoadPolicyConfigMissingFileUsesDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := loadPolicyConfig(discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.EffectiveUnsupportedPortAction(); got != policy.UnsupportedPortActionError {
		t.Errorf("EffectiveUnsupportedPortAction() = %q, want %q", got, policy.UnsupportedPortActionError)
	}
}

func TestLoadPolicyConfigReadsFile(t *testing.T) {
	dir := t.TempDir()
	contents := "version: 1\ndefault-triplet: x64-windows\n"
	if err := os.WriteFile(filepath.Join(dir, "portman.yaml"), []byte(contents), 0o600); err != nil {
		t.Fatal(err)
	}
	chdir(t, dir)

	cfg, err := loadPolicyConfig(discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DefaultTriplet != "x64-windows" {
		t.Errorf("DefaultTriplet = %q, want x64-windows", cfg.DefaultTriplet)
	}
}

func TestLoadProjectManifest(t *testing.T) {
	dir := t.TempDir()
	contents := `{"name": "demo", "version-string": "1.0", "dependencies": ["zlib"]}`
	if err := os.WriteFile(filepath.Join(dir, "vcpkg.json"), []byte(contents), 0o600); err != nil {
		t.Fatal(err)
	}
	chdir(t, dir)

	scf, err := loadProjectManifest()
	if err != nil {
		t.Fatal(err)
	}
	if scf.Core.Name != "demo" {
		t.Errorf("Core.Name = %q, want demo", scf.Core.Name)
	}
	if len(scf.Core.Dependencies) != 1 || scf.Core.Dependencies[0].Name != "zlib" {
		t.Errorf("Core.Dependencies = %v, want [zlib]", scf.Core.Dependencies)
	}
}

func TestLoadUserConfigMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := loadUserConfig(discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.CacheDir != "" {
		t.Errorf("CacheDir = %q, want empty", cfg.CacheDir)
	}
}

func TestLoadStatusDBMissingFileIsEmpty(t *testing.T) {
	chdir(t, t.TempDir())

	status, err := loadStatusDB()
	if err != nil {
		t.Fatal(err)
	}
	if got := status.AllInstalledPackages(); len(got) != 0 {
		t.Errorf("AllInstalledPackages() = %v, want empty", got)
	}
}

func TestResolveTriplet(t *testing.T) {
	tests := []struct {
		name string
		flag string
		cfg  *policy.Config
		want string
	}{
		{"explicit flag wins", "x64-osx", &policy.Config{DefaultTriplet: "x64-windows"}, "x64-osx"},
		{"config default when no flag", "", &policy.Config{DefaultTriplet: "x64-windows"}, "x64-windows"},
		{"host fallback when neither set", "", &policy.Config{}, string(hostTriplet())},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := resolveTriplet(tc.flag, tc.cfg)
			if string(got) != tc.want {
				t.Errorf("resolveTriplet(%q, ...) = %q, want %q", tc.flag, got, tc.want)
			}
		})
	}
}
