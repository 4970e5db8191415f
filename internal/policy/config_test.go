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

package policy

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "portman.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeTempConfig(t, "version: 1\n")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.EffectiveUnsupportedPortAction(); got != UnsupportedPortActionError {
		t.Errorf("EffectiveUnsupportedPortAction() = %q, want %q", got, UnsupportedPortActionError)
	}
}

func TestLoadConfigGitRegistry(t *testing.T) {
	path := writeTempConfig(t, `
version: 1
registries:
  - kind: git
    repository: https://example.com/registry.git
    reference: main
    baseline: deadbeefdeadbeefdeadbeefdeadbeefdeadbeef
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Registries) != 1 || cfg.Registries[0].Kind != RegistryKindGit {
		t.Errorf("Registries = %+v", cfg.Registries)
	}
}

func TestValidateRejectsGitRegistryWithoutBaseline(t *testing.T) {
	cfg := &Config{
		Version:    1,
		Registries: []RegistryConfig{{Kind: RegistryKindGit, Repository: "x"}},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for git registry missing baseline")
	}
}

func TestValidateRejectsUnknownUnsupportedPortAction(t *testing.T) {
	cfg := &Config{Version: 1, UnsupportedPortAction: "explode"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for invalid unsupported-port-action")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig() is invalid: %v", err)
	}
	if len(cfg.Registries) != 1 || cfg.Registries[0].Kind != RegistryKindBuiltin {
		t.Errorf("DefaultConfig().Registries = %+v", cfg.Registries)
	}
}
