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

// Package triplet decodes triplet variable files (HCL documents describing
// a target platform's toolchain characteristics) into the platform.Vars
// that gate dependency and feature platform expressions.
package triplet

import (
	"fmt"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/cppkit/portman/internal/platform"
	"github.com/cppkit/portman/internal/secureio"
)

// File is one decoded triplet variable file.
type File struct {
	Name string
	Vars platform.Vars
}

// Load reads and decodes a single triplet file at path. The triplet name
// is taken from the file's base name without its extension, e.g.
// "x64-linux.hcl" names triplet "x64-linux".
func Load(path string) (File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return File{}, err
	}
	raw, err := secureio.ReadFile(abs)
	if err != nil {
		return File{}, fmt.Errorf("read triplet file %s: %w", path, err)
	}

	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(raw, filepath.Base(path))
	if diags.HasErrors() {
		return File{}, fmt.Errorf("parse triplet file %s: %s", path, diags.Error())
	}

	values, diags := decodeAttributes(hclFile.Body)
	if diags.HasErrors() {
		return File{}, fmt.Errorf("evaluate triplet file %s: %s", path, diags.Error())
	}

	vars, err := toPlatformVars(values)
	if err != nil {
		return File{}, fmt.Errorf("triplet file %s: %w", path, err)
	}

	name := filepath.Base(path)
	name = name[:len(name)-len(filepath.Ext(name))]
	return File{Name: name, Vars: vars}, nil
}

// decodeAttributes evaluates every top-level attribute of an HCL body into
// a cty.Value map, with no variables or functions available to
// expressions: triplet files are flat key = literal documents.
func decodeAttributes(body hcl.Body) (map[string]cty.Value, hcl.Diagnostics) {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}
	values := make(map[string]cty.Value, len(attrs))
	for name, attr := range attrs {
		val, valDiags := attr.Expr.Value(nil)
		diags = append(diags, valDiags...)
		values[name] = val
	}
	return values, diags
}

func toPlatformVars(values map[string]cty.Value) (platform.Vars, error) {
	vars := platform.Vars{
		LibC: "glibc",
	}

	if v, ok := values["system_name"]; ok {
		s, err := stringValue("system_name", v)
		if err != nil {
			return vars, err
		}
		vars.CMakeSystemName = s
	}
	if v, ok := values["target_architecture"]; ok {
		s, err := stringValue("target_architecture", v)
		if err != nil {
			return vars, err
		}
		vars.TargetArchitecture = s
	}
	if v, ok := values["cxx11_abi"]; ok {
		b, err := boolValue("cxx11_abi", v)
		if err != nil {
			return vars, err
		}
		vars.Cxx11ABI = b
	}
	if v, ok := values["static_link"]; ok {
		b, err := boolValue("static_link", v)
		if err != nil {
			return vars, err
		}
		vars.StaticLink = b
	}
	if v, ok := values["libc"]; ok {
		s, err := stringValue("libc", v)
		if err != nil {
			return vars, err
		}
		vars.LibC = s
	}

	return vars, nil
}

func stringValue(key string, v cty.Value) (string, error) {
	if v.Type() != cty.String {
		return "", fmt.Errorf("%s must be a string", key)
	}
	return v.AsString(), nil
}

func boolValue(key string, v cty.Value) (bool, error) {
	if v.Type() != cty.Bool {
		return false, fmt.Errorf("%s must be a boolean", key)
	}
	return v.True(), nil
}
