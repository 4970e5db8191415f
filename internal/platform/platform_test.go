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

package platform

import "testing"

func TestEmptyIsAlwaysTrue(t *testing.T) {
	e, err := Parse("", Permissive)
	if err != nil {
		t.Fatal(err)
	}
	if !e.IsEmpty() {
		t.Error("expected IsEmpty() on empty expression")
	}
	if !e.Evaluate(Vars{}) {
		t.Error("empty expression should always evaluate true")
	}
}

func TestBasicEvaluate(t *testing.T) {
	e, err := Parse("windows & !arm", Permissive)
	if err != nil {
		t.Fatal(err)
	}
	if !e.Evaluate(Vars{CMakeSystemName: "Windows", TargetArchitecture: "x64"}) {
		t.Error("expected true for windows x64")
	}
	if e.Evaluate(Vars{CMakeSystemName: "Windows", TargetArchitecture: "arm64"}) {
		t.Error("expected false for windows arm64")
	}
}

func TestOrAndPrecedence(t *testing.T) {
	e, err := Parse("linux | windows & x64", Permissive)
	if err != nil {
		t.Fatal(err)
	}
	// linux | (windows & x64)
	if !e.Evaluate(Vars{CMakeSystemName: "Linux", TargetArchitecture: "arm64"}) {
		t.Error("linux alone should satisfy the expression")
	}
	if e.Evaluate(Vars{CMakeSystemName: "Darwin", TargetArchitecture: "x64"}) {
		t.Error("osx x64 should not satisfy the expression")
	}
}

func TestParens(t *testing.T) {
	e, err := Parse("!(windows | osx)", Permissive)
	if err != nil {
		t.Fatal(err)
	}
	if e.Evaluate(Vars{CMakeSystemName: "Windows"}) {
		t.Error("expected false under windows")
	}
	if !e.Evaluate(Vars{CMakeSystemName: "Linux"}) {
		t.Error("expected true under linux")
	}
}

func TestStrictModeRejectsChains(t *testing.T) {
	if _, err := Parse("a & b & c", Strict); err == nil {
		t.Error("expected strict mode to reject unparenthesized 3-way chain")
	}
	if _, err := Parse("(a & b) & c", Strict); err != nil {
		t.Errorf("parenthesized chain should be accepted: %v", err)
	}
}

func TestUnknownIdentifierIsFalse(t *testing.T) {
	e, err := Parse("totally-unknown-flag", Permissive)
	if err != nil {
		t.Fatal(err)
	}
	if e.Evaluate(Vars{}) {
		t.Error("unrecognized identifiers should evaluate false")
	}
}

func TestUnbalancedParens(t *testing.T) {
	if _, err := Parse("(windows", Permissive); err == nil {
		t.Error("expected error for unbalanced parens")
	}
}
