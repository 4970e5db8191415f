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

package pkgver

import "testing"

func TestParsePortVersionSuffix(t *testing.T) {
	v, err := Parse("1.2.3#4", SchemeRelaxed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Text != "1.2.3" || v.PortVersion != 4 {
		t.Errorf("got %+v, want text=1.2.3 port=4", v)
	}

	if _, err := Parse("1.2.3#-1", SchemeRelaxed); err == nil {
		t.Error("expected error for negative port-version")
	}
	if _, err := Parse("1.2.3#1#2", SchemeRelaxed); err == nil {
		t.Error("expected error for multiple '#' separators")
	}
}

func TestRelaxedRejectsLeadingZero(t *testing.T) {
	if _, err := Parse("1.02.3", SchemeRelaxed); err == nil {
		t.Error("expected error for leading zero component")
	}
	if _, err := Parse("1.0.3", SchemeRelaxed); err != nil {
		t.Errorf("single zero component should be legal: %v", err)
	}
}

func TestCompareRelaxedTrailingZeros(t *testing.T) {
	a, _ := Parse("1.2", SchemeRelaxed)
	b, _ := Parse("1.2.0", SchemeRelaxed)
	if got := Compare(a, b, SchemeRelaxed); got != Equal {
		t.Errorf("Compare(1.2, 1.2.0) = %v, want Equal", got)
	}
}

func TestCompareSemverPrerelease(t *testing.T) {
	a, err := Parse("1.0.0-alpha", SchemeSemver)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Parse("1.0.0", SchemeSemver)
	if err != nil {
		t.Fatal(err)
	}
	if got := Compare(a, b, SchemeSemver); got != Less {
		t.Errorf("Compare(1.0.0-alpha, 1.0.0) = %v, want Less", got)
	}
}

func TestCompareDate(t *testing.T) {
	a, err := Parse("2023-01-01.1", SchemeDate)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Parse("2023-01-01.2", SchemeDate)
	if err != nil {
		t.Fatal(err)
	}
	if got := Compare(a, b, SchemeDate); got != Less {
		t.Errorf("Compare(...1, ...2) = %v, want Less", got)
	}

	c, err := Parse("2023-02-01", SchemeDate)
	if err != nil {
		t.Fatal(err)
	}
	if got := Compare(b, c, SchemeDate); got != Less {
		t.Errorf("Compare(jan, feb) = %v, want Less", got)
	}
}

func TestComparePortVersionTiebreak(t *testing.T) {
	a := Version{Text: "1.0.0", PortVersion: 0}
	b := Version{Text: "1.0.0", PortVersion: 1}
	if got := Compare(a, b, SchemeRelaxed); got != Less {
		t.Errorf("Compare(port0, port1) = %v, want Less", got)
	}
}

func TestInvalidDate(t *testing.T) {
	if _, err := Parse("2023-1-1", SchemeDate); err == nil {
		t.Error("expected error for non-padded date")
	}
}

func TestVersionString(t *testing.T) {
	v := Version{Text: "1.2.3", PortVersion: 0}
	if v.String() != "1.2.3" {
		t.Errorf("got %q, want 1.2.3", v.String())
	}
	v.PortVersion = 2
	if v.String() != "1.2.3#2" {
		t.Errorf("got %q, want 1.2.3#2", v.String())
	}
}
