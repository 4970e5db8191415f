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

// Package pkgver implements the four port-version schemes (String, Relaxed,
// Semver, Date) plus the shared "#N" port-version suffix, and the ordering
// rules each scheme defines.
package pkgver

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Scheme selects how a Version's text is ordered.
type Scheme string

// The four version schemes plus Missing, legal only on project manifests.
const (
	SchemeString  Scheme = "string"
	SchemeRelaxed Scheme = "relaxed"
	SchemeSemver  Scheme = "semver"
	SchemeDate    Scheme = "date"
	SchemeMissing Scheme = "missing"
)

// maxRelaxedComponent caps a single Relaxed component, matching the
// 32-bit signed range used by the reference implementation.
const maxRelaxedComponent = 1<<31 - 1

// Version is a (text, port_version) pair. PortVersion defaults to 0.
type Version struct {
	Text        string
	PortVersion int
}

// String renders "text" or "text#N" when PortVersion is nonzero.
func (v Version) String() string {
	if v.PortVersion == 0 {
		return v.Text
	}
	return fmt.Sprintf("%s#%d", v.Text, v.PortVersion)
}

// Ordering is the result of comparing two versions.
type Ordering int

// Ordering values.
const (
	Less Ordering = iota - 1
	Equal
	Greater
)

// ParseLoose splits "text#N" into a Version without validating the text
// against any scheme. It is used for "version>=" constraint text, whose
// scheme is only known once the constrained package's own manifest is
// resolved.
func ParseLoose(raw string) (Version, error) {
	text := raw
	portVersion := 0
	if idx := strings.IndexByte(raw, '#'); idx >= 0 {
		if strings.IndexByte(raw[idx+1:], '#') >= 0 {
			return Version{}, fmt.Errorf("invalid version %q: multiple '#' separators", raw)
		}
		text = raw[:idx]
		n, err := strconv.Atoi(raw[idx+1:])
		if err != nil {
			return Version{}, fmt.Errorf("invalid version %q: bad port-version suffix: %w", raw, err)
		}
		if n < 0 {
			return Version{}, fmt.Errorf("invalid version %q: negative port-version", raw)
		}
		portVersion = n
	}
	if text == "" {
		return Version{}, fmt.Errorf("invalid version %q: empty text", raw)
	}
	return Version{Text: text, PortVersion: portVersion}, nil
}

// Parse splits "text#N" into a Version, validating the scheme along the way.
// A bare port-version suffix of "#N" with N < 0 or more than one "#" fails.
func Parse(raw string, scheme Scheme) (Version, error) {
	text := raw
	portVersion := 0

	if idx := strings.IndexByte(raw, '#'); idx >= 0 {
		if strings.IndexByte(raw[idx+1:], '#') >= 0 {
			return Version{}, fmt.Errorf("invalid version %q: multiple '#' separators", raw)
		}
		text = raw[:idx]
		n, err := strconv.Atoi(raw[idx+1:])
		if err != nil {
			return Version{}, fmt.Errorf("invalid version %q: bad port-version suffix: %w", raw, err)
		}
		if n < 0 {
			return Version{}, fmt.Errorf("invalid version %q: negative port-version", raw)
		}
		portVersion = n
	}

	if err := validateText(text, scheme); err != nil {
		return Version{}, err
	}

	return Version{Text: text, PortVersion: portVersion}, nil
}

func validateText(text string, scheme Scheme) error {
	switch scheme {
	case SchemeString:
		if text == "" {
			return fmt.Errorf("string-scheme version must be nonempty")
		}
		return nil
	case SchemeRelaxed:
		_, err := parseRelaxed(text)
		return err
	case SchemeSemver:
		_, err := semver.StrictNewVersion(text)
		if err != nil {
			return fmt.Errorf("invalid semver version %q: %w", text, err)
		}
		return nil
	case SchemeDate:
		return validateDate(text)
	case SchemeMissing:
		if text != "" {
			return fmt.Errorf("missing-scheme version must have empty text, got %q", text)
		}
		return nil
	default:
		return fmt.Errorf("unknown version scheme %q", scheme)
	}
}

// parseRelaxed splits a Relaxed-scheme text into validated integer runs.
func parseRelaxed(text string) ([]int64, error) {
	if text == "" {
		return nil, fmt.Errorf("relaxed-scheme version must be nonempty")
	}
	parts := strings.Split(text, ".")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("invalid relaxed version %q: empty component", text)
		}
		if len(p) > 1 && p[0] == '0' {
			return nil, fmt.Errorf("invalid relaxed version %q: leading zero in component %q", text, p)
		}
		for _, c := range p {
			if c < '0' || c > '9' {
				return nil, fmt.Errorf("invalid relaxed version %q: non-digit component %q", text, p)
			}
		}
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil || n > maxRelaxedComponent {
			return nil, fmt.Errorf("invalid relaxed version %q: component %q out of range", text, p)
		}
		out = append(out, n)
	}
	return out, nil
}

var dateRE = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}(\.\d+)*$`)

func validateDate(text string) error {
	if !dateRE.MatchString(text) {
		return fmt.Errorf("invalid date version %q: must match YYYY-MM-DD[.N.N...]", text)
	}
	return nil
}

// Compare orders a and b under the given scheme, falling back to numeric
// PortVersion comparison when the text portions are equal. Both versions are
// read under the one scheme passed in; Compare panics only when that scheme
// is unknown and the two texts differ.
func Compare(a, b Version, scheme Scheme) Ordering {
	textOrd := compareText(a.Text, b.Text, scheme)
	if textOrd != Equal {
		return textOrd
	}
	switch {
	case a.PortVersion < b.PortVersion:
		return Less
	case a.PortVersion > b.PortVersion:
		return Greater
	default:
		return Equal
	}
}

func compareText(a, b string, scheme Scheme) Ordering {
	if a == b {
		return Equal
	}
	switch scheme {
	case SchemeString, SchemeMissing:
		// Opaque equality only; no ordering beyond equal/not-equal, but the
		// planner still needs a deterministic answer for "not equal", so we
		// report Less/Greater using byte order without claiming semantic meaning.
		if a < b {
			return Less
		}
		return Greater
	case SchemeRelaxed:
		return compareRelaxed(a, b)
	case SchemeSemver:
		return compareSemver(a, b)
	case SchemeDate:
		return compareDate(a, b)
	default:
		panic(fmt.Sprintf("pkgver: unknown scheme %q in Compare", scheme))
	}
}

func compareRelaxed(a, b string) Ordering {
	pa, errA := parseRelaxed(a)
	pb, errB := parseRelaxed(b)
	if errA != nil || errB != nil {
		// Unparsable text under Relaxed is a caller bug surfaced earlier at
		// Parse time; treat defensively as opaque equality-only comparison.
		if a == b {
			return Equal
		}
		if a < b {
			return Less
		}
		return Greater
	}
	n := len(pa)
	if len(pb) > n {
		n = len(pb)
	}
	for i := 0; i < n; i++ {
		var x, y int64
		if i < len(pa) {
			x = pa[i]
		}
		if i < len(pb) {
			y = pb[i]
		}
		if x != y {
			if x < y {
				return Less
			}
			return Greater
		}
	}
	return Equal
}

func compareSemver(a, b string) Ordering {
	va, errA := semver.StrictNewVersion(a)
	vb, errB := semver.StrictNewVersion(b)
	if errA != nil || errB != nil {
		if a == b {
			return Equal
		}
		if a < b {
			return Less
		}
		return Greater
	}
	switch va.Compare(vb) {
	case -1:
		return Less
	case 1:
		return Greater
	default:
		return Equal
	}
}

func compareDate(a, b string) Ordering {
	da, ta := splitDate(a)
	db, tb := splitDate(b)
	if da != db {
		if da < db {
			return Less
		}
		return Greater
	}
	return compareRelaxed(orEmpty(ta), orEmpty(tb))
}

func splitDate(text string) (date string, tail string) {
	if idx := strings.IndexByte(text, '.'); idx >= 0 {
		return text[:idx], text[idx+1:]
	}
	return text, ""
}

func orEmpty(tail string) string {
	if tail == "" {
		return "0"
	}
	return tail
}

// IsPrerelease reports whether a Semver-scheme version text carries a
// pre-release component.
func IsPrerelease(text string) bool {
	v, err := semver.StrictNewVersion(text)
	if err != nil {
		return false
	}
	return v.Prerelease() != ""
}
