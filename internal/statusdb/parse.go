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

package statusdb

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/cppkit/portman/internal/pkgid"
	"github.com/cppkit/portman/internal/pkgver"
)

// Parse decodes a status file: RFC822-style paragraphs separated by blank
// lines, each with Package, Feature (optional, "core" implied), Version,
// Triplet, Status ("install ok installed", "purge ok not-installed", ...),
// and Depends (comma-separated).
func Parse(raw []byte) ([]StatusParagraph, error) {
	var paragraphs []StatusParagraph
	fields := map[string]string{}

	flush := func() error {
		if len(fields) == 0 {
			return nil
		}
		p, err := decodeParagraph(fields)
		if err != nil {
			return err
		}
		paragraphs = append(paragraphs, p)
		fields = map[string]string{}
		return nil
	}

	scanner := bufio.NewScanner(strings.NewReader(string(raw)))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			return nil, fmt.Errorf("malformed status line: %q", line)
		}
		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		fields[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read status file: %w", err)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return paragraphs, nil
}

func decodeParagraph(fields map[string]string) (StatusParagraph, error) {
	name := fields["Package"]
	if name == "" {
		return StatusParagraph{}, fmt.Errorf("status paragraph missing Package field")
	}
	triplet := fields["Triplet"]
	if triplet == "" {
		return StatusParagraph{}, fmt.Errorf("status paragraph for %q missing Triplet field", name)
	}
	feature := pkgid.FeatureCore
	if f := fields["Feature"]; f != "" {
		feature = pkgid.FeatureName(f)
	}

	portVersion := 0
	if raw, ok := fields["Port-Version"]; ok {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return StatusParagraph{}, fmt.Errorf("status paragraph for %q: invalid Port-Version: %w", name, err)
		}
		portVersion = n
	}

	want, state, err := decodeStatus(fields["Status"])
	if err != nil {
		return StatusParagraph{}, fmt.Errorf("status paragraph for %q: %w", name, err)
	}

	var depends []pkgid.PackageName
	if raw := fields["Depends"]; raw != "" {
		for _, d := range strings.Split(raw, ",") {
			d = strings.TrimSpace(d)
			if d == "" {
				continue
			}
			depends = append(depends, pkgid.PackageName(d))
		}
	}

	var defaultSnapshot []pkgid.FeatureName
	if raw := fields["Default-Features"]; raw != "" {
		for _, f := range strings.Split(raw, ",") {
			f = strings.TrimSpace(f)
			if f == "" {
				continue
			}
			defaultSnapshot = append(defaultSnapshot, pkgid.FeatureName(f))
		}
	}

	return StatusParagraph{
		Spec: pkgid.FeatureSpec{
			Package: pkgid.PackageSpec{Name: pkgid.PackageName(name), Triplet: pkgid.Triplet(triplet)},
			Feature: feature,
		},
		Version:                 pkgver.Version{Text: fields["Version"], PortVersion: portVersion},
		Want:                    want,
		State:                   state,
		Depends:                 depends,
		DefaultFeaturesSnapshot: defaultSnapshot,
	}, nil
}

func decodeStatus(raw string) (WantState, InstallState, error) {
	parts := strings.Fields(raw)
	if len(parts) != 3 {
		return 0, 0, fmt.Errorf("invalid Status field %q: want \"<want> ok <state>\"", raw)
	}
	var want WantState
	switch parts[0] {
	case "install":
		want = WantInstall
	case "purge":
		want = WantPurge
	default:
		return 0, 0, fmt.Errorf("invalid Status want-state %q", parts[0])
	}
	var state InstallState
	switch parts[2] {
	case "not-installed":
		state = StateNotInstalled
	case "half-installed":
		state = StateHalfInstalled
	case "installed":
		state = StateInstalled
	default:
		return 0, 0, fmt.Errorf("invalid Status install-state %q", parts[2])
	}
	return want, state, nil
}
