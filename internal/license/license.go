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

// Package license parses and canonicalizes SPDX license expressions
// (AND/OR/WITH, "+", parentheses) with a recursive-descent parser: parseOr,
// parseAnd and parseUnit recurse into parenthesized groups, and only the
// license-with-exception step tracks a state value. The parser as a whole is
// not a state machine.
package license

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

var foldCaser = cases.Fold()

// knownLicenses and knownExceptions are frozen, sorted SPDX identifier
// tables in their official case. Lookup is case-insensitive binary search
// over the folded key.
var knownLicenses = buildTable([]string{
	"Apache-2.0", "BSD-2-Clause", "BSD-3-Clause", "BSL-1.0", "CC0-1.0",
	"GPL-2.0-only", "GPL-2.0-or-later", "GPL-3.0-only", "GPL-3.0-or-later",
	"ISC", "LGPL-2.1-only", "LGPL-2.1-or-later", "LGPL-3.0-only",
	"LGPL-3.0-or-later", "MIT", "MPL-2.0", "Unlicense", "Zlib",
})

var knownExceptions = buildTable([]string{
	"Classpath-exception-2.0", "GCC-exception-3.1", "LLVM-exception",
	"OpenSSL-exception",
})

type table struct {
	foldedKeys []string
	display    map[string]string
}

func buildTable(names []string) table {
	t := table{display: make(map[string]string, len(names))}
	for _, n := range names {
		folded := foldCaser.String(n)
		t.foldedKeys = append(t.foldedKeys, folded)
		t.display[folded] = n
	}
	sort.Strings(t.foldedKeys)
	return t
}

func (t table) lookup(name string) (display string, known bool) {
	folded := foldCaser.String(name)
	i := sort.SearchStrings(t.foldedKeys, folded)
	if i < len(t.foldedKeys) && t.foldedKeys[i] == folded {
		return t.display[folded], true
	}
	return name, false
}

// Node is a parsed SPDX expression node.
type Node interface {
	render() string
	isBinary() bool
}

// License is a single license identifier, optionally with a trailing "+"
// (meaning "this version or later") and an optional WITH exception.
type License struct {
	Name      string
	Exception string
	OrLater   bool
}

func (l License) render() string {
	s := l.Name
	if l.OrLater {
		s += "+"
	}
	if l.Exception != "" {
		s += " WITH " + l.Exception
	}
	return s
}
func (l License) isBinary() bool { return false }

// Op is the AND/OR combination of two expressions.
type Op struct {
	Kind  string // "AND" or "OR"
	Left  Node
	Right Node
}

func (o Op) render() string {
	l := o.Left.render()
	if o.Left.isBinary() {
		l = "(" + l + ")"
	}
	r := o.Right.render()
	if o.Right.isBinary() {
		r = "(" + r + ")"
	}
	return l + " " + o.Kind + " " + r
}
func (o Op) isBinary() bool { return true }

// Expr is a parsed, canonicalizable SPDX expression together with any
// unknown-identifier warnings collected while parsing.
type Expr struct {
	Root     Node
	Warnings []string
}

// state is the SPDX parser's state machine position.
type state int

const (
	expectExpression state = iota
	expectContinue
	expectException
)

type lexer struct {
	tokens []string
	pos    int
}

func tokenize(raw string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range raw {
		switch {
		case r == '(' || r == ')' || r == '+':
			flush()
			tokens = append(tokens, string(r))
		case r == ' ' || r == '\t' || r == '\n':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}

func (l *lexer) peek() string {
	if l.pos >= len(l.tokens) {
		return ""
	}
	return l.tokens[l.pos]
}

func (l *lexer) next() string {
	t := l.peek()
	l.pos++
	return t
}

// Parse parses an SPDX license expression string into an Expr.
func Parse(raw string) (Expr, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Expr{}, fmt.Errorf("empty license expression")
	}
	l := &lexer{tokens: tokenize(raw)}
	var warnings []string
	root, err := parseOr(l, &warnings)
	if err != nil {
		return Expr{}, err
	}
	if l.pos != len(l.tokens) {
		return Expr{}, fmt.Errorf("license expression %q: unbalanced parentheses or trailing tokens", raw)
	}
	return Expr{Root: root, Warnings: warnings}, nil
}

func parseOr(l *lexer, warnings *[]string) (Node, error) {
	left, err := parseAnd(l, warnings)
	if err != nil {
		return nil, err
	}
	for strings.EqualFold(l.peek(), "OR") {
		l.next()
		right, err := parseAnd(l, warnings)
		if err != nil {
			return nil, err
		}
		left = Op{Kind: "OR", Left: left, Right: right}
	}
	return left, nil
}

func parseAnd(l *lexer, warnings *[]string) (Node, error) {
	left, err := parseUnit(l, warnings)
	if err != nil {
		return nil, err
	}
	for strings.EqualFold(l.peek(), "AND") {
		l.next()
		right, err := parseUnit(l, warnings)
		if err != nil {
			return nil, err
		}
		left = Op{Kind: "AND", Left: left, Right: right}
	}
	return left, nil
}

func parseUnit(l *lexer, warnings *[]string) (Node, error) {
	tok := l.peek()
	if tok == "(" {
		l.next()
		inner, err := parseOr(l, warnings)
		if err != nil {
			return nil, err
		}
		if l.peek() != ")" {
			return nil, fmt.Errorf("expected ')' in license expression")
		}
		l.next()
		return inner, nil
	}
	return parseLicenseWithException(l, warnings)
}

func parseLicenseWithException(l *lexer, warnings *[]string) (Node, error) {
	st := expectExpression
	var lic License

	for {
		switch st {
		case expectExpression:
			name := l.next()
			if name == "" || name == ")" || strings.EqualFold(name, "AND") || strings.EqualFold(name, "OR") || strings.EqualFold(name, "WITH") {
				return nil, fmt.Errorf("expected license identifier, got %q", name)
			}
			display, known := knownLicenses.lookup(name)
			if !known {
				*warnings = append(*warnings, fmt.Sprintf("unknown license identifier %q", name))
				display = name
			}
			lic.Name = display
			st = expectContinue
		case expectContinue:
			if l.peek() == "+" {
				l.next()
				lic.OrLater = true
			}
			if strings.EqualFold(l.peek(), "WITH") {
				l.next()
				st = expectException
				continue
			}
			return lic, nil
		case expectException:
			name := l.next()
			if name == "" {
				return nil, fmt.Errorf("expected exception identifier after WITH")
			}
			display, known := knownExceptions.lookup(name)
			if !known {
				*warnings = append(*warnings, fmt.Sprintf("unknown license exception %q", name))
				display = name
			}
			lic.Exception = display
			return lic, nil
		}
	}
}

// Canonical re-serializes the expression: identifiers in table case,
// operators joined by a single space, and the outer parenthesis pair
// dropped when it wraps the whole expression (it never needs one, since
// render() only parenthesizes nested binary children).
func (e Expr) Canonical() string {
	return e.Root.render()
}

// ApplicableLicense is one top-level AND conjunct of an expression, as
// consumed by downstream SBOM generation.
type ApplicableLicense struct {
	Text       string
	NeedsParen bool
}

// ApplicableLicenses flattens the AND/OR tree: each top-level AND conjunct
// becomes one applicable license; OR subtrees are stringified as-is and
// flagged with NeedsParen.
func (e Expr) ApplicableLicenses() []ApplicableLicense {
	var conjuncts []Node
	flattenAnd(e.Root, &conjuncts)

	out := make([]ApplicableLicense, 0, len(conjuncts))
	for _, c := range conjuncts {
		if op, ok := c.(Op); ok && op.Kind == "OR" {
			out = append(out, ApplicableLicense{Text: op.render(), NeedsParen: true})
		} else {
			out = append(out, ApplicableLicense{Text: c.render(), NeedsParen: false})
		}
	}
	return out
}

func flattenAnd(n Node, out *[]Node) {
	if op, ok := n.(Op); ok && op.Kind == "AND" {
		flattenAnd(op.Left, out)
		flattenAnd(op.Right, out)
		return
	}
	*out = append(*out, n)
}
