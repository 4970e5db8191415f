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

// Package platform parses and evaluates the boolean platform-expression
// grammar that gates dependencies and feature/port support:
//
//	expr   = term ('|' term)*
//	term   = factor ('&' factor)*
//	factor = '!' factor | '(' expr ')' | identifier
//
// This is a small hand-rolled recursive-descent parser rather than a
// grammar-driven one: the grammar is three productions deep and a
// parser-generator or general expression library (e.g. the project's HCL
// dependency) would add a dependency and an AST model disproportionate to
// the problem, with no corresponding win in correctness or readability.
package platform

import (
	"fmt"
	"strings"
)

// Vars is the variable map platform expressions evaluate against.
type Vars struct {
	CMakeSystemName    string
	TargetArchitecture string
	Cxx11ABI           bool
	StaticLink         bool
	LibC               string
}

// Mode controls how strictly the parser accepts ambiguous operator chains.
type Mode int

// Parser modes.
const (
	// Strict rejects a chain of more than two operands joined by the same
	// operator without parentheses, e.g. "a & b & c" must be written
	// "(a & b) & c". In both modes "&" binds tighter than "|", so
	// "a & b | c" parses as "(a & b) | c".
	Strict Mode = iota
	// Permissive accepts chains of any length.
	Permissive
)

// Expr is a parsed platform expression.
type Expr struct {
	node node
	raw  string
}

// IsEmpty reports whether the expression is the always-true sentinel (the
// empty string, meaning "supports everything").
func (e Expr) IsEmpty() bool {
	return e.raw == ""
}

// String returns the original source text the expression was parsed from.
func (e Expr) String() string {
	return e.raw
}

// Always is the always-true sentinel expression.
var Always = Expr{node: boolLit{true}, raw: ""}

// Parse parses a platform expression under the given mode. An empty string
// parses to the always-true sentinel.
func Parse(raw string, mode Mode) (Expr, error) {
	if strings.TrimSpace(raw) == "" {
		return Always, nil
	}
	p := &parser{input: raw, mode: mode}
	n, err := p.parseExpr()
	if err != nil {
		return Expr{}, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return Expr{}, p.errorf("unexpected trailing input")
	}
	return Expr{node: n, raw: raw}, nil
}

// Evaluate reports whether the expression holds for the given variables.
func (e Expr) Evaluate(vars Vars) bool {
	if e.node == nil {
		return true
	}
	return e.node.eval(vars)
}

// node is the parsed-expression AST.
type node interface {
	eval(Vars) bool
}

type boolLit struct{ v bool }

func (n boolLit) eval(Vars) bool { return n.v }

type notNode struct{ inner node }

func (n notNode) eval(v Vars) bool { return !n.inner.eval(v) }

type andNode struct{ terms []node }

func (n andNode) eval(v Vars) bool {
	for _, t := range n.terms {
		if !t.eval(v) {
			return false
		}
	}
	return true
}

type orNode struct{ terms []node }

func (n orNode) eval(v Vars) bool {
	for _, t := range n.terms {
		if t.eval(v) {
			return true
		}
	}
	return false
}

type identNode struct{ name string }

func (n identNode) eval(v Vars) bool {
	pred, ok := predicates[n.name]
	if !ok {
		// Unrecognized identifiers evaluate false rather than failing at
		// evaluation time; Parse already validated the grammar, and the
		// predicate table is the single place new platform names are added.
		return false
	}
	return pred(v)
}

// predicates is the fixed rule table mapping identifiers to variable checks.
var predicates = map[string]func(Vars) bool{
	"windows": func(v Vars) bool {
		switch v.CMakeSystemName {
		case "", "Windows", "WindowsStore", "MinGW":
			return true
		default:
			return false
		}
	},
	"linux": func(v Vars) bool { return v.CMakeSystemName == "Linux" },
	"osx":   func(v Vars) bool { return v.CMakeSystemName == "Darwin" },
	"uwp":   func(v Vars) bool { return v.CMakeSystemName == "WindowsStore" },
	"mingw": func(v Vars) bool { return v.CMakeSystemName == "MinGW" },
	"android": func(v Vars) bool {
		return v.CMakeSystemName == "Android"
	},
	"emscripten": func(v Vars) bool { return v.CMakeSystemName == "Emscripten" },
	"ios":        func(v Vars) bool { return v.CMakeSystemName == "iOS" },
	"arm": func(v Vars) bool {
		switch v.TargetArchitecture {
		case "arm", "arm64", "arm64ec":
			return true
		default:
			return false
		}
	},
	"arm64": func(v Vars) bool { return v.TargetArchitecture == "arm64" || v.TargetArchitecture == "arm64ec" },
	"x86":   func(v Vars) bool { return v.TargetArchitecture == "x86" },
	"x64":   func(v Vars) bool { return v.TargetArchitecture == "x64" },
	"wasm32": func(v Vars) bool {
		return v.TargetArchitecture == "wasm32"
	},
	"static": func(v Vars) bool { return v.StaticLink },
	"static-link": func(v Vars) bool {
		return v.StaticLink
	},
	"glibc": func(v Vars) bool { return v.LibC == "" || v.LibC == "glibc" },
	"musl":  func(v Vars) bool { return v.LibC == "musl" },
}

type parser struct {
	input string
	pos   int
	mode  Mode
}

func (p *parser) errorf(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return fmt.Errorf("platform expression %q: %s at position %d", p.input, msg, p.pos)
}

func (p *parser) skipSpace() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}

func (p *parser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *parser) parseExpr() (node, error) {
	first, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	terms := []node{first}
	for p.peek() == '|' {
		p.pos++
		next, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		terms = append(terms, next)
	}
	if len(terms) == 1 {
		return terms[0], nil
	}
	if p.mode == Strict && len(terms) > 2 {
		return nil, p.errorf("strict mode requires parentheses to chain more than two '|' operands")
	}
	return orNode{terms: terms}, nil
}

func (p *parser) parseTerm() (node, error) {
	first, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	factors := []node{first}
	for p.peek() == '&' {
		p.pos++
		next, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		factors = append(factors, next)
	}
	if len(factors) == 1 {
		return factors[0], nil
	}
	if p.mode == Strict && len(factors) > 2 {
		return nil, p.errorf("strict mode requires parentheses to chain more than two '&' operands")
	}
	return andNode{terms: factors}, nil
}

func (p *parser) parseFactor() (node, error) {
	switch p.peek() {
	case 0:
		return nil, p.errorf("expected expression, got end of input")
	case '!':
		p.pos++
		inner, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return notNode{inner: inner}, nil
	case '(':
		p.pos++
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.peek() != ')' {
			return nil, p.errorf("expected ')'")
		}
		p.pos++
		return inner, nil
	default:
		return p.parseIdent()
	}
}

func (p *parser) parseIdent() (node, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' || c == '_' {
			p.pos++
			continue
		}
		break
	}
	if p.pos == start {
		return nil, p.errorf("expected identifier")
	}
	return identNode{name: p.input[start:p.pos]}, nil
}
