// SPDX-License-Identifier: MPL-2.0

package srcrewrite

import (
	"bytes"
	"errors"
	"slices"
	"strings"

	"github.com/mpsplit/mpsplit/internal/diag"
	"github.com/mpsplit/mpsplit/internal/resolve"
	"github.com/mpsplit/mpsplit/pkg/types"
)

type (
	// discovery is the outcome of pass 1 over one module.
	discovery struct {
		bindings map[string]*ImportBinding
		// order lists binding names by declaration offset.
		order []string
		bare  []BareLoad
	}

	// loadSite is a syntactic load form found in the token stream, before
	// resolution.
	loadSite struct {
		name    string
		form    LoadForm
		literal token
	}
)

// discover runs pass 1: it registers every top-level binding whose load
// literal resolves into another subpackage, and every bare load statement
// of another subpackage at any depth.
func (r *Rewriter) discover(src []byte, toks []token, match []int, from types.FilesystemPath) *discovery {
	d := &discovery{bindings: make(map[string]*ImportBinding)}
	seen := make(map[string]int)

	var sites []loadSite
	for i, t := range toks {
		if t.kind != kindIdent || !statementStart(src, toks, match, i) {
			continue
		}
		switch t.text(src) {
		case "import":
			if t.depth != 0 {
				continue
			}
			if s, ok := matchNamespaceImport(src, toks, i); ok {
				sites = append(sites, s)
			}
		case "export", "const", "let", "var":
			if t.depth != 0 {
				continue
			}
			sites = append(sites, matchRequireDeclarators(src, toks, i)...)
		case "require":
			lit, span, ok := matchBareRequire(src, toks, i)
			if !ok {
				continue
			}
			target, ok := r.crossPackageTarget(src, lit, from)
			if !ok {
				continue
			}
			d.bare = append(d.bare, BareLoad{
				Literal: lit.text(src),
				Target:  target,
				Span:    span,
				Line:    lineOf(src, span.Start),
			})
		}
	}

	for _, s := range sites {
		seen[s.name]++
	}
	for _, s := range sites {
		// A name declared twice at top level is ambiguous; leave it alone.
		if seen[s.name] > 1 {
			continue
		}
		target, ok := r.crossPackageTarget(src, s.literal, from)
		if !ok {
			continue
		}
		raw := s.literal.text(src)
		d.bindings[s.name] = &ImportBinding{
			Name:      s.name,
			Form:      s.form,
			Literal:   raw,
			Specifier: unquote(raw),
			Target:    target,
			Line:      lineOf(src, s.literal.start),
		}
		d.order = append(d.order, s.name)
	}
	return d
}

// crossPackageTarget resolves a literal and reports whether it points into a
// subpackage other than the one owning from.
func (r *Rewriter) crossPackageTarget(src []byte, lit token, from types.FilesystemPath) (types.FilesystemPath, bool) {
	spec := unquote(lit.text(src))
	res, err := r.resolver.Resolve(from, spec)
	switch {
	case errors.Is(err, resolve.ErrBareSpecifier):
		return "", false
	case err != nil:
		r.logger.Debug("import left unchanged", "module", string(from), "import", spec, "error", err)
		r.sink.Add(diag.Warning(diag.CodeImportUnresolved, string(from), "%q does not resolve", spec).WithCause(err))
		return "", false
	}
	if !r.cls.IsCrossPackageReference(from, res.Path) {
		return "", false
	}
	return res.Path, true
}

// matchNamespaceImport matches `import * as X from '<lit>'` at toks[i].
func matchNamespaceImport(src []byte, toks []token, i int) (loadSite, bool) {
	if i+5 >= len(toks) {
		return loadSite{}, false
	}
	star, as, name, from, lit := toks[i+1], toks[i+2], toks[i+3], toks[i+4], toks[i+5]
	if !star.is(src, "*") || !as.is(src, "as") || name.kind != kindIdent || !from.is(src, "from") || !isPathLiteral(src, lit) {
		return loadSite{}, false
	}
	if !terminates(src, toks, i+6) {
		return loadSite{}, false
	}
	return loadSite{
		name:    name.text(src),
		form:    NamespaceImport{Statement: Span{Start: toks[i].start, End: lit.end}},
		literal: lit,
	}, true
}

// matchRequireDeclarators matches `[export] const|let|var X = require('<lit>')`
// at toks[i], continuing through comma-separated require declarators.
func matchRequireDeclarators(src []byte, toks []token, i int) []loadSite {
	j := i
	if toks[j].is(src, "export") {
		j++
	}
	if j >= len(toks) || !(toks[j].is(src, "const") || toks[j].is(src, "let") || toks[j].is(src, "var")) {
		return nil
	}
	j++

	var out []loadSite
	for j < len(toks) {
		name := toks[j]
		if name.kind != kindIdent {
			return out
		}
		j = skipTypeAnnotation(src, toks, j+1)
		if j+4 >= len(toks) {
			return out
		}
		eq, callee, open, lit, closing := toks[j], toks[j+1], toks[j+2], toks[j+3], toks[j+4]
		if !eq.is(src, "=") || !callee.is(src, "require") || !open.is(src, "(") || !isPathLiteral(src, lit) || !closing.is(src, ")") {
			return out
		}
		site := loadSite{
			name:    name.text(src),
			form:    RequireCall{Callee: Span{Start: callee.start, End: callee.end}},
			literal: lit,
		}
		k := j + 5
		if k < len(toks) && toks[k].is(src, ",") {
			out = append(out, site)
			j = k + 1
			continue
		}
		if terminates(src, toks, k) {
			out = append(out, site)
		}
		return out
	}
	return out
}

// matchBareRequire matches a `require('<lit>')` expression statement at
// toks[i], at any depth. The returned span includes the terminating semicolon.
func matchBareRequire(src []byte, toks []token, i int) (token, Span, bool) {
	if i+3 >= len(toks) {
		return token{}, Span{}, false
	}
	open, lit, closing := toks[i+1], toks[i+2], toks[i+3]
	if !open.is(src, "(") || !isPathLiteral(src, lit) || !closing.is(src, ")") {
		return token{}, Span{}, false
	}
	span := Span{Start: toks[i].start, End: closing.end}
	k := i + 4
	if k < len(toks) && toks[k].is(src, ";") {
		span.End = toks[k].end
		return lit, span, true
	}
	if !terminates(src, toks, k) {
		return token{}, Span{}, false
	}
	return lit, span, true
}

// skipTypeAnnotation skips a `: Type` annotation (and a definite assignment
// `!`) following a declarator name at toks[k-1], returning the index of the
// first token after it.
func skipTypeAnnotation(src []byte, toks []token, k int) int {
	if k < len(toks) && toks[k].is(src, "!") {
		k++
	}
	if k >= len(toks) || !toks[k].is(src, ":") {
		return k
	}
	depth := toks[k].depth
	for k++; k < len(toks); k++ {
		t := toks[k]
		if t.depth < depth {
			return k
		}
		if t.depth == depth && (t.is(src, "=") || t.is(src, ",") || t.is(src, ";")) {
			return k
		}
	}
	return k
}

// statementStart reports whether toks[i] begins a statement. match pairs
// brackets as returned by matchBrackets.
func statementStart(src []byte, toks []token, match []int, i int) bool {
	if i == 0 {
		return true
	}
	prev := toks[i-1]
	switch {
	case prev.is(src, ";") || prev.is(src, "}"):
		return true
	case prev.is(src, "{"):
		return opensBlock(src, toks, i-1)
	}
	if !toks[i].newline {
		return false
	}
	// Declarations never continue an expression.
	switch toks[i].text(src) {
	case "import", "export", "const", "let":
		return !prev.is(src, "export")
	}
	switch prev.kind {
	case kindPunct:
		switch {
		case prev.is(src, ")"):
			// The next line may be the body of an if/for/while.
			return !closesControlHeader(src, toks, match, i-1)
		case prev.is(src, "]"), prev.is(src, "++"), prev.is(src, "--"):
			return true
		}
		return false
	case kindIdent:
		// Bodies of else/do, and operands of keyword operators.
		switch prev.text(src) {
		case "else", "do", "return", "throw", "typeof", "void", "delete", "new", "in", "of", "instanceof", "await", "yield", "case", "extends", "export":
			return false
		}
		return true
	default:
		return true
	}
}

// closesControlHeader reports whether the ")" at toks[c] ends the header of
// a control statement.
func closesControlHeader(src []byte, toks []token, match []int, c int) bool {
	o := match[c]
	if o < 1 {
		return false
	}
	kw := toks[o-1]
	if kw.is(src, "await") && o >= 2 {
		kw = toks[o-2]
	}
	return kw.kind == kindIdent && slices.Contains(headerKeywords, kw.text(src))
}

// opensBlock reports whether the "{" at toks[o] opens a statement block
// rather than an object literal or a class body.
func opensBlock(src []byte, toks []token, o int) bool {
	if o == 0 {
		return true
	}
	p := toks[o-1]
	switch p.kind {
	case kindPunct:
		switch {
		case p.is(src, ")"), p.is(src, "=>"), p.is(src, ";"), p.is(src, "{"), p.is(src, "}"):
			return true
		}
		return false
	case kindIdent:
		switch p.text(src) {
		case "else", "try", "finally", "do":
			return true
		}
		return false
	default:
		return false
	}
}

// terminates reports whether the token at k ends the statement before it.
func terminates(src []byte, toks []token, k int) bool {
	if k >= len(toks) {
		return true
	}
	t := toks[k]
	if t.is(src, ";") || t.is(src, "}") {
		return true
	}
	if !t.newline {
		return false
	}
	switch t.kind {
	case kindIdent, kindString, kindNumber:
		return true
	case kindPunct:
		for _, s := range []string{"{", "++", "--", "!", "~", "@", "#"} {
			if t.is(src, s) {
				return true
			}
		}
	}
	return false
}

// isPathLiteral reports whether t is a string literal, or a template literal
// without substitutions.
func isPathLiteral(src []byte, t token) bool {
	switch t.kind {
	case kindString:
		return true
	case kindTemplate:
		return !bytes.Contains(src[t.start:t.end], []byte("${"))
	default:
		return false
	}
}

// unquote strips the quotes of a path literal and resolves simple escapes.
func unquote(raw string) string {
	if len(raw) < 2 {
		return raw
	}
	body := raw[1 : len(raw)-1]
	if !strings.Contains(body, `\`) {
		return body
	}
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		if body[i] == '\\' && i+1 < len(body) {
			i++
		}
		b.WriteByte(body[i])
	}
	return b.String()
}

func lineOf(src []byte, offset int) int {
	return 1 + bytes.Count(src[:offset], []byte("\n"))
}

// isReserved reports whether name cannot be used as a shorthand binding.
func isReserved(name string) bool {
	return slices.Contains(reservedWords, name)
}

var reservedWords = []string{
	"await", "break", "case", "catch", "class", "const", "continue", "debugger",
	"default", "delete", "do", "else", "enum", "export", "extends", "false",
	"finally", "for", "function", "if", "implements", "import", "in",
	"instanceof", "interface", "let", "new", "null", "package", "private",
	"protected", "public", "return", "static", "super", "switch", "this",
	"throw", "true", "try", "typeof", "var", "void", "while", "with", "yield",
}
