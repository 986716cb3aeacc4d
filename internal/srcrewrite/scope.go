// SPDX-License-Identifier: MPL-2.0

package srcrewrite

import (
	"slices"
)

// Keywords whose parenthesized header is followed by a body, not a parameter list.
var headerKeywords = []string{"if", "for", "while", "with", "switch"}

// matchBrackets pairs every bracket token with its counterpart. Unpaired
// brackets and other tokens map to -1.
func matchBrackets(src []byte, toks []token) []int {
	match := make([]int, len(toks))
	var stack []int
	for i, t := range toks {
		match[i] = -1
		if t.kind != kindPunct || t.end-t.start != 1 {
			continue
		}
		switch src[t.start] {
		case '(', '[', '{':
			stack = append(stack, i)
		case ')', ']', '}':
			if len(stack) == 0 {
				continue
			}
			o := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			match[o], match[i] = i, o
		}
	}
	return match
}

// enclosingOpener returns the index of the bracket that contains toks[i],
// or -1 at top level.
func enclosingOpener(toks []token, i int) int {
	d := toks[i].depth
	for k := i - 1; k >= 0; k-- {
		if toks[k].depth < d {
			return k
		}
	}
	return -1
}

// isFunctionBody reports whether the "{" at toks[o] opens a function body.
func isFunctionBody(src []byte, toks []token, match []int, o int) bool {
	if o == 0 {
		return false
	}
	p := toks[o-1]
	if p.is(src, "=>") {
		return true
	}
	if !p.is(src, ")") || match[o-1] < 1 {
		return false
	}
	kw := toks[match[o-1]-1]
	return !(kw.kind == kindIdent && (slices.Contains(headerKeywords, kw.text(src)) || kw.is(src, "catch")))
}

// shadowScopes returns, per binding name, the byte ranges in which a
// parameter or nested declaration rebinds that name.
func shadowScopes(src []byte, toks []token, match []int, bindings map[string]*ImportBinding) map[string][]Span {
	out := make(map[string][]Span)
	add := func(name string, from, to int) {
		if _, ok := bindings[name]; !ok || from < 0 || to < from {
			return
		}
		out[name] = append(out[name], Span{Start: toks[from].start, End: toks[to].end})
	}
	bindsIn := func(from, to, direct int, fn func(name string)) {
		for k := from; k < to; k++ {
			if boundAt(src, toks, k, direct) {
				fn(toks[k].text(src))
			}
		}
	}

	for i, t := range toks {
		switch {
		case t.is(src, "("):
			// function f(m) {...}, method(m) {...}, catch (m) {...}
			c := match[i]
			if i == 0 || c < 0 {
				continue
			}
			p := toks[i-1]
			if !(p.kind == kindIdent && !slices.Contains(headerKeywords, p.text(src))) && !p.is(src, "*") {
				continue
			}
			body := bodyAfter(src, toks, c)
			if body < 0 || match[body] < 0 {
				continue
			}
			bindsIn(i+1, c, t.depth+1, func(name string) { add(name, i, match[body]) })

		case t.is(src, "=>"):
			if i == 0 {
				continue
			}
			from := i - 1
			if toks[i-1].is(src, ")") {
				from = match[i-1]
				if from < 0 {
					continue
				}
			} else if toks[i-1].kind != kindIdent {
				continue
			}
			to := arrowBodyEnd(src, toks, match, i)
			if from == i-1 {
				add(toks[from].text(src), from, to)
				continue
			}
			bindsIn(from+1, i-1, toks[from].depth+1, func(name string) { add(name, from, to) })

		case t.kind == kindIdent && t.depth > 0 && (i == 0 || !toks[i-1].is(src, ".")):
			switch t.text(src) {
			case "const", "let", "var":
				from, to := declarationScope(src, toks, match, i, t.is(src, "var"))
				declaredNames(src, toks, match, i, func(name string) { add(name, from, to) })
			case "function", "class":
				if i+1 >= len(toks) || toks[i+1].kind != kindIdent || !statementStart(src, toks, match, i) {
					continue
				}
				if o := enclosingOpener(toks, i); o >= 0 && toks[o].is(src, "{") {
					add(toks[i+1].text(src), o, match[o])
				}
			}
		}
	}
	return out
}

// boundAt reports whether the identifier at toks[k] sits in a binding
// position of a parameter list or destructuring pattern. direct is the depth
// of the list itself, where a following ":" starts a type annotation.
func boundAt(src []byte, toks []token, k, direct int) bool {
	t := toks[k]
	if t.kind != kindIdent || k == 0 || k+1 >= len(toks) {
		return false
	}
	prev, next := toks[k-1], toks[k+1]
	prevOK := prev.is(src, "(") || prev.is(src, ",") || prev.is(src, "[") || prev.is(src, "{") || prev.is(src, "...") ||
		(prev.is(src, ":") && t.depth != direct)
	nextOK := next.is(src, ",") || next.is(src, ")") || next.is(src, "=") || next.is(src, "}") || next.is(src, "]") ||
		((next.is(src, ":") || next.is(src, "?")) && t.depth == direct)
	return prevOK && nextOK
}

// bodyAfter returns the index of the "{" opening the body that follows the
// ")" at toks[c], skipping a return type annotation, or -1.
func bodyAfter(src []byte, toks []token, c int) int {
	k := c + 1
	if k >= len(toks) {
		return -1
	}
	if toks[k].is(src, "{") {
		return k
	}
	if !toks[k].is(src, ":") {
		return -1
	}
	d := toks[c].depth
	for k++; k < len(toks); k++ {
		tk := toks[k]
		if tk.depth < d || (tk.depth == d && (tk.is(src, ";") || tk.is(src, "=>"))) {
			return -1
		}
		if tk.depth == d && tk.is(src, "{") && k > c+2 {
			return k
		}
	}
	return -1
}

// arrowBodyEnd returns the index of the last token of the body of the arrow
// function whose "=>" is toks[a].
func arrowBodyEnd(src []byte, toks []token, match []int, a int) int {
	if a+1 < len(toks) && toks[a+1].is(src, "{") {
		return match[a+1]
	}
	d := toks[a].depth
	k := a + 1
	for ; k < len(toks); k++ {
		tk := toks[k]
		if tk.depth < d || (tk.depth == d && (tk.is(src, ",") || tk.is(src, ";"))) {
			break
		}
		if k > a+1 && tk.depth == d && tk.newline && tk.kind == kindIdent && statementStart(src, toks, match, k) {
			break
		}
	}
	return k - 1
}

// declarationScope returns the token range a nested declaration at toks[i]
// is visible in: its block, the loop it heads, or for var the enclosing
// function body.
func declarationScope(src []byte, toks []token, match []int, i int, hoisted bool) (int, int) {
	o := enclosingOpener(toks, i)
	if o < 0 || match[o] < 0 {
		return -1, -1
	}
	if toks[o].is(src, "(") {
		c := match[o]
		if c+1 < len(toks) && toks[c+1].is(src, "{") && match[c+1] >= 0 {
			return o, match[c+1]
		}
		d := toks[c].depth
		for k := c + 1; k < len(toks); k++ {
			if toks[k].depth < d || (toks[k].depth == d && toks[k].is(src, ";")) {
				return o, k
			}
		}
		return o, len(toks) - 1
	}
	if hoisted {
		for b := o; b >= 0; b = enclosingOpener(toks, b) {
			if toks[b].is(src, "{") && isFunctionBody(src, toks, match, b) && match[b] >= 0 {
				return b, match[b]
			}
		}
	}
	return o, match[o]
}

// declaredNames reports every name bound by the declaration whose keyword
// is toks[i].
func declaredNames(src []byte, toks []token, match []int, i int, fn func(name string)) {
	d := toks[i].depth
	k := i + 1
	for k < len(toks) {
		tk := toks[k]
		switch {
		case tk.kind == kindIdent:
			fn(tk.text(src))
			k++
		case (tk.is(src, "{") || tk.is(src, "[")) && match[k] > k:
			for p := k + 1; p < match[k]; p++ {
				if boundAt(src, toks, p, -1) {
					fn(toks[p].text(src))
				}
			}
			k = match[k] + 1
		default:
			return
		}
		// Skip the annotation and initializer.
		for k < len(toks) {
			tk := toks[k]
			if tk.depth < d || (tk.depth == d && (tk.is(src, ",") || tk.is(src, ";"))) {
				break
			}
			if tk.depth == d && tk.newline && tk.kind == kindIdent && statementStart(src, toks, match, k) {
				return
			}
			k++
		}
		if k < len(toks) && toks[k].is(src, ",") {
			k++
			continue
		}
		return
	}
}

// substitutions returns the bodies of the ${...} substitutions of the
// template literal t.
func substitutions(src []byte, t token) []Span {
	var out []Span
	for i := t.start + 1; i < t.end; {
		switch src[i] {
		case '\\':
			i += 2
		case '$':
			if i+1 < t.end && src[i+1] == '{' {
				end := scanSubstitution(src[:t.end], i+2)
				out = append(out, Span{Start: i + 2, End: max(end-1, i+2)})
				i = end
				continue
			}
			i++
		default:
			i++
		}
	}
	return out
}

// tokenizeSpan tokenizes src[s.Start:s.End] with offsets into src.
func tokenizeSpan(src []byte, s Span) []token {
	toks := tokenize(src[s.Start:s.End])
	for i := range toks {
		toks[i].start += s.Start
		toks[i].end += s.Start
	}
	return toks
}

func within(spans []Span, off int) bool {
	for _, s := range spans {
		if off >= s.Start && off < s.End {
			return true
		}
	}
	return false
}
