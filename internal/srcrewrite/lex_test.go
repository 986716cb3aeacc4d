// SPDX-License-Identifier: MPL-2.0

package srcrewrite

import (
	"slices"
	"testing"
)

func tokenTexts(src string) []string {
	var out []string
	for _, t := range tokenize([]byte(src)) {
		out = append(out, t.text([]byte(src)))
	}
	return out
}

func TestTokenize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		want []string
	}{
		{"declaration", "const m = require('x');", []string{"const", "m", "=", "require", "(", "'x'", ")", ";"}},
		{"comments dropped", "a /* b */ // c\nd", []string{"a", "d"}},
		{"regex after operator", "x = /a\\/b[/]/gi.test(s)", []string{"x", "=", "/a\\/b[/]/gi", ".", "test", "(", "s", ")"}},
		{"division after identifier", "a / b / c", []string{"a", "/", "b", "/", "c"}},
		{"template with substitution", "f(`a${`b${c}`}d`)", []string{"f", "(", "`a${`b${c}`}d`", ")"}},
		{"optional chaining vs conditional", "a?.b ? .5 : c", []string{"a", "?.", "b", "?", ".5", ":", "c"}},
		{"operators", "a !== b => c ...d", []string{"a", "!==", "b", "=>", "c", "...", "d"}},
		{"numbers", "1e-5 0x1F 1_000n", []string{"1e-5", "0x1F", "1_000n"}},
		{"private member", "this.#x", []string{"this", ".", "#x"}},
		{"double quoted escape", `"a\"b" c`, []string{`"a\"b"`, "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tokenTexts(tt.src); !slices.Equal(got, tt.want) {
				t.Errorf("tokenize(%q) = %q, want %q", tt.src, got, tt.want)
			}
		})
	}
}

func TestTokenizeDepthAndNewlines(t *testing.T) {
	t.Parallel()

	src := []byte("f(a, {\n  b: [c]\n})\nd")
	toks := tokenize(src)

	depths := map[string]int{}
	var newlines []string
	for _, tok := range toks {
		depths[tok.text(src)] = tok.depth
		if tok.newline {
			newlines = append(newlines, tok.text(src))
		}
	}
	for text, want := range map[string]int{"f": 0, "(": 0, ")": 0, "a": 1, "{": 1, "b": 2, "[": 2, "c": 3, "d": 0} {
		if got := depths[text]; got != want {
			t.Errorf("depth(%q) = %d, want %d", text, got, want)
		}
	}
	if !slices.Equal(newlines, []string{"b", "}", "d"}) {
		t.Errorf("tokens after newline = %q, want [b } d]", newlines)
	}
}

func TestMatchBrackets(t *testing.T) {
	t.Parallel()

	src := []byte("f(a[0], {b: c}) }")
	toks := tokenize(src)
	match := matchBrackets(src, toks)
	pairs := map[string]string{}
	for i, m := range match {
		if m > i {
			pairs[toks[i].text(src)+toks[m].text(src)] = string(src[toks[i].start:toks[m].end])
		}
	}
	want := map[string]string{"()": "(a[0], {b: c})", "[]": "[0]", "{}": "{b: c}"}
	for k, v := range want {
		if pairs[k] != v {
			t.Errorf("pair %s = %q, want %q", k, pairs[k], v)
		}
	}
	if last := match[len(match)-1]; last != -1 {
		t.Errorf("unpaired brace matched %d", last)
	}
}

func TestSubstitutions(t *testing.T) {
	t.Parallel()

	src := []byte("`a${x}b\\${no}${`n${y}`}`")
	toks := tokenize(src)
	if len(toks) != 1 || toks[0].kind != kindTemplate {
		t.Fatalf("tokenize() = %v, want one template", toks)
	}
	var got []string
	for _, s := range substitutions(src, toks[0]) {
		got = append(got, string(src[s.Start:s.End]))
	}
	want := []string{"x", "`n${y}`"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("substitutions() = %q, want %q", got, want)
	}
}
