// SPDX-License-Identifier: MPL-2.0

package srcrewrite

import (
	"bytes"
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/mpsplit/mpsplit/internal/boundary"
	"github.com/mpsplit/mpsplit/internal/diag"
	"github.com/mpsplit/mpsplit/internal/logging"
	"github.com/mpsplit/mpsplit/internal/resolve"
	"github.com/mpsplit/mpsplit/pkg/types"
)

// DefaultPrimitive is the asynchronous load call of the designated platform.
const DefaultPrimitive = "require.async"

type (
	// Option configures a Rewriter.
	Option func(*Rewriter)

	// Rewriter rewrites cross-subpackage loads in JS-family modules. It holds
	// no per-module state and is safe for concurrent use.
	Rewriter struct {
		cls         *boundary.Classifier
		resolver    *resolve.Resolver
		primitive   string
		logger      *slog.Logger
		sink        *diag.Sink
		syntaxCheck bool
	}

	// Result is the outcome of rewriting one module.
	Result struct {
		// Content is the rewritten module, or the input slice itself when
		// Changed is false.
		Content []byte
		Changed bool
		// Bindings are the cross-package bindings found by pass 1, in
		// declaration order, with the sites found by pass 2.
		Bindings []ImportBinding
		// Removed are the bare cross-package loads that were dropped.
		Removed []BareLoad
	}

	edit struct {
		span Span
		text string
	}
)

// WithPrimitive sets the deferred load call (default DefaultPrimitive).
func WithPrimitive(primitive string) Option {
	return func(r *Rewriter) {
		if primitive != "" {
			r.primitive = primitive
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Rewriter) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithSink sets the diagnostics sink.
func WithSink(s *diag.Sink) Option {
	return func(r *Rewriter) { r.sink = s }
}

// WithoutSyntaxCheck skips the parser gate. Malformed input is then rewritten
// on a best-effort basis.
func WithoutSyntaxCheck() Option {
	return func(r *Rewriter) { r.syntaxCheck = false }
}

// New creates a rewriter. A nil resolver resolves relative and root-anchored
// literals against the classifier's project root without probing the disk.
func New(cls *boundary.Classifier, res *resolve.Resolver, opts ...Option) *Rewriter {
	r := &Rewriter{
		cls:         cls,
		resolver:    res,
		primitive:   DefaultPrimitive,
		logger:      logging.Discard(),
		syntaxCheck: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.resolver == nil {
		r.resolver = resolve.New(resolve.WithProjectRoot(cls.Topology().ProjectRoot()))
	}
	return r
}

// Rewrite rewrites source, the module identified by modulePath (an absolute
// path, optionally followed by a bundler query). It returns a *ParseError
// when the module does not parse; the module is then left untouched.
func (r *Rewriter) Rewrite(source []byte, modulePath string) (Result, error) {
	unchanged := Result{Content: source}
	if r.syntaxCheck {
		if err := checkSyntax(source, modulePath); err != nil {
			return unchanged, err
		}
	}
	if r.cls.Topology().Len() == 0 {
		return unchanged, nil
	}

	p, _, _ := strings.Cut(modulePath, "?")
	from := types.FilesystemPath(p)
	toks := tokenize(source)
	match := matchBrackets(source, toks)

	d := r.discover(source, toks, match, from)
	if len(d.bindings) == 0 && len(d.bare) == 0 {
		return unchanged, nil
	}
	collectSites(source, toks, shadowScopes(source, toks, match, d.bindings), d.bindings)

	var (
		edits    []edit
		bindings = make([]ImportBinding, 0, len(d.order))
	)
	for _, name := range d.order {
		b := d.bindings[name]
		bindings = append(bindings, *b)
		if !b.Promoted() {
			r.sink.Add(diag.Warning(diag.CodeCrossPackageSyncBinding, p,
				"%s loads %s synchronously but is never awaited", b.Name, b.Literal))
			continue
		}
		edits = append(edits, r.promote(b))
		for _, site := range b.Sites {
			edits = append(edits, edit{span: site.Span, text: continuation(b.Name, site.Operand)})
		}
	}
	for _, bare := range d.bare {
		edits = append(edits, edit{span: lineExtent(source, bare.Span), text: ""})
	}
	if len(edits) == 0 {
		return Result{Content: source, Bindings: bindings}, nil
	}

	r.logger.Debug("rewrote module", "module", p, "bindings", len(bindings), "edits", len(edits), "removed", len(d.bare))
	return Result{
		Content:  applyEdits(source, edits),
		Changed:  true,
		Bindings: bindings,
		Removed:  d.bare,
	}, nil
}

// promote switches a binding's declaration to the deferred primitive,
// keeping its path literal.
func (r *Rewriter) promote(b *ImportBinding) edit {
	switch form := b.Form.(type) {
	case NamespaceImport:
		return edit{span: form.Statement, text: fmt.Sprintf("const %s = %s(%s)", b.Name, r.primitive, b.Literal)}
	case RequireCall:
		return edit{span: form.Callee, text: r.primitive}
	default:
		panic(fmt.Sprintf("srcrewrite: unknown load form %T", form))
	}
}

// continuation renders the awaited expression for a site.
func continuation(name string, op Operand) string {
	switch op := op.(type) {
	case WholeBinding:
		return name + ".then(value => value)"
	case MemberAccess:
		if isReserved(op.Member) {
			return fmt.Sprintf("%s.then(({%s: value}) => value)", name, op.Member)
		}
		return fmt.Sprintf("%s.then(({%s}) => %s)", name, op.Member, op.Member)
	default:
		panic(fmt.Sprintf("srcrewrite: unknown operand %T", op))
	}
}

// collectSites runs pass 2: it attaches every await consuming a binding, at
// any nesting depth and inside template substitutions, to that binding.
// Awaits inside a scope that rebinds the name are skipped.
func collectSites(src []byte, toks []token, shadows map[string][]Span, bindings map[string]*ImportBinding) {
	for i, t := range toks {
		if t.kind == kindTemplate {
			for _, sub := range substitutions(src, t) {
				collectSites(src, tokenizeSpan(src, sub), shadows, bindings)
			}
			continue
		}
		if t.kind != kindIdent || !t.is(src, "await") || i+1 >= len(toks) {
			continue
		}
		if i > 0 && (toks[i-1].is(src, ".") || toks[i-1].is(src, "?.")) {
			continue
		}
		ident := toks[i+1]
		if ident.kind != kindIdent {
			continue
		}
		b, ok := bindings[ident.text(src)]
		if !ok || within(shadows[b.Name], ident.start) {
			continue
		}

		var op Operand = WholeBinding{}
		end, next := ident.end, i+2
		if next+1 < len(toks) && toks[next].is(src, ".") && toks[next+1].kind == kindIdent && src[toks[next+1].start] != '#' {
			op = MemberAccess{Member: toks[next+1].text(src)}
			end = toks[next+1].end
			next += 2
		}
		if next < len(toks) && operandContinues(src, toks[next]) {
			continue
		}
		b.Sites = append(b.Sites, DeferredLoadSite{
			Binding: b.Name,
			Operand: op,
			Span:    Span{Start: ident.start, End: end},
			Line:    lineOf(src, ident.start),
		})
	}
}

// operandContinues reports whether t extends the awaited expression beyond
// a binding or binding member.
func operandContinues(src []byte, t token) bool {
	if t.kind == kindTemplate {
		return true
	}
	for _, s := range []string{".", "?.", "(", "[", "!", "="} {
		if t.is(src, s) {
			return true
		}
	}
	return false
}

// lineExtent widens span to its whole line, newline included, when nothing
// but blanks share the line with it.
func lineExtent(src []byte, span Span) Span {
	lineStart := bytes.LastIndexByte(src[:span.Start], '\n') + 1
	if len(bytes.Trim(src[lineStart:span.Start], " \t")) != 0 {
		return span
	}
	lineEnd := len(src)
	if nl := bytes.IndexByte(src[span.End:], '\n'); nl >= 0 {
		lineEnd = span.End + nl + 1
	}
	if len(bytes.TrimSpace(src[span.End:lineEnd])) != 0 {
		return span
	}
	return Span{Start: lineStart, End: lineEnd}
}

// applyEdits splices non-overlapping edits into a copy of src.
func applyEdits(src []byte, edits []edit) []byte {
	slices.SortFunc(edits, func(a, b edit) int { return cmp.Compare(a.span.Start, b.span.Start) })

	var buf bytes.Buffer
	buf.Grow(len(src) + 32*len(edits))
	pos := 0
	for _, e := range edits {
		if e.span.Start < pos {
			continue
		}
		buf.Write(src[pos:e.span.Start])
		buf.WriteString(e.text)
		pos = e.span.End
	}
	buf.Write(src[pos:])
	return buf.Bytes()
}
