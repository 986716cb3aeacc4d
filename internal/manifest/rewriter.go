// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/mpsplit/mpsplit/internal/boundary"
	"github.com/mpsplit/mpsplit/internal/diag"
	"github.com/mpsplit/mpsplit/internal/logging"
	"github.com/mpsplit/mpsplit/pkg/fspath"
	"github.com/mpsplit/mpsplit/pkg/types"
)

const (
	// PlaceholderTag is the stand-in component declared for every
	// cross-package component reference.
	PlaceholderTag = "view"

	usingComponentsKey      = "usingComponents"
	componentPlaceholderKey = "componentPlaceholder"
)

type (
	// Option configures a Rewriter.
	Option func(*Rewriter)

	// Rewriter injects componentPlaceholder entries into manifests.
	Rewriter struct {
		cls    *boundary.Classifier
		logger *slog.Logger
		sink   *diag.Sink
	}

	// Result is the outcome of rewriting one manifest.
	Result struct {
		// Content is the rewritten manifest, or the original bytes when
		// Changed is false.
		Content []byte
		// Changed reports whether Content differs from the input.
		Changed bool
		// Added lists the component names that received a placeholder, in
		// document order.
		Added []string
		// Err is a *ParseError when the manifest could not be read. Content
		// is the original input in that case.
		Err error
	}
)

// WithLogger sets the logger used for recovered failures.
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

// NewRewriter creates a manifest rewriter classifying against cls.
func NewRewriter(cls *boundary.Classifier, opts ...Option) *Rewriter {
	r := &Rewriter{
		cls:    cls,
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rewrite declares placeholders for the cross-package components used by the
// manifest at manifestPath (an absolute path, with or without the .json
// extension). It never returns an error directly; see Result.Err.
func (r *Rewriter) Rewrite(content []byte, manifestPath types.FilesystemPath) Result {
	unchanged := Result{Content: content}

	if !gjson.ValidBytes(content) {
		return r.fail(content, manifestPath, errors.New("invalid JSON"))
	}
	doc := gjson.ParseBytes(content)
	if !doc.IsObject() {
		return r.fail(content, manifestPath, fmt.Errorf("top-level value is %s, want object", doc.Type))
	}

	using := doc.Get(usingComponentsKey)
	if !using.IsObject() {
		return unchanged
	}

	collected := r.crossPackageComponents(using, manifestPath)
	if len(collected) == 0 {
		return unchanged
	}

	placeholders := doc.Get(componentPlaceholderKey)
	if placeholders.Exists() && !placeholders.IsObject() {
		return r.fail(content, manifestPath, fmt.Errorf("%s is %s, want object", componentPlaceholderKey, placeholders.Type))
	}

	var (
		out   []byte
		added []string
	)
	for _, name := range collected {
		if placeholders.Get(escapeKey(name)).Exists() {
			continue
		}
		if out == nil {
			out = slices.Clone(content)
		}
		next, err := sjson.SetBytes(out, componentPlaceholderKey+"."+setterKey(name), PlaceholderTag)
		if err != nil {
			return r.fail(content, manifestPath, fmt.Errorf("insert placeholder for %q: %w", name, err))
		}
		out = next
		added = append(added, name)
	}
	if len(added) == 0 {
		return unchanged
	}

	r.logger.Debug("declared component placeholders", "manifest", string(manifestPath), "components", added)
	return Result{Content: out, Changed: true, Added: added}
}

// crossPackageComponents returns, in document order and without duplicates,
// the names of usingComponents entries that reference another subpackage.
func (r *Rewriter) crossPackageComponents(using gjson.Result, manifestPath types.FilesystemPath) []string {
	dir := fspath.Dir(manifestPath)
	var names []string
	using.ForEach(func(key, value gjson.Result) bool {
		if value.Type != gjson.String {
			return true
		}
		target, ok := r.resolveComponent(dir, value.Str)
		if !ok {
			return true
		}
		if r.cls.IsCrossPackageReference(manifestPath, target) && !slices.Contains(names, key.Str) {
			names = append(names, key.Str)
		}
		return true
	})
	return names
}

// resolveComponent maps a usingComponents value to an absolute path. Values
// with a scheme (plugin://...) never point into a subpackage.
func (r *Rewriter) resolveComponent(dir types.FilesystemPath, ref string) (types.FilesystemPath, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.Contains(ref, "://") {
		return "", false
	}
	if strings.HasPrefix(ref, "/") {
		root := r.cls.Topology().ProjectRoot()
		if root == "" {
			return "", false
		}
		return fspath.JoinStr(root, strings.TrimLeft(ref, "/")), true
	}
	return fspath.JoinStr(dir, ref), true
}

func (r *Rewriter) fail(content []byte, manifestPath types.FilesystemPath, cause error) Result {
	err := &ParseError{Path: string(manifestPath), Cause: cause}
	r.logger.Warn("manifest left unchanged", "manifest", string(manifestPath), "error", cause)
	r.sink.Add(diag.Warning(diag.CodeManifestParseFailed, string(manifestPath), "%v", cause).WithCause(err))
	return Result{Content: content, Err: err}
}

// escapeKey escapes the characters gjson and sjson treat as path syntax.
func escapeKey(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for _, r := range key {
		switch r {
		case '\\', '.', '*', '?', '|', '#', '@', '!', '=', '<', '>', '%', ':':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// setterKey is escapeKey for sjson paths. An all-digit name gets the ":"
// prefix so sjson creates an object key instead of an array index.
func setterKey(key string) string {
	if key != "" && strings.Trim(key, "0123456789") == "" {
		return ":" + key
	}
	return escapeKey(key)
}
