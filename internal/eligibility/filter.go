// SPDX-License-Identifier: MPL-2.0

package eligibility

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	// Eligible marks a module the rewriter should process.
	Eligible Reason = ""
	// ReasonVirtual marks bundler-internal ids ("\x00" prefix).
	ReasonVirtual Reason = "virtual module"
	// ReasonAsset marks binary asset files.
	ReasonAsset Reason = "binary asset"
	// ReasonStyle marks style-only virtual modules.
	ReasonStyle Reason = "style module"
	// ReasonNotScript marks files outside the JS family.
	ReasonNotScript Reason = "not a script module"
	// ReasonExcludedDir marks ids under an excluded directory.
	ReasonExcludedDir Reason = "excluded directory"
	// ReasonExcludedGlob marks ids matching an exclusion glob.
	ReasonExcludedGlob Reason = "excluded glob"
	// ReasonExcludedExtension marks ids with an excluded extension.
	ReasonExcludedExtension Reason = "excluded extension"
)

var (
	scriptExtensions = []string{".js", ".mjs", ".cjs", ".ts", ".mts", ".cts", ".jsx", ".tsx"}
	sfcExtensions    = []string{".vue", ".nvue"}

	assetExtensions = []string{
		".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg", ".ico", ".bmp", ".avif",
		".mp3", ".mp4", ".wav", ".ogg", ".webm", ".m4a",
		".woff", ".woff2", ".ttf", ".otf", ".eot", ".wasm",
	}

	styleLangs = []string{"css", "scss", "sass", "less", "styl", "stylus", "postcss", "pcss", "sss"}

	// DefaultExcludeDirs are directory-name fragments skipped by default.
	DefaultExcludeDirs = []string{"node_modules"}
	// DefaultExcludeGlobs are the platform runtime chunks skipped by default.
	DefaultExcludeGlobs = []string{"**/common/vendor.js", "**/common/runtime.js", "**/common/assets.js"}
)

type (
	// Reason explains why a module was skipped. Eligible is the zero value.
	Reason string

	// Options configures a Filter.
	Options struct {
		// ExcludeDirs skips ids with a directory segment containing any entry.
		ExcludeDirs []string
		// ExcludeGlobs skips ids whose path matches any doublestar pattern.
		ExcludeGlobs []string
		// ExcludeExtensions skips ids with any of these extensions.
		ExcludeExtensions []string
	}

	// Filter is the exclusion predicate set. It is immutable and safe for
	// concurrent use.
	Filter struct {
		dirs  []string
		globs []string
		exts  []string
	}
)

// DefaultOptions returns the default exclusion set.
func DefaultOptions() Options {
	return Options{
		ExcludeDirs:  slices.Clone(DefaultExcludeDirs),
		ExcludeGlobs: slices.Clone(DefaultExcludeGlobs),
	}
}

// New creates a filter. It fails when a glob is not a valid pattern.
func New(opts Options) (*Filter, error) {
	f := &Filter{}
	for _, d := range opts.ExcludeDirs {
		if d = strings.Trim(filepath.ToSlash(d), "/"); d != "" {
			f.dirs = append(f.dirs, d)
		}
	}
	for _, g := range opts.ExcludeGlobs {
		if !doublestar.ValidatePattern(g) {
			return nil, fmt.Errorf("invalid exclude glob %q", g)
		}
		f.globs = append(f.globs, strings.TrimPrefix(g, "/"))
	}
	for _, e := range opts.ExcludeExtensions {
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		f.exts = append(f.exts, strings.ToLower(e))
	}
	return f, nil
}

// Eligible reports whether id should be rewritten.
func (f *Filter) Eligible(id string) bool {
	return f.Check(id) == Eligible
}

// Check returns why id is skipped, or Eligible.
func (f *Filter) Check(id string) Reason {
	if strings.HasPrefix(id, "\x00") {
		return ReasonVirtual
	}

	p, rawQuery, _ := strings.Cut(id, "?")
	slashed := filepath.ToSlash(p)
	ext := strings.ToLower(path.Ext(slashed))

	if slices.Contains(assetExtensions, ext) {
		return ReasonAsset
	}

	// ParseQuery keeps every well-formed pair even when it reports an error.
	query, _ := url.ParseQuery(rawQuery)
	if isStyleQuery(query) {
		return ReasonStyle
	}

	switch {
	case slices.Contains(scriptExtensions, ext):
	case slices.Contains(sfcExtensions, ext):
		if query.Get("type") != "script" {
			return ReasonNotScript
		}
	default:
		return ReasonNotScript
	}

	if slices.Contains(f.exts, ext) {
		return ReasonExcludedExtension
	}
	if f.inExcludedDir(slashed) {
		return ReasonExcludedDir
	}
	if f.matchesGlob(slashed) {
		return ReasonExcludedGlob
	}
	return Eligible
}

func (f *Filter) inExcludedDir(slashed string) bool {
	dir := path.Dir(slashed)
	for _, seg := range strings.Split(dir, "/") {
		for _, d := range f.dirs {
			if strings.Contains(seg, d) {
				return true
			}
		}
	}
	// Multi-segment entries ("a/b") match anywhere in the directory part.
	for _, d := range f.dirs {
		if strings.Contains(d, "/") && strings.Contains("/"+dir+"/", "/"+d+"/") {
			return true
		}
	}
	return false
}

func (f *Filter) matchesGlob(slashed string) bool {
	rel := strings.TrimLeft(slashed, "/")
	for _, g := range f.globs {
		if ok, _ := doublestar.Match(g, rel); ok {
			return true
		}
	}
	return false
}

func isStyleQuery(q url.Values) bool {
	if q.Get("type") == "style" {
		return true
	}
	for _, flag := range []string{"inline", "raw", "url"} {
		if q.Has(flag) {
			return true
		}
	}
	if slices.Contains(styleLangs, q.Get("lang")) {
		return true
	}
	for _, lang := range styleLangs {
		if q.Has("lang." + lang) {
			return true
		}
	}
	return false
}
