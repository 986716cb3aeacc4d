// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"cmp"
	"os"
	"slices"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mpsplit/mpsplit/pkg/fspath"
	"github.com/mpsplit/mpsplit/pkg/types"
)

// DefaultProbeCacheSize bounds the number of memoized probe results.
const DefaultProbeCacheSize = 4096

// ProbeExtensions are appended to extensionless literals when probing.
var ProbeExtensions = []string{".js", ".ts", ".mjs", ".cjs", ".mts", ".cts", ".jsx", ".tsx", ".json", ".vue"}

type (
	// Prober reports whether a file exists at an absolute path.
	Prober interface {
		Exists(path types.FilesystemPath) bool
	}

	// ProberFunc adapts a function to Prober.
	ProberFunc func(path types.FilesystemPath) bool

	// Option configures a Resolver.
	Option func(*Resolver)

	// Resolution is a literal mapped to an absolute path.
	Resolution struct {
		// Path is the resolved target. When a prober is configured it names
		// the candidate that exists; otherwise it is the joined literal.
		Path types.FilesystemPath
		// Aliased reports whether an alias substitution was applied.
		Aliased bool
	}

	// Resolver resolves load literals. It is safe for concurrent use.
	Resolver struct {
		projectRoot types.FilesystemPath
		inputDir    types.FilesystemPath
		aliases     []alias
		prober      Prober
		cache       *lru.Cache[types.FilesystemPath, bool]
	}

	alias struct {
		prefix      string
		replacement types.FilesystemPath
	}
)

// Exists implements Prober.
func (f ProberFunc) Exists(path types.FilesystemPath) bool { return f(path) }

// WithProjectRoot sets the directory root-anchored literals ("/x") resolve
// against.
func WithProjectRoot(root types.FilesystemPath) Option {
	return func(r *Resolver) { r.projectRoot = fspath.Clean(root) }
}

// WithInputDir sets the source directory. It also installs the "@/" alias
// unless an explicit "@/" alias is configured.
func WithInputDir(dir types.FilesystemPath) Option {
	return func(r *Resolver) { r.inputDir = fspath.Clean(dir) }
}

// WithAlias maps literals starting with prefix onto replacement. A relative
// replacement is taken relative to the project root.
func WithAlias(prefix string, replacement types.FilesystemPath) Option {
	return func(r *Resolver) {
		if prefix == "" {
			return
		}
		r.aliases = append(r.aliases, alias{prefix: prefix, replacement: replacement})
	}
}

// WithAliases adds every entry of m as an alias.
func WithAliases(m map[string]string) Option {
	return func(r *Resolver) {
		for prefix, repl := range m {
			WithAlias(prefix, types.FilesystemPath(repl))(r)
		}
	}
}

// WithProber enables on-disk verification of resolved targets.
func WithProber(p Prober) Option {
	return func(r *Resolver) { r.prober = p }
}

// WithOSProber enables verification against the local filesystem.
func WithOSProber() Option {
	return WithProber(ProberFunc(func(path types.FilesystemPath) bool {
		info, err := os.Stat(string(path))
		return err == nil && !info.IsDir()
	}))
}

// New creates a resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{}
	for _, opt := range opts {
		opt(r)
	}

	if r.inputDir != "" && !slices.ContainsFunc(r.aliases, func(a alias) bool { return a.prefix == "@/" }) {
		r.aliases = append(r.aliases, alias{prefix: "@/", replacement: r.inputDir})
	}
	for i, a := range r.aliases {
		r.aliases[i].replacement = fspath.AbsFrom(r.projectRoot, a.replacement)
	}
	// Longest prefix wins; ties keep configuration order.
	slices.SortStableFunc(r.aliases, func(a, b alias) int {
		return cmp.Compare(len(b.prefix), len(a.prefix))
	})

	if r.prober != nil {
		// Size is a positive constant, the constructor cannot fail.
		r.cache, _ = lru.New[types.FilesystemPath, bool](DefaultProbeCacheSize)
	}
	return r
}

// Resolve maps literal, as written in the module at from, to an absolute
// path. It returns ErrBareSpecifier for package names and a *MissError when a
// prober is configured and no candidate exists.
func (r *Resolver) Resolve(from types.FilesystemPath, literal string) (Resolution, error) {
	target, aliased, err := r.join(from, literal)
	if err != nil {
		return Resolution{}, err
	}
	if r.prober == nil {
		return Resolution{Path: target, Aliased: aliased}, nil
	}

	candidates := Candidates(target)
	for _, c := range candidates {
		if r.exists(c) {
			return Resolution{Path: c, Aliased: aliased}, nil
		}
	}
	tried := make([]string, len(candidates))
	for i, c := range candidates {
		tried[i] = string(c)
	}
	return Resolution{}, &MissError{Literal: literal, From: string(from), Candidates: tried}
}

func (r *Resolver) join(from types.FilesystemPath, literal string) (types.FilesystemPath, bool, error) {
	for _, a := range r.aliases {
		if rest, ok := strings.CutPrefix(literal, a.prefix); ok {
			return fspath.JoinStr(a.replacement, rest), true, nil
		}
	}

	switch {
	case literal == "." || literal == ".." || strings.HasPrefix(literal, "./") || strings.HasPrefix(literal, "../"):
		return fspath.JoinStr(fspath.Dir(from), literal), false, nil
	case strings.HasPrefix(literal, "/"):
		if r.projectRoot == "" {
			return fspath.Clean(types.FilesystemPath(literal)), false, nil
		}
		return fspath.JoinStr(r.projectRoot, strings.TrimLeft(literal, "/")), false, nil
	default:
		return "", false, ErrBareSpecifier
	}
}

func (r *Resolver) exists(path types.FilesystemPath) bool {
	if ok, hit := r.cache.Get(path); hit {
		return ok
	}
	ok := r.prober.Exists(path)
	r.cache.Add(path, ok)
	return ok
}

// Candidates lists the paths probed for target, in order: the path itself,
// the path with each probe extension, and an index file in each extension.
func Candidates(target types.FilesystemPath) []types.FilesystemPath {
	out := make([]types.FilesystemPath, 0, 1+2*len(ProbeExtensions))
	out = append(out, target)
	for _, ext := range ProbeExtensions {
		out = append(out, target+types.FilesystemPath(ext))
	}
	for _, ext := range ProbeExtensions {
		out = append(out, fspath.JoinStr(target, "index"+ext))
	}
	return out
}
