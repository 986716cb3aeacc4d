// SPDX-License-Identifier: MPL-2.0

// Package fspath provides typed wrappers around path/filepath functions that
// accept and return types.FilesystemPath, plus the segment-aware containment
// check the package classifier is built on.
package fspath

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mpsplit/mpsplit/pkg/types"
)

// Join wraps filepath.Join, accepting and returning types.FilesystemPath.
func Join(elem ...types.FilesystemPath) types.FilesystemPath {
	strs := make([]string, len(elem))
	for i, e := range elem {
		strs[i] = string(e)
	}
	return types.FilesystemPath(filepath.Join(strs...))
}

// JoinStr wraps filepath.Join, accepting a typed base path and raw string
// segments (for example a literal taken from a require call).
func JoinStr(base types.FilesystemPath, elem ...string) types.FilesystemPath {
	parts := make([]string, 1, 1+len(elem))
	parts[0] = string(base)
	parts = append(parts, elem...)
	return types.FilesystemPath(filepath.Join(parts...))
}

// Dir wraps filepath.Dir for FilesystemPath.
func Dir(p types.FilesystemPath) types.FilesystemPath {
	return types.FilesystemPath(filepath.Dir(string(p)))
}

// Abs wraps filepath.Abs for FilesystemPath. Returns an error if the
// underlying OS call fails.
func Abs(p types.FilesystemPath) (types.FilesystemPath, error) {
	abs, err := filepath.Abs(string(p))
	if err != nil {
		return "", fmt.Errorf("resolving absolute path: %w", err)
	}
	return types.FilesystemPath(abs), nil
}

// AbsFrom makes p absolute against base without consulting the working
// directory. Absolute inputs are only cleaned.
func AbsFrom(base, p types.FilesystemPath) types.FilesystemPath {
	if filepath.IsAbs(string(p)) {
		return Clean(p)
	}
	return Join(base, p)
}

// Clean wraps filepath.Clean for FilesystemPath.
func Clean(p types.FilesystemPath) types.FilesystemPath {
	return types.FilesystemPath(filepath.Clean(string(p)))
}

// FromSlash wraps filepath.FromSlash for FilesystemPath. Converts forward
// slashes to the OS-specific path separator.
func FromSlash(p types.FilesystemPath) types.FilesystemPath {
	return types.FilesystemPath(filepath.FromSlash(string(p)))
}

// IsAbs wraps filepath.IsAbs for FilesystemPath.
func IsAbs(p types.FilesystemPath) bool {
	return filepath.IsAbs(string(p))
}

// Rel wraps filepath.Rel for FilesystemPath.
func Rel(base, target types.FilesystemPath) (types.FilesystemPath, error) {
	rel, err := filepath.Rel(string(base), string(target))
	if err != nil {
		return "", fmt.Errorf("computing relative path: %w", err)
	}
	return types.FilesystemPath(rel), nil
}

// Within reports whether p equals dir or lies below it. Both paths are
// cleaned first; the comparison is on whole path segments, so "/a/sub"
// is not within "/a/su".
func Within(p, dir types.FilesystemPath) bool {
	cp := filepath.Clean(string(p))
	cd := filepath.Clean(string(dir))
	if cp == cd {
		return true
	}
	if !strings.HasSuffix(cd, string(filepath.Separator)) {
		cd += string(filepath.Separator)
	}
	return strings.HasPrefix(cp, cd)
}
