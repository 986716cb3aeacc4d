// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrBareSpecifier is returned for literals naming an installed package
	// (for example "lodash" or "@scope/pkg"). These never cross a subpackage
	// boundary and are not reported.
	ErrBareSpecifier = errors.New("bare module specifier")

	// ErrUnresolved is the sentinel wrapped by MissError.
	ErrUnresolved = errors.New("import does not resolve")
)

// MissError reports a literal whose candidates do not exist on disk.
type MissError struct {
	Literal    string
	From       string
	Candidates []string
}

// Error implements the error interface.
func (e *MissError) Error() string {
	return fmt.Sprintf("resolve %q from %s: tried %s", e.Literal, e.From, strings.Join(e.Candidates, ", "))
}

// Unwrap returns ErrUnresolved for errors.Is() compatibility.
func (e *MissError) Unwrap() error { return ErrUnresolved }
