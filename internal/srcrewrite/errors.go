// SPDX-License-Identifier: MPL-2.0

package srcrewrite

import (
	"errors"
	"fmt"
)

// ErrSyntax is the sentinel wrapped by ParseError.
var ErrSyntax = errors.New("module syntax error")

// ParseError reports a module that does not parse. It is fatal for that
// module only.
type ParseError struct {
	Path    string
	Line    int
	Column  int
	Message string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Line, e.Column, e.Message)
}

// Unwrap returns ErrSyntax for errors.Is() compatibility.
func (e *ParseError) Unwrap() error { return ErrSyntax }
