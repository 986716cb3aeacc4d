// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"errors"
	"fmt"
)

// ErrMalformedManifest is the sentinel wrapped by ParseError.
var ErrMalformedManifest = errors.New("malformed manifest")

// ParseError reports a manifest that is not a JSON object. It is recovered
// locally: the original content is passed through and the build continues.
type ParseError struct {
	Path  string
	Cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse manifest %s: %v", e.Path, e.Cause)
}

// Unwrap exposes both ErrMalformedManifest and the underlying cause.
func (e *ParseError) Unwrap() []error {
	return []error{ErrMalformedManifest, e.Cause}
}
