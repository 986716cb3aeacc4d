// SPDX-License-Identifier: MPL-2.0

package types

// MainPackage is the PackageID of everything outside every declared
// subpackage root.
const MainPackage PackageID = "main"

// PackageID identifies the package that owns a path: MainPackage, or the
// cleaned absolute root of a subpackage.
type PackageID string

// String returns the string representation of the PackageID.
func (id PackageID) String() string { return string(id) }

// IsMain reports whether id denotes the main package. The zero value is
// treated as main.
func (id PackageID) IsMain() bool { return id == MainPackage || id == "" }
