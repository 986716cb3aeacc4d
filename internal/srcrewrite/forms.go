// SPDX-License-Identifier: MPL-2.0

package srcrewrite

import (
	"github.com/mpsplit/mpsplit/pkg/types"
)

type (
	// Span is a half-open byte range [Start, End) of the source.
	Span struct {
		Start, End int
	}

	// LoadForm is the syntactic form that created a binding. The set is
	// closed: NamespaceImport and RequireCall.
	LoadForm interface {
		isLoadForm()
	}

	// NamespaceImport is `import * as X from '<lit>'`. Statement spans the
	// import keyword through the path literal, excluding any semicolon.
	NamespaceImport struct {
		Statement Span
	}

	// RequireCall is a `X = require('<lit>')` declarator. Callee spans the
	// require identifier.
	RequireCall struct {
		Callee Span
	}

	// Operand is the form of an awaited binding reference. The set is
	// closed: WholeBinding and MemberAccess.
	Operand interface {
		isOperand()
	}

	// WholeBinding is `await X`.
	WholeBinding struct{}

	// MemberAccess is `await X.member`.
	MemberAccess struct {
		Member string
	}

	// ImportBinding is a local name bound to a module in another subpackage.
	ImportBinding struct {
		// Name is the bound identifier.
		Name string
		// Form is how the binding was declared.
		Form LoadForm
		// Literal is the path literal as written, quotes included.
		Literal string
		// Specifier is the unquoted path.
		Specifier string
		// Target is the resolved absolute path.
		Target types.FilesystemPath
		// Line is the 1-based line of the declaration.
		Line int
		// Sites are the awaits consuming the binding, in source order.
		Sites []DeferredLoadSite
	}

	// DeferredLoadSite is an await whose operand references a binding.
	DeferredLoadSite struct {
		Binding string
		Operand Operand
		// Operand spans the awaited expression, the await keyword excluded.
		Span Span
		Line int
	}

	// BareLoad is a `require('<lit>')` expression statement loading another
	// subpackage for its side effects. It is removed.
	BareLoad struct {
		Literal string
		Target  types.FilesystemPath
		// Span covers the statement and its terminator.
		Span Span
		Line int
	}
)

func (NamespaceImport) isLoadForm() {}
func (RequireCall) isLoadForm()     {}

func (WholeBinding) isOperand() {}
func (MemberAccess) isOperand() {}

// Promoted reports whether the binding has consumers and is switched to the
// deferred load primitive.
func (b *ImportBinding) Promoted() bool { return len(b.Sites) > 0 }
