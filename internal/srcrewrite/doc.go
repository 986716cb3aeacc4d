// SPDX-License-Identifier: MPL-2.0

// Package srcrewrite turns cross-subpackage module loads into deferred loads.
//
// A module is rewritten in two passes over its token stream. The first pass
// discovers top-level bindings created by a namespace import or a literal
// require call whose target lives in another subpackage. The second pass
// finds await expressions consuming those bindings, including awaits inside
// template substitutions but not those in a scope where a parameter or a
// nested declaration rebinds the name. Each consumed binding has
// its declaration switched to the platform's asynchronous load primitive and
// every consuming await is rewritten to resolve the deferred handle first:
//
//	const m = require('../pkgA/mod')   ->  const m = require.async('../pkgA/mod')
//	await m.thing                       ->  await m.then(({thing}) => thing)
//	await m                             ->  await m.then(value => value)
//
// Bare require statements of another subpackage are removed at any depth. The
// source is never mutated: edits are spliced into a fresh buffer, and a module
// without edits is returned as the very same slice.
package srcrewrite
