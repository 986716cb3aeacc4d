// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/mpsplit/mpsplit/internal/diag"
)

// Id identifies a catalogued issue.
type Id int

const (
	ConfigLoadFailedId Id = iota + 1
	OutputNotFoundId
	AppManifestMissingId
	AppManifestInvalidId
	SubpackageRootId
	ManifestParseFailedId
	ModuleParseFailedId
	ImportUnresolvedId
	CrossPackageSyncBindingId
	PlatformInactiveId
)

const (
	asyncSubpackagesDoc HttpLink = "https://developers.weixin.qq.com/miniprogram/dev/framework/subpackages/async.html"
	placeholderDoc      HttpLink = "https://developers.weixin.qq.com/miniprogram/dev/framework/custom-component/placeholder.html"
	subpackagesDoc      HttpLink = "https://developers.weixin.qq.com/miniprogram/dev/framework/subpackages/basic.html"
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	codes    []string    // diagnostic codes explained by this issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	extLinks []HttpLink  // platform documentation
}

func (i *Issue) Id() Id {
	return i.id
}

// Codes returns the diagnostic codes this issue explains.
func (i *Issue) Codes() []string {
	return slices.Clone(i.codes)
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render formats the issue for a terminal. stylePath is a glamour style
// name ("dark", "light", "notty") or a path to a JSON style file.
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range i.extLinks {
			md.WriteString("\n- <" + string(link) + ">")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

mpsplit reads the first of these files, then applies MPSPLIT_* environment overrides:

1. the file given with ` + "`--config`" + `
2. ` + "`config.cue`" + ` in the user config directory (` + "`mpsplit config path`" + `)
3. ` + "`mpsplit.cue`" + ` in the working directory

## Things you can try:
- Print the effective configuration:
~~~
$ mpsplit config dump
~~~
- Recreate a default file:
~~~
$ mpsplit config init
~~~`,
	}

	outputNotFoundIssue = &Issue{
		id: OutputNotFoundId,
		mdMsg: `
# Build output not found!

mpsplit rewrites the **emitted** mini-program tree, so the build has to run first.

## Things you can try:
- Check ` + "`output_dir`" + ` or pass the directory explicitly:
~~~
$ mpsplit rewrite dist/build/mp-weixin
~~~`,
	}

	appManifestMissingIssue = &Issue{
		id:    AppManifestMissingId,
		codes: []string{diag.CodeAppManifestMissing},
		mdMsg: `
# No app.json in the output!

Without the application manifest every file belongs to the main package and nothing is rewritten.

## Things you can try:
- Point mpsplit at the platform output root, the directory that contains ` + "`app.json`" + `.`,
		extLinks: []HttpLink{subpackagesDoc},
	}

	appManifestInvalidIssue = &Issue{
		id:    AppManifestInvalidId,
		codes: []string{diag.CodeAppManifestInvalid},
		mdMsg: `
# app.json could not be parsed!

The topology falls back to a single main package, so cross-package references are left untouched.

## Things you can try:
- Validate the manifest with a JSON linter.
- Make sure ` + "`subPackages`" + ` (or ` + "`subpackages`" + `) is an array of objects.`,
		extLinks: []HttpLink{subpackagesDoc},
	}

	subpackageRootIssue = &Issue{
		id:    SubpackageRootId,
		codes: []string{diag.CodeSubpackageRootMissing, diag.CodeSubpackageRootOverlap},
		mdMsg: `
# Subpackage entry ignored!

Every subpackage needs a non-empty ` + "`root`" + `, and no root may contain another one.
When two roots overlap, the one declared later is dropped.

## Things you can try:
- Give each entry of ` + "`subPackages`" + ` a distinct, non-nested ` + "`root`" + `.`,
		extLinks: []HttpLink{subpackagesDoc},
	}

	manifestParseFailedIssue = &Issue{
		id:    ManifestParseFailedId,
		codes: []string{diag.CodeManifestParseFailed},
		mdMsg: `
# Component manifest left unchanged!

The file is not a JSON object, or its ` + "`componentPlaceholder`" + ` is not an object.
No placeholders were added, so the platform may refuse to load a component from another package.

## Things you can try:
- Fix the JSON and rebuild.`,
		extLinks: []HttpLink{placeholderDoc},
	}

	moduleParseFailedIssue = &Issue{
		id:    ModuleParseFailedId,
		codes: []string{diag.CodeModuleParseFailed},
		mdMsg: `
# Source module could not be parsed!

The module was emitted unchanged and the run exits with status 2. All other modules were still rewritten.

## Things you can try:
- Open the reported line and column in the **emitted** file.
- Exclude generated files with ` + "`exclude.globs`" + `:
~~~cue
exclude: globs: ["**/generated/*.js"]
~~~`,
	}

	importUnresolvedIssue = &Issue{
		id:    ImportUnresolvedId,
		codes: []string{diag.CodeImportUnresolved},
		mdMsg: `
# Import could not be resolved!

The import stays synchronous because its target is unknown.

## Things you can try:
- Declare the prefix in ` + "`aliases`" + `:
~~~cue
aliases: {"~utils/": "src/utils"}
~~~
- Set ` + "`input_dir`" + ` so that ` + "`@/`" + ` points at the source tree.`,
	}

	crossPackageSyncBindingIssue = &Issue{
		id:    CrossPackageSyncBindingId,
		codes: []string{diag.CodeCrossPackageSyncBinding},
		mdMsg: `
# Cross-package binding kept synchronous!

The binding loads another package but is never used after an ` + "`await`" + `, so there is no call site to defer.
The platform will reject a synchronous load across packages.

## Things you can try:
- Use the binding as ` + "`(await x).member`" + ` inside an async function.
- Move the module into the package that uses it.`,
		extLinks: []HttpLink{asyncSubpackagesDoc},
	}

	platformInactiveIssue = &Issue{
		id:    PlatformInactiveId,
		codes: []string{diag.CodePlatformInactive},
		mdMsg: `
# Nothing to rewrite for this platform!

Only **mp-weixin** output is rewritten. Other platforms are left as they are.

## Things you can try:
- Set ` + "`platform`" + ` or ` + "`UNI_PLATFORM`" + ` to ` + "`mp-weixin`" + `.`,
	}

	issues = map[Id]*Issue{
		configLoadFailedIssue.Id():        configLoadFailedIssue,
		outputNotFoundIssue.Id():          outputNotFoundIssue,
		appManifestMissingIssue.Id():      appManifestMissingIssue,
		appManifestInvalidIssue.Id():      appManifestInvalidIssue,
		subpackageRootIssue.Id():          subpackageRootIssue,
		manifestParseFailedIssue.Id():     manifestParseFailedIssue,
		moduleParseFailedIssue.Id():       moduleParseFailedIssue,
		importUnresolvedIssue.Id():        importUnresolvedIssue,
		crossPackageSyncBindingIssue.Id(): crossPackageSyncBindingIssue,
		platformInactiveIssue.Id():        platformInactiveIssue,
	}
)

// Values returns every issue ordered by Id.
func Values() []*Issue {
	ids := slices.Sorted(maps.Keys(issues))
	out := make([]*Issue, 0, len(ids))
	for _, id := range ids {
		out = append(out, issues[id])
	}
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}

// ForCode returns the issue explaining a diagnostic code, or nil.
func ForCode(code string) *Issue {
	for _, i := range issues {
		if slices.Contains(i.codes, code) {
			return i
		}
	}
	return nil
}
