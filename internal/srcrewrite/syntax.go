// SPDX-License-Identifier: MPL-2.0

package srcrewrite

import (
	"net/url"
	"path"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// tsconfigRaw enables legacy decorators so class decorator syntax in either
// dialect parses.
const tsconfigRaw = `{"compilerOptions":{"experimentalDecorators":true}}`

// checkSyntax parses source with the loader matching moduleID and returns a
// *ParseError describing the first syntax error.
func checkSyntax(source []byte, moduleID string) error {
	p, rawQuery, _ := strings.Cut(moduleID, "?")
	result := api.Transform(string(source), api.TransformOptions{
		Loader:      loaderFor(p, rawQuery),
		Sourcefile:  p,
		TsconfigRaw: tsconfigRaw,
		LogLevel:    api.LogLevelSilent,
	})
	if len(result.Errors) == 0 {
		return nil
	}
	msg := result.Errors[0]
	perr := &ParseError{Path: p, Message: msg.Text}
	if msg.Location != nil {
		perr.Line = msg.Location.Line
		perr.Column = msg.Location.Column + 1
	}
	return perr
}

func loaderFor(p, rawQuery string) api.Loader {
	ext := strings.ToLower(path.Ext(p))
	if ext == ".vue" || ext == ".nvue" {
		query, _ := url.ParseQuery(rawQuery)
		switch {
		case query.Has("lang.tsx") || query.Get("lang") == "tsx":
			return api.LoaderTSX
		case query.Has("lang.ts") || query.Get("lang") == "ts":
			return api.LoaderTS
		case query.Has("lang.jsx") || query.Get("lang") == "jsx":
			return api.LoaderJSX
		default:
			return api.LoaderJS
		}
	}
	switch ext {
	case ".ts", ".mts", ".cts":
		return api.LoaderTS
	case ".tsx":
		return api.LoaderTSX
	case ".jsx":
		return api.LoaderJSX
	default:
		return api.LoaderJS
	}
}
