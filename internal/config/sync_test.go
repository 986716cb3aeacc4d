// SPDX-License-Identifier: MPL-2.0

package config

import (
	"reflect"
	"strings"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// These tests keep the Go struct JSON tags and the CUE schema field names
// aligned, so a renamed key cannot silently stop being decoded.

func cueFields(t *testing.T, def string) map[string]bool {
	t.Helper()

	schema := cuecontext.New().CompileString(configSchema)
	if schema.Err() != nil {
		t.Fatalf("failed to compile CUE schema: %v", schema.Err())
	}
	val := schema.LookupPath(cue.ParsePath(def))
	if val.Err() != nil {
		t.Fatalf("failed to lookup %s: %v", def, val.Err())
	}

	iter, err := val.Fields(cue.Definitions(false), cue.Optional(true))
	if err != nil {
		t.Fatalf("failed to iterate CUE fields: %v", err)
	}
	fields := make(map[string]bool)
	for iter.Next() {
		sel := iter.Selector()
		if sel.LabelType().IsHidden() || sel.IsDefinition() {
			continue
		}
		fields[strings.TrimSuffix(sel.String(), "?")] = true
	}
	return fields
}

func goJSONTags(typ reflect.Type) map[string]bool {
	fields := make(map[string]bool)
	for i := range typ.NumField() {
		field := typ.Field(i)
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if field.IsExported() && name != "" && name != "-" {
			fields[name] = true
		}
	}
	return fields
}

func TestSchemaSync(t *testing.T) {
	t.Parallel()

	tests := []struct {
		def string
		typ reflect.Type
	}{
		{def: "#Config", typ: reflect.TypeFor[Config]()},
		{def: "#ExcludeConfig", typ: reflect.TypeFor[ExcludeConfig]()},
		{def: "#WatchConfig", typ: reflect.TypeFor[WatchConfig]()},
	}

	for _, tt := range tests {
		t.Run(tt.def, func(t *testing.T) {
			t.Parallel()

			schemaFields, goTags := cueFields(t, tt.def), goJSONTags(tt.typ)
			for f := range schemaFields {
				if !goTags[f] {
					t.Errorf("[%s] CUE field %q not found in Go struct", tt.def, f)
				}
			}
			for f := range goTags {
				if !schemaFields[f] {
					t.Errorf("[%s] Go JSON tag %q not found in CUE schema", tt.def, f)
				}
			}
		})
	}
}
