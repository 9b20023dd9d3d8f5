// Package normalize reshapes stored payloads to match their schema type.
package normalize

import (
	"github.com/artpar/contentgate/core/schema"
)

// TypeKey is the element tag naming the schema type of an array item.
const TypeKey = "_type"

// Normalize returns a copy of row shaped against st. Array fields that are
// nil or absent become empty lists, inline objects recurse, and tagged array
// elements are normalized against their declared type. The input is never
// mutated and applying Normalize twice gives the same result.
func Normalize(row map[string]any, st schema.SchemaType, set *schema.Set) map[string]any {
	if row == nil {
		return nil
	}

	out := make(map[string]any, len(row))
	for k, v := range row {
		out[k] = v
	}

	for _, f := range st.Fields {
		value, ok := row[f.Name]
		if !ok && f.Type != schema.FieldTypeArray {
			continue
		}

		switch f.Type {
		case schema.FieldTypeArray:
			if value == nil {
				out[f.Name] = []any{}
				continue
			}
			if list, ok := value.([]any); ok {
				out[f.Name] = normalizeItems(list, f, set)
			}
		case schema.FieldTypeObject:
			if m, ok := value.(map[string]any); ok {
				out[f.Name] = Normalize(m, schema.Inline(f.Name, f), set)
			}
		}
	}
	return out
}

func normalizeItems(list []any, f schema.Field, set *schema.Set) []any {
	items := set.ArrayItems(f)

	out := make([]any, len(list))
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			out[i] = item
			continue
		}

		if tag, _ := m[TypeKey].(string); tag != "" {
			if st, ok := set.Lookup(tag); ok {
				out[i] = Normalize(m, st, set)
				continue
			}
		} else if items.Kind == schema.ItemsSingle {
			if st, ok := set.Lookup(items.Single); ok {
				out[i] = Normalize(m, st, set)
				continue
			}
		}
		out[i] = copyMap(m)
	}
	return out
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
