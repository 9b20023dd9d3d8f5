package resolver

import (
	"context"

	"github.com/artpar/contentgate/core/normalize"
	"github.com/artpar/contentgate/core/schema"
	"github.com/artpar/contentgate/domain/document"
)

// ScopeKey is the hidden payload key carrying the resolution scope.
// GraphQL reserves the "__" prefix, so it can never be selected.
const ScopeKey = "__scope"

// Scope is the perspective and remaining reference depth a payload was
// resolved under. Nested reference resolvers inherit it.
type Scope struct {
	Perspective document.Perspective
	Depth       int
}

type perspectiveKey struct{}

// WithPerspective sets the request-wide default perspective.
func WithPerspective(ctx context.Context, p document.Perspective) context.Context {
	return context.WithValue(ctx, perspectiveKey{}, p)
}

// PerspectiveFrom returns the request-wide perspective, if set.
func PerspectiveFrom(ctx context.Context) (document.Perspective, bool) {
	if ctx == nil {
		return "", false
	}
	p, ok := ctx.Value(perspectiveKey{}).(document.Perspective)
	return p, ok && p != ""
}

// stamp writes scope into payload and into every nested map that resolves
// as an object type: inline objects and typed array elements. JSON-typed
// values are left alone so the key never leaks into opaque output.
func stamp(payload map[string]any, fields []schema.Field, set *schema.Set, scope Scope) {
	payload[ScopeKey] = scope

	for _, f := range fields {
		switch f.Type {
		case schema.FieldTypeObject:
			if m, ok := payload[f.Name].(map[string]any); ok {
				stamp(m, f.Fields, set, scope)
			}
		case schema.FieldTypeArray:
			list, ok := payload[f.Name].([]any)
			if !ok {
				continue
			}
			items := set.ArrayItems(f)
			for _, item := range list {
				m, ok := item.(map[string]any)
				if !ok {
					continue
				}
				if st, ok := itemType(m, items, set); ok {
					stamp(m, st.Fields, set, scope)
				}
			}
		}
	}
}

// itemType returns the declared type an array element resolves as.
func itemType(m map[string]any, items schema.Items, set *schema.Set) (schema.SchemaType, bool) {
	switch items.Kind {
	case schema.ItemsSingle:
		return set.Lookup(items.Single)
	case schema.ItemsUnion:
		tag, _ := m[normalize.TypeKey].(string)
		for _, member := range items.Members {
			if member.Name == tag {
				return member, true
			}
		}
	}
	return schema.SchemaType{}, false
}
