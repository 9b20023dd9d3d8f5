package resolver

import (
	"context"
	"fmt"

	"github.com/graphql-go/graphql"

	"github.com/artpar/contentgate/core/schema"
	"github.com/artpar/contentgate/domain/document"
)

// reference resolves a single-target reference field. Failures resolve to
// null so sibling fields still resolve; they are logged and counted.
func (f *factory) reference(ownerType, field string, target schema.SchemaType) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (out any, err error) {
		src, _ := p.Source.(map[string]any)
		id, _ := src[field].(string)
		if id == "" {
			return nil, nil
		}

		log := f.log.With().
			Str("type", ownerType).
			Str("field", field).
			Str("id", id).
			Logger()

		defer func() {
			if r := recover(); r != nil {
				log.Error().Str("panic", fmt.Sprint(r)).Msg("reference resolver panicked")
				f.metrics.ReferenceFailed(ownerType, field)
				out, err = nil, nil
			}
		}()

		scope := f.scopeOf(p.Context, src)
		if scope.Depth <= 0 {
			return nil, nil
		}

		row, err := f.store.Lookup(p.Context, id)
		if err != nil {
			log.Warn().Err(err).Msg("reference lookup failed")
			f.metrics.ReferenceFailed(ownerType, field)
			return nil, nil
		}
		if row == nil {
			log.Debug().Msg("reference target not found")
			return nil, nil
		}
		if row.Type != target.Name {
			log.Debug().Str("target_type", row.Type).Msg("reference target has unexpected type")
			return nil, nil
		}

		doc := row.View(scope.Perspective)
		if doc == nil {
			return nil, nil
		}
		st, ok := f.set.Lookup(row.Type)
		if !ok {
			return nil, nil
		}
		return f.payload(doc, st, Scope{Perspective: scope.Perspective, Depth: scope.Depth - 1}), nil
	}
}

// scopeOf returns the scope a reference on src resolves under. A stamped
// scope wins. Without one, an explicit draft or published status on src
// beats the request perspective, which beats the configured default.
func (f *factory) scopeOf(ctx context.Context, src map[string]any) Scope {
	if scope, ok := src[ScopeKey].(Scope); ok {
		return scope
	}

	scope := Scope{Perspective: f.defaults.Perspective, Depth: f.defaults.Depth}
	if persp, ok := PerspectiveFrom(ctx); ok {
		scope.Perspective = persp
	}
	if status, ok := src[document.FieldStatus].(string); ok {
		if persp, ok := document.ParsePerspective(status); ok {
			scope.Perspective = persp
		}
	}
	return scope
}
