package resolver

import (
	"time"

	"github.com/graphql-go/graphql"

	"github.com/artpar/contentgate/core/convention"
	"github.com/artpar/contentgate/core/schema"
	"github.com/artpar/contentgate/core/where"
	"github.com/artpar/contentgate/domain/document"
	"github.com/artpar/contentgate/pkg/gqlerror"
	"github.com/artpar/contentgate/ports"
)

// Root type names.
const (
	QueryType    = "Query"
	MutationType = "Mutation"
)

// roots registers the query and mutation fields of a document type.
func (f *factory) roots(st schema.SchemaType) {
	r := convention.Root(st.Name)

	f.m.add(QueryType, r.Single, f.instrument(st.Name, r.Single, f.single(st)))
	f.m.add(QueryType, r.List, f.instrument(st.Name, r.List, f.list(st)))

	f.m.add(MutationType, r.Create, f.instrument(st.Name, r.Create, f.create(st)))
	f.m.add(MutationType, r.Update, f.instrument(st.Name, r.Update, f.update(st)))
	f.m.add(MutationType, r.Delete, f.instrument(st.Name, r.Delete, f.delete(st)))
	f.m.add(MutationType, r.Publish, f.instrument(st.Name, r.Publish, f.publish(st)))
	f.m.add(MutationType, r.Unpublish, f.instrument(st.Name, r.Unpublish, f.unpublish(st)))
}

// instrument converts errors to API errors, then logs and records the call.
func (f *factory) instrument(typeName, field string, fn graphql.FieldResolveFn) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		start := time.Now()
		out, err := fn(p)
		elapsed := time.Since(start)

		if err != nil {
			gqlErr := gqlerror.From(err)
			evt := f.log.Debug()
			if gqlErr.Code == gqlerror.CodeInternal {
				evt = f.log.Error()
			}
			evt.Err(err).
				Str("type", typeName).
				Str("field", field).
				Str("code", string(gqlErr.Code)).
				Msg("resolve failed")
			err = gqlErr
		}

		f.metrics.ObserveResolve(typeName, field, elapsed, err)
		f.log.Debug().
			Str("type", typeName).
			Str("field", field).
			Dur("duration", elapsed).
			Msg("resolved")
		return out, err
	}
}

func (f *factory) collection(st schema.SchemaType) (ports.Collection, error) {
	c, ok := f.store.Collection(st)
	if !ok {
		return nil, gqlerror.NotFound(st.Name, "")
	}
	return c, nil
}

// perspective picks the argument, then the request default, then the
// configured default.
func (f *factory) perspective(p graphql.ResolveParams) document.Perspective {
	if s, ok := p.Args["perspective"].(string); ok {
		if persp, ok := document.ParsePerspective(s); ok {
			return persp
		}
	}
	if persp, ok := PerspectiveFrom(p.Context); ok {
		return persp
	}
	return f.defaults.Perspective
}

func (f *factory) depth(p graphql.ResolveParams) int {
	d, ok := p.Args["depth"].(int)
	if !ok {
		d = f.defaults.Depth
	}
	return clamp(d, 0, f.defaults.MaxDepth)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if hi > 0 && v > hi {
		return hi
	}
	return v
}

func (f *factory) single(st schema.SchemaType) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		c, err := f.collection(st)
		if err != nil {
			return nil, err
		}
		id, _ := p.Args["id"].(string)
		scope := Scope{Perspective: f.perspective(p), Depth: f.depth(p)}

		doc, err := c.FindByID(p.Context, id, ports.FindOptions{Perspective: scope.Perspective, Depth: scope.Depth})
		if err != nil || doc == nil {
			return nil, err
		}
		return f.payload(doc, st, scope), nil
	}
}

func (f *factory) list(st schema.SchemaType) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		c, err := f.collection(st)
		if err != nil {
			return nil, err
		}
		scope := Scope{Perspective: f.perspective(p), Depth: f.depth(p)}

		input, _ := p.Args["where"].(map[string]any)
		limit, ok := p.Args["limit"].(int)
		if !ok || limit <= 0 {
			limit = f.defaults.Limit
		}
		offset, _ := p.Args["offset"].(int)
		sort, _ := p.Args["sort"].(string)

		docs, err := c.Find(p.Context, ports.QueryOptions{
			Where:       where.Translate(input),
			Perspective: scope.Perspective,
			Limit:       clamp(limit, 1, f.defaults.MaxLimit),
			Offset:      max(offset, 0),
			Sort:        sort,
			Depth:       scope.Depth,
		})
		if err != nil {
			return nil, err
		}

		out := make([]any, len(docs))
		for i := range docs {
			out[i] = f.payload(&docs[i], st, scope)
		}
		return out, nil
	}
}

// data extracts the mutation payload argument.
func data(p graphql.ResolveParams) (map[string]any, error) {
	d, ok := p.Args["data"].(map[string]any)
	if !ok {
		return nil, gqlerror.BadRequest("data must be an object")
	}
	return d, nil
}

func (f *factory) create(st schema.SchemaType) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		c, err := f.collection(st)
		if err != nil {
			return nil, err
		}
		d, err := data(p)
		if err != nil {
			return nil, err
		}
		publish, _ := p.Args["publish"].(bool)

		doc, err := c.Create(p.Context, d, ports.WriteOptions{Publish: publish})
		if err != nil {
			return nil, err
		}
		return f.payload(doc, st, f.writeScope(document.PerspectiveDraft)), nil
	}
}

func (f *factory) update(st schema.SchemaType) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		c, err := f.collection(st)
		if err != nil {
			return nil, err
		}
		d, err := data(p)
		if err != nil {
			return nil, err
		}
		id, _ := p.Args["id"].(string)
		publish, _ := p.Args["publish"].(bool)

		doc, err := c.Update(p.Context, id, d, ports.WriteOptions{Publish: publish})
		if err != nil {
			return nil, err
		}
		if doc == nil {
			return nil, gqlerror.NotFound(st.Name, id)
		}
		return f.payload(doc, st, f.writeScope(document.PerspectiveDraft)), nil
	}
}

func (f *factory) delete(st schema.SchemaType) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		c, err := f.collection(st)
		if err != nil {
			return nil, err
		}
		id, _ := p.Args["id"].(string)

		ok, err := c.Delete(p.Context, id)
		if err != nil {
			return nil, err
		}
		return map[string]any{"success": ok}, nil
	}
}

func (f *factory) publish(st schema.SchemaType) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		c, err := f.collection(st)
		if err != nil {
			return nil, err
		}
		id, _ := p.Args["id"].(string)

		doc, err := c.Publish(p.Context, id)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			return nil, gqlerror.NotFound(st.Name, id)
		}
		return f.payload(doc, st, f.writeScope(document.PerspectivePublished)), nil
	}
}

func (f *factory) unpublish(st schema.SchemaType) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		c, err := f.collection(st)
		if err != nil {
			return nil, err
		}
		id, _ := p.Args["id"].(string)

		doc, err := c.Unpublish(p.Context, id)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			return nil, gqlerror.NotFound(st.Name, id)
		}
		return f.payload(doc, st, f.writeScope(document.PerspectiveDraft)), nil
	}
}

// writeScope is the scope of a mutation result.
func (f *factory) writeScope(p document.Perspective) Scope {
	return Scope{Perspective: p, Depth: f.defaults.Depth}
}
