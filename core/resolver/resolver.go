// Package resolver builds GraphQL field resolvers for a schema set.
// Resolvers are plain graphql-go functions keyed by type and field name,
// so the executable schema can attach them to types parsed from SDL.
package resolver

import (
	"fmt"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/rs/zerolog"

	"github.com/artpar/contentgate/core/convention"
	"github.com/artpar/contentgate/core/normalize"
	"github.com/artpar/contentgate/core/schema"
	"github.com/artpar/contentgate/domain/document"
	"github.com/artpar/contentgate/ports"
)

// Defaults holds query defaults and limits.
type Defaults struct {
	Perspective document.Perspective
	Depth       int
	MaxDepth    int
	Limit       int
	MaxLimit    int
}

// DefaultDefaults returns the built-in query defaults.
func DefaultDefaults() Defaults {
	return Defaults{
		Perspective: document.PerspectivePublished,
		Depth:       2,
		MaxDepth:    5,
		Limit:       20,
		MaxLimit:    100,
	}
}

// Deps carries the collaborators resolvers call.
type Deps struct {
	Store    ports.DocumentStore
	Logger   zerolog.Logger
	Metrics  ports.ResolverMetrics
	Defaults Defaults
}

// TypeResolver maps a union element to the name of its object type.
type TypeResolver func(value any) (string, error)

// UnknownVariantError reports a union element whose tag names no member.
type UnknownVariantError struct {
	Union string
	Tag   string
}

func (e *UnknownVariantError) Error() string {
	if e.Tag == "" {
		return fmt.Sprintf("union %s: element has no %s tag", e.Union, normalize.TypeKey)
	}
	return fmt.Sprintf("union %s: unknown variant %q", e.Union, e.Tag)
}

// Map holds the built resolvers.
type Map struct {
	// Fields maps type name, then field name, to a resolver.
	Fields map[string]map[string]graphql.FieldResolveFn

	// Unions maps union name to its type resolver.
	Unions map[string]TypeResolver
}

// Field returns the resolver of typeName.field, or nil.
func (m *Map) Field(typeName, field string) graphql.FieldResolveFn {
	return m.Fields[typeName][field]
}

func (m *Map) add(typeName, field string, fn graphql.FieldResolveFn) {
	fields, ok := m.Fields[typeName]
	if !ok {
		fields = make(map[string]graphql.FieldResolveFn)
		m.Fields[typeName] = fields
	}
	fields[field] = fn
}

// factory holds what every resolver closes over.
type factory struct {
	set      *schema.Set
	namer    *convention.Namer
	store    ports.DocumentStore
	log      zerolog.Logger
	metrics  ports.ResolverMetrics
	defaults Defaults
	m        *Map
}

// Build creates the resolvers for set. Names come from namer, which must
// be the namer the SDL was compiled with.
func Build(set *schema.Set, namer *convention.Namer, deps Deps) (*Map, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("resolver: document store is required")
	}
	if deps.Metrics == nil {
		deps.Metrics = nopMetrics{}
	}
	if deps.Defaults == (Defaults{}) {
		deps.Defaults = DefaultDefaults()
	}

	f := &factory{
		set:      set,
		namer:    namer,
		store:    deps.Store,
		log:      deps.Logger.With().Str("component", "resolver").Logger(),
		metrics:  deps.Metrics,
		defaults: deps.Defaults,
		m: &Map{
			Fields: make(map[string]map[string]graphql.FieldResolveFn),
			Unions: make(map[string]TypeResolver),
		},
	}

	for _, st := range set.Documents() {
		f.roots(st)
	}
	for _, st := range set.Types() {
		if err := f.walk(convention.Declared(st.Name), st.Fields); err != nil {
			return nil, err
		}
	}
	return f.m, nil
}

// walk registers reference resolvers and union type resolvers for the
// fields of owner, recursing into inline objects.
func (f *factory) walk(owner convention.Owner, fields []schema.Field) error {
	for _, fd := range fields {
		switch fd.Type {
		case schema.FieldTypeReference:
			if target, ok := f.set.ReferenceTarget(fd); ok {
				f.m.add(owner.TypeName(), fd.Name, f.reference(owner.TypeName(), fd.Name, target))
			}
		case schema.FieldTypeArray:
			items := f.set.ArrayItems(fd)
			if items.Kind != schema.ItemsUnion {
				continue
			}
			name, err := f.namer.Union(owner, fd.Name)
			if err != nil {
				return err
			}
			f.m.Unions[name] = unionResolver(name, items.Members)
		case schema.FieldTypeObject:
			if _, err := f.namer.Object(owner, fd.Name); err != nil {
				return err
			}
			if err := f.walk(owner.Child(fd.Name), fd.Fields); err != nil {
				return err
			}
		}
	}
	return nil
}

func unionResolver(union string, members []schema.SchemaType) TypeResolver {
	byTag := make(map[string]string, len(members))
	for _, m := range members {
		byTag[m.Name] = convention.TypeName(m.Name)
	}
	return func(value any) (string, error) {
		m, _ := value.(map[string]any)
		tag, _ := m[normalize.TypeKey].(string)
		name, ok := byTag[tag]
		if !ok {
			return "", &UnknownVariantError{Union: union, Tag: tag}
		}
		return name, nil
	}
}

// payload shapes a document for output: normalized declared fields plus the
// envelope and the hidden scope. Store metadata is dropped.
func (f *factory) payload(doc *document.Document, st schema.SchemaType, scope Scope) map[string]any {
	fields := make(map[string]any, len(st.Fields))
	for _, fd := range st.Fields {
		if v, ok := doc.Fields[fd.Name]; ok {
			fields[fd.Name] = v
		}
	}
	out := normalize.Normalize(fields, st, f.set)

	status := doc.Status
	if status == "" {
		status = document.Status(scope.Perspective)
	}
	out[document.FieldID] = doc.ID
	out[document.FieldType] = doc.Type
	out[document.FieldStatus] = string(status)
	out[document.FieldCreatedAt] = formatTime(doc.CreatedAt)
	out[document.FieldUpdatedAt] = formatTime(doc.UpdatedAt)
	if doc.PublishedAt != nil {
		out[document.FieldPublishedAt] = document.FormatTime(*doc.PublishedAt)
	} else {
		out[document.FieldPublishedAt] = nil
	}

	stamp(out, st.Fields, f.set, scope)
	return out
}

func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return document.FormatTime(t)
}

type nopMetrics struct{}

func (nopMetrics) ObserveResolve(string, string, time.Duration, error) {}
func (nopMetrics) ReferenceFailed(string, string)                      {}
