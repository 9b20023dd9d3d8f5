// Package executable turns compiled SDL plus a resolver map into a
// graphql-go schema and runs requests against it.
package executable

import (
	"context"
	"fmt"
	"sort"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
	"github.com/rs/zerolog"

	"github.com/artpar/contentgate/core/resolver"
	"github.com/artpar/contentgate/core/sdl"
)

// Request is a GraphQL request as received over HTTP.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// Build parses source and builds the executable schema. Object fields with
// an entry in m get that resolver; all others read the field from the
// source map. Union types resolve through m.Unions.
func Build(source string, m *resolver.Map, log zerolog.Logger) (graphql.Schema, error) {
	doc, err := parser.Parse(parser.ParseParams{Source: source})
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("parse sdl: %w", err)
	}

	b := &builder{
		m:   m,
		log: log.With().Str("component", "executable").Logger(),
		named: map[string]graphql.Type{
			"String":  graphql.String,
			"Int":     graphql.Int,
			"Float":   graphql.Float,
			"Boolean": graphql.Boolean,
			"ID":      graphql.ID,
		},
		objects: make(map[string]*graphql.Object),
	}

	if err := b.declare(doc); err != nil {
		return graphql.Schema{}, err
	}
	if err := b.check(doc); err != nil {
		return graphql.Schema{}, err
	}
	b.unions(doc)

	query, ok := b.objects[resolver.QueryType]
	if !ok {
		return graphql.Schema{}, fmt.Errorf("sdl declares no %s type", resolver.QueryType)
	}
	cfg := graphql.SchemaConfig{Query: query, Types: b.types()}
	if mutation, ok := b.objects[resolver.MutationType]; ok {
		cfg.Mutation = mutation
	}

	schema, err := graphql.NewSchema(cfg)
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("build schema: %w", err)
	}
	return schema, nil
}

// Execute runs req against schema.
func Execute(ctx context.Context, schema graphql.Schema, req Request) *graphql.Result {
	return graphql.Do(graphql.Params{
		Schema:         schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        ctx,
	})
}

type builder struct {
	m       *resolver.Map
	log     zerolog.Logger
	named   map[string]graphql.Type
	objects map[string]*graphql.Object
}

// declare creates every named type except unions. Fields are thunks, so
// types may refer to each other in any order.
func (b *builder) declare(doc *ast.Document) error {
	for _, def := range doc.Definitions {
		switch d := def.(type) {
		case *ast.ScalarDefinition:
			if d.Name.Value != sdl.ScalarJSON {
				return fmt.Errorf("unsupported scalar %q", d.Name.Value)
			}
			b.named[d.Name.Value] = JSON

		case *ast.EnumDefinition:
			values := graphql.EnumValueConfigMap{}
			for _, v := range d.Values {
				values[v.Name.Value] = &graphql.EnumValueConfig{Value: v.Name.Value}
			}
			b.named[d.Name.Value] = graphql.NewEnum(graphql.EnumConfig{
				Name:   d.Name.Value,
				Values: values,
			})

		case *ast.ObjectDefinition:
			obj := graphql.NewObject(graphql.ObjectConfig{
				Name:   d.Name.Value,
				Fields: b.objectFields(d),
			})
			b.named[d.Name.Value] = obj
			b.objects[d.Name.Value] = obj

		case *ast.InputObjectDefinition:
			b.named[d.Name.Value] = graphql.NewInputObject(graphql.InputObjectConfig{
				Name:   d.Name.Value,
				Fields: b.inputFields(d),
			})

		case *ast.UnionDefinition:
			// Built once all objects exist.

		default:
			return fmt.Errorf("unsupported definition %T", def)
		}
	}
	return nil
}

// check verifies every type reference names a declared type, so the field
// thunks never meet an unknown name.
func (b *builder) check(doc *ast.Document) error {
	known := func(name string) bool {
		if _, ok := b.named[name]; ok {
			return true
		}
		for _, def := range doc.Definitions {
			if u, ok := def.(*ast.UnionDefinition); ok && u.Name.Value == name {
				return true
			}
		}
		return false
	}

	ref := func(owner string, t ast.Type) error {
		if name := namedOf(t); !known(name) {
			return fmt.Errorf("%s: unknown type %q", owner, name)
		}
		return nil
	}

	for _, def := range doc.Definitions {
		switch d := def.(type) {
		case *ast.ObjectDefinition:
			for _, f := range d.Fields {
				if err := ref(d.Name.Value+"."+f.Name.Value, f.Type); err != nil {
					return err
				}
				for _, a := range f.Arguments {
					if err := ref(d.Name.Value+"."+f.Name.Value, a.Type); err != nil {
						return err
					}
				}
			}
		case *ast.InputObjectDefinition:
			for _, f := range d.Fields {
				if err := ref(d.Name.Value+"."+f.Name.Value, f.Type); err != nil {
					return err
				}
			}
		case *ast.UnionDefinition:
			for _, t := range d.Types {
				if _, ok := b.objects[t.Name.Value]; !ok {
					return fmt.Errorf("union %s: member %q is not an object type", d.Name.Value, t.Name.Value)
				}
			}
		}
	}
	return nil
}

func (b *builder) unions(doc *ast.Document) {
	for _, def := range doc.Definitions {
		d, ok := def.(*ast.UnionDefinition)
		if !ok {
			continue
		}
		members := make([]*graphql.Object, len(d.Types))
		for i, t := range d.Types {
			members[i] = b.objects[t.Name.Value]
		}
		b.named[d.Name.Value] = graphql.NewUnion(graphql.UnionConfig{
			Name:        d.Name.Value,
			Types:       members,
			ResolveType: b.resolveType(d.Name.Value),
		})
	}
}

// resolveType adapts a union TypeResolver. graphql-go reports a nil object
// as a field error, which is how unknown variants surface.
func (b *builder) resolveType(union string) graphql.ResolveTypeFn {
	resolve, ok := b.m.Unions[union]
	return func(p graphql.ResolveTypeParams) *graphql.Object {
		if !ok {
			b.log.Error().Str("union", union).Msg("no type resolver registered")
			return nil
		}
		name, err := resolve(p.Value)
		if err != nil {
			b.log.Warn().Err(err).Str("union", union).Msg("union element did not resolve")
			return nil
		}
		return b.objects[name]
	}
}

func (b *builder) objectFields(d *ast.ObjectDefinition) graphql.FieldsThunk {
	return func() graphql.Fields {
		typeName := d.Name.Value
		fields := graphql.Fields{}
		for _, f := range d.Fields {
			field := &graphql.Field{
				Name:    f.Name.Value,
				Type:    b.typeOf(f.Type).(graphql.Output),
				Resolve: b.m.Field(typeName, f.Name.Value),
			}
			if len(f.Arguments) > 0 {
				field.Args = graphql.FieldConfigArgument{}
				for _, a := range f.Arguments {
					field.Args[a.Name.Value] = &graphql.ArgumentConfig{
						Type: b.typeOf(a.Type).(graphql.Input),
					}
				}
			}
			fields[f.Name.Value] = field
		}
		return fields
	}
}

func (b *builder) inputFields(d *ast.InputObjectDefinition) graphql.InputObjectConfigFieldMapThunk {
	return func() graphql.InputObjectConfigFieldMap {
		fields := graphql.InputObjectConfigFieldMap{}
		for _, f := range d.Fields {
			fields[f.Name.Value] = &graphql.InputObjectFieldConfig{
				Type: b.typeOf(f.Type).(graphql.Input),
			}
		}
		return fields
	}
}

// typeOf maps an AST type reference onto a graphql-go type.
func (b *builder) typeOf(t ast.Type) graphql.Type {
	switch t := t.(type) {
	case *ast.NonNull:
		return graphql.NewNonNull(b.typeOf(t.Type))
	case *ast.List:
		return graphql.NewList(b.typeOf(t.Type))
	case *ast.Named:
		return b.named[t.Name.Value]
	}
	return nil
}

// types lists the named types in name order so introspection is stable.
func (b *builder) types() []graphql.Type {
	names := make([]string, 0, len(b.named))
	for name := range b.named {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]graphql.Type, 0, len(names))
	for _, name := range names {
		out = append(out, b.named[name])
	}
	return out
}

func namedOf(t ast.Type) string {
	switch t := t.(type) {
	case *ast.NonNull:
		return namedOf(t.Type)
	case *ast.List:
		return namedOf(t.Type)
	case *ast.Named:
		return t.Name.Value
	}
	return ""
}
