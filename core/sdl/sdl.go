// Package sdl compiles a schema set into GraphQL SDL text.
// Output is deterministic: compiling the same set twice yields identical text.
package sdl

import (
	"fmt"
	"strings"

	"github.com/artpar/contentgate/core/convention"
	"github.com/artpar/contentgate/core/schema"
	"github.com/artpar/contentgate/core/validation"
	"github.com/artpar/contentgate/core/where"
)

// Scalar names used by generated types.
const (
	ScalarJSON = "JSON"
	ScalarID   = "ID"
)

// Filter input names.
const (
	StringFilter  = "StringFilter"
	NumberFilter  = "NumberFilter"
	BooleanFilter = "BooleanFilter"
	IDFilter      = "IDFilter"
)

// Compile emits the SDL for set using a fresh Namer.
func Compile(set *schema.Set) (string, error) {
	namer, err := convention.NewNamer(set)
	if err != nil {
		return "", err
	}
	return CompileWith(set, namer)
}

// CompileWith emits the SDL for set, drawing synthesized names from namer.
// Sharing the namer with the resolver factory keeps union member names
// and inline object names identical on both sides.
func CompileWith(set *schema.Set, namer *convention.Namer) (string, error) {
	c := &compiler{set: set, namer: namer}

	c.shared()
	for _, st := range set.Types() {
		if err := c.schemaType(st); err != nil {
			return "", err
		}
	}
	c.query()
	c.mutation()

	return strings.TrimRight(c.b.String(), "\n") + "\n", nil
}

type compiler struct {
	set   *schema.Set
	namer *convention.Namer
	b     strings.Builder
}

func (c *compiler) line(format string, args ...any) {
	fmt.Fprintf(&c.b, format, args...)
	c.b.WriteByte('\n')
}

func (c *compiler) shared() {
	c.line("scalar %s", ScalarJSON)
	c.line("")
	c.line("enum Perspective {")
	c.line("  draft")
	c.line("  published")
	c.line("}")
	c.line("")

	c.filter(StringFilter, "String", true)
	c.filter(NumberFilter, "Float", true)
	c.filter(BooleanFilter, "Boolean", false)
	c.filter(IDFilter, "ID", false)

	c.line("type DeleteResult {")
	c.line("  success: Boolean!")
	c.line("}")
	c.line("")
}

// filter emits one filter input. Operators follow the where package.
func (c *compiler) filter(name, scalar string, ordered bool) {
	c.line("input %s {", name)
	for _, op := range where.Ops {
		switch op {
		case where.OpEquals, where.OpNotEquals:
			c.line("  %s: %s", op, scalar)
		case where.OpIn, where.OpNotIn:
			if scalar != "Boolean" {
				c.line("  %s: [%s!]", op, scalar)
			}
		case where.OpContains, where.OpStartsWith, where.OpEndsWith, where.OpLike:
			if scalar == "String" {
				c.line("  %s: String", op)
			}
		case where.OpGreaterThan, where.OpGreaterThanEqual, where.OpLessThan, where.OpLessThanEqual:
			if ordered {
				c.line("  %s: %s", op, scalar)
			}
		case where.OpExists:
			c.line("  %s: Boolean", op)
		}
	}
	c.line("}")
	c.line("")
}

func (c *compiler) schemaType(st schema.SchemaType) error {
	owner := convention.Declared(st.Name)
	if err := c.object(owner, st.Fields, st.IsDocument()); err != nil {
		return err
	}
	if st.IsDocument() {
		c.whereInput(st)
		c.dataInput(st)
	}
	return nil
}

// object emits the object type of owner, then any inline object types and
// unions its fields need.
func (c *compiler) object(owner convention.Owner, fields []schema.Field, document bool) error {
	type pending struct {
		field string
		items schema.Items
		sub   []schema.Field
	}

	var lines []string
	var nested []pending
	if document {
		lines = append(lines,
			"id: ID!",
			"type: String!",
			"status: String!",
			"createdAt: String",
			"updatedAt: String",
			"publishedAt: String",
		)
	}

	for _, f := range fields {
		typ, err := c.outputType(owner, f)
		if err != nil {
			return err
		}
		lines = append(lines, fmt.Sprintf("%s: %s", f.Name, typ))

		switch f.Type {
		case schema.FieldTypeObject:
			nested = append(nested, pending{field: f.Name, sub: f.Fields})
		case schema.FieldTypeArray:
			if items := c.set.ArrayItems(f); items.Kind == schema.ItemsUnion {
				nested = append(nested, pending{field: f.Name, items: items})
			}
		}
	}

	c.line("type %s {", owner.TypeName())
	for _, l := range lines {
		c.line("  %s", l)
	}
	c.line("}")
	c.line("")

	for _, p := range nested {
		if p.items.Kind == schema.ItemsUnion {
			name, err := c.namer.Union(owner, p.field)
			if err != nil {
				return err
			}
			members := make([]string, len(p.items.Members))
			for i, m := range p.items.Members {
				members[i] = convention.TypeName(m.Name)
			}
			c.line("union %s = %s", name, strings.Join(members, " | "))
			c.line("")
			continue
		}
		if err := c.object(owner.Child(p.field), p.sub, false); err != nil {
			return err
		}
	}
	return nil
}

// outputType maps a field onto its output type reference.
func (c *compiler) outputType(owner convention.Owner, f schema.Field) (string, error) {
	switch f.Type {
	case schema.FieldTypeArray:
		items := c.set.ArrayItems(f)
		switch items.Kind {
		case schema.ItemsSingle:
			if st, ok := c.set.Lookup(items.Single); ok {
				return "[" + convention.TypeName(st.Name) + "]", nil
			}
			return "[" + ScalarType(schema.FieldType(items.Single)) + "]", nil
		case schema.ItemsUnion:
			name, err := c.namer.Union(owner, f.Name)
			if err != nil {
				return "", err
			}
			return "[" + name + "]", nil
		default:
			return "[" + ScalarJSON + "]", nil
		}
	case schema.FieldTypeObject:
		return c.namer.Object(owner, f.Name)
	case schema.FieldTypeReference:
		if target, ok := c.set.ReferenceTarget(f); ok {
			return convention.TypeName(target.Name), nil
		}
		return ScalarID, nil
	default:
		return ScalarType(f.Type), nil
	}
}

// ScalarType maps a primitive or image field type onto a scalar.
func ScalarType(t schema.FieldType) string {
	switch t {
	case schema.FieldTypeNumber:
		return "Float"
	case schema.FieldTypeBoolean:
		return "Boolean"
	case schema.FieldTypeImage:
		return ScalarJSON
	default:
		return "String"
	}
}

// FilterFor returns the filter input of a declared field, or "" when the
// field cannot be filtered.
func FilterFor(f schema.Field) string {
	switch {
	case f.Type.IsStringLike(), f.Type == schema.FieldTypeReference:
		return StringFilter
	case f.Type == schema.FieldTypeNumber:
		return NumberFilter
	case f.Type == schema.FieldTypeBoolean:
		return BooleanFilter
	default:
		return ""
	}
}

func (c *compiler) whereInput(st schema.SchemaType) {
	name := convention.WhereInput(st.Name)
	c.line("input %s {", name)
	c.line("  id: %s", IDFilter)
	c.line("  type: %s", StringFilter)
	c.line("  status: %s", StringFilter)
	c.line("  createdAt: %s", StringFilter)
	c.line("  updatedAt: %s", StringFilter)
	c.line("  publishedAt: %s", StringFilter)
	for _, f := range st.Fields {
		if filter := FilterFor(f); filter != "" {
			c.line("  %s: %s", f.Name, filter)
		}
	}
	c.line("  AND: [%s!]", name)
	c.line("  OR: [%s!]", name)
	c.line("}")
	c.line("")
}

// DataType maps a field onto its mutation input type, without nullability.
func DataType(f schema.Field) string {
	switch {
	case f.Type.IsPrimitive():
		return ScalarType(f.Type)
	case f.Type == schema.FieldTypeReference:
		return ScalarID
	default:
		return ScalarJSON
	}
}

func (c *compiler) dataInput(st schema.SchemaType) {
	c.line("input %s {", convention.DataInput(st.Name))
	for _, f := range st.Fields {
		typ := DataType(f)
		if validation.Evaluate(f.Validation).IsRequired() {
			typ += "!"
		}
		c.line("  %s: %s", f.Name, typ)
	}
	c.line("}")
	c.line("")
}

func (c *compiler) query() {
	docs := c.set.Documents()

	c.line("type Query {")
	if len(docs) == 0 {
		c.line("  _schema: String")
	}
	for _, st := range docs {
		t := convention.TypeName(st.Name)
		root := convention.Root(st.Name)
		c.line("  %s(id: ID!, perspective: Perspective, depth: Int): %s", root.Single, t)
		c.line("  %s(where: %s, perspective: Perspective, limit: Int, offset: Int, sort: String, depth: Int): [%s!]!",
			root.List, convention.WhereInput(st.Name), t)
	}
	c.line("}")
	c.line("")
}

func (c *compiler) mutation() {
	docs := c.set.Documents()
	if len(docs) == 0 {
		return
	}

	c.line("type Mutation {")
	for _, st := range docs {
		t := convention.TypeName(st.Name)
		data := convention.DataInput(st.Name)
		root := convention.Root(st.Name)
		c.line("  %s(data: %s!, publish: Boolean): %s!", root.Create, data, t)
		c.line("  %s(id: ID!, data: %s!, publish: Boolean): %s!", root.Update, data, t)
		c.line("  %s(id: ID!): DeleteResult!", root.Delete)
		c.line("  %s(id: ID!): %s!", root.Publish, t)
		c.line("  %s(id: ID!): %s!", root.Unpublish, t)
	}
	c.line("}")
	c.line("")
}
