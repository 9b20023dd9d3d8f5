// Package convention derives the names of generated API types and fields
// from content type definitions. The SDL compiler and the resolver factory
// both take names from here so the two never diverge.
package convention

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Capitalize upper-cases the first rune of s.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// TypeName returns the API type name of a declared content type.
func TypeName(name string) string {
	return Capitalize(name)
}

// Suffix distinguishes the kinds of synthesized types.
type Suffix string

const (
	// SuffixObject names inline object field types.
	SuffixObject Suffix = "Object"

	// SuffixItem names the union of a heterogeneous array field.
	SuffixItem Suffix = "Item"
)

// Input type suffixes for document types.
const (
	SuffixWhere = "Where"
	SuffixData  = "Data"
)

// Builtins are type names the generated API always declares.
var Builtins = []string{
	"Query", "Mutation",
	"String", "Int", "Float", "Boolean", "ID", "JSON",
	"Perspective", "DeleteResult",
	"StringFilter", "NumberFilter", "BooleanFilter", "IDFilter",
}

// WhereInput returns the filter input name of a document type.
func WhereInput(name string) string {
	return TypeName(name) + SuffixWhere
}

// DataInput returns the mutation input name of a document type.
func DataInput(name string) string {
	return TypeName(name) + SuffixData
}

// RootFields holds the query and mutation field names of a document type.
type RootFields struct {
	Single    string
	List      string
	Create    string
	Update    string
	Delete    string
	Publish   string
	Unpublish string
}

// Root derives the root field names of a document type.
//
//	page -> page, allPage, createPage, updatePage, deletePage, publishPage, unpublishPage
func Root(name string) RootFields {
	t := TypeName(name)
	return RootFields{
		Single:    name,
		List:      "all" + t,
		Create:    "create" + t,
		Update:    "update" + t,
		Delete:    "delete" + t,
		Publish:   "publish" + t,
		Unpublish: "unpublish" + t,
	}
}

// Owner identifies the type that owns a field: a declared type, or an
// inline object nested under it by a field path.
type Owner struct {
	// Root is the declared type name.
	Root string

	// Path is the chain of inline object fields below Root.
	Path []string
}

// Declared returns the owner for a declared type.
func Declared(name string) Owner {
	return Owner{Root: name}
}

// Child returns the owner of fields inside the inline object field.
func (o Owner) Child(field string) Owner {
	path := make([]string, len(o.Path), len(o.Path)+1)
	copy(path, o.Path)
	return Owner{Root: o.Root, Path: append(path, field)}
}

// TypeName flattens the owner to its API type name.
func (o Owner) TypeName() string {
	var b strings.Builder
	b.WriteString(TypeName(o.Root))
	for _, seg := range o.Path {
		b.WriteString(Capitalize(seg))
		b.WriteString(string(SuffixObject))
	}
	return b.String()
}

// String renders the owner as a dotted path.
func (o Owner) String() string {
	if len(o.Path) == 0 {
		return o.Root
	}
	return o.Root + "." + strings.Join(o.Path, ".")
}
