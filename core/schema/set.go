package schema

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Set is an immutable, name-indexed collection of content types.
type Set struct {
	types  []SchemaType
	byName map[string]int
}

// NewSet validates the given types and builds a Set.
// Types are ordered by name regardless of input order.
func NewSet(types ...SchemaType) (*Set, error) {
	var errs []string

	sorted := make([]SchemaType, len(types))
	copy(sorted, types)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	s := &Set{
		types:  sorted,
		byName: make(map[string]int, len(sorted)),
	}

	for i, t := range sorted {
		if err := Validate(t); err != nil {
			errs = append(errs, err.Error())
		}
		if _, exists := s.byName[t.Name]; exists {
			errs = append(errs, fmt.Sprintf("type %q declared more than once", t.Name))
			continue
		}
		s.byName[t.Name] = i
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid schema:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return s, nil
}

// Lookup returns the type with the given name.
func (s *Set) Lookup(name string) (SchemaType, bool) {
	if s == nil {
		return SchemaType{}, false
	}
	i, ok := s.byName[name]
	if !ok {
		return SchemaType{}, false
	}
	return s.types[i], true
}

// Len returns the number of types.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.types)
}

// Types returns all types ordered by name.
func (s *Set) Types() []SchemaType {
	if s == nil {
		return nil
	}
	out := make([]SchemaType, len(s.types))
	copy(out, s.types)
	return out
}

// Documents returns the document types ordered by name.
func (s *Set) Documents() []SchemaType {
	if s == nil {
		return nil
	}
	var out []SchemaType
	for _, t := range s.types {
		if t.IsDocument() {
			out = append(out, t)
		}
	}
	return out
}

// Resolve returns the declared types named by refs, in declaration order,
// without duplicates. Unknown names are skipped.
func (s *Set) Resolve(refs []TypeReference) []SchemaType {
	var out []SchemaType
	seen := make(map[string]bool)
	for _, ref := range refs {
		if seen[ref.Type] {
			continue
		}
		t, ok := s.Lookup(ref.Type)
		if !ok {
			continue
		}
		seen[ref.Type] = true
		out = append(out, t)
	}
	return out
}

// ReferenceTarget returns the target of a reference field when exactly one
// declared type is reachable through its to list.
func (s *Set) ReferenceTarget(f Field) (SchemaType, bool) {
	if f.Type != FieldTypeReference {
		return SchemaType{}, false
	}
	targets := s.Resolve(f.To)
	if len(targets) != 1 {
		return SchemaType{}, false
	}
	return targets[0], true
}

// ItemsKind classifies the item shape of an array field.
type ItemsKind int

const (
	// ItemsOpaque means no usable item type is known.
	ItemsOpaque ItemsKind = iota

	// ItemsSingle means exactly one valid item type.
	ItemsSingle

	// ItemsUnion means several valid item types, discriminated by tag.
	ItemsUnion
)

// Items describes how an array field's elements are typed.
type Items struct {
	Kind ItemsKind

	// Single is the item type name for ItemsSingle. It is either a declared
	// SchemaType name or a scalar field type name.
	Single string

	// Members are the declared types of a union, in declaration order.
	Members []SchemaType
}

// ArrayItems classifies an array field against the set.
// An entry is valid when it names a declared type or a scalar field type.
func (s *Set) ArrayItems(f Field) Items {
	var valid []string
	seen := make(map[string]bool)
	for _, ref := range f.Of {
		if seen[ref.Type] {
			continue
		}
		if _, ok := s.Lookup(ref.Type); ok || IsScalarItem(ref.Type) {
			seen[ref.Type] = true
			valid = append(valid, ref.Type)
		}
	}

	switch {
	case len(valid) == 1:
		return Items{Kind: ItemsSingle, Single: valid[0]}
	case len(valid) > 1:
		members := s.Resolve(f.Of)
		if len(members) == 0 {
			return Items{Kind: ItemsOpaque}
		}
		return Items{Kind: ItemsUnion, Members: members}
	default:
		return Items{Kind: ItemsOpaque}
	}
}

// UnresolvedRef records a type reference that names no declared type.
type UnresolvedRef struct {
	// Path is the dotted field path, starting with the owning type.
	Path string

	// Target is the unresolved name.
	Target string
}

func (u UnresolvedRef) String() string {
	return fmt.Sprintf("%s -> %s", u.Path, u.Target)
}

// Unresolved lists every of/to reference that does not resolve.
// Scalar item names in of lists are not reported.
func (s *Set) Unresolved() []UnresolvedRef {
	if s == nil {
		return nil
	}
	var out []UnresolvedRef
	for _, t := range s.types {
		out = s.collectUnresolved(out, t.Name, t.Fields)
	}
	return out
}

func (s *Set) collectUnresolved(out []UnresolvedRef, path string, fields []Field) []UnresolvedRef {
	for _, f := range fields {
		fieldPath := path + "." + f.Name
		for _, ref := range f.Of {
			if _, ok := s.Lookup(ref.Type); !ok && !IsScalarItem(ref.Type) {
				out = append(out, UnresolvedRef{Path: fieldPath, Target: ref.Type})
			}
		}
		for _, ref := range f.To {
			if _, ok := s.Lookup(ref.Type); !ok {
				out = append(out, UnresolvedRef{Path: fieldPath, Target: ref.Type})
			}
		}
		if f.Type == FieldTypeObject {
			out = s.collectUnresolved(out, fieldPath, f.Fields)
		}
	}
	return out
}

// Canonical returns a stable serialization of the set, used for content hashing.
func (s *Set) Canonical() ([]byte, error) {
	data, err := yaml.Marshal(struct {
		Types []SchemaType `yaml:"types"`
	}{Types: s.Types()})
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}
	return data, nil
}
