package convention

import (
	"fmt"

	"github.com/artpar/contentgate/core/schema"
)

// CollisionError reports two distinct schema paths that flatten to the same
// API type name.
type CollisionError struct {
	Name   string
	First  string
	Second string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("type name %q produced by both %s and %s", e.Name, e.First, e.Second)
}

// Namer hands out synthesized type names. Claims are keyed by the full path
// tuple; a flat name is only shared by the path that claimed it first.
type Namer struct {
	// claims maps a flat name to the path that owns it.
	claims map[string]string
}

// NewNamer registers the names of all declared types in the set.
func NewNamer(set *schema.Set) (*Namer, error) {
	n := &Namer{claims: make(map[string]string)}

	for _, name := range Builtins {
		n.claims[name] = "builtin " + name
	}

	for _, st := range set.Types() {
		if err := n.claim(TypeName(st.Name), "type "+st.Name); err != nil {
			return nil, err
		}
		if st.IsDocument() {
			if err := n.claim(WhereInput(st.Name), "where input of "+st.Name); err != nil {
				return nil, err
			}
			if err := n.claim(DataInput(st.Name), "data input of "+st.Name); err != nil {
				return nil, err
			}
		}
	}

	return n, nil
}

// Object returns the type name of an inline object field.
func (n *Namer) Object(o Owner, field string) (string, error) {
	return n.synthesize(o, field, SuffixObject)
}

// Union returns the union name of a heterogeneous array field.
func (n *Namer) Union(o Owner, field string) (string, error) {
	return n.synthesize(o, field, SuffixItem)
}

func (n *Namer) synthesize(o Owner, field string, suffix Suffix) (string, error) {
	name := o.TypeName() + Capitalize(field) + string(suffix)
	key := fmt.Sprintf("%s field %s.%s", suffix, o, field)
	if err := n.claim(name, key); err != nil {
		return "", err
	}
	return name, nil
}

func (n *Namer) claim(name, key string) error {
	if existing, ok := n.claims[name]; ok {
		if existing == key {
			return nil
		}
		return &CollisionError{Name: name, First: existing, Second: key}
	}
	n.claims[name] = key
	return nil
}
