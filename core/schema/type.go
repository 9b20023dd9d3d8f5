package schema

// Kind distinguishes stored documents from reusable object shapes.
type Kind string

const (
	KindDocument Kind = "document"
	KindObject   Kind = "object"
)

// SchemaType is the root definition of a content type.
type SchemaType struct {
	// Kind is document or object.
	Kind Kind `yaml:"kind"`

	// Name is the unique type name (e.g., "page", "textBlock").
	Name string `yaml:"name"`

	// Title is the human-readable label.
	Title string `yaml:"title,omitempty"`

	// Fields are the declared fields in order.
	Fields []Field `yaml:"fields"`
}

// IsDocument reports whether the type is stored independently.
func (t SchemaType) IsDocument() bool {
	return t.Kind == KindDocument
}

// Field returns the declared field with the given name.
func (t SchemaType) Field(name string) (Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Inline builds a synthetic object type from an inline object field.
func Inline(name string, f Field) SchemaType {
	return SchemaType{
		Kind:   KindObject,
		Name:   name,
		Title:  f.Title,
		Fields: f.Fields,
	}
}
