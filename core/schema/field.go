package schema

// Field defines a single field of a content type.
type Field struct {
	// Name is the field key in stored documents.
	Name string `yaml:"name"`

	// Type is the field type. See FieldType constants.
	Type FieldType `yaml:"type"`

	// Title is the human-readable label.
	Title string `yaml:"title,omitempty"`

	// Validation is the declarative rule chain for this field.
	Validation []Rule `yaml:"validation,omitempty"`

	// Of lists the allowed item types for array fields.
	Of []TypeReference `yaml:"of,omitempty"`

	// Fields declares the inline shape of object fields.
	Fields []Field `yaml:"fields,omitempty"`

	// To lists the allowed target types for reference fields.
	To []TypeReference `yaml:"to,omitempty"`
}

// TypeReference points at another type by name.
// It may name a declared SchemaType or a primitive field type.
type TypeReference struct {
	Type string `yaml:"type"`
}

// Rule is one link of a field validation chain.
type Rule struct {
	// Rule is the rule name (required, min, max, min_length, max_length, pattern, one_of).
	Rule string `yaml:"rule"`

	// Value is the rule parameter.
	Value any `yaml:"value,omitempty"`

	// When makes the rule conditional. Conditional rules never make a
	// field required in the generated API.
	When string `yaml:"when,omitempty"`

	// Message overrides the default failure message.
	Message string `yaml:"message,omitempty"`
}

// FieldType represents the type of a schema field.
type FieldType string

const (
	// Primitive types
	FieldTypeString  FieldType = "string"
	FieldTypeText    FieldType = "text"
	FieldTypeNumber  FieldType = "number"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeSlug    FieldType = "slug"

	// Opaque asset
	FieldTypeImage FieldType = "image"

	// Structural types
	FieldTypeArray     FieldType = "array"     // Requires Of
	FieldTypeObject    FieldType = "object"    // Requires Fields
	FieldTypeReference FieldType = "reference" // Requires To
)

// IsPrimitive reports whether the type maps to a scalar.
func (t FieldType) IsPrimitive() bool {
	switch t {
	case FieldTypeString, FieldTypeText, FieldTypeNumber, FieldTypeBoolean, FieldTypeSlug:
		return true
	default:
		return false
	}
}

// IsStringLike reports whether values of this type are strings.
func (t FieldType) IsStringLike() bool {
	return t == FieldTypeString || t == FieldTypeText || t == FieldTypeSlug
}

// IsValid reports whether t is a known field type.
func (t FieldType) IsValid() bool {
	switch t {
	case FieldTypeString, FieldTypeText, FieldTypeNumber, FieldTypeBoolean, FieldTypeSlug,
		FieldTypeImage, FieldTypeArray, FieldTypeObject, FieldTypeReference:
		return true
	default:
		return false
	}
}

// IsScalarItem reports whether a type reference names a field type that
// can appear directly as an array item (primitives and images).
func IsScalarItem(name string) bool {
	t := FieldType(name)
	return t.IsPrimitive() || t == FieldTypeImage
}
