package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// file is the on-disk layout of a schema file.
type file struct {
	Types []SchemaType `yaml:"types"`
}

// ParseFile parses type definitions from a YAML file.
func ParseFile(path string) ([]SchemaType, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}

	types, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return types, nil
}

// Parse parses type definitions from YAML bytes.
// Each type is validated; cross-type checks happen in NewSet.
func Parse(data []byte) ([]SchemaType, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	for _, t := range f.Types {
		if err := Validate(t); err != nil {
			return nil, err
		}
	}

	return f.Types, nil
}

// ParseDir parses all schema files from a directory, including subdirectories.
func ParseDir(dir string) ([]SchemaType, error) {
	var types []SchemaType

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		if entry.IsDir() {
			sub, err := ParseDir(path)
			if err != nil {
				return nil, err
			}
			types = append(types, sub...)
			continue
		}

		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}

		parsed, err := ParseFile(path)
		if err != nil {
			return nil, err
		}

		types = append(types, parsed...)
	}

	return types, nil
}

// LoadDir parses a directory and builds a Set from it.
func LoadDir(dir string) (*Set, error) {
	types, err := ParseDir(dir)
	if err != nil {
		return nil, err
	}
	return NewSet(types...)
}

// Validate validates a single type definition.
func Validate(t SchemaType) error {
	var errs []string

	if t.Name == "" {
		errs = append(errs, "type name is required")
	} else if !isValidIdentifier(t.Name) {
		errs = append(errs, fmt.Sprintf("type name %q is not a valid identifier", t.Name))
	}

	if t.Kind != KindDocument && t.Kind != KindObject {
		errs = append(errs, fmt.Sprintf("kind %q must be document or object", t.Kind))
	}

	if len(t.Fields) == 0 {
		errs = append(errs, "at least one field is required")
	}
	errs = append(errs, validateFields(t.Name, t.Fields)...)

	if len(errs) > 0 {
		return fmt.Errorf("validate type %q:\n  - %s", t.Name, strings.Join(errs, "\n  - "))
	}

	return nil
}

// reservedFields are envelope fields added to every document.
var reservedFields = map[string]bool{
	"id":          true,
	"type":        true,
	"status":      true,
	"createdAt":   true,
	"updatedAt":   true,
	"publishedAt": true,
}

func validateFields(path string, fields []Field) []string {
	var errs []string
	seen := make(map[string]bool)

	for _, f := range fields {
		fieldPath := path + "." + f.Name

		if !isValidIdentifier(f.Name) {
			errs = append(errs, fmt.Sprintf("field name %q is not a valid identifier", fieldPath))
			continue
		}
		if reservedFields[f.Name] {
			errs = append(errs, fmt.Sprintf("field %q: name is reserved", fieldPath))
		}
		if seen[f.Name] {
			errs = append(errs, fmt.Sprintf("field %q declared more than once", fieldPath))
		}
		seen[f.Name] = true

		if err := validateField(fieldPath, f); err != nil {
			errs = append(errs, err.Error())
		}

		if f.Type == FieldTypeObject {
			errs = append(errs, validateFields(fieldPath, f.Fields)...)
		}
	}

	return errs
}

// validateField validates a single field definition.
func validateField(path string, f Field) error {
	if !f.Type.IsValid() {
		return fmt.Errorf("field %q: unknown type %q", path, f.Type)
	}

	if f.Type == FieldTypeArray && len(f.Of) == 0 {
		return fmt.Errorf("field %q: array type requires 'of'", path)
	}

	if f.Type == FieldTypeObject && len(f.Fields) == 0 {
		return fmt.Errorf("field %q: object type requires 'fields'", path)
	}

	if f.Type == FieldTypeReference && len(f.To) == 0 {
		return fmt.Errorf("field %q: reference type requires 'to'", path)
	}

	for _, r := range f.Validation {
		if r.Rule == "" {
			return fmt.Errorf("field %q: validation rule name is required", path)
		}
	}

	return nil
}

// isValidIdentifier checks if a string is a valid identifier.
func isValidIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, c := range s {
		if i == 0 {
			if !isLetter(c) && c != '_' {
				return false
			}
		} else {
			if !isLetter(c) && !isDigit(c) && c != '_' {
				return false
			}
		}
	}

	return !strings.HasPrefix(s, "__")
}

func isLetter(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}
