/*
Package schema defines the content-type intermediate representation.

Content types are declared once as data. Everything else (the GraphQL
description, the resolvers, the stored shape) is derived from them.

# Type Definition

A schema file is YAML with a list of types:

	types:
	  - kind: document
	    name: page
	    title: Page
	    fields:
	      - { name: title, type: string, validation: [{ rule: required }] }
	      - { name: slug,  type: slug }
	      - name: content
	        type: array
	        of: [{ type: textBlock }, { type: imageBlock }]
	      - name: seo
	        type: object
	        fields:
	          - { name: description, type: text }
	      - name: author
	        type: reference
	        to: [{ type: author }]

	  - kind: object
	    name: textBlock
	    fields:
	      - { name: body, type: text }

# Kinds

  - document: stored independently, gets queries and mutations
  - object:   reusable shape embedded in documents (array items, unions)

# Field Types

  - string, text, slug: text values
  - number:             floating-point value
  - boolean:            true/false
  - image:              opaque asset value
  - array:              list of items (requires of)
  - object:             inline nested object (requires fields)
  - reference:          id of another document (requires to)

# Type References

The of and to lists name other types. A name that does not resolve to a
declared type is treated as absent rather than as an error; use
Set.Unresolved to report them.

# Parsing

	types, err := schema.ParseDir("schemas/")
	set, err := schema.NewSet(types...)

All types are validated when the Set is built.
*/
package schema
