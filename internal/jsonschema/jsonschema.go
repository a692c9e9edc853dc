package jsonschema

import (
	"reflect"
	"strings"
)

// Schema is a JSON Schema fragment. It supports the subset of the standard
// needed to describe tool parameters: object properties, required fields,
// array items, and per-property descriptions.
type Schema struct {
	Type        string             `json:"type,omitempty"`
	Description string             `json:"description,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
}

// For generates a schema for the type T. Non-struct types map to their
// primitive schema; pointers are dereferenced.
func For[T any]() *Schema {
	return fromType(reflect.TypeFor[T]())
}

func fromType(t reflect.Type) *Schema {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.String:
		return &Schema{Type: "string"}
	case reflect.Bool:
		return &Schema{Type: "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Type: "integer"}
	case reflect.Float32, reflect.Float64:
		return &Schema{Type: "number"}
	case reflect.Slice, reflect.Array:
		return &Schema{Type: "array", Items: fromType(t.Elem())}
	case reflect.Map:
		return &Schema{Type: "object"}
	case reflect.Struct:
		return fromStruct(t)
	default:
		// Interfaces and anything else are left unconstrained.
		return &Schema{}
	}
}

func fromStruct(t reflect.Type) *Schema {
	schema := &Schema{
		Type:       "object",
		Properties: map[string]*Schema{},
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		name := propertyName(field)
		if name == "" {
			continue
		}

		prop := fromType(field.Type)
		description, required := parseTag(field.Tag.Get("jsonschema"))
		prop.Description = description
		schema.Properties[name] = prop
		if required {
			schema.Required = append(schema.Required, name)
		}
	}

	return schema
}

// propertyName returns the JSON property name for a struct field, or empty
// when the field is excluded from serialization.
func propertyName(field reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "" {
		return field.Name
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return field.Name
	}
	return name
}

// parseTag splits a jsonschema tag into its description and required marker.
// The tag is comma-separated: `jsonschema:"description=...,required"`.
func parseTag(tag string) (description string, required bool) {
	for _, part := range strings.Split(tag, ",") {
		switch {
		case strings.HasPrefix(part, "description="):
			description = strings.TrimPrefix(part, "description=")
		case part == "required":
			required = true
		}
	}
	return description, required
}
