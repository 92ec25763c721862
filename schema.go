package rest

import (
	"encoding"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// schemaRefPrefix is the location of named schemas in the document.
const schemaRefPrefix = "#/components/schemas/"

// JSONSchema represents a JSON Schema object (subset for OpenAPI 3.1).
type JSONSchema struct {
	Type        string                `json:"type,omitempty" yaml:"type,omitempty"`
	Format      string                `json:"format,omitempty" yaml:"format,omitempty"`
	Properties  map[string]JSONSchema `json:"properties,omitempty" yaml:"properties,omitempty"`
	Items       *JSONSchema           `json:"items,omitempty" yaml:"items,omitempty"`
	Required    []string              `json:"required,omitempty" yaml:"required,omitempty"`
	Description string                `json:"description,omitempty" yaml:"description,omitempty"`
	Enum        []string              `json:"enum,omitempty" yaml:"enum,omitempty"`
	Default     any                   `json:"default,omitempty" yaml:"default,omitempty"`
	Minimum     *float64              `json:"minimum,omitempty" yaml:"minimum,omitempty"`
	Maximum     *float64              `json:"maximum,omitempty" yaml:"maximum,omitempty"`
	OneOf       []JSONSchema          `json:"oneOf,omitempty" yaml:"oneOf,omitempty"`
	Ref         string                `json:"$ref,omitempty" yaml:"$ref,omitempty"`

	// AdditionalProperties can be true (any) or a schema.
	AdditionalProperties *JSONSchema `json:"additionalProperties,omitempty" yaml:"additionalProperties,omitempty"`
}

// SchemaNamer is implemented by types that choose their schema name.
type SchemaNamer interface {
	SchemaName() string
}

// schemaRegistry collects named schemas while types are converted. The
// first type registered under a name wins.
type schemaRegistry struct {
	defs map[string]JSONSchema
}

func newSchemaRegistry() *schemaRegistry {
	return &schemaRegistry{defs: make(map[string]JSONSchema)}
}

// typeToSchema converts a reflect.Type to a JSONSchema. Named structs are
// registered and referenced.
func (s *schemaRegistry) typeToSchema(t reflect.Type) JSONSchema {
	// Unwrap pointer.
	if t.Kind() == reflect.Pointer {
		return s.typeToSchema(t.Elem())
	}

	// Handle well-known types.
	switch t {
	case reflect.TypeFor[time.Time]():
		return JSONSchema{Type: "string", Format: "date-time"}
	case reflect.TypeFor[time.Duration]():
		return JSONSchema{Type: "string", Format: "duration"}
	case reflect.TypeFor[uuid.UUID]():
		return JSONSchema{Type: "string", Format: "uuid"}
	case reflect.TypeFor[Void]():
		return JSONSchema{}
	case reflect.TypeFor[FileUpload]():
		return JSONSchema{Type: "string", Format: "binary"}
	case reflect.TypeFor[Links]():
		link := s.typeToSchema(reflect.TypeFor[Link]())
		return JSONSchema{
			Type: "object",
			AdditionalProperties: &JSONSchema{OneOf: []JSONSchema{
				link,
				{Type: "array", Items: &link},
			}},
		}
	}

	if t.Kind() != reflect.String && reflect.PointerTo(t).Implements(reflect.TypeFor[encoding.TextMarshaler]()) {
		return JSONSchema{Type: "string"}
	}

	//exhaustive:ignore
	switch t.Kind() {
	case reflect.String:
		return JSONSchema{Type: "string"}
	case reflect.Bool:
		return JSONSchema{Type: "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return JSONSchema{Type: "integer"}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return JSONSchema{Type: "integer"}
	case reflect.Float32, reflect.Float64:
		return JSONSchema{Type: "number"}
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return JSONSchema{Type: "string", Format: "byte"}
		}
		items := s.typeToSchema(t.Elem())
		return JSONSchema{Type: "array", Items: &items}
	case reflect.Array:
		items := s.typeToSchema(t.Elem())
		return JSONSchema{Type: "array", Items: &items}
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return JSONSchema{Type: "object"}
		}
		valSchema := s.typeToSchema(t.Elem())
		return JSONSchema{Type: "object", AdditionalProperties: &valSchema}
	case reflect.Struct:
		if t.Name() == "" {
			return s.structToSchema(t)
		}
		name := schemaNameOf(t)
		if _, ok := s.defs[name]; !ok {
			// Reserve the name first so recursive types terminate.
			s.defs[name] = JSONSchema{Type: "object"}
			s.defs[name] = s.structToSchema(t)
		}
		return JSONSchema{Ref: schemaRefPrefix + name}
	default:
		return JSONSchema{}
	}
}

// structToSchema converts a struct type to a JSONSchema with properties.
func (s *schemaRegistry) structToSchema(t reflect.Type) JSONSchema {
	schema := JSONSchema{
		Type:       "object",
		Properties: make(map[string]JSONSchema),
	}
	s.addFields(&schema, t)
	if len(schema.Properties) == 0 {
		schema.Properties = nil
	}
	return schema
}

func (s *schemaRegistry) addFields(schema *JSONSchema, t reflect.Type) {
	for i := range t.NumField() {
		f := t.Field(i)

		// Embedded structs without a json name are flattened.
		if f.Anonymous && f.Type.Kind() == reflect.Struct && f.Tag.Get("json") == "" {
			s.addFields(schema, f.Type)
			continue
		}
		if !f.IsExported() {
			continue
		}

		// Param and binding fields are not part of the body schema.
		if isParamField(f) {
			continue
		}

		name := jsonFieldName(f)
		if name == "-" {
			continue
		}

		prop := s.typeToSchema(f.Type)
		applyFieldTags(&prop, f)
		schema.Properties[name] = prop

		if f.Tag.Get("required") == "true" {
			schema.Required = append(schema.Required, name)
		}
	}
}

// applyFieldTags copies documentation and constraint tags onto a schema.
// References stay bare since siblings of $ref are not portable.
func applyFieldTags(prop *JSONSchema, f reflect.StructField) {
	if prop.Ref != "" {
		return
	}
	if doc := f.Tag.Get("doc"); doc != "" {
		prop.Description = doc
	}
	if enum := f.Tag.Get("enum"); enum != "" {
		prop.Enum = strings.Split(enum, ",")
	}
	if format := f.Tag.Get("format"); format != "" {
		prop.Format = format
	}
	prop.Minimum = floatTag(f, "minimum")
	prop.Maximum = floatTag(f, "maximum")
}

func floatTag(f reflect.StructField, name string) *float64 {
	tag := f.Tag.Get(name)
	if tag == "" {
		return nil
	}
	n, err := strconv.ParseFloat(tag, 64)
	if err != nil {
		return nil
	}
	return &n
}

// schemaNameOf returns the definition name of a type: the SchemaName of a
// SchemaNamer, otherwise the type name without a "Schema" suffix or type
// arguments, in PascalCase.
func schemaNameOf(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Implements(reflect.TypeFor[SchemaNamer]()) {
		if n, ok := reflect.Zero(t).Interface().(SchemaNamer); ok {
			return n.SchemaName()
		}
	}
	if reflect.PointerTo(t).Implements(reflect.TypeFor[SchemaNamer]()) {
		if n, ok := reflect.New(t).Interface().(SchemaNamer); ok {
			return n.SchemaName()
		}
	}
	if t.Name() == "" {
		return typeName(t.Kind().String())
	}
	return typeName(genericTypeName(t.Name()))
}

// genericTypeName strips the type arguments from a generic type name.
func genericTypeName(name string) string {
	base, _, _ := strings.Cut(name, "[")
	return base
}
