package rest

import "reflect"

// Test-only exports for internal functions.
var (
	ExpandPattern       = expandPattern
	PathWildcards       = pathWildcards
	BuildRoutePath      = buildRoutePath
	SnakeCase           = snakeCase
	PascalCase          = pascalCase
	TypeName            = typeName
	OperationName       = operationName
	StatusClass         = statusClass
	Truncate            = truncate
	ValidateConstraints = validateConstraints
	HasParamTags        = hasParamTags
	HasBodyField        = hasBodyField
	HasFormTags         = hasFormTags
	TagContains         = tagContains
	JSONFieldName       = jsonFieldName
	LimitError          = limitError
)

// TestSchemaRegistry wraps schemaRegistry for external tests.
type TestSchemaRegistry struct {
	reg  *schemaRegistry
	Defs map[string]JSONSchema
}

// NewSchemaRegistry creates a TestSchemaRegistry for testing.
func NewSchemaRegistry() *TestSchemaRegistry {
	r := newSchemaRegistry()
	return &TestSchemaRegistry{reg: r, Defs: r.defs}
}

// TypeToSchema delegates to the internal registry.
func (t *TestSchemaRegistry) TypeToSchema(typ reflect.Type) JSONSchema {
	return t.reg.typeToSchema(typ)
}

// SchemaNameOf exposes the definition name of a type.
func SchemaNameOf(typ reflect.Type) string { return schemaNameOf(typ) }

// BuildSpecAfter builds the document of ns, calling fn once the routes
// have been copied.
func BuildSpecAfter(r *Router, ns *Namespace, fn func()) (*OpenAPISpec, error) {
	return r.buildSpec(ns, fn)
}
