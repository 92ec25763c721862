package rest

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

// OpenAPIVersion is the version of the generated documents.
const OpenAPIVersion = "3.1.0"

// OpenAPISpec is the top-level OpenAPI 3.1 document.
type OpenAPISpec struct {
	OpenAPI    string              `json:"openapi" yaml:"openapi"`
	Info       OpenAPIInfo         `json:"info" yaml:"info"`
	Servers    []Server            `json:"servers,omitempty" yaml:"servers,omitempty"`
	Paths      map[string]PathItem `json:"paths" yaml:"paths"`
	Components Components          `json:"components" yaml:"components"`
}

// OpenAPIInfo holds API metadata.
type OpenAPIInfo struct {
	Title   string `json:"title" yaml:"title"`
	Version string `json:"version" yaml:"version"`
}

// Server is an entry of the servers array. Paths are relative to its URL.
type Server struct {
	URL string `json:"url" yaml:"url"`
}

// Components holds the named schemas referenced by the document.
type Components struct {
	Schemas map[string]JSONSchema `json:"schemas" yaml:"schemas"`
}

// PathItem maps lower-case HTTP methods to operations.
type PathItem map[string]OperationObject

// OperationObject describes a single API operation on a path.
type OperationObject struct {
	Summary     string        `json:"summary,omitempty" yaml:"summary,omitempty"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Tags        []string      `json:"tags,omitempty" yaml:"tags,omitempty"`
	OperationID string        `json:"operationId,omitempty" yaml:"operationId,omitempty"`
	Parameters  []Parameter   `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	RequestBody *RequestBody  `json:"requestBody,omitempty" yaml:"requestBody,omitempty"`
	Responses   OperationResp `json:"responses" yaml:"responses"`
	Deprecated  bool          `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
}

// Parameter describes a single operation parameter.
type Parameter struct {
	Name        string     `json:"name" yaml:"name"`
	In          string     `json:"in" yaml:"in"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool       `json:"required" yaml:"required"`
	Schema      JSONSchema `json:"schema" yaml:"schema"`
}

// RequestBody describes the request body.
type RequestBody struct {
	Required bool                `json:"required" yaml:"required"`
	Content  map[string]MediaObj `json:"content" yaml:"content"`
}

// MediaObj is a media type object with an optional schema.
type MediaObj struct {
	Schema *JSONSchema `json:"schema,omitempty" yaml:"schema,omitempty"`
}

// OperationResp maps HTTP status codes (or "default") to response objects.
type OperationResp map[string]ResponseObj

// ResponseObj describes a single response.
type ResponseObj struct {
	Description string              `json:"description" yaml:"description"`
	Content     map[string]MediaObj `json:"content,omitempty" yaml:"content,omitempty"`
}

// errorSchemaTypes are always part of the document.
var errorSchemaTypes = []reflect.Type{
	reflect.TypeFor[ErrorResponse](),
	reflect.TypeFor[ErrorContext](),
	reflect.TypeFor[SubError](),
}

// BuildSpec generates the OpenAPI document of every route below the base
// path of ns. Paths are relative to that base path, which becomes the
// server URL. The document is validated before it is returned; an invalid
// document is logged and reported as an error wrapping ErrInvalidSpec.
func (r *Router) BuildSpec(ns *Namespace) (*OpenAPISpec, error) {
	return r.buildSpec(ns, nil)
}

// buildSpec runs snapshotted, if set, right after the routes are copied.
func (r *Router) buildSpec(ns *Namespace, snapshotted func()) (*OpenAPISpec, error) {
	base := ns.BasePath()
	key := base + "@" + ns.Version
	if spec, ok := r.specs.Get(key); ok {
		return spec, nil
	}

	r.mu.Lock()
	routes := slices.Clone(r.routes)
	generation := r.generation
	r.mu.Unlock()

	if snapshotted != nil {
		snapshotted()
	}

	reg := newSchemaRegistry()
	for _, t := range errorSchemaTypes {
		reg.typeToSchema(t)
	}

	spec := &OpenAPISpec{
		OpenAPI: OpenAPIVersion,
		Info: OpenAPIInfo{
			Title:   cmp.Or(r.title, r.cfg.Name, ns.SubjectName()),
			Version: cmp.Or(ns.Version, r.version, "v1"),
		},
		Servers: []Server{{URL: base}},
		Paths:   make(map[string]PathItem),
	}

	for i := range routes {
		ri := &routes[i]
		if ri.hidden {
			continue
		}

		path, err := r.specPath(ri)
		if err != nil {
			return nil, err
		}
		rel, ok := relativePath(path, base)
		if !ok {
			continue
		}

		if spec.Paths[rel] == nil {
			spec.Paths[rel] = make(PathItem)
		}
		spec.Paths[rel][strings.ToLower(ri.method)] = buildOperation(ri, reg)
	}

	spec.Components.Schemas = reg.defs

	if err := spec.Validate(); err != nil {
		r.logger.Error("generated openapi document is invalid",
			slog.String("base_path", base),
			slog.Any("error", err),
		)
		return nil, err
	}

	// A document built from routes that have since changed is not cached.
	r.mu.Lock()
	if r.generation == generation {
		r.specs.Add(key, spec)
	}
	r.mu.Unlock()
	return spec, nil
}

// specPath reverses a route without parameters, substituting "{name}" for
// every wildcard.
func (r *Router) specPath(ri *routeInfo) (string, error) {
	path, err := r.URLFor(ri.op, ri.ns, nil)
	var be *BuildError
	if errors.As(err, &be) {
		return r.templatedURLFor(ri.op, ri.ns, nil, be.Missing)
	}
	return path, err
}

// relativePath keys path relative to base. Paths outside base are rejected.
func relativePath(path, base string) (string, bool) {
	if base == "/" {
		return path, true
	}
	if path != base && !strings.HasPrefix(path, base+"/") {
		return "", false
	}
	rel := strings.TrimPrefix(path, base)
	if rel == "" {
		rel = "/"
	}
	return rel, true
}

// buildOperation creates an OperationObject from a routeInfo.
func buildOperation(ri *routeInfo, reg *schemaRegistry) OperationObject {
	op := OperationObject{
		Summary:     ri.summary,
		Description: operationDescription(ri),
		Tags:        ri.tags,
		OperationID: cmp.Or(ri.operationID, operationName(ri.op, ri.ns)),
		Deprecated:  ri.deprecated,
		Parameters:  buildParameters(ri, reg),
		RequestBody: extractRequestBody(ri, reg),
		Responses: OperationResp{
			"default": {
				Description: "An error occurred",
				Content: map[string]MediaObj{
					"application/json": {Schema: &JSONSchema{Ref: schemaRefPrefix + schemaNameOf(reflect.TypeFor[ErrorResponse]())}},
				},
			},
		},
	}
	if len(op.Tags) == 0 {
		op.Tags = []string{ri.ns.SubjectName()}
	}

	status := strconv.Itoa(ri.status)
	if ri.respType == nil || ri.respType == reflect.TypeFor[Void]() {
		op.Responses[status] = ResponseObj{Description: op.Description}
		return op
	}

	schema := reg.typeToSchema(ri.respType)
	op.Responses[status] = ResponseObj{
		Description: op.Description,
		Content: map[string]MediaObj{
			"application/json": {Schema: &schema},
		},
	}
	return op
}

// operationDescription is the first line of the route description, or
// "<operation> <subject>".
func operationDescription(ri *routeInfo) string {
	if first, _, _ := strings.Cut(strings.TrimSpace(ri.desc), "\n"); first != "" {
		return strings.TrimSpace(first)
	}
	return ri.op.Name() + " " + ri.ns.SubjectName()
}

// buildParameters returns the skip-null header, the path wildcards and the
// query and header fields of the request type, sorted by name.
func buildParameters(ri *routeInfo, reg *schemaRegistry) []Parameter {
	params := []Parameter{{
		Name:        SkipNullHeader,
		In:          "header",
		Description: "Omit null fields from the response body",
		Schema:      JSONSchema{Type: "boolean"},
	}}

	wildcards := pathWildcards(ri.pattern)
	for _, name := range wildcards {
		p := Parameter{
			Name:     name,
			In:       "path",
			Required: true,
			Schema:   JSONSchema{Type: "string"},
		}
		if name == ri.ns.IdentifierKey() && ri.ns.Identifier() == IdentifierUUID {
			p.Schema.Format = "uuid"
		}
		params = append(params, p)
	}

	if ri.reqType != nil && ri.reqType.Kind() == reflect.Struct {
		params = append(params, structParameters(ri.reqType, reg)...)
	}

	slices.SortStableFunc(params, func(a, b Parameter) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return params
}

// structParameters extracts query and header parameters, descending into
// embedded structs. Path fields are covered by the route pattern.
func structParameters(t reflect.Type, reg *schemaRegistry) []Parameter {
	var params []Parameter
	for i := range t.NumField() {
		f := t.Field(i)
		if f.Anonymous && f.Type.Kind() == reflect.Struct && !isParamField(f) {
			params = append(params, structParameters(f.Type, reg)...)
			continue
		}
		if !f.IsExported() {
			continue
		}

		for _, in := range []string{"query", "header"} {
			name := f.Tag.Get(in)
			if name == "" {
				continue
			}

			schema := reg.typeToSchema(f.Type)
			applyFieldTags(&schema, f)
			if def := f.Tag.Get("default"); def != "" {
				schema.Default = def
			}

			params = append(params, Parameter{
				Name:        name,
				In:          in,
				Description: f.Tag.Get("doc"),
				Required:    in == "header" && f.Tag.Get("required") == "true",
				Schema:      schema,
			})
		}
	}
	return params
}

// extractRequestBody builds an OpenAPI RequestBody if the request type has a body.
// Upload operations and form request types consume multipart/form-data.
func extractRequestBody(ri *routeInfo, reg *schemaRegistry) *RequestBody {
	t := ri.reqType
	if t == nil || t == reflect.TypeFor[Void]() {
		return nil
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	upload := ri.op == Upload || ri.op == UploadFor
	if upload || hasFormTags(t) {
		if t.Kind() != reflect.Struct {
			return nil
		}
		schema := formSchema(t, reg)
		return &RequestBody{
			Required: true,
			Content: map[string]MediaObj{
				"multipart/form-data": {Schema: &schema},
			},
		}
	}

	var schema JSONSchema
	switch {
	case hasBodyField(t):
		bodyField, _ := t.FieldByName("Body")
		schema = reg.typeToSchema(bodyField.Type)
	case t.Kind() != reflect.Struct || !hasParamTags(t):
		if ri.method != http.MethodPost && ri.method != http.MethodPut && ri.method != http.MethodPatch {
			return nil
		}
		schema = reg.typeToSchema(t)
	default:
		return nil
	}

	return &RequestBody{
		Required: true,
		Content: map[string]MediaObj{
			"application/json": {Schema: &schema},
		},
	}
}

// formSchema describes the form fields of a multipart request type.
func formSchema(t reflect.Type, reg *schemaRegistry) JSONSchema {
	schema := JSONSchema{Type: "object", Properties: make(map[string]JSONSchema)}
	for i := range t.NumField() {
		f := t.Field(i)
		name := f.Tag.Get("form")
		if name == "" || !f.IsExported() {
			continue
		}
		prop := reg.typeToSchema(f.Type)
		applyFieldTags(&prop, f)
		schema.Properties[name] = prop
		if f.Tag.Get("required") == "true" {
			schema.Required = append(schema.Required, name)
		}
	}
	return schema
}

// Validate checks the document for the mistakes that make it unusable:
// missing info, operations without responses, dangling references,
// undeclared or unused path parameters and duplicate parameters.
func (s *OpenAPISpec) Validate() error {
	var errs []error

	if s.OpenAPI == "" {
		errs = append(errs, errors.New("openapi version is required"))
	}
	if s.Info.Title == "" {
		errs = append(errs, errors.New("info.title is required"))
	}
	if s.Info.Version == "" {
		errs = append(errs, errors.New("info.version is required"))
	}

	for name, def := range s.Components.Schemas {
		errs = append(errs, s.checkRefs("components.schemas."+name, def)...)
	}

	for _, path := range slices.Sorted(maps.Keys(s.Paths)) {
		for _, method := range slices.Sorted(maps.Keys(s.Paths[path])) {
			where := method + " " + path
			errs = append(errs, s.validateOperation(where, path, s.Paths[path][method])...)
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidSpec, errors.Join(errs...))
}

func (s *OpenAPISpec) validateOperation(where, path string, op OperationObject) []error {
	var errs []error

	if len(op.Responses) == 0 {
		errs = append(errs, fmt.Errorf("%s: no responses", where))
	}
	for code, resp := range op.Responses {
		for _, media := range resp.Content {
			if media.Schema != nil {
				errs = append(errs, s.checkRefs(where+" response "+code, *media.Schema)...)
			}
		}
	}
	if op.RequestBody != nil {
		for _, media := range op.RequestBody.Content {
			if media.Schema != nil {
				errs = append(errs, s.checkRefs(where+" request body", *media.Schema)...)
			}
		}
	}

	seen := make(map[string]bool)
	declared := make(map[string]bool)
	for _, p := range op.Parameters {
		key := p.In + ":" + p.Name
		if seen[key] {
			errs = append(errs, fmt.Errorf("%s: duplicate %s parameter %q", where, p.In, p.Name))
		}
		seen[key] = true
		if p.In == "path" {
			declared[p.Name] = true
			if !p.Required {
				errs = append(errs, fmt.Errorf("%s: path parameter %q must be required", where, p.Name))
			}
		}
		errs = append(errs, s.checkRefs(where+" parameter "+p.Name, p.Schema)...)
	}

	templated := make(map[string]bool)
	for _, name := range pathWildcards(path) {
		templated[name] = true
		if !declared[name] {
			errs = append(errs, fmt.Errorf("%s: path parameter %q is not declared", where, name))
		}
	}
	for name := range declared {
		if !templated[name] {
			errs = append(errs, fmt.Errorf("%s: parameter %q does not appear in the path", where, name))
		}
	}

	return errs
}

// checkRefs reports every reference in schema that does not resolve.
func (s *OpenAPISpec) checkRefs(where string, schema JSONSchema) []error {
	var errs []error
	if schema.Ref != "" {
		name, ok := strings.CutPrefix(schema.Ref, schemaRefPrefix)
		if _, exists := s.Components.Schemas[name]; !ok || !exists {
			errs = append(errs, fmt.Errorf("%s: unresolved reference %q", where, schema.Ref))
		}
	}
	for _, prop := range schema.Properties {
		errs = append(errs, s.checkRefs(where, prop)...)
	}
	for _, sub := range schema.OneOf {
		errs = append(errs, s.checkRefs(where, sub)...)
	}
	if schema.Items != nil {
		errs = append(errs, s.checkRefs(where, *schema.Items)...)
	}
	if schema.AdditionalProperties != nil {
		errs = append(errs, s.checkRefs(where, *schema.AdditionalProperties)...)
	}
	return errs
}
