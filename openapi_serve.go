package rest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"gopkg.in/yaml.v3"
)

// ServeSpec registers the document of ns as the Discover operation at
// ns.SingletonPath(), e.g. GET /api/v1/swagger for
// &Namespace{Subject: "swagger", Version: "v1"}. The document route itself
// is not documented. Clients asking for application/yaml get YAML, and a
// hidden ".yaml" sibling route always serves YAML.
func (r *Router) ServeSpec(ns *Namespace, opts ...RouteOption) {
	opts = append([]RouteOption{WithHidden()}, opts...)
	Route(r, ns.SingletonPath(), Discover, ns, func(_ context.Context, _ *Void) (*OpenAPISpec, error) {
		return r.BuildSpec(ns)
	}, opts...)

	r.Mount(http.MethodGet+" "+buildRoutePath(ns.SingletonPath()+".yaml", ns.Prefix()), http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		spec, err := r.BuildSpec(ns)
		if err != nil {
			writeErrorResponse(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		//nolint:errcheck,gosec // best-effort after WriteHeader
		writeYAML(w, spec)
	}))
}

// WriteSpec writes the document of ns as indented JSON to w.
func (r *Router) WriteSpec(w io.Writer, ns *Namespace) error {
	spec, err := r.BuildSpec(ns)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(spec)
}

// WriteSpecYAML writes the document of ns as YAML to w.
func (r *Router) WriteSpecYAML(w io.Writer, ns *Namespace) error {
	spec, err := r.BuildSpec(ns)
	if err != nil {
		return err
	}
	return writeYAML(w, spec)
}

func writeYAML(w io.Writer, spec *OpenAPISpec) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(spec); err != nil {
		return err
	}
	return enc.Close()
}
