// Package rest is a convention layer for HTTP services. Every route is an
// Operation (search, create, retrieve, ...) on a Namespace (a resource
// name plus path prefix and version), and everything else is derived from
// that pair: the HTTP method, the path, the default status code, the
// endpoint identifier used for links, the OpenAPI operation and the audit
// record.
//
// Handlers are typed and never see http.ResponseWriter or *http.Request:
//
//	type Handler[Req, Resp any] func(ctx context.Context, req *Req) (*Resp, error)
//
// Routes are registered with the generic Route function:
//
//	r := rest.New(rest.WithTitle("Pets"))
//	ns := &rest.Namespace{Subject: "pet", Version: "v1"}
//	rest.Route(r, ns.CollectionPath(), rest.Create, ns, createPet) // POST /api/v1/pet -> 201
//	rest.Route(r, ns.InstancePath(), rest.Retrieve, ns, getPet)    // GET /api/v1/pet/{pet_id}
//
// Request types use struct tags for parameter binding and a Body field for
// request bodies:
//
//	type GetPet struct {
//	    ID uuid.UUID `path:"pet_id"`
//	}
//
// Links to other routes are built by reversing their endpoint, so clients
// never assemble URLs themselves:
//
//	link, err := rest.LinkFor(ctx, rest.Retrieve, ns, rest.WithParams(map[string]string{"pet_id": id}))
//
// Collections are paged with Page and returned as a PaginatedList with
// "self", "next" and "prev" links. The convention subpackage registers the
// usual CRUD, relation, discovery and health routes on top of Route.
//
// OpenAPI 3.1 documents are generated per namespace base path:
//
//	r.ServeSpec(&rest.Namespace{Subject: "swagger", Version: "v1"})
package rest
