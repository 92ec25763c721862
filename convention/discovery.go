package convention

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/bjaus/rest"
)

// DiscoveryQuery accepts the page size of the links; the offset is ignored.
type DiscoveryQuery struct {
	rest.Page
}

// DiscoveryResponse lists links to the discoverable routes.
type DiscoveryResponse struct {
	Links rest.Links `json:"_links" required:"true"`
}

// Discovery registers a singleton endpoint, GET /api/<name>, that links to
// every route whose operation is listed in the router's discovery config
// (by default: every search route). Routes are looked up per request, so
// routes registered later are included. Relation routes need a subject
// identifier and are rendered as templated links.
//
// It returns the namespace of the endpoint.
func Discovery(r *rest.Router, opts ...rest.RouteOption) (*rest.Namespace, error) {
	cfg := r.Config().Discovery

	ops := make([]rest.Operation, 0, len(cfg.Operations))
	for _, name := range cfg.Operations {
		op, err := rest.ParseOperation(name)
		if err != nil {
			return nil, fmt.Errorf("discovery: %w", err)
		}
		ops = append(ops, op)
	}

	ns := &rest.Namespace{Subject: cmp.Or(cfg.Name, "all")}

	rest.Route(r, ns.SingletonPath(), rest.Discover, ns, func(ctx context.Context, q *DiscoveryQuery) (*DiscoveryResponse, error) {
		page := rest.NewPage(0, q.Limit)

		self, err := rest.LinkFor(ctx, rest.Discover, ns, rest.WithQuery(page.Tuples()))
		if err != nil {
			return nil, err
		}

		routes := r.Routes()
		slices.SortFunc(routes, func(a, b rest.RouteInfo) int {
			return cmp.Compare(a.Endpoint, b.Endpoint)
		})

		search := make([]rest.Link, 0, len(routes))
		for _, route := range routes {
			if !slices.Contains(ops, route.Operation) {
				continue
			}
			link, err := rest.LinkFor(ctx, route.Operation, route.Namespace,
				rest.WithQuery(page.Tuples()),
				rest.WithLinkType(linkType(route)),
				rest.AllowTemplated(),
			)
			if err != nil {
				return nil, err
			}
			search = append(search, link)
		}

		resp := &DiscoveryResponse{}
		resp.Links.Set("self", self)
		resp.Links.SetList("search", search)
		return resp, nil
	}, opts...)

	return ns, nil
}

// linkType names the kind of resource a discovered route returns.
func linkType(route rest.RouteInfo) string {
	if route.Operation.IsEdge() {
		return route.Namespace.ObjectName()
	}
	return route.Namespace.SubjectName()
}
