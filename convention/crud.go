// Package convention registers the standard routes of a resource on a
// rest.Router: CRUD operations on a namespace, relations between two
// resources, a discovery endpoint and a health endpoint.
package convention

import (
	"context"

	"github.com/bjaus/rest"
)

// SearchFunc returns one page of items and the total number of matches.
// The query type Q embeds rest.Page.
type SearchFunc[Q, T any] func(ctx context.Context, q *Q) (items []T, count int, err error)

// Search registers GET <collection> answering with a paginated list.
func Search[Q, T any](r *rest.Router, ns *rest.Namespace, h SearchFunc[Q, T], opts ...rest.RouteOption) {
	rest.Route(r, ns.CollectionPath(), rest.Search, ns, paginated(ns, rest.Search, h), opts...)
}

// Create registers POST <collection>.
func Create[Req, Resp any](r *rest.Router, ns *rest.Namespace, h rest.Handler[Req, Resp], opts ...rest.RouteOption) {
	rest.Route(r, ns.CollectionPath(), rest.Create, ns, h, opts...)
}

// Retrieve registers GET <collection>/{id}.
func Retrieve[Req, Resp any](r *rest.Router, ns *rest.Namespace, h rest.Handler[Req, Resp], opts ...rest.RouteOption) {
	rest.Route(r, ns.InstancePath(), rest.Retrieve, ns, h, opts...)
}

// Delete registers DELETE <collection>/{id}.
func Delete[Req, Resp any](r *rest.Router, ns *rest.Namespace, h rest.Handler[Req, Resp], opts ...rest.RouteOption) {
	rest.Route(r, ns.InstancePath(), rest.Delete, ns, h, opts...)
}

// Replace registers PUT <collection>/{id}.
func Replace[Req, Resp any](r *rest.Router, ns *rest.Namespace, h rest.Handler[Req, Resp], opts ...rest.RouteOption) {
	rest.Route(r, ns.InstancePath(), rest.Replace, ns, h, opts...)
}

// Update registers PATCH <collection>/{id}.
func Update[Req, Resp any](r *rest.Router, ns *rest.Namespace, h rest.Handler[Req, Resp], opts ...rest.RouteOption) {
	rest.Route(r, ns.InstancePath(), rest.Update, ns, h, opts...)
}

// Upload registers POST <collection> for multipart file uploads.
func Upload[Req, Resp any](r *rest.Router, ns *rest.Namespace, h rest.Handler[Req, Resp], opts ...rest.RouteOption) {
	rest.Route(r, ns.CollectionPath(), rest.Upload, ns, h, opts...)
}

// paginated adapts a SearchFunc to a handler answering with a
// PaginatedList whose links point back to op. Path wildcards of the
// current route are carried into the links.
func paginated[Q, T any](ns *rest.Namespace, op rest.Operation, h SearchFunc[Q, T]) rest.Handler[Q, rest.PaginatedList[T]] {
	return func(ctx context.Context, q *Q) (*rest.PaginatedList[T], error) {
		items, count, err := h(ctx, q)
		if err != nil {
			return nil, err
		}

		page := rest.NewPage(0, rest.DefaultLimit)
		if p, ok := any(q).(rest.Pager); ok {
			page = *p.Paging()
		}

		var opts []rest.ListOption
		opts = append(opts, rest.ListOperation(op))
		if op.IsEdge() {
			key := ns.IdentifierKey()
			opts = append(opts, rest.ListParams(map[string]string{key: rest.PathValue(ctx, key)}))
		}
		return rest.NewPaginatedList(ctx, ns, page, items, count, opts...)
	}
}
