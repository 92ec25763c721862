package convention

import (
	"github.com/bjaus/rest"
)

// SearchFor registers GET <subject>/{subject_id}/<object> answering with a
// paginated list of related objects.
func SearchFor[Q, T any](r *rest.Router, ns *rest.Namespace, h SearchFunc[Q, T], opts ...rest.RouteOption) {
	rest.Route(r, ns.RelationPath(), rest.SearchFor, ns, paginated(ns, rest.SearchFor, h), opts...)
}

// CreateFor registers POST <subject>/{subject_id}/<object>.
func CreateFor[Req, Resp any](r *rest.Router, ns *rest.Namespace, h rest.Handler[Req, Resp], opts ...rest.RouteOption) {
	rest.Route(r, ns.RelationPath(), rest.CreateFor, ns, h, opts...)
}

// RetrieveFor registers GET <subject>/{subject_id}/<object> for a single
// related object.
func RetrieveFor[Req, Resp any](r *rest.Router, ns *rest.Namespace, h rest.Handler[Req, Resp], opts ...rest.RouteOption) {
	rest.Route(r, ns.RelationPath(), rest.RetrieveFor, ns, h, opts...)
}

// UploadFor registers POST <subject>/{subject_id}/<object> for multipart
// file uploads attached to a subject.
func UploadFor[Req, Resp any](r *rest.Router, ns *rest.Namespace, h rest.Handler[Req, Resp], opts ...rest.RouteOption) {
	rest.Route(r, ns.RelationPath(), rest.UploadFor, ns, h, opts...)
}
