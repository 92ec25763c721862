package rest

import (
	"strings"
)

// DefaultPath is the path prefix used when a Namespace does not set one.
const DefaultPath = "api"

// IdentifierType describes how a resource identifier appears in a path.
type IdentifierType string

const (
	// IdentifierUUID identifiers must parse as UUIDs (the default).
	IdentifierUUID IdentifierType = "uuid"
	// IdentifierString identifiers are opaque strings.
	IdentifierString IdentifierType = "string"
)

// Namespace describes a resource and derives the canonical paths and
// endpoint identifiers used to register and link to it.
//
//	ns := &rest.Namespace{Subject: "owner", Object: "pet", Version: "v1"}
//	ns.CollectionPath() // "/owner"
//	ns.RelationPath()   // "/owner/{owner_id}/pet"
//	ns.EndpointFor(rest.SearchFor) // "search_for.owner.pet"
//
// A Namespace is read-only once it has been used to register a route.
type Namespace struct {
	// Subject is the resource name. CamelCase names are converted to snake_case.
	Subject string
	// Object is the related resource for edge operations.
	Object string
	// Path is the leading path segment. Empty means DefaultPath; use "/"
	// to mount at the root.
	Path string
	// Version is an optional path segment following Path.
	Version string
	// IdentifierType controls path conversion and documentation of the
	// subject identifier. Empty means IdentifierUUID.
	IdentifierType IdentifierType
	// Controller names the component that owns the routes. Routes of a
	// namespace with a controller get a request-scoped logger.
	Controller string

	EnableBasicAuth bool
	EnableMetrics   bool
}

// SubjectName returns the snake_case subject name.
func (ns *Namespace) SubjectName() string { return snakeCase(ns.Subject) }

// ObjectName returns the snake_case object name, or "" for node namespaces.
func (ns *Namespace) ObjectName() string { return snakeCase(ns.Object) }

// Identifier returns the identifier type, applying the default.
func (ns *Namespace) Identifier() IdentifierType {
	if ns.IdentifierType == "" {
		return IdentifierUUID
	}
	return ns.IdentifierType
}

// IdentifierKey returns the path wildcard name of the subject identifier.
func (ns *Namespace) IdentifierKey() string { return ns.SubjectName() + "_id" }

// Prefix returns Path and Version joined, without surrounding slashes.
func (ns *Namespace) Prefix() string {
	path := ns.Path
	if path == "" {
		path = DefaultPath
	}

	var parts []string
	for _, p := range []string{path, ns.Version} {
		if p = strings.Trim(p, "/"); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "/")
}

// BasePath returns the absolute path every route of the namespace lives under.
func (ns *Namespace) BasePath() string { return buildRoutePath("", ns.Prefix()) }

// CollectionPath returns the path of the resource collection.
func (ns *Namespace) CollectionPath() string { return "/" + ns.SubjectName() }

// SingletonPath returns the path of a resource that has one instance.
func (ns *Namespace) SingletonPath() string { return "/" + ns.SubjectName() }

// InstancePath returns the path of a single resource instance.
func (ns *Namespace) InstancePath() string {
	return "/" + ns.SubjectName() + "/{" + ns.IdentifierKey() + "}"
}

// RelationPath returns the path of the objects related to one subject.
func (ns *Namespace) RelationPath() string {
	return ns.InstancePath() + "/" + ns.ObjectName()
}

// EndpointFor returns the endpoint identifier for an operation on this namespace.
func (ns *Namespace) EndpointFor(op Operation) string {
	if op.IsEdge() {
		return op.Name() + "." + ns.SubjectName() + "." + ns.ObjectName()
	}
	return op.Name() + "." + ns.SubjectName()
}

// buildRoutePath prepends a prefix to a route path.
func buildRoutePath(path, prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if prefix == "" {
		if path == "" {
			return "/"
		}
		return path
	}
	return "/" + prefix + path
}
