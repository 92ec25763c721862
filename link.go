package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"
)

// ErrNoLinker is returned when links are requested outside of a request
// served by a Router.
var ErrNoLinker = errors.New("no router in request context")

// BuildError is returned when a route cannot be reversed into a URL because
// some of its path parameters were not supplied.
type BuildError struct {
	Endpoint string
	Missing  []string
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	return fmt.Sprintf("cannot build url for %q: missing %s", e.Endpoint, strings.Join(e.Missing, ", "))
}

// QueryParam is a single query string argument.
type QueryParam struct {
	Key   string
	Value string
}

// QueryString is an ordered list of query arguments. Unlike url.Values it
// encodes in insertion order.
type QueryString []QueryParam

// Encode renders the query string without the leading "?".
func (q QueryString) Encode() string {
	parts := make([]string, 0, len(q))
	for _, p := range q {
		parts = append(parts, url.QueryEscape(p.Key)+"="+url.QueryEscape(p.Value))
	}
	return strings.Join(parts, "&")
}

// Link is a hyperlink to another endpoint.
type Link struct {
	Href      string `json:"href" yaml:"href" required:"true"`
	Type      string `json:"type,omitempty" yaml:"type,omitempty"`
	Templated bool   `json:"templated,omitempty" yaml:"templated,omitempty"`
}

// Links maps relation names to one link or to a list of links.
type Links struct {
	rels map[string]linkRel
}

type linkRel struct {
	links []Link
	list  bool
}

// Set stores a single link for rel.
func (l *Links) Set(rel string, link Link) {
	if l.rels == nil {
		l.rels = make(map[string]linkRel)
	}
	l.rels[rel] = linkRel{links: []Link{link}}
}

// SetList stores a list of links for rel. Lists always render as arrays,
// even when empty or holding a single link.
func (l *Links) SetList(rel string, links []Link) {
	if l.rels == nil {
		l.rels = make(map[string]linkRel)
	}
	l.rels[rel] = linkRel{links: links, list: true}
}

// Get returns the first link stored for rel.
func (l Links) Get(rel string) (Link, bool) {
	r, ok := l.rels[rel]
	if !ok || len(r.links) == 0 {
		return Link{}, false
	}
	return r.links[0], true
}

// List returns all links stored for rel.
func (l Links) List(rel string) []Link {
	return l.rels[rel].links
}

// Has reports whether rel is present.
func (l Links) Has(rel string) bool {
	_, ok := l.rels[rel]
	return ok
}

// Rels returns the relation names in sorted order.
func (l Links) Rels() []string {
	return slices.Sorted(maps.Keys(l.rels))
}

// MarshalJSON implements json.Marshaler.
func (l Links) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(l.rels))
	for rel, r := range l.rels {
		if r.list {
			links := r.links
			if links == nil {
				links = []Link{}
			}
			out[rel] = links
			continue
		}
		out[rel] = r.links[0]
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *Links) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	l.rels = make(map[string]linkRel, len(raw))
	for rel, msg := range raw {
		if strings.HasPrefix(strings.TrimSpace(string(msg)), "[") {
			var links []Link
			if err := json.Unmarshal(msg, &links); err != nil {
				return fmt.Errorf("links %q: %w", rel, err)
			}
			l.rels[rel] = linkRel{links: links, list: true}
			continue
		}
		var link Link
		if err := json.Unmarshal(msg, &link); err != nil {
			return fmt.Errorf("links %q: %w", rel, err)
		}
		l.rels[rel] = linkRel{links: []Link{link}}
	}
	return nil
}

// LinkOption configures LinkFor.
type LinkOption func(*linkConfig)

type linkConfig struct {
	query     QueryString
	params    map[string]string
	typ       string
	templated bool
}

// WithQuery appends query arguments to the link.
func WithQuery(q QueryString) LinkOption {
	return func(c *linkConfig) {
		c.query = append(c.query, q...)
	}
}

// WithParams supplies path parameters (e.g. "owner_id") for the link.
func WithParams(params map[string]string) LinkOption {
	return func(c *linkConfig) {
		if c.params == nil {
			c.params = make(map[string]string, len(params))
		}
		maps.Copy(c.params, params)
	}
}

// WithLinkType sets the "type" attribute of the link.
func WithLinkType(typ string) LinkOption {
	return func(c *linkConfig) {
		c.typ = typ
	}
}

// AllowTemplated renders missing path parameters as "{name}" placeholders
// and marks the link as templated instead of failing.
func AllowTemplated() LinkOption {
	return func(c *linkConfig) {
		c.templated = true
	}
}

type linkerKey struct{}

// linker resolves links for the request it was attached to.
type linker struct {
	router  *Router
	baseURL string
	req     *http.Request
}

// withLinker attaches a linker to a request that has already been matched
// by the mux, so path values remain available through the context.
func withLinker(r *http.Request, router *Router) *http.Request {
	l := &linker{router: router, baseURL: requestBaseURL(r)}
	r = r.WithContext(context.WithValue(r.Context(), linkerKey{}, l))
	l.req = r
	return r
}

func linkerFrom(ctx context.Context) (*linker, bool) {
	l, ok := ctx.Value(linkerKey{}).(*linker)
	return l, ok
}

// requestBaseURL returns scheme and host of the request as seen by the client.
func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}

// LinkFor returns an absolute link to the endpoint of op on ns. It must be
// called with the context of a request served by a Router.
func LinkFor(ctx context.Context, op Operation, ns *Namespace, opts ...LinkOption) (Link, error) {
	l, ok := linkerFrom(ctx)
	if !ok {
		return Link{}, ErrNoLinker
	}

	var cfg linkConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	link := Link{Type: cfg.typ}

	path, err := l.router.URLFor(op, ns, cfg.params)
	var be *BuildError
	if cfg.templated && errors.As(err, &be) {
		path, err = l.router.templatedURLFor(op, ns, cfg.params, be.Missing)
		link.Templated = true
	}
	if err != nil {
		return Link{}, err
	}

	link.Href = l.baseURL + path
	if qs := cfg.query.Encode(); qs != "" {
		if strings.Contains(path, "?") {
			link.Href += "&" + qs
		} else {
			link.Href += "?" + qs
		}
	}
	return link, nil
}

// URLFor returns the path of the route registered for op on ns. Parameters
// that do not appear in the route pattern are appended as a sorted query
// string. Missing path parameters yield a *BuildError.
func (r *Router) URLFor(op Operation, ns *Namespace, params map[string]string) (string, error) {
	endpoint := ns.EndpointFor(op)

	r.mu.Lock()
	ri, ok := r.endpoints[endpoint]
	r.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownEndpoint, endpoint)
	}

	path, used, missing := expandPattern(ri.pattern, params)
	if len(missing) > 0 {
		return "", &BuildError{Endpoint: endpoint, Missing: missing}
	}

	var extra QueryString
	for _, key := range slices.Sorted(maps.Keys(params)) {
		if !used[key] {
			extra = append(extra, QueryParam{Key: key, Value: params[key]})
		}
	}
	if len(extra) > 0 {
		path += "?" + extra.Encode()
	}
	return path, nil
}

// templatedURLFor reverses a route, substituting "{name}" for each missing
// parameter. The placeholders are left unescaped.
func (r *Router) templatedURLFor(op Operation, ns *Namespace, params map[string]string, missing []string) (string, error) {
	withPlaceholders := make(map[string]string, len(params)+len(missing))
	maps.Copy(withPlaceholders, params)
	for _, name := range missing {
		withPlaceholders[name] = "{" + name + "}"
	}

	path, err := r.URLFor(op, ns, withPlaceholders)
	if err != nil {
		return "", err
	}
	return url.PathUnescape(path)
}

// expandPattern substitutes path parameters into a mux pattern and reports
// which parameters were used and which wildcards had no value.
func expandPattern(pattern string, params map[string]string) (string, map[string]bool, []string) {
	var (
		b       strings.Builder
		used    = make(map[string]bool)
		missing []string
	)

	rest := pattern
	for {
		start := strings.IndexByte(rest, '{')
		end := strings.IndexByte(rest, '}')
		if start < 0 || end < start {
			b.WriteString(rest)
			break
		}

		b.WriteString(rest[:start])
		name := strings.TrimSuffix(rest[start+1:end], "...")
		rest = rest[end+1:]

		if name == "$" {
			continue
		}
		val, ok := params[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		used[name] = true
		b.WriteString(url.PathEscape(val))
	}

	return b.String(), used, missing
}

// pathWildcards returns the wildcard names of a mux pattern in order.
func pathWildcards(pattern string) []string {
	_, _, names := expandPattern(pattern, nil)
	return names
}
