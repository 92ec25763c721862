package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/url"
	"reflect"
	"slices"
	"strconv"
)

// DefaultLimit is the page size used when a request does not ask for one.
const DefaultLimit = 20

// Page is an offset/limit window over a collection. Embed it in the query
// type of a search route to bind "offset" and "limit":
//
//	type SearchPets struct {
//	    rest.Page
//	    Name string `query:"name"`
//	}
//
// Other non-empty query arguments of the embedding struct are collected in
// Extra so pagination links preserve the caller's filters.
type Page struct {
	Offset int               `query:"offset" default:"0" minimum:"0" doc:"Number of items to skip"`
	Limit  int               `query:"limit" default:"20" minimum:"1" doc:"Maximum number of items to return"`
	Extra  map[string]string `json:"-"`
}

// NewPage returns a page without extras.
func NewPage(offset, limit int) Page {
	return Page{Offset: offset, Limit: limit}
}

// Paging returns p. It lets generic code find a Page embedded in a request type.
func (p *Page) Paging() *Page { return p }

// Pager is implemented by request types that embed a Page.
type Pager interface {
	Paging() *Page
}

// PageFromQuery reads offset and limit from a query string, applying the
// defaults. Every other argument becomes an extra.
func PageFromQuery(q url.Values) (Page, error) {
	p := Page{Limit: DefaultLimit}

	for key, vals := range q {
		if len(vals) == 0 || vals[0] == "" {
			continue
		}
		switch key {
		case "offset":
			n, err := strconv.Atoi(vals[0])
			if err != nil || n < 0 {
				return Page{}, fmt.Errorf("%w: offset must be a non-negative integer, got %q", ErrInvalidPage, vals[0])
			}
			p.Offset = n
		case "limit":
			n, err := strconv.Atoi(vals[0])
			if err != nil || n < 1 {
				return Page{}, fmt.Errorf("%w: limit must be a positive integer, got %q", ErrInvalidPage, vals[0])
			}
			p.Limit = n
		default:
			p = p.With(key, vals[0])
		}
	}
	return p, nil
}

// Next returns the following page.
func (p Page) Next() Page {
	next := p
	next.Offset = p.Offset + p.Limit
	return next
}

// Prev returns the preceding page. The offset never drops below zero.
func (p Page) Prev() Page {
	prev := p
	prev.Offset = max(p.Offset-p.Limit, 0)
	return prev
}

// With returns a copy of p with an extra query argument.
func (p Page) With(key, value string) Page {
	extra := make(map[string]string, len(p.Extra)+1)
	maps.Copy(extra, p.Extra)
	extra[key] = value
	p.Extra = extra
	return p
}

// Tuples returns offset, limit and then the extras sorted by key.
func (p Page) Tuples() QueryString {
	qs := QueryString{
		{Key: "offset", Value: strconv.Itoa(p.Offset)},
		{Key: "limit", Value: strconv.Itoa(p.Limit)},
	}
	for _, key := range slices.Sorted(maps.Keys(p.Extra)) {
		qs = append(qs, QueryParam{Key: key, Value: p.Extra[key]})
	}
	return qs
}

// Map returns the page as a flat map.
func (p Page) Map() map[string]any {
	m := make(map[string]any, len(p.Extra)+2)
	for k, v := range p.Extra {
		m[k] = v
	}
	m["offset"] = p.Offset
	m["limit"] = p.Limit
	return m
}

func (p Page) String() string { return p.Tuples().Encode() }

// PaginatedList is one page of a collection together with navigation links.
type PaginatedList[T any] struct {
	Count  int               `json:"count" required:"true"`
	Items  []T               `json:"items" required:"true"`
	Offset int               `json:"offset" required:"true"`
	Limit  int               `json:"limit" required:"true"`
	Links  Links             `json:"_links" required:"true"`
	Extra  map[string]string `json:"-"`
}

// ListOption configures NewPaginatedList.
type ListOption func(*listConfig)

type listConfig struct {
	op     Operation
	params map[string]string
}

// ListOperation sets the operation the links point to. Defaults to Search.
func ListOperation(op Operation) ListOption {
	return func(c *listConfig) {
		c.op = op
	}
}

// ListParams supplies the path parameters of the list route, e.g. the
// subject identifier of a relation.
func ListParams(params map[string]string) ListOption {
	return func(c *listConfig) {
		c.params = params
	}
}

// NewPaginatedList wraps items and builds the "self", "next" and "prev"
// links. next is present only when more items follow; prev only when the
// page does not start at zero.
func NewPaginatedList[T any](ctx context.Context, ns *Namespace, page Page, items []T, count int, opts ...ListOption) (*PaginatedList[T], error) {
	cfg := listConfig{op: Search}
	for _, opt := range opts {
		opt(&cfg)
	}

	if items == nil {
		items = []T{}
	}

	list := &PaginatedList[T]{
		Count:  count,
		Items:  items,
		Offset: page.Offset,
		Limit:  page.Limit,
		Extra:  page.Extra,
	}

	link := func(p Page) (Link, error) {
		return LinkFor(ctx, cfg.op, ns, WithParams(cfg.params), WithQuery(p.Tuples()))
	}

	self, err := link(page)
	if err != nil {
		return nil, err
	}
	list.Links.Set("self", self)

	if page.Offset+page.Limit < count {
		next, err := link(page.Next())
		if err != nil {
			return nil, err
		}
		list.Links.Set("next", next)
	}

	if page.Offset > 0 {
		prev, err := link(page.Prev())
		if err != nil {
			return nil, err
		}
		list.Links.Set("prev", prev)
	}

	return list, nil
}

// MarshalJSON renders the list with its extras as top-level fields.
func (l PaginatedList[T]) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(l.Extra)+5)
	for k, v := range l.Extra {
		out[k] = v
	}
	out["count"] = l.Count
	out["items"] = l.Items
	out["offset"] = l.Offset
	out["limit"] = l.Limit
	out["_links"] = l.Links
	return json.Marshal(out)
}

// UnmarshalJSON reads a rendered list back, collecting unknown string
// fields as extras.
func (l *PaginatedList[T]) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	fields := map[string]any{
		"count":  &l.Count,
		"items":  &l.Items,
		"offset": &l.Offset,
		"limit":  &l.Limit,
		"_links": &l.Links,
	}
	for key, msg := range raw {
		if target, ok := fields[key]; ok {
			if err := json.Unmarshal(msg, target); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			continue
		}
		var s string
		if err := json.Unmarshal(msg, &s); err == nil {
			if l.Extra == nil {
				l.Extra = make(map[string]string)
			}
			l.Extra[key] = s
		}
	}
	return nil
}

// SchemaName names the list after its item type, e.g. "PetList".
func (PaginatedList[T]) SchemaName() string {
	return schemaNameOf(reflect.TypeFor[T]()) + "List"
}
