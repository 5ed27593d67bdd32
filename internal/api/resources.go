package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"

	"appcatalog/internal/catalog"
)

// Collections maps the resource kinds accepted on the command line to their
// REST collection names.
var Collections = map[string]string{
	"apps":        "applications",
	"products":    "products",
	"repos":       "repos",
	"backlogs":    "backlogs",
	"contacts":    "contacts",
	"docs":        "documents",
	"risks":       "risk-stories",
	"outcomes":    "business-outcomes",
	"guild-smes":  "guild-smes",
	"deployments": "deployments",
}

// Kinds returns the resource kinds in sorted order.
func Kinds() []string {
	kinds := make([]string, 0, len(Collections))
	for k := range Collections {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Resource is the list/get/create/update/delete surface of one REST collection.
type Resource[T any] struct {
	client     *Client
	collection string
}

// NewResource binds a collection name to a client.
func NewResource[T any](c *Client, collection string) *Resource[T] {
	return &Resource[T]{client: c, collection: collection}
}

func (r *Resource[T]) path(id string) string {
	if id == "" {
		return "/api/" + r.collection
	}
	return "/api/" + r.collection + "/" + url.PathEscape(id)
}

// Collection returns the REST collection name.
func (r *Resource[T]) Collection() string { return r.collection }

// List returns every item matching the optional query filters.
func (r *Resource[T]) List(ctx context.Context, query url.Values) ([]T, error) {
	return getList[T](ctx, r.client, r.path(""), query)
}

// Get fetches one item by id.
func (r *Resource[T]) Get(ctx context.Context, id string) (*T, error) {
	if id == "" {
		return nil, fmt.Errorf("%s: id required", r.collection)
	}
	var item T
	if err := r.client.Do(ctx, http.MethodGet, r.path(id), nil, nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// Create stores a new item and returns the backend's copy.
func (r *Resource[T]) Create(ctx context.Context, item T) (*T, error) {
	var created T
	if err := r.client.Do(ctx, http.MethodPost, r.path(""), nil, item, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Update replaces the item with the given id.
func (r *Resource[T]) Update(ctx context.Context, id string, item T) (*T, error) {
	if id == "" {
		return nil, fmt.Errorf("%s: id required", r.collection)
	}
	var updated T
	if err := r.client.Do(ctx, http.MethodPut, r.path(id), nil, item, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes the item with the given id.
func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%s: id required", r.collection)
	}
	return r.client.Do(ctx, http.MethodDelete, r.path(id), nil, nil, nil)
}

// Generic returns an untyped resource for kind, as listed in Collections.
func (c *Client) Generic(kind string) (*Resource[map[string]interface{}], error) {
	collection, ok := Collections[kind]
	if !ok {
		return nil, fmt.Errorf("unknown resource kind %q (valid: %v)", kind, Kinds())
	}
	return NewResource[map[string]interface{}](c, collection), nil
}

func (c *Client) Apps() *Resource[catalog.App] {
	return NewResource[catalog.App](c, Collections["apps"])
}

func (c *Client) Products() *Resource[catalog.Product] {
	return NewResource[catalog.Product](c, Collections["products"])
}

func (c *Client) Repos() *Resource[catalog.Repo] {
	return NewResource[catalog.Repo](c, Collections["repos"])
}

func (c *Client) Backlogs() *Resource[catalog.Backlog] {
	return NewResource[catalog.Backlog](c, Collections["backlogs"])
}

func (c *Client) Contacts() *Resource[catalog.Contact] {
	return NewResource[catalog.Contact](c, Collections["contacts"])
}

func (c *Client) Documents() *Resource[catalog.Document] {
	return NewResource[catalog.Document](c, Collections["docs"])
}

func (c *Client) RiskStories() *Resource[catalog.RiskStory] {
	return NewResource[catalog.RiskStory](c, Collections["risks"])
}

func (c *Client) BusinessOutcomes() *Resource[catalog.BusinessOutcome] {
	return NewResource[catalog.BusinessOutcome](c, Collections["outcomes"])
}

func (c *Client) GuildSMEs() *Resource[catalog.GuildSME] {
	return NewResource[catalog.GuildSME](c, Collections["guild-smes"])
}

func (c *Client) Deployments() *Resource[catalog.Deployment] {
	return NewResource[catalog.Deployment](c, Collections["deployments"])
}
