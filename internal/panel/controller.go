package panel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/apiclient"
	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/blog"
)

var ErrUnknownAction = errors.New("unknown action")

type Options struct {
	FetchPageSize int
	MaxPages      int
	Log           zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.FetchPageSize <= 0 {
		o.FetchPageSize = 200
	}
	if o.MaxPages <= 0 {
		o.MaxPages = 10
	}
	return o
}

// Controller drives one blog resource: it drains the API's pages, narrows
// and orders the result on the client, and performs validated writes.
type Controller[T blog.Record] struct {
	client   *apiclient.Client
	resource blog.Resource
	opts     Options
	log      zerolog.Logger
}

func NewController[T blog.Record](client *apiclient.Client, resource blog.Resource, opts Options) *Controller[T] {
	opts = opts.withDefaults()
	return &Controller[T]{
		client:   client,
		resource: resource,
		opts:     opts,
		log:      opts.Log.With().Str("resource", resource.Name).Logger(),
	}
}

func (c *Controller[T]) Resource() blog.Resource {
	return c.resource
}

type listEnvelope struct {
	Count   *int             `json:"count"`
	Next    *string          `json:"next"`
	Results []map[string]any `json:"results"`
	Data    []map[string]any `json:"data"`
}

// FetchRaw follows the API's pagination until next is empty, the reported
// count is reached, or MaxPages pages were read.
func (c *Controller[T]) FetchRaw(ctx context.Context, params url.Values) ([]map[string]any, error) {
	query := url.Values{}
	for k, v := range params {
		query[k] = append([]string(nil), v...)
	}
	if query.Get("page_size") == "" {
		query.Set("page_size", strconv.Itoa(c.opts.FetchPageSize))
	}
	if query.Get("page") == "" {
		query.Set("page", "1")
	}

	path := c.resource.Path
	var out []map[string]any
	for page := 0; page < c.opts.MaxPages && path != ""; page++ {
		var body json.RawMessage
		if err := c.client.GetJSON(ctx, path, query, &body); err != nil {
			return nil, err
		}

		items, env, err := decodeList(body)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.resource.Name, err)
		}
		out = append(out, items...)
		if env == nil {
			break
		}
		if env.Count != nil && len(out) >= *env.Count {
			break
		}
		if env.Next == nil || *env.Next == "" {
			break
		}
		path = c.nextPath(*env.Next)
		query = nil
	}
	c.log.Debug().Int("count", len(out)).Msg("fetched list")
	return out, nil
}

func (c *Controller[T]) FetchAll(ctx context.Context, params url.Values) ([]T, error) {
	raw, err := c.FetchRaw(ctx, params)
	if err != nil {
		return nil, err
	}
	return blog.DecodeAll[T](raw)
}

// Count reads the server-side total with a one-item page. ok is false when
// the API does not report a count.
func (c *Controller[T]) Count(ctx context.Context, params url.Values) (count int, ok bool, err error) {
	query := url.Values{}
	for k, v := range params {
		query[k] = append([]string(nil), v...)
	}
	query.Set("page_size", "1")

	var body json.RawMessage
	if err := c.client.GetJSON(ctx, c.resource.Path, query, &body); err != nil {
		return 0, false, err
	}
	items, env, err := decodeList(body)
	if err != nil {
		return 0, false, err
	}
	if env == nil {
		return len(items), true, nil
	}
	if env.Count == nil {
		return 0, false, nil
	}
	return *env.Count, true, nil
}

func decodeList(body json.RawMessage) ([]map[string]any, *listEnvelope, error) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" || trimmed == "null" {
		return nil, nil, nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var items []map[string]any
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, nil, fmt.Errorf("decode list: %w", err)
		}
		return items, nil, nil
	}
	var env listEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, nil, fmt.Errorf("decode list: %w", err)
	}
	if env.Results != nil {
		return env.Results, &env, nil
	}
	return env.Data, &env, nil
}

// nextPath turns an absolute next link into a path relative to the API base
// so the request goes through the same client.
func (c *Controller[T]) nextPath(next string) string {
	if base := c.client.BaseURL(); base != "" && strings.HasPrefix(next, base) {
		return strings.TrimPrefix(next, base)
	}
	u, err := url.Parse(next)
	if err != nil || u.Host == "" {
		return next
	}
	return u.RequestURI()
}

type ListOptions[T blog.Record] struct {
	// Params go to the server. When they carry an ordering the server
	// rejects, the list is fetched again without it.
	Params   url.Values
	Filter   Filter[T]
	Ordering string
	Page     int
	PageSize int
	// Hydrate runs on the fetched records before filtering, so that a
	// filter can search resolved references.
	Hydrate func(ctx context.Context, items []T)
}

type ListResult[T blog.Record] struct {
	Page Page[T]
	// All holds every record the server returned, before filtering.
	All []T
}

func (c *Controller[T]) List(ctx context.Context, opts ListOptions[T]) (ListResult[T], error) {
	items, err := c.FetchAll(ctx, opts.Params)
	if err != nil && opts.Params.Get("ordering") != "" && !errors.Is(err, apiclient.ErrSessionExpired) {
		c.log.Debug().Err(err).Msg("server ordering rejected, retrying without it")
		params := url.Values{}
		for k, v := range opts.Params {
			if k != "ordering" {
				params[k] = v
			}
		}
		items, err = c.FetchAll(ctx, params)
	}
	if err != nil {
		return ListResult[T]{}, err
	}
	if opts.Hydrate != nil {
		opts.Hydrate(ctx, items)
	}

	filtered := opts.Filter.Apply(items)
	Sort(filtered, opts.Ordering)
	return ListResult[T]{Page: Paginate(filtered, opts.Page, opts.PageSize), All: items}, nil
}

func (c *Controller[T]) Get(ctx context.Context, id string) (T, error) {
	var fields map[string]any
	if err := c.client.GetJSON(ctx, c.resource.ItemPath(id), nil, &fields); err != nil {
		var zero T
		return zero, err
	}
	return blog.Decode[T](fields)
}

// Create validates the payload locally and only then posts it.
func (c *Controller[T]) Create(ctx context.Context, payload blog.Payload) (T, error) {
	var zero T
	if err := blog.Validate(payload, blog.ModeCreate); err != nil {
		return zero, err
	}
	var fields map[string]any
	if err := c.client.PostJSON(ctx, c.resource.Path, payload, &fields); err != nil {
		return zero, err
	}
	c.log.Info().Msg("created")
	return decodeOptional[T](fields)
}

// Update validates the payload and sends it as a PATCH without the
// resource's locked identity fields.
func (c *Controller[T]) Update(ctx context.Context, id string, payload blog.Payload) (T, error) {
	var zero T
	if err := blog.Validate(payload, blog.ModeEdit); err != nil {
		return zero, err
	}
	body, err := c.editBody(payload)
	if err != nil {
		return zero, err
	}
	var fields map[string]any
	if err := c.client.PatchJSON(ctx, c.resource.ItemPath(id), body, &fields); err != nil {
		return zero, err
	}
	c.log.Info().Str("id", id).Msg("updated")
	return decodeOptional[T](fields)
}

func (c *Controller[T]) editBody(payload blog.Payload) (map[string]any, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	for _, key := range c.resource.Locked {
		delete(body, key)
	}
	return body, nil
}

// Delete asks the confirmer first. A declined prompt returns false and
// sends nothing.
func (c *Controller[T]) Delete(ctx context.Context, id string, confirm Confirmer) (bool, error) {
	ok, err := confirm.Confirm(ctx, fmt.Sprintf("Delete %s %s? This cannot be undone.", c.resource.Name, id))
	if err != nil || !ok {
		return false, err
	}
	if err := c.client.Delete(ctx, c.resource.ItemPath(id)); err != nil {
		return false, err
	}
	c.log.Info().Str("id", id).Msg("deleted")
	return true, nil
}

// Action posts to an item's action endpoint, such as a post's publish.
func (c *Controller[T]) Action(ctx context.Context, id string, action string, confirm Confirmer) (T, bool, error) {
	var zero T
	if !c.resource.HasAction(action) {
		return zero, false, fmt.Errorf("%w: %s on %s", ErrUnknownAction, action, c.resource.Name)
	}
	ok, err := confirm.Confirm(ctx, fmt.Sprintf("Run %s on %s %s?", action, c.resource.Name, id))
	if err != nil || !ok {
		return zero, false, err
	}
	var fields map[string]any
	if err := c.client.PostJSON(ctx, c.resource.ActionPath(id, action), map[string]any{}, &fields); err != nil {
		return zero, false, err
	}
	c.log.Info().Str("id", id).Str("action", action).Msg("action done")
	rec, err := decodeOptional[T](fields)
	return rec, true, err
}

func decodeOptional[T any](fields map[string]any) (T, error) {
	if fields == nil {
		var zero T
		return zero, nil
	}
	return blog.Decode[T](fields)
}
