package blog

import (
	"net/url"
	"sort"
)

type Resource struct {
	Name     string
	Path     string
	Identity string
	// Locked fields are stripped from edit payloads.
	Locked   []string
	Actions  []string
	Ordering []string
}

func (r Resource) ItemPath(id string) string {
	return r.Path + url.PathEscape(id) + "/"
}

func (r Resource) ActionPath(id string, action string) string {
	return r.ItemPath(id) + action + "/"
}

func (r Resource) HasAction(action string) bool {
	for _, a := range r.Actions {
		if a == action {
			return true
		}
	}
	return false
}

var (
	Posts = Resource{
		Name:     "posts",
		Path:     "/api/blog/posts/",
		Identity: "slug",
		Locked:   []string{"slug"},
		Actions:  []string{"publish"},
		Ordering: []string{"-published_at", "published_at", "-views_count", "views_count", "title", "-title"},
	}
	Categories = Resource{
		Name:     "categories",
		Path:     "/api/blog/categories/",
		Identity: "id",
		Ordering: []string{"order", "name", "-id"},
	}
	Tags = Resource{
		Name:     "tags",
		Path:     "/api/blog/tags/",
		Identity: "id",
		Ordering: []string{"name", "slug", "-id"},
	}
	SeriesResource = Resource{
		Name:     "series",
		Path:     "/api/blog/series/",
		Identity: "id",
		Ordering: []string{"title", "-id"},
	}
	Comments = Resource{
		Name:     "comments",
		Path:     "/api/blog/comments/",
		Identity: "id",
		Ordering: []string{"-created_at", "created_at"},
	}
	Authors = Resource{
		Name:     "authors",
		Path:     "/api/blog/authors/",
		Identity: "user",
		Locked:   []string{"user"},
		Ordering: []string{"display_name", "-id"},
	}
	Reactions = Resource{
		Name:     "reactions",
		Path:     "/api/blog/reactions/",
		Identity: "id",
		Locked:   []string{"user"},
		Ordering: []string{"-created_at", "created_at"},
	}
	MediaResource = Resource{
		Name:     "media",
		Path:     "/api/blog/media/",
		Identity: "id",
		Ordering: []string{"-created_at", "title"},
	}
	Users = Resource{
		Name:     "users",
		Path:     "/api/users/users/",
		Identity: "id",
	}
)

var registry = map[string]Resource{
	Posts.Name:          Posts,
	Categories.Name:     Categories,
	Tags.Name:           Tags,
	SeriesResource.Name: SeriesResource,
	Comments.Name:       Comments,
	Authors.Name:        Authors,
	Reactions.Name:      Reactions,
	MediaResource.Name:  MediaResource,
	Users.Name:          Users,
}

func Lookup(name string) (Resource, bool) {
	r, ok := registry[name]
	return r, ok
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
