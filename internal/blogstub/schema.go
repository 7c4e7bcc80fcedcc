package blogstub

import (
	"fmt"
	"time"

	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/blog"
)

type schema struct {
	singular   string
	fields     map[string]kind
	required   []string
	unique     []string
	slugFrom   string
	owner      string
	timestamps bool
	defaults   map[string]any
	// exact are query parameters compared to the row field of the same name.
	exact  []string
	search []string
	hook   func(s *Store, row map[string]any, input map[string]any, actor int, errs FieldErrors)
}

var schemas = map[string]schema{
	blog.Posts.Name: {
		singular: "post",
		fields: map[string]kind{
			"slug": kindString, "title": kindString, "excerpt": kindString, "content": kindString,
			"status": kindString, "visibility": kindString, "is_hot": kindBool,
			"category_id": kindOptionalInt, "tag_ids": kindIntList, "series": kindOptionalInt,
			"scheduled_at": kindDate, "published_at": kindDate,
			"seo_title": kindString, "seo_description": kindString, "canonical_url": kindString,
			"cover_media_id": kindOptionalInt, "og_image_id": kindOptionalInt, "views_count": kindInt,
		},
		required:   []string{"title", "slug"},
		unique:     []string{"slug"},
		slugFrom:   "title",
		timestamps: true,
		defaults: map[string]any{
			"status": "draft", "visibility": "public", "is_hot": false, "views_count": 0,
			"excerpt": "", "content": "", "category": nil, "tags": []any{}, "series": nil,
			"published_at": nil, "scheduled_at": nil,
		},
		exact:  []string{"status", "visibility", "series"},
		search: []string{"title", "slug", "excerpt", "content"},
		hook:   postHook,
	},
	blog.Categories.Name: {
		singular: "category",
		fields:   map[string]kind{"name": kindString, "slug": kindString, "description": kindString, "parent": kindOptionalInt, "order": kindInt},
		required: []string{"name", "slug"},
		unique:   []string{"slug"},
		slugFrom: "name",
		defaults: map[string]any{"description": "", "parent": nil, "order": 0},
		exact:    []string{"parent"},
		search:   []string{"name", "slug", "description"},
		hook:     categoryHook,
	},
	blog.Tags.Name: {
		singular: "tag",
		fields:   map[string]kind{"name": kindString, "slug": kindString, "description": kindString},
		required: []string{"name", "slug"},
		unique:   []string{"slug"},
		defaults: map[string]any{"description": ""},
		search:   []string{"name", "slug", "description"},
		hook:     slugHook,
	},
	blog.SeriesResource.Name: {
		singular: "series",
		fields:   map[string]kind{"title": kindString, "slug": kindString, "description": kindString, "order_strategy": kindString},
		required: []string{"title", "slug"},
		unique:   []string{"slug"},
		slugFrom: "title",
		defaults: map[string]any{"description": "", "order_strategy": "manual"},
		exact:    []string{"order_strategy"},
		search:   []string{"title", "slug", "description"},
		hook:     seriesHook,
	},
	blog.Comments.Name: {
		singular:   "comment",
		fields:     map[string]kind{"post": kindInt, "content": kindString, "status": kindString, "parent": kindOptionalInt},
		required:   []string{"post", "content"},
		owner:      "user",
		timestamps: true,
		defaults:   map[string]any{"status": "pending", "parent": nil, "ip_address": "", "user_agent": ""},
		exact:      []string{"status", "post", "user", "parent"},
		search:     []string{"content"},
		hook:       commentHook,
	},
	blog.Authors.Name: {
		singular: "author profile",
		fields:   map[string]kind{"user": kindInt, "display_name": kindString, "bio": kindString, "avatar": kindOptionalInt},
		required: []string{"user", "display_name"},
		unique:   []string{"user"},
		defaults: map[string]any{"bio": "", "avatar": nil},
		exact:    []string{"user"},
		search:   []string{"display_name", "bio"},
		hook:     authorHook,
	},
	blog.Reactions.Name: {
		singular:   "reaction",
		fields:     map[string]kind{"user": kindInt, "reaction": kindString, "content_type": kindInt, "object_id": kindInt},
		required:   []string{"reaction", "object_id"},
		owner:      "user",
		timestamps: true,
		defaults:   map[string]any{"content_type": 0},
		exact:      []string{"user", "reaction", "content_type", "object_id"},
		search:     []string{"reaction"},
	},
	blog.MediaResource.Name: {
		singular: "media",
		fields: map[string]kind{
			"title": kindString, "alt_text": kindString, "url": kindString, "file": kindString,
			"storage_key": kindString, "mime": kindString, "type": kindString, "size": kindInt,
		},
		timestamps: true,
		defaults:   map[string]any{"title": "", "alt_text": ""},
		exact:      []string{"mime", "type"},
		search:     []string{"title", "alt_text", "url"},
	},
}

var (
	postStatuses     = []string{"draft", "review", "scheduled", "published", "archived"}
	postVisibilities = []string{"public", "private", "unlisted"}
	commentStatuses  = []string{"pending", "approved", "spam", "removed"}
	orderStrategies  = []string{"manual", "by_date"}
)

func choice(errs FieldErrors, row map[string]any, field string, allowed []string) {
	v, _ := row[field].(string)
	if !contains(allowed, v) {
		errs.add(field, fmt.Sprintf("\"%s\" is not a valid choice.", v))
	}
}

func slugHook(_ *Store, row map[string]any, _ map[string]any, _ int, errs FieldErrors) {
	if slug, _ := row["slug"].(string); slug != "" && !blog.ValidSlug(slug) {
		errs.add("slug", "Enter a valid \"slug\" consisting of letters, numbers, underscores or hyphens.")
	}
}

func postHook(s *Store, row map[string]any, input map[string]any, actor int, errs FieldErrors) {
	choice(errs, row, "status", postStatuses)
	choice(errs, row, "visibility", postVisibilities)

	if _, ok := input["category_id"]; ok {
		delete(row, "category_id")
		if id, ok := toInt(input["category_id"]); ok && id > 0 {
			ref, found := s.lookupRef(blog.Categories.Name, id)
			if !found {
				errs.add("category_id", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", id))
			}
			row["category"] = ref
		} else {
			row["category"] = nil
		}
	}
	if ids, ok := row["tag_ids"].([]int); ok {
		delete(row, "tag_ids")
		tags := make([]any, 0, len(ids))
		for _, id := range ids {
			ref, found := s.lookupRef(blog.Tags.Name, id)
			if !found {
				errs.add("tag_ids", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", id))
				continue
			}
			tags = append(tags, ref)
		}
		row["tags"] = tags
	}
	if row["author"] == nil {
		row["author"] = map[string]any{"id": actor, "display_name": s.displayName(actor)}
	}

	if row["status"] == "published" && isBlank(row["published_at"]) {
		row["published_at"] = s.now().UTC().Format(time.RFC3339)
	}
	if row["status"] != "scheduled" {
		row["scheduled_at"] = nil
	} else if isBlank(row["scheduled_at"]) {
		errs.add("scheduled_at", "This field is required when status is scheduled.")
	}
}

func categoryHook(s *Store, row map[string]any, input map[string]any, actor int, errs FieldErrors) {
	slugHook(s, row, input, actor, errs)
	parent, ok := row["parent"].(int)
	if !ok {
		return
	}
	if parent == row["id"] {
		errs.add("parent", "A category cannot be its own parent.")
		return
	}
	if _, found := s.lookupRef(blog.Categories.Name, parent); !found {
		errs.add("parent", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", parent))
	}
}

func seriesHook(s *Store, row map[string]any, input map[string]any, actor int, errs FieldErrors) {
	slugHook(s, row, input, actor, errs)
	choice(errs, row, "order_strategy", orderStrategies)
}

func commentHook(s *Store, row map[string]any, _ map[string]any, _ int, errs FieldErrors) {
	choice(errs, row, "status", commentStatuses)
	if post, ok := row["post"].(int); ok && post > 0 {
		if _, found := s.lookupRef(blog.Posts.Name, post); !found {
			errs.add("post", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", post))
		}
	}
}

func authorHook(s *Store, row map[string]any, _ map[string]any, _ int, errs FieldErrors) {
	if id, ok := row["user"].(int); ok && id > 0 {
		if _, found := s.users[id]; !found {
			errs.add("user", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", id))
		}
	}
}

// displayName is called with the store lock held.
func (s *Store) displayName(userID int) string {
	for _, row := range s.tables[blog.Authors.Name].rows {
		if row["user"] == userID {
			if name, _ := row["display_name"].(string); name != "" {
				return name
			}
		}
	}
	if u, ok := s.users[userID]; ok {
		return u.Username
	}
	return ""
}
