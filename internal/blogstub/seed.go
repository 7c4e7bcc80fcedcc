package blogstub

import (
	"fmt"
	"time"

	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/blog"
	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/security"
)

type SeedUser struct {
	Username  string
	Password  string
	Email     string
	FirstName string
	LastName  string
	// Author gives the user an author profile with this display name.
	Author string
}

// Seed creates the given users and a small blog owned by the first author.
func (s *Store) Seed(users []SeedUser) error {
	var authorID int
	for _, su := range users {
		hash, err := security.HashPassword(su.Password)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", su.Username, err)
		}
		u := s.addUser(user{
			Username:     su.Username,
			Email:        su.Email,
			FirstName:    su.FirstName,
			LastName:     su.LastName,
			PasswordHash: hash,
		})
		if su.Author == "" {
			continue
		}
		if _, err := s.Create(blog.Authors.Name, map[string]any{"user": u.ID, "display_name": su.Author}, u.ID); err != nil {
			return fmt.Errorf("seed author %s: %w", su.Username, err)
		}
		if authorID == 0 {
			authorID = u.ID
		}
	}
	if authorID == 0 {
		return nil
	}
	return s.seedBlog(authorID)
}

func (s *Store) seedBlog(author int) error {
	now := s.now().UTC()
	steps := []struct {
		table string
		input map[string]any
	}{
		{blog.Categories.Name, map[string]any{"name": "News", "slug": "news", "order": 0}},
		{blog.Categories.Name, map[string]any{"name": "Guides", "slug": "guides", "order": 1}},
		{blog.Tags.Name, map[string]any{"name": "RPG", "slug": "rpg"}},
		{blog.Tags.Name, map[string]any{"name": "Indie", "slug": "indie"}},
		{blog.Tags.Name, map[string]any{"name": "Review", "slug": "review"}},
		{blog.SeriesResource.Name, map[string]any{"title": "Beginner guides", "slug": "beginner-guides"}},
		{blog.Posts.Name, map[string]any{
			"title": "Welcome to Atom", "slug": "welcome-to-atom", "excerpt": "Hello", "content": "First post.",
			"status": "published", "category_id": 1, "tag_ids": []any{2}, "views_count": 120,
			"published_at": now.AddDate(0, 0, -3).Format(time.RFC3339),
		}},
		{blog.Posts.Name, map[string]any{
			"title": "RPG roundup", "slug": "rpg-roundup", "excerpt": "This month in RPGs", "content": "Draft.",
			"status": "draft", "category_id": 2, "tag_ids": []any{1, 3},
		}},
		{blog.Posts.Name, map[string]any{
			"title": "Spring preview", "slug": "spring-preview", "excerpt": "Coming soon", "content": "Soon.",
			"status": "scheduled", "category_id": 1, "scheduled_at": now.AddDate(0, 0, 5).Format(time.RFC3339),
		}},
		{blog.Comments.Name, map[string]any{"post": 1, "content": "Great start!"}},
		{blog.Comments.Name, map[string]any{"post": 1, "content": "Looking forward to more.", "status": "approved"}},
		{blog.Reactions.Name, map[string]any{"reaction": "like", "content_type": 1, "object_id": 1}},
		{blog.MediaResource.Name, map[string]any{"title": "Cover", "url": "/media/cover.png", "mime": "image/png", "type": "image", "size": 2048}},
	}
	for _, step := range steps {
		if _, err := s.Create(step.table, step.input, author); err != nil {
			return fmt.Errorf("seed %s: %w", step.table, err)
		}
	}
	return nil
}
