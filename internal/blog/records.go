package blog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Record is a resource row as the panel sees it: a typed view over the raw
// JSON object the API returned.
type Record interface {
	Key() string
	Fields() map[string]any
	SearchTerms() []string
	RefTerms() []string
}

type raw struct {
	fields map[string]any
}

func (r raw) Fields() map[string]any {
	return r.fields
}

func (r *raw) setFields(fields map[string]any) {
	r.fields = fields
}

type fieldSetter interface {
	setFields(map[string]any)
}

// Decode converts one JSON object into T. Numbers sent as strings and nulls
// are tolerated.
func Decode[T any](fields map[string]any) (T, error) {
	var out T
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           &out,
	})
	if err != nil {
		return out, err
	}
	if err := decoder.Decode(fields); err != nil {
		return out, fmt.Errorf("decode record: %w", err)
	}
	if setter, ok := any(&out).(fieldSetter); ok {
		setter.setFields(fields)
	}
	return out, nil
}

func DecodeAll[T any](items []map[string]any) ([]T, error) {
	out := make([]T, 0, len(items))
	for _, item := range items {
		rec, err := Decode[T](item)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// RefID extracts a numeric id from a field that is either a bare id or a
// nested object carrying "id".
func RefID(v any) (int, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case int:
		return t, t != 0
	case int64:
		return int(t), t != 0
	case float64:
		return int(t), t != 0
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		return n, err == nil && n != 0
	case map[string]any:
		return RefID(t["id"])
	}
	return 0, false
}

// RefLabel returns a display label for a reference field: the nested
// object's name/title/slug, a bare string, or "#id".
func RefLabel(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case map[string]any:
		for _, key := range []string{"name", "title", "display_name", "username", "slug"} {
			if s, ok := t[key].(string); ok && s != "" {
				return s
			}
		}
		if id, ok := RefID(t); ok {
			return "#" + strconv.Itoa(id)
		}
		return ""
	}
	if id, ok := RefID(v); ok {
		return "#" + strconv.Itoa(id)
	}
	return fmt.Sprint(v)
}

func idTerm(id int) string {
	if id == 0 {
		return ""
	}
	return "#" + strconv.Itoa(id)
}

func itoa(id int) string {
	if id == 0 {
		return ""
	}
	return strconv.Itoa(id)
}

type Post struct {
	raw
	ID             int    `json:"id"`
	Slug           string `json:"slug"`
	Title          string `json:"title"`
	Excerpt        string `json:"excerpt"`
	Content        string `json:"content"`
	Status         string `json:"status"`
	Visibility     string `json:"visibility"`
	IsHot          bool   `json:"is_hot"`
	Category       any    `json:"category"`
	Tags           []any  `json:"tags"`
	Series         any    `json:"series"`
	Author         any    `json:"author"`
	ViewsCount     int    `json:"views_count"`
	PublishedAt    string `json:"published_at"`
	ScheduledAt    string `json:"scheduled_at"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
	SEOTitle       string `json:"seo_title"`
	SEODescription string `json:"seo_description"`
	CanonicalURL   string `json:"canonical_url"`
	CoverMedia     any    `json:"cover_media"`
}

func (p Post) Key() string { return p.Slug }

func (p Post) CategoryLabel() string {
	if label := RefLabel(p.Category); label != "" {
		return label
	}
	return "uncategorized"
}

func (p Post) TagSlugs() []string {
	out := make([]string, 0, len(p.Tags))
	for _, t := range p.Tags {
		switch v := t.(type) {
		case string:
			out = append(out, v)
		case map[string]any:
			if s, ok := v["slug"].(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

func (p Post) HasTag(slug string) bool {
	for _, s := range p.TagSlugs() {
		if s == slug {
			return true
		}
	}
	return false
}

func (p Post) SearchTerms() []string {
	terms := []string{itoa(p.ID), p.Slug, p.Title, p.Excerpt, p.Status, p.Visibility, RefLabel(p.Category), RefLabel(p.Author)}
	return append(terms, p.TagSlugs()...)
}

func (p Post) RefTerms() []string { return []string{idTerm(p.ID)} }

type Category struct {
	raw
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Parent      any    `json:"parent"`
	Order       int    `json:"order"`
	PostsCount  int    `json:"posts_count"`
}

func (c Category) Key() string { return strconv.Itoa(c.ID) }

func (c Category) ParentID() (int, bool) { return RefID(c.Parent) }

func (c Category) SearchTerms() []string {
	return []string{itoa(c.ID), c.Name, c.Slug, c.Description, RefLabel(c.Parent)}
}

func (c Category) RefTerms() []string {
	parent, _ := c.ParentID()
	return []string{idTerm(c.ID), idTerm(parent)}
}

type Tag struct {
	raw
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

func (t Tag) Key() string { return strconv.Itoa(t.ID) }

func (t Tag) SearchTerms() []string {
	return []string{itoa(t.ID), t.Name, t.Slug, t.Description}
}

func (t Tag) RefTerms() []string { return []string{idTerm(t.ID)} }

type Series struct {
	raw
	ID            int    `json:"id"`
	Slug          string `json:"slug"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	OrderStrategy string `json:"order_strategy"`
}

func (s Series) Key() string { return strconv.Itoa(s.ID) }

func (s Series) SearchTerms() []string {
	return []string{itoa(s.ID), s.Slug, s.Title, s.Description, s.OrderStrategy}
}

func (s Series) RefTerms() []string { return []string{idTerm(s.ID)} }

type Comment struct {
	raw
	ID        int    `json:"id"`
	Post      int    `json:"post"`
	User      int    `json:"user"`
	Parent    int    `json:"parent"`
	Content   string `json:"content"`
	Status    string `json:"status"`
	IP        string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	CreatedAt string `json:"created_at"`
}

func (c Comment) Key() string { return strconv.Itoa(c.ID) }

// EffectiveStatus treats a missing status as pending.
func (c Comment) EffectiveStatus() string {
	if c.Status == "" {
		return "pending"
	}
	return strings.ToLower(c.Status)
}

func (c Comment) SearchTerms() []string {
	return []string{itoa(c.ID), itoa(c.Post), itoa(c.User), itoa(c.Parent), c.EffectiveStatus(), c.Content}
}

func (c Comment) RefTerms() []string {
	return []string{idTerm(c.ID), idTerm(c.Post), idTerm(c.User), idTerm(c.Parent)}
}

type AuthorProfile struct {
	raw
	ID          int    `json:"id"`
	User        int    `json:"user"`
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio"`
	Avatar      any    `json:"avatar"`
}

func (a AuthorProfile) Key() string { return strconv.Itoa(a.User) }

func (a AuthorProfile) AvatarID() (int, bool) { return RefID(a.Avatar) }

func (a AuthorProfile) SearchTerms() []string {
	return []string{itoa(a.ID), itoa(a.User), a.DisplayName, a.Bio}
}

func (a AuthorProfile) RefTerms() []string {
	avatar, _ := a.AvatarID()
	return []string{idTerm(a.User), idTerm(avatar)}
}

type Reaction struct {
	raw
	ID          int    `json:"id"`
	User        int    `json:"user"`
	Reaction    string `json:"reaction"`
	ContentType int    `json:"content_type"`
	ObjectID    int    `json:"object_id"`
	CreatedAt   string `json:"created_at"`
}

func (r Reaction) Key() string { return strconv.Itoa(r.ID) }

func (r Reaction) SearchTerms() []string {
	return []string{itoa(r.ID), itoa(r.User), r.Reaction, itoa(r.ContentType), itoa(r.ObjectID)}
}

func (r Reaction) RefTerms() []string {
	return []string{idTerm(r.ID), idTerm(r.User), idTerm(r.ObjectID)}
}

type Media struct {
	raw
	ID         int    `json:"id"`
	Title      string `json:"title"`
	AltText    string `json:"alt_text"`
	URL        string `json:"url"`
	File       string `json:"file"`
	StorageKey string `json:"storage_key"`
	Mime       string `json:"mime"`
	Type       string `json:"type"`
	CreatedAt  string `json:"created_at"`
}

func (m Media) Key() string { return strconv.Itoa(m.ID) }

// Link prefers url, then file, then the storage key.
func (m Media) Link() string {
	for _, s := range []string{m.URL, m.File, m.StorageKey} {
		if s != "" {
			return s
		}
	}
	return ""
}

func (m Media) SearchTerms() []string {
	return []string{itoa(m.ID), m.Title, m.AltText, m.Link(), m.Mime, m.Type}
}

func (m Media) RefTerms() []string { return []string{idTerm(m.ID)} }

type User struct {
	raw
	ID             int    `json:"id"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	FullName       string `json:"full_name"`
	ProfilePicture string `json:"profile_picture"`
	Role           any    `json:"role"`
}

func (u User) Key() string { return strconv.Itoa(u.ID) }

// DisplayName follows the panel's chip: first+last, then username, then email.
func (u User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name != "" {
		return name
	}
	if u.Username != "" {
		return u.Username
	}
	if u.Email != "" {
		return u.Email
	}
	return "author"
}

func (u User) SearchTerms() []string {
	return []string{itoa(u.ID), u.Username, u.Email, u.FirstName, u.LastName}
}

func (u User) RefTerms() []string { return []string{idTerm(u.ID)} }
