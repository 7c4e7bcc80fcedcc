package blog

import (
	"strings"

	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/jalali"
)

type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

// Payload is a write body. Prepare trims input and fills defaults before
// validation.
type Payload interface {
	Prepare(mode Mode)
}

type PostPayload struct {
	Mode Mode `json:"-" validate:"-"`
	// Published marks an edit of an already published post; its dates are
	// then left alone.
	Published bool `json:"-" validate:"-"`

	Slug           string `json:"slug,omitempty" validate:"omitempty,max=255"`
	Title          string `json:"title" validate:"required,max=255"`
	Excerpt        string `json:"excerpt" validate:"required"`
	Content        string `json:"content" validate:"required"`
	CategoryID     int    `json:"category_id" validate:"required,gt=0"`
	Status         string `json:"status" validate:"required,oneof=draft review scheduled published archived"`
	Visibility     string `json:"visibility" validate:"required,oneof=public private unlisted"`
	IsHot          bool   `json:"is_hot"`
	TagIDs         []int  `json:"tag_ids"`
	Series         *int   `json:"series"`
	ScheduledAt    string `json:"scheduled_at,omitempty"`
	PublishedAt    string `json:"published_at,omitempty"`
	SEOTitle       string `json:"seo_title,omitempty"`
	SEODescription string `json:"seo_description,omitempty"`
	CanonicalURL   string `json:"canonical_url,omitempty" validate:"omitempty,url"`
	CoverMediaID   *int   `json:"cover_media_id,omitempty"`
	OGImageID      *int   `json:"og_image_id,omitempty"`
}

func (p *PostPayload) Prepare(mode Mode) {
	p.Mode = mode
	p.Slug = strings.TrimSpace(p.Slug)
	p.Title = strings.TrimSpace(p.Title)
	p.Excerpt = strings.TrimSpace(p.Excerpt)
	p.Content = strings.TrimSpace(p.Content)
	p.SEOTitle = strings.TrimSpace(p.SEOTitle)
	p.SEODescription = strings.TrimSpace(p.SEODescription)
	p.CanonicalURL = strings.TrimSpace(p.CanonicalURL)
	if p.Status == "" {
		p.Status = "draft"
	}
	if p.Visibility == "" {
		p.Visibility = "public"
	}
	if p.TagIDs == nil {
		p.TagIDs = []int{}
	}
	if p.Series != nil && *p.Series <= 0 {
		p.Series = nil
	}
	if mode == ModeEdit {
		p.Slug = ""
	}

	p.ScheduledAt = jalali.NormalizeISO(strings.TrimSpace(p.ScheduledAt))
	p.PublishedAt = jalali.NormalizeISO(strings.TrimSpace(p.PublishedAt))
	if p.Status != "scheduled" {
		p.ScheduledAt = ""
	}
	if mode == ModeEdit && p.Published {
		p.ScheduledAt = ""
		p.PublishedAt = ""
	}
}

type CategoryPayload struct {
	Mode        Mode   `json:"-" validate:"-"`
	Name        string `json:"name" validate:"required,max=255"`
	Slug        string `json:"slug" validate:"required"`
	Description string `json:"description"`
	Parent      *int   `json:"parent"`
	Order       int    `json:"order" validate:"min=0"`
}

func (p *CategoryPayload) Prepare(mode Mode) {
	p.Mode = mode
	p.Name = strings.TrimSpace(p.Name)
	p.Slug = strings.TrimSpace(p.Slug)
	p.Description = strings.TrimSpace(p.Description)
	if p.Slug == "" {
		p.Slug = Slugify(p.Name)
	}
	if p.Parent != nil && *p.Parent <= 0 {
		p.Parent = nil
	}
}

type TagPayload struct {
	Mode        Mode   `json:"-" validate:"-"`
	Slug        string `json:"slug" validate:"required,slug"`
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description,omitempty"`
}

func (p *TagPayload) Prepare(mode Mode) {
	p.Mode = mode
	p.Slug = strings.TrimSpace(p.Slug)
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)
}

type SeriesPayload struct {
	Mode          Mode   `json:"-" validate:"-"`
	Slug          string `json:"slug" validate:"required,slugchars"`
	Title         string `json:"title" validate:"required,max=255"`
	Description   string `json:"description"`
	OrderStrategy string `json:"order_strategy" validate:"required,oneof=manual by_date"`
}

func (p *SeriesPayload) Prepare(mode Mode) {
	p.Mode = mode
	p.Slug = strings.TrimSpace(p.Slug)
	p.Title = strings.TrimSpace(p.Title)
	p.Description = strings.TrimSpace(p.Description)
	if p.OrderStrategy == "" {
		p.OrderStrategy = "manual"
	}
}

type CommentPayload struct {
	Mode    Mode   `json:"-" validate:"-"`
	Post    int    `json:"post" validate:"required,gt=0"`
	Content string `json:"content" validate:"required"`
	Status  string `json:"status" validate:"required,oneof=pending approved spam removed"`
	Parent  *int   `json:"parent"`
}

func (p *CommentPayload) Prepare(mode Mode) {
	p.Mode = mode
	p.Content = strings.TrimSpace(p.Content)
	p.Status = strings.ToLower(strings.TrimSpace(p.Status))
	if p.Status == "" {
		p.Status = "pending"
	}
	if p.Parent != nil && *p.Parent <= 0 {
		p.Parent = nil
	}
}

type AuthorProfilePayload struct {
	Mode        Mode   `json:"-" validate:"-"`
	User        *int   `json:"user,omitempty" validate:"required_if=Mode create,omitempty,gt=0"`
	DisplayName string `json:"display_name" validate:"required,max=255"`
	Bio         string `json:"bio"`
	Avatar      *int   `json:"avatar"`
}

func (p *AuthorProfilePayload) Prepare(mode Mode) {
	p.Mode = mode
	p.DisplayName = strings.TrimSpace(p.DisplayName)
	p.Bio = strings.TrimSpace(p.Bio)
	if p.Avatar != nil && *p.Avatar <= 0 {
		p.Avatar = nil
	}
	if mode == ModeEdit {
		p.User = nil
	}
}

type ReactionPayload struct {
	Mode        Mode   `json:"-" validate:"-"`
	User        *int   `json:"user,omitempty" validate:"required_if=Mode create,omitempty,gt=0"`
	Reaction    string `json:"reaction" validate:"required,max=32"`
	ContentType int    `json:"content_type" validate:"required,gt=0"`
	ObjectID    int    `json:"object_id" validate:"required,gt=0"`
}

func (p *ReactionPayload) Prepare(mode Mode) {
	p.Mode = mode
	p.Reaction = strings.TrimSpace(p.Reaction)
	if mode == ModeEdit {
		p.User = nil
	}
}
