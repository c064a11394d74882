package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

type PostMeta struct {
	Views         int64 `bson:"views" json:"views"`
	Likes         int64 `bson:"likes" json:"likes"`
	CommentsCount int64 `bson:"commentsCount" json:"commentsCount"`
}

type Post struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title         string             `bson:"title" json:"title"`
	Content       string             `bson:"content" json:"content"`
	Excerpt       string             `bson:"excerpt,omitempty" json:"excerpt,omitempty"`
	Slug          string             `bson:"slug" json:"slug"`
	Author        primitive.ObjectID `bson:"author" json:"author"`
	Categories    []string           `bson:"categories" json:"categories"`
	Tags          []string           `bson:"tags" json:"tags"`
	FeaturedImage string             `bson:"featuredImage,omitempty" json:"featuredImage,omitempty"`
	Status        string             `bson:"status" json:"status"`
	PublishedAt   *time.Time         `bson:"publishedAt,omitempty" json:"publishedAt,omitempty"`
	Meta          PostMeta           `bson:"meta" json:"meta"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`

	// Populated at read time from the users collection, never stored.
	AuthorInfo *Author `bson:"-" json:"authorInfo,omitempty"`
}

var (
	slugStrip    = regexp.MustCompile(`[^a-z0-9 -]`)
	slugSpaces   = regexp.MustCompile(`\s+`)
	slugCollapse = regexp.MustCompile(`-+`)
)

// Slugify derives a URL-safe slug from a title: trim, lowercase, drop
// everything outside [a-z0-9 -], whitespace runs become a single hyphen,
// repeated hyphens collapse to one.
func Slugify(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = slugStrip.ReplaceAllString(slug, "")
	slug = slugSpaces.ReplaceAllString(slug, "-")
	slug = slugCollapse.ReplaceAllString(slug, "-")
	return slug
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func ValidStatus(status string) bool {
	switch status {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// Validate checks the length bounds on the post's text fields.
func (p *Post) Validate() error {
	title := strings.TrimSpace(p.Title)
	if n := len([]rune(title)); n < 5 || n > 200 {
		return &ValidationError{Field: "title", Message: "must be between 5 and 200 characters"}
	}
	// A title of nothing but stripped characters would derive an empty slug.
	if p.Slug == "" {
		return &ValidationError{Field: "title", Message: "must contain at least one letter or digit"}
	}
	if len([]rune(p.Content)) < 50 {
		return &ValidationError{Field: "content", Message: "must be at least 50 characters"}
	}
	if len([]rune(p.Excerpt)) > 300 {
		return &ValidationError{Field: "excerpt", Message: "cannot exceed 300 characters"}
	}
	if !ValidStatus(p.Status) {
		return &ValidationError{Field: "status", Message: "must be one of draft, published, archived"}
	}
	return nil
}

// NewPost builds a draft owned by author. The slug is derived from the title
// and meta counters start at zero.
func NewPost(author primitive.ObjectID, title, content, excerpt string, categories, tags []string, featuredImage string) *Post {
	return &Post{
		Title:         strings.TrimSpace(title),
		Content:       content,
		Excerpt:       excerpt,
		Slug:          Slugify(title),
		Author:        author,
		Categories:    TrimLabels(categories),
		Tags:          TrimLabels(tags),
		FeaturedImage: featuredImage,
		Status:        StatusDraft,
	}
}

// PostPatch is the whitelist of client-mutable fields. Anything not listed
// here (id, author, timestamps, meta counters) can never be set by a caller.
type PostPatch struct {
	Title         *string   `json:"title,omitempty"`
	Content       *string   `json:"content,omitempty"`
	Excerpt       *string   `json:"excerpt,omitempty"`
	Categories    *[]string `json:"categories,omitempty"`
	Tags          *[]string `json:"tags,omitempty"`
	FeaturedImage *string   `json:"featuredImage,omitempty"`
	Status        *string   `json:"status,omitempty"`
}

// Apply copies each present patch field onto the post. A title change
// re-derives the slug. Transitioning into published stamps publishedAt the
// first time only; republishing after an archive keeps the original date.
func (p *Post) Apply(patch PostPatch, now time.Time) error {
	if patch.Status != nil && !ValidStatus(*patch.Status) {
		return &ValidationError{Field: "status", Message: "must be one of draft, published, archived"}
	}

	if patch.Status != nil && *patch.Status == StatusPublished && p.Status != StatusPublished && p.PublishedAt == nil {
		t := now
		p.PublishedAt = &t
	}

	if patch.Title != nil {
		p.Title = strings.TrimSpace(*patch.Title)
		p.Slug = Slugify(*patch.Title)
	}
	if patch.Content != nil {
		p.Content = *patch.Content
	}
	if patch.Excerpt != nil {
		p.Excerpt = *patch.Excerpt
	}
	if patch.Categories != nil {
		p.Categories = TrimLabels(*patch.Categories)
	}
	if patch.Tags != nil {
		p.Tags = TrimLabels(*patch.Tags)
	}
	if patch.FeaturedImage != nil {
		p.FeaturedImage = *patch.FeaturedImage
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}

	return p.Validate()
}

// TrimLabels trims each label and drops empties, preserving order.
func TrimLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	for _, label := range labels {
		if trimmed := strings.TrimSpace(label); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
