package folio

import "time"

// timestampLayout matches JavaScript's Date.toISOString, the format existing
// post documents were written in.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// ContentTag describes who wrote a post.
type ContentTag string

const (
	ContentHumanWritten ContentTag = "human-written"
	ContentAIEdited     ContentTag = "ai-edited"
	ContentAIGenerated  ContentTag = "ai-generated"
)

// Valid reports whether t is empty or one of the known content tags.
func (t ContentTag) Valid() bool {
	switch t {
	case "", ContentHumanWritten, ContentAIEdited, ContentAIGenerated:
		return true
	}
	return false
}

// Label returns a short human-readable description of the tag.
func (t ContentTag) Label() string {
	switch t {
	case ContentHumanWritten:
		return "Human written"
	case ContentAIEdited:
		return "AI edited"
	case ContentAIGenerated:
		return "AI generated"
	}
	return ""
}

// BlogPost is the only persisted entity. The JSON field names are the wire
// format of both the store document and backup files.
type BlogPost struct {
	ID               string     `json:"id" validate:"required"`
	Title            string     `json:"title"`
	Slug             string     `json:"slug" validate:"required"`
	Content          string     `json:"content"`
	Excerpt          string     `json:"excerpt"`
	Tags             []string   `json:"tags"`
	CreatedAt        string     `json:"createdAt" validate:"required"`
	UpdatedAt        string     `json:"updatedAt" validate:"required"`
	Author           string     `json:"author"`
	Published        bool       `json:"published"`
	FeaturedImage    string     `json:"featuredImage,omitempty"`
	FeaturedImageAlt string     `json:"featuredImageAlt,omitempty"`
	ContentTag       ContentTag `json:"contentTag,omitempty" validate:"omitempty,oneof=human-written ai-edited ai-generated"`
}

// Created parses CreatedAt. The zero time is returned for unparseable values.
func (p BlogPost) Created() time.Time {
	return parseTimestamp(p.CreatedAt)
}

// Updated parses UpdatedAt. The zero time is returned for unparseable values.
func (p BlogPost) Updated() time.Time {
	return parseTimestamp(p.UpdatedAt)
}

// Link is the public path of the post.
func (p BlogPost) Link() string {
	return "/blog/" + p.Slug + "/"
}

// ReadingTime is the estimated reading time of the post in minutes.
func (p BlogPost) ReadingTime() int {
	return CalculateReadingTime(p.Content)
}

// PostDraft carries everything a caller may supply when creating a post.
// Identity and timestamps are assigned by the repository. A title is only
// needed when no explicit slug is given.
type PostDraft struct {
	Title            string     `validate:"required_without=Slug"`
	Slug             string     `validate:"omitempty,slug"`
	Content          string
	Excerpt          string
	Tags             []string
	Author           string
	Published        bool
	FeaturedImage    string
	FeaturedImageAlt string
	ContentTag       ContentTag `validate:"omitempty,oneof=human-written ai-edited ai-generated"`
}

// TagCount is the number of published posts carrying a tag.
type TagCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Image is an uploaded featured image in the static uploads directory.
type Image struct {
	Filename     string
	OriginalName string
	URL          string
	Width        int
	Height       int
	Size         int
	UploadedAt   string
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	Image       string // absolute og:image URL, optional
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
