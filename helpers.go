package folio

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const wordsPerMinute = 200

var (
	reSlugStrip    = regexp.MustCompile(`[^\w\s-]`)
	reSlugSeparate = regexp.MustCompile(`[\s_-]+`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return IsSlug(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// Slugify converts a title to a URL-safe slug: lowercase, stripped of
// anything but word characters, whitespace and hyphens, with runs of
// separators collapsed into one hyphen.
func Slugify(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	s = reSlugStrip.ReplaceAllString(s, "")
	s = reSlugSeparate.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// IsSlug reports whether s is a non-empty slug that Slugify leaves unchanged.
func IsSlug(s string) bool {
	return s != "" && Slugify(s) == s
}

// GenerateID returns a new post id. Ids are UUIDv7: a millisecond timestamp
// followed by random bits.
func GenerateID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// CalculateReadingTime estimates reading time in whole minutes at 200 words
// per minute, never less than one.
func CalculateReadingTime(content string) int {
	words := len(strings.Fields(content))
	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	if minutes < 1 {
		return 1
	}
	return minutes
}

// BuildURL joins a base URL with path segments, ensuring a trailing slash.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// FilterEmpty trims every value and drops the empty ones.
func FilterEmpty(vals []string) []string {
	var out []string
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// SplitTags parses a comma separated tag list as typed into the editor.
func SplitTags(s string) []string {
	tags := FilterEmpty(strings.Split(s, ","))
	if tags == nil {
		return []string{}
	}
	return tags
}

// JoinTags joins tags with ", ".
func JoinTags(tags []string) string {
	return strings.Join(tags, ", ")
}

// FilterRelatedPosts returns posts sharing at least one tag with current.
func FilterRelatedPosts(current BlogPost, posts []BlogPost) []BlogPost {
	tagSet := make(map[string]struct{}, len(current.Tags))
	for _, t := range current.Tags {
		tagSet[t] = struct{}{}
	}
	var related []BlogPost
	for _, p := range posts {
		if p.ID == current.ID {
			continue
		}
		if hasAnyTag(p, tagSet) {
			related = append(related, p)
		}
	}
	return related
}

func hasAnyTag(p BlogPost, set map[string]struct{}) bool {
	for _, t := range p.Tags {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}

// PathEscape escapes a string for use in a URL path.
func PathEscape(s string) string {
	return url.PathEscape(s)
}

// WebsiteJsonLD returns a JSON-LD string for a WebSite schema using SiteConfig.
func WebsiteJsonLD(cfg SiteConfig) string {
	data := map[string]interface{}{
		"@context":    "https://schema.org",
		"@type":       "WebSite",
		"name":        cfg.Name,
		"url":         BuildURL(cfg.URL),
		"description": cfg.Description,
	}
	if cfg.Author != "" {
		data["author"] = map[string]string{"@type": "Person", "name": cfg.Author}
	}
	return marshalJsonLD(data)
}

// BlogPostingJsonLD returns a JSON-LD string for a BlogPosting schema.
func BlogPostingJsonLD(post BlogPost, cfg SiteConfig) string {
	postURL := BuildURL(cfg.URL, "blog", post.Slug)
	data := map[string]interface{}{
		"@context":      "https://schema.org",
		"@type":         "BlogPosting",
		"headline":      post.Title,
		"description":   post.Excerpt,
		"datePublished": post.CreatedAt,
		"dateModified":  post.UpdatedAt,
		"url":           postURL,
		"wordCount":     len(strings.Fields(post.Content)),
		"timeRequired":  fmt.Sprintf("PT%dM", post.ReadingTime()),
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   postURL,
		},
	}
	author := post.Author
	if author == "" {
		author = cfg.Author
	}
	if author != "" {
		data["author"] = map[string]string{"@type": "Person", "name": author}
	}
	if cfg.Name != "" {
		data["publisher"] = map[string]string{"@type": "Organization", "name": cfg.Name}
	}
	if post.FeaturedImage != "" {
		data["image"] = post.FeaturedImage
	}
	if len(post.Tags) > 0 {
		data["keywords"] = strings.Join(post.Tags, ", ")
	}
	return marshalJsonLD(data)
}

func marshalJsonLD(data map[string]interface{}) string {
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}
