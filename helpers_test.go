package folio

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello World", "hello-world"},
		{"Hello, World!", "hello-world"},
		{"  Go  &  Rust  ", "go-rust"},
		{"snake_case_title", "snake-case-title"},
		{"---already---dashed---", "already-dashed"},
		{"Version 2.0 Released", "version-20-released"},
		{"!!!", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSlugifyIsIdempotent(t *testing.T) {
	for _, in := range []string{"Hello World", "a_b c-d", "Ünïcode Title", "  x  "} {
		once := Slugify(in)
		if twice := Slugify(once); twice != once {
			t.Errorf("Slugify(Slugify(%q)) = %q, want %q", in, twice, once)
		}
	}
}

func TestIsSlug(t *testing.T) {
	valid := []string{"hello", "hello-world", "post-2024"}
	invalid := []string{"", "Hello", "hello world", "-hello", "hello--world", "hello_world", "a/b"}
	for _, s := range valid {
		if !IsSlug(s) {
			t.Errorf("IsSlug(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		if IsSlug(s) {
			t.Errorf("IsSlug(%q) = true, want false", s)
		}
	}
}

func TestGenerateIDUnique(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := GenerateID()
		if id == "" {
			t.Fatal("empty id")
		}
		if _, ok := seen[id]; ok {
			t.Fatalf("duplicate id %q after %d ids", id, i)
		}
		seen[id] = struct{}{}
	}
}

func TestCalculateReadingTime(t *testing.T) {
	words := func(n int) string { return strings.TrimSpace(strings.Repeat("word ", n)) }
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"empty", "", 1},
		{"whitespace", "   \n\t ", 1},
		{"short", "a few words", 1},
		{"exactly one minute", words(200), 1},
		{"just over", words(201), 2},
		{"two minutes", words(400), 2},
		{"long", words(1001), 6},
	}
	for _, tt := range tests {
		if got := CalculateReadingTime(tt.content); got != tt.want {
			t.Errorf("%s: CalculateReadingTime = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestSplitAndJoinTags(t *testing.T) {
	tags := SplitTags(" go, web ,, testing ")
	if JoinTags(tags) != "go, web, testing" {
		t.Errorf("unexpected tags %q", tags)
	}
	if got := SplitTags(""); got == nil || len(got) != 0 {
		t.Errorf("SplitTags(\"\") = %#v, want empty slice", got)
	}
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		base string
		segs []string
		want string
	}{
		{"https://example.com", []string{"blog", "my-post"}, "https://example.com/blog/my-post/"},
		{"https://example.com/", []string{"blog"}, "https://example.com/blog/"},
		{"https://example.com", nil, "https://example.com"},
	}
	for _, tt := range tests {
		if got := BuildURL(tt.base, tt.segs...); got != tt.want {
			t.Errorf("BuildURL(%q, %v) = %q, want %q", tt.base, tt.segs, got, tt.want)
		}
	}
}

func TestFilterRelatedPosts(t *testing.T) {
	current := BlogPost{ID: "1", Slug: "a", Tags: []string{"go"}}
	posts := []BlogPost{
		current,
		{ID: "2", Slug: "b", Tags: []string{"go", "web"}},
		{ID: "3", Slug: "c", Tags: []string{"rust"}},
		{ID: "4", Slug: "d", Tags: []string{"Go"}},
	}
	related := FilterRelatedPosts(current, posts)
	if len(related) != 1 || related[0].ID != "2" {
		t.Fatalf("expected only post 2, got %+v", related)
	}
}

func TestBlogPostingJsonLD(t *testing.T) {
	post := BlogPost{Title: "Hi", Slug: "hi", Content: "one two", CreatedAt: "2024-01-01T00:00:00.000Z", Tags: []string{"go"}}
	var data map[string]any
	if err := json.Unmarshal([]byte(BlogPostingJsonLD(post, SiteConfig{URL: "https://example.com", Author: "Ada"})), &data); err != nil {
		t.Fatalf("invalid JSON-LD: %v", err)
	}
	if data["url"] != "https://example.com/blog/hi/" {
		t.Errorf("url = %v", data["url"])
	}
	if author, _ := data["author"].(map[string]any); author["name"] != "Ada" {
		t.Errorf("expected author fallback to site author, got %v", data["author"])
	}
}
