package folio

import (
	"context"
	"encoding/xml"
	"strings"
	"testing"
	"time"
)

func feedPosts() []BlogPost {
	return []BlogPost{
		{Title: "Newest", Slug: "newest", Excerpt: "n", Tags: []string{"go"}, CreatedAt: "2024-03-02T10:00:00.000Z", UpdatedAt: "2024-03-05T10:00:00.000Z", Published: true},
		{Title: "Older", Slug: "older", Author: "Grace", CreatedAt: "2024-03-01T10:00:00.000Z", UpdatedAt: "2024-03-01T10:00:00.000Z", Published: true},
	}
}

func TestBuildFeed(t *testing.T) {
	cfg := SiteConfig{Name: "Blog", URL: "https://example.com/", Author: "Ada", Language: "en-us", FeedLimit: 20}
	feed := buildFeed(cfg, feedPosts(), time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC))

	if feed.Channel.AtomLink.Href != "https://example.com/feed.xml" {
		t.Errorf("atom link = %q", feed.Channel.AtomLink.Href)
	}
	if len(feed.Channel.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(feed.Channel.Items))
	}
	first := feed.Channel.Items[0]
	if first.Link != "https://example.com/blog/newest/" || first.GUID != first.Link {
		t.Errorf("unexpected link %q guid %q", first.Link, first.GUID)
	}
	if first.Author != "Ada" {
		t.Errorf("expected site author fallback, got %q", first.Author)
	}
	if feed.Channel.Items[1].Author != "Grace" {
		t.Errorf("expected post author, got %q", feed.Channel.Items[1].Author)
	}
	if first.PubDate != "Sat, 02 Mar 2024 10:00:00 +0000" {
		t.Errorf("pubDate = %q", first.PubDate)
	}

	out, err := xml.Marshal(feed)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, want := range []string{`<rss version="2.0"`, `<atom:link href="https://example.com/feed.xml" rel="self"`, `<category>go</category>`} {
		if !strings.Contains(string(out), want) {
			t.Errorf("feed missing %q:\n%s", want, out)
		}
	}
}

func TestBuildFeedHonoursLimit(t *testing.T) {
	cfg := SiteConfig{URL: "https://example.com", FeedLimit: 1}
	feed := buildFeed(cfg, feedPosts(), time.Now())
	if len(feed.Channel.Items) != 1 || feed.Channel.Items[0].Title != "Newest" {
		t.Fatalf("expected only the newest post, got %+v", feed.Channel.Items)
	}
}

func TestBuildSitemap(t *testing.T) {
	orig := timeNow
	timeNow = func() time.Time { return time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC) }
	defer func() { timeNow = orig }()

	cfg := SiteConfig{URL: "https://example.com", SitemapPages: []string{"/about", "/blog", ""}}
	sm := buildSitemap(cfg, feedPosts())

	if len(sm.URLs) != 5 {
		t.Fatalf("expected 5 urls, got %d: %+v", len(sm.URLs), sm.URLs)
	}
	if sm.URLs[0].Priority != "1.0" || sm.URLs[0].LastMod != "2024-04-01" {
		t.Errorf("unexpected home entry %+v", sm.URLs[0])
	}
	if sm.URLs[2].Loc != "https://example.com/blog/" || sm.URLs[2].Priority != "0.9" {
		t.Errorf("unexpected blog entry %+v", sm.URLs[2])
	}
	post := sm.URLs[3]
	if post.Loc != "https://example.com/blog/newest/" || post.LastMod != "2024-03-05" || post.ChangeFreq != "monthly" {
		t.Errorf("unexpected post entry %+v", post)
	}
}

func TestPostCacheInvalidate(t *testing.T) {
	r, _, _ := newTestRepo(t)
	cache := NewPostCache(r, time.Hour)
	r.SetInvalidator(cache)
	ctx := context.Background()

	mustCreate(t, r, PostDraft{Title: "first", Tags: []string{"go"}, Published: true})
	posts, err := cache.ListPosts(ctx, "")
	if err != nil || len(posts) != 1 {
		t.Fatalf("ListPosts = %d posts, %v", len(posts), err)
	}

	second := mustCreate(t, r, PostDraft{Title: "second", Tags: []string{"go"}, Published: true})
	posts, _ = cache.ListPosts(ctx, "go")
	if len(posts) != 2 {
		t.Fatalf("expected repository mutation to invalidate the cache, got %d posts", len(posts))
	}
	if _, err := cache.GetPost(ctx, second.Slug); err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	tags, _ := cache.ListTags(ctx)
	if len(tags) != 1 || tags[0] != (TagCount{Name: "go", Count: 2}) {
		t.Errorf("tags = %+v", tags)
	}

	if err := r.Delete(ctx, second.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.GetPost(ctx, second.Slug); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestPostCacheServesStaleWithinTTL(t *testing.T) {
	store := &failingStore{}
	r := NewRepository(store)
	cache := NewPostCache(r, time.Hour)
	ctx := context.Background()

	if _, err := r.Create(ctx, PostDraft{Title: "a", Published: true}); err != nil {
		t.Fatal(err)
	}
	if posts, _ := cache.ListPosts(ctx, ""); len(posts) != 1 {
		t.Fatalf("expected 1 post")
	}
	store.posts = nil
	if posts, _ := cache.ListPosts(ctx, ""); len(posts) != 1 {
		t.Fatalf("expected cached post within TTL")
	}
	cache.Invalidate()
	if posts, _ := cache.ListPosts(ctx, ""); len(posts) != 0 {
		t.Fatalf("expected reload after Invalidate")
	}
}
