package folio

import (
	"context"
	"sync"
	"time"
)

// PostCache is an in-memory cache of published blog posts and tags with TTL.
// It implements Invalidator so the repository can drop it after mutations.
type PostCache struct {
	mu      sync.RWMutex
	posts   []BlogPost
	tags    []TagCount
	fetched time.Time
	ttl     time.Duration
	repo    *Repository
}

// NewPostCache creates a PostCache backed by the given Repository.
func NewPostCache(r *Repository, ttl time.Duration) *PostCache {
	return &PostCache{repo: r, ttl: ttl}
}

func (c *PostCache) valid() bool {
	return c.posts != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load. Every
// cached view derives from the full listing, so the slugs are not needed to
// decide what to drop.
func (c *PostCache) Invalidate(slugs ...string) {
	c.mu.Lock()
	c.posts = nil
	c.tags = nil
	c.mu.Unlock()
}

func (c *PostCache) load(ctx context.Context) error {
	if c.valid() {
		return nil
	}
	posts, err := c.repo.ListPublished(ctx)
	if err != nil {
		return err
	}
	c.posts = posts
	c.tags = countTags(posts)
	c.fetched = time.Now()
	return nil
}

// ensureLoaded returns cached posts and tags after ensuring the cache is fresh.
// It tries a read lock first; only takes a write lock if a reload is needed.
func (c *PostCache) ensureLoaded(ctx context.Context) ([]BlogPost, []TagCount, error) {
	c.mu.RLock()
	if c.valid() {
		posts, tags := c.posts, c.tags
		c.mu.RUnlock()
		return posts, tags, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(ctx); err != nil {
		return nil, nil, err
	}
	return c.posts, c.tags, nil
}

// ListPosts returns published posts, optionally filtered by tag.
func (c *PostCache) ListPosts(ctx context.Context, tag string) ([]BlogPost, error) {
	posts, _, err := c.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	if tag == "" {
		return posts, nil
	}
	return filterPosts(posts, func(p BlogPost) bool { return hasTag(p, tag) }), nil
}

// ListTags returns tag counts over published posts.
func (c *PostCache) ListTags(ctx context.Context) ([]TagCount, error) {
	_, tags, err := c.ensureLoaded(ctx)
	return tags, err
}

// GetPost returns a single published post by slug from the cache.
func (c *PostCache) GetPost(ctx context.Context, slug string) (BlogPost, error) {
	posts, _, err := c.ensureLoaded(ctx)
	if err != nil {
		return BlogPost{}, err
	}
	for _, p := range posts {
		if p.Slug == slug {
			return p, nil
		}
	}
	return BlogPost{}, ErrNotFound
}
