package folio

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Invalidator is notified after every successful mutation with the slugs the
// mutation touched. An empty slug list means the whole collection changed.
type Invalidator interface {
	Invalidate(slugs ...string)
}

// InvalidatorFunc adapts a function to the Invalidator interface.
type InvalidatorFunc func(slugs ...string)

// Invalidate calls f(slugs...).
func (f InvalidatorFunc) Invalidate(slugs ...string) { f(slugs...) }

// Repository enforces post invariants on top of a Store and offers the query
// and mutation surface used by the site and the admin area.
//
// Mutations are read-modify-write cycles over the whole collection and are
// serialized by a mutex, so concurrent requests in one process never lose
// updates. Several processes sharing one store are not supported.
//
// Privileged operations (ListAll, FindByID, mutations) assume the caller has
// already authenticated the admin.
type Repository struct {
	store       Store
	mu          sync.Mutex
	invalidator Invalidator
	now         func() time.Time
	newID       func() string
	log         zerolog.Logger
}

// RepositoryOption configures a Repository.
type RepositoryOption func(*Repository)

// WithInvalidator registers the hook run after each successful mutation.
func WithInvalidator(inv Invalidator) RepositoryOption {
	return func(r *Repository) {
		r.invalidator = inv
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) RepositoryOption {
	return func(r *Repository) {
		r.now = now
	}
}

// WithIDGenerator overrides GenerateID.
func WithIDGenerator(fn func() string) RepositoryOption {
	return func(r *Repository) {
		r.newID = fn
	}
}

// WithRepositoryLogger sets the logger for mutation events.
func WithRepositoryLogger(log zerolog.Logger) RepositoryOption {
	return func(r *Repository) {
		r.log = log.With().Str("component", "repository").Logger()
	}
}

// NewRepository creates a Repository over store.
func NewRepository(store Store, opts ...RepositoryOption) *Repository {
	r := &Repository{
		store: store,
		now:   time.Now,
		newID: GenerateID,
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetInvalidator replaces the mutation hook. It must be called before the
// repository is shared between goroutines.
func (r *Repository) SetInvalidator(inv Invalidator) {
	r.invalidator = inv
}

// ListPublished returns published posts, newest first.
func (r *Repository) ListPublished(ctx context.Context) ([]BlogPost, error) {
	posts, err := r.store.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	return sortNewestFirst(filterPosts(posts, isPublished)), nil
}

// ListAll returns every post including drafts, newest first.
func (r *Repository) ListAll(ctx context.Context) ([]BlogPost, error) {
	posts, err := r.store.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	return sortNewestFirst(posts), nil
}

// FindBySlug returns the post with the given slug, published or not.
func (r *Repository) FindBySlug(ctx context.Context, slug string) (BlogPost, error) {
	return r.find(ctx, func(p BlogPost) bool { return p.Slug == slug })
}

// FindByID returns the post with the given id.
func (r *Repository) FindByID(ctx context.Context, id string) (BlogPost, error) {
	return r.find(ctx, func(p BlogPost) bool { return p.ID == id })
}

func (r *Repository) find(ctx context.Context, match func(BlogPost) bool) (BlogPost, error) {
	posts, err := r.store.ReadAll(ctx)
	if err != nil {
		return BlogPost{}, err
	}
	for _, p := range posts {
		if match(p) {
			return p, nil
		}
	}
	return BlogPost{}, ErrNotFound
}

// FindByTag returns published posts carrying tag, newest first.
func (r *Repository) FindByTag(ctx context.Context, tag string) ([]BlogPost, error) {
	posts, err := r.store.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	return sortNewestFirst(filterPosts(posts, func(p BlogPost) bool {
		return p.Published && hasTag(p, tag)
	})), nil
}

// Search returns published posts whose title, content, excerpt or any tag
// contains query, ignoring case. Results are ordered by recency only.
func (r *Repository) Search(ctx context.Context, query string) ([]BlogPost, error) {
	posts, err := r.store.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	return sortNewestFirst(filterPosts(posts, func(p BlogPost) bool {
		return p.Published && matchesQuery(p, q)
	})), nil
}

// ListTags counts tag occurrences across published posts, most used first.
// Ties are ordered by name.
func (r *Repository) ListTags(ctx context.Context) ([]TagCount, error) {
	posts, err := r.store.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	return countTags(posts), nil
}

// Create stores a new post built from draft. The slug defaults to the
// slugified title and must not be used by any other post.
func (r *Repository) Create(ctx context.Context, draft PostDraft) (post BlogPost, err error) {
	defer func() { recordMutation("create", err) }()

	if err := validateDraft(draft); err != nil {
		return BlogPost{}, err
	}
	slug := draft.Slug
	if slug == "" {
		slug = Slugify(draft.Title)
	}
	if slug == "" {
		return BlogPost{}, fmt.Errorf("%w: title %q has no usable characters", ErrInvalidSlug, draft.Title)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	posts, err := r.store.ReadAll(ctx)
	if err != nil {
		return BlogPost{}, err
	}
	if slugTaken(posts, slug, "") {
		return BlogPost{}, fmt.Errorf("%w: %q", ErrDuplicateSlug, slug)
	}

	id := r.newID()
	for idTaken(posts, id) {
		id = r.newID()
	}
	now := formatTimestamp(r.now())
	post = BlogPost{
		ID:               id,
		Title:            draft.Title,
		Slug:             slug,
		Content:          draft.Content,
		Excerpt:          draft.Excerpt,
		Tags:             normalizeTags(draft.Tags),
		CreatedAt:        now,
		UpdatedAt:        now,
		Author:           draft.Author,
		Published:        draft.Published,
		FeaturedImage:    draft.FeaturedImage,
		FeaturedImageAlt: draft.FeaturedImageAlt,
		ContentTag:       draft.ContentTag,
	}
	if err := r.store.WriteAll(ctx, append(posts, post)); err != nil {
		r.log.Error().Err(err).Str("slug", slug).Msg("create post")
		return BlogPost{}, err
	}
	r.log.Info().Str("id", post.ID).Str("slug", slug).Msg("post created")
	r.invalidate(slug)
	return post, nil
}

// Update replaces the stored post with the same id. CreatedAt is kept from the
// stored record and UpdatedAt is set to the current time, whatever the caller
// supplied. A changed slug must not belong to another post.
func (r *Repository) Update(ctx context.Context, post BlogPost) (updated BlogPost, err error) {
	defer func() { recordMutation("update", err) }()

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updateLocked(ctx, post.ID, func(BlogPost) BlogPost { return post })
}

// SetPublished sets the published flag on the current stored record, leaving
// every other field as stored.
func (r *Repository) SetPublished(ctx context.Context, id string, published bool) (updated BlogPost, err error) {
	defer func() { recordMutation("publish", err) }()

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updateLocked(ctx, id, func(p BlogPost) BlogPost {
		p.Published = published
		return p
	})
}

// TogglePublished flips the published flag of the current stored record.
func (r *Repository) TogglePublished(ctx context.Context, id string) (updated BlogPost, err error) {
	defer func() { recordMutation("publish", err) }()

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updateLocked(ctx, id, func(p BlogPost) BlogPost {
		p.Published = !p.Published
		return p
	})
}

// updateLocked reads the collection, derives the replacement for post id from
// the stored record with edit, and writes it back. r.mu must be held.
func (r *Repository) updateLocked(ctx context.Context, id string, edit func(BlogPost) BlogPost) (BlogPost, error) {
	posts, err := r.store.ReadAll(ctx)
	if err != nil {
		return BlogPost{}, err
	}
	idx := indexByID(posts, id)
	if idx == -1 {
		return BlogPost{}, fmt.Errorf("%w: id %q", ErrNotFound, id)
	}
	existing := posts[idx]

	updated := edit(existing)
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = formatTimestamp(r.now())
	updated.Tags = normalizeTags(updated.Tags)
	if err := validatePost(updated); err != nil {
		return BlogPost{}, err
	}
	if updated.Slug != existing.Slug {
		if !IsSlug(updated.Slug) {
			return BlogPost{}, fmt.Errorf("%w: %q", ErrInvalidSlug, updated.Slug)
		}
		if slugTaken(posts, updated.Slug, updated.ID) {
			return BlogPost{}, fmt.Errorf("%w: %q", ErrDuplicateSlug, updated.Slug)
		}
	}

	next := make([]BlogPost, len(posts))
	copy(next, posts)
	next[idx] = updated
	if err := r.store.WriteAll(ctx, next); err != nil {
		r.log.Error().Err(err).Str("id", id).Msg("update post")
		return BlogPost{}, err
	}
	r.log.Info().Str("id", updated.ID).Str("slug", updated.Slug).Bool("published", updated.Published).Msg("post updated")
	if updated.Slug != existing.Slug {
		r.invalidate(existing.Slug, updated.Slug)
	} else {
		r.invalidate(updated.Slug)
	}
	return updated, nil
}

// Delete removes the post with the given id.
func (r *Repository) Delete(ctx context.Context, id string) (err error) {
	defer func() { recordMutation("delete", err) }()

	r.mu.Lock()
	defer r.mu.Unlock()

	posts, err := r.store.ReadAll(ctx)
	if err != nil {
		return err
	}
	idx := indexByID(posts, id)
	if idx == -1 {
		return fmt.Errorf("%w: id %q", ErrNotFound, id)
	}
	removed := posts[idx]
	next := make([]BlogPost, 0, len(posts)-1)
	next = append(next, posts[:idx]...)
	next = append(next, posts[idx+1:]...)
	if err := r.store.WriteAll(ctx, next); err != nil {
		r.log.Error().Err(err).Str("id", id).Msg("delete post")
		return err
	}
	r.log.Info().Str("id", id).Str("slug", removed.Slug).Msg("post deleted")
	r.invalidate(removed.Slug)
	return nil
}

func (r *Repository) invalidate(slugs ...string) {
	if r.invalidator != nil {
		r.invalidator.Invalidate(slugs...)
	}
}

func validateDraft(d PostDraft) error {
	if err := validate.Struct(d); err != nil {
		return toValidationError("", err)
	}
	return nil
}

func validatePost(p BlogPost) error {
	if strings.TrimSpace(p.Slug) == "" {
		return fmt.Errorf("%w: empty slug", ErrInvalidSlug)
	}
	if err := validate.Struct(p); err != nil {
		return toValidationError("", err)
	}
	return nil
}

func isPublished(p BlogPost) bool { return p.Published }

func filterPosts(posts []BlogPost, keep func(BlogPost) bool) []BlogPost {
	out := []BlogPost{}
	for _, p := range posts {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

// sortNewestFirst orders posts by CreatedAt descending. Posts with equal or
// unparseable timestamps keep their storage order.
func sortNewestFirst(posts []BlogPost) []BlogPost {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].Created().After(posts[j].Created())
	})
	return posts
}

func hasTag(p BlogPost, tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// matchesQuery expects q to be lowercased already.
func matchesQuery(p BlogPost, q string) bool {
	if strings.Contains(strings.ToLower(p.Title), q) ||
		strings.Contains(strings.ToLower(p.Content), q) ||
		strings.Contains(strings.ToLower(p.Excerpt), q) {
		return true
	}
	for _, t := range p.Tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}

func countTags(posts []BlogPost) []TagCount {
	counts := make(map[string]int)
	for _, p := range posts {
		if !p.Published {
			continue
		}
		for _, t := range p.Tags {
			counts[t]++
		}
	}
	out := make([]TagCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, TagCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func slugTaken(posts []BlogPost, slug, exceptID string) bool {
	for _, p := range posts {
		if p.Slug == slug && (exceptID == "" || p.ID != exceptID) {
			return true
		}
	}
	return false
}

func idTaken(posts []BlogPost, id string) bool {
	return indexByID(posts, id) != -1
}

func indexByID(posts []BlogPost, id string) int {
	for i, p := range posts {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func normalizeTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
