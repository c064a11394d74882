package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"blogapi/models"
)

var (
	_ PostStore = (*MemoryPostStore)(nil)
	_ UserStore = (*MemoryUserStore)(nil)
)

// MemoryPostStore is an in-process PostStore for isolated tests. It upholds
// the same contract as the mongo implementation: unique slugs, atomic view
// counting, AND-composed filters. Full-text search is approximated by a
// case-insensitive substring match over title and content.
type MemoryPostStore struct {
	mu    sync.Mutex
	posts map[primitive.ObjectID]*models.Post
}

func NewMemoryPostStore() *MemoryPostStore {
	return &MemoryPostStore{posts: make(map[primitive.ObjectID]*models.Post)}
}

func clonePost(p *models.Post) *models.Post {
	cp := *p
	cp.Categories = append([]string(nil), p.Categories...)
	cp.Tags = append([]string(nil), p.Tags...)
	if p.PublishedAt != nil {
		t := *p.PublishedAt
		cp.PublishedAt = &t
	}
	cp.AuthorInfo = nil
	return &cp
}

func (s *MemoryPostStore) bySlug(slug string) *models.Post {
	for _, p := range s.posts {
		if p.Slug == slug {
			return p
		}
	}
	return nil
}

func (s *MemoryPostStore) Insert(_ context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bySlug(post.Slug) != nil {
		return ErrSlugConflict
	}
	if post.ID.IsZero() {
		post.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now

	s.posts[post.ID] = clonePost(post)
	return nil
}

func (s *MemoryPostStore) FindBySlug(_ context.Context, slug string) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.bySlug(slug)
	if p == nil {
		return nil, ErrNotFound
	}
	return clonePost(p), nil
}

func (s *MemoryPostStore) GetBySlug(_ context.Context, slug string) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.bySlug(slug)
	if p == nil {
		return nil, ErrNotFound
	}
	if p.Status == models.StatusPublished {
		p.Meta.Views++
	}
	return clonePost(p), nil
}

func (s *MemoryPostStore) Update(_ context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.posts[post.ID]
	if !ok {
		return ErrNotFound
	}
	if other := s.bySlug(post.Slug); other != nil && other.ID != post.ID {
		return ErrSlugConflict
	}
	post.CreatedAt = current.CreatedAt
	post.UpdatedAt = time.Now().UTC()

	s.posts[post.ID] = clonePost(post)
	return nil
}

func (s *MemoryPostStore) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[id]; !ok {
		return ErrNotFound
	}
	delete(s.posts, id)
	return nil
}

func (s *MemoryPostStore) List(_ context.Context, params ListParams) (*ListResult, error) {
	params = params.Normalize()

	s.mu.Lock()
	matched := make([]*models.Post, 0, len(s.posts))
	for _, p := range s.posts {
		if matches(p, params) {
			matched = append(matched, clonePost(p))
		}
	}
	s.mu.Unlock()

	sortPosts(matched, params)

	total := int64(len(matched))
	start := int(params.Skip())
	if start > len(matched) {
		start = len(matched)
	}
	end := start + params.Limit
	if end > len(matched) {
		end = len(matched)
	}

	return &ListResult{Posts: matched[start:end], Total: total}, nil
}

func matches(p *models.Post, params ListParams) bool {
	if p.Status != params.Status {
		return false
	}
	if params.Search != "" {
		needle := strings.ToLower(params.Search)
		if !strings.Contains(strings.ToLower(p.Title), needle) &&
			!strings.Contains(strings.ToLower(p.Content), needle) {
			return false
		}
	}
	if params.Category != "" && !contains(p.Categories, params.Category) {
		return false
	}
	if params.Tag != "" && !contains(p.Tags, params.Tag) {
		return false
	}
	return true
}

func contains(labels []string, label string) bool {
	for _, l := range labels {
		if l == label {
			return true
		}
	}
	return false
}

func sortPosts(posts []*models.Post, params ListParams) {
	asc := params.SortOrder == "asc"
	less := func(a, b *models.Post) bool {
		switch params.SortBy {
		case "title":
			return a.Title < b.Title
		case "views":
			return a.Meta.Views < b.Meta.Views
		case "updatedAt":
			return a.UpdatedAt.Before(b.UpdatedAt)
		case "publishedAt":
			at, bt := time.Time{}, time.Time{}
			if a.PublishedAt != nil {
				at = *a.PublishedAt
			}
			if b.PublishedAt != nil {
				bt = *b.PublishedAt
			}
			return at.Before(bt)
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	sort.SliceStable(posts, func(i, j int) bool {
		if asc {
			return less(posts[i], posts[j])
		}
		return less(posts[j], posts[i])
	})
}

// MemoryUserStore backs the author enrichment step in tests.
type MemoryUserStore struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[primitive.ObjectID]*models.User)}
}

func (s *MemoryUserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == user.Email {
			return ErrUserExists
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.CreatedAt = time.Now().UTC()

	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *MemoryUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryUserStore) Author(_ context.Context, id primitive.ObjectID) (*models.Author, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &models.Author{ID: u.ID, Username: u.Username, Profile: u.Profile}, nil
}

func (s *MemoryUserStore) Authors(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.Author, error) {
	out := make(map[primitive.ObjectID]*models.Author, len(ids))
	for _, id := range ids {
		a, err := s.Author(ctx, id)
		if err != nil {
			return nil, err
		}
		if a != nil {
			out[id] = a
		}
	}
	return out, nil
}
