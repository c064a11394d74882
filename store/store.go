// Package store owns persistence for posts and users. Conflicting writes are
// serialized by the store itself: slug uniqueness is an enforced unique
// index and view counting is an atomic increment, never read-modify-write in
// the application.
package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"blogapi/models"
)

var (
	// ErrNotFound means no post exists at the given slug.
	ErrNotFound = errors.New("post not found")
	// ErrSlugConflict means a write violated the unique slug constraint.
	ErrSlugConflict = errors.New("slug already in use")
	// ErrUserExists means the email is already registered.
	ErrUserExists = errors.New("email already in use")
)

type PostStore interface {
	// Insert persists a new post. The store assigns timestamps and, when
	// unset, the id. A duplicate slug returns ErrSlugConflict.
	Insert(ctx context.Context, post *models.Post) error

	// FindBySlug fetches a post without side effects.
	FindBySlug(ctx context.Context, slug string) (*models.Post, error)

	// GetBySlug fetches a post for reading. When the post is published the
	// fetch atomically increments meta.views, every time, with no viewer
	// dedup.
	GetBySlug(ctx context.Context, slug string) (*models.Post, error)

	// Update replaces the stored post and refreshes updatedAt. A slug
	// collision with another post returns ErrSlugConflict.
	Update(ctx context.Context, post *models.Post) error

	// Delete permanently removes the post. There is no soft delete.
	Delete(ctx context.Context, id primitive.ObjectID) error

	// List returns the page of posts matching params plus the total match
	// count across all pages.
	List(ctx context.Context, params ListParams) (*ListResult, error)
}

type UserStore interface {
	// Create persists a new user. A duplicate email returns ErrUserExists.
	Create(ctx context.Context, user *models.User) error

	// FindByEmail returns the user or ErrNotFound.
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// Author returns the display projection for one user, or nil if the
	// user no longer exists.
	Author(ctx context.Context, id primitive.ObjectID) (*models.Author, error)

	// Authors batch-loads display projections keyed by user id.
	Authors(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.Author, error)
}

type ListResult struct {
	Posts []*models.Post
	Total int64
}
