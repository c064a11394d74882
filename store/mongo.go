package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"blogapi/models"
)

var _ PostStore = (*MongoPostStore)(nil)

// MongoPostStore implements PostStore on a MongoDB collection. Slug
// uniqueness comes from the collection's unique index; duplicate-key errors
// are mapped to ErrSlugConflict.
type MongoPostStore struct {
	posts *mongo.Collection
}

func NewMongoPostStore(db *mongo.Database) *MongoPostStore {
	return &MongoPostStore{posts: db.Collection("posts")}
}

func (s *MongoPostStore) Insert(ctx context.Context, post *models.Post) error {
	if post.ID.IsZero() {
		post.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now

	_, err := s.posts.InsertOne(ctx, post)
	if mongo.IsDuplicateKeyError(err) {
		return ErrSlugConflict
	}
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

func (s *MongoPostStore) FindBySlug(ctx context.Context, slug string) (*models.Post, error) {
	var post models.Post
	err := s.posts.FindOne(ctx, bson.M{"slug": slug}).Decode(&post)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find post: %w", err)
	}
	return &post, nil
}

func (s *MongoPostStore) GetBySlug(ctx context.Context, slug string) (*models.Post, error) {
	// A published post gets its view counter bumped in the same operation
	// that reads it, so concurrent fetches never lose increments.
	var post models.Post
	err := s.posts.FindOneAndUpdate(ctx,
		bson.M{"slug": slug, "status": models.StatusPublished},
		bson.M{"$inc": bson.M{"meta.views": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&post)
	if err == nil {
		return &post, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("get post: %w", err)
	}

	// Not published (or absent): plain read, no counting.
	return s.FindBySlug(ctx, slug)
}

func (s *MongoPostStore) Update(ctx context.Context, post *models.Post) error {
	post.UpdatedAt = time.Now().UTC()

	res, err := s.posts.ReplaceOne(ctx, bson.M{"_id": post.ID}, post)
	if mongo.IsDuplicateKeyError(err) {
		return ErrSlugConflict
	}
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoPostStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.posts.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoPostStore) List(ctx context.Context, params ListParams) (*ListResult, error) {
	params = params.Normalize()
	filter := params.Filter()

	opts := options.Find().
		SetSort(params.Sort()).
		SetSkip(params.Skip()).
		SetLimit(int64(params.Limit))

	cursor, err := s.posts.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer cursor.Close(ctx)

	posts := make([]*models.Post, 0, params.Limit)
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("decode posts: %w", err)
	}

	total, err := s.posts.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count posts: %w", err)
	}

	return &ListResult{Posts: posts, Total: total}, nil
}
