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

var _ UserStore = (*MongoUserStore)(nil)

type MongoUserStore struct {
	users *mongo.Collection
}

func NewMongoUserStore(db *mongo.Database) *MongoUserStore {
	return &MongoUserStore{users: db.Collection("users")}
}

func (s *MongoUserStore) Create(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.CreatedAt = time.Now().UTC()

	_, err := s.users.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *MongoUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

var authorProjection = options.FindOne().SetProjection(bson.M{"username": 1, "profile": 1})

func (s *MongoUserStore) Author(ctx context.Context, id primitive.ObjectID) (*models.Author, error) {
	var author models.Author
	err := s.users.FindOne(ctx, bson.M{"_id": id}, authorProjection).Decode(&author)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load author: %w", err)
	}
	return &author, nil
}

func (s *MongoUserStore) Authors(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.Author, error) {
	out := make(map[primitive.ObjectID]*models.Author, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	opts := options.Find().SetProjection(bson.M{"username": 1, "profile": 1})
	cursor, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, fmt.Errorf("load authors: %w", err)
	}
	defer cursor.Close(ctx)

	var authors []*models.Author
	if err := cursor.All(ctx, &authors); err != nil {
		return nil, fmt.Errorf("decode authors: %w", err)
	}
	for _, a := range authors {
		out[a.ID] = a
	}
	return out, nil
}
