package database

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"blogapi/config"
)

// Connect opens a MongoDB client for the configured URI and verifies it with
// a ping.
func Connect(ctx context.Context, cfg config.Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	log.Info().Str("db", cfg.MongoDB).Msg("connected to MongoDB")
	return client, nil
}

func Disconnect(client *mongo.Client) {
	if client == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.Disconnect(ctx); err != nil {
		log.Error().Err(err).Msg("mongo disconnect failed")
		return
	}
	log.Info().Msg("disconnected from MongoDB")
}

// EnsureIndexes creates the indexes the post lifecycle depends on. The unique
// slug index is what turns a concurrent duplicate-slug write into a
// constraint violation instead of a race.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	posts := db.Collection("posts")

	_, err := posts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "title", Value: "text"}, {Key: "content", Value: "text"}},
		},
		{
			Keys: bson.D{{Key: "author", Value: 1}, {Key: "createdAt", Value: -1}},
		},
	})
	if err != nil {
		return err
	}

	users := db.Collection("users")
	_, err = users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
