package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"

	"blogapi/config"
	"blogapi/database"
	"blogapi/handlers"
	"blogapi/routes"
	"blogapi/store"
)

func main() {
	cfg := config.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if !cfg.Production() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	ctx := context.Background()

	mongoClient, err := connectWithRetry(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	defer database.Disconnect(mongoClient)

	db := mongoClient.Database(cfg.MongoDB)
	if err := database.EnsureIndexes(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("failed to create indexes")
	}

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	posts := store.NewMongoPostStore(db)
	users := store.NewMongoUserStore(db)

	postHandler := handlers.NewPostHandler(posts, users, cfg.Production())
	authHandler := handlers.NewAuthHandler(users, cfg.JWTSecret, cfg.TokenExpiry, cfg.Production())

	router := routes.SetupRouter(cfg, postHandler, authHandler)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	log.Info().Msg("server stopped")
}

// connectWithRetry attempts the mongo connection a few times before giving
// up, which rides out slow starts when the database boots alongside the API.
func connectWithRetry(ctx context.Context, cfg config.Config) (*mongo.Client, error) {
	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		var client *mongo.Client
		client, err = database.Connect(ctx, cfg)
		if err == nil {
			return client, nil
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("mongo connection failed")
		time.Sleep(2 * time.Second)
	}
	return nil, err
}
