package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port        string
	MongoURI    string
	MongoDB     string
	JWTSecret   string
	Env         string
	CORSOrigins []string
	RateLimit   int
	RateWindow  time.Duration
	TokenExpiry time.Duration
}

// Load reads configuration from the environment. A .env file is honored when
// present. MONGODB_URI and JWT_SECRET are required.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		MongoURI:    getEnv("MONGODB_URI", ""),
		MongoDB:     getEnv("MONGODB_DB", "blog-system"),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		Env:         getEnv("APP_ENV", "development"),
		CORSOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		RateLimit:   100,
		RateWindow:  15 * time.Minute,
		TokenExpiry: 24 * time.Hour,
	}

	if cfg.MongoURI == "" {
		log.Fatal().Msg("MONGODB_URI must be set")
	}
	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET must be set")
	}

	return cfg
}

func (c Config) Production() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
