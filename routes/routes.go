package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"blogapi/config"
	"blogapi/handlers"
	"blogapi/middleware"
)

// SetupRouter assembles the HTTP surface: CORS, rate limiting, panic
// recovery, health check, and the post + auth routes.
func SetupRouter(cfg config.Config, posts *handlers.PostHandler, auth *handlers.AuthHandler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())

	// Unexpected faults become a generic envelope instead of leaking
	// internals. Detail is echoed only outside production.
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		env := handlers.Envelope{Success: false, Message: "Something went wrong!"}
		if !cfg.Production() {
			if err, ok := recovered.(error); ok {
				env.Error = err.Error()
			}
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, env)
	}))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	limiter := middleware.NewIPRateLimiter(cfg.RateLimit, cfg.RateWindow)
	router.Use(middleware.RateLimit(limiter))

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "OK",
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
			"environment": cfg.Env,
		})
	})

	api := router.Group("/api")

	api.POST("/auth/signup", auth.Signup)
	api.POST("/auth/login", auth.Login)

	// Public reads.
	api.GET("/posts", posts.List)
	api.GET("/posts/:slug", posts.Get)

	// Mutations require an authenticated identity.
	protected := api.Group("")
	protected.Use(middleware.RequireAuth(cfg.JWTSecret))
	protected.POST("/posts", posts.Create)
	protected.PUT("/posts/:slug", posts.Update)
	protected.DELETE("/posts/:slug", posts.Delete)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, handlers.Envelope{
			Success: false,
			Message: "Route not found",
		})
	})

	return router
}
