package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/devlog-app/backend/internal/auth"
	"github.com/devlog-app/backend/internal/cache"
	"github.com/devlog-app/backend/internal/config"
	"github.com/devlog-app/backend/internal/database"
	"github.com/devlog-app/backend/internal/handlers"
	"github.com/devlog-app/backend/internal/logger"
	"github.com/devlog-app/backend/internal/metrics"
	"github.com/devlog-app/backend/internal/middleware"
	"github.com/devlog-app/backend/internal/search"
	"github.com/devlog-app/backend/internal/storage"
	"github.com/devlog-app/backend/internal/telemetry"
	"github.com/devlog-app/backend/internal/websocket"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	cfg := config.Load()

	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	logger.Log.Info("=== Devlog server starting ===",
		zap.String("environment", cfg.Environment))

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database and run migrations
	if err := database.Initialize(); err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}
	if err := database.Migrate(); err != nil {
		logger.Log.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Redis is optional: rate limiting and trending-search caching
	// degrade gracefully without it
	redisClient, err := cache.NewRedisClient(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword)
	if err != nil {
		logger.Log.Warn("Redis unavailable, continuing without cache", zap.Error(err))
	} else {
		defer redisClient.Close()
	}

	metrics.Initialize()

	// Distributed tracing (off by default)
	tracerProvider, err := telemetry.InitTracer(telemetry.Config{
		ServiceName:  "devlog-backend",
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.OTLPEndpoint,
		Enabled:      cfg.TracingEnabled,
		SamplingRate: cfg.SamplingRate,
	})
	if err != nil {
		logger.Log.Warn("Failed to initialize tracing", zap.Error(err))
	}

	if cfg.JWTSecret == "" {
		logger.Log.Fatal("JWT_SECRET environment variable is required")
	}
	authService := auth.NewService([]byte(cfg.JWTSecret), cfg.TokenExpiry)

	// Media storage backend
	var store storage.Storage
	switch cfg.StorageBackend {
	case "s3":
		s3Store, err := storage.NewS3Storage(cfg.AWSRegion, cfg.AWSBucket, cfg.CDNBaseURL)
		if err != nil {
			logger.Log.Fatal("Failed to initialize S3 storage", zap.Error(err))
		}
		if err := s3Store.CheckBucketAccess(context.Background()); err != nil {
			logger.Log.Warn("S3 bucket access failed, image uploads will fail", zap.Error(err))
		}
		store = s3Store
	default:
		localStore, err := storage.NewLocalStorage(cfg.UploadDir, "/uploads")
		if err != nil {
			logger.Log.Fatal("Failed to initialize local storage", zap.Error(err))
		}
		store = localStore
	}

	// WebSocket hub and handler
	wsHub := websocket.NewHub()
	go wsHub.Run()
	wsHandler := websocket.NewHandler(wsHub, authService)
	wsHandler.RegisterDefaultHandlers()

	searchService := search.NewService(database.DB)

	h := handlers.NewHandlers(authService, wsHandler, searchService, store, cfg.MaxUploadSize)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())
	if tracerProvider != nil {
		r.Use(otelgin.Middleware("devlog-backend"))
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true // TODO: restrict origins in production
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID"}
	r.Use(cors.New(corsConfig))
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(middleware.RedisRateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))

	registerRoutes(r, h, wsHandler, authService)

	if cfg.StorageBackend != "s3" {
		r.Static("/uploads", cfg.UploadDir)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info("🚀 Devlog backend listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := wsHandler.Shutdown(ctx); err != nil {
		logger.Log.Warn("WebSocket shutdown warning", zap.Error(err))
	}
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}
	if tracerProvider != nil {
		if err := tracerProvider.Shutdown(ctx); err != nil {
			logger.Log.Warn("Tracer shutdown warning", zap.Error(err))
		}
	}
	if err := database.Close(); err != nil {
		logger.Log.Warn("Database close warning", zap.Error(err))
	}

	logger.Log.Info("Server exited")
}

// registerRoutes wires the HTTP surface. Post read routes address posts
// by slug, mutations by id.
func registerRoutes(r *gin.Engine, h *handlers.Handlers, wsHandler *websocket.Handler, authService *auth.Service) {
	requireAuth := middleware.AuthMiddleware(authService)
	optionalAuth := middleware.OptionalAuthMiddleware(authService)

	r.GET("/health", func(c *gin.Context) {
		if err := database.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   "devlog-backend",
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// WebSocket connection endpoint - auth via query param ?token=... or
	// Authorization header, handled inside HandleWebSocket
	r.GET("/ws", wsHandler.HandleWebSocket)
	r.GET("/ws/metrics", requireAuth, wsHandler.HandleMetrics)

	api := r.Group("/api")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", h.Register)
			authGroup.POST("/login", h.Login)
			authGroup.POST("/logout", requireAuth, h.Logout)
			authGroup.GET("/me", requireAuth, h.Me)
		}

		posts := api.Group("/posts")
		{
			posts.GET("", optionalAuth, h.ListPosts)
			posts.GET("/:slug", optionalAuth, h.GetPost)
			posts.GET("/:slug/comments", h.ListComments)

			posts.POST("", requireAuth, h.CreatePost)
			posts.PUT("/:id", requireAuth, h.UpdatePost)
			posts.DELETE("/:id", requireAuth, h.DeletePost)
			posts.POST("/:id/like", requireAuth, h.LikePost)
			posts.POST("/:id/bookmark", requireAuth, h.BookmarkPost)
			posts.POST("/:id/share", requireAuth, h.SharePost)
			posts.POST("/:id/comments", requireAuth, h.CreateComment)
		}

		comments := api.Group("/comments")
		{
			comments.GET("/:id/replies", h.ListReplies)
			comments.PUT("/:id", requireAuth, h.UpdateComment)
			comments.DELETE("/:id", requireAuth, h.DeleteComment)
			comments.POST("/:id/like", requireAuth, h.LikeComment)
		}

		users := api.Group("/users")
		{
			users.GET("/:username", h.GetProfile)
			users.GET("/:username/posts", optionalAuth, h.ListUserPosts)
			users.GET("/:username/followers", h.ListFollowers)
			users.GET("/:username/following", h.ListFollowing)
			users.POST("/:username/follow", requireAuth, h.FollowUser)
			users.DELETE("/:username/follow", requireAuth, h.UnfollowUser)
		}

		api.PUT("/profile", requireAuth, h.UpdateProfile)
		api.GET("/feed", requireAuth, h.Feed)
		api.GET("/bookmarks", requireAuth, h.ListBookmarks)

		notifications := api.Group("/notifications")
		{
			notifications.Use(requireAuth)
			notifications.GET("", h.ListNotifications)
			notifications.GET("/unread-count", h.UnreadNotificationCount)
			notifications.PUT("/:id/read", h.MarkNotificationRead)
			notifications.POST("/read-all", h.MarkAllNotificationsRead)
		}

		searchGroup := api.Group("/search")
		{
			searchGroup.GET("", optionalAuth, h.SearchContent)
			searchGroup.GET("/suggestions", h.SearchSuggestions)
			searchGroup.GET("/trending", h.TrendingSearches)
		}

		api.GET("/categories", h.ListCategories)
		tags := api.Group("/tags")
		{
			tags.GET("", h.ListTags)
			tags.GET("/:name/posts", h.ListPostsByTag)
		}

		api.POST("/reports", requireAuth, h.CreateReport)
		api.POST("/upload/image", requireAuth, h.UploadImage)

		admin := api.Group("/admin")
		{
			admin.Use(requireAuth, middleware.RequireModerator())
			admin.GET("/posts", h.ModerationQueue)
			admin.POST("/posts/:id/moderate", h.ModeratePost)
			admin.GET("/reports", h.AdminListReports)
			admin.POST("/reports/:id/resolve", h.ResolveReport)
			admin.GET("/moderation-log", h.ListModerationEvents)

			adminOnly := admin.Group("")
			adminOnly.Use(middleware.RequireAdmin())
			adminOnly.GET("/users", h.AdminListUsers)
			adminOnly.PUT("/users/:id/role", h.AdminChangeRole)
			adminOnly.POST("/users/:id/ban", h.AdminToggleBan)
			adminOnly.POST("/categories", h.CreateCategory)
			adminOnly.PUT("/categories/:id", h.UpdateCategory)
			adminOnly.DELETE("/categories/:id", h.DeleteCategory)
		}
	}
}
