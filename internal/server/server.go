// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"time"

	"myfeed/internal/cache"
	"myfeed/internal/config"
	"myfeed/internal/database"
	"myfeed/internal/mailer"
	"myfeed/internal/mediastore"
	"myfeed/internal/middleware"
	"myfeed/internal/repository"
	"myfeed/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	promMiddleware *fiberprometheus.FiberPrometheus
	userRepo       repository.UserRepository
	contentRepo    repository.ContentRepository
	mediaRepo      repository.MediaRepository
	likeRepo       repository.LikeRepository
	followRepo     repository.FollowRepository
	authoring      *service.AuthoringService
	feed           *service.FeedService
	social         *service.SocialService
	account        *service.AccountService
}

// NewServer creates a server instance and establishes its own DB, Redis and
// media store connections.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	redisClient := cache.GetClient()

	store, err := mediastore.NewMinioStore(mediastore.MinioConfig{
		Endpoint:      cfg.MediaEndpoint,
		AccessKey:     cfg.MediaAccessKey,
		SecretKey:     cfg.MediaSecretKey,
		Bucket:        cfg.MediaBucket,
		UseSSL:        cfg.MediaUseSSL,
		PublicBaseURL: cfg.MediaBaseURL,
	}, middleware.Logger)
	if err != nil {
		return nil, fmt.Errorf("media store connection failed: %w", err)
	}

	var mail mailer.Mailer
	if cfg.SMTPHost != "" {
		mail = mailer.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom)
	} else {
		mail = mailer.NewLogMailer(middleware.Logger)
	}

	return NewServerWithDeps(cfg, db, redisClient, store, mail)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis and the
// media store itself.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, store mediastore.Store, mail mailer.Mailer) (*Server, error) {
	userRepo := repository.NewUserRepository(db)
	contentRepo := repository.NewContentRepository(db)
	mediaRepo := repository.NewMediaRepository(db)
	likeRepo := repository.NewLikeRepository(db)
	followRepo := repository.NewFollowRepository(db)

	prom := middleware.InitMetrics("myfeed-api")

	logger := middleware.Logger
	authoring := service.NewAuthoringService(contentRepo, mediaRepo, store, logger)

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: prom,
		userRepo:       userRepo,
		contentRepo:    contentRepo,
		mediaRepo:      mediaRepo,
		likeRepo:       likeRepo,
		followRepo:     followRepo,
		authoring:      authoring,
		feed:           service.NewFeedService(contentRepo, mediaRepo, logger),
		social:         service.NewSocialService(contentRepo, likeRepo, followRepo, userRepo, logger),
		account:        service.NewAccountService(userRepo, likeRepo, followRepo, authoring, store, mail, cfg.PublicURL, logger),
	}

	middleware.InitMiddleware(cfg)

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// OpenTelemetry server spans (before context middleware so traceID lands in locals)
	app.Use(middleware.TracingMiddleware())

	// Context middleware to propagate request ID, trace ID and username
	app.Use(middleware.ContextMiddleware())

	// Prometheus metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS middleware should run before middlewares that can short-circuit
	// (e.g. limiter) so browser clients still receive CORS headers on error
	// responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they are handled by CORS.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Myfeed Backend Metrics Dashboard",
	}))

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	auth.Get("/verify/:token", s.VerifyAccount)
	auth.Post("/signin", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "signin"), s.Signin)
	auth.Post("/signout", middleware.AuthRequired, s.Signout)
	auth.Delete("/account", middleware.AuthRequired, s.DeleteAccount)

	// Public post routes (browse)
	publicPosts := api.Group("/posts")
	publicPosts.Get("/", s.GetFeed)
	// Specific /user/:username route before generic /:postId
	publicPosts.Get("/user/:username", s.GetUserPosts)
	publicPosts.Get("/:postId/media", s.GetPostMedia)
	publicPosts.Get("/:postId/comments", s.GetComments)
	publicPosts.Get("/:postId/likes", s.GetPostLikers)
	publicPosts.Get("/:postId", s.GetPost)

	// Public comment routes
	publicComments := api.Group("/comments")
	publicComments.Get("/:commentId/replies", s.GetReplies)
	publicComments.Get("/:commentId", s.GetComment)

	// User routes. All registered before the protected group below so the
	// public ones stay reachable without a token; /me and the follow routes
	// carry AuthRequired per route. /me before the generic /:username routes.
	users := api.Group("/users")
	users.Get("/", s.GetAllUsers)
	users.Get("/search", middleware.RateLimit(
		s.redis, 10, time.Minute, "search"), s.SearchUsers)
	users.Get("/me", middleware.AuthRequired, s.GetMyProfile)
	users.Put("/me", middleware.AuthRequired, s.UpdateMyProfile)
	users.Get("/:username/followers", s.GetFollowers)
	users.Get("/:username/following", s.GetFollowing)
	users.Get("/:username/likes", s.GetLikesReceived)
	users.Post("/:username/follow", middleware.AuthRequired, s.FollowUser)
	users.Delete("/:username/follow", middleware.AuthRequired, s.UnfollowUser)
	users.Get("/:username/follow", middleware.AuthRequired, s.GetFollowStatus)
	users.Get("/:username", s.GetUserProfile)

	// Protected routes
	protected := api.Group("", middleware.AuthRequired)

	// Protected post routes
	posts := protected.Group("/posts")
	posts.Post("/", middleware.RateLimit(
		s.redis, 5, 5*time.Minute, "create_post"), s.CreatePost)
	// Specific /:postId/:resource routes before the generic /:postId routes
	posts.Post("/:postId/like", s.LikePost)
	posts.Delete("/:postId/like", s.UnlikePost)
	posts.Get("/:postId/like", s.GetPostLikeStatus)
	posts.Post("/:postId/comments", middleware.RateLimit(
		s.redis, 10, time.Minute, "create_comment"), s.CreateComment)
	posts.Put("/:postId", s.UpdatePost)
	posts.Delete("/:postId", s.DeletePost)

	// Protected comment routes
	comments := protected.Group("/comments")
	comments.Post("/:commentId/like", s.LikeComment)
	comments.Delete("/:commentId/like", s.UnlikeComment)
	comments.Get("/:commentId/like", s.GetCommentLikeStatus)
	comments.Post("/:commentId/replies", middleware.RateLimit(
		s.redis, 10, time.Minute, "create_reply"), s.CreateReply)
	comments.Put("/:commentId", s.UpdateComment)
	comments.Delete("/:commentId", s.DeleteComment)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		// The API serves without Redis, with caching and signout disabled.
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}
