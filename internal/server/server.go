// Package server contains the HTTP handlers for the chat API.
package server

import (
	"context"
	"fmt"
	"time"

	_ "murmur/docs" // swagger docs
	"murmur/internal/cache"
	"murmur/internal/config"
	"murmur/internal/database"
	"murmur/internal/events"
	"murmur/internal/middleware"
	"murmur/internal/models"
	"murmur/internal/repository"
	"murmur/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	auth           *middleware.Authenticator
	limits         *middleware.RateLimiter
	publisher      events.Publisher

	profileService      *service.ProfileService
	friendService       *service.FriendService
	conversationService *service.ConversationService
	messageService      *service.MessageService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	redisClient := cache.ConnectOptional(context.Background(), cfg.RedisURL)

	publisher, err := events.NewPublisher(cfg, redisClient)
	if err != nil {
		return nil, fmt.Errorf("event publisher: %w", err)
	}

	return NewServerWithDeps(cfg, db, redisClient, publisher)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; publisher may be nil, which disables events.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, publisher events.Publisher) (*Server, error) {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	store := repository.NewStore(db)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("murmur-api"),
		auth:           middleware.NewAuthenticator(cfg, redisClient),
		limits:         middleware.NewRateLimiter(redisClient, cfg.Env),
		publisher:      publisher,
	}
	s.profileService = service.NewProfileService(store, publisher, nil)
	s.friendService = service.NewFriendService(store, publisher)
	s.conversationService = service.NewConversationService(store, publisher)
	s.messageService = service.NewMessageService(store, publisher)

	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	// Tracing runs before the context middleware so the trace id reaches logs.
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
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
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Murmur Metrics Dashboard",
	}))
	api.Get("/swagger/*", swagger.HandlerDefault)

	optional := s.auth.Optional()
	required := s.auth.Required()

	// Profile routes. /me routes come before /:userId.
	users := api.Group("/users")
	users.Get("/me/username", optional, s.GetUsername)
	users.Post("/me/username/generate", required,
		s.limits.Limit(10, time.Minute, "generate_username"), s.GenerateUsername)
	users.Put("/me/username", required, s.UpdateUsername)
	users.Get("/me/profile", optional, s.GetMyProfile)
	users.Patch("/me/profile", required, s.UpdateProfile)
	users.Get("/:userId/profile", optional, s.GetUserProfile)

	// Friend routes
	friends := api.Group("/friends")
	friends.Get("/", optional, s.GetFriends)
	friends.Get("/requests", optional, s.GetPendingRequests)
	friends.Post("/requests", required,
		s.limits.Limit(10, 5*time.Minute, "friend_request"), s.SendFriendRequest)
	friends.Post("/requests/:requestId/respond", required, s.RespondToFriendRequest)
	// Generic /:friendId route must be last
	friends.Delete("/:friendId", required, s.RemoveFriend)

	// Conversation routes
	conversations := api.Group("/conversations")
	conversations.Get("/", optional, s.GetConversations)
	conversations.Post("/groups", required, s.CreateGroup)
	conversations.Post("/:id/members", required, s.AddMembers)
	conversations.Post("/:id/leave", required, s.LeaveGroup)
	conversations.Get("/:id/messages", required, s.GetMessages)
	conversations.Post("/:id/messages", required,
		s.limits.Limit(30, time.Minute, "send_message"), s.SendMessage)
	conversations.Patch("/:id", required, s.UpdateGroup)
}

// App builds the Fiber app with middleware and routes installed.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName: "Murmur API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err.Error())
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional, so only
// the database gates readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis == nil {
		redisStatus = "unavailable"
	} else if err := s.redis.Ping(ctx).Err(); err != nil {
		redisStatus = "unhealthy"
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
			"events":   s.publisher.Backend(),
		},
		"time": time.Now(),
	})
}

// Start starts the server
func (s *Server) Start() error {
	app := s.App()
	middleware.Logger.Info("Server starting", "port", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err.Error())
		}
	}

	if err := s.publisher.Close(); err != nil {
		middleware.Logger.Error("error closing event publisher", "error", err.Error())
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", "error", cerr.Error())
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", "error", rerr.Error())
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
