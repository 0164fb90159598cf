// Package server contains HTTP and WebSocket handlers for the room API.
package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	_ "tandem/docs" // swagger docs
	"tandem/internal/bootstrap"
	"tandem/internal/config"
	"tandem/internal/database"
	"tandem/internal/featureflags"
	"tandem/internal/middleware"
	"tandem/internal/models"
	"tandem/internal/notifications"
	"tandem/internal/observability"
	"tandem/internal/realtime"
	"tandem/internal/repository"
	"tandem/internal/service"
	"tandem/internal/spotify"
	"tandem/internal/youtube"

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
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	roomRepo    repository.RoomRepository
	commandRepo repository.PlaybackCommandRepository
	mediaRepo   repository.MediaRepository
	userRepo    repository.UserRepository

	notifier     *notifications.Notifier
	hub          *notifications.RoomHub
	pgListener   *realtime.PGListener
	featureFlags *featureflags.Manager

	roomService     *service.RoomService
	commandService  *service.CommandService
	playbackService *service.PlaybackService
	mediaService    *service.MediaService
}

// Catalogs are the optional media metadata providers.
type Catalogs struct {
	Tracks service.TrackCatalog
	Videos service.VideoCatalog
}

// NewServer connects to the database and Redis and creates a server with all dependencies.
func NewServer(cfg *config.Config) (*Server, error) {
	db, redisClient, err := bootstrap.InitRuntime(cfg, bootstrap.Options{SeedDemo: cfg.SeedDemo})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, redisClient, catalogsFromConfig(cfg))
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil: events are then delivered to this instance's devices only.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, catalogs Catalogs) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, errors.New("server requires a config and a database")
	}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("tandem-api"),
		roomRepo:       repository.NewRoomRepository(db),
		commandRepo:    repository.NewPlaybackCommandRepository(db),
		mediaRepo:      repository.NewMediaRepository(db),
		userRepo:       repository.NewUserRepository(db),
		notifier:       notifications.NewNotifier(redisClient),
		hub:            notifications.NewRoomHub(redisClient),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
	}
	middleware.InitMiddleware(cfg, redisClient)

	// With the change feed enabled the database triggers announce room and command
	// writes, so the services must not publish them a second time.
	var publisher service.EventPublisher = s.notifier
	if cfg.RealtimePGListen {
		publisher = nil
		relay := realtime.NewRelay(s.roomRepo, s.commandRepo, s.notifier)
		s.pgListener = realtime.NewPGListener(database.DSN(cfg), relay.Handle)
	}

	s.roomService = service.NewRoomService(s.roomRepo, s.userRepo, s.mediaRepo, publisher)
	s.commandService = service.NewCommandService(s.roomRepo, s.commandRepo, publisher, cfg.CommandRetention)
	s.playbackService = service.NewPlaybackService(s.roomRepo, publisher)
	s.mediaService = service.NewMediaService(s.roomRepo, s.mediaRepo, catalogs.Tracks, catalogs.Videos, s.notifier)

	return s, nil
}

func catalogsFromConfig(cfg *config.Config) Catalogs {
	var catalogs Catalogs
	if cfg.SpotifyEnabled() {
		catalogs.Tracks = spotify.NewCatalog(context.Background(), cfg.SpotifyClientID, cfg.SpotifyClientSecret)
	}
	if cfg.YouTubeAPIKey != "" {
		yt, err := youtube.NewClient(context.Background(), cfg.YouTubeAPIKey)
		if err != nil {
			middleware.Logger.Warn("youtube catalog disabled", "error", err)
		} else {
			catalogs.Videos = yt
		}
	}
	return catalogs
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so error responses still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:8081,http://localhost:19006"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limiting (300 requests per minute per IP); devices poll playback state.
	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please try again later.",
				Code:  "RATE_LIMITED",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/", s.ReadinessCheck)
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Tandem Backend Metrics Dashboard",
	}))
	api.Get("/swagger/*", swagger.HandlerDefault)

	// The device feed authenticates from the query string as well as the header.
	api.Get("/ws/rooms/:room_id", middleware.WebSocketAuthRequired, s.RoomWebSocketUpgrade(), s.RoomWebSocketHandler())

	protected := api.Group("", middleware.AuthRequired)
	protected.Get("/feature-flags/me", s.GetMyFeatureFlags)

	rooms := protected.Group("/rooms")
	rooms.Post("/", s.CreateRoom)
	rooms.Get("/me", s.GetMyRoom)

	// Specific /:room_id/:resource routes before the generic /:room_id
	rooms.Post("/:room_id/join", s.JoinRoom)
	rooms.Post("/:room_id/leave", s.LeaveRoom)
	rooms.Get("/:room_id/presence", s.GetRoomPresence)

	relayEnabled := s.FeatureRequired(featureflags.PlaybackRelay)
	rooms.Post("/:room_id/playback-command", relayEnabled, middleware.RateLimit(
		s.redis, 30, time.Minute, "playback_command"), s.SendPlaybackCommand)
	rooms.Get("/:room_id/playback-commands", relayEnabled, s.ListPlaybackCommands)
	rooms.Get("/:room_id/playback", relayEnabled, s.GetPlayback)
	rooms.Put("/:room_id/playback", relayEnabled, s.UpdatePlayback)

	rooms.Put("/:room_id/spotify-track", s.SetSpotifyTrack)
	rooms.Get("/:room_id/spotify-track", s.GetSpotifyTrack)
	rooms.Patch("/:room_id/spotify-track", s.UpdateSpotifyTrack)
	rooms.Delete("/:room_id/spotify-track", s.RemoveSpotifyTrack)

	videoEnabled := s.FeatureRequired(featureflags.YouTubeWidget)
	rooms.Put("/:room_id/youtube-video", videoEnabled, s.SetYouTubeVideo)
	rooms.Get("/:room_id/youtube-video", videoEnabled, s.GetYouTubeVideo)
	rooms.Patch("/:room_id/youtube-video", videoEnabled, s.UpdateYouTubeVideo)
	rooms.Delete("/:room_id/youtube-video", videoEnabled, s.RemoveYouTubeVideo)

	rooms.Get("/:room_id", s.GetRoom)
	rooms.Delete("/:room_id", s.DeleteRoom)
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
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		// Without Redis the instance still serves its own devices.
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"service": "tandem",
		"version": "1.0.0",
		"status":  overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// StartRealtime wires the hub to the notifier and, when enabled, starts the Postgres
// change feed. Both stop when ctx is cancelled.
func (s *Server) StartRealtime(ctx context.Context) error {
	if err := s.hub.StartWiring(ctx, s.notifier); err != nil {
		return fmt.Errorf("start %s wiring: %w", s.hub.Name(), err)
	}
	if s.pgListener != nil {
		go func() {
			if err := s.pgListener.Run(ctx); err != nil {
				observability.LogAsyncOperationError(ctx, "pg_listen", err, nil)
			}
		}()
	}
	return nil
}

// Start builds the app and listens until Shutdown.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.newApp()
	if err := s.StartRealtime(s.shutdownCtx); err != nil {
		middleware.Logger.Error("realtime wiring failed", "error", err)
	}

	middleware.Logger.Info("server starting", "port", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

func (s *Server) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "Tandem API",
		BodyLimit: 1 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err)
		}
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down hub", "hub", s.hub.Name(), "error", err)
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", "error", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", "error", rerr)
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
