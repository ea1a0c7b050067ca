package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"chat-core/internal/config"
	"chat-core/internal/db"
	"chat-core/internal/handlers"
	"chat-core/internal/ratelimit"
	"chat-core/internal/realtime"
	"chat-core/internal/services"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// store is what the server needs from a storage backend.
type store interface {
	services.MessageStore
	services.UserDirectory
	Close() error
}

// presenceLog reports online/offline transitions and drops the typing state
// of users whose last connection closed.
type presenceLog struct {
	typing *realtime.Typing
	log    zerolog.Logger
}

func (p presenceLog) Connected(userID string) {
	p.log.Info().Str("user_id", userID).Msg("user online")
}

func (p presenceLog) Disconnected(userID string) {
	p.log.Info().Str("user_id", userID).Msg("user offline")
	p.typing.ClearUser(userID)
}

func newLogger(cfg *config.Config) zerolog.Logger {
	var log zerolog.Logger
	if cfg.IsDevelopment() {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		log = zerolog.New(os.Stdout)
	}
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return log.Level(level).With().Timestamp().Logger()
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		s, err := db.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("using sqlite store")
		return s, nil
	default:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return nil, err
		}
		s := db.NewPostgresStore(pool)
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		log.Info().Msg("using postgres store")
		return s, nil
	}
}

// Server is the assembled chat core and its HTTP surface.
type Server struct {
	cfg    *config.Config
	log    zerolog.Logger
	fiber  *fiber.App
	store  store
	redis  *redis.Client
	typing *realtime.Typing
}

// New wires every component from cfg.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Server, error) {
	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	var directory services.UserDirectory = st
	var limiter ratelimit.Limiter
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = db.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			// The cache is optional; run uncached.
			log.Warn().Err(err).Msg("redis unavailable, brief cache disabled")
		} else {
			directory = db.NewCachedDirectory(st, rdb, cfg.BriefCacheTTL, log)
			limiter = ratelimit.NewRedis(rdb, ratelimit.DefaultKeyPrefix, cfg.RateLimitBurst, cfg.RateLimitWindow, log)
			log.Info().Dur("ttl", cfg.BriefCacheTTL).Msg("brief cache and shared rate limits enabled")
		}
	}

	registry := realtime.NewRegistry()
	tracker := realtime.NewTracker(registry)
	dispatcher := realtime.NewDispatcher(registry, tracker, log)
	typing := realtime.NewTyping(dispatcher, cfg.TypingTTL, log)
	registry.Observe(presenceLog{typing: typing, log: log.With().Str("component", "presence").Logger()})

	chat := services.NewChatService(st, directory, dispatcher, log,
		services.WithMaxMessageLength(cfg.MaxMessageLength))
	users := services.NewUserService(directory, registry)
	auth := services.NewAuthenticator(services.NewJWTResolver(cfg.JWTSecret), cfg.AuthTimeout, log)

	h := handlers.NewHandler(handlers.Deps{
		Registry:        registry,
		Tracker:         tracker,
		Dispatcher:      dispatcher,
		Typing:          typing,
		Chat:            chat,
		Users:           users,
		Auth:            auth,
		Log:             log,
		Limiter:         limiter,
		SendBuffer:      cfg.SendBuffer,
		RateLimitBurst:  cfg.RateLimitBurst,
		RateLimitWindow: cfg.RateLimitWindow,
	})

	app := fiber.New(fiber.Config{DisableStartupMessage: !cfg.IsDevelopment()})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New())
	if cfg.IsDevelopment() {
		app.Use(logger.New())
	}

	// Health Check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":      "ok",
			"connections": registry.Count(),
			"rooms":       tracker.RoomCount(),
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	h.Routes(app)

	return &Server{cfg: cfg, log: log, fiber: app, store: st, redis: rdb, typing: typing}, nil
}

// Listen serves until the app is shut down.
func (s *Server) Listen() error {
	return s.fiber.Listen(":" + s.cfg.Port)
}

// Operations returns the shutdown steps. Sockets close first so sessions
// can run their cleanup before the store goes away.
func (s *Server) Operations() map[string]gfshutdown.Operation {
	ops := map[string]gfshutdown.Operation{
		"http": func(ctx context.Context) error {
			err := s.fiber.ShutdownWithContext(ctx)
			s.typing.Close()
			if cerr := s.store.Close(); cerr != nil && err == nil {
				err = cerr
			}
			return err
		},
	}
	if s.redis != nil {
		ops["redis"] = func(context.Context) error {
			return s.redis.Close()
		}
	}
	return ops
}

// Run loads configuration, serves, and exits once a shutdown signal has
// been handled.
func Run() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := newLogger(cfg)

	srv, err := New(context.Background(), cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}

	go func() {
		if err := srv.Listen(); err != nil {
			log.Fatal().Err(err).Msg("listen failed")
		}
	}()
	log.Info().Str("port", cfg.Port).Str("store", cfg.StoreDriver).Msg("chat core started")

	wait := gfshutdown.GracefulShutdown(context.Background(), cfg.ShutdownTimeout, srv.Operations())
	exitCode := <-wait
	log.Info().Int("exit_code", exitCode).Msg("server shutdown complete")
	os.Exit(exitCode)
}
