package handlers

import (
	"context"
	"time"

	"chat-core/internal/ratelimit"
	"chat-core/internal/realtime"
	"chat-core/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// Handler serves the WebSocket and REST surfaces over the realtime core.
type Handler struct {
	registry   *realtime.Registry
	tracker    *realtime.Tracker
	dispatcher *realtime.Dispatcher
	typing     *realtime.Typing
	chat       *services.ChatService
	users      *services.UserService
	auth       *services.Authenticator
	limiter    ratelimit.Limiter
	log        zerolog.Logger

	sendBuffer int
}

// Deps lists what a Handler needs. Without a Limiter an in-process one is
// built from the burst and window, zero values falling back to defaults.
type Deps struct {
	Registry   *realtime.Registry
	Tracker    *realtime.Tracker
	Dispatcher *realtime.Dispatcher
	Typing     *realtime.Typing
	Chat       *services.ChatService
	Users      *services.UserService
	Auth       *services.Authenticator
	Log        zerolog.Logger
	Limiter    ratelimit.Limiter

	SendBuffer      int
	RateLimitBurst  int
	RateLimitWindow time.Duration
}

func NewHandler(d Deps) *Handler {
	limiter := d.Limiter
	if limiter == nil {
		limiter = ratelimit.NewMemory(d.RateLimitBurst, d.RateLimitWindow)
	}
	return &Handler{
		registry:   d.Registry,
		tracker:    d.Tracker,
		dispatcher: d.Dispatcher,
		typing:     d.Typing,
		chat:       d.Chat,
		users:      d.Users,
		auth:       d.Auth,
		limiter:    limiter,
		log:        d.Log.With().Str("component", "transport").Logger(),
		sendBuffer: d.SendBuffer,
	}
}

// Routes mounts the REST API and the WebSocket endpoint.
func (h *Handler) Routes(app *fiber.App) {
	api := app.Group("/api")
	api.Use(h.AuthMiddleware)

	api.Post("/messages", h.SendMessage)
	api.Put("/messages/:id", h.EditMessage)
	api.Delete("/messages/:id", h.DeleteMessage)
	api.Patch("/messages/read", h.MarkRead)
	api.Get("/messages/room/:room", h.RoomHistory)
	api.Get("/messages/direct/:user", h.DirectHistory)
	api.Get("/messages/unread/count", h.UnreadCount)
	api.Get("/users/:id/presence", h.Presence)

	// Note: Middleware order matters. WSUpgradeMiddleware rejects plain HTTP
	// before HandshakeMiddleware looks at the token.
	app.Use("/ws", WSUpgradeMiddleware)
	app.Use("/ws", h.HandshakeMiddleware)
	app.Get("/ws", h.WebSocketHandler())
}

func (h *Handler) allow(ctx context.Context, key string) bool {
	return h.limiter.Allow(ctx, key)
}
