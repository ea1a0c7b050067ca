package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chat-core/internal/models"
	"chat-core/internal/realtime"
	"chat-core/internal/services"
	"chat-core/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const localIdentity = "identity"

// WebSocketHandler handles the websocket connection
func (h *Handler) WebSocketHandler() fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		defer c.Close()

		// Set by HandshakeMiddleware when the upgrade carried a token.
		identity, ok := c.Locals(localIdentity).(models.Identity)
		var authReqID string
		if !ok {
			var err error
			identity, authReqID, err = h.awaitAuth(c)
			if err != nil {
				h.log.Debug().Err(err).Msg("websocket auth failed")
				h.writeDirect(c, errorEvent(authReqID, err))
				return
			}
		}

		conn := realtime.NewConn(identity.UserID, h.sendBuffer)
		if _, err := h.registry.Register(identity.UserID, conn); err != nil {
			h.log.Error().Err(err).Str("user_id", identity.UserID).Msg("register connection")
			return
		}
		if !ok {
			// Queued ahead of the pump; it goes out before "connected".
			evt := models.NewEvent(models.EventAuthenticated)
			evt.RequestID = authReqID
			_ = h.dispatcher.SendTo(conn, evt)
		}

		s := newSession(h, c, conn, identity)
		s.run()
	})
}

// awaitAuth waits for {"event":"auth","token":...} as the first frame and
// returns the resolved identity with the frame's request id.
func (h *Handler) awaitAuth(c *websocket.Conn) (models.Identity, string, error) {
	timeout := h.auth.Timeout()
	deadline := time.Now().Add(timeout)
	_ = c.SetReadDeadline(deadline)

	msgType, payload, err := c.ReadMessage()
	if err != nil {
		return models.Identity{}, "", fmt.Errorf("%w: no auth frame within %s", services.ErrAuth, timeout)
	}
	if msgType != websocket.TextMessage {
		return models.Identity{}, "", fmt.Errorf("%w: expected a text frame", services.ErrAuth)
	}

	var cmd models.Command
	if err := utils.SafeJSONParse(payload, &cmd); err != nil || cmd.Event != models.CommandAuth {
		return models.Identity{}, cmd.RequestID, fmt.Errorf("%w: first frame must be an auth event", services.ErrAuth)
	}

	ctx, cancel := context.WithDeadline(context.Background(), deadline)
	defer cancel()
	identity, err := h.auth.Authenticate(ctx, cmd.Token)
	if err != nil {
		return models.Identity{}, cmd.RequestID, err
	}
	_ = c.SetReadDeadline(time.Time{})
	return identity, cmd.RequestID, nil
}

// writeDirect writes before the write pump exists. Never call it once a
// session is running.
func (h *Handler) writeDirect(c *websocket.Conn, evt models.Event) {
	payload, err := utils.EncodeJSON(evt)
	if err != nil {
		return
	}
	_ = c.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.WriteMessage(websocket.TextMessage, payload)
}

// WSUpgradeMiddleware upgrades the connection to WebSocket
func WSUpgradeMiddleware(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("allowed", true)
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// HandshakeMiddleware authenticates a token sent with the upgrade request.
// Without one the socket must authenticate with its first frame.
func (h *Handler) HandshakeMiddleware(c *fiber.Ctx) error {
	token := bearerToken(c)
	if token == "" {
		return c.Next()
	}

	identity, err := h.auth.Authenticate(c.UserContext(), token)
	if err != nil {
		if errors.Is(err, services.ErrAuth) {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
		}
		return err
	}
	c.Locals(localIdentity, identity)
	return c.Next()
}

// bearerToken reads `access_token` from the query or the Authorization header.
func bearerToken(c *fiber.Ctx) string {
	token := c.Query("access_token")
	if token == "" {
		authHeader := c.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			token = authHeader[7:]
		}
	}
	return token
}
