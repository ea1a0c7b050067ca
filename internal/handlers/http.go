package handlers

import (
	"fmt"
	"time"

	"chat-core/internal/models"
	"chat-core/internal/services"

	"github.com/gofiber/fiber/v2"
)

// AuthMiddleware verifies the bearer token on REST requests.
func (h *Handler) AuthMiddleware(c *fiber.Ctx) error {
	identity, err := h.auth.Authenticate(c.UserContext(), bearerToken(c))
	if err != nil {
		return writeError(c, err)
	}
	c.Locals(localIdentity, identity)
	return c.Next()
}

func restActor(c *fiber.Ctx) services.Actor {
	identity, _ := c.Locals(localIdentity).(models.Identity)
	return services.Actor{UserID: identity.UserID}
}

func (h *Handler) limited(c *fiber.Ctx) error {
	if !h.allow(c.UserContext(), "user:"+restActor(c).UserID) {
		return writeError(c, fmt.Errorf("%w: sending too quickly, wait a moment", services.ErrRateLimited))
	}
	return nil
}

func badBody(err error) error {
	return fmt.Errorf("%w: invalid request body: %v", services.ErrValidation, err)
}

type sendBody struct {
	Receiver   string             `json:"receiver"`
	Room       string             `json:"room"`
	Text       string             `json:"text"`
	Kind       models.Kind        `json:"kind"`
	Attachment *models.Attachment `json:"attachment"`
}

func (h *Handler) SendMessage(c *fiber.Ctx) error {
	if err := h.limited(c); err != nil {
		return err
	}
	var body sendBody
	if err := c.BodyParser(&body); err != nil {
		return writeError(c, badBody(err))
	}
	msg, err := h.chat.Send(c.UserContext(), restActor(c), models.SendRequest{
		Target:     models.Target{ReceiverID: body.Receiver, RoomID: body.Room},
		Body:       body.Text,
		Kind:       body.Kind,
		Attachment: body.Attachment,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

func (h *Handler) EditMessage(c *fiber.Ctx) error {
	var body struct {
		Text    string `json:"text"`
		Version int64  `json:"version"`
	}
	if err := c.BodyParser(&body); err != nil {
		return writeError(c, badBody(err))
	}
	msg, err := h.chat.Edit(c.UserContext(), restActor(c), models.EditRequest{
		MessageID: c.Params("id"),
		Body:      body.Text,
		Version:   body.Version,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(msg)
}

func (h *Handler) DeleteMessage(c *fiber.Ctx) error {
	err := h.chat.Delete(c.UserContext(), restActor(c), models.DeleteRequest{
		MessageID: c.Params("id"),
		Version:   int64(c.QueryInt("version", 0)),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) MarkRead(c *fiber.Ctx) error {
	var sel models.ReadSelector
	if err := c.BodyParser(&sel); err != nil {
		return writeError(c, badBody(err))
	}
	n, err := h.chat.MarkRead(c.UserContext(), restActor(c), sel)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"count": n})
}

func historyQuery(c *fiber.Ctx) models.HistoryQuery {
	q := models.HistoryQuery{Limit: c.QueryInt("limit", services.DefaultHistoryLimit)}
	if before := c.QueryInt("before", 0); before > 0 {
		q.Before = time.UnixMilli(int64(before))
	}
	return q
}

func (h *Handler) RoomHistory(c *fiber.Ctx) error {
	q := historyQuery(c)
	q.RoomID = c.Params("room")
	msgs, err := h.chat.History(c.UserContext(), restActor(c), q)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(nonNil(msgs))
}

func (h *Handler) DirectHistory(c *fiber.Ctx) error {
	q := historyQuery(c)
	q.WithUser = c.Params("user")
	msgs, err := h.chat.History(c.UserContext(), restActor(c), q)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(nonNil(msgs))
}

func (h *Handler) UnreadCount(c *fiber.Ctx) error {
	n, err := h.chat.UnreadCount(c.UserContext(), restActor(c).UserID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"count": n})
}

func (h *Handler) Presence(c *fiber.Ctx) error {
	p, err := h.users.Presence(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(p)
}

func nonNil(msgs []models.Message) []models.Message {
	if msgs == nil {
		return []models.Message{}
	}
	return msgs
}
