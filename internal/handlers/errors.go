package handlers

import (
	"chat-core/internal/metrics"
	"chat-core/internal/models"
	"chat-core/internal/services"

	"github.com/gofiber/fiber/v2"
)

func statusFor(kind string) int {
	switch kind {
	case services.KindValidation:
		return fiber.StatusBadRequest
	case services.KindPermissionDenied:
		return fiber.StatusForbidden
	case services.KindNotFound:
		return fiber.StatusNotFound
	case services.KindInvalidState:
		return fiber.StatusConflict
	case services.KindAuth:
		return fiber.StatusUnauthorized
	case services.KindTransientStore:
		return fiber.StatusServiceUnavailable
	case services.KindRateLimited:
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}

// publicMessage hides internal failure detail from clients.
func publicMessage(kind string, err error) string {
	switch kind {
	case services.KindInternal:
		return "internal error"
	case services.KindTransientStore:
		return "storage temporarily unavailable, retry later"
	default:
		return err.Error()
	}
}

func errorEvent(requestID string, err error) models.Event {
	kind := services.KindOf(err)
	metrics.CommandErrors.WithLabelValues(kind).Inc()
	evt := models.NewEvent(models.EventError)
	evt.RequestID = requestID
	evt.Error = &models.ErrorPayload{Kind: kind, Message: publicMessage(kind, err)}
	return evt
}

func writeError(c *fiber.Ctx, err error) error {
	kind := services.KindOf(err)
	metrics.CommandErrors.WithLabelValues(kind).Inc()
	return c.Status(statusFor(kind)).JSON(fiber.Map{"error": publicMessage(kind, err), "kind": kind})
}
