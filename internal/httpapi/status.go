package httpapi

import (
	"github.com/gofiber/fiber/v3"

	"authgate/internal/apperr"
)

// statusFor maps a typed application error to its HTTP status. Unrecognized
// errors fall back to 500.
func statusFor(err error) (int, string) {
	ae, ok := apperr.As(err)
	if !ok {
		return fiber.StatusInternalServerError, "internal error"
	}

	switch ae.Kind {
	case apperr.KindEntryNotFound, apperr.KindGroupNotFound:
		return fiber.StatusNotFound, ae.Message
	case apperr.KindDuplicateEntryName, apperr.KindDuplicateGroupName:
		return fiber.StatusConflict, ae.Message
	case apperr.KindInvalidEntry:
		return fiber.StatusBadRequest, ae.Error()
	case apperr.KindAuthFailed, apperr.KindSessionNotFound, apperr.KindSessionExpired:
		return fiber.StatusUnauthorized, ae.Message
	case apperr.KindClaimsCheckFailed:
		return fiber.StatusForbidden, ae.Message
	case apperr.KindInvalidConfig, apperr.KindConfigLoad:
		return fiber.StatusInternalServerError, "configuration error"
	default:
		return fiber.StatusInternalServerError, ae.Message
	}
}

func jsonError(c fiber.Ctx, err error) error {
	status, message := statusFor(err)
	return c.Status(status).JSON(fiber.Map{
		"status": "error",
		"error":  message,
	})
}

func jsonSuccess(c fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"data":   data,
	})
}
