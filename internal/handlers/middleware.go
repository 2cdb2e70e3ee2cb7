package handlers

import (
	"strings"

	"survey-service/utils"

	"github.com/gofiber/fiber/v3"
)

// RequireUser rejects requests arriving without the gateway-injected
// X-User-ID header. All protected routes sit behind it.
func RequireUser(c fiber.Ctx) error {
	userID := c.Get("X-User-ID")
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(utils.CreateErrorResponse("UNAUTHORIZED", "User ID is required"))
	}
	c.Locals("user_id", userID)
	return c.Next()
}

func currentUserID(c fiber.Ctx) string {
	if id, ok := c.Locals("user_id").(string); ok {
		return id
	}
	return c.Get("X-User-ID")
}

// respondServiceError maps the service layer's error prefixes onto
// HTTP statuses. Unrecognized errors are internal.
func respondServiceError(c fiber.Ctx, err error) error {
	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, "badrequest:"):
		return c.Status(fiber.StatusBadRequest).JSON(utils.CreateErrorResponse("INVALID_REQUEST", msg))
	case strings.HasPrefix(msg, "unauthorized:"):
		return c.Status(fiber.StatusUnauthorized).JSON(utils.CreateErrorResponse("UNAUTHORIZED", msg))
	case strings.HasPrefix(msg, "not_found:"):
		return c.Status(fiber.StatusNotFound).JSON(utils.CreateErrorResponse("NOT_FOUND", msg))
	case strings.HasPrefix(msg, "conflict:"):
		return c.Status(fiber.StatusConflict).JSON(utils.CreateErrorResponse("CONFLICT", msg))
	case strings.HasPrefix(msg, "empty_grid:"):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(utils.CreateErrorResponse("EMPTY_GRID", msg))
	case strings.HasPrefix(msg, "geometry_error:"):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(utils.CreateErrorResponse("INVALID_GEOMETRY", msg))
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(utils.CreateErrorResponse("INTERNAL_SERVER_ERROR", msg))
	}
}
