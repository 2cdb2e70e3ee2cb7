package handlers

import (
	"log/slog"

	"survey-service/internal/models"
	"survey-service/internal/services"
	"survey-service/utils"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type SessionHandler struct {
	sessionService *services.SessionService
}

func NewSessionHandler(sessionService *services.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

func (h *SessionHandler) Register(app *fiber.App) {
	protectedGr := app.Group("survey/protected/api/v2", RequireUser)

	sessionGroup := protectedGr.Group("/farms/:farmID/sessions")
	sessionGroup.Post("/", h.StartSession)
	sessionGroup.Get("/:sessionUUID", h.GetSession)
	sessionGroup.Post("/:sessionUUID/submit", h.SubmitSession)
	sessionGroup.Post("/:sessionUUID/cancel", h.CancelSession)
}

func (h *SessionHandler) StartSession(c fiber.Ctx) error {
	farmID, err := uuid.Parse(c.Params("farmID"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(utils.CreateErrorResponse("INVALID_REQUEST", "invalid farm id"))
	}

	// The start request body is optional; absence means defaults.
	var req models.StartSessionRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().Body(&req); err != nil {
			slog.Error("error parsing request", "error", err)
			return c.Status(fiber.StatusBadRequest).JSON(utils.CreateErrorResponse("INVALID_REQUEST", "Invalid request body"))
		}
	}

	session, err := h.sessionService.StartSession(c.Context(), currentUserID(c), farmID, &req)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.CreateSuccessResponse(session))
}

func (h *SessionHandler) GetSession(c fiber.Ctx) error {
	farmID, sessionUUID, err := parseSessionPath(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(utils.CreateErrorResponse("INVALID_REQUEST", err.Error()))
	}

	session, err := h.sessionService.GetSession(c.Context(), currentUserID(c), farmID, sessionUUID)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(utils.CreateSuccessResponse(session))
}

func (h *SessionHandler) SubmitSession(c fiber.Ctx) error {
	farmID, sessionUUID, err := parseSessionPath(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(utils.CreateErrorResponse("INVALID_REQUEST", err.Error()))
	}

	var req models.SubmitSessionRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().Body(&req); err != nil {
			slog.Error("error parsing request", "error", err)
			return c.Status(fiber.StatusBadRequest).JSON(utils.CreateErrorResponse("INVALID_REQUEST", "Invalid request body"))
		}
	}

	result, err := h.sessionService.SubmitSession(c.Context(), currentUserID(c), farmID, sessionUUID, &req)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(utils.CreateSuccessResponse(result))
}

func (h *SessionHandler) CancelSession(c fiber.Ctx) error {
	farmID, sessionUUID, err := parseSessionPath(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(utils.CreateErrorResponse("INVALID_REQUEST", err.Error()))
	}

	if err := h.sessionService.CancelSession(c.Context(), currentUserID(c), farmID, sessionUUID); err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(utils.CreateSuccessResponse(fiber.Map{"status": models.SessionCancelled}))
}

func parseSessionPath(c fiber.Ctx) (uuid.UUID, uuid.UUID, error) {
	farmID, err := uuid.Parse(c.Params("farmID"))
	if err != nil {
		return uuid.Nil, uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid farm id")
	}
	sessionUUID, err := uuid.Parse(c.Params("sessionUUID"))
	if err != nil {
		return uuid.Nil, uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}
	return farmID, sessionUUID, nil
}
