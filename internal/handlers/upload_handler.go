package handlers

import (
	"log/slog"

	"survey-service/internal/models"
	"survey-service/internal/services"
	"survey-service/utils"

	"github.com/gofiber/fiber/v3"
)

type UploadHandler struct {
	uploadService *services.UploadService
}

func NewUploadHandler(uploadService *services.UploadService) *UploadHandler {
	return &UploadHandler{uploadService: uploadService}
}

func (h *UploadHandler) Register(app *fiber.App) {
	protectedGr := app.Group("survey/protected/api/v2", RequireUser)

	uploadGroup := protectedGr.Group("/uploads")
	uploadGroup.Post("/issue", h.IssueUpload)
	uploadGroup.Post("/complete", h.CompleteUpload)
}

func (h *UploadHandler) IssueUpload(c fiber.Ctx) error {
	var req models.IssueUploadRequest
	if err := c.Bind().Body(&req); err != nil {
		slog.Error("error parsing request", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(utils.CreateErrorResponse("INVALID_REQUEST", "Invalid request body"))
	}

	result, err := h.uploadService.IssueUpload(c.Context(), currentUserID(c), &req)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(utils.CreateSuccessResponse(result))
}

func (h *UploadHandler) CompleteUpload(c fiber.Ctx) error {
	var req models.CompleteUploadRequest
	if err := c.Bind().Body(&req); err != nil {
		slog.Error("error parsing request", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(utils.CreateErrorResponse("INVALID_REQUEST", "Invalid request body"))
	}

	result, err := h.uploadService.CompleteUpload(c.Context(), currentUserID(c), &req)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(utils.CreateSuccessResponse(result))
}
