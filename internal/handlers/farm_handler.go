package handlers

import (
	"log/slog"

	"survey-service/internal/models"
	"survey-service/internal/services"
	"survey-service/utils"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type FarmHandler struct {
	farmService *services.FarmService
}

func NewFarmHandler(farmService *services.FarmService) *FarmHandler {
	return &FarmHandler{farmService: farmService}
}

func (h *FarmHandler) Register(app *fiber.App) {
	protectedGr := app.Group("survey/protected/api/v2", RequireUser)

	farmGroup := protectedGr.Group("/farms")
	farmGroup.Post("/", h.CreateFarm)
	farmGroup.Get("/", h.GetFarmsByOwner)
	farmGroup.Get("/:id", h.GetFarmByID)
	farmGroup.Put("/:id/boundary", h.UpdateBoundary)
}

func (h *FarmHandler) CreateFarm(c fiber.Ctx) error {
	var req models.CreateFarmRequest
	if err := c.Bind().Body(&req); err != nil {
		slog.Error("error parsing request", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(utils.CreateErrorResponse("INVALID_REQUEST", "Invalid request body"))
	}

	farm, err := h.farmService.CreateFarm(c.Context(), currentUserID(c), &req)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.CreateSuccessResponse(farm))
}

func (h *FarmHandler) GetFarmByID(c fiber.Ctx) error {
	farmID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(utils.CreateErrorResponse("INVALID_REQUEST", "invalid farm id"))
	}

	farm, err := h.farmService.GetFarm(c.Context(), currentUserID(c), farmID)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(utils.CreateSuccessResponse(farm))
}

func (h *FarmHandler) GetFarmsByOwner(c fiber.Ctx) error {
	farms, err := h.farmService.GetFarmsByOwner(c.Context(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(utils.CreateSuccessResponse(farms))
}

func (h *FarmHandler) UpdateBoundary(c fiber.Ctx) error {
	farmID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(utils.CreateErrorResponse("INVALID_REQUEST", "invalid farm id"))
	}

	var req models.UpdateBoundaryRequest
	if err := c.Bind().Body(&req); err != nil {
		slog.Error("error parsing request", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(utils.CreateErrorResponse("INVALID_REQUEST", "Invalid request body"))
	}

	farm, err := h.farmService.UpdateBoundary(c.Context(), currentUserID(c), farmID, &req)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(utils.CreateSuccessResponse(farm))
}
