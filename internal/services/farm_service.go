package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"survey-service/internal/config"
	"survey-service/internal/geo"
	"survey-service/internal/models"
	"survey-service/internal/repository"
	"survey-service/utils"

	"github.com/google/uuid"
)

// FarmService manages the farm registry: boundary intake, derived
// geometry fields and ownership checks for the other services.
type FarmService struct {
	farmRepo *repository.FarmRepository
	engine   geo.Engine
	cfg      config.SamplingConfig
}

func NewFarmService(farmRepo *repository.FarmRepository, engine geo.Engine, cfg config.SamplingConfig) *FarmService {
	return &FarmService{
		farmRepo: farmRepo,
		engine:   engine,
		cfg:      cfg,
	}
}

// CreateFarm registers a farm from its boundary polygon. Centroid and
// area are derived server-side, never trusted from the client.
func (s *FarmService) CreateFarm(ctx context.Context, userID string, req *models.CreateFarmRequest) (*models.Farm, error) {
	if req.Boundary == nil {
		return nil, fmt.Errorf("badrequest: boundary is required")
	}
	if err := req.Boundary.Validate(); err != nil {
		return nil, err
	}

	center, areaSqm, err := s.deriveBoundaryFields(ctx, req.Boundary)
	if err != nil {
		return nil, err
	}

	resolution := s.cfg.GridResolutionM
	if req.GridResolutionM != nil && *req.GridResolutionM > 0 {
		resolution = *req.GridResolutionM
	}

	farmName := "Unnamed Farm"
	if req.FarmName != nil && strings.TrimSpace(*req.FarmName) != "" {
		farmName = strings.TrimSpace(*req.FarmName)
	}
	farmCode := "FARM-" + utils.GenerateRandomStringWithLength(8)

	farm := &models.Farm{
		OwnerID:         userID,
		FarmName:        &farmName,
		FarmCode:        &farmCode,
		Boundary:        req.Boundary,
		CenterLocation:  center,
		AreaSqm:         areaSqm,
		GridResolutionM: resolution,
		GridVersion:     1,
		CurrentCropID:   req.CurrentCropID,
		Status:          models.FarmActive,
	}

	if err := s.farmRepo.Create(ctx, farm); err != nil {
		return nil, err
	}

	slog.Info("farm created", "farm_id", farm.ID, "owner_id", userID, "area_sqm", areaSqm)
	return farm, nil
}

// GetFarm returns a farm the caller owns.
func (s *FarmService) GetFarm(ctx context.Context, userID string, farmID uuid.UUID) (*models.Farm, error) {
	farm, err := s.farmRepo.GetByID(ctx, farmID)
	if err != nil {
		return nil, err
	}
	if farm.OwnerID != userID {
		return nil, fmt.Errorf("unauthorized: farm belongs to another user")
	}
	return farm, nil
}

// GetFarmsByOwner lists the caller's farms.
func (s *FarmService) GetFarmsByOwner(ctx context.Context, userID string) ([]models.Farm, error) {
	return s.farmRepo.GetByOwnerID(ctx, userID)
}

// UpdateBoundary replaces the farm boundary. The repository bumps
// grid_version, so the old grid stops being sampled and the background
// maintenance job regenerates blocks for the new shape.
func (s *FarmService) UpdateBoundary(ctx context.Context, userID string, farmID uuid.UUID, req *models.UpdateBoundaryRequest) (*models.Farm, error) {
	if req.Boundary == nil {
		return nil, fmt.Errorf("badrequest: boundary is required")
	}
	if err := req.Boundary.Validate(); err != nil {
		return nil, err
	}

	farm, err := s.farmRepo.GetByID(ctx, farmID)
	if err != nil {
		return nil, err
	}
	if farm.OwnerID != userID {
		return nil, fmt.Errorf("unauthorized: farm belongs to another user")
	}

	center, areaSqm, err := s.deriveBoundaryFields(ctx, req.Boundary)
	if err != nil {
		return nil, err
	}

	if err := s.farmRepo.UpdateBoundary(ctx, farmID, req.Boundary, center, areaSqm); err != nil {
		return nil, err
	}

	return s.farmRepo.GetByID(ctx, farmID)
}

// CheckFarmOwner reports whether the farm belongs to the user. Other
// services use this for lightweight authorization checks.
func (s *FarmService) CheckFarmOwner(ctx context.Context, userID string, farmID uuid.UUID) (bool, error) {
	farm, err := s.farmRepo.GetByID(ctx, farmID)
	if err != nil {
		return false, err
	}
	return farm.OwnerID == userID, nil
}

func (s *FarmService) deriveBoundaryFields(ctx context.Context, boundary *models.GeoJSONPolygon) (*models.GeoJSONPoint, float64, error) {
	valid, reason, err := s.engine.ValidateBoundary(ctx, boundary)
	if err != nil {
		return nil, 0, err
	}
	if !valid {
		return nil, 0, fmt.Errorf("geometry_error: boundary is invalid: %s", reason)
	}

	center, err := s.engine.Centroid(ctx, boundary)
	if err != nil {
		return nil, 0, err
	}
	areaSqm, err := s.engine.AreaSqm(ctx, boundary)
	if err != nil {
		return nil, 0, err
	}

	return center, areaSqm, nil
}
