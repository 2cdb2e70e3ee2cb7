package services

import (
	"context"
	"fmt"
	"log/slog"

	"survey-service/internal/config"
	"survey-service/internal/geo"
	"survey-service/internal/models"
	"survey-service/internal/repository"
)

// GridService builds and maintains the sampling grids farms are
// partitioned into. Grids are built lazily on first session start and
// rebuilt in the background after a boundary change.
type GridService struct {
	farmRepo *repository.FarmRepository
	gridRepo *repository.GridRepository
	engine   geo.Engine
	cfg      config.SamplingConfig
}

func NewGridService(farmRepo *repository.FarmRepository, gridRepo *repository.GridRepository, engine geo.Engine, cfg config.SamplingConfig) *GridService {
	return &GridService{
		farmRepo: farmRepo,
		gridRepo: gridRepo,
		engine:   engine,
		cfg:      cfg,
	}
}

// EnsureGrid makes sure the farm's current grid_version has its blocks
// generated. Idempotent: existing blocks make it a no-op. Returns the
// number of blocks present.
func (s *GridService) EnsureGrid(ctx context.Context, farm *models.Farm, resolutionM float64) (int, error) {
	if farm.Boundary == nil {
		return 0, fmt.Errorf("badrequest: farm %s has no boundary", farm.ID)
	}
	if resolutionM <= 0 {
		resolutionM = s.cfg.GridResolutionM
	}

	valid, reason, err := s.engine.ValidateBoundary(ctx, farm.Boundary)
	if err != nil {
		return 0, err
	}
	if !valid {
		return 0, fmt.Errorf("geometry_error: farm %s boundary is invalid: %s", farm.ID, reason)
	}

	return s.gridRepo.EnsureGrid(ctx, farm, resolutionM, func(ctx context.Context) ([]geo.Cell, error) {
		return s.engine.Tessellate(ctx, farm.Boundary, resolutionM, s.cfg.GridMinCellAreaM2)
	})
}

// RebuildStaleGrids regenerates grids for farms whose boundary changed
// since their last build, then prunes superseded versions. Run from
// the background scheduler; per-farm failures are logged and skipped
// so one bad boundary cannot stall the sweep.
func (s *GridService) RebuildStaleGrids(ctx context.Context, batchSize int) error {
	farms, err := s.farmRepo.ListStaleGridFarms(ctx, batchSize)
	if err != nil {
		return err
	}

	for i := range farms {
		farm := &farms[i]
		resolution := farm.GridResolutionM
		if resolution <= 0 {
			resolution = s.cfg.GridResolutionM
		}

		count, err := s.EnsureGrid(ctx, farm, resolution)
		if err != nil {
			slog.Error("failed to rebuild stale grid", "farm_id", farm.ID, "grid_version", farm.GridVersion, "error", err)
			continue
		}

		pruned, err := s.gridRepo.PruneStaleVersions(ctx, farm.ID, farm.GridVersion)
		if err != nil {
			slog.Error("failed to prune stale grid versions", "farm_id", farm.ID, "error", err)
			continue
		}

		slog.Info("rebuilt stale grid", "farm_id", farm.ID, "grid_version", farm.GridVersion, "blocks", count, "pruned", pruned)
	}

	return nil
}
