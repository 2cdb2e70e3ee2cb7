package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"survey-service/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

const farmCacheTTL = 10 * time.Minute

type FarmRepository struct {
	db          *sqlx.DB
	redisClient *redis.Client
}

func NewFarmRepository(db *sqlx.DB, redisClient *redis.Client) *FarmRepository {
	return &FarmRepository{db: db, redisClient: redisClient}
}

type farmRow struct {
	models.Farm
	BoundaryWKB []byte `db:"boundary_wkb"`
	CenterWKB   []byte `db:"center_wkb"`
}

func farmCacheKey(id uuid.UUID) string {
	return "farm:" + id.String()
}

func (r *FarmRepository) Create(ctx context.Context, farm *models.Farm) error {
	if farm.ID == uuid.Nil {
		farm.ID = uuid.New()
	}
	farm.CreatedAt = time.Now()
	farm.UpdatedAt = time.Now()
	if farm.Status == "" {
		farm.Status = models.FarmActive
	}

	query := `
		INSERT INTO farm (
			id, owner_id, farm_name, farm_code,
			boundary,
			center_location,
			area_sqm, grid_resolution_m, grid_version,
			current_crop_id, status, created_at, updated_at
		) VALUES (
			:id, :owner_id, :farm_name, :farm_code,
			ST_GeomFromText(:boundary),
			ST_GeomFromText(:center_location),
			:area_sqm, :grid_resolution_m, :grid_version,
			:current_crop_id, :status, :created_at, :updated_at
		)`

	_, err := r.db.NamedExecContext(ctx, query, farm)
	if err != nil {
		return fmt.Errorf("failed to create farm: %w", err)
	}

	return nil
}

// GetByID reads a farm, serving from the Redis cache when the row was
// fetched recently. Boundary updates invalidate the cached entry.
func (r *FarmRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Farm, error) {
	if cached := r.getCachedFarm(ctx, id); cached != nil {
		return cached, nil
	}

	query := `
		SELECT
			id, owner_id, farm_name, farm_code,
			area_sqm, grid_resolution_m, grid_version,
			current_crop_id, status, created_at, updated_at,
			ST_AsBinary(boundary) AS boundary_wkb,
			ST_AsBinary(center_location) AS center_wkb
		FROM farm
		WHERE id = $1`

	var row farmRow
	err := r.db.GetContext(ctx, &row, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("not_found: farm not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get farm: %w", err)
	}

	farm := row.Farm
	if err := unmarshalFarmGeometry(&row, &farm); err != nil {
		return nil, err
	}

	r.cacheFarm(ctx, &farm)
	return &farm, nil
}

func (r *FarmRepository) GetByOwnerID(ctx context.Context, ownerID string) ([]models.Farm, error) {
	query := `
		SELECT
			id, owner_id, farm_name, farm_code,
			area_sqm, grid_resolution_m, grid_version,
			current_crop_id, status, created_at, updated_at,
			ST_AsBinary(boundary) AS boundary_wkb,
			ST_AsBinary(center_location) AS center_wkb
		FROM farm
		WHERE owner_id = $1
		ORDER BY created_at DESC`

	var rows []farmRow
	if err := r.db.SelectContext(ctx, &rows, query, ownerID); err != nil {
		return nil, fmt.Errorf("failed to get farms by owner: %w", err)
	}

	farms := make([]models.Farm, 0, len(rows))
	for _, row := range rows {
		farm := row.Farm
		if err := unmarshalFarmGeometry(&row, &farm); err != nil {
			return nil, err
		}
		farms = append(farms, farm)
	}

	return farms, nil
}

// UpdateBoundary replaces the boundary and its derived fields, and
// bumps grid_version so the existing grid is invalidated for future
// sessions. In-flight sessions keep their frozen block snapshots.
func (r *FarmRepository) UpdateBoundary(ctx context.Context, farmID uuid.UUID, boundary *models.GeoJSONPolygon, center *models.GeoJSONPoint, areaSqm float64) error {
	query := `
		UPDATE farm SET
			boundary = ST_GeomFromText(:boundary),
			center_location = ST_GeomFromText(:center_location),
			area_sqm = :area_sqm,
			grid_version = grid_version + 1,
			updated_at = :updated_at
		WHERE id = :id`

	result, err := r.db.NamedExecContext(ctx, query, map[string]any{
		"id":              farmID,
		"boundary":        boundary,
		"center_location": center,
		"area_sqm":        areaSqm,
		"updated_at":      time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to update farm boundary: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("not_found: farm not found: %s", farmID)
	}

	r.invalidateFarm(ctx, farmID)
	return nil
}

// ListStaleGridFarms returns active farms whose current grid_version
// has no generated blocks yet, e.g. after a boundary change. The grid
// maintenance job rebuilds these in the background.
func (r *FarmRepository) ListStaleGridFarms(ctx context.Context, limit int) ([]models.Farm, error) {
	query := `
		SELECT
			f.id, f.owner_id, f.farm_name, f.farm_code,
			f.area_sqm, f.grid_resolution_m, f.grid_version,
			f.current_crop_id, f.status, f.created_at, f.updated_at,
			ST_AsBinary(f.boundary) AS boundary_wkb,
			ST_AsBinary(f.center_location) AS center_wkb
		FROM farm f
		WHERE f.status = 'active'
		  AND f.boundary IS NOT NULL
		  AND NOT EXISTS (
			SELECT 1 FROM grid_block gb
			WHERE gb.farm_id = f.id AND gb.grid_version = f.grid_version
		  )
		ORDER BY f.updated_at ASC
		LIMIT $1`

	var rows []farmRow
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list stale grid farms: %w", err)
	}

	farms := make([]models.Farm, 0, len(rows))
	for _, row := range rows {
		farm := row.Farm
		if err := unmarshalFarmGeometry(&row, &farm); err != nil {
			return nil, err
		}
		farms = append(farms, farm)
	}

	return farms, nil
}

func unmarshalFarmGeometry(row *farmRow, farm *models.Farm) error {
	if len(row.BoundaryWKB) > 0 {
		boundary, err := models.PolygonFromWKB(row.BoundaryWKB)
		if err != nil {
			return fmt.Errorf("unmarshal boundary: %w", err)
		}
		farm.Boundary = boundary
	}

	if len(row.CenterWKB) > 0 {
		center, err := models.PointFromWKB(row.CenterWKB)
		if err != nil {
			return fmt.Errorf("unmarshal center: %w", err)
		}
		farm.CenterLocation = center
	}

	return nil
}

// ============================================================================
// REDIS CACHE
// ============================================================================

func (r *FarmRepository) cacheFarm(ctx context.Context, farm *models.Farm) {
	if r.redisClient == nil {
		return
	}
	data, err := json.Marshal(farm)
	if err != nil {
		slog.Warn("failed to marshal farm for cache", "farm_id", farm.ID, "error", err)
		return
	}
	if err := r.redisClient.Set(ctx, farmCacheKey(farm.ID), data, farmCacheTTL).Err(); err != nil {
		slog.Warn("failed to cache farm", "farm_id", farm.ID, "error", err)
	}
}

func (r *FarmRepository) getCachedFarm(ctx context.Context, id uuid.UUID) *models.Farm {
	if r.redisClient == nil {
		return nil
	}
	data, err := r.redisClient.Get(ctx, farmCacheKey(id)).Bytes()
	if err != nil {
		return nil
	}
	var farm models.Farm
	if err := json.Unmarshal(data, &farm); err != nil {
		slog.Warn("failed to unmarshal cached farm", "farm_id", id, "error", err)
		return nil
	}
	return &farm
}

func (r *FarmRepository) invalidateFarm(ctx context.Context, id uuid.UUID) {
	if r.redisClient == nil {
		return
	}
	if err := r.redisClient.Del(ctx, farmCacheKey(id)).Err(); err != nil {
		slog.Warn("failed to invalidate farm cache", "farm_id", id, "error", err)
	}
}
