package models

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// FARM MANAGEMENT
// ============================================================================

// Farm is the surveyed unit of land. The boundary is a topologically
// valid polygon in SRID 4326; center_location is derived from it.
// grid_version increments on every boundary change so stale grids can
// be detected and rebuilt.
type Farm struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	OwnerID         string          `json:"owner_id" db:"owner_id"`
	FarmName        *string         `json:"farm_name,omitempty" db:"farm_name"`
	FarmCode        *string         `json:"farm_code,omitempty" db:"farm_code"`
	Boundary        *GeoJSONPolygon `json:"boundary,omitempty" db:"boundary"`
	CenterLocation  *GeoJSONPoint   `json:"center_location,omitempty" db:"center_location"`
	AreaSqm         float64         `json:"area_sqm" db:"area_sqm"`
	GridResolutionM float64         `json:"grid_resolution_m" db:"grid_resolution_m"`
	GridVersion     int             `json:"grid_version" db:"grid_version"`
	CurrentCropID   *uuid.UUID      `json:"current_crop_id,omitempty" db:"current_crop_id"`
	Status          FarmStatus      `json:"status" db:"status"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}
