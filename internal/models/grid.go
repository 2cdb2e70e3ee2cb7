package models

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// SAMPLING GRID
// ============================================================================

// GridBlock is one polygonal piece of a square grid tile intersected
// with the boundary. A tile over a concave boundary can yield several
// pieces; piece_idx separates them. Blocks for a given (farm,
// grid_version) are pairwise non-overlapping and their union covers
// the boundary up to the sliver epsilon applied at generation time.
// Rows are immutable; boundary changes produce a new grid_version
// instead.
type GridBlock struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	FarmID      uuid.UUID       `json:"farm_id" db:"farm_id"`
	GridVersion int             `json:"grid_version" db:"grid_version"`
	RowIdx      int             `json:"row_idx" db:"row_idx"`
	ColIdx      int             `json:"col_idx" db:"col_idx"`
	PieceIdx    int             `json:"piece_idx" db:"piece_idx"`
	Geom        *GeoJSONPolygon `json:"geom,omitempty" db:"geom"`
	Centroid    *GeoJSONPoint   `json:"centroid,omitempty" db:"centroid"`
	AreaSqm     float64         `json:"area_sqm" db:"area_sqm"`
	ResolutionM float64         `json:"resolution_m" db:"resolution_m"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}
