package geo

import (
	"context"

	"survey-service/internal/models"
)

// Cell is one tile of a farm tessellation: the square grid cell
// clipped to the boundary, reprojected back to SRID 4326. A concave
// boundary can split one tile into several disjoint pieces; each piece
// is its own cell, distinguished by PieceIdx.
type Cell struct {
	RowIdx   int
	ColIdx   int
	PieceIdx int
	Geom     *models.GeoJSONPolygon
	Centroid *models.GeoJSONPoint
	AreaSqm  float64
}

// Engine is the single spatial capability set every component depends
// on. It is always injected, never reached ambiently, so the backing
// store can be swapped without touching session or verification logic.
//
// Tessellation, validity, centroid and area run against the spatial
// database; distance and containment for capture verification are
// geodesic computations that never leave the process.
type Engine interface {
	// Tessellate clips a regular square tiling (edge length
	// resolutionM meters, laid out in a projected meter-based CRS)
	// against the boundary and returns the surviving cells. Pieces
	// below minCellAreaM2 are dropped as precision slivers.
	Tessellate(ctx context.Context, boundary *models.GeoJSONPolygon, resolutionM, minCellAreaM2 float64) ([]Cell, error)

	// ValidateBoundary reports topological validity and, when invalid,
	// the backend's reason string.
	ValidateBoundary(ctx context.Context, boundary *models.GeoJSONPolygon) (bool, string, error)

	// Centroid returns the boundary's centroid in SRID 4326.
	Centroid(ctx context.Context, boundary *models.GeoJSONPolygon) (*models.GeoJSONPoint, error)

	// AreaSqm returns the geodesic area of the boundary in square meters.
	AreaSqm(ctx context.Context, boundary *models.GeoJSONPolygon) (float64, error)

	// Contains reports whether the lon/lat point lies inside the
	// polygon (holes excluded).
	Contains(boundary *models.GeoJSONPolygon, lon, lat float64) bool

	// DistanceMeters returns the geodesic distance between two
	// lat/lon points.
	DistanceMeters(lat1, lon1, lat2, lon2 float64) float64
}
