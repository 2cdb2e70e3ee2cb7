package geo

import (
	"context"
	"fmt"

	"survey-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// PostGISEngine implements Engine on top of a PostGIS-enabled database.
// Grid generation, validity, centroid and area delegate to ST_*
// functions; verification distance/containment use the in-process
// geodesic helpers so a single photo check never costs a round trip.
type PostGISEngine struct {
	db *sqlx.DB
}

func NewPostGISEngine(db *sqlx.DB) *PostGISEngine {
	return &PostGISEngine{db: db}
}

type cellRow struct {
	RowIdx      int     `db:"row_idx"`
	ColIdx      int     `db:"col_idx"`
	PieceIdx    int     `db:"piece_idx"`
	GeomWKB     []byte  `db:"geom_wkb"`
	CentroidWKB []byte  `db:"centroid_wkb"`
	AreaSqm     float64 `db:"area_sqm"`
}

// tessellateQuery lays a square grid over the UTM-projected boundary
// and clips every tile against it. A tile over a concave boundary can
// intersect in several disjoint pieces; every polygonal piece above the
// sliver threshold becomes its own cell, numbered by descending area,
// so the union of cells still covers the whole boundary.
const tessellateQuery = `
	WITH boundary AS (
		SELECT ST_Transform(ST_GeomFromEWKT($1), $2) AS geom
	),
	tiles AS (
		SELECT t.geom AS tile_geom, t.i AS col_idx, t.j AS row_idx
		FROM boundary b
		CROSS JOIN LATERAL ST_SquareGrid($3, b.geom) AS t(geom, i, j)
	),
	pieces AS (
		SELECT
			tiles.row_idx,
			tiles.col_idx,
			(dp).geom AS geom
		FROM tiles
		CROSS JOIN boundary b
		CROSS JOIN LATERAL ST_Dump(ST_CollectionExtract(ST_MakeValid(ST_Intersection(tiles.tile_geom, b.geom)), 3)) AS dp
		WHERE NOT ST_IsEmpty((dp).geom)
	),
	clipped AS (
		SELECT
			row_idx,
			col_idx,
			ROW_NUMBER() OVER (PARTITION BY row_idx, col_idx ORDER BY ST_Area(geom) DESC) - 1 AS piece_idx,
			geom
		FROM pieces
		WHERE ST_Area(geom) > $4
	)
	SELECT
		row_idx,
		col_idx,
		piece_idx,
		ST_AsBinary(ST_Transform(geom, 4326)) AS geom_wkb,
		ST_AsBinary(ST_Transform(ST_Centroid(geom), 4326)) AS centroid_wkb,
		ST_Area(geom) AS area_sqm
	FROM clipped
	ORDER BY row_idx, col_idx, piece_idx`

// ewkt renders the polygon as an SRID-prefixed WKT literal for
// ST_GeomFromEWKT parameters.
func ewkt(boundary *models.GeoJSONPolygon) (string, error) {
	if boundary == nil {
		return "", fmt.Errorf("boundary is nil")
	}
	value, err := boundary.Value()
	if err != nil {
		return "", fmt.Errorf("failed to encode boundary: %w", err)
	}
	text, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("boundary did not encode to WKT text")
	}
	return text, nil
}

// Tessellate projects the boundary into its local UTM zone, lays a
// regular square grid over the bounding box with ST_SquareGrid, clips
// every tile against the boundary and reprojects survivors to 4326.
// All polygonal pieces of a clip are kept as separate cells; only
// pieces under minCellAreaM2 are dropped as slivers.
func (e *PostGISEngine) Tessellate(ctx context.Context, boundary *models.GeoJSONPolygon, resolutionM, minCellAreaM2 float64) ([]Cell, error) {
	if resolutionM <= 0 {
		return nil, fmt.Errorf("badrequest: grid resolution must be positive, got %f", resolutionM)
	}

	text, err := ewkt(boundary)
	if err != nil {
		return nil, err
	}
	if len(boundary.Coordinates) == 0 || len(boundary.Coordinates[0]) == 0 {
		return nil, fmt.Errorf("badrequest: boundary has no coordinates")
	}
	anchor := boundary.Coordinates[0][0]
	srid := UTMZoneSRID(anchor[0], anchor[1])

	var rows []cellRow
	if err := e.db.SelectContext(ctx, &rows, tessellateQuery, text, srid, resolutionM, minCellAreaM2); err != nil {
		return nil, fmt.Errorf("failed to tessellate boundary: %w", err)
	}

	cells := make([]Cell, 0, len(rows))
	for _, row := range rows {
		geomPoly, err := models.PolygonFromWKB(row.GeomWKB)
		if err != nil {
			return nil, fmt.Errorf("failed to decode cell geometry: %w", err)
		}
		centroid, err := models.PointFromWKB(row.CentroidWKB)
		if err != nil {
			return nil, fmt.Errorf("failed to decode cell centroid: %w", err)
		}
		cells = append(cells, Cell{
			RowIdx:   row.RowIdx,
			ColIdx:   row.ColIdx,
			PieceIdx: row.PieceIdx,
			Geom:     geomPoly,
			Centroid: centroid,
			AreaSqm:  row.AreaSqm,
		})
	}

	return cells, nil
}

// ValidateBoundary checks topological validity with the backend.
func (e *PostGISEngine) ValidateBoundary(ctx context.Context, boundary *models.GeoJSONPolygon) (bool, string, error) {
	text, err := ewkt(boundary)
	if err != nil {
		return false, "", err
	}

	var result struct {
		Valid  bool   `db:"valid"`
		Reason string `db:"reason"`
	}
	query := `SELECT ST_IsValid(ST_GeomFromEWKT($1)) AS valid, ST_IsValidReason(ST_GeomFromEWKT($1)) AS reason`
	if err := e.db.GetContext(ctx, &result, query, text); err != nil {
		return false, "", fmt.Errorf("failed to validate boundary: %w", err)
	}

	return result.Valid, result.Reason, nil
}

// Centroid returns the boundary centroid in SRID 4326.
func (e *PostGISEngine) Centroid(ctx context.Context, boundary *models.GeoJSONPolygon) (*models.GeoJSONPoint, error) {
	text, err := ewkt(boundary)
	if err != nil {
		return nil, err
	}

	var wkb []byte
	query := `SELECT ST_AsBinary(ST_Centroid(ST_GeomFromEWKT($1)))`
	if err := e.db.GetContext(ctx, &wkb, query, text); err != nil {
		return nil, fmt.Errorf("failed to compute centroid: %w", err)
	}

	return models.PointFromWKB(wkb)
}

// AreaSqm computes the geodesic area of the boundary.
func (e *PostGISEngine) AreaSqm(ctx context.Context, boundary *models.GeoJSONPolygon) (float64, error) {
	text, err := ewkt(boundary)
	if err != nil {
		return 0, err
	}

	var area float64
	query := `SELECT ST_Area(geography(ST_GeomFromEWKT($1)))`
	if err := e.db.GetContext(ctx, &area, query, text); err != nil {
		return 0, fmt.Errorf("failed to compute area: %w", err)
	}

	return area, nil
}

// Contains runs the in-process ray cast over the polygon rings.
func (e *PostGISEngine) Contains(boundary *models.GeoJSONPolygon, lon, lat float64) bool {
	if boundary == nil {
		return false
	}
	return PolygonContains(boundary.Coordinates, lon, lat)
}

// DistanceMeters returns the geodesic distance between two points.
func (e *PostGISEngine) DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	return HaversineMeters(lat1, lon1, lat2, lon2)
}
