package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkb"
	"github.com/twpayne/go-geom/encoding/wkt"
)

// GeoJSONPolygon represents a GeoJSON Polygon for API input/output.
// Stored in PostGIS as GEOMETRY(Polygon, 4326).
type GeoJSONPolygon struct {
	Type        string        `json:"type"`
	Coordinates [][][]float64 `json:"coordinates"`
}

// Value converts the polygon to an SRID-prefixed WKT string so it can
// be passed through ST_GeomFromEWKT in insert/update queries.
func (g *GeoJSONPolygon) Value() (driver.Value, error) {
	if g == nil || g.Type == "" {
		return nil, nil
	}

	geoJSONBytes, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal GeoJSON: %w", err)
	}

	var geometry geom.T
	if err := geojson.Unmarshal(geoJSONBytes, &geometry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal GeoJSON: %w", err)
	}

	polygon, ok := geometry.(*geom.Polygon)
	if !ok {
		return nil, fmt.Errorf("geometry is not a Polygon")
	}
	polygon.SetSRID(4326)

	wktString, err := wkt.Marshal(polygon)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal to WKT: %w", err)
	}

	return fmt.Sprintf("SRID=%d;%s", polygon.SRID(), wktString), nil
}

// Scan decodes a PostGIS EWKB value into GeoJSON coordinates.
func (g *GeoJSONPolygon) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to scan GeoJSONPolygon: expected []byte, got %T", value)
	}

	geometry, err := ewkb.Unmarshal(bytes)
	if err != nil {
		return fmt.Errorf("failed to unmarshal EWKB: %w", err)
	}

	polygon, ok := geometry.(*geom.Polygon)
	if !ok {
		return fmt.Errorf("scanned geometry is not a Polygon")
	}

	geoJSONBytes, err := geojson.Marshal(polygon)
	if err != nil {
		return fmt.Errorf("failed to marshal to GeoJSON: %w", err)
	}

	return json.Unmarshal(geoJSONBytes, g)
}

// Validate checks the structural shape of the polygon: at least one
// ring, each ring closed with >= 4 positions, every position lon/lat.
// Topological validity (self-intersection) is the geometry engine's job.
func (g *GeoJSONPolygon) Validate() error {
	if g == nil || g.Type != "Polygon" {
		return fmt.Errorf("badrequest: boundary must be a GeoJSON Polygon")
	}
	if len(g.Coordinates) == 0 {
		return fmt.Errorf("badrequest: boundary has no rings")
	}
	for i, ring := range g.Coordinates {
		if len(ring) < 4 {
			return fmt.Errorf("badrequest: boundary ring %d has fewer than 4 positions", i)
		}
		first, last := ring[0], ring[len(ring)-1]
		if len(first) < 2 || len(last) < 2 || first[0] != last[0] || first[1] != last[1] {
			return fmt.Errorf("badrequest: boundary ring %d is not closed", i)
		}
		for j, pos := range ring {
			if len(pos) < 2 {
				return fmt.Errorf("badrequest: boundary ring %d position %d is not a lon/lat pair", i, j)
			}
			if pos[0] < -180 || pos[0] > 180 || pos[1] < -90 || pos[1] > 90 {
				return fmt.Errorf("badrequest: boundary ring %d position %d out of lon/lat range", i, j)
			}
		}
	}
	return nil
}

// GeoJSONPoint represents a GeoJSON Point for API input/output.
// Stored in PostGIS as GEOMETRY(Point, 4326). Coordinates are lon, lat.
type GeoJSONPoint struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// NewGeoJSONPoint builds a point from a lon/lat pair.
func NewGeoJSONPoint(lon, lat float64) *GeoJSONPoint {
	return &GeoJSONPoint{Type: "Point", Coordinates: []float64{lon, lat}}
}

func (g *GeoJSONPoint) Lon() float64 {
	if g == nil || len(g.Coordinates) < 2 {
		return 0
	}
	return g.Coordinates[0]
}

func (g *GeoJSONPoint) Lat() float64 {
	if g == nil || len(g.Coordinates) < 2 {
		return 0
	}
	return g.Coordinates[1]
}

// Value converts the point to an SRID-prefixed WKT string for PostGIS.
func (g *GeoJSONPoint) Value() (driver.Value, error) {
	if g == nil || g.Type == "" {
		return nil, nil
	}

	geoJSONBytes, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal GeoJSON: %w", err)
	}

	var geometry geom.T
	if err := geojson.Unmarshal(geoJSONBytes, &geometry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal GeoJSON: %w", err)
	}

	point, ok := geometry.(*geom.Point)
	if !ok {
		return nil, fmt.Errorf("geometry is not a Point")
	}
	point.SetSRID(4326)

	wktString, err := wkt.Marshal(point)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal to WKT: %w", err)
	}

	return fmt.Sprintf("SRID=%d;%s", point.SRID(), wktString), nil
}

// Scan decodes a PostGIS EWKB value into GeoJSON coordinates.
func (g *GeoJSONPoint) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to scan GeoJSONPoint: expected []byte, got %T", value)
	}

	geometry, err := ewkb.Unmarshal(bytes)
	if err != nil {
		return fmt.Errorf("failed to unmarshal EWKB: %w", err)
	}

	point, ok := geometry.(*geom.Point)
	if !ok {
		return fmt.Errorf("scanned geometry is not a Point")
	}

	geoJSONBytes, err := geojson.Marshal(point)
	if err != nil {
		return fmt.Errorf("failed to marshal to GeoJSON: %w", err)
	}

	return json.Unmarshal(geoJSONBytes, g)
}

// PolygonFromWKB decodes a WKB byte value (ST_AsBinary output) into a
// GeoJSONPolygon. Shared by repository row unmarshalling.
func PolygonFromWKB(data []byte) (*GeoJSONPolygon, error) {
	geometry, err := wkb.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("unmarshal polygon wkb: %w", err)
	}
	polygon, ok := geometry.(*geom.Polygon)
	if !ok {
		return nil, fmt.Errorf("geometry is not a Polygon")
	}

	coords := make([][][]float64, polygon.NumLinearRings())
	for i := 0; i < polygon.NumLinearRings(); i++ {
		ring := polygon.LinearRing(i)
		ringCoords := make([][]float64, ring.NumCoords())
		for j := 0; j < ring.NumCoords(); j++ {
			coord := ring.Coord(j)
			ringCoords[j] = []float64{coord.X(), coord.Y()}
		}
		coords[i] = ringCoords
	}

	return &GeoJSONPolygon{Type: "Polygon", Coordinates: coords}, nil
}

// PointFromWKB decodes a WKB byte value into a GeoJSONPoint.
func PointFromWKB(data []byte) (*GeoJSONPoint, error) {
	geometry, err := wkb.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("unmarshal point wkb: %w", err)
	}
	point, ok := geometry.(*geom.Point)
	if !ok {
		return nil, fmt.Errorf("geometry is not a Point")
	}
	coords := point.Coords()
	return &GeoJSONPoint{Type: "Point", Coordinates: []float64{coords.X(), coords.Y()}}, nil
}
