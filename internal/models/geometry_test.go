package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPolygon() *GeoJSONPolygon {
	return &GeoJSONPolygon{
		Type: "Polygon",
		Coordinates: [][][]float64{{
			{106.60, 10.70},
			{106.61, 10.70},
			{106.61, 10.71},
			{106.60, 10.71},
			{106.60, 10.70},
		}},
	}
}

// ============================================================================
// TEST SUITE 1: STRUCTURAL VALIDATION
// ============================================================================

func TestPolygonValidate_Valid(t *testing.T) {
	assert.NoError(t, validPolygon().Validate())
}

func TestPolygonValidate_WrongType(t *testing.T) {
	p := validPolygon()
	p.Type = "MultiPolygon"

	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "badrequest")
}

func TestPolygonValidate_NoRings(t *testing.T) {
	p := &GeoJSONPolygon{Type: "Polygon"}

	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no rings")
}

func TestPolygonValidate_UnclosedRing(t *testing.T) {
	p := validPolygon()
	p.Coordinates[0] = p.Coordinates[0][:4]

	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not closed")
}

func TestPolygonValidate_TooFewPositions(t *testing.T) {
	p := &GeoJSONPolygon{
		Type: "Polygon",
		Coordinates: [][][]float64{{
			{106.60, 10.70},
			{106.61, 10.70},
			{106.60, 10.70},
		}},
	}

	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fewer than 4")
}

func TestPolygonValidate_OutOfRange(t *testing.T) {
	p := validPolygon()
	p.Coordinates[0][1] = []float64{200, 10.70}

	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of lon/lat range")
}

// ============================================================================
// TEST SUITE 2: WKT ENCODING
// ============================================================================

func TestPolygonValue_EWKT(t *testing.T) {
	value, err := validPolygon().Value()

	require.NoError(t, err)
	text, ok := value.(string)
	require.True(t, ok)
	assert.Contains(t, text, "SRID=4326;")
	assert.Contains(t, text, "POLYGON")
}

func TestPolygonValue_NilIsNull(t *testing.T) {
	var p *GeoJSONPolygon
	value, err := p.Value()

	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestPointValue_EWKT(t *testing.T) {
	value, err := NewGeoJSONPoint(106.605, 10.705).Value()

	require.NoError(t, err)
	text, ok := value.(string)
	require.True(t, ok)
	assert.Contains(t, text, "SRID=4326;")
	assert.Contains(t, text, "POINT")
}

// ============================================================================
// TEST SUITE 3: POINT ACCESSORS
// ============================================================================

func TestPointAccessors(t *testing.T) {
	p := NewGeoJSONPoint(106.605, 10.705)

	assert.Equal(t, 106.605, p.Lon())
	assert.Equal(t, 10.705, p.Lat())
}

func TestPointAccessors_NilSafe(t *testing.T) {
	var p *GeoJSONPoint

	assert.Equal(t, 0.0, p.Lon())
	assert.Equal(t, 0.0, p.Lat())
}
