package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// ============================================================================
// TEST SUITE 1: DISTANCE
// ============================================================================

func TestHaversineMeters_ShortDistance(t *testing.T) {
	// Roughly 12.5m apart in Bengaluru; must verify at a 50m tolerance.
	distance := HaversineMeters(12.9716, 77.5946, 12.97169, 77.59469)

	assert.InDelta(t, 13.0, distance, 2.0, "Points ~13m apart")
	assert.Less(t, distance, 50.0)
}

func TestHaversineMeters_ExceedsTolerance(t *testing.T) {
	// ~0.002 degrees of latitude is about 220m.
	distance := HaversineMeters(12.9716, 77.5946, 12.9736, 77.5946)

	assert.Greater(t, distance, 50.0)
	assert.InDelta(t, 222.0, distance, 5.0)
}

func TestHaversineMeters_SamePoint(t *testing.T) {
	assert.Equal(t, 0.0, HaversineMeters(10.5, 106.2, 10.5, 106.2))
}

func TestHaversineMeters_Symmetric(t *testing.T) {
	d1 := HaversineMeters(12.9716, 77.5946, 12.9736, 77.5966)
	d2 := HaversineMeters(12.9736, 77.5966, 12.9716, 77.5946)

	assert.InDelta(t, d1, d2, 1e-9)
}

// ============================================================================
// TEST SUITE 2: COORDINATE VALIDATION
// ============================================================================

func TestValidLatLon(t *testing.T) {
	assert.True(t, ValidLatLon(0, 0))
	assert.True(t, ValidLatLon(-90, -180))
	assert.True(t, ValidLatLon(90, 180))
	assert.False(t, ValidLatLon(90.1, 0))
	assert.False(t, ValidLatLon(0, 180.1))
	assert.False(t, ValidLatLon(-91, 0))
}

// ============================================================================
// TEST SUITE 3: POLYGON CONTAINMENT
// ============================================================================

func squareRing(minLon, minLat, maxLon, maxLat float64) [][]float64 {
	return [][]float64{
		{minLon, minLat},
		{maxLon, minLat},
		{maxLon, maxLat},
		{minLon, maxLat},
		{minLon, minLat},
	}
}

func TestPolygonContains_Inside(t *testing.T) {
	rings := [][][]float64{squareRing(77.59, 12.97, 77.60, 12.98)}

	assert.True(t, PolygonContains(rings, 77.595, 12.975))
}

func TestPolygonContains_Outside(t *testing.T) {
	rings := [][][]float64{squareRing(77.59, 12.97, 77.60, 12.98)}

	assert.False(t, PolygonContains(rings, 77.61, 12.975))
	assert.False(t, PolygonContains(rings, 77.595, 12.99))
}

func TestPolygonContains_Hole(t *testing.T) {
	rings := [][][]float64{
		squareRing(77.59, 12.97, 77.60, 12.98),
		squareRing(77.594, 12.974, 77.596, 12.976),
	}

	assert.False(t, PolygonContains(rings, 77.595, 12.975), "point inside the hole is outside the polygon")
	assert.True(t, PolygonContains(rings, 77.591, 12.971), "point between hole and outer ring is inside")
}

func TestPolygonContains_EmptyRings(t *testing.T) {
	assert.False(t, PolygonContains(nil, 77.595, 12.975))
	assert.False(t, PolygonContains([][][]float64{}, 77.595, 12.975))
}

// ============================================================================
// TEST SUITE 4: UTM ZONE SELECTION
// ============================================================================

func TestUTMZoneSRID(t *testing.T) {
	// Bengaluru: zone 43 north.
	assert.Equal(t, 32643, UTMZoneSRID(77.5946, 12.9716))
	// Ho Chi Minh City: zone 48 north.
	assert.Equal(t, 32648, UTMZoneSRID(106.66, 10.76))
	// Sydney: zone 56 south.
	assert.Equal(t, 32756, UTMZoneSRID(151.21, -33.87))
	// Date line edges clamp to valid zones.
	assert.Equal(t, 32601, UTMZoneSRID(-180, 10))
	assert.Equal(t, 32660, UTMZoneSRID(180, 10))
}
