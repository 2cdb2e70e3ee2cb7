package services

import (
	"testing"
	"time"

	"survey-service/internal/geo"
	"survey-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// TEST HELPERS
// ============================================================================

func newTestVerifier(toleranceM float64) *CaptureVerifier {
	// Distance and containment never touch the database.
	return NewCaptureVerifier(geo.NewPostGISEngine(nil), toleranceM)
}

func testBoundary() *models.GeoJSONPolygon {
	return &models.GeoJSONPolygon{
		Type: "Polygon",
		Coordinates: [][][]float64{{
			{77.59, 12.97},
			{77.60, 12.97},
			{77.60, 12.98},
			{77.59, 12.98},
			{77.59, 12.97},
		}},
	}
}

func floatPtr(v float64) *float64 { return &v }

// ============================================================================
// TEST SUITE 1: TIMESTAMP PARSING
// ============================================================================

func TestParseCaptureTimestamp_ExifFormat(t *testing.T) {
	parsed, err := ParseCaptureTimestamp("2026:03:14 09:26:53")

	require.NoError(t, err)
	assert.Equal(t, 2026, parsed.Year())
	assert.Equal(t, time.March, parsed.Month())
	assert.Equal(t, 14, parsed.Day())
	assert.Equal(t, 9, parsed.Hour())
}

func TestParseCaptureTimestamp_RFC3339(t *testing.T) {
	parsed, err := ParseCaptureTimestamp("2026-03-14T09:26:53+07:00")

	require.NoError(t, err)
	assert.Equal(t, 14, parsed.Day())
}

func TestParseCaptureTimestamp_Invalid(t *testing.T) {
	_, err := ParseCaptureTimestamp("not a timestamp")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "badrequest")
}

func TestParseCaptureTimestamp_Empty(t *testing.T) {
	_, err := ParseCaptureTimestamp("")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "badrequest")
}

// ============================================================================
// TEST SUITE 2: DISTANCE THRESHOLD
// ============================================================================

func TestVerify_WithinTolerance(t *testing.T) {
	verifier := newTestVerifier(50)

	outcome, err := verifier.Verify(VerifyInput{
		DeviceLat:        12.9716,
		DeviceLon:        77.5946,
		DeviceTime:       time.Now(),
		ExifLat:          floatPtr(12.97169),
		ExifLon:          floatPtr(77.59469),
		ExifTimestampRaw: "2026:03:14 09:26:53",
		FarmBoundary:     testBoundary(),
	})

	require.NoError(t, err)
	assert.Equal(t, models.VerificationVerified, outcome.Status)
	assert.Equal(t, models.ReasonWithinTolerance, outcome.Reason)
	assert.Less(t, outcome.DistanceMeters, 50.0)
}

func TestVerify_ExceedsTolerance(t *testing.T) {
	verifier := newTestVerifier(50)

	// ~220m of latitude separation, both points inside the farm.
	outcome, err := verifier.Verify(VerifyInput{
		DeviceLat:        12.9716,
		DeviceLon:        77.5946,
		DeviceTime:       time.Now(),
		ExifLat:          floatPtr(12.9736),
		ExifLon:          floatPtr(77.5946),
		ExifTimestampRaw: "2026:03:14 09:26:53",
		FarmBoundary:     testBoundary(),
	})

	require.NoError(t, err)
	assert.Equal(t, models.VerificationFlagged, outcome.Status)
	assert.Equal(t, models.ReasonExceedsTolerance, outcome.Reason)
	assert.Greater(t, outcome.DistanceMeters, 50.0)
}

func TestVerify_LargerToleranceAcceptsSamePair(t *testing.T) {
	verifier := newTestVerifier(1000)

	outcome, err := verifier.Verify(VerifyInput{
		DeviceLat:        12.9716,
		DeviceLon:        77.5946,
		DeviceTime:       time.Now(),
		ExifLat:          floatPtr(12.9736),
		ExifLon:          floatPtr(77.5946),
		ExifTimestampRaw: "2026:03:14 09:26:53",
	})

	require.NoError(t, err)
	assert.Equal(t, models.VerificationVerified, outcome.Status, "distance <= tolerance verifies")
}

// ============================================================================
// TEST SUITE 3: BOUNDARY VETO
// ============================================================================

func TestVerify_BoundaryVeto(t *testing.T) {
	verifier := newTestVerifier(50)

	// Device and EXIF agree exactly, but the point sits outside the farm.
	outcome, err := verifier.Verify(VerifyInput{
		DeviceLat:        12.99,
		DeviceLon:        77.62,
		DeviceTime:       time.Now(),
		ExifLat:          floatPtr(12.99),
		ExifLon:          floatPtr(77.62),
		ExifTimestampRaw: "2026:03:14 09:26:53",
		FarmBoundary:     testBoundary(),
	})

	require.NoError(t, err)
	assert.Equal(t, models.VerificationFlagged, outcome.Status)
	assert.Equal(t, models.ReasonOutsideFarmBoundary, outcome.Reason)
	assert.Equal(t, 0.0, outcome.DistanceMeters)
}

func TestVerify_NoBoundarySkipsVeto(t *testing.T) {
	verifier := newTestVerifier(50)

	outcome, err := verifier.Verify(VerifyInput{
		DeviceLat:        12.99,
		DeviceLon:        77.62,
		DeviceTime:       time.Now(),
		ExifLat:          floatPtr(12.99),
		ExifLon:          floatPtr(77.62),
		ExifTimestampRaw: "2026:03:14 09:26:53",
	})

	require.NoError(t, err)
	assert.Equal(t, models.VerificationVerified, outcome.Status)
}

func TestVerify_BrokenBoundarySkipsVeto(t *testing.T) {
	verifier := newTestVerifier(50)

	// An unclosed ring fails the structural check, so the veto is
	// skipped with a warning instead of vetoing on garbage geometry.
	// Topologically invalid but well-formed boundaries never get here;
	// farm intake rejects them before they are stored.
	broken := &models.GeoJSONPolygon{
		Type: "Polygon",
		Coordinates: [][][]float64{{
			{77.59, 12.97},
			{77.60, 12.97},
			{77.60, 12.98},
			{77.59, 12.98},
		}},
	}

	outcome, err := verifier.Verify(VerifyInput{
		DeviceLat:        12.99,
		DeviceLon:        77.62,
		DeviceTime:       time.Now(),
		ExifLat:          floatPtr(12.99),
		ExifLon:          floatPtr(77.62),
		ExifTimestampRaw: "2026:03:14 09:26:53",
		FarmBoundary:     broken,
	})

	require.NoError(t, err)
	assert.Equal(t, models.VerificationVerified, outcome.Status)
}

// ============================================================================
// TEST SUITE 4: HARD REJECTIONS
// ============================================================================

func TestVerify_MissingExifGPS(t *testing.T) {
	verifier := newTestVerifier(50)

	_, err := verifier.Verify(VerifyInput{
		DeviceLat:        12.9716,
		DeviceLon:        77.5946,
		DeviceTime:       time.Now(),
		ExifTimestampRaw: "2026:03:14 09:26:53",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "badrequest")
	assert.Contains(t, err.Error(), "embedded GPS")
}

func TestVerify_MissingExifTimestamp(t *testing.T) {
	verifier := newTestVerifier(50)

	_, err := verifier.Verify(VerifyInput{
		DeviceLat:  12.9716,
		DeviceLon:  77.5946,
		DeviceTime: time.Now(),
		ExifLat:    floatPtr(12.9716),
		ExifLon:    floatPtr(77.5946),
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "badrequest")
}

func TestVerify_InvalidDevicePosition(t *testing.T) {
	verifier := newTestVerifier(50)

	_, err := verifier.Verify(VerifyInput{
		DeviceLat:        95,
		DeviceLon:        77.5946,
		DeviceTime:       time.Now(),
		ExifLat:          floatPtr(12.9716),
		ExifLon:          floatPtr(77.5946),
		ExifTimestampRaw: "2026:03:14 09:26:53",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "badrequest")
}

func TestVerify_InvalidExifPosition(t *testing.T) {
	verifier := newTestVerifier(50)

	_, err := verifier.Verify(VerifyInput{
		DeviceLat:        12.9716,
		DeviceLon:        77.5946,
		DeviceTime:       time.Now(),
		ExifLat:          floatPtr(12.9716),
		ExifLon:          floatPtr(200),
		ExifTimestampRaw: "2026:03:14 09:26:53",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "badrequest")
}
