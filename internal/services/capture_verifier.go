package services

import (
	"fmt"
	"log/slog"
	"time"

	"survey-service/internal/geo"
	"survey-service/internal/models"
)

// captureTimestampLayouts are the formats embedded capture timestamps
// arrive in. EXIF writes colon-separated dates; devices usually send
// RFC3339.
var captureTimestampLayouts = []string{
	"2006:01:02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseCaptureTimestamp normalizes an embedded or device-reported
// capture timestamp to a single instant. Timestamps without an offset
// are taken as UTC.
func ParseCaptureTimestamp(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("badrequest: capture timestamp is missing")
	}
	for _, layout := range captureTimestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("badrequest: unparseable capture timestamp %q", raw)
}

// VerifyInput carries the two independent observations of one capture:
// what the device reported live and what the photo file itself says.
type VerifyInput struct {
	DeviceLat  float64
	DeviceLon  float64
	DeviceTime time.Time

	ExifLat          *float64
	ExifLon          *float64
	ExifTimestampRaw string

	// FarmBoundary enables the containment veto when the farm is known.
	FarmBoundary *models.GeoJSONPolygon
}

// VerifyOutcome is the recorded verification result. A FLAGGED outcome
// is a valid result, not an error; only structurally unusable input is
// rejected.
type VerifyOutcome struct {
	Status         models.VerificationStatus
	Reason         string
	DistanceMeters float64
	ExifTime       time.Time
}

// CaptureVerifier checks that a photo was plausibly taken where the
// device claims it was: the file's embedded GPS must agree with the
// device position within a tolerance, and must lie inside the farm.
type CaptureVerifier struct {
	engine     geo.Engine
	toleranceM float64
}

func NewCaptureVerifier(engine geo.Engine, toleranceM float64) *CaptureVerifier {
	return &CaptureVerifier{engine: engine, toleranceM: toleranceM}
}

// Verify computes the device/EXIF agreement and applies the boundary
// veto. Missing or unparseable embedded metadata is a hard rejection:
// without it the photo cannot be trusted at all.
func (v *CaptureVerifier) Verify(input VerifyInput) (*VerifyOutcome, error) {
	if !geo.ValidLatLon(input.DeviceLat, input.DeviceLon) {
		return nil, fmt.Errorf("badrequest: device position out of lat/lon range")
	}

	if input.ExifLat == nil || input.ExifLon == nil {
		return nil, fmt.Errorf("badrequest: photo carries no embedded GPS metadata")
	}
	if !geo.ValidLatLon(*input.ExifLat, *input.ExifLon) {
		return nil, fmt.Errorf("badrequest: embedded GPS position out of lat/lon range")
	}

	exifTime, err := ParseCaptureTimestamp(input.ExifTimestampRaw)
	if err != nil {
		return nil, err
	}

	// Compared at full precision; rounding is display-only.
	distance := v.engine.DistanceMeters(input.DeviceLat, input.DeviceLon, *input.ExifLat, *input.ExifLon)

	outcome := &VerifyOutcome{
		DistanceMeters: distance,
		ExifTime:       exifTime,
	}
	if distance <= v.toleranceM {
		outcome.Status = models.VerificationVerified
		outcome.Reason = models.ReasonWithinTolerance
	} else {
		outcome.Status = models.VerificationFlagged
		outcome.Reason = models.ReasonExceedsTolerance
	}

	// Containment veto: an embedded position outside the farm flags
	// the photo even when device and EXIF agree perfectly.
	//
	// Validate is a structural check (ring closure, coordinate ranges),
	// not topological validity. Topology is enforced at farm intake:
	// every stored boundary has already passed the engine's ST_IsValid,
	// so a self-intersecting polygon cannot reach this point through
	// the normal write path and the cheap check is enough to keep the
	// ray cast sane.
	if input.FarmBoundary != nil {
		if err := input.FarmBoundary.Validate(); err != nil {
			slog.Warn("farm boundary failed validity check, skipping containment veto", "error", err)
		} else if !v.engine.Contains(input.FarmBoundary, *input.ExifLon, *input.ExifLat) {
			outcome.Status = models.VerificationFlagged
			outcome.Reason = models.ReasonOutsideFarmBoundary
		}
	}

	return outcome, nil
}
