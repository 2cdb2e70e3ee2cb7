package models

import "github.com/google/uuid"

// ============================================================================
// REQUEST MODELS
// ============================================================================

type CreateFarmRequest struct {
	FarmName        *string         `json:"farm_name,omitempty"`
	Boundary        *GeoJSONPolygon `json:"boundary"`
	GridResolutionM *float64        `json:"grid_resolution_m,omitempty"`
	CurrentCropID   *uuid.UUID      `json:"current_crop_id,omitempty"`
}

type UpdateBoundaryRequest struct {
	Boundary *GeoJSONPolygon `json:"boundary"`
}

type StartSessionRequest struct {
	ResolutionOverrideM *float64 `json:"resolution_override_m,omitempty"`
	SampleSize          *int     `json:"sample_size,omitempty"`
}

type SubmitSessionRequest struct {
	Notes *string `json:"notes,omitempty"`
}

type IssueUploadRequest struct {
	LocalUploadID string    `json:"local_upload_id"`
	FarmID        uuid.UUID `json:"farm_id"`
	ContentType   string    `json:"content_type,omitempty"`
}

// CompleteUploadRequest finishes a signed upload. capture_lat/lon and
// capture_time are the device-reported position and instant at shoot
// time; the photo's own EXIF metadata is read from the stored object.
// explicit_block_id pins the link to one session block; without it the
// linker falls back to spatial containment of the device position.
type CompleteUploadRequest struct {
	LocalUploadID   string     `json:"local_upload_id"`
	FarmID          uuid.UUID  `json:"farm_id"`
	ObjectKey       string     `json:"object_key"`
	CaptureLat      *float64   `json:"capture_lat"`
	CaptureLon      *float64   `json:"capture_lon"`
	CaptureTime     string     `json:"capture_time"`
	ExplicitBlockID *uuid.UUID `json:"explicit_block_id,omitempty"`
}
