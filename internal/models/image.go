package models

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// UPLOADED IMAGES
// ============================================================================

// Image is one uploaded, storage-backed photograph. It carries two
// independent coordinate pairs: the file's embedded EXIF metadata and
// the position the capturing device reported live at shoot time. The
// geom point is set from whichever pair the pipeline trusts (device
// capture when present, EXIF otherwise). local_upload_id is the client
// supplied idempotency key: retried complete-upload calls resolve to
// the same row instead of duplicating it.
type Image struct {
	ID             uuid.UUID     `json:"id" db:"id"`
	LocalUploadID  string        `json:"local_upload_id" db:"local_upload_id"`
	OwnerID        string        `json:"owner_id" db:"owner_id"`
	FarmID         uuid.UUID     `json:"farm_id" db:"farm_id"`
	ObjectKey      string        `json:"object_key" db:"object_key"`
	Bucket         string        `json:"bucket" db:"bucket"`
	ExifLat        *float64      `json:"exif_lat,omitempty" db:"exif_lat"`
	ExifLon        *float64      `json:"exif_lon,omitempty" db:"exif_lon"`
	ExifTimestamp  *time.Time    `json:"exif_timestamp,omitempty" db:"exif_timestamp"`
	CaptureLat     *float64      `json:"capture_lat,omitempty" db:"capture_lat"`
	CaptureLon     *float64      `json:"capture_lon,omitempty" db:"capture_lon"`
	CaptureTime    *time.Time    `json:"capture_time,omitempty" db:"capture_time"`
	Geom           *GeoJSONPoint `json:"geom,omitempty" db:"geom"`
	SessionBlockID *uuid.UUID    `json:"session_block_id,omitempty" db:"session_block_id"`

	VerificationStatus    *VerificationStatus `json:"verification_status,omitempty" db:"verification_status"`
	VerificationReason    *string             `json:"verification_reason,omitempty" db:"verification_reason"`
	VerificationDistanceM *float64            `json:"verification_distance_m,omitempty" db:"verification_distance_m"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
