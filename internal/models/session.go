package models

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// SAMPLING SESSIONS
// ============================================================================

// SamplingSession groups the randomly selected grid cells a farmer must
// photograph in one pass over the farm. SessionUUID is the client
// facing handle; ID is internal. active -> completed | cancelled, both
// terminal.
type SamplingSession struct {
	ID          uuid.UUID      `json:"-" db:"id"`
	SessionUUID uuid.UUID      `json:"session_uuid" db:"session_uuid"`
	FarmID      uuid.UUID      `json:"farm_id" db:"farm_id"`
	UserID      string         `json:"user_id" db:"user_id"`
	ResolutionM float64        `json:"resolution_m" db:"resolution_m"`
	SampleSize  int            `json:"sample_size" db:"sample_size"`
	Status      SessionStatus  `json:"status" db:"status"`
	Notes       *string        `json:"notes,omitempty" db:"notes"`
	ReportID    *uuid.UUID     `json:"report_id,omitempty" db:"report_id"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty" db:"completed_at"`
	Blocks      []SessionBlock `json:"blocks,omitempty" db:"-"`
}

// SessionBlock is one cell assignment within a session. Geom and
// centroid are frozen copies of the grid block taken at session
// creation, so a later grid rebuild never changes an in-flight
// session. image_id is set exactly once; a uniqueness constraint
// guarantees an image backs at most one block.
type SessionBlock struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	SessionID   uuid.UUID       `json:"-" db:"session_id"`
	GridBlockID uuid.UUID       `json:"grid_block_id" db:"grid_block_id"`
	OrderIndex  int             `json:"order_index" db:"order_index"`
	Geom        *GeoJSONPolygon `json:"geom,omitempty" db:"geom"`
	Centroid    *GeoJSONPoint   `json:"centroid,omitempty" db:"centroid"`
	Status      BlockStatus     `json:"status" db:"status"`
	Attempts    int             `json:"attempts" db:"attempts"`
	ImageID     *uuid.UUID      `json:"image_id,omitempty" db:"image_id"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
}

// SurveyReport is the hand-off record produced when a session is
// submitted. Scoring/aggregation formulas live downstream; this row
// only carries the linked evidence.
type SurveyReport struct {
	ID              uuid.UUID `json:"id" db:"id"`
	SessionID       uuid.UUID `json:"session_id" db:"session_id"`
	FarmID          uuid.UUID `json:"farm_id" db:"farm_id"`
	UserID          string    `json:"user_id" db:"user_id"`
	CompletedBlocks int       `json:"completed_blocks" db:"completed_blocks"`
	FlaggedBlocks   int       `json:"flagged_blocks" db:"flagged_blocks"`
	ImageIDs        UUIDSlice `json:"image_ids" db:"image_ids"`
	Notes           *string   `json:"notes,omitempty" db:"notes"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}
