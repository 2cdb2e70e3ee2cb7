package models

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// RESPONSE MODELS
// ============================================================================

// SessionBlockView is the client-facing shape of one cell assignment.
type SessionBlockView struct {
	ID         uuid.UUID       `json:"id"`
	OrderIndex int             `json:"order_index"`
	Status     BlockStatus     `json:"status"`
	Attempts   int             `json:"attempts"`
	ImageID    *uuid.UUID      `json:"image_id,omitempty"`
	Centroid   *GeoJSONPoint   `json:"centroid,omitempty"`
	Geom       *GeoJSONPolygon `json:"geom,omitempty"`
}

type SessionResponse struct {
	SessionUUID uuid.UUID          `json:"session_uuid"`
	FarmID      uuid.UUID          `json:"farm_id"`
	Status      SessionStatus      `json:"status"`
	SampleSize  int                `json:"sample_size"`
	ResolutionM float64            `json:"resolution_m"`
	Blocks      []SessionBlockView `json:"blocks"`
	CreatedAt   time.Time          `json:"created_at"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
}

type IssueUploadResponse struct {
	UploadURL string    `json:"upload_url"`
	Bucket    string    `json:"bucket"`
	ObjectKey string    `json:"object_key"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CompleteUploadResponse reports the verification outcome and, when
// linking succeeded, the claimed session block. A flagged photo still
// completes the upload; flags surface in review, not as failures here.
type CompleteUploadResponse struct {
	ImageID              uuid.UUID          `json:"image_id"`
	Verification         VerificationStatus `json:"verification"`
	VerificationReason   string             `json:"verification_reason,omitempty"`
	DistanceMeters       float64            `json:"distance_meters"`
	LinkCode             LinkCode           `json:"link_code"`
	LinkedSessionBlockID *uuid.UUID         `json:"linked_session_block_id,omitempty"`
}

type SubmitSessionResponse struct {
	ReportID uuid.UUID     `json:"report_id"`
	Status   SessionStatus `json:"status"`
}

// NewSessionResponse flattens a session row plus its block rows into
// the client-facing shape.
func NewSessionResponse(session *SamplingSession) *SessionResponse {
	resp := &SessionResponse{
		SessionUUID: session.SessionUUID,
		FarmID:      session.FarmID,
		Status:      session.Status,
		SampleSize:  session.SampleSize,
		ResolutionM: session.ResolutionM,
		CreatedAt:   session.CreatedAt,
		CompletedAt: session.CompletedAt,
		Blocks:      make([]SessionBlockView, 0, len(session.Blocks)),
	}
	for _, block := range session.Blocks {
		resp.Blocks = append(resp.Blocks, SessionBlockView{
			ID:         block.ID,
			OrderIndex: block.OrderIndex,
			Status:     block.Status,
			Attempts:   block.Attempts,
			ImageID:    block.ImageID,
			Centroid:   block.Centroid,
			Geom:       block.Geom,
		})
	}
	return resp
}
