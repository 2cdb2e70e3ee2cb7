package event

import (
	"time"

	"github.com/google/uuid"
)

// SurveyEventsQueue carries session lifecycle and review events for
// downstream consumers (notifications, report aggregation).
const SurveyEventsQueue = "survey_events"

const (
	EventSessionCompleted = "session_completed"
	EventPhotoFlagged     = "photo_flagged"
)

// SurveyEvent is the envelope every published survey event uses.
type SurveyEvent struct {
	EventType  string    `json:"event_type"`
	OccurredAt time.Time `json:"occurred_at"`

	FarmID      uuid.UUID  `json:"farm_id"`
	UserID      string     `json:"user_id"`
	SessionUUID *uuid.UUID `json:"session_uuid,omitempty"`
	ReportID    *uuid.UUID `json:"report_id,omitempty"`
	ImageID     *uuid.UUID `json:"image_id,omitempty"`
	Reason      string     `json:"reason,omitempty"`
}
