package models

type FarmStatus string

const (
	FarmActive   FarmStatus = "active"
	FarmInactive FarmStatus = "inactive"
)

type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are allowed out of
// the given session status.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionCompleted || s == SessionCancelled
}

type BlockStatus string

const (
	BlockPending   BlockStatus = "pending"
	BlockCompleted BlockStatus = "completed"
	BlockFailed    BlockStatus = "failed"
	BlockFlagged   BlockStatus = "flagged"
)

type VerificationStatus string

const (
	VerificationVerified VerificationStatus = "verified"
	VerificationFlagged  VerificationStatus = "flagged"
)

// Verification reason codes carried on the image record.
const (
	ReasonWithinTolerance     = "device_exif_within_tolerance"
	ReasonExceedsTolerance    = "device_exif_distance_exceeds_tolerance"
	ReasonOutsideFarmBoundary = "exif_point_outside_farm_boundary"
)

// LinkCode is the outcome of a block-linking attempt. Conflicts are
// result codes, not errors: the caller decides whether to retry.
type LinkCode string

const (
	LinkedAndVerified         LinkCode = "linked_and_verified"
	LinkedButFlagged          LinkCode = "linked_but_flagged"
	ExplicitBlockAlreadyTaken LinkCode = "explicit_block_already_taken"
	SpatialConflict           LinkCode = "spatial_conflict"
	SpatialNoMatch            LinkCode = "spatial_no_match"
	ExplicitLinkError         LinkCode = "explicit_link_error"
	SpatialLinkError          LinkCode = "spatial_link_error"
)

// Linked reports whether the attempt attached the image to a block.
func (c LinkCode) Linked() bool {
	return c == LinkedAndVerified || c == LinkedButFlagged
}

func IsValidSessionStatus(status SessionStatus) bool {
	switch status {
	case SessionActive, SessionCompleted, SessionCancelled:
		return true
	default:
		return false
	}
}

func IsValidBlockStatus(status BlockStatus) bool {
	switch status {
	case BlockPending, BlockCompleted, BlockFailed, BlockFlagged:
		return true
	default:
		return false
	}
}
