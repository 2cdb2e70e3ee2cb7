package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionStatusIsTerminal(t *testing.T) {
	assert.False(t, SessionActive.IsTerminal())
	assert.True(t, SessionCompleted.IsTerminal())
	assert.True(t, SessionCancelled.IsTerminal())
}

func TestIsValidSessionStatus(t *testing.T) {
	assert.True(t, IsValidSessionStatus(SessionActive))
	assert.True(t, IsValidSessionStatus(SessionCompleted))
	assert.True(t, IsValidSessionStatus(SessionCancelled))
	assert.False(t, IsValidSessionStatus(SessionStatus("archived")))
}

func TestIsValidBlockStatus(t *testing.T) {
	assert.True(t, IsValidBlockStatus(BlockPending))
	assert.True(t, IsValidBlockStatus(BlockCompleted))
	assert.True(t, IsValidBlockStatus(BlockFailed))
	assert.True(t, IsValidBlockStatus(BlockFlagged))
	assert.False(t, IsValidBlockStatus(BlockStatus("skipped")))
}

func TestLinkCodeLinked(t *testing.T) {
	assert.True(t, LinkedAndVerified.Linked())
	assert.True(t, LinkedButFlagged.Linked())
	assert.False(t, ExplicitBlockAlreadyTaken.Linked())
	assert.False(t, SpatialConflict.Linked())
	assert.False(t, SpatialNoMatch.Linked())
	assert.False(t, ExplicitLinkError.Linked())
	assert.False(t, SpatialLinkError.Linked())
}
