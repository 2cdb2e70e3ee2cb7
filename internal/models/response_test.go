package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionResponse(t *testing.T) {
	imageID := uuid.New()
	session := &SamplingSession{
		SessionUUID: uuid.New(),
		FarmID:      uuid.New(),
		Status:      SessionActive,
		SampleSize:  2,
		ResolutionM: 100,
		CreatedAt:   time.Now(),
		Blocks: []SessionBlock{
			{ID: uuid.New(), OrderIndex: 0, Status: BlockCompleted, Attempts: 1, ImageID: &imageID},
			{ID: uuid.New(), OrderIndex: 1, Status: BlockPending, Attempts: 0},
		},
	}

	resp := NewSessionResponse(session)

	assert.Equal(t, session.SessionUUID, resp.SessionUUID)
	assert.Equal(t, session.FarmID, resp.FarmID)
	assert.Equal(t, SessionActive, resp.Status)
	require.Len(t, resp.Blocks, 2)
	assert.Equal(t, BlockCompleted, resp.Blocks[0].Status)
	assert.Equal(t, &imageID, resp.Blocks[0].ImageID)
	assert.Equal(t, 1, resp.Blocks[1].OrderIndex)
	assert.Nil(t, resp.Blocks[1].ImageID)
}
