package repository

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// The conflict/no-match diagnosis after a missed candidate select is
// only correct when the unlocked recount applies the same block
// predicates as the locking select. If the recount were looser, a block
// abandoned as failed after too many attempts (image_id still NULL)
// would count as contested, and every later upload at that position
// would report a transient conflict instead of no match, forever.
func TestSpatialLinkQueries_SharePredicates(t *testing.T) {
	for _, predicate := range []string{
		"s.status = 'active'",
		"sb.image_id IS NULL",
		"sb.status IN ('pending', 'flagged')",
		"ST_Covers(sb.geom, ST_SetSRID(ST_MakePoint($3, $4), 4326))",
	} {
		assert.Contains(t, spatialCandidateQuery, predicate)
		assert.Contains(t, spatialContestedQuery, predicate)
	}
}

func TestSpatialCandidateQuery_SkipsLockedRows(t *testing.T) {
	assert.Contains(t, spatialCandidateQuery, "FOR UPDATE OF sb SKIP LOCKED")
	assert.Contains(t, spatialCandidateQuery, "LIMIT 1")
	assert.Contains(t, spatialCandidateQuery, "ORDER BY sb.order_index")
}

func TestSpatialContestedQuery_CountsWithoutLocking(t *testing.T) {
	// The recount exists to see through locks held by concurrent
	// uploads; taking locks itself would defeat it.
	assert.NotContains(t, spatialContestedQuery, "FOR UPDATE")
	assert.NotContains(t, spatialContestedQuery, "SKIP LOCKED")
	assert.True(t, strings.Contains(spatialContestedQuery, "SELECT COUNT(*)"))
}
