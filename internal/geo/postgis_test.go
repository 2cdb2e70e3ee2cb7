package geo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The tessellation SQL is the one place grid coverage can silently
// break, so its shape is pinned here: every polygonal piece of a
// tile/boundary intersection must survive as its own cell. A concave
// (U- or L-shaped) boundary cuts some tiles into disjoint pieces;
// keeping only one piece per tile would leave parts of the farm with
// no block covering them.
func TestTessellateQuery_KeepsAllIntersectionPieces(t *testing.T) {
	// Pieces are numbered per tile, not truncated to one.
	assert.Contains(t, tessellateQuery, "ROW_NUMBER() OVER (PARTITION BY row_idx, col_idx")
	assert.Contains(t, tessellateQuery, "piece_idx")

	// No per-tile cap anywhere in the statement.
	assert.NotContains(t, tessellateQuery, "LIMIT 1")

	// Multi-piece intersections are exploded, not collapsed.
	assert.Contains(t, tessellateQuery, "ST_Dump")
	assert.Contains(t, tessellateQuery, "ST_CollectionExtract")
}

func TestTessellateQuery_FiltersSliversBeforeNumbering(t *testing.T) {
	// The sliver filter must sit in the same query block as the
	// numbering (WHERE is evaluated before window functions), so
	// dropped slivers never leave gaps in the piece sequence and the
	// largest surviving piece is always piece 0.
	numberAt := strings.Index(tessellateQuery, "ROW_NUMBER()")
	filterAt := strings.Index(tessellateQuery, "WHERE ST_Area(geom) > $4")
	finalAt := strings.Index(tessellateQuery, "ST_AsBinary")
	require.Positive(t, numberAt)
	require.Positive(t, filterAt)
	require.Positive(t, finalAt)
	assert.Less(t, numberAt, filterAt)
	assert.Less(t, filterAt, finalAt,
		"sliver filter belongs inside the numbering CTE, not after it")
}

func TestTessellateQuery_OrdersByPiece(t *testing.T) {
	assert.Contains(t, tessellateQuery, "ORDER BY row_idx, col_idx, piece_idx")
}
