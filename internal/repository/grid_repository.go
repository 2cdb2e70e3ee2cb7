package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"survey-service/internal/geo"
	"survey-service/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type GridRepository struct {
	db *sqlx.DB
}

func NewGridRepository(db *sqlx.DB) *GridRepository {
	return &GridRepository{db: db}
}

type gridBlockRow struct {
	models.GridBlock
	GeomWKB     []byte `db:"geom_wkb"`
	CentroidWKB []byte `db:"centroid_wkb"`
}

// EnsureGrid creates the grid for (farm, grid_version) if it does not
// exist yet. The whole operation runs in one transaction guarded by an
// advisory lock keyed on the farm id, so two concurrent first-time
// calls either see zero blocks and one of them builds, or see the
// complete set and no-op. A crash mid-insert rolls the partial grid
// back entirely.
//
// tessellate is invoked only when the grid is missing; it returns the
// clipped cells to persist. Returns the number of blocks now present.
func (r *GridRepository) EnsureGrid(ctx context.Context, farm *models.Farm, resolutionM float64, tessellate func(context.Context) ([]geo.Cell, error)) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin grid transaction: %w", err)
	}
	defer tx.Rollback()

	lockQuery := `SELECT pg_advisory_xact_lock(hashtextextended('grid_build:' || $1::text, 0))`
	if _, err := tx.ExecContext(ctx, lockQuery, farm.ID); err != nil {
		return 0, fmt.Errorf("failed to take grid build lock: %w", err)
	}

	var count int
	countQuery := `SELECT COUNT(*) FROM grid_block WHERE farm_id = $1 AND grid_version = $2`
	if err := tx.GetContext(ctx, &count, countQuery, farm.ID, farm.GridVersion); err != nil {
		return 0, fmt.Errorf("failed to count grid blocks: %w", err)
	}

	if count > 0 {
		if err := tx.Commit(); err != nil {
			return 0, fmt.Errorf("failed to commit grid transaction: %w", err)
		}
		return count, nil
	}

	cells, err := tessellate(ctx)
	if err != nil {
		return 0, err
	}
	if len(cells) == 0 {
		return 0, fmt.Errorf("empty_grid: tessellation produced no cells for farm %s", farm.ID)
	}

	insertQuery := `
		INSERT INTO grid_block (
			id, farm_id, grid_version, row_idx, col_idx, piece_idx,
			geom, centroid, area_sqm, resolution_m, created_at
		) VALUES (
			:id, :farm_id, :grid_version, :row_idx, :col_idx, :piece_idx,
			ST_GeomFromText(:geom), ST_GeomFromText(:centroid),
			:area_sqm, :resolution_m, :created_at
		)`

	now := time.Now()
	for _, cell := range cells {
		block := models.GridBlock{
			ID:          uuid.New(),
			FarmID:      farm.ID,
			GridVersion: farm.GridVersion,
			RowIdx:      cell.RowIdx,
			ColIdx:      cell.ColIdx,
			PieceIdx:    cell.PieceIdx,
			Geom:        cell.Geom,
			Centroid:    cell.Centroid,
			AreaSqm:     cell.AreaSqm,
			ResolutionM: resolutionM,
			CreatedAt:   now,
		}
		if _, err := tx.NamedExecContext(ctx, insertQuery, block); err != nil {
			return 0, fmt.Errorf("failed to insert grid block (%d,%d,%d): %w", cell.RowIdx, cell.ColIdx, cell.PieceIdx, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit grid transaction: %w", err)
	}

	slog.Info("grid built", "farm_id", farm.ID, "grid_version", farm.GridVersion, "blocks", len(cells))
	return len(cells), nil
}

func (r *GridRepository) CountBlocks(ctx context.Context, farmID uuid.UUID, gridVersion int) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM grid_block WHERE farm_id = $1 AND grid_version = $2`
	if err := r.db.GetContext(ctx, &count, query, farmID, gridVersion); err != nil {
		return 0, fmt.Errorf("failed to count grid blocks: %w", err)
	}
	return count, nil
}

// SelectRandomBlocks picks up to sampleSize blocks of the farm's
// current grid uniformly at random without replacement. Selection is
// independent of other sessions; a cell may be reused across sessions.
func (r *GridRepository) SelectRandomBlocks(ctx context.Context, farmID uuid.UUID, gridVersion, sampleSize int) ([]models.GridBlock, error) {
	query := `
		SELECT
			id, farm_id, grid_version, row_idx, col_idx, piece_idx,
			area_sqm, resolution_m, created_at,
			ST_AsBinary(geom) AS geom_wkb,
			ST_AsBinary(centroid) AS centroid_wkb
		FROM grid_block
		WHERE farm_id = $1 AND grid_version = $2
		ORDER BY random()
		LIMIT $3`

	var rows []gridBlockRow
	if err := r.db.SelectContext(ctx, &rows, query, farmID, gridVersion, sampleSize); err != nil {
		return nil, fmt.Errorf("failed to select random grid blocks: %w", err)
	}

	blocks := make([]models.GridBlock, 0, len(rows))
	for _, row := range rows {
		block := row.GridBlock
		if err := unmarshalGridGeometry(&row, &block); err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}

	return blocks, nil
}

func (r *GridRepository) GetBlocksByFarm(ctx context.Context, farmID uuid.UUID, gridVersion int) ([]models.GridBlock, error) {
	query := `
		SELECT
			id, farm_id, grid_version, row_idx, col_idx, piece_idx,
			area_sqm, resolution_m, created_at,
			ST_AsBinary(geom) AS geom_wkb,
			ST_AsBinary(centroid) AS centroid_wkb
		FROM grid_block
		WHERE farm_id = $1 AND grid_version = $2
		ORDER BY row_idx, col_idx, piece_idx`

	var rows []gridBlockRow
	if err := r.db.SelectContext(ctx, &rows, query, farmID, gridVersion); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get grid blocks: %w", err)
	}

	blocks := make([]models.GridBlock, 0, len(rows))
	for _, row := range rows {
		block := row.GridBlock
		if err := unmarshalGridGeometry(&row, &block); err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}

	return blocks, nil
}

// PruneStaleVersions drops grid blocks of superseded versions. Session
// blocks keep frozen copies of their geometry, so pruning never touches
// an in-flight session.
func (r *GridRepository) PruneStaleVersions(ctx context.Context, farmID uuid.UUID, currentVersion int) (int64, error) {
	query := `DELETE FROM grid_block WHERE farm_id = $1 AND grid_version < $2`
	result, err := r.db.ExecContext(ctx, query, farmID, currentVersion)
	if err != nil {
		return 0, fmt.Errorf("failed to prune stale grid versions: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

func unmarshalGridGeometry(row *gridBlockRow, block *models.GridBlock) error {
	if len(row.GeomWKB) > 0 {
		geomPoly, err := models.PolygonFromWKB(row.GeomWKB)
		if err != nil {
			return fmt.Errorf("unmarshal grid block geom: %w", err)
		}
		block.Geom = geomPoly
	}
	if len(row.CentroidWKB) > 0 {
		centroid, err := models.PointFromWKB(row.CentroidWKB)
		if err != nil {
			return fmt.Errorf("unmarshal grid block centroid: %w", err)
		}
		block.Centroid = centroid
	}
	return nil
}
