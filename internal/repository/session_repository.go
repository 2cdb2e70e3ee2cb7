package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"survey-service/internal/models"
	"survey-service/utils"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type SessionRepository struct {
	db *sqlx.DB
}

func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

type sessionBlockRow struct {
	models.SessionBlock
	GeomWKB     []byte `db:"geom_wkb"`
	CentroidWKB []byte `db:"centroid_wkb"`
}

// LinkOutcome is what a linking attempt reports back to the upload
// pipeline. BlockID is set only when the image was attached.
type LinkOutcome struct {
	Code    models.LinkCode
	BlockID *uuid.UUID
}

// ============================================================================
// SESSION CREATION
// ============================================================================

// CreateSessionWithBlocks persists the session row and its block rows
// in one transaction: either the whole session exists with all its
// cell assignments, or nothing does. The partial unique index on
// (farm_id) WHERE status='active' turns a concurrent second start into
// a conflict error instead of overlapping sessions.
func (r *SessionRepository) CreateSessionWithBlocks(ctx context.Context, session *models.SamplingSession, blocks []models.GridBlock) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	if session.SessionUUID == uuid.Nil {
		session.SessionUUID = uuid.New()
	}
	session.Status = models.SessionActive
	session.CreatedAt = time.Now()
	session.SampleSize = len(blocks)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin session transaction: %w", err)
	}
	defer tx.Rollback()

	sessionQuery := `
		INSERT INTO sampling_session (
			id, session_uuid, farm_id, user_id,
			resolution_m, sample_size, status, created_at
		) VALUES (
			:id, :session_uuid, :farm_id, :user_id,
			:resolution_m, :sample_size, :status, :created_at
		)`

	if _, err := tx.NamedExecContext(ctx, sessionQuery, session); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("conflict: farm %s already has an active session", session.FarmID)
		}
		return fmt.Errorf("failed to create sampling session: %w", err)
	}

	blockQuery := `
		INSERT INTO session_block (
			id, session_id, grid_block_id, order_index,
			geom, centroid, status, attempts, created_at
		) VALUES (
			:id, :session_id, :grid_block_id, :order_index,
			ST_GeomFromText(:geom), ST_GeomFromText(:centroid),
			:status, :attempts, :created_at
		)`

	session.Blocks = make([]models.SessionBlock, 0, len(blocks))
	for i, gridBlock := range blocks {
		block := models.SessionBlock{
			ID:          uuid.New(),
			SessionID:   session.ID,
			GridBlockID: gridBlock.ID,
			OrderIndex:  i,
			Geom:        gridBlock.Geom,
			Centroid:    gridBlock.Centroid,
			Status:      models.BlockPending,
			Attempts:    0,
			CreatedAt:   session.CreatedAt,
		}
		if _, err := tx.NamedExecContext(ctx, blockQuery, block); err != nil {
			return fmt.Errorf("failed to create session block %d: %w", i, err)
		}
		session.Blocks = append(session.Blocks, block)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session transaction: %w", err)
	}

	return nil
}

// ============================================================================
// SESSION READS
// ============================================================================

func (r *SessionRepository) GetByUUID(ctx context.Context, farmID, sessionUUID uuid.UUID) (*models.SamplingSession, error) {
	var session models.SamplingSession
	query := `
		SELECT id, session_uuid, farm_id, user_id, resolution_m,
		       sample_size, status, notes, report_id, created_at, completed_at
		FROM sampling_session
		WHERE farm_id = $1 AND session_uuid = $2`

	err := r.db.GetContext(ctx, &session, query, farmID, sessionUUID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("not_found: session not found: %s", sessionUUID)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	blocks, err := r.getBlocks(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	session.Blocks = blocks

	return &session, nil
}

func (r *SessionRepository) getBlocks(ctx context.Context, sessionID uuid.UUID) ([]models.SessionBlock, error) {
	query := `
		SELECT
			id, session_id, grid_block_id, order_index,
			status, attempts, image_id, created_at, completed_at,
			ST_AsBinary(geom) AS geom_wkb,
			ST_AsBinary(centroid) AS centroid_wkb
		FROM session_block
		WHERE session_id = $1
		ORDER BY order_index`

	var rows []sessionBlockRow
	if err := r.db.SelectContext(ctx, &rows, query, sessionID); err != nil {
		return nil, fmt.Errorf("failed to get session blocks: %w", err)
	}

	blocks := make([]models.SessionBlock, 0, len(rows))
	for _, row := range rows {
		block := row.SessionBlock
		if len(row.GeomWKB) > 0 {
			geomPoly, err := models.PolygonFromWKB(row.GeomWKB)
			if err != nil {
				return nil, fmt.Errorf("unmarshal session block geom: %w", err)
			}
			block.Geom = geomPoly
		}
		if len(row.CentroidWKB) > 0 {
			centroid, err := models.PointFromWKB(row.CentroidWKB)
			if err != nil {
				return nil, fmt.Errorf("unmarshal session block centroid: %w", err)
			}
			block.Centroid = centroid
		}
		blocks = append(blocks, block)
	}

	return blocks, nil
}

// ============================================================================
// BLOCK LINKING
// ============================================================================

// spatialCandidateQuery picks the first open block of the user's
// active session whose frozen cell geometry covers the device point.
// Blocks locked by concurrent transactions are skipped, so two uploads
// landing in different cells proceed in parallel and two racing for the
// same cell resolve to one winner.
const spatialCandidateQuery = `
	SELECT sb.id, sb.status, sb.attempts, sb.image_id
	FROM session_block sb
	JOIN sampling_session s ON s.id = sb.session_id
	WHERE s.farm_id = $1 AND s.user_id = $2 AND s.status = 'active'
	  AND sb.image_id IS NULL
	  AND sb.status IN ('pending', 'flagged')
	  AND ST_Covers(sb.geom, ST_SetSRID(ST_MakePoint($3, $4), 4326))
	ORDER BY sb.order_index
	FOR UPDATE OF sb SKIP LOCKED
	LIMIT 1`

// spatialContestedQuery reruns the candidate predicates without
// locking to distinguish "no open cell contains this point" from "a
// matching cell exists but a concurrent upload holds its lock". It must
// filter on exactly the same block conditions as spatialCandidateQuery:
// a looser recount would treat abandoned (failed) blocks as contested
// and report a permanent conflict where no match exists.
const spatialContestedQuery = `
	SELECT COUNT(*)
	FROM session_block sb
	JOIN sampling_session s ON s.id = sb.session_id
	WHERE s.farm_id = $1 AND s.user_id = $2 AND s.status = 'active'
	  AND sb.image_id IS NULL
	  AND sb.status IN ('pending', 'flagged')
	  AND ST_Covers(sb.geom, ST_SetSRID(ST_MakePoint($3, $4), 4326))`

// lockedBlock is the row image linking decides on while holding its lock.
type lockedBlock struct {
	ID       uuid.UUID          `db:"id"`
	Status   models.BlockStatus `db:"status"`
	Attempts int                `db:"attempts"`
	ImageID  *uuid.UUID         `db:"image_id"`
}

// LinkImage atomically attaches a verified image to exactly one open
// session block. With an explicit block id the claim is conditional on
// that block being unclaimed; explicit claims are authoritative and do
// not fall back. Without one, the candidate is the first open block of
// the user's active session whose frozen cell geometry covers the
// device position, selected with FOR UPDATE SKIP LOCKED so concurrent
// uploads racing for different cells never block each other.
//
// Every attempt, successful or not, bumps the block's attempt counter;
// a block that reaches attemptCap is abandoned as FAILED and never
// receives an image. Conflicts are returned as result codes, never as
// errors, and the caller's image row is never rolled back here.
func (r *SessionRepository) LinkImage(ctx context.Context, imageID, farmID uuid.UUID, userID string, verified bool, deviceLon, deviceLat float64, explicitBlockID *uuid.UUID, attemptCap int) (LinkOutcome, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return LinkOutcome{Code: models.SpatialLinkError}, fmt.Errorf("failed to begin link transaction: %w", err)
	}
	defer tx.Rollback()

	var outcome LinkOutcome
	if explicitBlockID != nil {
		outcome, err = r.linkExplicit(ctx, tx, imageID, farmID, userID, *explicitBlockID, verified, attemptCap)
	} else {
		outcome, err = r.linkSpatial(ctx, tx, imageID, farmID, userID, deviceLon, deviceLat, verified, attemptCap)
	}
	if err != nil {
		return outcome, err
	}

	if err := tx.Commit(); err != nil {
		return LinkOutcome{Code: models.SpatialLinkError}, fmt.Errorf("failed to commit link transaction: %w", err)
	}

	return outcome, nil
}

func (r *SessionRepository) linkExplicit(ctx context.Context, tx *sqlx.Tx, imageID, farmID uuid.UUID, userID string, blockID uuid.UUID, verified bool, attemptCap int) (LinkOutcome, error) {
	// Lock the claimed block row; racing claims on the same block
	// serialize here and the loser sees the winner's image id.
	query := `
		SELECT sb.id, sb.status, sb.attempts, sb.image_id
		FROM session_block sb
		JOIN sampling_session s ON s.id = sb.session_id
		WHERE sb.id = $1 AND s.farm_id = $2 AND s.user_id = $3 AND s.status = 'active'
		FOR UPDATE OF sb`

	var block lockedBlock
	err := tx.GetContext(ctx, &block, query, blockID, farmID, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			slog.Warn("explicit block not linkable", "block_id", blockID, "farm_id", farmID)
			return LinkOutcome{Code: models.ExplicitLinkError}, nil
		}
		return LinkOutcome{Code: models.ExplicitLinkError}, fmt.Errorf("failed to lock explicit block: %w", err)
	}

	return r.claimLocked(ctx, tx, &block, imageID, verified, attemptCap, true)
}

func (r *SessionRepository) linkSpatial(ctx context.Context, tx *sqlx.Tx, imageID, farmID uuid.UUID, userID string, deviceLon, deviceLat float64, verified bool, attemptCap int) (LinkOutcome, error) {
	var block lockedBlock
	err := tx.GetContext(ctx, &block, spatialCandidateQuery, farmID, userID, deviceLon, deviceLat)
	if err != nil {
		if err != sql.ErrNoRows {
			return LinkOutcome{Code: models.SpatialLinkError}, fmt.Errorf("failed to select candidate block: %w", err)
		}

		var contested int
		if err := tx.GetContext(ctx, &contested, spatialContestedQuery, farmID, userID, deviceLon, deviceLat); err != nil {
			return LinkOutcome{Code: models.SpatialLinkError}, fmt.Errorf("failed to count contested blocks: %w", err)
		}
		if contested > 0 {
			return LinkOutcome{Code: models.SpatialConflict}, nil
		}
		return LinkOutcome{Code: models.SpatialNoMatch}, nil
	}

	return r.claimLocked(ctx, tx, &block, imageID, verified, attemptCap, false)
}

// claimLocked finishes a link attempt against a block row the
// transaction already holds locked.
func (r *SessionRepository) claimLocked(ctx context.Context, tx *sqlx.Tx, block *lockedBlock, imageID uuid.UUID, verified bool, attemptCap int, explicit bool) (LinkOutcome, error) {
	linkedCode := models.LinkedAndVerified
	newStatus := models.BlockCompleted
	if !verified {
		linkedCode = models.LinkedButFlagged
		newStatus = models.BlockFlagged
	}

	// A retried complete-upload for the same image+block is a no-op
	// success, so caller-level retries after timeouts stay idempotent.
	if block.ImageID != nil {
		if *block.ImageID == imageID {
			id := block.ID
			return LinkOutcome{Code: linkedCode, BlockID: &id}, nil
		}
		if explicit {
			return LinkOutcome{Code: models.ExplicitBlockAlreadyTaken}, nil
		}
		return LinkOutcome{Code: models.SpatialConflict}, nil
	}

	errCode := models.SpatialLinkError
	if explicit {
		errCode = models.ExplicitLinkError
	}

	// Too many absorbed attempts: abandon the block instead of letting
	// it be retried forever. No image is attached, keeping the
	// image-implies-completed-or-flagged invariant intact.
	if block.Attempts+1 >= attemptCap {
		failQuery := `
			UPDATE session_block
			SET attempts = attempts + 1, status = 'failed'
			WHERE id = $1 AND image_id IS NULL`
		if _, err := tx.ExecContext(ctx, failQuery, block.ID); err != nil {
			return LinkOutcome{Code: errCode}, fmt.Errorf("failed to abandon block: %w", err)
		}
		slog.Warn("session block abandoned after attempt cap", "block_id", block.ID, "attempts", block.Attempts+1)
		return LinkOutcome{Code: errCode}, nil
	}

	claimQuery := `
		UPDATE session_block
		SET image_id = $1, attempts = attempts + 1, status = $2, completed_at = $3
		WHERE id = $4 AND image_id IS NULL`

	result, err := tx.ExecContext(ctx, claimQuery, imageID, newStatus, time.Now(), block.ID)
	if err != nil {
		return LinkOutcome{Code: errCode}, fmt.Errorf("failed to claim block: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return LinkOutcome{Code: errCode}, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// The row is locked by this transaction, so this only happens
		// if the claim raced something unexpected.
		if explicit {
			return LinkOutcome{Code: models.ExplicitBlockAlreadyTaken}, nil
		}
		return LinkOutcome{Code: models.SpatialConflict}, nil
	}

	id := block.ID
	return LinkOutcome{Code: linkedCode, BlockID: &id}, nil
}

// RecordFailedAttempt bumps the attempt counter of an explicit block
// when verification hard-rejected the upload before linking.
func (r *SessionRepository) RecordFailedAttempt(ctx context.Context, blockID uuid.UUID, attemptCap int) error {
	query := `
		UPDATE session_block
		SET attempts = attempts + 1,
		    status = CASE WHEN attempts + 1 >= $2 AND image_id IS NULL THEN 'failed' ELSE status END
		WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, blockID, attemptCap); err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	return nil
}

// ============================================================================
// SESSION LIFECYCLE
// ============================================================================

// Submit transitions an active session to completed and writes the
// survey report hand-off row in the same transaction. A session with
// zero completed blocks is rejected.
func (r *SessionRepository) Submit(ctx context.Context, farmID, sessionUUID uuid.UUID, userID string, notes *string) (*models.SurveyReport, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin submit transaction: %w", err)
	}
	defer tx.Rollback()

	var session models.SamplingSession
	lockQuery := `
		SELECT id, session_uuid, farm_id, user_id, resolution_m,
		       sample_size, status, notes, report_id, created_at, completed_at
		FROM sampling_session
		WHERE farm_id = $1 AND session_uuid = $2
		FOR UPDATE`

	err = tx.GetContext(ctx, &session, lockQuery, farmID, sessionUUID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("not_found: session not found: %s", sessionUUID)
		}
		return nil, fmt.Errorf("failed to lock session: %w", err)
	}

	if session.UserID != userID {
		return nil, fmt.Errorf("unauthorized: session belongs to another user")
	}
	if session.Status != models.SessionActive {
		return nil, fmt.Errorf("conflict: session is %s, only active sessions can be submitted", session.Status)
	}

	type evidenceRow struct {
		ImageID uuid.UUID          `db:"image_id"`
		Status  models.BlockStatus `db:"status"`
	}
	var evidence []evidenceRow
	evidenceQuery := `
		SELECT image_id, status FROM session_block
		WHERE session_id = $1 AND image_id IS NOT NULL
		ORDER BY order_index`
	if err := tx.SelectContext(ctx, &evidence, evidenceQuery, session.ID); err != nil {
		return nil, fmt.Errorf("failed to collect session evidence: %w", err)
	}

	completed, flagged := 0, 0
	imageIDs := make(models.UUIDSlice, 0, len(evidence))
	for _, row := range evidence {
		imageIDs = append(imageIDs, row.ImageID)
		switch row.Status {
		case models.BlockCompleted:
			completed++
		case models.BlockFlagged:
			flagged++
		}
	}

	if completed == 0 {
		return nil, fmt.Errorf("badrequest: session has no completed blocks, nothing to submit")
	}

	report := &models.SurveyReport{
		ID:              uuid.New(),
		SessionID:       session.ID,
		FarmID:          farmID,
		UserID:          userID,
		CompletedBlocks: completed,
		FlaggedBlocks:   flagged,
		ImageIDs:        imageIDs,
		Notes:           notes,
		CreatedAt:       time.Now(),
	}

	reportQuery := `
		INSERT INTO survey_report (
			id, session_id, farm_id, user_id,
			completed_blocks, flagged_blocks, image_ids, notes, created_at
		) VALUES (
			:id, :session_id, :farm_id, :user_id,
			:completed_blocks, :flagged_blocks, :image_ids, :notes, :created_at
		)`
	if _, err := tx.NamedExecContext(ctx, reportQuery, report); err != nil {
		return nil, fmt.Errorf("failed to create survey report: %w", err)
	}

	completeQuery := `
		UPDATE sampling_session
		SET status = 'completed', completed_at = $1, report_id = $2, notes = $3
		WHERE id = $4`
	if _, err := tx.ExecContext(ctx, completeQuery, time.Now(), report.ID, notes, session.ID); err != nil {
		return nil, fmt.Errorf("failed to complete session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit submit transaction: %w", err)
	}

	return report, nil
}

// Cancel transitions an active session to the terminal cancelled state.
func (r *SessionRepository) Cancel(ctx context.Context, farmID, sessionUUID uuid.UUID, userID string) error {
	query := `
		UPDATE sampling_session
		SET status = 'cancelled', completed_at = $1
		WHERE farm_id = $2 AND session_uuid = $3 AND user_id = $4 AND status = 'active'`

	err := utils.ExecWithCheck(ctx, r.db, query, utils.ExecUpdate, time.Now(), farmID, sessionUUID, userID)
	if errors.Is(err, utils.ErrNoRowsAffected) {
		return fmt.Errorf("conflict: no active session %s to cancel", sessionUUID)
	}
	if err != nil {
		return fmt.Errorf("failed to cancel session: %w", err)
	}

	return nil
}
