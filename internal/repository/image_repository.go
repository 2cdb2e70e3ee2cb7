package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"survey-service/internal/models"
	"survey-service/utils"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type ImageRepository struct {
	db *sqlx.DB
}

func NewImageRepository(db *sqlx.DB) *ImageRepository {
	return &ImageRepository{db: db}
}

type imageRow struct {
	models.Image
	GeomWKB []byte `db:"geom_wkb"`
}

// CreateOrGet inserts the image row, or returns the existing one when
// the client retried the same logical capture. The unique constraint
// on (owner_id, local_upload_id) makes retried complete-upload calls
// resolve to one row instead of duplicating the capture.
func (r *ImageRepository) CreateOrGet(ctx context.Context, image *models.Image) (created bool, err error) {
	if image.ID == uuid.Nil {
		image.ID = uuid.New()
	}
	image.CreatedAt = time.Now()

	query := `
		INSERT INTO image (
			id, local_upload_id, owner_id, farm_id, object_key, bucket,
			exif_lat, exif_lon, exif_timestamp,
			capture_lat, capture_lon, capture_time,
			geom,
			verification_status, verification_reason, verification_distance_m,
			created_at
		) VALUES (
			:id, :local_upload_id, :owner_id, :farm_id, :object_key, :bucket,
			:exif_lat, :exif_lon, :exif_timestamp,
			:capture_lat, :capture_lon, :capture_time,
			ST_GeomFromText(:geom),
			:verification_status, :verification_reason, :verification_distance_m,
			:created_at
		)
		ON CONFLICT (owner_id, local_upload_id) DO NOTHING`

	result, err := r.db.NamedExecContext(ctx, query, image)
	if err != nil {
		return false, fmt.Errorf("failed to create image: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return true, nil
	}

	existing, err := r.GetByLocalUploadID(ctx, image.OwnerID, image.LocalUploadID)
	if err != nil {
		return false, err
	}
	*image = *existing
	return false, nil
}

func (r *ImageRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Image, error) {
	query := `
		SELECT
			id, local_upload_id, owner_id, farm_id, object_key, bucket,
			exif_lat, exif_lon, exif_timestamp,
			capture_lat, capture_lon, capture_time,
			session_block_id,
			verification_status, verification_reason, verification_distance_m,
			created_at,
			ST_AsBinary(geom) AS geom_wkb
		FROM image
		WHERE id = $1`

	var row imageRow
	err := r.db.GetContext(ctx, &row, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("not_found: image not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get image: %w", err)
	}

	return unmarshalImage(&row)
}

func (r *ImageRepository) GetByLocalUploadID(ctx context.Context, ownerID, localUploadID string) (*models.Image, error) {
	query := `
		SELECT
			id, local_upload_id, owner_id, farm_id, object_key, bucket,
			exif_lat, exif_lon, exif_timestamp,
			capture_lat, capture_lon, capture_time,
			session_block_id,
			verification_status, verification_reason, verification_distance_m,
			created_at,
			ST_AsBinary(geom) AS geom_wkb
		FROM image
		WHERE owner_id = $1 AND local_upload_id = $2`

	var row imageRow
	err := r.db.GetContext(ctx, &row, query, ownerID, localUploadID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("not_found: image not found for upload %s", localUploadID)
		}
		return nil, fmt.Errorf("failed to get image by upload id: %w", err)
	}

	return unmarshalImage(&row)
}

// SetSessionBlock records the one-time back-link from the image to the
// block that absorbed it.
func (r *ImageRepository) SetSessionBlock(ctx context.Context, imageID, blockID uuid.UUID) error {
	query := `
		UPDATE image
		SET session_block_id = $1
		WHERE id = $2 AND (session_block_id IS NULL OR session_block_id = $1)`

	err := utils.ExecWithCheck(ctx, r.db, query, utils.ExecUpdate, blockID, imageID)
	if errors.Is(err, utils.ErrNoRowsAffected) {
		return fmt.Errorf("conflict: image %s is already linked to another block", imageID)
	}
	if err != nil {
		return fmt.Errorf("failed to set image session block: %w", err)
	}

	return nil
}

func unmarshalImage(row *imageRow) (*models.Image, error) {
	image := row.Image
	if len(row.GeomWKB) > 0 {
		point, err := models.PointFromWKB(row.GeomWKB)
		if err != nil {
			return nil, fmt.Errorf("unmarshal image geom: %w", err)
		}
		image.Geom = point
	}
	return &image, nil
}
