package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"survey-service/internal/config"
	"survey-service/internal/models"
	"survey-service/internal/repository"
	"survey-service/internal/storage"

	"github.com/google/uuid"
)

// uploadURLExpiry bounds how long an issued presigned PUT stays usable.
const uploadURLExpiry = 15 * time.Minute

// PhotoStorage is the slice of object storage the upload pipeline uses.
type PhotoStorage interface {
	IssueUploadURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error)
	ObjectExists(ctx context.Context, objectKey string) (bool, error)
	FetchCaptureMetadata(ctx context.Context, objectKey string) (*storage.EmbeddedMetadata, error)
}

// UploadService runs the two-step photo intake: issue a presigned PUT,
// then on completion verify the stored photo's embedded metadata
// against the device report and link it to a session block.
type UploadService struct {
	farmRepo    *repository.FarmRepository
	imageRepo   *repository.ImageRepository
	sessionRepo *repository.SessionRepository
	store       PhotoStorage
	verifier    *CaptureVerifier
	publisher   EventPublisher
	cfg         config.SamplingConfig
}

func NewUploadService(
	farmRepo *repository.FarmRepository,
	imageRepo *repository.ImageRepository,
	sessionRepo *repository.SessionRepository,
	store PhotoStorage,
	verifier *CaptureVerifier,
	publisher EventPublisher,
	cfg config.SamplingConfig,
) *UploadService {
	return &UploadService{
		farmRepo:    farmRepo,
		imageRepo:   imageRepo,
		sessionRepo: sessionRepo,
		store:       store,
		verifier:    verifier,
		publisher:   publisher,
		cfg:         cfg,
	}
}

// IssueUpload hands the client a presigned PUT URL for one photo. The
// object key is derived from the farm and the client's upload id, so a
// retried issue call points at the same object.
func (s *UploadService) IssueUpload(ctx context.Context, userID string, req *models.IssueUploadRequest) (*models.IssueUploadResponse, error) {
	if req.LocalUploadID == "" {
		return nil, fmt.Errorf("badrequest: local_upload_id is required")
	}
	if strings.ContainsAny(req.LocalUploadID, "/\\") {
		return nil, fmt.Errorf("badrequest: local_upload_id must not contain path separators")
	}
	if req.FarmID == uuid.Nil {
		return nil, fmt.Errorf("badrequest: farm_id is required")
	}

	farm, err := s.farmRepo.GetByID(ctx, req.FarmID)
	if err != nil {
		return nil, err
	}
	if farm.OwnerID != userID {
		return nil, fmt.Errorf("unauthorized: farm belongs to another user")
	}

	objectKey := fmt.Sprintf("farms/%s/%s.jpg", farm.ID, req.LocalUploadID)
	uploadURL, err := s.store.IssueUploadURL(ctx, objectKey, uploadURLExpiry)
	if err != nil {
		return nil, err
	}

	return &models.IssueUploadResponse{
		UploadURL: uploadURL,
		Bucket:    storage.Storage.FieldPhotos,
		ObjectKey: objectKey,
		ExpiresAt: time.Now().Add(uploadURLExpiry),
	}, nil
}

// CompleteUpload finalizes an uploaded photo: confirm the object landed,
// extract its embedded metadata, verify it against the device report,
// persist the image row and attach it to a session block. Flagged
// photos still complete; only structurally unusable uploads fail.
// Retries with the same local_upload_id resolve to the original image.
func (s *UploadService) CompleteUpload(ctx context.Context, userID string, req *models.CompleteUploadRequest) (*models.CompleteUploadResponse, error) {
	if req.LocalUploadID == "" {
		return nil, fmt.Errorf("badrequest: local_upload_id is required")
	}
	if req.ObjectKey == "" {
		return nil, fmt.Errorf("badrequest: object_key is required")
	}
	if req.CaptureLat == nil || req.CaptureLon == nil {
		return nil, fmt.Errorf("badrequest: device capture position is required")
	}

	deviceTime, err := ParseCaptureTimestamp(req.CaptureTime)
	if err != nil {
		return nil, err
	}

	farm, err := s.farmRepo.GetByID(ctx, req.FarmID)
	if err != nil {
		return nil, err
	}
	if farm.OwnerID != userID {
		return nil, fmt.Errorf("unauthorized: farm belongs to another user")
	}

	exists, err := s.store.ObjectExists(ctx, req.ObjectKey)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("badrequest: object %s was never uploaded", req.ObjectKey)
	}

	meta, err := s.store.FetchCaptureMetadata(ctx, req.ObjectKey)
	if err != nil {
		return nil, err
	}

	outcome, err := s.verifier.Verify(VerifyInput{
		DeviceLat:        *req.CaptureLat,
		DeviceLon:        *req.CaptureLon,
		DeviceTime:       deviceTime,
		ExifLat:          meta.Lat,
		ExifLon:          meta.Lon,
		ExifTimestampRaw: meta.RawTimestamp,
		FarmBoundary:     farm.Boundary,
	})
	if err != nil {
		// A hard rejection still consumes an attempt on the block the
		// client was aiming at, so unusable photos cannot be retried
		// against the same cell forever.
		if req.ExplicitBlockID != nil {
			if recErr := s.sessionRepo.RecordFailedAttempt(ctx, *req.ExplicitBlockID, s.cfg.BlockAttemptCap); recErr != nil {
				slog.Error("failed to record rejected attempt", "block_id", *req.ExplicitBlockID, "error", recErr)
			}
		}
		return nil, err
	}

	verified := outcome.Status == models.VerificationVerified
	reason := outcome.Reason

	image := &models.Image{
		LocalUploadID:         req.LocalUploadID,
		OwnerID:               userID,
		FarmID:                farm.ID,
		ObjectKey:             req.ObjectKey,
		Bucket:                storage.Storage.FieldPhotos,
		ExifLat:               meta.Lat,
		ExifLon:               meta.Lon,
		ExifTimestamp:         &outcome.ExifTime,
		CaptureLat:            req.CaptureLat,
		CaptureLon:            req.CaptureLon,
		CaptureTime:           &deviceTime,
		Geom:                  models.NewGeoJSONPoint(*req.CaptureLon, *req.CaptureLat),
		VerificationStatus:    &outcome.Status,
		VerificationReason:    &reason,
		VerificationDistanceM: &outcome.DistanceMeters,
	}

	created, err := s.imageRepo.CreateOrGet(ctx, image)
	if err != nil {
		return nil, err
	}

	// Retried completion of an already-linked capture: report the
	// original outcome instead of re-running the linker.
	if !created && image.SessionBlockID != nil {
		return completeResponseFromImage(image), nil
	}

	linkOutcome, err := s.sessionRepo.LinkImage(
		ctx, image.ID, farm.ID, userID,
		verified, *req.CaptureLon, *req.CaptureLat,
		req.ExplicitBlockID, s.cfg.BlockAttemptCap,
	)
	if err != nil {
		return nil, err
	}

	if linkOutcome.BlockID != nil {
		if err := s.imageRepo.SetSessionBlock(ctx, image.ID, *linkOutcome.BlockID); err != nil {
			slog.Error("failed to back-link image to block", "image_id", image.ID, "block_id", *linkOutcome.BlockID, "error", err)
		}
	}

	if outcome.Status == models.VerificationFlagged && s.publisher != nil {
		if err := s.publisher.PublishPhotoFlagged(ctx, farm.ID, userID, image.ID, outcome.Reason); err != nil {
			slog.Error("failed to publish photo flagged event", "image_id", image.ID, "error", err)
		}
	}

	return &models.CompleteUploadResponse{
		ImageID:              image.ID,
		Verification:         outcome.Status,
		VerificationReason:   outcome.Reason,
		DistanceMeters:       outcome.DistanceMeters,
		LinkCode:             linkOutcome.Code,
		LinkedSessionBlockID: linkOutcome.BlockID,
	}, nil
}

func completeResponseFromImage(image *models.Image) *models.CompleteUploadResponse {
	resp := &models.CompleteUploadResponse{
		ImageID:              image.ID,
		LinkedSessionBlockID: image.SessionBlockID,
		LinkCode:             models.LinkedAndVerified,
	}
	if image.VerificationStatus != nil {
		resp.Verification = *image.VerificationStatus
		if *image.VerificationStatus == models.VerificationFlagged {
			resp.LinkCode = models.LinkedButFlagged
		}
	}
	if image.VerificationReason != nil {
		resp.VerificationReason = *image.VerificationReason
	}
	if image.VerificationDistanceM != nil {
		resp.DistanceMeters = *image.VerificationDistanceM
	}
	return resp
}
