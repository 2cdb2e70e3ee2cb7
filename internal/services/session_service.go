package services

import (
	"context"
	"fmt"
	"log/slog"

	"survey-service/internal/config"
	"survey-service/internal/models"
	"survey-service/internal/repository"

	"github.com/google/uuid"
)

// EventPublisher is the slice of the event layer the session and
// upload pipelines need. Nil-able so the service degrades to local-only
// operation when the broker is down.
type EventPublisher interface {
	PublishSessionCompleted(ctx context.Context, farmID uuid.UUID, userID string, sessionUUID, reportID uuid.UUID) error
	PublishPhotoFlagged(ctx context.Context, farmID uuid.UUID, userID string, imageID uuid.UUID, reason string) error
}

// SessionService allocates sampling sessions and drives their
// lifecycle: active -> completed | cancelled.
type SessionService struct {
	farmRepo    *repository.FarmRepository
	gridRepo    *repository.GridRepository
	sessionRepo *repository.SessionRepository
	gridService *GridService
	publisher   EventPublisher
	cfg         config.SamplingConfig
}

func NewSessionService(
	farmRepo *repository.FarmRepository,
	gridRepo *repository.GridRepository,
	sessionRepo *repository.SessionRepository,
	gridService *GridService,
	publisher EventPublisher,
	cfg config.SamplingConfig,
) *SessionService {
	return &SessionService{
		farmRepo:    farmRepo,
		gridRepo:    gridRepo,
		sessionRepo: sessionRepo,
		gridService: gridService,
		publisher:   publisher,
		cfg:         cfg,
	}
}

// StartSession builds the farm's grid if missing, samples cells at
// random without replacement and persists session plus blocks in one
// transaction. Fewer cells than the sample size yields all of them;
// zero cells is a hard failure, never a silently empty session.
func (s *SessionService) StartSession(ctx context.Context, userID string, farmID uuid.UUID, req *models.StartSessionRequest) (*models.SessionResponse, error) {
	farm, err := s.farmRepo.GetByID(ctx, farmID)
	if err != nil {
		return nil, err
	}
	if farm.OwnerID != userID {
		return nil, fmt.Errorf("unauthorized: farm belongs to another user")
	}

	resolution := farm.GridResolutionM
	if req != nil && req.ResolutionOverrideM != nil && *req.ResolutionOverrideM > 0 {
		resolution = *req.ResolutionOverrideM
	}
	if resolution <= 0 {
		resolution = s.cfg.GridResolutionM
	}

	sampleSize := s.cfg.SessionSampleSize
	if req != nil && req.SampleSize != nil && *req.SampleSize > 0 {
		sampleSize = *req.SampleSize
	}

	if _, err := s.gridService.EnsureGrid(ctx, farm, resolution); err != nil {
		return nil, err
	}

	blocks, err := s.gridRepo.SelectRandomBlocks(ctx, farm.ID, farm.GridVersion, sampleSize)
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("empty_grid: farm %s has no grid cells to sample", farm.ID)
	}

	session := &models.SamplingSession{
		FarmID:      farm.ID,
		UserID:      userID,
		ResolutionM: resolution,
	}
	if err := s.sessionRepo.CreateSessionWithBlocks(ctx, session, blocks); err != nil {
		return nil, err
	}

	slog.Info("sampling session started", "farm_id", farm.ID, "session_uuid", session.SessionUUID, "blocks", len(session.Blocks))
	return models.NewSessionResponse(session), nil
}

// GetSession returns the session with its block states.
func (s *SessionService) GetSession(ctx context.Context, userID string, farmID, sessionUUID uuid.UUID) (*models.SessionResponse, error) {
	session, err := s.sessionRepo.GetByUUID(ctx, farmID, sessionUUID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, fmt.Errorf("unauthorized: session belongs to another user")
	}
	return models.NewSessionResponse(session), nil
}

// SubmitSession completes the session and hands the linked evidence to
// the report collaborator.
func (s *SessionService) SubmitSession(ctx context.Context, userID string, farmID, sessionUUID uuid.UUID, req *models.SubmitSessionRequest) (*models.SubmitSessionResponse, error) {
	var notes *string
	if req != nil {
		notes = req.Notes
	}

	report, err := s.sessionRepo.Submit(ctx, farmID, sessionUUID, userID, notes)
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		if err := s.publisher.PublishSessionCompleted(ctx, farmID, userID, sessionUUID, report.ID); err != nil {
			slog.Error("failed to publish session completed event", "session_uuid", sessionUUID, "error", err)
		}
	}

	return &models.SubmitSessionResponse{
		ReportID: report.ID,
		Status:   models.SessionCompleted,
	}, nil
}

// CancelSession transitions an active session to cancelled.
func (s *SessionService) CancelSession(ctx context.Context, userID string, farmID, sessionUUID uuid.UUID) error {
	return s.sessionRepo.Cancel(ctx, farmID, sessionUUID, userID)
}
