package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"wayfare/internal/config"
	dbm "wayfare/internal/models/db_models"
	"wayfare/internal/models/request_models"
	"wayfare/internal/models/response_models"
	"wayfare/internal/providers"
	"wayfare/internal/repositories"
	"wayfare/pkg/utils"
)

type ItineraryJobServiceInterface interface {
	SubmitItineraryJob(ctx context.Context, req request_models.ItineraryRequest) (*response_models.SubmitJobResponse, error)
	GetJobById(ctx context.Context, jobId string) (*response_models.ItineraryJobResponse, error)
}

type ItineraryJobService struct {
	jobs   repositories.JobRepository
	queue  repositories.JobQueueRepository
	jobTTL time.Duration
	logger *zap.Logger
}

func NewItineraryJobService(
	jobs repositories.JobRepository,
	queue repositories.JobQueueRepository,
	cfg config.QueueConfig,
	logger *zap.Logger,
) ItineraryJobServiceInterface {
	return &ItineraryJobService{
		jobs:   jobs,
		queue:  queue,
		jobTTL: cfg.JobTTL,
		logger: logger,
	}
}

// SubmitItineraryJob persists the request snapshot and enqueues the job id.
// The row is created before the publish so a crash between the two leaves an
// orphaned row that simply expires, never a queued id without a row.
func (s *ItineraryJobService) SubmitItineraryJob(ctx context.Context, req request_models.ItineraryRequest) (*response_models.SubmitJobResponse, error) {
	if _, err := providers.ParseMode(req.Mode); err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrInvalidInput, err)
	}
	if req.MaxDurationMinutes <= 0 {
		return nil, fmt.Errorf("%w: max_duration_minutes must be positive", utils.ErrInvalidInput)
	}
	if len(req.InterestTerms()) == 0 {
		return nil, fmt.Errorf("%w: at least one interest is required", utils.ErrInvalidInput)
	}

	job := &dbm.ItineraryJob{
		Status:             dbm.JobStatusProcessing,
		ExpiresAt:          time.Now().Add(s.jobTTL),
		StartLat:           req.StartLat,
		StartLon:           req.StartLon,
		EndLat:             req.EndLat,
		EndLon:             req.EndLon,
		Mode:               req.Mode,
		MaxDurationMinutes: req.MaxDurationMinutes,
		Interests:          req.InterestTerms(),
		Language:           req.Language,
	}
	if err := s.jobs.CreateJob(ctx, job); err != nil {
		s.logger.Error("Failed to create job record", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}

	jobID := job.ID.String()
	if err := s.queue.PublishJob(ctx, jobID); err != nil {
		s.logger.Error("Failed to enqueue job", zap.String("job_id", jobID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", utils.ErrQueueError, err)
	}

	s.logger.Info("Job submitted",
		zap.String("job_id", jobID),
		zap.String("mode", job.Mode),
		zap.Int("max_duration_minutes", job.MaxDurationMinutes))
	return &response_models.SubmitJobResponse{JobID: jobID}, nil
}

func (s *ItineraryJobService) GetJobById(ctx context.Context, jobId string) (*response_models.ItineraryJobResponse, error) {
	job, err := s.jobs.GetJobById(ctx, jobId)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if job == nil {
		return nil, utils.ErrJobNotFound
	}

	resp := &response_models.ItineraryJobResponse{
		JobID:              job.ID.String(),
		Status:             string(job.Status),
		ErrorMessage:       job.ErrorMessage,
		ProcessingAttempts: job.ProcessingAttempts,
		CreatedAt:          utils.FormatRFC3339(time.Unix(job.CreatedAt, 0).UTC()),
		ExpiresAt:          utils.FormatRFC3339(job.ExpiresAt),
	}
	if job.FailureReason != nil {
		resp.FailureReason = *job.FailureReason
	}
	if job.CompletedAt != nil {
		resp.CompletedAt = utils.FormatRFC3339(*job.CompletedAt)
	}

	if job.Status == dbm.JobStatusCompleted && job.ResultPayload != nil {
		var result response_models.ItineraryResult
		if err := json.Unmarshal([]byte(*job.ResultPayload), &result); err != nil {
			s.logger.Error("Stored result payload is not valid JSON",
				zap.String("job_id", job.ID.String()), zap.Error(err))
			return nil, fmt.Errorf("%w: corrupt result payload", utils.ErrDatabaseError)
		}
		resp.Result = &result
	}
	return resp, nil
}
