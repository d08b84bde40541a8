package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	dbm "wayfare/internal/models/db_models"
	"wayfare/pkg/utils"
)

type JobRepository interface {
	CreateJob(ctx context.Context, job *dbm.ItineraryJob) error
	// GetJobById returns (nil, nil) when no record exists.
	GetJobById(ctx context.Context, jobId string) (*dbm.ItineraryJob, error)
	// ClaimJob conditionally bumps processing_attempts from the observed
	// value. Returns false when another worker already claimed the job.
	ClaimJob(ctx context.Context, jobId string, observedAttempts int) (bool, error)
	CompleteJob(ctx context.Context, jobId string, resultPayload string) error
	FailJob(ctx context.Context, jobId string, reason utils.FailureReason, message string) error
}

type jobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepository{db: db}
}

func (r *jobRepository) CreateJob(ctx context.Context, job *dbm.ItineraryJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *jobRepository) GetJobById(ctx context.Context, jobId string) (*dbm.ItineraryJob, error) {
	var job dbm.ItineraryJob
	err := r.db.WithContext(ctx).Where("id = ?", jobId).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *jobRepository) ClaimJob(ctx context.Context, jobId string, observedAttempts int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&dbm.ItineraryJob{}).
		Where("id = ? AND status = ? AND processing_attempts = ?",
			jobId, dbm.JobStatusProcessing, observedAttempts).
		Update("processing_attempts", observedAttempts+1)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *jobRepository) CompleteJob(ctx context.Context, jobId string, resultPayload string) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&dbm.ItineraryJob{}).
		Where("id = ?", jobId).
		Updates(map[string]interface{}{
			"status":         dbm.JobStatusCompleted,
			"result_payload": resultPayload,
			"completed_at":   now,
		}).Error
}

func (r *jobRepository) FailJob(ctx context.Context, jobId string, reason utils.FailureReason, message string) error {
	now := time.Now()
	reasonStr := string(reason)
	return r.db.WithContext(ctx).
		Model(&dbm.ItineraryJob{}).
		Where("id = ?", jobId).
		Updates(map[string]interface{}{
			"status":         dbm.JobStatusFailed,
			"failure_reason": reasonStr,
			"error_message":  message,
			"completed_at":   now,
		}).Error
}
