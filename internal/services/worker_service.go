package services

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	dbm "wayfare/internal/models/db_models"
	"wayfare/internal/models/request_models"
	"wayfare/internal/repositories"
	"wayfare/pkg/utils"
)

type PlanningWorkerInterface interface {
	Start(ctx context.Context) error
	Stop()
}

// PlanningWorker consumes job ids from the queue and drives each job to a
// terminal state. Every delivery is acknowledged exactly once, whatever the
// outcome; there is no queue-level retry. Redeliveries of already-terminal
// or expired jobs are acked without side effects, and the conditional claim
// keeps two workers from planning the same job.
type PlanningWorker struct {
	jobs    repositories.JobRepository
	queue   repositories.JobQueueRepository
	planner ItineraryPlannerInterface
	logger  *zap.Logger

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewPlanningWorker(
	jobs repositories.JobRepository,
	queue repositories.JobQueueRepository,
	planner ItineraryPlannerInterface,
	logger *zap.Logger,
) PlanningWorkerInterface {
	return &PlanningWorker{
		jobs:     jobs,
		queue:    queue,
		planner:  planner,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

func (w *PlanningWorker) Start(ctx context.Context) error {
	if err := w.queue.EnsureConsumerGroup(ctx); err != nil {
		return err
	}

	w.wg.Add(1)
	go w.run(ctx)
	w.logger.Info("Planning worker started")
	return nil
}

func (w *PlanningWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopChan)
	})
	w.wg.Wait()
	w.logger.Info("Planning worker stopped")
}

func (w *PlanningWorker) run(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		default:
		}

		msg, err := w.queue.ReceiveJob(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("Queue read failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		if msg == nil {
			continue
		}

		w.handleMessage(ctx, msg)
	}
}

func (w *PlanningWorker) handleMessage(ctx context.Context, msg *repositories.JobMessage) {
	defer w.ack(ctx, msg.MessageID)

	jobID, err := msg.JobID()
	if err != nil {
		w.logger.Warn("Discarding malformed queue message",
			zap.String("message_id", msg.MessageID), zap.Error(err))
		return
	}

	job, err := w.jobs.GetJobById(ctx, jobID)
	if err != nil {
		w.logger.Error("Job lookup failed", zap.String("job_id", jobID), zap.Error(err))
		return
	}
	if job == nil {
		w.logger.Warn("Queued job has no record", zap.String("job_id", jobID))
		return
	}
	if job.IsTerminal() {
		w.logger.Debug("Skipping already-terminal job", zap.String("job_id", jobID))
		return
	}
	if job.IsExpired(time.Now()) {
		w.logger.Warn("Discarding expired job", zap.String("job_id", jobID))
		return
	}

	claimed, err := w.jobs.ClaimJob(ctx, jobID, job.ProcessingAttempts)
	if err != nil {
		w.logger.Error("Job claim failed", zap.String("job_id", jobID), zap.Error(err))
		return
	}
	if !claimed {
		w.logger.Debug("Job claimed by another worker", zap.String("job_id", jobID))
		return
	}

	w.processJob(ctx, job)
}

func (w *PlanningWorker) processJob(ctx context.Context, job *dbm.ItineraryJob) {
	jobID := job.ID.String()
	started := time.Now()

	req := request_models.ItineraryRequest{
		StartLat:           job.StartLat,
		StartLon:           job.StartLon,
		EndLat:             job.EndLat,
		EndLon:             job.EndLon,
		Mode:               job.Mode,
		MaxDurationMinutes: job.MaxDurationMinutes,
		Interests:          strings.Join(job.Interests, ", "),
		Language:           job.Language,
	}

	result, err := w.planner.PlanItinerary(ctx, req)
	if err != nil {
		if pe, ok := utils.AsPlanningError(err); ok {
			w.logger.Info("Planning failed",
				zap.String("job_id", jobID),
				zap.String("reason", string(pe.Reason)),
				zap.String("message", pe.Message))
			w.failJob(ctx, jobID, pe.Reason, pe.Message)
			return
		}
		w.logger.Error("Planning failed with unclassified error",
			zap.String("job_id", jobID), zap.Error(err))
		w.failJob(ctx, jobID, utils.ReasonInternalError, err.Error())
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		w.logger.Error("Result serialization failed",
			zap.String("job_id", jobID), zap.Error(err))
		w.failJob(ctx, jobID, utils.ReasonInternalError, "result serialization failed")
		return
	}

	if err := w.jobs.CompleteJob(ctx, jobID, string(payload)); err != nil {
		w.logger.Error("Failed to persist completed job",
			zap.String("job_id", jobID), zap.Error(err))
		return
	}

	w.logger.Info("Job completed",
		zap.String("job_id", jobID),
		zap.Int("stops", len(result.Stops)),
		zap.Duration("elapsed", time.Since(started)))
}

func (w *PlanningWorker) failJob(ctx context.Context, jobID string, reason utils.FailureReason, message string) {
	if err := w.jobs.FailJob(ctx, jobID, reason, message); err != nil {
		w.logger.Error("Failed to persist job failure",
			zap.String("job_id", jobID), zap.Error(err))
	}
}

func (w *PlanningWorker) ack(ctx context.Context, messageID string) {
	if err := w.queue.AckJob(ctx, messageID); err != nil {
		w.logger.Error("Failed to ack message",
			zap.String("message_id", messageID), zap.Error(err))
	}
}
