package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	dbm "wayfare/internal/models/db_models"
	"wayfare/internal/models/request_models"
	"wayfare/internal/models/response_models"
	"wayfare/internal/repositories"
	"wayfare/pkg/utils"
)

type fakeJobRepo struct {
	job *dbm.ItineraryJob

	created   *dbm.ItineraryJob
	createErr error

	claimResult bool
	claimErr    error
	claimCalls  int

	completedPayload string
	completeCalls    int

	failedReason  utils.FailureReason
	failedMessage string
	failCalls     int
}

func (f *fakeJobRepo) CreateJob(ctx context.Context, job *dbm.ItineraryJob) error {
	f.created = job
	return f.createErr
}

func (f *fakeJobRepo) GetJobById(ctx context.Context, jobId string) (*dbm.ItineraryJob, error) {
	return f.job, nil
}

func (f *fakeJobRepo) ClaimJob(ctx context.Context, jobId string, observedAttempts int) (bool, error) {
	f.claimCalls++
	return f.claimResult, f.claimErr
}

func (f *fakeJobRepo) CompleteJob(ctx context.Context, jobId string, resultPayload string) error {
	f.completeCalls++
	f.completedPayload = resultPayload
	return nil
}

func (f *fakeJobRepo) FailJob(ctx context.Context, jobId string, reason utils.FailureReason, message string) error {
	f.failCalls++
	f.failedReason = reason
	f.failedMessage = message
	return nil
}

type fakeQueue struct {
	ackedIDs     []string
	publishedIDs []string
	publishErr   error
}

func (f *fakeQueue) EnsureConsumerGroup(ctx context.Context) error { return nil }
func (f *fakeQueue) PublishJob(ctx context.Context, jobId string) error {
	f.publishedIDs = append(f.publishedIDs, jobId)
	return f.publishErr
}
func (f *fakeQueue) ReceiveJob(ctx context.Context) (*repositories.JobMessage, error) {
	return nil, nil
}
func (f *fakeQueue) AckJob(ctx context.Context, messageId string) error {
	f.ackedIDs = append(f.ackedIDs, messageId)
	return nil
}

type fakePlanner struct {
	planCalls int
	planFn    func(req request_models.ItineraryRequest) (*response_models.ItineraryResult, error)
}

func (f *fakePlanner) PlanItinerary(ctx context.Context, req request_models.ItineraryRequest) (*response_models.ItineraryResult, error) {
	f.planCalls++
	if f.planFn != nil {
		return f.planFn(req)
	}
	return &response_models.ItineraryResult{}, nil
}

func pendingJob() *dbm.ItineraryJob {
	job := &dbm.ItineraryJob{
		Status:             dbm.JobStatusProcessing,
		ExpiresAt:          time.Now().Add(30 * time.Minute),
		StartLat:           48.85,
		StartLon:           2.35,
		EndLat:             48.87,
		EndLon:             2.33,
		Mode:               "walking",
		MaxDurationMinutes: 120,
		Interests:          []string{"museums", "street food"},
		Language:           "en",
	}
	job.ID = uuid.New()
	return job
}

func message(jobID string) *repositories.JobMessage {
	return &repositories.JobMessage{
		MessageID: "1-0",
		Data:      `{"job_id":"` + jobID + `"}`,
	}
}

func newTestWorker(repo *fakeJobRepo, queue *fakeQueue, planner *fakePlanner) *PlanningWorker {
	return NewPlanningWorker(repo, queue, planner, zap.NewNop()).(*PlanningWorker)
}

func TestWorkerAcksMalformedMessage(t *testing.T) {
	repo := &fakeJobRepo{}
	queue := &fakeQueue{}
	planner := &fakePlanner{}
	worker := newTestWorker(repo, queue, planner)

	worker.handleMessage(context.Background(), &repositories.JobMessage{MessageID: "1-0", Data: "not json"})

	assert.Equal(t, []string{"1-0"}, queue.ackedIDs)
	assert.Equal(t, 0, planner.planCalls)
	assert.Equal(t, 0, repo.claimCalls)
}

func TestWorkerSkipsTerminalJobOnRedelivery(t *testing.T) {
	job := pendingJob()
	job.Status = dbm.JobStatusCompleted

	repo := &fakeJobRepo{job: job}
	queue := &fakeQueue{}
	planner := &fakePlanner{}
	worker := newTestWorker(repo, queue, planner)

	worker.handleMessage(context.Background(), message(job.ID.String()))

	assert.Equal(t, []string{"1-0"}, queue.ackedIDs)
	assert.Equal(t, 0, planner.planCalls)
	assert.Equal(t, 0, repo.claimCalls)
	assert.Equal(t, 0, repo.failCalls)
}

func TestWorkerDiscardsExpiredJobWithoutWrites(t *testing.T) {
	job := pendingJob()
	job.ExpiresAt = time.Now().Add(-time.Minute)

	repo := &fakeJobRepo{job: job}
	queue := &fakeQueue{}
	planner := &fakePlanner{}
	worker := newTestWorker(repo, queue, planner)

	worker.handleMessage(context.Background(), message(job.ID.String()))

	// Expired jobs are acked and discarded with no writes of any kind.
	assert.Equal(t, []string{"1-0"}, queue.ackedIDs)
	assert.Equal(t, 0, planner.planCalls)
	assert.Equal(t, 0, repo.claimCalls)
	assert.Equal(t, 0, repo.failCalls)
	assert.Equal(t, 0, repo.completeCalls)
}

func TestWorkerSkipsWhenClaimLost(t *testing.T) {
	repo := &fakeJobRepo{job: pendingJob(), claimResult: false}
	queue := &fakeQueue{}
	planner := &fakePlanner{}
	worker := newTestWorker(repo, queue, planner)

	worker.handleMessage(context.Background(), message(repo.job.ID.String()))

	assert.Equal(t, []string{"1-0"}, queue.ackedIDs)
	assert.Equal(t, 1, repo.claimCalls)
	assert.Equal(t, 0, planner.planCalls)
}

func TestWorkerPersistsClassifiedFailure(t *testing.T) {
	repo := &fakeJobRepo{job: pendingJob(), claimResult: true}
	queue := &fakeQueue{}
	planner := &fakePlanner{
		planFn: func(req request_models.ItineraryRequest) (*response_models.ItineraryResult, error) {
			return nil, utils.NewPlanningError(utils.ReasonNoFeasibleStops, "no candidate fits")
		},
	}
	worker := newTestWorker(repo, queue, planner)

	worker.handleMessage(context.Background(), message(repo.job.ID.String()))

	assert.Equal(t, []string{"1-0"}, queue.ackedIDs)
	assert.Equal(t, 1, repo.failCalls)
	assert.Equal(t, utils.ReasonNoFeasibleStops, repo.failedReason)
	assert.Equal(t, "no candidate fits", repo.failedMessage)
	assert.Equal(t, 0, repo.completeCalls)
}

func TestWorkerMapsUnclassifiedErrorToInternal(t *testing.T) {
	repo := &fakeJobRepo{job: pendingJob(), claimResult: true}
	queue := &fakeQueue{}
	planner := &fakePlanner{
		planFn: func(req request_models.ItineraryRequest) (*response_models.ItineraryResult, error) {
			return nil, assert.AnError
		},
	}
	worker := newTestWorker(repo, queue, planner)

	worker.handleMessage(context.Background(), message(repo.job.ID.String()))

	assert.Equal(t, 1, repo.failCalls)
	assert.Equal(t, utils.ReasonInternalError, repo.failedReason)
}

func TestWorkerCompletesSuccessfulJob(t *testing.T) {
	repo := &fakeJobRepo{job: pendingJob(), claimResult: true}
	queue := &fakeQueue{}
	planner := &fakePlanner{
		planFn: func(req request_models.ItineraryRequest) (*response_models.ItineraryResult, error) {
			// The planner receives the snapshot from the job record.
			assert.Equal(t, "walking", req.Mode)
			assert.Equal(t, 120, req.MaxDurationMinutes)
			assert.Equal(t, []string{"museums", "street food"}, req.InterestTerms())

			return &response_models.ItineraryResult{
				Summary: response_models.ItinerarySummary{Mode: "walking", StopCount: 1},
			}, nil
		},
	}
	worker := newTestWorker(repo, queue, planner)

	worker.handleMessage(context.Background(), message(repo.job.ID.String()))

	assert.Equal(t, []string{"1-0"}, queue.ackedIDs)
	assert.Equal(t, 1, repo.completeCalls)
	assert.Equal(t, 0, repo.failCalls)
	require.Contains(t, repo.completedPayload, `"stop_count":1`)
}
