package db_models

import (
	"time"

	"github.com/lib/pq"
	"wayfare/pkg/utils"
)

type JobStatus string

const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// ItineraryJob is the single durable record tracking one planning request.
// The request is snapshotted onto the row so a worker needs nothing but the
// job id from the queue.
type ItineraryJob struct {
	BaseModel
	Status             JobStatus `gorm:"type:varchar(16);index"`
	FailureReason      *string   `gorm:"type:varchar(32)"`
	ErrorMessage       string
	ProcessingAttempts int
	ExpiresAt          time.Time
	CompletedAt        *time.Time

	StartLat           float64
	StartLon           float64
	EndLat             float64
	EndLon             float64
	Mode               string `gorm:"type:varchar(16)"`
	MaxDurationMinutes int
	Interests          pq.StringArray `gorm:"type:text[]"`
	Language           string         `gorm:"type:varchar(16)"`

	// Serialized ItineraryResult, set only on completion.
	ResultPayload *string `gorm:"type:jsonb"`
}

func (j *ItineraryJob) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

func (j *ItineraryJob) IsExpired(now time.Time) bool {
	return now.After(j.ExpiresAt)
}

func (j *ItineraryJob) StartPoint() utils.LocationPoint {
	return utils.LocationPoint{Lat: j.StartLat, Lon: j.StartLon}
}

func (j *ItineraryJob) EndPoint() utils.LocationPoint {
	return utils.LocationPoint{Lat: j.EndLat, Lon: j.EndLon}
}
