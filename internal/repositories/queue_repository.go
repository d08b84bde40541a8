package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"wayfare/internal/config"
)

// JobMessage is one delivery from the queue. Data carries the JSON envelope
// {"job_id": "..."}; parsing it is the consumer's concern so malformed
// payloads can be acked away.
type JobMessage struct {
	MessageID string
	Data      string
}

func (m JobMessage) JobID() (string, error) {
	var envelope struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal([]byte(m.Data), &envelope); err != nil {
		return "", fmt.Errorf("malformed job message: %w", err)
	}
	if envelope.JobID == "" {
		return "", fmt.Errorf("job message missing job_id")
	}
	return envelope.JobID, nil
}

// JobQueueRepository is the at-least-once delivery queue for planning jobs.
type JobQueueRepository interface {
	EnsureConsumerGroup(ctx context.Context) error
	PublishJob(ctx context.Context, jobId string) error
	// ReceiveJob blocks up to the configured poll interval and returns at
	// most one message, or nil when the queue is idle.
	ReceiveJob(ctx context.Context) (*JobMessage, error)
	AckJob(ctx context.Context, messageId string) error
}

type jobQueueRepository struct {
	client       *redis.Client
	logger       *zap.Logger
	stream       string
	group        string
	consumerName string
	pollInterval time.Duration
}

func NewJobQueueRepository(client *redis.Client, cfg config.QueueConfig, logger *zap.Logger) JobQueueRepository {
	hostname, _ := os.Hostname()
	return &jobQueueRepository{
		client:       client,
		logger:       logger,
		stream:       cfg.Stream,
		group:        cfg.ConsumerGroup,
		consumerName: fmt.Sprintf("%s-%d", hostname, os.Getpid()),
		pollInterval: cfg.PollInterval,
	}
}

func (r *jobQueueRepository) EnsureConsumerGroup(ctx context.Context) error {
	err := r.client.XGroupCreateMkStream(ctx, r.stream, r.group, "$").Err()
	if err != nil {
		// BUSYGROUP means the group already exists, which is fine.
		if strings.Contains(err.Error(), "BUSYGROUP") {
			return nil
		}
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	r.logger.Info("Consumer group created",
		zap.String("stream", r.stream),
		zap.String("group", r.group))
	return nil
}

func (r *jobQueueRepository) PublishJob(ctx context.Context, jobId string) error {
	data, err := json.Marshal(map[string]string{"job_id": jobId})
	if err != nil {
		return err
	}

	err = r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		Values: map[string]interface{}{"data": string(data)},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish job: %w", err)
	}
	return nil
}

func (r *jobQueueRepository) ReceiveJob(ctx context.Context) (*JobMessage, error) {
	result, err := r.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    r.group,
		Consumer: r.consumerName,
		Streams:  []string{r.stream, ">"},
		Count:    1,
		Block:    r.pollInterval,
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read from stream: %w", err)
	}

	for _, stream := range result {
		for _, msg := range stream.Messages {
			data, _ := msg.Values["data"].(string)
			return &JobMessage{MessageID: msg.ID, Data: data}, nil
		}
	}
	return nil, nil
}

func (r *jobQueueRepository) AckJob(ctx context.Context, messageId string) error {
	if err := r.client.XAck(ctx, r.stream, r.group, messageId).Err(); err != nil {
		return fmt.Errorf("failed to acknowledge message: %w", err)
	}
	return nil
}
