// Package activitylog records account and project changes through a Redis
// stream and persists them to the activity_log table.
package activitylog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hhaamed74/promanager-api/internal/metrics"
	"github.com/hhaamed74/promanager-api/internal/model"
)

const (
	// StreamKey is the Redis stream for activity events.
	StreamKey = "stream:activity_log"

	// DeadLetterStreamKey is the Redis stream for poison messages.
	DeadLetterStreamKey = "stream:activity_log:dlq"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 50000

	// PublishTimeout is the max time to wait for Redis publish.
	PublishTimeout = 250 * time.Millisecond
)

// Event is the stream payload for one activity.
type Event struct {
	Type       model.ActivityType `json:"type"`
	ActorID    string             `json:"actor,omitempty"`
	SubjectID  string             `json:"subject,omitempty"`
	Message    string             `json:"msg"`
	OccurredAt int64              `json:"t"` // Unix milliseconds
}

// NewEvent builds an event stamped with the current time.
func NewEvent(typ model.ActivityType, actorID, subjectID, message string) Event {
	return Event{
		Type:       typ,
		ActorID:    actorID,
		SubjectID:  subjectID,
		Message:    message,
		OccurredAt: time.Now().UnixMilli(),
	}
}

// Publisher enqueues activity events to the Redis stream.
type Publisher struct {
	redis   *redis.Client
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewPublisher creates a new activity publisher.
func NewPublisher(client *redis.Client, logger *slog.Logger, recorder metrics.Recorder) *Publisher {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Publisher{
		redis:   client,
		logger:  logger.With("component", "activitylog.publisher"),
		metrics: recorder,
	}
}

// Publish adds an event to the stream synchronously and returns its stream ID.
func (p *Publisher) Publish(ctx context.Context, event Event) (string, error) {
	if err := ValidateEvent(event); err != nil {
		return "", err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	id, err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: MaxStreamLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"payload": string(data),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}

	return id, nil
}

// PublishAsync publishes without blocking the caller.
// Errors are logged but not returned (fire-and-forget).
func (p *Publisher) PublishAsync(event Event) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), PublishTimeout)
		defer cancel()

		streamID, err := p.Publish(ctx, event)
		if err != nil {
			p.logger.Warn("failed to publish activity event",
				"type", event.Type,
				"subject_id", event.SubjectID,
				"error", err,
			)
			p.metrics.IncActivityEventPublished("dropped")
			return
		}

		p.logger.Debug("activity event published",
			"type", event.Type,
			"stream_id", streamID,
		)
		p.metrics.IncActivityEventPublished("success")
	}()
}

// Discard drops every event. It stands in for Publisher when the activity
// log is disabled.
type Discard struct{}

// PublishAsync does nothing.
func (Discard) PublishAsync(Event) {}
