package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Aaryan2304/ai-support-system/pkg/ports"
)

// StreamsPublisher implements EventPublisher using Redis Streams. The
// turn event stream to the caller stays in-process; this mirror is a
// best-effort copy for external audit consumers.
type StreamsPublisher struct {
	client *redis.Client
	logger *zap.Logger
	maxLen int64
}

// NewStreamsPublisher creates a new Redis Streams publisher. maxLen caps
// each stream's approximate length; zero disables trimming.
func NewStreamsPublisher(client *redis.Client, maxLen int64, logger *zap.Logger) *StreamsPublisher {
	return &StreamsPublisher{
		client: client,
		logger: logger.Named("events"),
		maxLen: maxLen,
	}
}

// Publish publishes an event to the appropriate stream topic
func (e *StreamsPublisher) Publish(ctx context.Context, topic string, event ports.Event) error {
	streamKey := getStreamKey(topic)

	// Serialize event
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// Add to stream
	args := &redis.XAddArgs{
		Stream: streamKey,
		MaxLen: e.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}

	if _, err := e.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to add to stream: %w", err)
	}

	e.logger.Debug("event published",
		zap.String("event_id", event.ID),
		zap.String("type", event.Type),
		zap.String("stream", streamKey))

	return nil
}

// Close closes the publisher and cleans up resources
func (e *StreamsPublisher) Close() error {
	// Redis client is closed by the caller
	return nil
}

// getStreamKey returns the Redis stream key for a topic
func getStreamKey(topic string) string {
	return fmt.Sprintf("support:events:%s", topic)
}
