package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the slice of go-redis the publisher needs. Tests fake it.
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// StreamNotifier publishes drop events onto a Redis stream so downstream
// automation can consume them.
type StreamNotifier struct {
	client RedisClient
	stream string
	logger *slog.Logger
}

func NewStreamNotifier(addr, stream string) *StreamNotifier {
	return newStreamNotifier(redis.NewClient(&redis.Options{Addr: addr}), stream)
}

func newStreamNotifier(client RedisClient, stream string) *StreamNotifier {
	return &StreamNotifier{
		client: client,
		stream: stream,
		logger: slog.Default().With("component", "stream_notifier"),
	}
}

func (s *StreamNotifier) Name() string { return "redis_stream" }

func (s *StreamNotifier) Notify(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			"data":       string(payload),
			"event_type": "PRICE_DROP",
			"event_id":   event.EventID,
			"item_id":    event.ItemID,
			"timestamp":  fmt.Sprintf("%d", event.Timestamp.UnixNano()),
		},
	}

	if _, err := s.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}

	s.logger.Debug("event published", "stream", s.stream, "event_id", event.EventID)
	return nil
}

func (s *StreamNotifier) Close() error {
	return s.client.Close()
}
