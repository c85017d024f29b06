package events

import (
	"context"
	"encoding/json"

	"github.com/agentcore/orchestrator/internal/agent/telemetry"
	"github.com/redis/go-redis/v9"
)

// RedisStreamSink mirrors every Event it receives to a Redis stream via
// XADD. It is strictly additive: the in-process Bus and the append-only
// file log remain authoritative, and a Redis error here only ever gets
// logged, never propagated back to the publisher.
type RedisStreamSink struct {
	client *redis.Client
	stream string
	logger telemetry.Logger
}

// NewRedisStreamSink returns a sink that XADDs marshaled Events onto stream.
func NewRedisStreamSink(client *redis.Client, stream string, logger telemetry.Logger) *RedisStreamSink {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	return &RedisStreamSink{client: client, stream: stream, logger: logger}
}

// HandleEvent implements Subscriber.
func (s *RedisStreamSink) HandleEvent(e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		return
	}
	ctx := context.Background()
	if err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"kind":      string(e.Kind),
			"trace_id":  e.TraceID,
			"session_id": e.SessionID,
			"payload":   string(payload),
		},
	}).Err(); err != nil {
		s.logger.Warn(ctx, "events: redis mirror failed", "stream", s.stream, "error", err.Error())
	}
}
