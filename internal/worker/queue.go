package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/yourorg/jobboard/internal/event"
	"github.com/yourorg/jobboard/internal/infrastructure/redis"
)

// Envelope wraps a validated event for queue transport
type Envelope struct {
	Event    *event.Event `json:"event"`
	Attempts int          `json:"attempts"`
	Enqueued time.Time    `json:"enqueued"`
}

// Queue is a Redis-list event queue with a dead-letter list
type Queue struct {
	redis   *redis.Client
	key     string
	deadKey string
}

// NewQueue creates a new event queue
func NewQueue(redisClient *redis.Client, key, deadKey string) *Queue {
	return &Queue{
		redis:   redisClient,
		key:     key,
		deadKey: deadKey,
	}
}

// Enqueue pushes a validated event onto the queue
func (q *Queue) Enqueue(ctx context.Context, evt *event.Event) error {
	data, err := json.Marshal(Envelope{Event: evt, Enqueued: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}
	if err := q.redis.LPush(ctx, q.key, string(data)); err != nil {
		return fmt.Errorf("failed to enqueue event: %w", err)
	}
	return nil
}

// Dequeue blocks up to timeout for the next event. Returns (nil, nil)
// when the timeout elapses with an empty queue.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Envelope, error) {
	raw, err := q.redis.BRPop(ctx, timeout, q.key)
	if err != nil {
		if redis.IsNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue event: %w", err)
	}

	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, fmt.Errorf("malformed queue envelope: %w", err)
	}
	return &env, nil
}

// DeadLetter moves an envelope to the dead-letter list with the reason
func (q *Queue) DeadLetter(ctx context.Context, env *Envelope, reason string) error {
	payload := struct {
		*Envelope
		Reason string    `json:"reason"`
		Failed time.Time `json:"failed"`
	}{Envelope: env, Reason: reason, Failed: time.Now().UTC()}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter: %w", err)
	}
	if err := q.redis.LPush(ctx, q.deadKey, string(data)); err != nil {
		return fmt.Errorf("failed to dead-letter event: %w", err)
	}
	return nil
}

// Depth returns the number of waiting events
func (q *Queue) Depth(ctx context.Context) (int64, error) {
	return q.redis.LLen(ctx, q.key)
}
