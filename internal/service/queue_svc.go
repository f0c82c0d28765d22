package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrQueueEmpty is returned by Dequeue when the blocking pop times out
// without a task.
var ErrQueueEmpty = errors.New("queue empty")

// IngestQueue is a Redis list used as a work queue between the API and the
// ingestion workers. Producers LPUSH document ids, workers BLPOP them.
type IngestQueue struct {
	client *redis.Client
	key    string
}

func NewIngestQueue(client *redis.Client, key string) *IngestQueue {
	return &IngestQueue{client: client, key: key}
}

func (q *IngestQueue) Enqueue(ctx context.Context, documentID uuid.UUID) error {
	return q.client.LPush(ctx, q.key, documentID.String()).Err()
}

// Dequeue blocks for up to timeout waiting for the next document id.
func (q *IngestQueue) Dequeue(ctx context.Context, timeout time.Duration) (uuid.UUID, error) {
	values, err := q.client.BLPop(ctx, timeout, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return uuid.Nil, ErrQueueEmpty
		}
		return uuid.Nil, err
	}
	// BLPOP returns [key, value].
	if len(values) < 2 {
		return uuid.Nil, ErrQueueEmpty
	}
	return uuid.Parse(values[1])
}

// Depth reports the number of queued tasks, used by readiness reporting.
func (q *IngestQueue) Depth(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}
