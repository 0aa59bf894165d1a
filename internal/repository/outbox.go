package repository

import (
	"context"
	"encoding/json"
	"vkozyrev/photocaption/internal/model"

	"github.com/redis/go-redis/v9"
)

const outboxKey = "metadata:outbox"

// Which half of the dual write needs to be replayed.
const (
	OutboxLegSidecar = "sidecar"
	OutboxLegRecord  = "record"
)

// OutboxEntry is one failed metadata write waiting for replay. Both legs
// are idempotent (sidecar put overwrites, record insert is an upsert), so
// an entry can be retried any number of times.
type OutboxEntry struct {
	Leg      string            `json:"leg"`
	Name     string            `json:"name"`
	Record   model.PhotoRecord `json:"record"`
	Attempts int               `json:"attempts"`
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, entry OutboxEntry) error
	Dequeue(ctx context.Context) (*OutboxEntry, error)
	Len(ctx context.Context) (int64, error)
}

type outboxRepository struct {
	rdb *redis.Client
}

func NewOutboxRepository(rdb *redis.Client) OutboxRepository {
	return &outboxRepository{rdb: rdb}
}

func (r *outboxRepository) Enqueue(ctx context.Context, entry OutboxEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return r.rdb.RPush(ctx, outboxKey, data).Err()
}

// Dequeue pops the oldest entry. Returns nil without error when the
// queue is empty.
func (r *outboxRepository) Dequeue(ctx context.Context) (*OutboxEntry, error) {
	data, err := r.rdb.LPop(ctx, outboxKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entry OutboxEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *outboxRepository) Len(ctx context.Context) (int64, error) {
	return r.rdb.LLen(ctx, outboxKey).Result()
}
