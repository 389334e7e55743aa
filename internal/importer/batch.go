package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrBatchNotFound reports a confirm or discard against a batch that was
// never stored or has already expired.
var ErrBatchNotFound = errors.New("importer: batch not found")

// Batch is a parsed upload parked between the upload and confirm steps.
type Batch struct {
	Token      string    `json:"token"`
	Filename   string    `json:"filename,omitempty"`
	Rows       []Row     `json:"rows"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// BatchStore parks parsed batches across the two-step import. The backing
// store expires entries on its own; a lost batch is a recoverable
// condition (the operator re-uploads), never a crash.
type BatchStore interface {
	Put(ctx context.Context, batch Batch) error
	Get(ctx context.Context, token string) (Batch, error)
	Delete(ctx context.Context, token string) error
}

const batchKeyPrefix = "import:batch:"

// RedisBatchStore holds pending batches in Redis under a TTL.
type RedisBatchStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisBatchStore constructs a RedisBatchStore.
func NewRedisBatchStore(client *redis.Client, ttl time.Duration) *RedisBatchStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisBatchStore{client: client, ttl: ttl}
}

// Put stores the batch under its token.
func (s *RedisBatchStore) Put(ctx context.Context, batch Batch) error {
	payload, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("importer: encode batch: %w", err)
	}
	if err := s.client.Set(ctx, batchKeyPrefix+batch.Token, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("importer: store batch: %w", err)
	}
	return nil
}

// Get loads a pending batch, or ErrBatchNotFound once it has expired.
func (s *RedisBatchStore) Get(ctx context.Context, token string) (Batch, error) {
	payload, err := s.client.Get(ctx, batchKeyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Batch{}, ErrBatchNotFound
		}
		return Batch{}, fmt.Errorf("importer: load batch: %w", err)
	}
	var batch Batch
	if err := json.Unmarshal(payload, &batch); err != nil {
		return Batch{}, fmt.Errorf("importer: decode batch: %w", err)
	}
	return batch, nil
}

// Delete drops a pending batch. Deleting an absent token is not an error.
func (s *RedisBatchStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, batchKeyPrefix+token).Err(); err != nil {
		return fmt.Errorf("importer: delete batch: %w", err)
	}
	return nil
}
