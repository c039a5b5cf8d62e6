package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Response is what gets replayed for a repeated key.
type Response struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
	// Fingerprint is the SHA-256 of the request body that produced it.
	Fingerprint string `json:"fingerprint"`
}

type Store interface {
	// TryLock claims key within scope; false means another request holds it.
	// A claim that is never released expires on its own.
	TryLock(ctx context.Context, scope, key string) (bool, error)
	Release(ctx context.Context, scope, key string) error
	Remember(ctx context.Context, scope, key string, resp Response) error
	Recall(ctx context.Context, scope, key string) (Response, bool, error)
}

type RedisStore struct {
	rdb     *redis.Client
	ttl     time.Duration
	lockTTL time.Duration
}

// NewRedisStore keeps responses for ttl. lockTTL bounds how long a request
// that died without releasing its key blocks retries.
func NewRedisStore(rdb *redis.Client, ttl, lockTTL time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl, lockTTL: lockTTL}
}

func lockKey(scope, key string) string { return "idem:lock:" + scope + ":" + key }

func respKey(scope, key string) string { return "idem:resp:" + scope + ":" + key }

func (s *RedisStore) TryLock(ctx context.Context, scope, key string) (bool, error) {
	return s.rdb.SetNX(ctx, lockKey(scope, key), "1", s.lockTTL).Result()
}

func (s *RedisStore) Release(ctx context.Context, scope, key string) error {
	return s.rdb.Del(ctx, lockKey(scope, key)).Err()
}

func (s *RedisStore) Remember(ctx context.Context, scope, key string, resp Response) error {
	b, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	return s.rdb.Set(ctx, respKey(scope, key), b, s.ttl).Err()
}

func (s *RedisStore) Recall(ctx context.Context, scope, key string) (Response, bool, error) {
	b, err := s.rdb.Get(ctx, respKey(scope, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Response{}, false, nil
	}
	if err != nil {
		return Response{}, false, err
	}
	var resp Response
	if err := json.Unmarshal(b, &resp); err != nil {
		return Response{}, false, fmt.Errorf("decode response: %w", err)
	}
	return resp, true, nil
}
