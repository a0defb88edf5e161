package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultKeyPrefix = "tgwebhook:update:"
	DefaultDedupTTL  = 24 * time.Hour
)

// DedupStore records update deliveries in Redis so that several webhook
// replicas share one view of what has been handled. Each update is a key
// "<prefix><path>:<update_id>" written with SET NX and expiring after ttl.
type DedupStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// DedupOption configures a DedupStore.
type DedupOption func(*DedupStore)

// WithKeyPrefix sets the key prefix (default DefaultKeyPrefix).
func WithKeyPrefix(prefix string) DedupOption {
	return func(s *DedupStore) { s.prefix = prefix }
}

// WithTTL sets how long a delivery is remembered (default DefaultDedupTTL).
// Non-positive values keep the default.
func WithTTL(ttl time.Duration) DedupOption {
	return func(s *DedupStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func NewDedupStore(client redis.UniversalClient, opts ...DedupOption) *DedupStore {
	s := &DedupStore{client: client, prefix: DefaultKeyPrefix, ttl: DefaultDedupTTL}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MarkSeen reports whether the update was already recorded and records it
// otherwise. The check and the write are a single atomic command.
func (s *DedupStore) MarkSeen(ctx context.Context, path string, updateID int64) (bool, error) {
	created, err := s.client.SetNX(ctx, s.key(path, updateID), 1, s.ttl).Result()
	if err != nil {
		return false, errors.Join(ErrDedup, err)
	}
	return !created, nil
}

func (s *DedupStore) Forget(ctx context.Context, path string, updateID int64) error {
	if err := s.client.Del(ctx, s.key(path, updateID)).Err(); err != nil {
		return errors.Join(ErrDedup, err)
	}
	return nil
}

func (s *DedupStore) key(path string, updateID int64) string {
	return s.prefix + path + ":" + strconv.FormatInt(updateID, 10)
}
