package tgwebhook

import (
	"context"
	"time"

	"github.com/dmitrymomot/tgwebhook/pkg/cache"
)

// DedupStore remembers update deliveries so that redeliveries of an already
// handled update can be acknowledged without calling the handler again.
// Update ids are unique per bot only, so implementations key by path and id.
type DedupStore interface {
	// MarkSeen records the update and reports whether it was already recorded.
	MarkSeen(ctx context.Context, path string, updateID int64) (seen bool, err error)
	// Forget drops the record so the next delivery is handled.
	Forget(ctx context.Context, path string, updateID int64) error
}

type updateKey struct {
	path string
	id   int64
}

// MemoryDedup is an in-process DedupStore bounded by entry count. Its state
// is dropped when the application stops.
type MemoryDedup struct {
	seen *cache.LRU[updateKey, struct{}]
}

// NewMemoryDedup remembers up to size updates, each for ttl (zero keeps them
// until evicted). It panics if size is not positive.
func NewMemoryDedup(size int, ttl time.Duration) *MemoryDedup {
	return &MemoryDedup{seen: cache.New[updateKey, struct{}](size, cache.WithTTL(ttl))}
}

func (m *MemoryDedup) MarkSeen(_ context.Context, path string, updateID int64) (bool, error) {
	_, seen := m.seen.PutIfAbsent(updateKey{path: path, id: updateID}, struct{}{})
	return seen, nil
}

func (m *MemoryDedup) Forget(_ context.Context, path string, updateID int64) error {
	m.seen.Remove(updateKey{path: path, id: updateID})
	return nil
}

// Len returns the number of remembered updates.
func (m *MemoryDedup) Len() int { return m.seen.Len() }

// Reset forgets every update.
func (m *MemoryDedup) Reset() { m.seen.Clear() }
