// Package cache provides a generic, thread-safe LRU cache with optional
// per-entry expiry.
//
// The cache is bounded by entry count; when full, the least recently used
// entry is evicted. With WithTTL, entries also expire a fixed time after they
// were last written.
//
//	seen := cache.New[int64, struct{}](10_000, cache.WithTTL(time.Hour))
//	if _, dup := seen.PutIfAbsent(updateID, struct{}{}); dup {
//		// already processed
//	}
//
// All operations are O(1) apart from Clear.
package cache
