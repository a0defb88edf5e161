// Package ratelimiter implements an in-memory token bucket limiter.
//
// Each key owns a bucket holding up to Config.Capacity tokens that is
// refilled by Config.RefillRate tokens every Config.RefillInterval. Allow
// takes one token; when none is left the Result carries RetryAfter.
//
//	l, err := ratelimiter.New(ratelimiter.Config{Capacity: 10, RefillRate: 5, RefillInterval: time.Second})
//	if res := l.Allow(clientIP); !res.Allowed() {
//		w.Header().Set("Retry-After", ...)
//	}
//
// Rejected requests do not consume tokens. Denied callers cannot starve
// themselves past the next refill.
package ratelimiter
