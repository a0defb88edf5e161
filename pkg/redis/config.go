package redis

import "time"

// Config describes the Redis connection. An empty ConnectionURL means Redis
// is not configured. The URL has the form "redis://:password@host:6379/0".
type Config struct {
	ConnectionURL  string        `env:"REDIS_URL"`
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"2s"`
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"10s"`
	KeyPrefix      string        `env:"REDIS_KEY_PREFIX" envDefault:"tgwebhook:update:"`
	DedupTTL       time.Duration `env:"REDIS_DEDUP_TTL" envDefault:"24h"`
}
