package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"SegmentCompass/internal/ports"
)

const (
	defaultTTL       = 30 * time.Second
	defaultRetry     = 50 * time.Millisecond
	defaultKeyPrefix = "tier:recompute:"
)

// releaseScript deletes the key only if it still carries our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisOptions tunes the distributed lock.
type RedisOptions struct {
	TTL       time.Duration
	Retry     time.Duration
	KeyPrefix string
}

// Redis is a per-key lock shared by every process that talks to the same
// Redis instance. The TTL bounds how long a crashed holder blocks others.
type Redis struct {
	rdb    goredis.Cmdable
	ttl    time.Duration
	retry  time.Duration
	prefix string
	logger *slog.Logger
}

var _ ports.Locker = (*Redis)(nil)

// NewRedis wraps an existing client.
func NewRedis(rdb goredis.Cmdable, opts RedisOptions, logger *slog.Logger) *Redis {
	r := &Redis{rdb: rdb, ttl: opts.TTL, retry: opts.Retry, prefix: opts.KeyPrefix, logger: logger}
	if r.ttl <= 0 {
		r.ttl = defaultTTL
	}
	if r.retry <= 0 {
		r.retry = defaultRetry
	}
	if r.prefix == "" {
		r.prefix = defaultKeyPrefix
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	return r
}

// Dial connects to addr and verifies the connection with PING.
func Dial(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// Lock polls SET NX until the key is acquired or ctx is done.
func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	if r.rdb == nil {
		return nil, errors.New("redis lock not initialized")
	}

	full := r.prefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(r.retry)
	defer ticker.Stop()

	for {
		ok, err := r.rdb.SetNX(ctx, full, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", full, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	return func() {
		// Release even if the caller's context is already cancelled.
		relCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(relCtx, r.rdb, []string{full}, token).Err(); err != nil {
			r.logger.Warn("redis lock release failed", "key", full, "error", err)
		}
	}, nil
}
