package guard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront-svc/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	claimInFlight  = "in_flight"
	claimCompleted = "completed"
)

func InitRedis(cfg config.RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established")
	return rdb, nil
}

// RedisStore shares guard state between every replica of the service.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (r *RedisStore) key(k string) string {
	return fmt.Sprintf("%s:%s", r.prefix, k)
}

// hitScript counts an attempt and arms the window in one step. A counter found
// without a TTL is re-armed as well.
var hitScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 or redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

func (r *RedisStore) Hit(ctx context.Context, key string, window time.Duration) (int, error) {
	n, err := hitScript.Run(ctx, r.rdb, []string{r.key(key)}, window.Milliseconds()).Int()
	if err != nil {
		return 0, fmt.Errorf("failed to record attempt: %w", err)
	}
	return n, nil
}

func (r *RedisStore) Claim(ctx context.Context, fingerprint string, window time.Duration) (bool, error) {
	ok, err := r.rdb.SetNX(ctx, r.key(fingerprint), claimInFlight, window).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim fingerprint: %w", err)
	}
	return ok, nil
}

func (r *RedisStore) Complete(ctx context.Context, fingerprint string) error {
	err := r.rdb.SetArgs(ctx, r.key(fingerprint), claimCompleted, redis.SetArgs{Mode: "XX", KeepTTL: true}).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to complete fingerprint: %w", err)
	}
	return nil
}

func (r *RedisStore) Release(ctx context.Context, fingerprint string) error {
	if err := r.rdb.Del(ctx, r.key(fingerprint)).Err(); err != nil {
		return fmt.Errorf("failed to release fingerprint: %w", err)
	}
	return nil
}
