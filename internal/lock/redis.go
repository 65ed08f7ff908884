package lock

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/mr-tron/base58"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const keyPrefix = "lock:"

// releaseScript deletes the lease only if it still holds our token.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

var ErrLeaseLost = errors.New("lock lease expired before release")

type RedisConfig struct {
	TTL   time.Duration // lease length; must exceed the longest operation
	Retry time.Duration // poll interval while the key is held
	Log   *logrus.Logger
}

// Redis is a lease lock shared by every process using the same redis.
type Redis struct {
	client redis.Cmdable
	ttl    time.Duration
	retry  time.Duration
	log    *logrus.Logger
}

func NewRedis(client redis.Cmdable, cfg RedisConfig) (*Redis, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	if cfg.Retry <= 0 {
		cfg.Retry = 25 * time.Millisecond
	}
	if cfg.Log == nil {
		cfg.Log = logrus.New()
	}
	return &Redis{client: client, ttl: cfg.TTL, retry: cfg.Retry, log: cfg.Log}, nil
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	rkey := keyPrefix + key

	ticker := time.NewTicker(r.retry)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, rkey, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire lock %s: %w", key, ctx.Err())
		case <-ticker.C:
		}
	}

	return func() {
		if err := r.release(rkey, token); err != nil {
			r.log.WithError(err).WithField("key", key).Warn("lock release failed")
		}
	}, nil
}

func (r *Redis) release(rkey, token string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	n, err := r.client.Eval(ctx, releaseScript, []string{rkey}, token).Int()
	if err != nil {
		return fmt.Errorf("release %s: %w", rkey, err)
	}
	if n == 0 {
		return ErrLeaseLost
	}
	return nil
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("lock token: %w", err)
	}
	return base58.Encode(b), nil
}
