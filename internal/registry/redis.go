package registry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/redis/go-redis/v9"

	"github.com/aman-zulfiqar/solana-amm/internal/exchange"
)

const (
	indexKey    = "pools:index"
	valuePrefix = "pools:"
)

// Redis stores pool records as JSON under pools:<address>, with every address
// in the pools:index set.
type Redis struct {
	client redis.Cmdable
}

func NewRedis(client redis.Cmdable) (*Redis, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	return &Redis{client: client}, nil
}

func (s *Redis) Create(ctx context.Context, pool *exchange.Exchange) error {
	if err := validate(pool); err != nil {
		return err
	}
	b, err := json.Marshal(pool)
	if err != nil {
		return fmt.Errorf("marshal pool: %w", err)
	}

	pipe := s.client.TxPipeline()
	created := pipe.SetNX(ctx, poolKey(pool.Address), b, 0)
	pipe.SAdd(ctx, indexKey, pool.Address.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("create pool: %w", err)
	}
	if !created.Val() {
		return fmt.Errorf("%w: %s", exchange.ErrPoolExists, pool.Address)
	}
	return nil
}

func (s *Redis) Get(ctx context.Context, address solana.PublicKey) (*exchange.Exchange, error) {
	val, err := s.client.Get(ctx, poolKey(address)).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("%w: %s", exchange.ErrPoolNotFound, address)
	}
	if err != nil {
		return nil, fmt.Errorf("get pool: %w", err)
	}

	var p exchange.Exchange
	if err := json.Unmarshal([]byte(val), &p); err != nil {
		return nil, fmt.Errorf("unmarshal pool: %w", err)
	}
	return &p, nil
}

// Update overwrites an existing record. Callers hold the pool lock, so the
// read-compare-write is not raced by other writers.
func (s *Redis) Update(ctx context.Context, pool *exchange.Exchange) error {
	cur, err := s.Get(ctx, pool.Address)
	if err != nil {
		return err
	}
	if !cur.SameIdentity(pool) {
		return fmt.Errorf("%w: token fields are immutable", exchange.ErrInvalidPool)
	}

	b, err := json.Marshal(pool)
	if err != nil {
		return fmt.Errorf("marshal pool: %w", err)
	}
	ok, err := s.client.SetXX(ctx, poolKey(pool.Address), b, 0).Result()
	if err != nil {
		return fmt.Errorf("update pool: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", exchange.ErrPoolNotFound, pool.Address)
	}
	return nil
}

func (s *Redis) List(ctx context.Context) ([]*exchange.Exchange, error) {
	addrs, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list pools index: %w", err)
	}
	if len(addrs) == 0 {
		return []*exchange.Exchange{}, nil
	}

	redisKeys := make([]string, 0, len(addrs))
	for _, a := range addrs {
		pk, err := solana.PublicKeyFromBase58(a)
		if err != nil {
			continue
		}
		redisKeys = append(redisKeys, poolKey(pk))
	}
	if len(redisKeys) == 0 {
		return []*exchange.Exchange{}, nil
	}

	vals, err := s.client.MGet(ctx, redisKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget pools: %w", err)
	}

	out := make([]*exchange.Exchange, 0, len(vals))
	for _, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var p exchange.Exchange
		if err := json.Unmarshal([]byte(str), &p); err != nil {
			continue
		}
		out = append(out, &p)
	}

	sortPools(out)
	return out, nil
}

func poolKey(address solana.PublicKey) string {
	return valuePrefix + address.String()
}
