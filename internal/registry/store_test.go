package registry

import (
	"context"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/solana-amm/internal/exchange"
)

var (
	_ exchange.Store = (*Memory)(nil)
	_ exchange.Store = (*Redis)(nil)
)

func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   1, // Use different DB for tests
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	require.NoError(t, client.FlushDB(ctx).Err())

	t.Cleanup(func() {
		_ = client.FlushDB(context.Background()).Err()
		_ = client.Close()
	})
	return client
}

func newPool(created time.Time) *exchange.Exchange {
	k := func() solana.PublicKey { return solana.NewWallet().PublicKey() }
	return &exchange.Exchange{
		Address:        k(),
		Factory:        k(),
		TokenA:         k(),
		TokenB:         k(),
		TokenC:         k(),
		ReserveA:       k(),
		ReserveB:       k(),
		FeeNumerator:   97,
		FeeDenominator: 10000,
		CreatedAt:      created.UTC(),
		UpdatedAt:      created.UTC(),
	}
}

// stores runs fn against every backend that is available.
func stores(t *testing.T, fn func(t *testing.T, s exchange.Store)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemory())
	})
	t.Run("redis", func(t *testing.T) {
		s, err := NewRedis(setupTestRedis(t))
		require.NoError(t, err)
		fn(t, s)
	})
}

func TestStore_CreateGet(t *testing.T) {
	stores(t, func(t *testing.T, s exchange.Store) {
		ctx := context.Background()
		p := newPool(time.Now())

		require.NoError(t, s.Create(ctx, p))

		got, err := s.Get(ctx, p.Address)
		require.NoError(t, err)
		assert.True(t, got.SameIdentity(p))
		assert.Equal(t, uint64(0), got.TotalSupplyC)
		assert.Equal(t, p.Fee(), got.Fee())

		err = s.Create(ctx, p)
		assert.ErrorIs(t, err, exchange.ErrPoolExists)

		_, err = s.Get(ctx, solana.NewWallet().PublicKey())
		assert.ErrorIs(t, err, exchange.ErrPoolNotFound)
	})
}

func TestStore_Update(t *testing.T) {
	stores(t, func(t *testing.T, s exchange.Store) {
		ctx := context.Background()
		p := newPool(time.Now())
		require.NoError(t, s.Create(ctx, p))

		p.TotalSupplyC = 50
		p.InputPrice = 901
		require.NoError(t, s.Update(ctx, p))

		got, err := s.Get(ctx, p.Address)
		require.NoError(t, err)
		assert.Equal(t, uint64(50), got.TotalSupplyC)
		assert.Equal(t, uint64(901), got.InputPrice)

		changed := *p
		changed.TokenA = solana.NewWallet().PublicKey()
		assert.ErrorIs(t, s.Update(ctx, &changed), exchange.ErrInvalidPool)

		missing := newPool(time.Now())
		assert.ErrorIs(t, s.Update(ctx, missing), exchange.ErrPoolNotFound)
	})
}

func TestStore_List(t *testing.T) {
	stores(t, func(t *testing.T, s exchange.Store) {
		ctx := context.Background()

		empty, err := s.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, empty)

		base := time.Now().Truncate(time.Second)
		second := newPool(base.Add(time.Minute))
		first := newPool(base)
		require.NoError(t, s.Create(ctx, second))
		require.NoError(t, s.Create(ctx, first))

		pools, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, pools, 2)
		assert.True(t, pools[0].Address.Equals(first.Address))
		assert.True(t, pools[1].Address.Equals(second.Address))
	})
}

func TestMemory_ReturnsCopies(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	p := newPool(time.Now())
	require.NoError(t, s.Create(ctx, p))

	got, err := s.Get(ctx, p.Address)
	require.NoError(t, err)
	got.TotalSupplyC = 999

	again, err := s.Get(ctx, p.Address)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), again.TotalSupplyC)
}

func TestCreate_RejectsZeroAddress(t *testing.T) {
	assert.ErrorIs(t, NewMemory().Create(context.Background(), &exchange.Exchange{}), exchange.ErrInvalidPool)
}
