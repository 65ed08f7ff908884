package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/aman-zulfiqar/solana-amm/internal/exchange"
)

// Memory keeps pool records in process. Callers get copies.
type Memory struct {
	mu    sync.RWMutex
	pools map[solana.PublicKey]*exchange.Exchange
}

func NewMemory() *Memory {
	return &Memory{pools: make(map[solana.PublicKey]*exchange.Exchange)}
}

func (m *Memory) Create(_ context.Context, pool *exchange.Exchange) error {
	if err := validate(pool); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.pools[pool.Address]; ok {
		return fmt.Errorf("%w: %s", exchange.ErrPoolExists, pool.Address)
	}
	cp := *pool
	m.pools[pool.Address] = &cp
	return nil
}

func (m *Memory) Get(_ context.Context, address solana.PublicKey) (*exchange.Exchange, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.pools[address]
	if !ok {
		return nil, fmt.Errorf("%w: %s", exchange.ErrPoolNotFound, address)
	}
	cp := *p
	return &cp, nil
}

func (m *Memory) Update(_ context.Context, pool *exchange.Exchange) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.pools[pool.Address]
	if !ok {
		return fmt.Errorf("%w: %s", exchange.ErrPoolNotFound, pool.Address)
	}
	if !cur.SameIdentity(pool) {
		return fmt.Errorf("%w: token fields are immutable", exchange.ErrInvalidPool)
	}
	cp := *pool
	m.pools[pool.Address] = &cp
	return nil
}

func (m *Memory) List(_ context.Context) ([]*exchange.Exchange, error) {
	m.mu.RLock()
	out := make([]*exchange.Exchange, 0, len(m.pools))
	for _, p := range m.pools {
		cp := *p
		out = append(out, &cp)
	}
	m.mu.RUnlock()

	sortPools(out)
	return out, nil
}

// sortPools orders by creation time, then address.
func sortPools(pools []*exchange.Exchange) {
	sort.Slice(pools, func(i, j int) bool {
		if !pools[i].CreatedAt.Equal(pools[j].CreatedAt) {
			return pools[i].CreatedAt.Before(pools[j].CreatedAt)
		}
		return pools[i].Address.String() < pools[j].Address.String()
	})
}

func validate(pool *exchange.Exchange) error {
	if pool == nil {
		return fmt.Errorf("%w: nil record", exchange.ErrInvalidPool)
	}
	if pool.Address.IsZero() {
		return fmt.Errorf("%w: address is required", exchange.ErrInvalidPool)
	}
	return nil
}
