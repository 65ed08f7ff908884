package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/solana-amm/internal/exchange"
)

var _ exchange.Observer = (*Metrics)(nil)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	pool := solana.NewWallet().PublicKey()

	m.Operation("add_liquidity", pool, nil, 10*time.Millisecond)
	m.Operation("add_liquidity", pool, fmt.Errorf("%w: x", exchange.ErrSlippageExceeded), time.Millisecond)
	m.Supply(pool, 75)

	families, err := reg.Gather()
	require.NoError(t, err)

	byName := map[string]int{}
	for _, f := range families {
		byName[f.GetName()] = len(f.GetMetric())
	}
	assert.Equal(t, 2, byName["amm_exchange_operations_total"])
	assert.Equal(t, 1, byName["amm_exchange_operation_duration_seconds"])
	assert.Equal(t, 1, byName["amm_exchange_lp_token_supply"])
}
