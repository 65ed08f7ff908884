package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/solana-amm/internal/exchange"
	"github.com/aman-zulfiqar/solana-amm/internal/ledger"
)

func writePoolsFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pools.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadPoolsFromJSON(t *testing.T) {
	k := func() string { return solana.NewWallet().PublicKey().String() }
	factory, a, b, c := k(), k(), k(), k()

	path := writePoolsFile(t, fmt.Sprintf(`[
		{"name":"A/B","factory":%q,"token_a":%q,"token_b":%q,"token_c":%q,"fee_numerator":3,"fee_denominator":1000}
	]`, factory, a, b, c))

	params, err := LoadPoolsFromJSON(path)
	require.NoError(t, err)
	require.Len(t, params, 1)
	assert.Equal(t, a, params[0].TokenA.String())
	assert.Equal(t, exchange.Fee{Numerator: 3, Denominator: 1000}, params[0].Fee)
	assert.True(t, params[0].ReserveA.IsZero())
}

func TestLoadPoolsFromJSON_Invalid(t *testing.T) {
	_, err := LoadPoolsFromJSON(writePoolsFile(t, `[{"name":"bad","factory":"nope"}]`))
	assert.Error(t, err)

	_, err = LoadPoolsFromJSON(writePoolsFile(t, `{`))
	assert.Error(t, err)

	_, err = LoadPoolsFromJSON(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestBootstrap_SkipsExisting(t *testing.T) {
	k := func() string { return solana.NewWallet().PublicKey().String() }
	path := writePoolsFile(t, fmt.Sprintf(`[
		{"name":"one","factory":%q,"token_a":%q,"token_b":%q,"token_c":%q}
	]`, k(), k(), k(), k()))

	m, err := exchange.NewManager(exchange.ManagerConfig{
		ProgramID: solana.NewWallet().PublicKey(),
		Store:     NewMemory(),
		Ledger:    ledger.NewMemory(),
	})
	require.NoError(t, err)

	ctx := context.Background()
	n, err := Bootstrap(ctx, m, path, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = Bootstrap(ctx, m, path, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	pools, err := m.Pools(ctx)
	require.NoError(t, err)
	require.Len(t, pools, 1)
	assert.Equal(t, exchange.DefaultFee, pools[0].Fee())
}
