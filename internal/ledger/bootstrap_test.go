package ledger

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAccountsFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "accounts.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestBootstrap_OpensFundedAccounts(t *testing.T) {
	mint, owner, acct, empty := key(), key(), key(), key()
	path := writeAccountsFile(t, fmt.Sprintf(`[
		{"name":"alice A","address":%q,"mint":%q,"owner":%q,"amount":1000},
		{"name":"alice C","address":%q,"mint":%q,"owner":%q}
	]`, acct, mint, owner, empty, mint, owner))

	m := NewMemory()
	n, err := m.Bootstrap(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, uint64(1000), m.Balance(acct))
	assert.Equal(t, uint64(1000), m.Supply(mint))

	// a second run keeps balances as they are
	require.NoError(t, m.Transfer(t.Context(), acct, empty, owner, 400))
	n, err = m.Bootstrap(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, uint64(600), m.Balance(acct))
}

func TestLoadAccountsFromJSON_Invalid(t *testing.T) {
	_, err := LoadAccountsFromJSON(writeAccountsFile(t, `[{"name":"bad","address":"nope"}]`))
	assert.Error(t, err)

	_, err = LoadAccountsFromJSON(writeAccountsFile(t, `[`))
	assert.Error(t, err)

	_, err = LoadAccountsFromJSON(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
