package analytics

import (
	"fmt"
	"strings"

	"github.com/aman-zulfiqar/solana-amm/internal/events"
	"github.com/aman-zulfiqar/solana-amm/internal/models"
)

type column struct {
	name, typ, doc string
}

// liquidityColumns mirrors the DDL in events/clickhouse.go.
var liquidityColumns = []column{
	{"id", "String", "unique event id"},
	{"kind", "LowCardinality(String)", "operation, one of the event kinds below"},
	{"timestamp", "DateTime64(3, 'UTC')", "when the operation committed"},
	{"pool", "String", "pool address (base58)"},
	{"authority", "String", "account that deposited or withdrew, empty for create_pool"},
	{"token_a", "String", "mint of asset A"},
	{"token_b", "String", "mint of asset B"},
	{"token_c", "String", "mint of the liquidity share token"},
	{"amount_a", "UInt64", "asset A moved into (add) or out of (remove) the pool"},
	{"amount_b", "UInt64", "asset B moved into or out of the pool"},
	{"amount_c", "UInt64", "shares minted (add) or burned (remove)"},
	{"total_supply_c", "UInt64", "outstanding shares after the operation"},
}

var eventKinds = []models.EventKind{
	models.EventCreatePool,
	models.EventAddLiquidity,
	models.EventRemoveLiquidity,
}

func isColumn(name string) bool {
	for _, c := range liquidityColumns {
		if strings.EqualFold(c.name, name) {
			return true
		}
	}
	return false
}

func isEventKind(s string) bool {
	for _, k := range eventKinds {
		if string(k) == s {
			return true
		}
	}
	return false
}

// describeSchema renders the liquidity table for the SQL prompt.
func describeSchema(database string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Table: %s.%s\n\nColumns:\n", database, events.Table)
	for _, c := range liquidityColumns {
		fmt.Fprintf(&b, "  - %-15s %-24s -- %s\n", c.name, c.typ, c.doc)
	}

	kinds := make([]string, len(eventKinds))
	for i, k := range eventKinds {
		kinds[i] = "'" + string(k) + "'"
	}
	fmt.Fprintf(&b, "\nEvent kinds: %s\n", strings.Join(kinds, ", "))

	b.WriteString(`
Notes:
  - Net deposits of A for a pool: sumIf(amount_a, kind = 'add_liquidity') - sumIf(amount_a, kind = 'remove_liquidity').
  - The latest share supply per pool is argMax(total_supply_c, timestamp).
  - Time filters use timestamp, e.g. timestamp >= now() - INTERVAL 24 HOUR.
`)
	return b.String()
}
