package models

import "time"

type EventKind string

const (
	EventCreatePool      EventKind = "create_pool"
	EventAddLiquidity    EventKind = "add_liquidity"
	EventRemoveLiquidity EventKind = "remove_liquidity"
)

// LiquidityEvent records one successful pool operation. Amounts are raw token
// units; nothing here is float.
type LiquidityEvent struct {
	ID           string    `json:"id"`
	Kind         EventKind `json:"kind"`
	Timestamp    time.Time `json:"timestamp"`
	Pool         string    `json:"pool"`
	Authority    string    `json:"authority,omitempty"`
	TokenA       string    `json:"token_a"`
	TokenB       string    `json:"token_b"`
	TokenC       string    `json:"token_c"`
	AmountA      uint64    `json:"amount_a"`
	AmountB      uint64    `json:"amount_b"`
	AmountC      uint64    `json:"amount_c"` // minted on add, burned on remove
	TotalSupplyC uint64    `json:"total_supply_c"`
}
