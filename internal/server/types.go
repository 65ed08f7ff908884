package server

import (
	"github.com/aman-zulfiqar/solana-amm/internal/exchange"
)

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error   string `json:"error"`             // Human-readable error message
	Code    int    `json:"code"`              // HTTP status code
	Kind    string `json:"kind,omitempty"`    // Stable exchange error code
	Details any    `json:"details,omitempty"` // Additional error details (dev mode only)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	OK bool `json:"ok"`
}

// CreatePoolRequest registers a pool. Reserve accounts are derived when omitted.
type CreatePoolRequest struct {
	Factory  string `json:"factory"`
	TokenA   string `json:"token_a"`
	TokenB   string `json:"token_b"`
	TokenC   string `json:"token_c"`
	ReserveA string `json:"reserve_a,omitempty"`
	ReserveB string `json:"reserve_b,omitempty"`
	Fee      string `json:"fee,omitempty"` // "97/10000" or "0.0097"
}

// AddLiquidityRequest deposits into a pool. ToA, ToB and Mint default to the
// pool's own accounts when empty. Authority is not signed; see AddLiquidity.
type AddLiquidityRequest struct {
	Authority     string `json:"authority"`
	FromA         string `json:"from_a"`
	FromB         string `json:"from_b"`
	ToA           string `json:"to_a,omitempty"`
	ToB           string `json:"to_b,omitempty"`
	Mint          string `json:"mint,omitempty"`
	ToC           string `json:"to_c"`
	MaxAmountA    uint64 `json:"max_amount_a"`
	AmountB       uint64 `json:"amount_b"`
	MinLiquidityC uint64 `json:"min_liquidity_c"`
	Deadline      int64  `json:"deadline"`
}

// RemoveLiquidityRequest withdraws from a pool. FromA, FromB and Mint default
// to the pool's own accounts when empty. Authority is not signed.
type RemoveLiquidityRequest struct {
	Authority  string `json:"authority"`
	FromA      string `json:"from_a,omitempty"`
	FromB      string `json:"from_b,omitempty"`
	ToA        string `json:"to_a"`
	ToB        string `json:"to_b"`
	Mint       string `json:"mint,omitempty"`
	FromC      string `json:"from_c"`
	AmountC    uint64 `json:"amount_c"`
	MinAmountA uint64 `json:"min_amount_a"`
	MinAmountB uint64 `json:"min_amount_b"`
	Deadline   int64  `json:"deadline"`
}

// ReservesResponse reports a pool's live reserve balances.
type ReservesResponse struct {
	Pool     string `json:"pool"`
	ReserveA uint64 `json:"reserve_a"`
	ReserveB uint64 `json:"reserve_b"`
}

// QuoteResponse is a priced exchange plus the slippage-adjusted limit when
// slippageBps was given.
type QuoteResponse struct {
	*exchange.Quote
	MinAmountOut uint64 `json:"min_amount_out,omitempty"`
	MaxAmountIn  uint64 `json:"max_amount_in,omitempty"`
}

// AskRequest represents a natural language query request
type AskRequest struct {
	Question string `json:"question"` // Natural language question about liquidity history
	Model    string `json:"model"`    // Optional model override
}

// AskResponse represents the response from an analytics query
type AskResponse struct {
	SQL       string `json:"sql"`                 // Generated SQL query
	Answer    string `json:"answer"`              // Natural language answer
	Rows      int    `json:"rows"`                // Rows the query returned
	Truncated bool   `json:"truncated,omitempty"` // Rows were capped
	TookMs    int64  `json:"took_ms"`             // Execution time in milliseconds
}
