package exchange

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// Exchange is the pool record for one trading pair. Reserve balances are not
// stored here; they live in the ReserveA/ReserveB token accounts and are read
// from the ledger on every operation.
type Exchange struct {
	Address solana.PublicKey `json:"address"`
	Bump    uint8            `json:"bump"`

	Factory solana.PublicKey `json:"factory"`
	TokenA  solana.PublicKey `json:"token_a"`
	TokenB  solana.PublicKey `json:"token_b"`
	TokenC  solana.PublicKey `json:"token_c"` // liquidity share mint

	ReserveA solana.PublicKey `json:"reserve_a"` // pool token account holding A
	ReserveB solana.PublicKey `json:"reserve_b"` // pool token account holding B

	FeeNumerator   uint64 `json:"fee_numerator"`
	FeeDenominator uint64 `json:"fee_denominator"`

	TotalSupplyC uint64 `json:"total_supply_c"`

	// Advisory quote cache, last computed values only.
	InputPrice  uint64 `json:"input_price"`
	OutputPrice uint64 `json:"output_price"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Fee returns the pool's fee as a rational.
func (e *Exchange) Fee() Fee {
	return Fee{Numerator: e.FeeNumerator, Denominator: e.FeeDenominator}
}

// Empty reports whether no liquidity shares are outstanding.
func (e *Exchange) Empty() bool {
	return e.TotalSupplyC == 0
}

// SameIdentity reports whether o describes the same pool with the same
// immutable token fields.
func (e *Exchange) SameIdentity(o *Exchange) bool {
	return e.Address.Equals(o.Address) &&
		e.Factory.Equals(o.Factory) &&
		e.TokenA.Equals(o.TokenA) &&
		e.TokenB.Equals(o.TokenB) &&
		e.TokenC.Equals(o.TokenC) &&
		e.ReserveA.Equals(o.ReserveA) &&
		e.ReserveB.Equals(o.ReserveB)
}

// TokenAccount is a snapshot of a ledger token account, valid for one operation.
type TokenAccount struct {
	Address solana.PublicKey `json:"address"`
	Mint    solana.PublicKey `json:"mint"`
	Owner   solana.PublicKey `json:"owner"`
	Amount  uint64           `json:"amount"`
}

// CreatePoolParams describes a new pool.
type CreatePoolParams struct {
	Factory solana.PublicKey
	TokenA  solana.PublicKey
	TokenB  solana.PublicKey
	TokenC  solana.PublicKey

	// Pool token accounts for the two reserves. When zero they are derived
	// from the pool address.
	ReserveA solana.PublicKey
	ReserveB solana.PublicKey

	// Zero value means DefaultFee.
	Fee Fee
}

// AddLiquidityParams mirrors the add_liquidity instruction accounts and args.
type AddLiquidityParams struct {
	Pool      solana.PublicKey
	Authority solana.PublicKey

	FromA solana.PublicKey // authority's A account
	FromB solana.PublicKey // authority's B account
	ToA   solana.PublicKey // pool reserve A
	ToB   solana.PublicKey // pool reserve B
	Mint  solana.PublicKey // share mint
	ToC   solana.PublicKey // authority's share account

	MaxAmountA    uint64
	AmountB       uint64
	MinLiquidityC uint64
	Deadline      int64 // unix seconds
}

// RemoveLiquidityParams mirrors the remove_liquidity instruction accounts and args.
type RemoveLiquidityParams struct {
	Pool      solana.PublicKey
	Authority solana.PublicKey

	FromA solana.PublicKey // pool reserve A
	FromB solana.PublicKey // pool reserve B
	ToA   solana.PublicKey // authority's A account
	ToB   solana.PublicKey // authority's B account
	Mint  solana.PublicKey // share mint
	FromC solana.PublicKey // authority's share account

	AmountC    uint64
	MinAmountA uint64
	MinAmountB uint64
	Deadline   int64
}

// AddLiquidityResult reports what an add_liquidity moved.
type AddLiquidityResult struct {
	Pool            solana.PublicKey `json:"pool"`
	AmountA         uint64           `json:"amount_a"`
	AmountB         uint64           `json:"amount_b"`
	LiquidityMinted uint64           `json:"liquidity_minted"`
	TotalSupplyC    uint64           `json:"total_supply_c"`
	Seeded          bool             `json:"seeded"`
}

// RemoveLiquidityResult reports what a remove_liquidity moved.
type RemoveLiquidityResult struct {
	Pool            solana.PublicKey `json:"pool"`
	AmountA         uint64           `json:"amount_a"`
	AmountB         uint64           `json:"amount_b"`
	LiquidityBurned uint64           `json:"liquidity_burned"`
	TotalSupplyC    uint64           `json:"total_supply_c"`
}

// Quote is a priced exchange against a pool or bare reserves.
type Quote struct {
	Pool           solana.PublicKey `json:"pool,omitempty"`
	ExactInput     bool             `json:"exact_input"`
	AmountIn       uint64           `json:"amount_in"`
	AmountOut      uint64           `json:"amount_out"`
	ReserveIn      uint64           `json:"reserve_in"`
	ReserveOut     uint64           `json:"reserve_out"`
	FeeNumerator   uint64           `json:"fee_numerator"`
	FeeDenominator uint64           `json:"fee_denominator"`
	PriceImpactBps uint64           `json:"price_impact_bps"`
}
