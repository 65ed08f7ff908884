package exchange

import (
	"errors"
)

var (
	ErrExpiredDeadline     = errors.New("deadline has passed")
	ErrAssetMismatch       = errors.New("account asset does not match pool")
	ErrEmptyReserve        = errors.New("reserve is empty")
	ErrEmptyPool           = errors.New("pool has no liquidity")
	ErrSlippageExceeded    = errors.New("slippage limit exceeded")
	ErrInsufficientReserve = errors.New("insufficient reserve for output")
	ErrArithmeticOverflow  = errors.New("arithmetic overflow")
	ErrLedgerCallFailed    = errors.New("ledger call failed")

	ErrInvalidAmount = errors.New("invalid amount")
	ErrUnauthorized  = errors.New("authority does not own account")
	ErrPoolNotFound  = errors.New("pool not found")
	ErrPoolExists    = errors.New("pool already exists")
	ErrInvalidPool   = errors.New("invalid pool")
	ErrInvalidFee    = errors.New("invalid fee")
)

// kinds is ordered; the first match wins when errors are joined.
var kinds = []struct {
	err  error
	name string
}{
	{ErrExpiredDeadline, "expired_deadline"},
	{ErrAssetMismatch, "asset_mismatch"},
	{ErrEmptyReserve, "empty_reserve"},
	{ErrEmptyPool, "empty_pool"},
	{ErrSlippageExceeded, "slippage_exceeded"},
	{ErrInsufficientReserve, "insufficient_reserve"},
	{ErrArithmeticOverflow, "arithmetic_overflow"},
	{ErrLedgerCallFailed, "ledger_call_failed"},
	{ErrInvalidAmount, "invalid_amount"},
	{ErrUnauthorized, "unauthorized"},
	{ErrPoolNotFound, "pool_not_found"},
	{ErrPoolExists, "pool_exists"},
	{ErrInvalidPool, "invalid_pool"},
	{ErrInvalidFee, "invalid_fee"},
}

// Kind returns the stable error code for err, "ok" for nil and "internal"
// for errors that did not originate in this package.
func Kind(err error) string {
	if err == nil {
		return "ok"
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "internal"
}
