package exchange

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// CheckDeadline fails when deadline is strictly before now. Both are unix seconds.
func CheckDeadline(deadline, now int64) error {
	if deadline < now {
		return fmt.Errorf("%w: deadline %d, now %d", ErrExpiredDeadline, deadline, now)
	}
	return nil
}

// Leg pairs an account with the asset the pool expects it to hold.
type Leg struct {
	Name    string
	Account TokenAccount
	Want    solana.PublicKey
}

// CheckAssets fails when any leg holds a different mint than the pool expects.
func CheckAssets(legs ...Leg) error {
	for _, l := range legs {
		if !l.Account.Mint.Equals(l.Want) {
			return fmt.Errorf("%w: %s holds %s, pool expects %s",
				ErrAssetMismatch, l.Name, l.Account.Mint, l.Want)
		}
	}
	return nil
}

// CheckMint fails when the supplied share mint is not the pool's TokenC.
func CheckMint(pool *Exchange, mint solana.PublicKey) error {
	if !mint.Equals(pool.TokenC) {
		return fmt.Errorf("%w: share mint %s, pool expects %s", ErrAssetMismatch, mint, pool.TokenC)
	}
	return nil
}

// CheckReserves fails when the supplied reserve accounts are not the pool's own.
func CheckReserves(pool *Exchange, reserveA, reserveB solana.PublicKey) error {
	if !reserveA.Equals(pool.ReserveA) {
		return fmt.Errorf("%w: reserve A %s is not the pool reserve %s", ErrAssetMismatch, reserveA, pool.ReserveA)
	}
	if !reserveB.Equals(pool.ReserveB) {
		return fmt.Errorf("%w: reserve B %s is not the pool reserve %s", ErrAssetMismatch, reserveB, pool.ReserveB)
	}
	return nil
}

// CheckAuthority fails when any account is not owned by authority.
func CheckAuthority(authority solana.PublicKey, accounts ...TokenAccount) error {
	if authority.IsZero() {
		return fmt.Errorf("%w: authority is required", ErrUnauthorized)
	}
	for _, a := range accounts {
		if !a.Owner.Equals(authority) {
			return fmt.Errorf("%w: %s is owned by %s", ErrUnauthorized, a.Address, a.Owner)
		}
	}
	return nil
}

// CheckPositive fails when any named amount is zero.
func CheckPositive(amounts ...namedAmount) error {
	for _, a := range amounts {
		if a.value == 0 {
			return fmt.Errorf("%w: %s must be > 0", ErrInvalidAmount, a.name)
		}
	}
	return nil
}

type namedAmount struct {
	name  string
	value uint64
}

func amount(name string, v uint64) namedAmount {
	return namedAmount{name: name, value: v}
}
